package nodes

import "strings"

// modelPricing is the USD price per million tokens of a chat model.
type modelPricing struct {
	InputPer1M  float64
	OutputPer1M float64
}

var defaultModelPricing = map[string]modelPricing{
	"gpt-4o":                     {InputPer1M: 2.50, OutputPer1M: 10.00},
	"gpt-4o-mini":                {InputPer1M: 0.15, OutputPer1M: 0.60},
	"gpt-4-turbo":                {InputPer1M: 10.00, OutputPer1M: 30.00},
	"gpt-3.5-turbo":              {InputPer1M: 0.50, OutputPer1M: 1.50},
	"claude-3-5-sonnet-20241022": {InputPer1M: 3.00, OutputPer1M: 15.00},
	"claude-3-opus-20240229":     {InputPer1M: 15.00, OutputPer1M: 75.00},
	"claude-3-sonnet-20240229":   {InputPer1M: 3.00, OutputPer1M: 15.00},
	"claude-3-haiku-20240307":    {InputPer1M: 0.25, OutputPer1M: 1.25},
	"gemini-1.5-pro":             {InputPer1M: 1.25, OutputPer1M: 5.00},
	"gemini-1.5-flash":           {InputPer1M: 0.075, OutputPer1M: 0.30},
	"gemini-1.0-pro":             {InputPer1M: 0.50, OutputPer1M: 1.50},
}

// estimateCost prices a call. Dated model versions fall back to their base
// name ("gpt-4o-2024-08-06" is priced as "gpt-4o"). Unknown models report ok
// false.
func estimateCost(pricing map[string]modelPricing, modelName string, in, out int) (float64, bool) {
	p, ok := pricing[modelName]
	for name := modelName; !ok; {
		i := strings.LastIndexByte(name, '-')
		if i <= 0 {
			return 0, false
		}
		name = name[:i]
		p, ok = pricing[name]
	}
	return float64(in)/1e6*p.InputPer1M + float64(out)/1e6*p.OutputPer1M, true
}
