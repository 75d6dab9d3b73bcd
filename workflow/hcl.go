package workflow

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
)

// HCL workflow documents are a hand-authoring format. They are loaded into
// the same Document as JSON and YAML but are never written back.
//
//	name = "Morning routine"
//	globals = { user = "sam" }
//
//	node "wait" {
//	  type   = "Delay"
//	  params = { seconds = 1 }
//	}
//
//	node "greet" {
//	  type   = "Output"
//	  title  = "Greet"
//	  params = { message = "Good morning $${user}" }
//	}
//
//	connection {
//	  from = "wait"
//	  to   = "greet"
//	}
//
// Documents are evaluated with an empty HCL context. References meant for
// the engine's variable expansion are escaped as "$${...}", which HCL
// unescapes to "${...}".
type hclDocument struct {
	ID          string          `hcl:"id,optional"`
	Name        string          `hcl:"name,optional"`
	Description string          `hcl:"description,optional"`
	Globals     hcl.Expression  `hcl:"globals,optional"`
	Nodes       []hclNode       `hcl:"node,block"`
	Connections []hclConnection `hcl:"connection,block"`
}

type hclNode struct {
	ID     string         `hcl:"id,label"`
	Type   string         `hcl:"type"`
	Title  string         `hcl:"title,optional"`
	X      float64        `hcl:"x,optional"`
	Y      float64        `hcl:"y,optional"`
	Params hcl.Expression `hcl:"params,optional"`
}

type hclConnection struct {
	ID         string `hcl:"id,optional"`
	From       string `hcl:"from"`
	To         string `hcl:"to"`
	SourcePort string `hcl:"source_port,optional"`
	TargetPort string `hcl:"target_port,optional"`
	Label      string `hcl:"label,optional"`
}

func decodeHCL(src []byte, filename string) (*Document, error) {
	file, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, diags
	}

	var parsed hclDocument
	if diags := gohcl.DecodeBody(file.Body, nil, &parsed); diags.HasErrors() {
		return nil, diags
	}

	doc := &Document{
		ID:          parsed.ID,
		Name:        parsed.Name,
		Description: parsed.Description,
	}

	globals, err := hclParams(parsed.Globals)
	if err != nil {
		return nil, fmt.Errorf("globals: %w", err)
	}
	doc.GlobalParameters = globals

	for _, n := range parsed.Nodes {
		params, err := hclParams(n.Params)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", n.ID, err)
		}
		doc.Nodes = append(doc.Nodes, NodeDocument{
			ID:         n.ID,
			NodeType:   n.Type,
			Title:      n.Title,
			X:          n.X,
			Y:          n.Y,
			Parameters: params,
		})
	}

	for _, c := range parsed.Connections {
		doc.Connections = append(doc.Connections, ConnectionDocument{
			ID:           c.ID,
			SourceNodeID: c.From,
			TargetNodeID: c.To,
			SourcePort:   c.SourcePort,
			TargetPort:   c.TargetPort,
			Label:        c.Label,
		})
	}
	return doc, nil
}

// hclParams evaluates an object expression into Params. A missing
// attribute yields an empty bag.
func hclParams(expr hcl.Expression) (Params, error) {
	out := make(Params)
	if expr == nil {
		return out, nil
	}
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, diags
	}
	if val.IsNull() {
		return out, nil
	}
	ty := val.Type()
	if !ty.IsObjectType() && !ty.IsMapType() {
		return nil, fmt.Errorf("expected an object, got %s", ty.FriendlyName())
	}
	v, err := fromCty(val)
	if err != nil {
		return nil, err
	}
	m, _ := v.AsMap()
	for k, item := range m {
		out[k] = item
	}
	return out, nil
}

// fromCty converts a known cty value into a Value.
func fromCty(v cty.Value) (Value, error) {
	if v.IsNull() {
		return Value{}, nil
	}
	if !v.IsKnown() {
		return Value{}, fmt.Errorf("value is not known")
	}

	ty := v.Type()
	switch {
	case ty == cty.String:
		return String(v.AsString()), nil
	case ty == cty.Number:
		f, _ := v.AsBigFloat().Float64()
		return Number(f), nil
	case ty == cty.Bool:
		return Bool(v.True()), nil
	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		items := make([]Value, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			_, elem := it.Element()
			item, err := fromCty(elem)
			if err != nil {
				return Value{}, err
			}
			items = append(items, item)
		}
		return List(items...), nil
	case ty.IsObjectType() || ty.IsMapType():
		m := make(map[string]Value, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			key, elem := it.Element()
			item, err := fromCty(elem)
			if err != nil {
				return Value{}, fmt.Errorf("in attribute %q: %w", key.AsString(), err)
			}
			m[key.AsString()] = item
		}
		return Map(m), nil
	default:
		return Value{}, fmt.Errorf("unsupported value type %s", ty.FriendlyName())
	}
}
