package nodes

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/dshills/workflow-go/workflow"
)

// maxResponseBody caps how much of a response body HttpRequest keeps.
const maxResponseBody = 10 << 20

var httpMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
	http.MethodHead:   true,
}

// HTTPRequest performs an HTTP call.
//
// Parameters: method ("GET"), url, headers (map), body, retries (0). String
// values are expanded. Any response, including 4xx and 5xx, is a success: the
// status code is data for downstream nodes. Transport errors are retried up
// to retries times, then fail the node.
type HTTPRequest struct {
	workflow.Base
	cfg *config
}

// NewHTTPRequest creates an HttpRequest node.
func NewHTTPRequest(opts ...Option) *HTTPRequest { return newHTTPRequest(newConfig(opts...)) }

func newHTTPRequest(cfg *config) *HTTPRequest {
	n := &HTTPRequest{Base: workflow.NewBase(TypeHTTPRequest, "HTTP Request"), cfg: cfg}
	p := n.Params()
	p.Set("method", http.MethodGet)
	p.Set("url", "")
	p.Set("headers", map[string]any{})
	p.Set("body", "")
	p.Set("retries", 0)
	return n
}

// Validate checks the method and URL. URLs containing references are only
// checked for presence since they resolve at run time.
func (n *HTTPRequest) Validate() workflow.ValidationResult {
	v := workflow.Valid()
	method := strings.ToUpper(n.Params().String("method", http.MethodGet))
	if !httpMethods[method] {
		v.AddError(fmt.Sprintf("Unsupported HTTP method: %s", method))
	}

	raw := strings.TrimSpace(n.Params().String("url", ""))
	switch {
	case raw == "":
		v.AddError("URL is required")
	case strings.Contains(raw, "${"):
	default:
		if err := checkURL(raw); err != nil {
			v.AddError(err.Error())
		}
	}
	validateRetries(n.Params(), &v)
	return v
}

func checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("URL must be an absolute http or https URL: %s", raw)
	}
	return nil
}

// Execute sends the request.
func (n *HTTPRequest) Execute(ctx context.Context, ec *workflow.ExecutionContext) workflow.ExecutionResult {
	p := n.Params()
	method := strings.ToUpper(p.String("method", http.MethodGet))
	target := ec.Expand(strings.TrimSpace(p.String("url", "")))
	if err := checkURL(target); err != nil {
		return workflow.Failed("HTTP request failed: "+err.Error(), err)
	}

	body := ec.Expand(p.String("body", ""))
	headers := make(map[string]string)
	for k, v := range p.StringMap("headers") {
		headers[k] = ec.Expand(v)
	}

	var (
		resp     *http.Response
		respBody []byte
	)
	err := n.cfg.retryPolicyFor(p, nil).do(ctx, ec, func() error {
		var reqBody io.Reader
		if body != "" {
			reqBody = strings.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
		if err != nil {
			return err
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		ec.Log("Sending HTTP request", "method", method, "url", target)
		resp, err = n.cfg.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		respBody, err = io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
		if err != nil {
			return fmt.Errorf("reading body: %w", err)
		}
		return nil
	})
	if err != nil {
		return workflow.Failed("HTTP request failed: "+err.Error(), err)
	}

	respHeaders := make(map[string]any, len(resp.Header))
	for k, values := range resp.Header {
		if len(values) == 1 {
			respHeaders[k] = values[0]
		} else {
			list := make([]any, len(values))
			for i, v := range values {
				list[i] = v
			}
			respHeaders[k] = list
		}
	}

	return workflow.Succeeded(fmt.Sprintf("HTTP %s %s: %d", method, target, resp.StatusCode), n.cfg.stamp(map[string]any{
		"status_code": resp.StatusCode,
		"headers":     respHeaders,
		"body":        string(respBody),
	}))
}
