package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// requestTransport decorates outgoing provider requests with static headers
// and, for JSON POST bodies, extra top-level fields the SDK does not model.
type requestTransport struct {
	base    http.RoundTripper
	headers map[string]string
	extra   map[string]any
}

func newHTTPClient(opts Options, extra map[string]any) *http.Client {
	transport := &requestTransport{
		base:    http.DefaultTransport,
		headers: opts.Headers,
		extra:   extra,
	}
	return &http.Client{
		Timeout:   opts.timeout(),
		Transport: transport,
	}
}

// thinkingExtra returns the body extension for a thinking mode, or nil.
func thinkingExtra(mode string) map[string]any {
	if mode == "" {
		return nil
	}
	return map[string]any{
		"thinking": map[string]any{"type": mode},
	}
}

func (t *requestTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if len(t.headers) == 0 && len(t.extra) == 0 {
		return t.base.RoundTrip(req)
	}

	// RoundTrippers must not modify the caller's request.
	out := req.Clone(req.Context())
	for k, v := range t.headers {
		out.Header.Set(k, v)
	}

	if len(t.extra) > 0 && req.Method == http.MethodPost && req.Body != nil &&
		strings.HasPrefix(req.Header.Get("Content-Type"), "application/json") {
		body, err := io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read request body: %w", err)
		}

		merged, err := mergeJSONFields(body, t.extra)
		if err != nil {
			return nil, err
		}

		out.Body = io.NopCloser(bytes.NewReader(merged))
		out.ContentLength = int64(len(merged))
		out.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(merged)), nil
		}
	}

	return t.base.RoundTrip(out)
}

// mergeJSONFields adds fields to a JSON object without overwriting keys the
// body already carries.
func mergeJSONFields(body []byte, fields map[string]any) ([]byte, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(body, &doc); err != nil {
		// Not an object; forward untouched.
		return body, nil
	}

	for k, v := range fields {
		if _, exists := doc[k]; exists {
			continue
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode request field %q: %w", k, err)
		}
		doc[k] = raw
	}

	merged, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}
	return merged, nil
}
