package httpclient

import (
	"github.com/joy-dx/nefproxy/dto"
)

// HTTPRequest is per-call mutable state built from an immutable dto.RequestSpec.
type HTTPRequest struct {
	Method    string
	URL       string
	Body      any
	Headers   map[string]string
	RequestID string
	// Finalized wire body (deterministic for tests and retries)
	BodyBytes   []byte
	ContentType string
}

func NewHTTPRequest(spec dto.RequestSpec, fullURL string) *HTTPRequest {
	return &HTTPRequest{
		Method:  spec.Method,
		URL:     fullURL,
		Body:    spec.Body,
		Headers: make(map[string]string),
	}
}

func (r *HTTPRequest) SetHeader(k, v string) {
	if r.Headers == nil {
		r.Headers = map[string]string{}
	}
	r.Headers[k] = v
}

func (r *HTTPRequest) Header(k string) string {
	if r.Headers == nil {
		return ""
	}
	return r.Headers[k]
}
