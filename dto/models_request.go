package dto

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrEmptyPath         = errors.New("request path must be set")
	ErrUnsupportedMethod = errors.New("unsupported request method")
	supportedMethods     = map[string]struct{}{http.MethodGet: {}, http.MethodPost: {}, http.MethodPut: {}, http.MethodDelete: {}}
)

// RequestSpec is immutable input for one logical call.
type RequestSpec struct {
	Method string
	// Path relative to the appliance base URL, or an absolute continuation URL
	Path string
	// Body is marshalled as JSON when non-nil
	Body any
}

func NewRequestSpec(method, path string, body any) (RequestSpec, error) {
	method = strings.ToUpper(strings.TrimSpace(method))
	if _, ok := supportedMethods[method]; !ok {
		return RequestSpec{}, fmt.Errorf("%w: %q", ErrUnsupportedMethod, method)
	}
	if strings.TrimSpace(path) == "" {
		return RequestSpec{}, ErrEmptyPath
	}
	return RequestSpec{Method: method, Path: path, Body: body}, nil
}

func (r RequestSpec) HasBody() bool {
	return r.Body != nil
}

func (r RequestSpec) String() string {
	return r.Method + " " + r.Path
}
