package httpclient

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

// StaticHeaderMiddleware injects static headers into every request.
func StaticHeaderMiddleware(headers map[string]string) Middleware {
	return func(ctx context.Context, r *HTTPRequest) error {
		for k, v := range headers {
			r.SetHeader(k, v)
		}
		return nil
	}
}

// RequestIDMiddleware tags each physical send with a fresh id.
func RequestIDMiddleware() Middleware {
	return func(ctx context.Context, r *HTTPRequest) error {
		r.RequestID = uuid.NewString()
		r.SetHeader(RequestIDHeader, r.RequestID)
		return nil
	}
}

func LoggingMiddleware(logger func(msg string)) Middleware {
	return func(ctx context.Context, r *HTTPRequest) error {
		logger(fmt.Sprintf("[HTTP] %s %s", r.Method, r.URL))
		return nil
	}
}
