package httpclient

import (
	"context"
	"crypto/tls"
)

type Middleware func(ctx context.Context, req *HTTPRequest) error

type HTTPClientConfig struct {
	// TLSConfig overrides the verify policy derived from the proxy config
	TLSConfig   *tls.Config
	Middlewares []Middleware
}

func DefaultHTTPClientConfig() HTTPClientConfig {
	return HTTPClientConfig{
		Middlewares: make([]Middleware, 0),
	}
}

func (c *HTTPClientConfig) WithTLSConfig(tlsCfg *tls.Config) *HTTPClientConfig {
	c.TLSConfig = tlsCfg
	return c
}

func (c *HTTPClientConfig) WithMiddleware(m ...Middleware) *HTTPClientConfig {
	c.Middlewares = append(c.Middlewares, m...)
	return c
}
