package nefproxy

import (
	"crypto/tls"
	"errors"
	"fmt"

	"github.com/joy-dx/lockablemap"
	"github.com/joy-dx/nefproxy/client/httpclient"
	"github.com/joy-dx/nefproxy/client/restyclient"
	"github.com/joy-dx/nefproxy/config"
	"github.com/joy-dx/nefproxy/dto"
	"github.com/joy-dx/nefproxy/metrics"
	"github.com/joy-dx/nefproxy/relays"
)

type Option func(*providerOptions)

type providerOptions struct {
	transport dto.Transport
	httpCfg   *httpclient.HTTPClientConfig
	metrics   *metrics.Metrics
}

// WithTransport replaces the transport selected by the config.
func WithTransport(t dto.Transport) Option {
	return func(o *providerOptions) {
		o.transport = t
	}
}

// WithHTTPClientConfig customizes the default net/http transport (TLS, middlewares).
func WithHTTPClientConfig(cfg *httpclient.HTTPClientConfig) Option {
	return func(o *providerOptions) {
		o.httpCfg = cfg
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *providerOptions) {
		o.metrics = m
	}
}

// NewNefProxy validates cfg and builds a proxy around a private copy of it.
func NewNefProxy(cfg *config.NefProxyConfig, opts ...Option) (*NefProxy, error) {
	if cfg == nil {
		return nil, errors.New("nil NefProxyConfig provided")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	var o providerOptions
	for _, opt := range opts {
		opt(&o)
	}

	own := cfg.Clone()
	s := &NefProxy{
		cfg:        &own,
		relay:      own.Relay(),
		transport:  o.transport,
		metrics:    o.metrics,
		operations: lockablemap.NewLockableMap[string, dto.OperationState](),
	}

	if s.transport == nil {
		s.transport = newTransport(&own, o.httpCfg)
	}
	if s.metrics == nil {
		s.metrics = metrics.New(own.MetricsRegisterer())
	}
	s.auth = NewAuthenticator(&own, s.transport)

	s.relay.Debug(relays.RlyNefLog{Msg: fmt.Sprintf("NEF proxy ready for %s via %s", own.BaseURL(), s.transport.Ref())})
	return s, nil
}

func newTransport(cfg *config.NefProxyConfig, httpCfg *httpclient.HTTPClientConfig) dto.Transport {
	switch cfg.Transport {
	case dto.TransportResty:
		var tlsCfg *tls.Config
		if httpCfg != nil {
			tlsCfg = httpCfg.TLSConfig
		}
		return restyclient.NewRestyClient(cfg, tlsCfg)
	default:
		return httpclient.NewHTTPClient(cfg, httpCfg)
	}
}
