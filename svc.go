package nefproxy

import (
	"github.com/joy-dx/lockablemap"
	"github.com/joy-dx/nefproxy/config"
	"github.com/joy-dx/nefproxy/dto"
	"github.com/joy-dx/nefproxy/metrics"
	relayDTO "github.com/joy-dx/relay/dto"
)

// NefProxy is an authenticated JSON client for one appliance endpoint. Each
// instance owns its session; instances never share tokens.
type NefProxy struct {
	cfg        *config.NefProxyConfig
	relay      relayDTO.RelayInterface
	transport  dto.Transport
	auth       *Authenticator
	metrics    *metrics.Metrics
	operations *lockablemap.LockableMap[string, dto.OperationState]
}

var _ dto.NefProxyInterface = (*NefProxy)(nil)

// Authenticator gives access to the session, e.g. to force a re-login.
func (s *NefProxy) Authenticator() *Authenticator {
	return s.auth
}

func (s *NefProxy) Metrics() *metrics.Metrics {
	return s.metrics
}
