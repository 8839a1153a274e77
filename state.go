package nefproxy

import (
	"github.com/joy-dx/nefproxy/dto"
)

func (s *NefProxy) State() *dto.ProxyState {
	return &dto.ProxyState{
		BaseURL:       s.cfg.BaseURL(),
		Pool:          s.cfg.Pool,
		Transport:     s.transport.Ref(),
		Authenticated: s.auth.Authenticated(),
		Operations:    s.operations.GetAll(),
	}
}
