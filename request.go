package nefproxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/joy-dx/nefproxy/dto"
	"github.com/joy-dx/nefproxy/metrics"
	"github.com/joy-dx/nefproxy/relays"
	"golang.org/x/oauth2"
)

// Call performs one logical request against the appliance and returns the
// "data" payload of the terminal response. The payload is nil when the
// appliance answered with no content or without a data field.
func (s *NefProxy) Call(ctx context.Context, method string, path string, body any) (json.RawMessage, error) {
	spec, err := dto.NewRequestSpec(method, path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	result, err := s.execute(ctx, spec)
	s.metrics.ObserveCall(spec.Method, outcomeOf(result, err))
	if err != nil {
		return nil, err
	}

	switch result.Kind {
	case dto.ResultSuccess:
		return result.Payload, nil
	case dto.ResultEmpty:
		return nil, nil
	case dto.ResultError:
		return nil, result.Err
	default:
		return nil, dto.NewBackendError(0, fmt.Sprintf("unexpected terminal result %s", result.Kind), nil)
	}
}

// CallInto decodes the payload of Call into out. A nil payload leaves out untouched.
func (s *NefProxy) CallInto(ctx context.Context, method string, path string, body any, out any) error {
	payload, err := s.Call(ctx, method, path, body)
	if err != nil {
		return err
	}
	if payload == nil || out == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	return nil
}

func (s *NefProxy) Get(ctx context.Context, path string) (json.RawMessage, error) {
	return s.Call(ctx, http.MethodGet, path, nil)
}

func (s *NefProxy) Post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return s.Call(ctx, http.MethodPost, path, body)
}

func (s *NefProxy) Put(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return s.Call(ctx, http.MethodPut, path, body)
}

func (s *NefProxy) Delete(ctx context.Context, path string) (json.RawMessage, error) {
	return s.Call(ctx, http.MethodDelete, path, nil)
}

// execute drives a call to a terminal result: round trip, then the poll loop
// when the appliance accepted the request for asynchronous processing.
func (s *NefProxy) execute(ctx context.Context, spec dto.RequestSpec) (dto.Result, error) {
	result, err := s.roundTrip(ctx, spec)
	if err != nil {
		return dto.Result{}, err
	}
	if result.Kind == dto.ResultAccepted {
		return s.resolve(ctx, spec, result.Continuation)
	}
	return result, nil
}

// roundTrip sends spec with the session token. A 401 triggers one re-login and
// one resend; a second 401 is fatal.
func (s *NefProxy) roundTrip(ctx context.Context, spec dto.RequestSpec) (dto.Result, error) {
	token, err := s.auth.EnsureToken(ctx)
	if err != nil {
		return dto.Result{}, err
	}

	result, err := s.send(ctx, spec, token)
	if err != nil || result.Kind != dto.ResultAuthExpired {
		return result, err
	}

	s.metrics.ReauthsTotal.Inc()
	s.relay.Info(relays.RlyNefAuth{
		URL:      s.cfg.BaseURL(),
		Username: s.cfg.Username,
		Msg:      fmt.Sprintf("token rejected on %s, re-authenticating", spec),
	})

	token, err = s.auth.Refresh(ctx, token)
	if err != nil {
		return dto.Result{}, err
	}

	result, err = s.send(ctx, spec, token)
	if err != nil {
		return dto.Result{}, err
	}
	if result.Kind == dto.ResultAuthExpired {
		s.auth.discard(token)
		return dto.Result{}, &dto.Error{
			Kind:       dto.ErrKindFatalAuth,
			StatusCode: http.StatusUnauthorized,
			Message:    fmt.Sprintf("%s rejected a freshly issued token", spec),
		}
	}
	return result, nil
}

func (s *NefProxy) send(ctx context.Context, spec dto.RequestSpec, token *oauth2.Token) (dto.Result, error) {
	resp, err := s.transport.Send(ctx, spec, token)
	if err != nil {
		if dto.KindOf(err) != "" {
			return dto.Result{}, err
		}
		return dto.Result{}, dto.NewConnectivityError(fmt.Errorf("send %s: %w", spec, err))
	}

	result := Classify(resp)
	s.relay.Debug(relays.RlyNefResponse{
		Method:     spec.Method,
		URL:        spec.Path,
		StatusCode: resp.StatusCode,
		Result:     result.Kind.String(),
		Msg:        "appliance responded",
	})
	return result, nil
}

func outcomeOf(result dto.Result, err error) string {
	if err != nil {
		var e *dto.Error
		if errors.As(err, &e) {
			return string(e.Kind)
		}
		return metrics.OutcomeInvalid
	}
	switch result.Kind {
	case dto.ResultSuccess:
		return metrics.OutcomeSuccess
	case dto.ResultEmpty:
		return metrics.OutcomeEmpty
	case dto.ResultError:
		return string(result.Err.Kind)
	}
	return metrics.OutcomeBackend
}
