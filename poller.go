package nefproxy

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/joy-dx/nefproxy/dto"
	"github.com/joy-dx/nefproxy/relays"
)

var errStillPending = errors.New("operation still pending")

func operationKey(spec dto.RequestSpec) string {
	return spec.Method + " " + spec.Path
}

// resolve follows the continuation of an accepted request until the appliance
// returns something other than 202. Every hop goes through roundTrip, so a 401
// while polling is handled exactly like one on the original request.
func (s *NefProxy) resolve(ctx context.Context, origin dto.RequestSpec, href string) (dto.Result, error) {
	key := operationKey(origin)
	state := dto.OperationState{
		Method:       origin.Method,
		Path:         origin.Path,
		Continuation: href,
		Status:       dto.PENDING,
		UpdatedAt:    time.Now(),
	}
	s.operations.Set(key, state)

	hops := 0
	result, err := retry.DoWithData(
		func() (dto.Result, error) {
			hops++
			s.metrics.PollHopsTotal.Inc()

			hop := dto.RequestSpec{Method: http.MethodGet, Path: href}
			res, err := s.roundTrip(ctx, hop)
			if err != nil {
				return dto.Result{}, err
			}

			s.relay.Debug(relays.RlyNefPoll{
				Continuation: href,
				Hop:          hops,
				Result:       res.Kind.String(),
				Msg:          "polled accepted operation",
			})

			if res.Kind == dto.ResultAccepted {
				href = res.Continuation
				state.Continuation = href
				state.Hops = hops
				state.UpdatedAt = time.Now()
				s.operations.Set(key, state)
				return res, errStillPending
			}
			return res, nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(s.cfg.MaxPollHops)),
		retry.Delay(s.cfg.PollInterval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, errStillPending)
		}),
	)

	state.Hops = hops
	state.UpdatedAt = time.Now()

	switch {
	case err == nil:
		state.Status = dto.COMPLETE
		if result.Kind == dto.ResultError {
			state.Status = dto.FAILED
			state.Message = result.Err.Error()
		}
	case errors.Is(err, errStillPending):
		err = dto.NewBackendError(http.StatusAccepted, fmt.Sprintf("operation still pending after %d polls", hops), nil)
	case ctx.Err() != nil && dto.KindOf(err) == "":
		err = dto.NewConnectivityError(fmt.Errorf("polling %s: %w", href, ctx.Err()))
	}

	if err != nil {
		state.Status = dto.FAILED
		state.Message = err.Error()
		s.relay.Warn(relays.RlyNefPoll{
			Continuation: href,
			Hop:          hops,
			Msg:          state.Message,
		})
	}
	s.operations.Set(key, state)

	if err != nil {
		return dto.Result{}, err
	}
	return result, nil
}
