package nefproxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/joy-dx/nefproxy/dto"
	"github.com/joy-dx/nefproxy/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"golang.org/x/oauth2"
)

func TestNefProxy_Call_Golden(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		method      string
		status      int
		body        string
		wantPayload string
		wantErr     error
		wantCode    string
		wantMessage string
		wantOutcome string
	}{
		{name: "201 data payload", method: http.MethodPost, status: 201, body: `{"data": {"x": 1}}`, wantPayload: `{"x": 1}`, wantOutcome: metrics.OutcomeSuccess},
		{name: "200 data payload", method: http.MethodGet, status: 200, body: `{"data":{"x":1}}`, wantPayload: `{"x":1}`, wantOutcome: metrics.OutcomeSuccess},
		{name: "200 missing data", method: http.MethodGet, status: 200, body: `{}`, wantOutcome: metrics.OutcomeSuccess},
		{name: "200 empty", method: http.MethodDelete, status: 200, wantOutcome: metrics.OutcomeEmpty},
		{name: "500 structured", method: http.MethodPut, status: 500, body: `{"code": "NEF_ERROR", "message": "Some error"}`, wantErr: dto.ErrDomain, wantCode: "NEF_ERROR", wantMessage: "Some error", wantOutcome: metrics.OutcomeDomain},
		{name: "404 text", method: http.MethodGet, status: 404, body: `Page Not Found`, wantErr: dto.ErrBackend, wantOutcome: metrics.OutcomeBackend},
		{name: "404 empty", method: http.MethodGet, status: 404, wantErr: dto.ErrBackend, wantOutcome: metrics.OutcomeBackend},
		{name: "202 malformed", method: http.MethodPost, status: 202, body: `{}`, wantErr: dto.ErrBackend, wantOutcome: metrics.OutcomeBackend},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tr := scripted(t, login("t1"), step{method: tt.method, path: "storage/volumes", status: tt.status, body: tt.body})
			p := newTestProxy(t, tr)

			payload, err := p.Call(context.Background(), tt.method, "storage/volumes", nil)
			if got := testutil.ToFloat64(p.Metrics().RequestsTotal.WithLabelValues(tt.method, tt.wantOutcome)); got != 1 {
				t.Fatalf("outcome %s counted %v times", tt.wantOutcome, got)
			}
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err=%v want %v", err, tt.wantErr)
				}
				if payload != nil {
					t.Fatalf("payload alongside error: %s", payload)
				}
				var e *dto.Error
				if !errors.As(err, &e) {
					t.Fatalf("error is not a *dto.Error: %T", err)
				}
				if e.StatusCode != tt.status || string(e.Body) != tt.body {
					t.Fatalf("error lost status/body: %+v", e)
				}
				if tt.wantCode != "" && (e.Code != tt.wantCode || e.Message != tt.wantMessage) {
					t.Fatalf("code/message=%q/%q", e.Code, e.Message)
				}
				return
			}
			if err != nil {
				t.Fatalf("Call: %v", err)
			}
			if string(payload) != tt.wantPayload {
				t.Fatalf("payload=%q want %q", payload, tt.wantPayload)
			}
		})
	}
}

func TestNefProxy_ReusesToken(t *testing.T) {
	t.Parallel()

	tr := scripted(t,
		login("t1"),
		step{method: http.MethodGet, path: "storage/pools", status: 200, body: `{"data":[]}`},
		step{method: http.MethodGet, path: "storage/filesystems", status: 200, body: `{"data":[]}`},
		step{method: http.MethodDelete, path: "storage/volumes/v1", status: 200},
	)
	p := newTestProxy(t, tr)
	ctx := context.Background()

	for _, call := range []func() (json.RawMessage, error){
		func() (json.RawMessage, error) { return p.Get(ctx, "storage/pools") },
		func() (json.RawMessage, error) { return p.Get(ctx, "storage/filesystems") },
		func() (json.RawMessage, error) { return p.Delete(ctx, "storage/volumes/v1") },
	} {
		if _, err := call(); err != nil {
			t.Fatalf("call: %v", err)
		}
	}

	if n := tr.Logins(); n != 1 {
		t.Fatalf("logins=%d want 1", n)
	}
	for _, c := range tr.Calls()[1:] {
		if c.token != "t1" {
			t.Fatalf("%s sent with token %q", c.spec, c.token)
		}
	}
	if got := testutil.ToFloat64(p.Metrics().ReauthsTotal); got != 0 {
		t.Fatalf("reauths=%v want 0", got)
	}
}

func TestNefProxy_ReauthenticatesOnce(t *testing.T) {
	t.Parallel()

	tr := scripted(t,
		login("t1"),
		step{method: http.MethodGet, path: "storage/pools", status: 200, body: `{"data":[]}`},
		step{method: http.MethodGet, path: "storage/pools", status: 200, body: `{"data":[]}`},
		step{method: http.MethodPut, path: "storage/volumes/v1", status: 401},
		login("t2"),
		step{method: http.MethodPut, path: "storage/volumes/v1", status: 200, body: `{"data":{"x":1}}`},
	)
	p := newTestProxy(t, tr)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := p.Get(ctx, "storage/pools"); err != nil {
			t.Fatalf("Get: %v", err)
		}
	}
	payload, err := p.Put(ctx, "storage/volumes/v1", map[string]int{"volumeSize": 10})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if string(payload) != `{"x":1}` {
		t.Fatalf("payload=%s", payload)
	}

	calls := tr.Calls()
	if len(calls) != 6 {
		t.Fatalf("sent %d requests want 6", len(calls))
	}
	if calls[3].token != "t1" || calls[5].token != "t2" {
		t.Fatalf("resend did not use the fresh token: %q then %q", calls[3].token, calls[5].token)
	}
	if calls[4].token != "" {
		t.Fatalf("login sent with a token")
	}
	if got := testutil.ToFloat64(p.Metrics().ReauthsTotal); got != 1 {
		t.Fatalf("reauths=%v want 1", got)
	}
}

func TestNefProxy_SecondUnauthorizedIsFatal(t *testing.T) {
	t.Parallel()

	tr := scripted(t,
		login("t1"),
		step{method: http.MethodGet, path: "storage/pools", status: 401},
		login("t2"),
		step{method: http.MethodGet, path: "storage/pools", status: 401},
	)
	p := newTestProxy(t, tr)

	_, err := p.Get(context.Background(), "storage/pools")
	if !errors.Is(err, dto.ErrFatalAuth) {
		t.Fatalf("err=%v want fatal auth", err)
	}
	if n := len(tr.Calls()); n != 4 {
		t.Fatalf("sent %d requests want 4", n)
	}
	if p.State().Authenticated {
		t.Fatalf("rejected token still cached")
	}
	if got := testutil.ToFloat64(p.Metrics().RequestsTotal.WithLabelValues(http.MethodGet, metrics.OutcomeFatalAuth)); got != 1 {
		t.Fatalf("fatal_auth outcome=%v want 1", got)
	}
}

func TestNefProxy_LoginFailures_Golden(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		login    step
		wantErr  error
		wantCode string
	}{
		{
			name:     "rejected credentials",
			login:    step{method: http.MethodPost, path: LoginPath, status: 401, body: `{"code":"EAUTH","message":"Invalid credentials"}`},
			wantErr:  dto.ErrFatalAuth,
			wantCode: "EAUTH",
		},
		{
			name:    "server error",
			login:   step{method: http.MethodPost, path: LoginPath, status: 500, body: `oops`},
			wantErr: dto.ErrFatalAuth,
		},
		{
			name:    "no token field",
			login:   step{method: http.MethodPost, path: LoginPath, status: 200, body: `{"user":"admin"}`},
			wantErr: dto.ErrFatalAuth,
		},
		{
			name:    "token not a string",
			login:   step{method: http.MethodPost, path: LoginPath, status: 200, body: `{"token":42}`},
			wantErr: dto.ErrFatalAuth,
		},
		{
			name:    "empty body",
			login:   step{method: http.MethodPost, path: LoginPath, status: 200},
			wantErr: dto.ErrFatalAuth,
		},
		{
			name:    "unreachable",
			login:   step{method: http.MethodPost, path: LoginPath, err: dto.NewConnectivityError(errors.New("connection refused"))},
			wantErr: dto.ErrConnectivity,
		},
		{
			name:    "unreachable with an untyped transport error",
			login:   step{method: http.MethodPost, path: LoginPath, err: errors.New("dial tcp: connection refused")},
			wantErr: dto.ErrConnectivity,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tr := scripted(t, tt.login)
			p := newTestProxy(t, tr)

			_, err := p.Get(context.Background(), "storage/pools")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err=%v want %v", err, tt.wantErr)
			}
			if tt.wantCode != "" {
				var e *dto.Error
				if !errors.As(err, &e) || e.Code != tt.wantCode {
					t.Fatalf("code lost: %v", err)
				}
			}
			if n := len(tr.Calls()); n != 1 {
				t.Fatalf("login failure must not be retried, sent %d", n)
			}
		})
	}
}

func TestNefProxy_LoginSendsCredentials(t *testing.T) {
	t.Parallel()

	tr := scripted(t, login("t1"), step{method: http.MethodGet, path: "storage/pools", status: 200})
	p := newTestProxy(t, tr)

	if _, err := p.Get(context.Background(), "storage/pools"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	body, ok := tr.Calls()[0].spec.Body.(loginRequest)
	if !ok {
		t.Fatalf("login body has type %T", tr.Calls()[0].spec.Body)
	}
	if body.Username != "admin" || body.Password != "secret" {
		t.Fatalf("unexpected credentials %+v", body)
	}
	for _, msg := range p.relay.(*fakeRelay).Messages() {
		if strings.Contains(msg, "secret") {
			t.Fatalf("password leaked into relay message %q", msg)
		}
	}
}

func TestNefProxy_ConnectivityError(t *testing.T) {
	t.Parallel()

	tr := scripted(t,
		login("t1"),
		step{method: http.MethodGet, path: "storage/pools", err: dto.NewConnectivityError(errors.New("dial tcp: i/o timeout"))},
	)
	p := newTestProxy(t, tr)

	_, err := p.Get(context.Background(), "storage/pools")
	if !errors.Is(err, dto.ErrConnectivity) {
		t.Fatalf("err=%v want connectivity", err)
	}
	if errors.Is(err, dto.ErrBackend) || errors.Is(err, dto.ErrDomain) {
		t.Fatalf("connectivity error classified as a response error")
	}
	if !p.State().Authenticated {
		t.Fatalf("connectivity failure must not drop the token")
	}
}

func TestNefProxy_UntypedTransportErrorIsConnectivity(t *testing.T) {
	t.Parallel()

	tr := scripted(t,
		login("t1"),
		step{method: http.MethodGet, path: "storage/pools", err: errors.New("dial tcp: connection refused")},
	)
	p := newTestProxy(t, tr)

	_, err := p.Get(context.Background(), "storage/pools")
	if !errors.Is(err, dto.ErrConnectivity) {
		t.Fatalf("err=%v want connectivity", err)
	}
	if dto.KindOf(err) != dto.ErrKindConnectivity {
		t.Fatalf("kind=%q want %q", dto.KindOf(err), dto.ErrKindConnectivity)
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Fatalf("cause lost: %v", err)
	}
}

func TestNefProxy_ShortLivedJWTReused(t *testing.T) {
	t.Parallel()

	raw := signedToken(t, 5*time.Second)
	tr := scripted(t,
		login(raw),
		step{method: http.MethodGet, path: "storage/pools", status: 200, body: `{"data":[]}`},
		step{method: http.MethodGet, path: "storage/pools", status: 200, body: `{"data":[]}`},
		step{method: http.MethodGet, path: "storage/pools", status: 200, body: `{"data":[]}`},
	)
	p := newTestProxy(t, tr)

	for i := 0; i < 3; i++ {
		if _, err := p.Get(context.Background(), "storage/pools"); err != nil {
			t.Fatalf("Get #%d: %v", i, err)
		}
	}
	if n := tr.Logins(); n != 1 {
		t.Fatalf("logins=%d want 1", n)
	}
}

func TestNefProxy_InvalidRequest(t *testing.T) {
	t.Parallel()

	tr := scripted(t)
	p := newTestProxy(t, tr)

	if _, err := p.Call(context.Background(), "PATCH", "storage/pools", nil); !errors.Is(err, dto.ErrUnsupportedMethod) {
		t.Fatalf("err=%v want unsupported method", err)
	}
	if _, err := p.Get(context.Background(), ""); !errors.Is(err, dto.ErrEmptyPath) {
		t.Fatalf("err=%v want empty path", err)
	}
	if n := len(tr.Calls()); n != 0 {
		t.Fatalf("invalid requests reached the transport %d times", n)
	}
}

func TestNefProxy_CallInto(t *testing.T) {
	t.Parallel()

	type pool struct {
		PoolName string `json:"poolName"`
		Health   string `json:"health"`
	}

	tr := scripted(t,
		login("t1"),
		step{method: http.MethodGet, path: "storage/pools/tank", status: 200, body: `{"data":{"poolName":"tank","health":"ONLINE"}}`},
		step{method: http.MethodDelete, path: "storage/pools/tank", status: 200},
	)
	p := newTestProxy(t, tr)
	ctx := context.Background()

	var got pool
	if err := p.CallInto(ctx, http.MethodGet, "storage/pools/tank", nil, &got); err != nil {
		t.Fatalf("CallInto: %v", err)
	}
	if got.PoolName != "tank" || got.Health != "ONLINE" {
		t.Fatalf("decoded %+v", got)
	}

	untouched := pool{PoolName: "keep"}
	if err := p.CallInto(ctx, http.MethodDelete, "storage/pools/tank", nil, &untouched); err != nil {
		t.Fatalf("CallInto: %v", err)
	}
	if untouched.PoolName != "keep" {
		t.Fatalf("empty payload overwrote out: %+v", untouched)
	}
}

func TestNefProxy_ConcurrentRefreshLogsInOnce(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	issued := 0
	tr := &fakeTransport{fn: func(spec dto.RequestSpec, token *oauth2.Token) (dto.RawResponse, error) {
		if spec.Path == LoginPath {
			mu.Lock()
			defer mu.Unlock()
			issued++
			return dto.RawResponse{StatusCode: 200, Body: []byte(fmt.Sprintf(`{"token":"t%d"}`, issued))}, nil
		}
		if token.AccessToken == "t1" {
			return dto.RawResponse{StatusCode: 401}, nil
		}
		return dto.RawResponse{StatusCode: 200, Body: []byte(`{"data":"ok"}`)}, nil
	}}
	p := newTestProxy(t, tr)
	ctx := context.Background()

	if _, err := p.Authenticator().EnsureToken(ctx); err != nil {
		t.Fatalf("EnsureToken: %v", err)
	}

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := p.Get(ctx, "storage/pools"); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatalf("Get: %v", err)
	}
	if n := tr.Logins(); n != 2 {
		t.Fatalf("logins=%d want 2 (initial + one refresh)", n)
	}
}
