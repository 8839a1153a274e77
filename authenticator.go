package nefproxy

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/joy-dx/nefproxy/config"
	"github.com/joy-dx/nefproxy/dto"
	"github.com/joy-dx/nefproxy/relays"
	relayDTO "github.com/joy-dx/relay/dto"
	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"
)

const LoginPath = "auth/login"

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Authenticator owns the session token of one proxy. It is the only writer of
// that token and serializes read-and-refresh behind a single mutex, so
// concurrent calls hitting a 401 produce one login per stale token.
type Authenticator struct {
	cfg       *config.NefProxyConfig
	transport dto.Transport
	relay     relayDTO.RelayInterface

	mu    sync.Mutex
	token *oauth2.Token
}

func NewAuthenticator(cfg *config.NefProxyConfig, transport dto.Transport) *Authenticator {
	return &Authenticator{
		cfg:       cfg,
		transport: transport,
		relay:     cfg.Relay(),
	}
}

// EnsureToken returns the cached token, logging in first when there is none.
func (a *Authenticator) EnsureToken(ctx context.Context) (*oauth2.Token, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.token.Valid() {
		return a.token, nil
	}
	return a.loginLocked(ctx)
}

// Login discards any cached token and performs a fresh login.
func (a *Authenticator) Login(ctx context.Context) (*oauth2.Token, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.token = nil
	return a.loginLocked(ctx)
}

// Invalidate clears the cached token. Safe to call repeatedly.
func (a *Authenticator) Invalidate() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.token = nil
}

// Refresh replaces a token the appliance rejected. When another caller has
// already swapped stale for a newer token, that token is returned as is.
func (a *Authenticator) Refresh(ctx context.Context, stale *oauth2.Token) (*oauth2.Token, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.token.Valid() && a.token != stale {
		return a.token, nil
	}
	a.token = nil
	return a.loginLocked(ctx)
}

// discard clears the cached token only if it is still stale.
func (a *Authenticator) discard(stale *oauth2.Token) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.token == stale {
		a.token = nil
	}
}

func (a *Authenticator) Authenticated() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.token.Valid()
}

// TokenSource exposes the session to code that speaks oauth2.
func (a *Authenticator) TokenSource(ctx context.Context) oauth2.TokenSource {
	return sessionTokenSource{ctx: ctx, auth: a}
}

type sessionTokenSource struct {
	ctx  context.Context
	auth *Authenticator
}

func (s sessionTokenSource) Token() (*oauth2.Token, error) {
	return s.auth.EnsureToken(s.ctx)
}

func (a *Authenticator) loginLocked(ctx context.Context) (*oauth2.Token, error) {
	a.relay.Debug(relays.RlyNefAuth{
		URL:      a.cfg.BaseURL(),
		Username: a.cfg.Username,
		Msg:      "logging in",
	})

	spec := dto.RequestSpec{
		Method: http.MethodPost,
		Path:   LoginPath,
		Body:   loginRequest{Username: a.cfg.Username, Password: a.cfg.Password},
	}
	resp, err := a.transport.Send(ctx, spec, nil)
	if err != nil {
		if dto.KindOf(err) != "" {
			return nil, err
		}
		return nil, dto.NewConnectivityError(fmt.Errorf("send %s: %w", spec, err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		authErr := &dto.Error{
			Kind:       dto.ErrKindFatalAuth,
			StatusCode: resp.StatusCode,
			Message:    "login rejected",
			Body:       resp.Body,
		}
		if gjson.ValidBytes(resp.Body) {
			parsed := gjson.ParseBytes(resp.Body)
			authErr.Code = parsed.Get("code").String()
			if msg := parsed.Get("message").String(); msg != "" {
				authErr.Message = fmt.Sprintf("login rejected: %s", msg)
			}
		}
		a.relay.Warn(relays.RlyNefAuth{
			URL:      a.cfg.BaseURL(),
			Username: a.cfg.Username,
			Msg:      authErr.Error(),
		})
		return nil, authErr
	}

	tok := gjson.GetBytes(resp.Body, "token")
	if !gjson.ValidBytes(resp.Body) || tok.Type != gjson.String || tok.Str == "" {
		return nil, &dto.Error{
			Kind:       dto.ErrKindFatalAuth,
			StatusCode: resp.StatusCode,
			Message:    "login response carries no token",
			Body:       resp.Body,
		}
	}

	a.token = &oauth2.Token{AccessToken: tok.Str, TokenType: "Bearer", Expiry: tokenExpiry(tok.Str)}
	a.relay.Info(relays.RlyNefAuth{
		URL:      a.cfg.BaseURL(),
		Username: a.cfg.Username,
		Msg:      "authenticated",
	})
	return a.token, nil
}

// tokenExpirySkew is added to the exp claim so a token is never dropped before
// the appliance itself would reject it.
const tokenExpirySkew = 2 * time.Minute

// tokenExpiry reads the exp claim of JWT tokens. Opaque tokens have no known
// expiry and stay cached until the appliance answers 401.
func tokenExpiry(raw string) time.Time {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil || claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Add(tokenExpirySkew)
}
