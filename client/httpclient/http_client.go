package httpclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/joy-dx/nefproxy/config"
	"github.com/joy-dx/nefproxy/dto"
	"github.com/joy-dx/nefproxy/relays"
	"github.com/joy-dx/nefproxy/utils"
	relayDTO "github.com/joy-dx/relay/dto"
	"golang.org/x/oauth2"
)

// -----------------------------------------------------------------------------
// PERSISTENT CLIENT IMPLEMENTATION
// -----------------------------------------------------------------------------

// HTTPClient is the default dto.Transport. It owns one keep-alive
// connection pool scoped to a single appliance endpoint and never looks at
// status codes: classification happens upstream.
type HTTPClient struct {
	cfg         *HTTPClientConfig
	nefCfg      *config.NefProxyConfig
	relay       relayDTO.RelayInterface
	client      *http.Client
	middlewares []Middleware
}

var _ dto.Transport = (*HTTPClient)(nil)

func NewHTTPClient(nefCfg *config.NefProxyConfig, cfg *HTTPClientConfig) *HTTPClient {
	if cfg == nil {
		c := DefaultHTTPClientConfig()
		cfg = &c
	}

	tlsCfg := cfg.TLSConfig
	if tlsCfg == nil {
		// appliances commonly ship self-signed certificates; Verify=false opts out
		tlsCfg = &tls.Config{InsecureSkipVerify: !nefCfg.Verify} //nolint:gosec
	}

	middlewares := []Middleware{
		StaticHeaderMiddleware(map[string]string{
			"Content-Type": utils.ContentTypeJSON,
			"Accept":       utils.ContentTypeJSON,
		}),
		RequestIDMiddleware(),
	}
	if nefCfg.UserAgent != "" {
		middlewares = append(middlewares, StaticHeaderMiddleware(map[string]string{"User-Agent": nefCfg.UserAgent}))
	}
	if len(nefCfg.ExtraHeaders) > 0 {
		middlewares = append(middlewares, StaticHeaderMiddleware(nefCfg.ExtraHeaders))
	}
	middlewares = append(middlewares, cfg.Middlewares...)

	return &HTTPClient{
		cfg:         cfg,
		nefCfg:      nefCfg,
		relay:       nefCfg.Relay(),
		middlewares: middlewares,
		client: &http.Client{
			Timeout: nefCfg.RequestTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        50,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
				DisableKeepAlives:   false,
				Proxy:               http.ProxyFromEnvironment,
				TLSClientConfig:     tlsCfg,
			},
		},
	}
}

func (c *HTTPClient) Ref() dto.TransportType {
	return dto.TransportHTTP
}

// -----------------------------------------------------------------------------
// REQUEST EXECUTION
// -----------------------------------------------------------------------------

// Send performs exactly one physical request. Failures below HTTP (dial, TLS,
// timeout, cancelled context, truncated body) come back as connectivity errors;
// everything that produced a status line comes back as a RawResponse.
func (c *HTTPClient) Send(ctx context.Context, spec dto.RequestSpec, token *oauth2.Token) (dto.RawResponse, error) {
	fullURL, err := utils.ResolveURL(c.nefCfg.BaseURL(), spec.Path)
	if err != nil {
		return dto.RawResponse{}, &dto.Error{Kind: dto.ErrKindBackend, Message: "build url", Cause: err}
	}

	reqCfg := NewHTTPRequest(spec, fullURL)

	for _, mw := range c.middlewares {
		if err := mw(ctx, reqCfg); err != nil {
			return dto.RawResponse{}, fmt.Errorf("middleware aborted: %w", err)
		}
	}

	if err := reqCfg.FinalizeBody(); err != nil {
		return dto.RawResponse{}, &dto.Error{Kind: dto.ErrKindBackend, Message: "finalize body", Cause: err}
	}

	var body io.Reader
	if reqCfg.BodyBytes != nil {
		body = bytes.NewReader(reqCfg.BodyBytes)
	}

	httpReq, err := http.NewRequestWithContext(ctx, reqCfg.Method, reqCfg.URL, body)
	if err != nil {
		return dto.RawResponse{}, &dto.Error{Kind: dto.ErrKindBackend, Message: "create request", Cause: err}
	}

	for k, v := range reqCfg.Headers {
		httpReq.Header.Set(k, v)
	}
	if reqCfg.ContentType != "" {
		httpReq.Header.Set("Content-Type", reqCfg.ContentType)
	}
	attachAuth(httpReq, token)

	c.relay.Debug(relays.RlyNefRequest{
		Method:    reqCfg.Method,
		URL:       reqCfg.URL,
		RequestID: reqCfg.RequestID,
		HasBody:   reqCfg.BodyBytes != nil,
		Msg:       "issuing call to appliance",
	})

	// httpResp may be non-nil alongside reqErr
	httpResp, reqErr := c.client.Do(httpReq)
	if httpResp != nil {
		defer func() {
			_, _ = io.Copy(io.Discard, httpResp.Body) // drain fully for connection reuse
			_ = httpResp.Body.Close()
		}()
	}
	if reqErr != nil {
		c.relay.Warn(relays.RlyNefLog{Msg: fmt.Sprintf("connection error on %s %s: %v", reqCfg.Method, reqCfg.URL, reqErr)})
		return dto.RawResponse{}, dto.NewConnectivityError(fmt.Errorf("%s %s: %w", reqCfg.Method, reqCfg.URL, reqErr))
	}

	bodyBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return dto.RawResponse{}, dto.NewConnectivityError(fmt.Errorf("read body: %w", err))
	}

	return dto.RawResponse{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header.Clone(),
		Body:       bodyBytes,
	}, nil
}
