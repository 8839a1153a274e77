package restyclient

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/joy-dx/nefproxy/config"
	"github.com/joy-dx/nefproxy/dto"
	"github.com/joy-dx/nefproxy/relays"
	"github.com/joy-dx/nefproxy/utils"
	relayDTO "github.com/joy-dx/relay/dto"
	"golang.org/x/oauth2"
)

const RequestIDHeader = "X-Request-ID"

// RestyClient is a dto.Transport backed by go-resty. Resty's own retry
// machinery stays disabled: the proxy performs exactly one send per attempt.
type RestyClient struct {
	nefCfg *config.NefProxyConfig
	relay  relayDTO.RelayInterface
	client *resty.Client
}

var _ dto.Transport = (*RestyClient)(nil)

func NewRestyClient(nefCfg *config.NefProxyConfig, tlsCfg *tls.Config) *RestyClient {
	relay := nefCfg.Relay()

	if tlsCfg == nil {
		tlsCfg = &tls.Config{InsecureSkipVerify: !nefCfg.Verify} //nolint:gosec
	}

	client := resty.New().
		SetTimeout(nefCfg.RequestTimeout).
		SetTLSClientConfig(tlsCfg).
		SetRetryCount(0).
		SetLogger(&relayLogger{relay: relay}).
		SetHeader("Content-Type", utils.ContentTypeJSON).
		SetHeader("Accept", utils.ContentTypeJSON)

	if nefCfg.UserAgent != "" {
		client.SetHeader("User-Agent", nefCfg.UserAgent)
	}
	if len(nefCfg.ExtraHeaders) > 0 {
		client.SetHeaders(nefCfg.ExtraHeaders)
	}

	return &RestyClient{
		nefCfg: nefCfg,
		relay:  relay,
		client: client,
	}
}

func (c *RestyClient) Ref() dto.TransportType {
	return dto.TransportResty
}

func (c *RestyClient) Send(ctx context.Context, spec dto.RequestSpec, token *oauth2.Token) (dto.RawResponse, error) {
	fullURL, err := utils.ResolveURL(c.nefCfg.BaseURL(), spec.Path)
	if err != nil {
		return dto.RawResponse{}, &dto.Error{Kind: dto.ErrKindBackend, Message: "build url", Cause: err}
	}

	bodyBytes, _, err := utils.PrepareBody(spec.Body)
	if err != nil {
		return dto.RawResponse{}, &dto.Error{Kind: dto.ErrKindBackend, Message: "prepare body", Cause: err}
	}

	requestID := uuid.NewString()
	req := c.client.R().
		SetContext(ctx).
		SetHeader(RequestIDHeader, requestID)

	if token != nil && token.AccessToken != "" {
		req.SetHeader("Authorization", token.Type()+" "+token.AccessToken)
	}
	if bodyBytes != nil {
		req.SetBody(bodyBytes)
	}

	c.relay.Debug(relays.RlyNefRequest{
		Method:    spec.Method,
		URL:       fullURL,
		RequestID: requestID,
		HasBody:   bodyBytes != nil,
		Msg:       "issuing call to appliance",
	})

	resp, err := req.Execute(spec.Method, fullURL)
	if err != nil {
		c.relay.Warn(relays.RlyNefLog{Msg: fmt.Sprintf("connection error on %s %s: %v", spec.Method, fullURL, err)})
		return dto.RawResponse{}, dto.NewConnectivityError(fmt.Errorf("%s %s: %w", spec.Method, fullURL, err))
	}

	return dto.RawResponse{
		StatusCode: resp.StatusCode(),
		Headers:    resp.Header().Clone(),
		Body:       resp.Body(),
	}, nil
}
