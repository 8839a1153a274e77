package dto

import (
	"context"
	"encoding/json"

	"golang.org/x/oauth2"
)

type NefProxyInterface interface {
	Call(ctx context.Context, method string, path string, body any) (json.RawMessage, error)
	CallInto(ctx context.Context, method string, path string, body any, out any) error
	Get(ctx context.Context, path string) (json.RawMessage, error)
	Post(ctx context.Context, path string, body any) (json.RawMessage, error)
	Put(ctx context.Context, path string, body any) (json.RawMessage, error)
	Delete(ctx context.Context, path string) (json.RawMessage, error)
	State() *ProxyState
}

// Transport sends one prepared request to the appliance and returns whatever
// came back. Implementations must not interpret status codes. A nil token
// means the request goes out without credentials (only the login call does this).
type Transport interface {
	Ref() TransportType
	Send(ctx context.Context, spec RequestSpec, token *oauth2.Token) (RawResponse, error)
}
