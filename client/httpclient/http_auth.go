package httpclient

import (
	"net/http"

	"golang.org/x/oauth2"
)

// attachAuth sets "Authorization: Bearer <token>" when a token is present.
// Requests without a token (the login call) go out bare.
func attachAuth(req *http.Request, token *oauth2.Token) {
	if token == nil || token.AccessToken == "" {
		req.Header.Del("Authorization")
		return
	}
	token.SetAuthHeader(req)
}
