package nefproxy

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/joy-dx/nefproxy/dto"
	"github.com/tidwall/gjson"
)

const (
	continuationPath = "links.0.href"
	payloadField     = "data"
)

// Classify maps one appliance response onto a dto.Result. It only looks at the
// status code and body, so classifying the same response twice is stable.
func Classify(resp dto.RawResponse) dto.Result {
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return dto.Result{Kind: dto.ResultAuthExpired}

	case http.StatusAccepted:
		href := gjson.GetBytes(resp.Body, continuationPath)
		if !gjson.ValidBytes(resp.Body) || href.Type != gjson.String || href.Str == "" {
			return errorResult(dto.NewBackendError(resp.StatusCode, "malformed accepted response: no links[0].href", resp.Body))
		}
		return dto.Result{Kind: dto.ResultAccepted, Continuation: href.Str}

	case http.StatusOK, http.StatusCreated:
		if len(bytes.TrimSpace(resp.Body)) == 0 {
			return dto.Result{Kind: dto.ResultEmpty}
		}
		if !gjson.ValidBytes(resp.Body) {
			return errorResult(dto.NewBackendError(resp.StatusCode, "invalid JSON in success response", resp.Body))
		}
		data := gjson.GetBytes(resp.Body, payloadField)
		if !data.Exists() || data.Type == gjson.Null {
			return dto.Result{Kind: dto.ResultSuccess}
		}
		return dto.Result{Kind: dto.ResultSuccess, Payload: json.RawMessage(data.Raw)}
	}

	if gjson.ValidBytes(resp.Body) {
		parsed := gjson.ParseBytes(resp.Body)
		code, message := parsed.Get("code"), parsed.Get("message")
		if parsed.IsObject() && code.Exists() && message.Exists() {
			return errorResult(dto.NewDomainError(resp.StatusCode, code.String(), message.String(), resp.Body))
		}
	}
	return errorResult(dto.NewBackendError(resp.StatusCode, "", resp.Body))
}

func errorResult(err *dto.Error) dto.Result {
	return dto.Result{Kind: dto.ResultError, Err: err}
}
