package utils

import (
	"encoding/json"
	"errors"
	"fmt"
)

const ContentTypeJSON = "application/json"

var ErrInvalidRawJSON = errors.New("raw body is not valid JSON")

// PrepareBody serialises a request body to JSON. A nil body yields no bytes and
// no content type. json.RawMessage is sent verbatim after validation.
func PrepareBody(body any) ([]byte, string, error) {
	if body == nil {
		return nil, "", nil
	}

	if raw, ok := body.(json.RawMessage); ok {
		if !json.Valid(raw) {
			return nil, "", ErrInvalidRawJSON
		}
		return raw, ContentTypeJSON, nil
	}

	buf, err := json.Marshal(body)
	if err != nil {
		return nil, "", fmt.Errorf("marshal json body: %w", err)
	}
	return buf, ContentTypeJSON, nil
}
