package httpclient

import (
	"fmt"

	"github.com/joy-dx/nefproxy/utils"
)

// FinalizeBody prepares BodyBytes and ContentType exactly once per call.
// Rules:
// - If BodyBytes is already set, we respect it.
// - Otherwise we build BodyBytes from Body; a nil Body stays bodyless.
func (r *HTTPRequest) FinalizeBody() error {
	if r.BodyBytes != nil {
		return nil
	}

	bodyBuf, ct, err := utils.PrepareBody(r.Body)
	if err != nil {
		return fmt.Errorf("prepare body: %w", err)
	}

	r.BodyBytes = bodyBuf
	// Prefer explicit ContentType if some middleware set it.
	if r.ContentType == "" {
		r.ContentType = ct
	}
	return nil
}
