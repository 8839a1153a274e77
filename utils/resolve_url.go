package utils

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var ErrForeignURL = errors.New("url points outside the appliance")

// ResolveURL joins a relative appliance path onto base. Absolute references
// (some continuation links are) are accepted only when they share base's
// scheme and host.
func ResolveURL(base string, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil || b.Scheme == "" || b.Host == "" {
		return "", fmt.Errorf("invalid base url %q", base)
	}
	if u, err := url.Parse(ref); err == nil && u.IsAbs() && u.Host != "" {
		if !strings.EqualFold(u.Scheme, b.Scheme) || !strings.EqualFold(u.Host, b.Host) {
			return "", fmt.Errorf("%w: %s", ErrForeignURL, ref)
		}
		return ref, nil
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(ref, "/"), nil
}
