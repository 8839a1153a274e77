package dto

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtraHeaders type is a comma seperated key=value string, usable as a cobra/pflag flag value
type ExtraHeaders map[string]string

func (e ExtraHeaders) String() string {
	data, _ := json.MarshalIndent(e, "", "  ")
	return string(data)
}

// Set Value should be a comma seperated key=value string
func (e ExtraHeaders) Set(s string) error {
	for _, header := range strings.Split(s, ",") {
		key, value, found := strings.Cut(header, "=")
		key = strings.TrimSpace(key)
		if !found || key == "" {
			return fmt.Errorf("invalid header %q, expected key=value", header)
		}
		e[key] = strings.TrimSpace(value)
	}
	return nil
}

func (e ExtraHeaders) Type() string {
	return "ExtraHeaders"
}
