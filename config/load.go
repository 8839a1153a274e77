package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFile reads a YAML file over the defaults. Fields absent from the file keep their default.
func LoadFile(filePath string) (NefProxyConfig, error) {
	cfg := DefaultNefProxyConfig()

	data, err := os.ReadFile(filePath)
	if err != nil {
		return cfg, fmt.Errorf("read config %q: %w", filePath, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %q: %w", filePath, err)
	}
	cfg.WithScheme(cfg.Scheme)
	return cfg, nil
}
