package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// DumpYAML renders the effective configuration with secrets masked.
func DumpYAML(cfg *Config) ([]byte, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	out := *cfg
	out.Feed.APIKey = mask(out.Feed.APIKey)
	return yaml.Marshal(&out)
}

func mask(secret string) string {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return ""
	}
	if len(secret) <= 4 {
		return "****"
	}
	return secret[:2] + strings.Repeat("*", len(secret)-4) + secret[len(secret)-2:]
}
