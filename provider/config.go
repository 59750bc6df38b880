package provider

import (
	"fmt"
	"time"
)

// Config holds construction-time configuration for a provider client.
// Per-call settings (model, max tokens, temperature, credential) travel
// on the Request instead, so one client serves every role that maps to
// its provider.
type Config struct {
	// BaseURL overrides the provider's default endpoint.
	// Useful for proxies and self-hosted backends.
	BaseURL string `json:"base_url" yaml:"base_url" toml:"base_url"`

	// Timeout is the maximum duration for a single generation request.
	// 0 uses the provider default.
	Timeout time.Duration `json:"timeout" yaml:"timeout" toml:"timeout"`

	// Env provides additional environment variables for CLI-backed
	// providers. Ignored by HTTP providers.
	Env map[string]string `json:"env" yaml:"env" toml:"env"`

	// Options holds provider-specific configuration.
	// See each provider's documentation for available options.
	Options map[string]any `json:"options" yaml:"options" toml:"options"`
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be >= 0, got %v", c.Timeout)
	}
	return nil
}

// GetStringOption retrieves a string option, returning defaultVal if not set.
func (c Config) GetStringOption(key, defaultVal string) string {
	if c.Options == nil {
		return defaultVal
	}
	if v, ok := c.Options[key].(string); ok {
		return v
	}
	return defaultVal
}

// GetBoolOption retrieves a bool option, returning defaultVal if not set.
func (c Config) GetBoolOption(key string, defaultVal bool) bool {
	if c.Options == nil {
		return defaultVal
	}
	if v, ok := c.Options[key].(bool); ok {
		return v
	}
	return defaultVal
}

// GetIntOption retrieves an int option, returning defaultVal if not set.
func (c Config) GetIntOption(key string, defaultVal int) int {
	if c.Options == nil {
		return defaultVal
	}
	switch v := c.Options[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return defaultVal
}
