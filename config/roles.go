package config

import "fmt"

// Role is a logical generation purpose mapped to a concrete
// provider+model by configuration.
type Role string

// The closed set of roles.
const (
	RoleMain     Role = "main"
	RoleFallback Role = "fallback"
	RoleResearch Role = "research"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleMain, RoleFallback, RoleResearch:
		return true
	}
	return false
}

// ParseRole converts a string to a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// Params holds the generation parameters configured for a role.
type Params struct {
	// MaxTokens limits output length for calls made under this role.
	MaxTokens int `toml:"max_tokens" yaml:"max_tokens" json:"maxTokens"`

	// Temperature controls randomness for calls made under this role.
	Temperature float64 `toml:"temperature" yaml:"temperature" json:"temperature"`
}

// RoleConfig binds a role to a provider, a model, and parameters.
type RoleConfig struct {
	// Provider is the registered provider id (e.g. "anthropic").
	Provider string `toml:"provider" yaml:"provider" json:"provider"`

	// ModelID is the provider-specific model name.
	ModelID string `toml:"model" yaml:"model" json:"modelId"`

	// MaxTokens and Temperature are this role's generation parameters.
	MaxTokens   int     `toml:"max_tokens" yaml:"max_tokens" json:"maxTokens"`
	Temperature float64 `toml:"temperature" yaml:"temperature" json:"temperature"`
}

// Resolved is the outcome of resolving a role against configuration.
type Resolved struct {
	Role       Role
	ProviderID string
	ModelID    string
	Params     Params
}
