package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Configuration errors.
var (
	// ErrNoProviderForRole indicates the role has no provider configured.
	// The fallback sequencer skips such roles and advances.
	ErrNoProviderForRole = errors.New("no provider configured for role")
)

// ConfigDirName is the per-project configuration directory.
const ConfigDirName = ".taskmith"

// Candidate config file names, checked in order.
var configFileNames = []string{"config.toml", "config.yaml", "config.yml"}

// Settings is the parsed configuration file.
type Settings struct {
	// Roles maps each role to its provider/model binding.
	Roles map[Role]RoleConfig `toml:"roles" yaml:"roles"`

	// Defaults configures task generation behavior.
	Defaults Defaults `toml:"defaults" yaml:"defaults"`
}

// Defaults holds task-generation defaults.
type Defaults struct {
	// NumTasks is the task count requested when the caller doesn't
	// specify one.
	NumTasks int `toml:"num_tasks" yaml:"num_tasks"`

	// Priority is the priority assigned to tasks the model leaves
	// unprioritized.
	Priority string `toml:"priority" yaml:"priority"`
}

// DefaultSettings returns the built-in configuration used when no
// config file exists.
func DefaultSettings() *Settings {
	return &Settings{
		Roles: map[Role]RoleConfig{
			RoleMain: {
				Provider:    "anthropic",
				ModelID:     "claude-sonnet-4-20250514",
				MaxTokens:   8192,
				Temperature: 0.2,
			},
			RoleFallback: {
				Provider:    "anthropic",
				ModelID:     "claude-3-7-sonnet-20250219",
				MaxTokens:   8192,
				Temperature: 0.2,
			},
			RoleResearch: {
				Provider:    "perplexity",
				ModelID:     "sonar-pro",
				MaxTokens:   8700,
				Temperature: 0.1,
			},
		},
		Defaults: Defaults{
			NumTasks: 10,
			Priority: "medium",
		},
	}
}

// FilePath returns the path of the config file under root, or "" when
// none exists. An empty root means "no project root" and always
// returns "".
func FilePath(root string) string {
	if root == "" {
		return ""
	}
	for _, name := range configFileNames {
		path := filepath.Join(root, ConfigDirName, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// Load reads the configuration for a project root. A missing file (or
// an empty root) yields the built-in defaults; a present-but-broken
// file is an error. Load never caches: callers that want fresh role
// bindings simply call it again.
func Load(root string) (*Settings, error) {
	path := FilePath(root)
	if path == "" {
		return DefaultSettings(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	s := DefaultSettings()
	switch filepath.Ext(path) {
	case ".toml":
		if err := toml.Unmarshal(data, s); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, s); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %s", path)
	}

	s.applyDefaults()
	return s, nil
}

// applyDefaults fills holes left by a partial config file.
func (s *Settings) applyDefaults() {
	def := DefaultSettings()
	if s.Roles == nil {
		s.Roles = def.Roles
	}
	if s.Defaults.NumTasks <= 0 {
		s.Defaults.NumTasks = def.Defaults.NumTasks
	}
	if s.Defaults.Priority == "" {
		s.Defaults.Priority = def.Defaults.Priority
	}
}

// Resolve looks up the provider, model, and parameters for a role.
// Returns ErrNoProviderForRole when the role is absent or has no
// provider set.
func (s *Settings) Resolve(role Role) (Resolved, error) {
	rc, ok := s.Roles[role]
	if !ok || rc.Provider == "" {
		return Resolved{}, fmt.Errorf("%w: %s", ErrNoProviderForRole, role)
	}
	return Resolved{
		Role:       role,
		ProviderID: rc.Provider,
		ModelID:    rc.ModelID,
		Params: Params{
			MaxTokens:   rc.MaxTokens,
			Temperature: rc.Temperature,
		},
	}, nil
}

// ResolveRole reads the configuration under root and resolves a role.
// This is the lookup contract used by the cascade: one fresh read per
// call, no caching.
func ResolveRole(role Role, root string) (Resolved, error) {
	s, err := Load(root)
	if err != nil {
		return Resolved{}, err
	}
	return s.Resolve(role)
}

// ProviderForRole returns the configured provider id for a role.
func ProviderForRole(role Role, root string) (string, error) {
	r, err := ResolveRole(role, root)
	if err != nil {
		return "", err
	}
	return r.ProviderID, nil
}

// ModelForRole returns the configured model id for a role.
func ModelForRole(role Role, root string) (string, error) {
	r, err := ResolveRole(role, root)
	if err != nil {
		return "", err
	}
	return r.ModelID, nil
}

// ParamsForRole returns the generation parameters for a role.
func ParamsForRole(role Role, root string) (Params, error) {
	r, err := ResolveRole(role, root)
	if err != nil {
		return Params{}, err
	}
	return r.Params, nil
}
