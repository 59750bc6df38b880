package config

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// Session carries per-invocation credential overrides. It is a
// read-only input: the pipeline propagates it unmodified so that
// caller-supplied keys are honored on every hop.
type Session struct {
	// Env maps environment-variable names to override values.
	// Entries here win over the process environment and .env files.
	Env map[string]string
}

// envKeyNames maps provider ids to the environment variable carrying
// their API key. Credential-free providers have no entry.
var envKeyNames = map[string]string{
	"anthropic":  "ANTHROPIC_API_KEY",
	"perplexity": "PERPLEXITY_API_KEY",
}

// keyPlaceholders are values that count as "not set". Config templates
// ship with these so a copied template doesn't look authenticated.
var keyPlaceholders = []string{
	"YOUR_API_KEY_HERE",
	"KEY_HERE",
	"ENTER_YOUR_KEY",
}

// EnvKeyName returns the environment variable name holding the API key
// for a provider, or "" when the provider has no key variable.
func EnvKeyName(providerID string) string {
	return envKeyNames[providerID]
}

// RegisterEnvKeyName binds a provider id to its key variable.
// Intended for out-of-tree providers.
func RegisterEnvKeyName(providerID, envName string) {
	envKeyNames[providerID] = envName
}

// APIKey resolves the key for a provider. Precedence: session override,
// process environment, then a .env file in the project root. The second
// return is false when no usable key was found.
func APIKey(providerID string, session *Session, root string) (string, bool) {
	name := EnvKeyName(providerID)
	if name == "" {
		return "", false
	}

	if session != nil {
		if v, ok := session.Env[name]; ok && usableKey(v) {
			return v, true
		}
	}
	if v := os.Getenv(name); usableKey(v) {
		return v, true
	}
	if root != "" {
		if v, ok := dotenvValue(filepath.Join(root, ".env"), name); ok && usableKey(v) {
			return v, true
		}
	}
	return "", false
}

// IsAPIKeySet reports whether a usable API key is available for the
// provider. This is the boolean signal the availability gate consumes;
// the gate never calls it for credential-free providers.
func IsAPIKeySet(providerID string, session *Session, root string) bool {
	_, ok := APIKey(providerID, session, root)
	return ok
}

// usableKey rejects empty and placeholder values.
func usableKey(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return false
	}
	for _, p := range keyPlaceholders {
		if strings.EqualFold(v, p) {
			return false
		}
	}
	return !strings.HasPrefix(v, "YOUR_")
}

// dotenvValue reads a single KEY=value entry from a .env file.
// Lines starting with # are comments; values may be quoted.
func dotenvValue(path, name string) (string, bool) {
	f, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found || strings.TrimSpace(key) != name {
			continue
		}
		value = strings.TrimSpace(value)
		value = strings.Trim(value, `"'`)
		return value, true
	}
	return "", false
}
