// Package provider defines the unified interface for LLM generation backends.
//
// This package enables seamless switching between remote APIs (Anthropic,
// Perplexity) and local backends (Ollama, an authenticated claude CLI)
// while maintaining a consistent call contract. Every provider exposes the
// same three operations: text generation, streaming text generation, and
// schema-validated object generation.
//
// # Usage
//
// Create a client using the registry:
//
//	client, err := provider.New("anthropic", provider.Config{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	key := os.Getenv("ANTHROPIC_API_KEY")
//	resp, err := client.GenerateText(ctx, provider.Request{
//	    APIKey:    &key,
//	    Model:     "claude-sonnet-4-20250514",
//	    MaxTokens: 4096,
//	    Messages:  []provider.Message{provider.NewTextMessage(provider.RoleUser, "hi")},
//	})
//
// # Available Providers
//
//   - "anthropic": Anthropic Messages API (requires API key)
//   - "perplexity": Perplexity chat completions (requires API key)
//   - "ollama": local Ollama server (no credential)
//   - "claude-cli": already-authenticated local claude CLI (no credential)
package provider

import "context"

// Client is the unified interface for LLM generation backends.
// Implementations must be safe for concurrent use.
type Client interface {
	// GenerateText sends a request and returns the full text response.
	// The context controls cancellation and timeouts.
	GenerateText(ctx context.Context, req Request) (*Response, error)

	// StreamText sends a request and returns a channel of response chunks.
	// The channel is closed when streaming completes (check chunk.Done).
	// Errors during streaming are returned via chunk.Error.
	StreamText(ctx context.Context, req Request) (<-chan StreamChunk, error)

	// GenerateObject sends a request and returns a JSON object validated
	// against req.Schema. Malformed or schema-violating output is reported
	// with ErrMalformedOutput / ErrSchemaValidation so callers can retry.
	GenerateObject(ctx context.Context, req ObjectRequest) (*ObjectResponse, error)

	// Provider returns the provider name (e.g., "anthropic", "ollama").
	Provider() string

	// Close releases any resources held by the client.
	Close() error
}

// Descriptor describes a registered provider without instantiating it.
type Descriptor struct {
	// Name is the provider identifier used in configuration.
	Name string

	// RequiresAPIKey reports whether calls must carry a credential.
	// Credential-free providers (local runners, authenticated CLIs)
	// bypass availability key checks entirely.
	RequiresAPIKey bool

	// Factory creates a new Client from the given configuration.
	Factory Factory
}
