package anthropic

import (
	"github.com/taskmith/taskmith/provider"
)

func init() {
	provider.Register(provider.Descriptor{
		Name:           Name,
		RequiresAPIKey: true,
		Factory:        newFromProviderConfig,
	})
}

// newFromProviderConfig creates a Client from a provider.Config.
func newFromProviderConfig(cfg provider.Config) (provider.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := make([]ClientOption, 0, 2)
	if cfg.BaseURL != "" {
		opts = append(opts, WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, WithTimeout(cfg.Timeout))
	}
	return NewClient(opts...), nil
}
