package claudecli

import (
	"github.com/taskmith/taskmith/provider"
)

func init() {
	provider.Register(provider.Descriptor{
		Name:           Name,
		RequiresAPIKey: false,
		Factory:        newFromProviderConfig,
	})
}

// newFromProviderConfig creates a Client from a provider.Config. The
// binary path and working directory come through Options.
func newFromProviderConfig(cfg provider.Config) (provider.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := make([]ClientOption, 0, 3)
	if bin := cfg.GetStringOption("binary", ""); bin != "" {
		opts = append(opts, WithBinary(bin))
	}
	if dir := cfg.GetStringOption("workdir", ""); dir != "" {
		opts = append(opts, WithWorkdir(dir))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, WithTimeout(cfg.Timeout))
	}
	return NewClient(opts...), nil
}
