// Package providers registers all built-in AI providers.
// Import this package to make them available via provider.New():
//
//	import _ "github.com/taskmith/taskmith/providers"
package providers

import (
	_ "github.com/taskmith/taskmith/anthropic"
	_ "github.com/taskmith/taskmith/claudecli"
	_ "github.com/taskmith/taskmith/ollama"
	_ "github.com/taskmith/taskmith/perplexity"
)
