// Package taskmith turns a requirements document into a structured,
// dependency-ordered task list by delegating generation to interchangeable
// LLM providers.
//
// The module is organized as small, composable packages:
//
//   - provider: unified client interface, registry, and error taxonomy
//   - anthropic, perplexity, ollama, claudecli: provider implementations
//   - config: role-keyed provider/model configuration and API key checks
//   - model: per-model pricing and cost aggregation
//   - cascade: role fallback sequencing with retry and telemetry
//   - schema: JSON schema generation and lenient structured-output parsing
//   - prd: document segmentation and batch planning
//   - tasks: the task model and its JSON store
//   - taskgen: the batch-by-batch task generation driver
//
// See cmd/taskmith for the CLI that wires the pipeline together.
package taskmith
