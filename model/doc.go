// Package model provides the per-model price table, cost computation,
// and usage telemetry aggregation.
//
// Telemetry is best-effort by design: unknown provider/model combinations
// produce zero-cost records instead of errors, so cost accounting can
// never abort a successful generation.
package model
