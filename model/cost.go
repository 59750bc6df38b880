package model

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/taskmith/taskmith/provider"
)

// UsageRecord captures the telemetry of one successful generation call.
// Records are append-only; they are never mutated after creation.
type UsageRecord struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Role       string    `json:"role"`
	ProviderID string    `json:"provider_id"`
	ModelID    string    `json:"model_id"`

	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`

	// Cost is the computed currency cost; zero when the provider/model
	// pair is missing from the price table.
	Cost     float64 `json:"cost"`
	Currency string  `json:"currency"`
}

// NewUsageRecord computes a usage record from a price table lookup.
// Unknown provider/model combinations yield a zero-cost record rather
// than an error.
func NewUsageRecord(table PriceTable, role, providerID, modelID string, usage provider.TokenUsage) UsageRecord {
	rec := UsageRecord{
		ID:           uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		Role:         role,
		ProviderID:   providerID,
		ModelID:      modelID,
		InputTokens:  usage.InputTokens,
		OutputTokens: usage.OutputTokens,
		TotalTokens:  usage.TotalTokens,
		Currency:     "USD",
	}

	if pricing, ok := table.Lookup(providerID, modelID); ok {
		rec.Cost = pricing.Cost(usage.InputTokens, usage.OutputTokens)
		if pricing.Currency != "" {
			rec.Currency = pricing.Currency
		}
	}
	return rec
}

// Summary aggregates token counts and cost across usage records.
type Summary struct {
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	TotalTokens  int     `json:"total_tokens"`
	Cost         float64 `json:"cost"`
	Requests     int     `json:"requests"`
}

// CostTracker accumulates usage records across a run.
// It is safe for concurrent use, although the generation pipeline
// records strictly sequentially.
type CostTracker struct {
	mu      sync.RWMutex
	records []UsageRecord
}

// NewCostTracker creates an empty cost tracker.
func NewCostTracker() *CostTracker {
	return &CostTracker{}
}

// Record appends a usage record.
func (t *CostTracker) Record(rec UsageRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records = append(t.records, rec)
}

// Records returns a copy of all recorded usage.
func (t *CostTracker) Records() []UsageRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]UsageRecord, len(t.records))
	copy(out, t.records)
	return out
}

// Summary returns aggregated usage across all records.
func (t *CostTracker) Summary() Summary {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var s Summary
	for _, rec := range t.records {
		s.InputTokens += rec.InputTokens
		s.OutputTokens += rec.OutputTokens
		s.TotalTokens += rec.TotalTokens
		s.Cost += rec.Cost
		s.Requests++
	}
	return s
}

// ByModel returns aggregated usage keyed by "provider/model".
func (t *CostTracker) ByModel() map[string]Summary {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string]Summary)
	for _, rec := range t.records {
		key := rec.ProviderID + "/" + rec.ModelID
		s := out[key]
		s.InputTokens += rec.InputTokens
		s.OutputTokens += rec.OutputTokens
		s.TotalTokens += rec.TotalTokens
		s.Cost += rec.Cost
		s.Requests++
		out[key] = s
	}
	return out
}

// Reset clears all tracked usage.
func (t *CostTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records = nil
}
