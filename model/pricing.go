package model

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Pricing holds per-million-token pricing for a model.
type Pricing struct {
	// InputPerMillion is the cost of one million input tokens.
	InputPerMillion float64 `toml:"input_per_million"`

	// OutputPerMillion is the cost of one million output tokens.
	OutputPerMillion float64 `toml:"output_per_million"`

	// Currency is the ISO currency code. Defaults to "USD".
	Currency string `toml:"currency"`
}

// PriceTable maps provider id -> model id -> pricing.
type PriceTable map[string]map[string]Pricing

// DefaultPrices contains built-in pricing for commonly configured models
// (per one million tokens, USD, as of 2025). Callers can override or
// extend it with LoadPriceTable.
var DefaultPrices = PriceTable{
	"anthropic": {
		"claude-opus-4-20250514":     {InputPerMillion: 15.0, OutputPerMillion: 75.0, Currency: "USD"},
		"claude-sonnet-4-20250514":   {InputPerMillion: 3.0, OutputPerMillion: 15.0, Currency: "USD"},
		"claude-3-7-sonnet-20250219": {InputPerMillion: 3.0, OutputPerMillion: 15.0, Currency: "USD"},
		"claude-3-5-haiku-20241022":  {InputPerMillion: 0.8, OutputPerMillion: 4.0, Currency: "USD"},
	},
	"perplexity": {
		"sonar":           {InputPerMillion: 1.0, OutputPerMillion: 1.0, Currency: "USD"},
		"sonar-pro":       {InputPerMillion: 3.0, OutputPerMillion: 15.0, Currency: "USD"},
		"sonar-reasoning": {InputPerMillion: 1.0, OutputPerMillion: 5.0, Currency: "USD"},
	},
	// Local backends cost nothing; explicit zero entries keep their
	// telemetry records out of the "unknown model" path.
	"ollama": {},
	"claude-cli": {
		"sonnet": {Currency: "USD"},
		"opus":   {Currency: "USD"},
	},
}

// Lookup returns the pricing for a provider/model pair.
// The second return is false when the pair is unknown.
func (t PriceTable) Lookup(providerID, modelID string) (Pricing, bool) {
	models, ok := t[providerID]
	if !ok {
		return Pricing{}, false
	}
	p, ok := models[modelID]
	return p, ok
}

// Merge overlays other onto the table, replacing overlapping entries.
func (t PriceTable) Merge(other PriceTable) {
	for providerID, models := range other {
		if t[providerID] == nil {
			t[providerID] = make(map[string]Pricing, len(models))
		}
		for modelID, p := range models {
			t[providerID][modelID] = p
		}
	}
}

// priceFile is the on-disk TOML shape:
//
//	[anthropic."claude-sonnet-4-20250514"]
//	input_per_million = 3.0
//	output_per_million = 15.0
//	currency = "USD"
type priceFile map[string]map[string]Pricing

// LoadPriceTable reads a TOML price table and merges it over the
// built-in defaults. Entries in the file win.
func LoadPriceTable(path string) (PriceTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read price table: %w", err)
	}

	var file priceFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse price table %s: %w", path, err)
	}

	table := make(PriceTable, len(DefaultPrices)+len(file))
	table.Merge(DefaultPrices)
	table.Merge(PriceTable(file))
	return table, nil
}

// Cost computes the currency cost of a token count against a pricing
// entry. Prices are per one million tokens.
func (p Pricing) Cost(inputTokens, outputTokens int) float64 {
	return float64(inputTokens)/1_000_000*p.InputPerMillion +
		float64(outputTokens)/1_000_000*p.OutputPerMillion
}
