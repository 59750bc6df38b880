// Package schema generates JSON Schemas for structured generation and
// parses structured output leniently but verifiably.
//
// The parsing boundary is strict-parse-first, extraction-as-fallback:
// output is accepted as-is when it is valid JSON, otherwise a
// bracket-balanced extraction recovers an embedded object, and the
// result is always validated against the schema before being accepted.
// There is no regex-based repair of the payload itself: an output that
// still fails after balanced extraction is a terminal malformed-output
// error, never a guess.
package schema

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"

	"github.com/taskmith/taskmith/provider"
)

// Schema describes the expected shape of a structured generation result.
type Schema struct {
	// Name labels the object in provider prompts (e.g. "tasks").
	Name string

	// JSON is the JSON Schema document sent to providers.
	JSON json.RawMessage

	// required lists top-level properties that must be present.
	required []string
}

// For derives a Schema from a Go type using reflection.
// The schema is inlined (no $defs references) so providers that embed
// it verbatim in prompts see the full structure.
func For[T any](name string) (*Schema, error) {
	reflector := jsonschema.Reflector{
		Anonymous:      true,
		DoNotReference: true,
		ExpandedStruct: true,
	}

	var zero T
	js := reflector.Reflect(&zero)

	raw, err := json.Marshal(js)
	if err != nil {
		return nil, fmt.Errorf("marshal schema for %q: %w", name, err)
	}

	return &Schema{
		Name:     name,
		JSON:     raw,
		required: js.Required,
	}, nil
}

// FromJSON builds a Schema from an existing JSON Schema document,
// reading the top-level "required" list from it. Providers use this to
// validate output against the schema that travelled with the request.
func FromJSON(name string, raw json.RawMessage) (*Schema, error) {
	var doc struct {
		Required []string `json:"required"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse schema %q: %w", name, err)
	}
	return &Schema{Name: name, JSON: raw, required: doc.Required}, nil
}

// Validate checks a raw JSON object against the schema's structural
// requirements: it must be a JSON object and carry every required
// top-level property. Violations wrap provider.ErrSchemaValidation so
// the retry controller treats them as retryable content errors.
func (s *Schema) Validate(raw json.RawMessage) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return fmt.Errorf("%w: result is not a JSON object: %v", provider.ErrSchemaValidation, err)
	}

	for _, field := range s.required {
		if _, ok := obj[field]; !ok {
			return fmt.Errorf("%w: missing required property %q", provider.ErrSchemaValidation, field)
		}
	}
	return nil
}

// Decode validates raw against the schema and unmarshals it into target.
func (s *Schema) Decode(raw json.RawMessage, target any) error {
	if err := s.Validate(raw); err != nil {
		return err
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("%w: %v", provider.ErrSchemaValidation, err)
	}
	return nil
}
