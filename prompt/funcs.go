package prompt

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/taskmith/taskmith/truncate"
)

// defaultFuncs returns the helpers available in every template.
func defaultFuncs() template.FuncMap {
	return template.FuncMap{
		"json":           toJSON,
		"trim":           strings.TrimSpace,
		"upper":          strings.ToUpper,
		"lower":          strings.ToLower,
		"join":           strings.Join,
		"indent":         indent,
		"default":        defaultValue,
		"truncateTokens": truncate.Text,
	}
}

// toJSON renders a value as pretty-printed JSON, falling back to the
// default string representation when marshaling fails.
func toJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// defaultValue substitutes a fallback for nil or empty-string values.
func defaultValue(val, fallback any) any {
	if val == nil {
		return fallback
	}
	if s, ok := val.(string); ok && s == "" {
		return fallback
	}
	return val
}

// indent prefixes each line with the given number of spaces.
func indent(s string, spaces int) string {
	prefix := strings.Repeat(" ", spaces)
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = prefix + lines[i]
	}
	return strings.Join(lines, "\n")
}
