package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/taskmith/taskmith/provider"
)

// ExtractObject locates a JSON object (or array) in raw model output.
//
// It tries, in order:
//  1. the whole trimmed text as JSON
//  2. the first fenced ```json code block
//  3. a bracket-balanced scan from the first opening brace/bracket
//
// If an opening brace is found but never balanced before the text ends,
// the output is reported as truncated (a distinct, actionable error)
// rather than as a generic parse failure.
func ExtractObject(text string) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty response", provider.ErrMalformedOutput)
	}

	// Phase 1: the whole response is JSON.
	if startsLikeJSON(trimmed) && json.Valid([]byte(trimmed)) {
		return json.RawMessage(trimmed), nil
	}

	// Phase 2: fenced code block.
	if block, ok := fencedJSONBlock(trimmed); ok {
		if json.Valid([]byte(block)) {
			return json.RawMessage(block), nil
		}
	}

	// Phase 3: balanced extraction from the first opening bracket.
	candidate, state := balancedSlice(trimmed)
	switch state {
	case sliceBalanced:
		if json.Valid([]byte(candidate)) {
			return json.RawMessage(candidate), nil
		}
		return nil, fmt.Errorf("%w: balanced candidate is not valid JSON", provider.ErrMalformedOutput)
	case sliceUnterminated:
		return nil, fmt.Errorf("%w: %d unclosed bracket(s) at end of output", provider.ErrTruncatedOutput, unclosedDepth(trimmed))
	default:
		return nil, fmt.Errorf("%w: no JSON object found", provider.ErrMalformedOutput)
	}
}

func startsLikeJSON(s string) bool {
	return strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[")
}

// fencedJSONBlock returns the content of the first ```json fenced block.
func fencedJSONBlock(s string) (string, bool) {
	idx := strings.Index(s, "```json")
	if idx == -1 {
		idx = strings.Index(s, "```")
		if idx == -1 {
			return "", false
		}
		// Skip the language tag line, if any.
	}
	start := strings.IndexByte(s[idx:], '\n')
	if start == -1 {
		return "", false
	}
	start += idx + 1
	end := strings.Index(s[start:], "```")
	if end == -1 {
		return "", false
	}
	return strings.TrimSpace(s[start : start+end]), true
}

type sliceState int

const (
	sliceNone sliceState = iota
	sliceBalanced
	sliceUnterminated
)

// balancedSlice scans for the first '{' or '[' and returns the
// substring up to its matching close bracket, respecting strings and
// escapes. A scan that runs off the end of the input with open
// brackets reports sliceUnterminated.
func balancedSlice(s string) (string, sliceState) {
	start := strings.IndexAny(s, "{[")
	if start == -1 {
		return "", sliceNone
	}

	depth := 0
	inString := false
	escape := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if escape {
			escape = false
			continue
		}
		switch {
		case c == '\\' && inString:
			escape = true
		case c == '"':
			inString = !inString
		case inString:
			// string content, ignore brackets
		case c == '{' || c == '[':
			depth++
		case c == '}' || c == ']':
			depth--
			if depth == 0 {
				return s[start : i+1], sliceBalanced
			}
		}
	}
	return "", sliceUnterminated
}

// unclosedDepth counts brackets left open at end of input, for the
// truncation error message.
func unclosedDepth(s string) int {
	start := strings.IndexAny(s, "{[")
	if start == -1 {
		return 0
	}
	depth := 0
	inString := false
	escape := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if escape {
			escape = false
			continue
		}
		switch {
		case c == '\\' && inString:
			escape = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{' || c == '[':
			depth++
		case c == '}' || c == ']':
			depth--
		}
	}
	if depth < 0 {
		return 0
	}
	return depth
}
