// Package truncate shortens text to fit token limits, used when
// embedding document excerpts in prompts.
package truncate

import (
	"strings"

	"github.com/taskmith/taskmith/tokens"
)

// Strategy defines how text is truncated.
type Strategy int

const (
	// FromEnd removes content from the end (default).
	FromEnd Strategy = iota

	// FromMiddle removes content from the middle, keeping start and end.
	FromMiddle
)

// DefaultEndSuffix is the default suffix for end truncation.
const DefaultEndSuffix = "..."

// DefaultMiddleSuffix marks the removed middle span.
const DefaultMiddleSuffix = "\n...[content truncated]...\n"

// Truncator truncates text to fit within token limits.
type Truncator struct {
	counter  tokens.Counter
	strategy Strategy
	suffix   string
}

// New creates a truncator with the given strategy.
func New(strategy Strategy) *Truncator {
	suffix := DefaultEndSuffix
	if strategy == FromMiddle {
		suffix = DefaultMiddleSuffix
	}
	return &Truncator{
		counter:  tokens.NewEstimatingCounter(),
		strategy: strategy,
		suffix:   suffix,
	}
}

// WithCounter sets a custom token counter.
func (t *Truncator) WithCounter(counter tokens.Counter) *Truncator {
	t.counter = counter
	return t
}

// Truncate reduces the text to fit within the token limit.
// Returns the truncated text and whether truncation occurred.
func (t *Truncator) Truncate(text string, maxTokens int) (string, bool) {
	if t.counter.FitsInLimit(text, maxTokens) {
		return text, false
	}

	if t.strategy == FromMiddle {
		return t.truncateMiddle(text, maxTokens), true
	}
	return t.truncateEnd(text, maxTokens), true
}

// truncateEnd keeps the beginning of the text.
func (t *Truncator) truncateEnd(text string, maxTokens int) string {
	budget := maxTokens - t.counter.Count(t.suffix)
	if budget <= 0 {
		return t.suffix
	}

	runes := []rune(text)
	keep := approxRunes(budget)
	if keep >= len(runes) {
		keep = len(runes)
	}
	for keep > 0 && !t.counter.FitsInLimit(string(runes[:keep]), budget) {
		keep -= keep / 10
	}
	return strings.TrimRight(string(runes[:keep]), " \t\n") + t.suffix
}

// truncateMiddle keeps the start and the end of the text.
func (t *Truncator) truncateMiddle(text string, maxTokens int) string {
	budget := maxTokens - t.counter.Count(t.suffix)
	if budget <= 0 {
		return t.suffix
	}

	runes := []rune(text)
	half := approxRunes(budget / 2)
	if half*2 >= len(runes) {
		return text
	}
	head := strings.TrimRight(string(runes[:half]), " \t\n")
	tail := strings.TrimLeft(string(runes[len(runes)-half:]), " \t\n")
	return head + t.suffix + tail
}

// approxRunes converts a token budget to an approximate rune count.
func approxRunes(budget int) int {
	return int(float64(budget) * tokens.DefaultCharsPerToken)
}

// Text is a convenience function: end-truncate to maxTokens.
func Text(text string, maxTokens int) string {
	out, _ := New(FromEnd).Truncate(text, maxTokens)
	return out
}
