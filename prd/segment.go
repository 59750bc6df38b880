package prd

import (
	"regexp"
	"strings"
)

// Explicit section markers. When present they take precedence over
// markdown headers for the span they enclose, and the enclosed span is
// never subdivided further.
var (
	markerStartRe = regexp.MustCompile(`^\s*<section\s+title="([^"]*)"\s*>\s*$`)
	markerEndRe   = regexp.MustCompile(`^\s*</section>\s*$`)
	headerRe      = regexp.MustCompile(`^(#{1,6})\s+(.+?)\s*$`)
)

// HeaderPredicate decides whether a candidate header starts a new
// section. It receives the header title (without the # prefix).
// Returning false folds the header into the open section.
type HeaderPredicate func(title string) bool

// setupVerbs are leading words that mark a header as an imperative
// setup step ("Run the migration", "Install dependencies") rather than
// document structure.
var setupVerbs = []string{
	"run", "install", "create", "add", "update", "configure",
	"set", "setup", "copy", "execute", "npm", "yarn", "pnpm", "cd",
}

// fileExtensions mark a header as an inline code filename
// ("config.json", "src/index.ts") rather than document structure.
var fileExtensions = []string{
	".js", ".jsx", ".ts", ".tsx", ".json", ".md", ".py", ".go",
	".rs", ".sh", ".yml", ".yaml", ".toml", ".env", ".css", ".html",
	".sql", ".txt",
}

// DefaultHeaderPredicate implements the standard denylist: headers that
// look like filenames, backticked code, or imperative setup steps are
// not section boundaries.
func DefaultHeaderPredicate(title string) bool {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return false
	}

	lower := strings.ToLower(trimmed)
	for _, ext := range fileExtensions {
		if strings.Contains(lower, ext) {
			return false
		}
	}
	if strings.HasPrefix(trimmed, "`") {
		return false
	}

	firstWord := lower
	if idx := strings.IndexAny(lower, " \t"); idx != -1 {
		firstWord = lower[:idx]
	}
	for _, verb := range setupVerbs {
		if firstWord == verb {
			return false
		}
	}
	return true
}

// Segmenter splits document text into sections.
type Segmenter struct {
	headerOK HeaderPredicate
}

// SegmenterOption configures a Segmenter.
type SegmenterOption func(*Segmenter)

// WithHeaderExclusion overrides the predicate that decides whether a
// header starts a new section. Documents with different conventions
// can replace the denylist without touching the segmentation algorithm.
func WithHeaderExclusion(p HeaderPredicate) SegmenterOption {
	return func(s *Segmenter) {
		if p != nil {
			s.headerOK = p
		}
	}
}

// NewSegmenter creates a segmenter with the default header predicate.
func NewSegmenter(opts ...SegmenterOption) *Segmenter {
	s := &Segmenter{headerOK: DefaultHeaderPredicate}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Segment scans the document line by line and returns its sections.
// The synthetic overview (content preceding the first recognized
// boundary) is always first in the returned list. A document with no
// recognized boundaries yields a single overview section.
func (s *Segmenter) Segment(text string) []Section {
	lines := strings.Split(text, "\n")

	var sections []Section
	var current []string
	currentTitle := OverviewTitle
	currentLevel := 0
	inOverview := true
	inMarker := false
	inFence := false

	flush := func() {
		trimmed := trimBlankEdges(current)
		if len(trimmed) > 0 {
			sections = append(sections, newSection(currentTitle, currentLevel, trimmed, inOverview))
		}
		current = nil
	}

	for _, line := range lines {
		// Marker boundaries win over everything, including fences:
		// markers are generated, not hand-written, and always well formed.
		if m := markerStartRe.FindStringSubmatch(line); m != nil {
			flush()
			inOverview = false
			inMarker = true
			currentTitle = strings.TrimSpace(m[1])
			currentLevel = 0
			continue
		}
		if inMarker && markerEndRe.MatchString(line) {
			flush()
			inMarker = false
			currentTitle = OverviewTitle
			currentLevel = 0
			// Content after a marker close and before the next boundary
			// belongs to an untitled continuation, not the overview.
			inOverview = len(sections) == 0
			continue
		}
		if inMarker {
			current = append(current, line)
			continue
		}

		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = !inFence
			current = append(current, line)
			continue
		}

		if !inFence {
			if m := headerRe.FindStringSubmatch(line); m != nil {
				level := len(m[1])
				title := m[2]
				// Level 3+ headers never start sections; excluded
				// headers fold into the open section.
				if level <= 2 && s.headerOK(title) {
					flush()
					inOverview = false
					currentTitle = title
					currentLevel = level
					current = append(current, line)
					continue
				}
			}
		}

		current = append(current, line)
	}
	flush()

	return overviewFirst(sections)
}

// Segment is a convenience function using the default segmenter.
func Segment(text string) []Section {
	return NewSegmenter().Segment(text)
}

// overviewFirst moves the overview section (if any) to index 0.
func overviewFirst(sections []Section) []Section {
	for i, sec := range sections {
		if sec.IsOverview && i > 0 {
			out := make([]Section, 0, len(sections))
			out = append(out, sec)
			out = append(out, sections[:i]...)
			out = append(out, sections[i+1:]...)
			return out
		}
	}
	return sections
}

// trimBlankEdges removes leading and trailing blank lines.
func trimBlankEdges(lines []string) []string {
	start := 0
	for start < len(lines) && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	end := len(lines)
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return lines[start:end]
}
