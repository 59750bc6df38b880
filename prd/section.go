package prd

import "strings"

// Section is one titled slice of a requirements document.
// Sections are produced once per document parse and never mutated.
type Section struct {
	// Title is the header or marker title. The synthetic overview is
	// titled "Overview".
	Title string

	// Level is the markdown header level (1 or 2). Marker-delimited
	// sections and the overview use level 0.
	Level int

	// Content is the raw section text, including its header line for
	// header-delimited sections.
	Content string

	// LineCount counts the lines in Content.
	LineCount int

	// IsOverview marks the synthetic section holding content that
	// precedes the first recognized boundary.
	IsOverview bool
}

// OverviewTitle is the title given to the synthetic overview section.
const OverviewTitle = "Overview"

func newSection(title string, level int, lines []string, overview bool) Section {
	content := strings.Join(lines, "\n")
	return Section{
		Title:      title,
		Level:      level,
		Content:    content,
		LineCount:  len(lines),
		IsOverview: overview,
	}
}
