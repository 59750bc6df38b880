package prd

import (
	"fmt"
	"math"
	"strings"
)

// Grouping thresholds, in lines. Over-segmented documents (many tiny
// headings relative to the requested task count) double both, so they
// don't degenerate into a batch per heading.
const (
	defaultLargeSectionLines = 50
	defaultGroupLineBudget   = 100
)

// TaskGroup is a batch of sections processed together in one
// generation call.
type TaskGroup struct {
	// Name labels the group in logs and prompts.
	Name string

	// Sections are the member sections, in document order.
	Sections []Section

	// LineCount is the aggregate line count of the members.
	LineCount int

	// SuggestedTasks is this group's share of the requested task
	// count. Across all groups the shares sum to the requested total.
	SuggestedTasks int

	// Overview is the document overview text shared with every group
	// as prompt context. Callers truncate it when building prompts.
	Overview string
}

// Content returns the concatenated raw content of the member sections,
// in document order.
func (g TaskGroup) Content() string {
	var b strings.Builder
	for i, sec := range g.Sections {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(sec.Content)
	}
	return b.String()
}

// Planner groups sections into generation batches.
type Planner struct {
	largeSectionLines int
	groupLineBudget   int
}

// PlannerOption configures a Planner.
type PlannerOption func(*Planner)

// WithThresholds overrides the grouping thresholds (both in lines).
func WithThresholds(largeSection, groupBudget int) PlannerOption {
	return func(p *Planner) {
		if largeSection > 0 {
			p.largeSectionLines = largeSection
		}
		if groupBudget > 0 {
			p.groupLineBudget = groupBudget
		}
	}
}

// NewPlanner creates a planner with default thresholds.
func NewPlanner(opts ...PlannerOption) *Planner {
	p := &Planner{
		largeSectionLines: defaultLargeSectionLines,
		groupLineBudget:   defaultGroupLineBudget,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Plan groups the sections into batches and allocates numTasks across
// them proportionally by line count. The overview section contributes
// prompt context to every group rather than forming a group itself,
// unless it is the only content, in which case it becomes the single
// group so small header-less documents still plan to one batch.
func (p *Planner) Plan(sections []Section, numTasks int) []TaskGroup {
	if numTasks < 1 {
		numTasks = 1
	}

	var overview string
	var content []Section
	for _, sec := range sections {
		if sec.IsOverview && overview == "" {
			overview = sec.Content
			continue
		}
		content = append(content, sec)
	}

	if len(content) == 0 {
		if overview == "" {
			return nil
		}
		// Header-less document: the overview is the content.
		for _, sec := range sections {
			if sec.IsOverview {
				content = []Section{sec}
				break
			}
		}
	}

	largeThreshold := p.largeSectionLines
	lineBudget := p.groupLineBudget
	if len(content) > numTasks*3/2 {
		// Over-segmented: tighten merging so tiny headings coalesce.
		largeThreshold *= 2
		lineBudget *= 2
	}

	groups := p.group(content, largeThreshold, lineBudget)
	groups = mergeToLimit(groups, numTasks)
	allocate(groups, numTasks)

	for i := range groups {
		groups[i].Overview = overview
	}
	return groups
}

// group walks sections in order, emitting single-section groups for
// large or level-1 sections and accumulating the rest up to the line
// budget.
func (p *Planner) group(sections []Section, largeThreshold, lineBudget int) []TaskGroup {
	var groups []TaskGroup
	var run []Section
	runLines := 0

	closeRun := func() {
		if len(run) > 0 {
			groups = append(groups, makeGroup(run, runLines))
			run = nil
			runLines = 0
		}
	}

	for _, sec := range sections {
		if sec.LineCount > largeThreshold || sec.Level == 1 {
			closeRun()
			groups = append(groups, makeGroup([]Section{sec}, sec.LineCount))
			continue
		}
		if runLines > 0 && runLines+sec.LineCount > lineBudget {
			closeRun()
		}
		run = append(run, sec)
		runLines += sec.LineCount
	}
	closeRun()

	return groups
}

// mergeToLimit merges adjacent groups until there are at most numTasks
// groups. Each group must suggest at least one task, so more groups
// than tasks would make the allocation invariant unsatisfiable. The
// smallest group is merged into its smaller neighbor each round.
func mergeToLimit(groups []TaskGroup, numTasks int) []TaskGroup {
	for len(groups) > numTasks {
		smallest := 0
		for i, g := range groups {
			if g.LineCount < groups[smallest].LineCount {
				smallest = i
			}
		}

		var into int
		switch {
		case smallest == 0:
			into = 1
		case smallest == len(groups)-1:
			into = smallest - 1
		case groups[smallest-1].LineCount <= groups[smallest+1].LineCount:
			into = smallest - 1
		default:
			into = smallest + 1
		}

		lo, hi := into, smallest
		if lo > hi {
			lo, hi = hi, lo
		}
		merged := makeGroup(
			append(append([]Section{}, groups[lo].Sections...), groups[hi].Sections...),
			groups[lo].LineCount+groups[hi].LineCount,
		)
		groups[lo] = merged
		groups = append(groups[:hi], groups[hi+1:]...)
	}
	return groups
}

// allocate computes each group's proportional share of numTasks and
// reconciles rounding drift so the shares sum to numTasks exactly,
// favoring large groups for the adjustment.
func allocate(groups []TaskGroup, numTasks int) {
	if len(groups) == 0 {
		return
	}

	totalLines := 0
	for _, g := range groups {
		totalLines += g.LineCount
	}
	if totalLines == 0 {
		totalLines = 1
	}

	sum := 0
	for i := range groups {
		share := int(math.Round(float64(numTasks) * float64(groups[i].LineCount) / float64(totalLines)))
		if share < 1 {
			share = 1
		}
		groups[i].SuggestedTasks = share
		sum += share
	}

	for sum > numTasks {
		idx := -1
		for i, g := range groups {
			if g.SuggestedTasks > 1 && (idx == -1 || g.SuggestedTasks > groups[idx].SuggestedTasks) {
				idx = i
			}
		}
		if idx == -1 {
			break
		}
		groups[idx].SuggestedTasks--
		sum--
	}

	for sum < numTasks {
		idx := 0
		for i, g := range groups {
			if g.LineCount > groups[idx].LineCount {
				idx = i
			}
		}
		groups[idx].SuggestedTasks++
		sum++
	}
}

// makeGroup builds a group and names it after its members.
func makeGroup(sections []Section, lines int) TaskGroup {
	name := "Untitled"
	if len(sections) > 0 {
		name = sections[0].Title
	}
	if len(sections) > 1 {
		name = fmt.Sprintf("%s (+%d more)", name, len(sections)-1)
	}
	return TaskGroup{
		Name:      name,
		Sections:  sections,
		LineCount: lines,
	}
}

// Plan is a convenience function using the default planner.
func Plan(sections []Section, numTasks int) []TaskGroup {
	return NewPlanner().Plan(sections, numTasks)
}
