package prd

import (
	"fmt"
	"strings"
	"testing"
)

func section(title string, level, lines int) Section {
	body := make([]string, lines)
	body[0] = fmt.Sprintf("%s %s", strings.Repeat("#", max(level, 1)), title)
	for i := 1; i < lines; i++ {
		body[i] = fmt.Sprintf("line %d of %s", i, title)
	}
	return Section{
		Title:     title,
		Level:     level,
		Content:   strings.Join(body, "\n"),
		LineCount: lines,
	}
}

func sumSuggested(groups []TaskGroup) int {
	sum := 0
	for _, g := range groups {
		sum += g.SuggestedTasks
	}
	return sum
}

func TestPlan_AllocationSumsExactly(t *testing.T) {
	shapes := [][]int{
		{5},
		{10, 20, 30},
		{3, 3, 3, 3, 3, 3, 3, 3},
		{120, 4, 4, 90, 7},
		{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1},
	}
	for _, numTasks := range []int{1, 3, 10, 25} {
		for si, shape := range shapes {
			var sections []Section
			for i, lines := range shape {
				sections = append(sections, section(fmt.Sprintf("S%d", i), 2, lines))
			}
			groups := Plan(sections, numTasks)

			if got := sumSuggested(groups); got != numTasks {
				t.Errorf("shape %d, numTasks %d: allocated %d", si, numTasks, got)
			}
			if len(groups) > numTasks {
				t.Errorf("shape %d, numTasks %d: %d groups exceeds task count", si, numTasks, len(groups))
			}
			for _, g := range groups {
				if g.SuggestedTasks < 1 {
					t.Errorf("shape %d, numTasks %d: group %q suggests %d tasks", si, numTasks, g.Name, g.SuggestedTasks)
				}
			}
		}
	}
}

func TestPlan_LargeAndLevel1SectionsStandAlone(t *testing.T) {
	sections := []Section{
		section("Big", 2, 80),
		section("TopLevel", 1, 5),
		section("SmallA", 2, 10),
		section("SmallB", 2, 10),
	}
	groups := Plan(sections, 10)

	if len(groups) != 3 {
		names := make([]string, len(groups))
		for i, g := range groups {
			names[i] = g.Name
		}
		t.Fatalf("groups = %v, want [Big TopLevel SmallA (+1 more)]", names)
	}
	if groups[0].Name != "Big" || groups[1].Name != "TopLevel" {
		t.Errorf("large and level-1 sections must form their own groups: %q, %q", groups[0].Name, groups[1].Name)
	}
	if groups[2].Name != "SmallA (+1 more)" {
		t.Errorf("small sections must coalesce: %q", groups[2].Name)
	}
}

func TestPlan_SmallSectionsRespectLineBudget(t *testing.T) {
	var sections []Section
	for i := 0; i < 6; i++ {
		sections = append(sections, section(fmt.Sprintf("S%d", i), 2, 40))
	}
	groups := Plan(sections, 10)

	// 40-line sections against a 100-line budget pair up.
	if len(groups) != 3 {
		t.Fatalf("got %d groups, want 3", len(groups))
	}
	for _, g := range groups {
		if g.LineCount > defaultGroupLineBudget {
			t.Errorf("group %q has %d lines, budget is %d", g.Name, g.LineCount, defaultGroupLineBudget)
		}
	}
}

func TestPlan_OverSegmentedDoublesThresholds(t *testing.T) {
	// 20 tiny sections for 5 tasks trips the over-segmentation check
	// (20 > 5*3/2), doubling the 100-line budget to 200.
	var sections []Section
	for i := 0; i < 20; i++ {
		sections = append(sections, section(fmt.Sprintf("S%d", i), 2, 40))
	}
	groups := Plan(sections, 5)

	if got := sumSuggested(groups); got != 5 {
		t.Fatalf("allocated %d tasks, want 5", got)
	}
	if len(groups) > 5 {
		t.Errorf("%d groups for 5 tasks", len(groups))
	}
	for _, g := range groups {
		if len(g.Sections) < 2 {
			t.Errorf("group %q holds a single tiny section, merging did not tighten", g.Name)
		}
	}
}

func TestPlan_OverviewSharedAsContext(t *testing.T) {
	sections := []Section{
		{Title: OverviewTitle, Content: "The big picture.", LineCount: 1, IsOverview: true},
		section("Auth", 2, 10),
		section("Billing", 2, 10),
	}
	groups := Plan(sections, 4)

	for _, g := range groups {
		if g.Overview != "The big picture." {
			t.Errorf("group %q overview = %q", g.Name, g.Overview)
		}
		for _, sec := range g.Sections {
			if sec.IsOverview {
				t.Errorf("overview leaked into group %q as content", g.Name)
			}
		}
	}
}

func TestPlan_HeaderlessDocumentPlansToOneGroup(t *testing.T) {
	doc := "A short feature request.\n\nNo headers anywhere."
	sections := Segment(doc)
	groups := Plan(sections, 7)

	if len(groups) != 1 {
		t.Fatalf("got %d groups, want 1", len(groups))
	}
	if groups[0].SuggestedTasks != 7 {
		t.Errorf("single group suggests %d tasks, want all 7", groups[0].SuggestedTasks)
	}
	if !strings.Contains(groups[0].Content(), "A short feature request.") {
		t.Error("group content missing document text")
	}
}

func TestPlan_NoSections(t *testing.T) {
	if groups := Plan(nil, 5); groups != nil {
		t.Errorf("expected nil groups, got %v", groups)
	}
}

func TestPlan_GroupContentPreservesOrder(t *testing.T) {
	sections := []Section{
		section("First", 2, 5),
		section("Second", 2, 5),
	}
	groups := Plan(sections, 3)
	if len(groups) != 1 {
		t.Fatalf("expected one merged group, got %d", len(groups))
	}
	content := groups[0].Content()
	if strings.Index(content, "First") > strings.Index(content, "Second") {
		t.Error("content out of document order")
	}
}
