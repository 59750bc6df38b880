// Package taskgen drives task generation: it segments a requirements
// document, plans the sections into batches, runs one structured
// generation call per batch through the role cascade, and commits the
// growing task list to disk after every batch so an interrupted run
// keeps its progress.
package taskgen

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/taskmith/taskmith/cascade"
	"github.com/taskmith/taskmith/config"
	"github.com/taskmith/taskmith/prd"
	"github.com/taskmith/taskmith/prompt"
	"github.com/taskmith/taskmith/provider"
	"github.com/taskmith/taskmith/schema"
	"github.com/taskmith/taskmith/tasks"
	"github.com/taskmith/taskmith/truncate"
)

// Token budgets for prompt context blocks.
const (
	overviewTokenBudget   = 1000
	priorTasksTokenBudget = 800
)

// defaultBatchSize caps the tasks requested in a single generation
// call. Larger asks push responses past the length where providers
// reliably emit valid JSON.
const defaultBatchSize = 12

// ObjectGenerator is the structured-generation entry point the driver
// calls. The cascade orchestrator implements it.
type ObjectGenerator interface {
	GenerateObject(ctx context.Context, role config.Role, messages []provider.Message, schemaJSON json.RawMessage, objectName string) (*cascade.ObjectResult, error)
}

// Request describes one generation run.
type Request struct {
	// Document is the requirements document text.
	Document string

	// NumTasks is the total task count to generate.
	NumTasks int

	// Append keeps the existing task list and numbers new tasks after
	// it. False overwrites the list.
	Append bool

	// Research starts the cascade at the research role.
	Research bool

	// DefaultPriority is assigned to tasks the model leaves
	// unprioritized. Empty means medium.
	DefaultPriority tasks.Priority
}

// Result reports what a run produced.
type Result struct {
	// List is the final task list, as committed to the store.
	List *tasks.TaskList

	// Generated counts the tasks added by this run.
	Generated int

	// DroppedDeps counts dependency references removed because they
	// pointed at unknown or later tasks.
	DroppedDeps int

	// FailedGroups names the batches whose generation calls failed
	// after the cascade was exhausted.
	FailedGroups []string
}

// Generator runs the document-to-tasks pipeline.
type Generator struct {
	gen       ObjectGenerator
	store     *tasks.Store
	prompts   *prompt.Engine
	logger    *slog.Logger
	segmenter *prd.Segmenter
	planner   *prd.Planner
	batchSize int
}

// Option configures a Generator.
type Option func(*Generator)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithPrompts sets the prompt engine, e.g. one with project overrides
// loaded.
func WithPrompts(e *prompt.Engine) Option {
	return func(g *Generator) {
		if e != nil {
			g.prompts = e
		}
	}
}

// WithSegmenter overrides the document segmenter.
func WithSegmenter(s *prd.Segmenter) Option {
	return func(g *Generator) {
		if s != nil {
			g.segmenter = s
		}
	}
}

// WithPlanner overrides the batch planner.
func WithPlanner(p *prd.Planner) Option {
	return func(g *Generator) {
		if p != nil {
			g.planner = p
		}
	}
}

// WithBatchSize caps the tasks requested per generation call.
func WithBatchSize(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.batchSize = n
		}
	}
}

// New creates a generator writing to the given store.
func New(gen ObjectGenerator, store *tasks.Store, opts ...Option) *Generator {
	g := &Generator{
		gen:       gen,
		store:     store,
		prompts:   prompt.NewEngine(),
		logger:    slog.Default(),
		segmenter: prd.NewSegmenter(),
		planner:   prd.NewPlanner(),
		batchSize: defaultBatchSize,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// taskDraft is the shape the model is asked to produce. IDs are local
// to the call; the driver renumbers them into the global sequence.
type taskDraft struct {
	ID           int    `json:"id" jsonschema:"required"`
	Title        string `json:"title" jsonschema:"required"`
	Description  string `json:"description" jsonschema:"required"`
	Details      string `json:"details,omitempty"`
	TestStrategy string `json:"testStrategy,omitempty"`
	Priority     string `json:"priority,omitempty"`
	Dependencies []int  `json:"dependencies,omitempty"`
}

// taskListDraft is the top-level object requested from the model.
type taskListDraft struct {
	Tasks []taskDraft `json:"tasks" jsonschema:"required"`
}

// Generate runs the full pipeline for one document.
func (g *Generator) Generate(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.Document) == "" {
		return nil, fmt.Errorf("empty document")
	}
	if req.NumTasks < 1 {
		req.NumTasks = 1
	}

	list := &tasks.TaskList{}
	if req.Append {
		loaded, err := g.store.Load()
		if err != nil {
			return nil, err
		}
		list = loaded
	}

	role := config.RoleMain
	if req.Research {
		role = config.RoleResearch
	}

	sch, err := schema.For[taskListDraft]("tasks")
	if err != nil {
		return nil, err
	}

	sections := g.segmenter.Segment(req.Document)
	groups := g.planner.Plan(sections, req.NumTasks)
	if len(groups) == 0 {
		return nil, fmt.Errorf("document yielded no sections")
	}
	g.logger.Info("planned generation batches",
		"sections", len(sections), "groups", len(groups), "tasks", req.NumTasks)

	result := &Result{List: list}
	nextID := list.NextID()

	for _, group := range groups {
		remaining := group.SuggestedTasks
		groupFailed := false
		for remaining > 0 && !groupFailed {
			n := remaining
			if n > g.batchSize {
				n = g.batchSize
			}

			drafts, err := g.generateBatch(ctx, role, sch, group, n, nextID, list)
			if err != nil {
				g.logger.Error("task generation failed for group",
					"group", group.Name, "error", err)
				result.FailedGroups = append(result.FailedGroups, group.Name)
				groupFailed = true
				break
			}

			added, dropped := renumber(drafts, nextID, list.IDs(), req.DefaultPriority)
			list.Append(added...)
			nextID += len(added)
			remaining -= n
			result.Generated += len(added)
			result.DroppedDeps += dropped
			if dropped > 0 {
				g.logger.Debug("dropped invalid dependency references",
					"group", group.Name, "count", dropped)
			}

			// Commit after every call, not every group: a failure in a
			// later batch must not lose earlier ones.
			if err := g.store.Save(list); err != nil {
				return result, err
			}
		}
	}

	// A run that changed nothing still rewrites the file, so overwrite
	// mode truncates a stale list even when every group failed.
	if err := g.store.Save(list); err != nil {
		return result, err
	}

	if result.Generated == 0 {
		return result, fmt.Errorf("no tasks generated: all %d groups failed", len(groups))
	}
	return result, nil
}

// generateBatch runs one structured generation call for n tasks scoped
// to a group's content.
func (g *Generator) generateBatch(ctx context.Context, role config.Role, sch *schema.Schema, group prd.TaskGroup, n, startID int, list *tasks.TaskList) ([]taskDraft, error) {
	system, err := g.prompts.Render(prompt.GenerateTasksSystem, map[string]any{
		"Schema":   string(sch.JSON),
		"NumTasks": n,
		"StartID":  startID,
		"Research": role == config.RoleResearch,
	})
	if err != nil {
		return nil, err
	}

	user, err := g.prompts.Render(prompt.GenerateTasksUser, map[string]any{
		"NumTasks":   n,
		"Overview":   truncate.Text(group.Overview, overviewTokenBudget),
		"PriorTasks": priorTaskLines(list),
		"GroupName":  group.Name,
		"Content":    group.Content(),
	})
	if err != nil {
		return nil, err
	}

	resp, err := g.gen.GenerateObject(ctx, role, []provider.Message{
		provider.NewTextMessage(provider.RoleSystem, system),
		provider.NewTextMessage(provider.RoleUser, user),
	}, sch.JSON, sch.Name)
	if err != nil {
		return nil, err
	}

	var draft taskListDraft
	if err := sch.Decode(resp.Object, &draft); err != nil {
		return nil, err
	}
	return draft.Tasks, nil
}

// renumber assigns sequential global IDs to a batch of drafts and
// rewrites their dependencies. A dependency survives when it resolves
// to an earlier task in this batch or to an already committed task;
// everything else is dropped silently.
func renumber(drafts []taskDraft, startID int, existing map[int]bool, defaultPriority tasks.Priority) ([]tasks.Task, int) {
	if defaultPriority == "" {
		defaultPriority = tasks.PriorityMedium
	}

	localToGlobal := make(map[int]int, len(drafts))
	for i, d := range drafts {
		localToGlobal[d.ID] = startID + i
	}

	dropped := 0
	out := make([]tasks.Task, 0, len(drafts))
	for i, d := range drafts {
		id := startID + i

		deps := make([]int, 0, len(d.Dependencies))
		for _, dep := range d.Dependencies {
			switch {
			case localToGlobal[dep] != 0 && localToGlobal[dep] < id:
				deps = append(deps, localToGlobal[dep])
			case existing[dep]:
				deps = append(deps, dep)
			default:
				dropped++
			}
		}
		sort.Ints(deps)

		priority := defaultPriority
		if p := tasks.Priority(d.Priority); p.Valid() {
			priority = p
		}

		out = append(out, tasks.Task{
			ID:           id,
			Title:        d.Title,
			Description:  d.Description,
			Details:      d.Details,
			TestStrategy: d.TestStrategy,
			Priority:     priority,
			Status:       tasks.StatusPending,
			Dependencies: deps,
		})
	}
	return out, dropped
}

// priorTaskLines summarizes the committed tasks as "id. title" lines
// for prompt context, truncated from the front so the most recent
// tasks survive.
func priorTaskLines(list *tasks.TaskList) string {
	if len(list.Tasks) == 0 {
		return ""
	}
	var b strings.Builder
	for _, t := range list.Tasks {
		fmt.Fprintf(&b, "%d. %s\n", t.ID, t.Title)
	}
	out, _ := truncate.New(truncate.FromMiddle).Truncate(strings.TrimRight(b.String(), "\n"), priorTasksTokenBudget)
	return out
}
