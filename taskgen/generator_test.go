package taskgen

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmith/taskmith/cascade"
	"github.com/taskmith/taskmith/config"
	"github.com/taskmith/taskmith/provider"
	"github.com/taskmith/taskmith/tasks"
)

// fakeGen scripts structured-generation responses per call.
type fakeGen struct {
	responses []json.RawMessage
	errs      []error
	idx       int

	roles    []config.Role
	messages [][]provider.Message

	// beforeReturn runs before each response is returned, with the
	// zero-based call index. Used to observe checkpoint state mid-run.
	beforeReturn func(call int)
}

func (f *fakeGen) GenerateObject(_ context.Context, role config.Role, messages []provider.Message, _ json.RawMessage, _ string) (*cascade.ObjectResult, error) {
	call := f.idx
	f.idx++
	f.roles = append(f.roles, role)
	f.messages = append(f.messages, messages)

	if f.beforeReturn != nil {
		f.beforeReturn(call)
	}
	if call < len(f.errs) && f.errs[call] != nil {
		return nil, f.errs[call]
	}

	obj := json.RawMessage(`{"tasks": []}`)
	if call < len(f.responses) {
		obj = f.responses[call]
	}
	return &cascade.ObjectResult{
		ObjectResponse: provider.ObjectResponse{
			Object:   obj,
			Model:    "test-model",
			Usage:    provider.TokenUsage{InputTokens: 100, OutputTokens: 200, TotalTokens: 300},
			Duration: 5 * time.Millisecond,
		},
	}, nil
}

func draftsJSON(t *testing.T, drafts ...taskDraft) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(taskListDraft{Tasks: drafts})
	require.NoError(t, err)
	return raw
}

func draft(id int, title string, deps ...int) taskDraft {
	return taskDraft{
		ID:           id,
		Title:        title,
		Description:  "do " + title,
		Priority:     "medium",
		Dependencies: deps,
	}
}

func twoSectionDoc() string {
	var b strings.Builder
	for _, name := range []string{"Alpha", "Beta"} {
		fmt.Fprintf(&b, "# %s\n", name)
		for i := 0; i < 9; i++ {
			fmt.Fprintf(&b, "%s requirement line %d.\n", name, i)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func newTestGenerator(t *testing.T, gen ObjectGenerator, opts ...Option) (*Generator, *tasks.Store) {
	t.Helper()
	store := tasks.NewStore(filepath.Join(t.TempDir(), "tasks.json"))
	return New(gen, store, opts...), store
}

func TestGenerate_SingleGroup(t *testing.T) {
	gen := &fakeGen{responses: []json.RawMessage{
		draftsJSON(t, draft(1, "Scaffold project"), draft(2, "Add storage", 1)),
	}}
	g, store := newTestGenerator(t, gen)

	res, err := g.Generate(context.Background(), Request{
		Document: "A small tool.\n\nIt stores notes.",
		NumTasks: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Generated)
	require.Len(t, gen.roles, 1)
	assert.Equal(t, config.RoleMain, gen.roles[0])

	saved, err := store.Load()
	require.NoError(t, err)
	require.Len(t, saved.Tasks, 2)
	assert.Equal(t, 1, saved.Tasks[0].ID)
	assert.Equal(t, tasks.StatusPending, saved.Tasks[0].Status)
	assert.Equal(t, []int{1}, saved.Tasks[1].Dependencies)
}

func TestGenerate_AppendNumbersAfterExisting(t *testing.T) {
	gen := &fakeGen{responses: []json.RawMessage{
		draftsJSON(t, taskDraft{
			ID: 5, Title: "Extend storage", Description: "d",
			Dependencies: []int{2, 5}, // 5 is the task itself, 2 is committed
		}),
	}}
	g, store := newTestGenerator(t, gen)

	require.NoError(t, store.Save(&tasks.TaskList{Tasks: []tasks.Task{
		{ID: 1, Title: "Old one", Priority: tasks.PriorityMedium, Status: "done", Dependencies: []int{}},
		{ID: 2, Title: "Old two", Priority: tasks.PriorityMedium, Status: "done", Dependencies: []int{1}},
	}}))

	res, err := g.Generate(context.Background(), Request{
		Document: "More requirements.",
		NumTasks: 1,
		Append:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Generated)

	saved, err := store.Load()
	require.NoError(t, err)
	require.Len(t, saved.Tasks, 3)
	newTask := saved.Tasks[2]
	assert.Equal(t, 3, newTask.ID)
	// The self-reference is dropped; the committed id survives.
	assert.Equal(t, []int{2}, newTask.Dependencies)
	assert.Equal(t, 1, res.DroppedDeps)

	// Prompt carries the committed tasks as dependency context.
	user := gen.messages[0][1].Content
	assert.Contains(t, user, "1. Old one")
	assert.Contains(t, user, "2. Old two")
}

func TestGenerate_DropsUnknownDependencies(t *testing.T) {
	gen := &fakeGen{responses: []json.RawMessage{
		draftsJSON(t,
			draft(10, "First"),
			draft(11, "Second", 10, 99), // 99 exists nowhere
		),
	}}
	g, _ := newTestGenerator(t, gen)

	res, err := g.Generate(context.Background(), Request{Document: "Doc.", NumTasks: 2})
	require.NoError(t, err)
	assert.Equal(t, 1, res.DroppedDeps)
	require.Len(t, res.List.Tasks, 2)
	assert.Equal(t, []int{1}, res.List.Tasks[1].Dependencies)
	assert.NoError(t, res.List.Validate())
}

func TestGenerate_FailedGroupSkippedOthersCommitted(t *testing.T) {
	gen := &fakeGen{
		errs: []error{provider.ErrUnavailable, nil},
		responses: []json.RawMessage{
			nil,
			draftsJSON(t, draft(1, "Beta work")),
		},
	}
	g, store := newTestGenerator(t, gen)

	res, err := g.Generate(context.Background(), Request{
		Document: twoSectionDoc(),
		NumTasks: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha"}, res.FailedGroups)
	assert.Equal(t, 1, res.Generated)

	saved, err := store.Load()
	require.NoError(t, err)
	require.Len(t, saved.Tasks, 1)
	assert.Equal(t, "Beta work", saved.Tasks[0].Title)
}

func TestGenerate_AllGroupsFail(t *testing.T) {
	gen := &fakeGen{errs: []error{provider.ErrUnavailable, provider.ErrUnavailable}}
	g, store := newTestGenerator(t, gen)

	// Overwrite mode must truncate the stale list even on total failure.
	require.NoError(t, store.Save(&tasks.TaskList{Tasks: []tasks.Task{
		{ID: 1, Title: "Stale", Priority: tasks.PriorityLow, Status: "pending", Dependencies: []int{}},
	}}))

	res, err := g.Generate(context.Background(), Request{
		Document: twoSectionDoc(),
		NumTasks: 2,
	})
	require.Error(t, err)
	assert.Len(t, res.FailedGroups, 2)

	saved, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, saved.Tasks)
}

func TestGenerate_CheckpointsAfterEachCall(t *testing.T) {
	var store *tasks.Store
	gen := &fakeGen{}
	gen.responses = []json.RawMessage{
		draftsJSON(t, draft(1, "Alpha work")),
		draftsJSON(t, draft(1, "Beta work")),
	}
	gen.beforeReturn = func(call int) {
		if call != 1 {
			return
		}
		// By the second call the first batch must already be on disk.
		saved, err := store.Load()
		if err != nil {
			panic(err)
		}
		if len(saved.Tasks) != 1 || saved.Tasks[0].Title != "Alpha work" {
			panic(fmt.Sprintf("checkpoint missing before second call: %+v", saved.Tasks))
		}
	}

	var g *Generator
	g, store = newTestGenerator(t, gen)
	_, err := g.Generate(context.Background(), Request{
		Document: twoSectionDoc(),
		NumTasks: 2,
	})
	require.NoError(t, err)
}

func TestGenerate_ResearchStartsAtResearchRole(t *testing.T) {
	gen := &fakeGen{responses: []json.RawMessage{
		draftsJSON(t, draft(1, "T")),
	}}
	g, _ := newTestGenerator(t, gen)

	_, err := g.Generate(context.Background(), Request{
		Document: "Doc.",
		NumTasks: 1,
		Research: true,
	})
	require.NoError(t, err)
	require.Len(t, gen.roles, 1)
	assert.Equal(t, config.RoleResearch, gen.roles[0])
}

func TestGenerate_LargeGroupSplitsIntoBatches(t *testing.T) {
	gen := &fakeGen{responses: []json.RawMessage{
		draftsJSON(t, draft(1, "A"), draft(2, "B"), draft(3, "C")),
		draftsJSON(t, draft(1, "D"), draft(2, "E")),
	}}
	g, _ := newTestGenerator(t, gen, WithBatchSize(3))

	res, err := g.Generate(context.Background(), Request{
		Document: "One document, no headers.",
		NumTasks: 5,
	})
	require.NoError(t, err)

	require.Len(t, gen.messages, 2)
	assert.Contains(t, gen.messages[0][1].Content, "Generate 3 implementation tasks")
	assert.Contains(t, gen.messages[1][1].Content, "Generate 2 implementation tasks")
	assert.Equal(t, 5, res.Generated)
	// Second batch numbers after the first.
	assert.Equal(t, 4, res.List.Tasks[3].ID)
}

func TestGenerate_EmptyDocument(t *testing.T) {
	g, _ := newTestGenerator(t, &fakeGen{})
	_, err := g.Generate(context.Background(), Request{Document: "   \n"})
	require.Error(t, err)
}

func TestGenerate_DefaultPriorityApplied(t *testing.T) {
	gen := &fakeGen{responses: []json.RawMessage{
		draftsJSON(t, taskDraft{ID: 1, Title: "No priority", Description: "d"}),
	}}
	g, _ := newTestGenerator(t, gen)

	res, err := g.Generate(context.Background(), Request{
		Document:        "Doc.",
		NumTasks:        1,
		DefaultPriority: tasks.PriorityHigh,
	})
	require.NoError(t, err)
	assert.Equal(t, tasks.PriorityHigh, res.List.Tasks[0].Priority)
}
