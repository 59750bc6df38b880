package tasks

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestStore_LoadMissingFile(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "tasks.json"))

	list, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(list.Tasks) != 0 {
		t.Errorf("missing file must yield an empty list, got %d tasks", len(list.Tasks))
	}
	if store.Exists() {
		t.Error("Exists() = true for missing file")
	}
}

func TestStore_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "tasks.json")
	store := NewStore(path)

	list := &TaskList{Tasks: []Task{
		{ID: 1, Title: "Set up project", Priority: PriorityHigh, Status: StatusPending, Dependencies: []int{}},
		{ID: 2, Title: "Add storage", Priority: PriorityMedium, Status: StatusPending, Dependencies: []int{1}},
	}}
	if err := store.Save(list); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got.Tasks) != 2 {
		t.Fatalf("loaded %d tasks, want 2", len(got.Tasks))
	}
	if got.Tasks[1].Title != "Add storage" || got.Tasks[1].Dependencies[0] != 1 {
		t.Errorf("round trip mismatch: %+v", got.Tasks[1])
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"tasks"`) {
		t.Errorf("file missing top-level tasks key: %s", data)
	}
}

func TestStore_SaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(filepath.Join(dir, "tasks.json"))

	if err := store.Save(&TaskList{}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestStore_LoadRejectsInvalidList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")
	bad := `{"tasks": [{"id": 2, "title": "x", "priority": "low", "status": "pending", "dependencies": [5]}]}`
	if err := os.WriteFile(path, []byte(bad), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := NewStore(path).Load(); err == nil {
		t.Error("Load() must reject a list with dangling dependencies")
	}
}

func TestStore_LoadRejectsMalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := NewStore(path).Load(); err == nil {
		t.Error("Load() must reject malformed JSON")
	}
}
