// Package tasks defines the task list model and its on-disk store.
//
// A task list is a JSON document with a single top-level "tasks" array.
// Task IDs are positive integers assigned sequentially across the whole
// list, and dependencies reference tasks by ID. The store writes
// atomically so an interrupted generation run never leaves a
// half-written file behind.
package tasks

import (
	"fmt"
	"sort"
)

// Priority is a task's scheduling hint.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Valid reports whether the priority is one of the known values.
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// ParsePriority normalizes a priority string, falling back to medium
// for unknown values.
func ParsePriority(s string) Priority {
	p := Priority(s)
	if p.Valid() {
		return p
	}
	return PriorityMedium
}

// StatusPending is the status assigned to every newly generated task.
const StatusPending = "pending"

// Subtask is a finer-grained step under a task. Subtask IDs are local
// to their parent.
type Subtask struct {
	ID           int    `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description,omitempty"`
	Status       string `json:"status"`
	Dependencies []int  `json:"dependencies,omitempty"`
}

// Task is one unit of work derived from the requirements document.
type Task struct {
	ID           int       `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Details      string    `json:"details,omitempty"`
	TestStrategy string    `json:"testStrategy,omitempty"`
	Priority     Priority  `json:"priority"`
	Status       string    `json:"status"`
	Dependencies []int     `json:"dependencies"`
	Subtasks     []Subtask `json:"subtasks,omitempty"`
}

// TaskList is the top-level document stored on disk.
type TaskList struct {
	Tasks []Task `json:"tasks"`
}

// NextID returns the ID the next appended task should receive.
// IDs are sequential, so this is one past the current maximum.
func (l *TaskList) NextID() int {
	maxID := 0
	for _, t := range l.Tasks {
		if t.ID > maxID {
			maxID = t.ID
		}
	}
	return maxID + 1
}

// IDs returns the set of task IDs present in the list.
func (l *TaskList) IDs() map[int]bool {
	ids := make(map[int]bool, len(l.Tasks))
	for _, t := range l.Tasks {
		ids[t.ID] = true
	}
	return ids
}

// Append adds tasks to the list without renumbering them.
func (l *TaskList) Append(ts ...Task) {
	l.Tasks = append(l.Tasks, ts...)
}

// Validate checks structural invariants: unique positive IDs, known
// priorities, and dependencies that reference existing earlier tasks.
func (l *TaskList) Validate() error {
	seen := make(map[int]bool, len(l.Tasks))
	for _, t := range l.Tasks {
		if t.ID < 1 {
			return fmt.Errorf("task %q: non-positive id %d", t.Title, t.ID)
		}
		if seen[t.ID] {
			return fmt.Errorf("duplicate task id %d", t.ID)
		}
		seen[t.ID] = true
		if !t.Priority.Valid() {
			return fmt.Errorf("task %d: unknown priority %q", t.ID, t.Priority)
		}
	}
	for _, t := range l.Tasks {
		for _, dep := range t.Dependencies {
			if !seen[dep] {
				return fmt.Errorf("task %d: dependency %d does not exist", t.ID, dep)
			}
			if dep >= t.ID {
				return fmt.Errorf("task %d: dependency %d is not an earlier task", t.ID, dep)
			}
		}
	}
	return nil
}

// SanitizeDependencies drops dependency references that do not point at
// an existing earlier task. Generated output occasionally references
// tasks outside the batch it was asked about; those references are
// removed rather than failing the run. Returns the number dropped.
func (l *TaskList) SanitizeDependencies() int {
	ids := l.IDs()
	dropped := 0
	for i := range l.Tasks {
		t := &l.Tasks[i]
		kept := t.Dependencies[:0]
		for _, dep := range t.Dependencies {
			if ids[dep] && dep < t.ID {
				kept = append(kept, dep)
			} else {
				dropped++
			}
		}
		t.Dependencies = kept
		sort.Ints(t.Dependencies)
	}
	return dropped
}
