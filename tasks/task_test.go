package tasks

import (
	"testing"
)

func TestTaskList_NextID(t *testing.T) {
	var list TaskList
	if got := list.NextID(); got != 1 {
		t.Errorf("empty list NextID = %d, want 1", got)
	}

	list.Append(Task{ID: 1}, Task{ID: 4})
	if got := list.NextID(); got != 5 {
		t.Errorf("NextID = %d, want 5", got)
	}
}

func TestTaskList_Validate(t *testing.T) {
	tests := []struct {
		name    string
		list    TaskList
		wantErr bool
	}{
		{
			name: "valid chain",
			list: TaskList{Tasks: []Task{
				{ID: 1, Priority: PriorityHigh, Status: StatusPending},
				{ID: 2, Priority: PriorityMedium, Status: StatusPending, Dependencies: []int{1}},
			}},
		},
		{
			name: "duplicate id",
			list: TaskList{Tasks: []Task{
				{ID: 1, Priority: PriorityLow},
				{ID: 1, Priority: PriorityLow},
			}},
			wantErr: true,
		},
		{
			name: "missing dependency",
			list: TaskList{Tasks: []Task{
				{ID: 1, Priority: PriorityLow, Dependencies: []int{9}},
			}},
			wantErr: true,
		},
		{
			name: "forward dependency",
			list: TaskList{Tasks: []Task{
				{ID: 1, Priority: PriorityLow, Dependencies: []int{2}},
				{ID: 2, Priority: PriorityLow},
			}},
			wantErr: true,
		},
		{
			name: "unknown priority",
			list: TaskList{Tasks: []Task{
				{ID: 1, Priority: "urgent"},
			}},
			wantErr: true,
		},
		{
			name: "non-positive id",
			list: TaskList{Tasks: []Task{
				{ID: 0, Priority: PriorityLow},
			}},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.list.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTaskList_SanitizeDependencies(t *testing.T) {
	list := TaskList{Tasks: []Task{
		{ID: 1, Priority: PriorityMedium},
		{ID: 2, Priority: PriorityMedium, Dependencies: []int{1, 99}},
		{ID: 3, Priority: PriorityMedium, Dependencies: []int{4, 2, 1}},
		{ID: 4, Priority: PriorityMedium, Dependencies: []int{4}},
	}}

	dropped := list.SanitizeDependencies()
	if dropped != 3 {
		t.Errorf("dropped = %d, want 3", dropped)
	}
	if err := list.Validate(); err != nil {
		t.Errorf("sanitized list invalid: %v", err)
	}

	got := list.Tasks[2].Dependencies
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("task 3 dependencies = %v, want [1 2]", got)
	}
	if len(list.Tasks[3].Dependencies) != 0 {
		t.Errorf("self-dependency survived: %v", list.Tasks[3].Dependencies)
	}
}

func TestParsePriority(t *testing.T) {
	if got := ParsePriority("high"); got != PriorityHigh {
		t.Errorf("ParsePriority(high) = %q", got)
	}
	if got := ParsePriority("critical"); got != PriorityMedium {
		t.Errorf("unknown priority must fall back to medium, got %q", got)
	}
}
