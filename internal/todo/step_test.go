package todo

import (
	"testing"
)

func TestCountSteps(t *testing.T) {
	tests := []struct {
		name          string
		steps         []TodoStep
		wantCompleted int
		wantTotal     int
	}{
		{
			name:          "empty tree",
			steps:         nil,
			wantCompleted: 0,
			wantTotal:     0,
		},
		{
			name: "flat list",
			steps: []TodoStep{
				{Step: 1, Text: "a", Completed: true},
				{Step: 2, Text: "b"},
				{Step: 3, Text: "c"},
			},
			wantCompleted: 1,
			wantTotal:     3,
		},
		{
			name: "subtasks counted",
			steps: []TodoStep{
				{Step: 1, Text: "a", Completed: true, Subtasks: []TodoStep{
					{Step: 1, Text: "a1", Completed: true},
					{Step: 2, Text: "a2"},
				}},
				{Step: 2, Text: "b"},
			},
			wantCompleted: 2,
			wantTotal:     4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			completed, total := CountSteps(tt.steps)
			if completed != tt.wantCompleted || total != tt.wantTotal {
				t.Errorf("CountSteps() = (%d, %d), want (%d, %d)",
					completed, total, tt.wantCompleted, tt.wantTotal)
			}
		})
	}
}

func TestFirstIncomplete(t *testing.T) {
	steps := []TodoStep{
		{Step: 1, Text: "a", Completed: true},
		{Step: 2, Text: "b"},
		{Step: 3, Text: "c"},
	}

	step, ok := FirstIncomplete(steps)
	if !ok {
		t.Fatal("FirstIncomplete() found nothing")
	}
	if step.Step != 2 {
		t.Errorf("FirstIncomplete() = step %d, want 2", step.Step)
	}

	allDone := []TodoStep{{Step: 1, Text: "a", Completed: true}}
	if _, ok := FirstIncomplete(allDone); ok {
		t.Error("FirstIncomplete() should report nothing for a complete plan")
	}
	if _, ok := FirstIncomplete(nil); ok {
		t.Error("FirstIncomplete() should report nothing for an empty plan")
	}
}

func TestCloneSteps(t *testing.T) {
	original := []TodoStep{
		{Step: 1, Text: "a", Subtasks: []TodoStep{{Step: 1, Text: "a1"}}},
	}

	cloned := CloneSteps(original)
	cloned[0].Text = "changed"
	cloned[0].Subtasks[0].Completed = true

	if original[0].Text != "a" {
		t.Error("mutating clone changed original text")
	}
	if original[0].Subtasks[0].Completed {
		t.Error("mutating clone changed original subtask")
	}

	if CloneSteps(nil) != nil {
		t.Error("CloneSteps(nil) should stay nil")
	}
}
