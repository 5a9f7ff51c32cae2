package todo

// TodoStep is one node in a plan tree. Top-level steps may carry one
// additional level of subtasks; the parser accepts deeper numbering but
// never produces more than two levels.
type TodoStep struct {
	// Step is the 1-based position within its sibling list. It is
	// assigned sequentially by the parser regardless of the numbering
	// that appeared in the source text, and reassigned on reorder.
	Step int `json:"step"`

	// Text is the display string, at most 60 characters. Markup
	// characters from the source text are preserved as-is.
	Text string `json:"text"`

	// Completed is set only by the execution driver as the conversation
	// agent reports progress on this exact step.
	Completed bool `json:"completed"`

	// Subtasks is the optional second level. A nil slice and an absent
	// field are indistinguishable after serialization; the parser never
	// produces an empty non-nil slice.
	Subtasks []TodoStep `json:"subtasks,omitempty"`
}

// CountSteps returns the number of completed nodes and the total number
// of nodes across the tree, counting both top-level steps and subtasks.
func CountSteps(steps []TodoStep) (completed, total int) {
	for _, step := range steps {
		total++
		if step.Completed {
			completed++
		}
		for _, sub := range step.Subtasks {
			total++
			if sub.Completed {
				completed++
			}
		}
	}
	return completed, total
}

// FirstIncomplete returns the first top-level step whose Completed flag
// is false, in source order. The second return value is false when every
// step is complete or the list is empty.
func FirstIncomplete(steps []TodoStep) (TodoStep, bool) {
	for _, step := range steps {
		if !step.Completed {
			return step, true
		}
	}
	return TodoStep{}, false
}

// CloneSteps returns a deep copy of the step tree. Mutating the copy
// never affects the original.
func CloneSteps(steps []TodoStep) []TodoStep {
	if steps == nil {
		return nil
	}
	cloned := make([]TodoStep, len(steps))
	for i, step := range steps {
		cloned[i] = step
		cloned[i].Subtasks = CloneSteps(step.Subtasks)
	}
	return cloned
}
