package plan

import (
	"github.com/planforge/planmode/internal/todo"
)

// PlanState describes a session's current plan. One record exists per
// session, owned exclusively by the Manager.
//
// Enabled and Executing are never both true outside the instant of the
// transition that starts execution: ExecutePlan flips Enabled off and
// Executing on in the same state write. Modifying may only be true
// while Enabled is.
type PlanState struct {
	// Enabled means a plan has been proposed and awaits a user decision.
	Enabled bool `json:"enabled"`

	// Executing means the plan is actively being carried out by the
	// conversation driver.
	Executing bool `json:"executing"`

	// Modifying means a modification request is in flight.
	Modifying bool `json:"modifying"`

	// ModifyMessage is the text of the in-flight modification request,
	// present only while Modifying is true.
	ModifyMessage string `json:"modify_message,omitempty"`

	// Todos is the ordered list of top-level plan steps.
	Todos []todo.TodoStep `json:"todos"`
}

// DefaultPlanState returns the idle state a session starts from: all
// flags false, no steps.
func DefaultPlanState() PlanState {
	return PlanState{}
}

// Active reports whether the state carries a user-visible commitment,
// meaning a proposed or executing plan. Inactive states are safe to
// drop across restarts.
func (s PlanState) Active() bool {
	return s.Enabled || s.Executing
}

// Clone returns a deep copy of the state so callers can hold or mutate
// it without aliasing the Manager's record.
func (s PlanState) Clone() PlanState {
	clone := s
	clone.Todos = todo.CloneSteps(s.Todos)
	return clone
}
