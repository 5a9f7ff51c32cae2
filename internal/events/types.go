package events

import (
	"time"

	"github.com/planforge/planmode/internal/todo"
	"github.com/planforge/planmode/internal/types"
)

// EventType identifies the kind of plan event carried by an Event.
type EventType string

const (
	// EventStateChanged is emitted after every state write; it carries
	// the full new flag set and step tree.
	EventStateChanged EventType = "plan.state_changed"

	// EventRequestChoice asks observers to present a proposed plan to
	// the user for confirmation, modification, or cancellation.
	EventRequestChoice EventType = "plan.request_choice"

	// EventProgress reports completed/total step counts while a plan is
	// being carried out.
	EventProgress EventType = "plan.progress"

	// EventComplete announces that every step of a plan has finished;
	// it carries the final step tree.
	EventComplete EventType = "plan.complete"
)

// Event is a push notification describing a plan state change, delivered
// to all observers of a session's event stream. Exactly one of the
// payload pointers is set, matching Type.
type Event struct {
	Type      EventType       `json:"type"`
	SessionID types.SessionID `json:"session_id"`
	Timestamp time.Time       `json:"timestamp"`

	StateChanged  *StateChangedData  `json:"state_changed,omitempty"`
	RequestChoice *RequestChoiceData `json:"request_choice,omitempty"`
	Progress      *ProgressData      `json:"progress,omitempty"`
	Complete      *CompleteData      `json:"complete,omitempty"`
}

// StateChangedData carries the new plan flags and step tree after a
// state write.
type StateChangedData struct {
	Enabled   bool            `json:"enabled"`
	Executing bool            `json:"executing"`
	Modifying bool            `json:"modifying"`
	Todos     []todo.TodoStep `json:"todos"`
}

// RequestChoiceData carries the steps of a proposed plan awaiting a user
// decision.
type RequestChoiceData struct {
	Todos []todo.TodoStep `json:"todos"`
}

// ProgressData carries step completion counts across the whole tree.
type ProgressData struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

// CompleteData carries the final step tree of a finished plan.
type CompleteData struct {
	Todos []todo.TodoStep `json:"todos"`
}

// Filter selects which events a subscriber receives. Zero-valued fields
// match everything.
type Filter struct {
	// Types restricts delivery to the listed event types. Empty means
	// all types.
	Types []EventType

	// SessionID restricts delivery to one session's event stream. Zero
	// means all sessions.
	SessionID types.SessionID
}

// Matches reports whether the event passes the filter.
func (f Filter) Matches(event Event) bool {
	if !f.SessionID.IsZero() && event.SessionID != f.SessionID {
		return false
	}
	if len(f.Types) == 0 {
		return true
	}
	for _, t := range f.Types {
		if t == event.Type {
			return true
		}
	}
	return false
}

// NewStateChangedEvent creates a state_changed event for a session.
func NewStateChangedEvent(sessionID types.SessionID, enabled, executing, modifying bool, todos []todo.TodoStep) Event {
	return Event{
		Type:      EventStateChanged,
		SessionID: sessionID,
		Timestamp: time.Now(),
		StateChanged: &StateChangedData{
			Enabled:   enabled,
			Executing: executing,
			Modifying: modifying,
			Todos:     todos,
		},
	}
}

// NewRequestChoiceEvent creates a request_choice event for a session.
func NewRequestChoiceEvent(sessionID types.SessionID, todos []todo.TodoStep) Event {
	return Event{
		Type:      EventRequestChoice,
		SessionID: sessionID,
		Timestamp: time.Now(),
		RequestChoice: &RequestChoiceData{
			Todos: todos,
		},
	}
}

// NewProgressEvent creates a progress event for a session.
func NewProgressEvent(sessionID types.SessionID, completed, total int) Event {
	return Event{
		Type:      EventProgress,
		SessionID: sessionID,
		Timestamp: time.Now(),
		Progress: &ProgressData{
			Completed: completed,
			Total:     total,
		},
	}
}

// NewCompleteEvent creates a complete event for a session.
func NewCompleteEvent(sessionID types.SessionID, todos []todo.TodoStep) Event {
	return Event{
		Type:      EventComplete,
		SessionID: sessionID,
		Timestamp: time.Now(),
		Complete: &CompleteData{
			Todos: todos,
		},
	}
}
