package session

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/planforge/planmode/internal/plan"
	"github.com/planforge/planmode/internal/types"
)

// ConversationDriver is the transport a session uses to reach its
// conversation agent. Prompt starts a fresh turn; FollowUp queues text
// behind the turn currently streaming. The driver guarantees serialized
// delivery of follow-ups.
type ConversationDriver interface {
	Prompt(ctx context.Context, text string) error
	FollowUp(ctx context.Context, text string) error
}

// Runtime is the live record for one connected session. It adapts a
// ConversationDriver to the plan manager's delivery interface and
// tracks whether a turn is in flight.
type Runtime struct {
	id        types.SessionID
	driver    ConversationDriver
	streaming atomic.Bool
}

// NewRuntime wraps a driver for the given session.
func NewRuntime(id types.SessionID, driver ConversationDriver) *Runtime {
	return &Runtime{id: id, driver: driver}
}

// NewCallbackRuntime builds a Runtime from bare delivery callbacks, for
// hosts whose conversation driver is not a single object.
func NewCallbackRuntime(id types.SessionID, prompt, followUp func(ctx context.Context, text string) error) *Runtime {
	return NewRuntime(id, callbackDriver{prompt: prompt, followUp: followUp})
}

// callbackDriver adapts two functions to the ConversationDriver
// interface.
type callbackDriver struct {
	prompt   func(ctx context.Context, text string) error
	followUp func(ctx context.Context, text string) error
}

func (d callbackDriver) Prompt(ctx context.Context, text string) error {
	return d.prompt(ctx, text)
}

func (d callbackDriver) FollowUp(ctx context.Context, text string) error {
	return d.followUp(ctx, text)
}

// ID returns the session identifier.
func (r *Runtime) ID() types.SessionID {
	return r.id
}

// DeliverPrompt starts a fresh turn with the given text.
func (r *Runtime) DeliverPrompt(ctx context.Context, text string) error {
	return r.driver.Prompt(ctx, text)
}

// DeliverFollowUp queues text behind the currently streaming turn.
func (r *Runtime) DeliverFollowUp(ctx context.Context, text string) error {
	return r.driver.FollowUp(ctx, text)
}

// IsStreaming reports whether a turn is currently in flight.
func (r *Runtime) IsStreaming() bool {
	return r.streaming.Load()
}

// SetStreaming records the start or end of a turn. The conversation
// driver's event handlers call this; it is the single source of truth
// for "is a turn in flight".
func (r *Runtime) SetStreaming(streaming bool) {
	r.streaming.Store(streaming)
}

// Registry tracks the live sessions of this process. It implements the
// plan manager's session lookup.
type Registry struct {
	mu       sync.RWMutex
	sessions map[types.SessionID]*Runtime
	logger   *slog.Logger
}

// NewRegistry creates an empty session registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		sessions: make(map[types.SessionID]*Runtime),
		logger:   logger.With("component", "session_registry"),
	}
}

// Register adds a session runtime, replacing any previous runtime for
// the same session.
func (r *Registry) Register(runtime *Runtime) {
	r.mu.Lock()
	r.sessions[runtime.ID()] = runtime
	r.mu.Unlock()

	r.logger.Info("session registered", "session_id", runtime.ID())
}

// Remove drops a session runtime. Removing an unknown session is a
// no-op.
func (r *Registry) Remove(sessionID types.SessionID) {
	r.mu.Lock()
	_, existed := r.sessions[sessionID]
	delete(r.sessions, sessionID)
	r.mu.Unlock()

	if existed {
		r.logger.Info("session removed", "session_id", sessionID)
	}
}

// Get returns the runtime for a session, if connected.
func (r *Registry) Get(sessionID types.SessionID) (*Runtime, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	runtime, ok := r.sessions[sessionID]
	return runtime, ok
}

// GetManagedSession implements plan.SessionLookup.
func (r *Registry) GetManagedSession(sessionID types.SessionID) (plan.ManagedSession, bool) {
	runtime, ok := r.Get(sessionID)
	if !ok {
		return nil, false
	}
	return runtime, true
}

// List returns the identifiers of all connected sessions.
func (r *Registry) List() []types.SessionID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]types.SessionID, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Count returns the number of connected sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
