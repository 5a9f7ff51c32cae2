package plan

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/planforge/planmode/internal/events"
	"github.com/planforge/planmode/internal/todo"
	"github.com/planforge/planmode/internal/types"
)

// persistTimeout bounds each fire-and-forget persistence write.
const persistTimeout = 10 * time.Second

// ManagedSession is the conversation driver's view of one live session.
// It is the only way the Manager delivers instructions.
type ManagedSession interface {
	// DeliverPrompt starts a fresh turn with the given text.
	DeliverPrompt(ctx context.Context, text string) error

	// DeliverFollowUp queues text behind the currently streaming turn.
	DeliverFollowUp(ctx context.Context, text string) error

	// IsStreaming reports whether a turn is currently in flight. The
	// driver owns this flag; the Manager only reads it to pick the
	// delivery path.
	IsStreaming() bool
}

// SessionLookup resolves a session identifier to its live runtime, if
// the session is still connected.
type SessionLookup interface {
	GetManagedSession(sessionID types.SessionID) (ManagedSession, bool)
}

// Broadcaster pushes plan events to observers. Publishing must not
// block; the Manager calls it while holding the state lock.
type Broadcaster interface {
	Publish(ctx context.Context, event events.Event) error
}

// Store is the persistence adapter for plan state. Saves are issued
// fire-and-forget; loads happen only during startup restore.
type Store interface {
	Save(ctx context.Context, sessionID types.SessionID, state PlanState) error
	Load(ctx context.Context, sessionID types.SessionID) (PlanState, bool, error)
	Delete(ctx context.Context, sessionID types.SessionID) error
}

// Manager holds one PlanState per session and applies every transition.
// In-memory state is the single source of truth while the process is
// alive; the persisted copy is a best-effort recovery aid for restart.
type Manager struct {
	mu     sync.Mutex
	states map[types.SessionID]PlanState

	sessions    SessionLookup
	broadcaster Broadcaster
	store       Store

	logger *slog.Logger
	tracer trace.Tracer

	// persistCh feeds the single persistence worker. One worker keeps
	// the store applying writes in transition order even though callers
	// never wait for them.
	persistCh   chan persistOp
	persistDone chan struct{}
	closeOnce   sync.Once
	closed      bool
}

// persistOp is one queued fire-and-forget store operation.
type persistOp struct {
	sessionID types.SessionID
	state     PlanState
	remove    bool
}

// ManagerOption is a functional option for configuring Manager.
type ManagerOption func(*Manager)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithTracer sets the tracer used to instrument awaited operations.
func WithTracer(tracer trace.Tracer) ManagerOption {
	return func(m *Manager) {
		if tracer != nil {
			m.tracer = tracer
		}
	}
}

// NewManager creates a plan manager wired to its three collaborators.
// A nil broadcaster or store disables that concern, which is useful in
// tests; a nil sessions lookup means no session ever resolves.
func NewManager(sessions SessionLookup, broadcaster Broadcaster, store Store, opts ...ManagerOption) *Manager {
	m := &Manager{
		states:      make(map[types.SessionID]PlanState),
		sessions:    sessions,
		broadcaster: broadcaster,
		store:       store,
		logger:      slog.Default(),
		tracer:      noop.NewTracerProvider().Tracer("planmode"),
		persistCh:   make(chan persistOp, 256),
		persistDone: make(chan struct{}),
	}

	for _, opt := range opts {
		opt(m)
	}

	m.logger = m.logger.With("component", "plan_manager")
	go m.persistWorker()
	return m
}

// persistWorker applies queued store operations in order.
func (m *Manager) persistWorker() {
	defer close(m.persistDone)

	for op := range m.persistCh {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		var err error
		if op.remove {
			err = m.store.Delete(ctx, op.sessionID)
		} else {
			err = m.store.Save(ctx, op.sessionID, op.state)
		}
		cancel()
		if err != nil {
			m.logger.Error("failed to persist plan state",
				"session_id", op.sessionID, "remove", op.remove, "error", err)
		}
	}
}

// GetState returns the session's current plan state, or the idle
// default if none is recorded. Never fails.
func (m *Manager) GetState(sessionID types.SessionID) PlanState {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.states[sessionID]
	if !ok {
		return DefaultPlanState()
	}
	return state.Clone()
}

// HasActivePlan reports whether the session has a proposed or executing
// plan.
func (m *Manager) HasActivePlan(sessionID types.SessionID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[sessionID].Active()
}

// SetState is the sole mutation primitive. It replaces the in-memory
// state, broadcasts a state_changed event, and fires-and-forgets a
// persistence write. Persistence errors are logged, never returned; the
// in-memory state stays authoritative for the life of the process.
//
// Writing an inactive state retires the session's record instead: the
// in-memory entry is removed and the persisted row cleared, since an
// idle plan carries no commitment worth restoring.
func (m *Manager) SetState(ctx context.Context, sessionID types.SessionID, state PlanState) {
	m.mu.Lock()
	m.setStateLocked(ctx, sessionID, state)
	m.mu.Unlock()
}

// setStateLocked stores the state and emits the state_changed event
// while the caller holds m.mu, so broadcasts for a session leave in the
// same order the transitions were applied.
func (m *Manager) setStateLocked(ctx context.Context, sessionID types.SessionID, state PlanState) {
	stored := state.Clone()

	m.publish(ctx, events.NewStateChangedEvent(sessionID,
		stored.Enabled, stored.Executing, stored.Modifying, stored.Todos))

	if !stored.Active() {
		m.retireLocked(sessionID)
		return
	}

	m.states[sessionID] = stored
	m.persistAsync(sessionID, stored)
}

// HandlePlanReady announces a freshly parsed, non-empty plan by
// broadcasting a request_choice event with the proposed steps. It does
// not flip Enabled; the operation reacting to the user's decision
// performs that explicit transition, so a plan can be previewed without
// committing state.
func (m *Manager) HandlePlanReady(ctx context.Context, sessionID types.SessionID, steps []todo.TodoStep) {
	if !m.sessionExists(sessionID) {
		m.logger.Debug("plan ready for unknown session, dropping", "session_id", sessionID)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// A revised plan arriving while a modification was in flight clears
	// the modifying flag on the stored proposal.
	if state, ok := m.states[sessionID]; ok && state.Modifying {
		state.Modifying = false
		state.ModifyMessage = ""
		m.setStateLocked(ctx, sessionID, state)
	}

	m.publish(ctx, events.NewRequestChoiceEvent(sessionID, todo.CloneSteps(steps)))
}

// HandlePlanProgress recomputes completed/total counts across the
// supplied tree and broadcasts a progress event. The caller supplies
// the authoritative, already-updated tree; stored todos are not
// mutated here.
func (m *Manager) HandlePlanProgress(ctx context.Context, sessionID types.SessionID, steps []todo.TodoStep) {
	if !m.sessionExists(sessionID) {
		m.logger.Debug("plan progress for unknown session, dropping", "session_id", sessionID)
		return
	}

	completed, total := todo.CountSteps(steps)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.publish(ctx, events.NewProgressEvent(sessionID, completed, total))
}

// HandlePlanComplete broadcasts a complete event with the final tree.
// Callers follow this with a SetState that resets the session to idle.
func (m *Manager) HandlePlanComplete(ctx context.Context, sessionID types.SessionID, steps []todo.TodoStep) {
	if !m.sessionExists(sessionID) {
		m.logger.Debug("plan complete for unknown session, dropping", "session_id", sessionID)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.publish(ctx, events.NewCompleteEvent(sessionID, todo.CloneSteps(steps)))

	m.logger.Info("plan completed", "session_id", sessionID, "steps", len(steps))
}

// ExecutePlan transitions the session into execution and delivers an
// instruction to the conversation driver. overrideSteps, when non-nil,
// replaces the stored tree (the user edited the plan before
// confirming). Delivery uses a follow-up when a turn is already
// streaming, so at most one instruction is ever in flight per session.
func (m *Manager) ExecutePlan(ctx context.Context, sessionID types.SessionID, overrideSteps []todo.TodoStep) error {
	ctx, span := m.tracer.Start(ctx, "plan.execute")
	defer span.End()
	span.SetAttributes(attribute.String("session_id", sessionID.String()))

	session, ok := m.lookupSession(sessionID)
	if !ok {
		return types.NewError(types.SESSION_NOT_FOUND,
			fmt.Sprintf("no managed session for %s", sessionID))
	}

	m.mu.Lock()
	state := m.states[sessionID]
	if overrideSteps != nil {
		state.Todos = todo.CloneSteps(overrideSteps)
	}
	state.Enabled = false
	state.Executing = true
	state.Modifying = false
	state.ModifyMessage = ""
	m.setStateLocked(ctx, sessionID, state)
	steps := state.Todos
	m.mu.Unlock()

	instruction := buildExecuteInstruction(steps)
	streaming := session.IsStreaming()
	span.SetAttributes(attribute.Bool("streaming", streaming))

	var err error
	if streaming {
		err = session.DeliverFollowUp(ctx, instruction)
	} else {
		err = session.DeliverPrompt(ctx, instruction)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "instruction delivery failed")
		return types.WrapError(types.SESSION_DELIVERY_FAILED,
			"failed to deliver execute instruction", err)
	}

	m.logger.Info("plan execution started",
		"session_id", sessionID,
		"steps", len(steps),
		"via_follow_up", streaming,
	)
	return nil
}

// CancelPlan resets the session to the idle default and broadcasts
// accordingly. Idempotent from any state.
func (m *Manager) CancelPlan(ctx context.Context, sessionID types.SessionID) {
	m.SetState(ctx, sessionID, DefaultPlanState())
	m.logger.Info("plan cancelled", "session_id", sessionID)
}

// retireLocked drops the in-memory record and fires-and-forgets deletion
// of the persisted row. Caller holds m.mu.
func (m *Manager) retireLocked(sessionID types.SessionID) {
	delete(m.states, sessionID)
	m.enqueuePersist(persistOp{sessionID: sessionID, remove: true})
}

// ModifyPlan records an in-flight modification request and forwards its
// text to the conversation driver as a follow-up. The revised tree
// arrives later through HandlePlanReady, not through this operation.
func (m *Manager) ModifyPlan(ctx context.Context, sessionID types.SessionID, message string) error {
	ctx, span := m.tracer.Start(ctx, "plan.modify")
	defer span.End()
	span.SetAttributes(attribute.String("session_id", sessionID.String()))

	session, ok := m.lookupSession(sessionID)
	if !ok {
		m.logger.Warn("modify request for unknown session, dropping", "session_id", sessionID)
		return nil
	}

	m.mu.Lock()
	state := m.states[sessionID]
	if !state.Enabled {
		m.mu.Unlock()
		m.logger.Warn("modify request without a proposed plan, dropping", "session_id", sessionID)
		return nil
	}
	state.Modifying = true
	state.ModifyMessage = message
	m.setStateLocked(ctx, sessionID, state)
	m.mu.Unlock()

	if err := session.DeliverFollowUp(ctx, message); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "modify delivery failed")
		return types.WrapError(types.SESSION_DELIVERY_FAILED,
			"failed to deliver modify request", err)
	}

	m.logger.Info("plan modification requested", "session_id", sessionID)
	return nil
}

// RestoreState re-admits a persisted state at startup. Only states with
// a proposed or executing plan are kept; anything else is stale and
// dropped. No events are broadcast; observers were not connected when
// the state last changed.
func (m *Manager) RestoreState(sessionID types.SessionID, state PlanState) {
	if !state.Active() {
		m.logger.Debug("skipping restore of idle plan state", "session_id", sessionID)
		return
	}

	m.mu.Lock()
	m.states[sessionID] = state.Clone()
	m.mu.Unlock()

	m.logger.Info("restored plan state",
		"session_id", sessionID,
		"enabled", state.Enabled,
		"executing", state.Executing,
		"steps", len(state.Todos),
	)
}

// Close drains outstanding fire-and-forget persistence writes.
// Transitions issued after Close still update in-memory state but are
// no longer persisted.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		m.closed = true
		m.mu.Unlock()
		close(m.persistCh)
	})
	<-m.persistDone
	return nil
}

func (m *Manager) sessionExists(sessionID types.SessionID) bool {
	_, ok := m.lookupSession(sessionID)
	return ok
}

func (m *Manager) lookupSession(sessionID types.SessionID) (ManagedSession, bool) {
	if m.sessions == nil {
		return nil, false
	}
	return m.sessions.GetManagedSession(sessionID)
}

// publish emits an event without blocking. Broadcast failures only mean
// observers miss a push; state stays recoverable via GetState.
func (m *Manager) publish(ctx context.Context, event events.Event) {
	if m.broadcaster == nil {
		return
	}
	if err := m.broadcaster.Publish(ctx, event); err != nil {
		m.logger.Warn("failed to broadcast plan event",
			"session_id", event.SessionID,
			"event_type", event.Type,
			"error", err,
		)
	}
}

// persistAsync queues the state for the persistence worker. The only
// contract is that the store eventually reflects the last known state,
// best effort; retry and durability belong to the persistence adapter.
func (m *Manager) persistAsync(sessionID types.SessionID, state PlanState) {
	m.enqueuePersist(persistOp{sessionID: sessionID, state: state})
}

// enqueuePersist hands an operation to the worker without ever blocking
// a transition. A full queue drops the write; the next transition for
// the session re-persists the then-current state. Callers hold m.mu, so
// the closed check cannot race Close.
func (m *Manager) enqueuePersist(op persistOp) {
	if m.store == nil || m.closed {
		return
	}
	select {
	case m.persistCh <- op:
	default:
		m.logger.Warn("persistence queue full, dropping write",
			"session_id", op.sessionID, "remove", op.remove)
	}
}

// buildExecuteInstruction names the first not-yet-completed top-level
// step, or falls back to a generic instruction when every step is done.
func buildExecuteInstruction(steps []todo.TodoStep) string {
	if next, ok := todo.FirstIncomplete(steps); ok {
		return fmt.Sprintf("Execute the plan. Start with step %d: %s", next.Step, next.Text)
	}
	return "Execute the plan."
}
