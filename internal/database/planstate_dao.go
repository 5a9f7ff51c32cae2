package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/planforge/planmode/internal/plan"
	"github.com/planforge/planmode/internal/todo"
	"github.com/planforge/planmode/internal/types"
)

// RestoredState pairs a session with its persisted plan state, as
// returned by the startup restore scan.
type RestoredState struct {
	SessionID types.SessionID
	State     plan.PlanState
}

// PlanStateDAO provides database operations for persisted plan state.
// It implements the plan manager's Store interface.
type PlanStateDAO interface {
	Save(ctx context.Context, sessionID types.SessionID, state plan.PlanState) error
	Load(ctx context.Context, sessionID types.SessionID) (plan.PlanState, bool, error)
	Delete(ctx context.Context, sessionID types.SessionID) error

	// ListActive returns every persisted state with a proposed or
	// executing plan. Used once, at startup, to rebuild the in-memory map.
	ListActive(ctx context.Context) ([]RestoredState, error)
}

type planStateDAO struct {
	db     *DB
	logger *slog.Logger
}

// NewPlanStateDAO creates a PlanStateDAO backed by the given database.
func NewPlanStateDAO(db *DB, logger *slog.Logger) PlanStateDAO {
	if logger == nil {
		logger = slog.Default()
	}
	return &planStateDAO{
		db:     db,
		logger: logger.With("component", "planstate_dao"),
	}
}

// Save upserts the session's plan state.
func (d *planStateDAO) Save(ctx context.Context, sessionID types.SessionID, state plan.PlanState) error {
	todos, err := json.Marshal(stepsOrEmpty(state.Todos))
	if err != nil {
		return types.WrapError(types.STORE_SAVE_FAILED, "failed to encode todos", err)
	}

	query := `
		INSERT INTO plan_states (
			session_id, enabled, executing, modifying, modify_message, todos, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			enabled = excluded.enabled,
			executing = excluded.executing,
			modifying = excluded.modifying,
			modify_message = excluded.modify_message,
			todos = excluded.todos,
			updated_at = excluded.updated_at
	`

	_, err = d.db.ExecContext(ctx, query,
		sessionID.String(),
		state.Enabled,
		state.Executing,
		state.Modifying,
		state.ModifyMessage,
		string(todos),
		time.Now().UTC(),
	)
	if err != nil {
		return types.WrapError(types.STORE_SAVE_FAILED, "failed to save plan state", err)
	}

	return nil
}

// Load reads the session's persisted plan state. A missing row, or a
// row whose todos no longer decode, reports not-found; a malformed
// record is no better than no record.
func (d *planStateDAO) Load(ctx context.Context, sessionID types.SessionID) (plan.PlanState, bool, error) {
	query := `
		SELECT enabled, executing, modifying, modify_message, todos
		FROM plan_states
		WHERE session_id = ?
	`

	var (
		state plan.PlanState
		todos string
	)
	err := d.db.QueryRowContext(ctx, query, sessionID.String()).Scan(
		&state.Enabled,
		&state.Executing,
		&state.Modifying,
		&state.ModifyMessage,
		&todos,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return plan.PlanState{}, false, nil
	}
	if err != nil {
		return plan.PlanState{}, false, types.WrapError(types.STORE_LOAD_FAILED, "failed to load plan state", err)
	}

	if err := json.Unmarshal([]byte(todos), &state.Todos); err != nil {
		d.logger.Warn("discarding plan state with malformed todos",
			"session_id", sessionID, "error", err)
		return plan.PlanState{}, false, nil
	}

	return state, true, nil
}

// Delete removes the session's persisted plan state. Deleting a missing
// row is a no-op.
func (d *planStateDAO) Delete(ctx context.Context, sessionID types.SessionID) error {
	_, err := d.db.ExecContext(ctx, "DELETE FROM plan_states WHERE session_id = ?", sessionID.String())
	if err != nil {
		return types.WrapError(types.STORE_DELETE_FAILED, "failed to delete plan state", err)
	}
	return nil
}

// ListActive returns all persisted states with enabled or executing set.
// Rows that fail to decode are skipped with a warning; a corrupt record
// must never abort the whole restore.
func (d *planStateDAO) ListActive(ctx context.Context) ([]RestoredState, error) {
	query := `
		SELECT session_id, enabled, executing, modifying, modify_message, todos
		FROM plan_states
		WHERE enabled = 1 OR executing = 1
		ORDER BY session_id
	`

	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, types.WrapError(types.STORE_LOAD_FAILED, "failed to list active plan states", err)
	}
	defer rows.Close()

	var restored []RestoredState
	for rows.Next() {
		var (
			rawID string
			state plan.PlanState
			todos string
		)
		if err := rows.Scan(&rawID, &state.Enabled, &state.Executing,
			&state.Modifying, &state.ModifyMessage, &todos); err != nil {
			return nil, types.WrapError(types.STORE_LOAD_FAILED, "failed to scan plan state row", err)
		}

		sessionID, err := types.ParseSessionID(rawID)
		if err != nil {
			d.logger.Warn("skipping plan state with invalid session id",
				"session_id", rawID, "error", err)
			continue
		}
		if err := json.Unmarshal([]byte(todos), &state.Todos); err != nil {
			d.logger.Warn("skipping plan state with malformed todos",
				"session_id", rawID, "error", err)
			continue
		}

		restored = append(restored, RestoredState{SessionID: sessionID, State: state})
	}
	if err := rows.Err(); err != nil {
		return nil, types.WrapError(types.STORE_LOAD_FAILED, "failed to iterate plan state rows", err)
	}

	return restored, nil
}

// stepsOrEmpty keeps the persisted todos column a JSON array even when
// the tree is nil, so "no subtasks" and "empty subtasks" stay
// indistinguishable across a round trip.
func stepsOrEmpty(steps []todo.TodoStep) []todo.TodoStep {
	if steps == nil {
		return []todo.TodoStep{}
	}
	return steps
}
