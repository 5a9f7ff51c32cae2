package types

import (
	"errors"
	"fmt"
	"testing"
)

func TestEngineError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *EngineError
		want string
	}{
		{
			name: "without cause",
			err:  NewError(SESSION_NOT_FOUND, "no session for id"),
			want: "[SESSION_NOT_FOUND] no session for id",
		},
		{
			name: "with cause",
			err:  WrapError(STORE_SAVE_FAILED, "persist failed", errors.New("disk full")),
			want: "[STORE_SAVE_FAILED] persist failed: disk full",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEngineError_Is(t *testing.T) {
	err := WrapError(STORE_SAVE_FAILED, "persist failed", errors.New("disk full"))

	if !errors.Is(err, NewError(STORE_SAVE_FAILED, "anything")) {
		t.Error("errors.Is should match on code")
	}
	if errors.Is(err, NewError(STORE_LOAD_FAILED, "anything")) {
		t.Error("errors.Is should not match different codes")
	}
}

func TestEngineError_Unwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := WrapError(STORE_SAVE_FAILED, "persist failed", cause)

	if !errors.Is(err, cause) {
		t.Error("wrapped cause should be reachable via errors.Is")
	}

	wrapped := fmt.Errorf("outer: %w", err)
	var engineErr *EngineError
	if !errors.As(wrapped, &engineErr) {
		t.Fatal("errors.As should find EngineError in chain")
	}
	if engineErr.Code != STORE_SAVE_FAILED {
		t.Errorf("code = %s, want STORE_SAVE_FAILED", engineErr.Code)
	}
}

func TestNewRetryableError(t *testing.T) {
	err := NewRetryableError(DB_QUERY_FAILED, "busy")
	if !err.Retryable {
		t.Error("NewRetryableError should set Retryable")
	}
	if NewError(DB_QUERY_FAILED, "busy").Retryable {
		t.Error("NewError should not set Retryable")
	}
}
