package types

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// SessionID identifies a single ongoing conversation. A session owns at
// most one plan state at a time, so every plan engine operation is keyed
// by SessionID.
type SessionID string

// NewSessionID generates a new random session identifier (UUID v4).
func NewSessionID() SessionID {
	return SessionID(uuid.New().String())
}

// ParseSessionID parses and validates a string as a session identifier.
// It returns an error if the string is empty or not a valid UUID.
func ParseSessionID(s string) (SessionID, error) {
	if s == "" {
		return "", fmt.Errorf("session ID cannot be empty")
	}

	parsed, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid session ID format: %w", err)
	}

	return SessionID(parsed.String()), nil
}

// Validate checks that the session ID is a well-formed UUID.
func (id SessionID) Validate() error {
	if id == "" {
		return fmt.Errorf("session ID cannot be empty")
	}

	if _, err := uuid.Parse(string(id)); err != nil {
		return fmt.Errorf("invalid session ID format: %w", err)
	}

	return nil
}

// String returns the string representation of the session ID.
func (id SessionID) String() string {
	return string(id)
}

// IsZero reports whether the session ID is empty.
func (id SessionID) IsZero() bool {
	return id == ""
}

// MarshalJSON implements json.Marshaler, encoding the ID as a JSON
// string and the zero value as null.
func (id SessionID) MarshalJSON() ([]byte, error) {
	if id.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(string(id))
}

// UnmarshalJSON implements json.Unmarshaler. Empty strings decode to the
// zero value; anything else must be a valid UUID.
func (id *SessionID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("failed to unmarshal session ID: %w", err)
	}

	if s == "" {
		*id = ""
		return nil
	}

	parsed, err := ParseSessionID(s)
	if err != nil {
		return err
	}

	*id = parsed
	return nil
}
