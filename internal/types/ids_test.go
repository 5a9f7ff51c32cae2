package types

import (
	"encoding/json"
	"testing"
)

func TestNewSessionID(t *testing.T) {
	id := NewSessionID()

	if id.IsZero() {
		t.Fatal("NewSessionID() returned zero ID")
	}
	if err := id.Validate(); err != nil {
		t.Errorf("NewSessionID() produced invalid ID: %v", err)
	}

	// Two generated IDs must differ
	other := NewSessionID()
	if id == other {
		t.Errorf("NewSessionID() returned duplicate IDs: %s", id)
	}
}

func TestParseSessionID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{
			name:    "valid uuid",
			input:   "6ba7b810-9dad-11d1-80b4-00c04fd430c8",
			wantErr: false,
		},
		{
			name:    "empty string",
			input:   "",
			wantErr: true,
		},
		{
			name:    "not a uuid",
			input:   "session-42",
			wantErr: true,
		},
		{
			name:    "truncated uuid",
			input:   "6ba7b810-9dad-11d1-80b4",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := ParseSessionID(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSessionID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && id.String() != tt.input {
				t.Errorf("ParseSessionID(%q) = %q", tt.input, id)
			}
		})
	}
}

func TestSessionID_JSONRoundTrip(t *testing.T) {
	id := NewSessionID()

	data, err := json.Marshal(id)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var decoded SessionID
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if decoded != id {
		t.Errorf("round trip = %s, want %s", decoded, id)
	}
}

func TestSessionID_MarshalZero(t *testing.T) {
	var id SessionID

	data, err := json.Marshal(id)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != "null" {
		t.Errorf("Marshal(zero) = %s, want null", data)
	}
}

func TestSessionID_UnmarshalInvalid(t *testing.T) {
	var id SessionID
	if err := json.Unmarshal([]byte(`"not-a-uuid"`), &id); err == nil {
		t.Error("Unmarshal accepted invalid UUID")
	}
}
