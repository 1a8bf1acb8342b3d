package instruction

import (
	"encoding/json"
	"fmt"
)

// Status represents the execution status of an instruction.
type Status string

const (
	// StatusPending indicates the instruction has not been executed yet.
	StatusPending Status = "pending"

	// StatusRunning indicates the instruction is currently executing.
	// This state is transient and only occupied for the duration of one
	// Execute call.
	StatusRunning Status = "running"

	// StatusCompleted indicates the instruction completed successfully.
	StatusCompleted Status = "completed"

	// StatusFailed indicates the instruction failed.
	StatusFailed Status = "failed"
)

// IsTerminal returns true if the status represents a final outcome of an
// Execute call.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Validate checks if the status is valid.
func (s Status) Validate() error {
	switch s {
	case StatusPending, StatusRunning, StatusCompleted, StatusFailed:
		return nil
	default:
		return fmt.Errorf("invalid instruction status: %s", s)
	}
}

// MarshalJSON implements custom JSON marshaling for type-safe enum serialization.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}

// UnmarshalJSON implements custom JSON unmarshaling with validation.
func (s *Status) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	*s = Status(str)
	return s.Validate()
}
