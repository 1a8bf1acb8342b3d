package instruction

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Classification(t *testing.T) {
	valErr := NewValidationError("missing input", nil)
	execErr := NewExecutionError("body failed", nil)
	compErr := NewCompositionError("child failed", nil)

	if !IsValidationFailure(valErr) || IsExecutionFailure(valErr) || IsCompositionFailure(valErr) {
		t.Error("Expected validation classification only")
	}
	if !IsExecutionFailure(execErr) || IsValidationFailure(execErr) {
		t.Error("Expected execution classification only")
	}
	if !IsCompositionFailure(compErr) || IsExecutionFailure(compErr) {
		t.Error("Expected composition classification only")
	}
	if IsValidationFailure(errors.New("plain")) {
		t.Error("Expected plain errors not to classify")
	}
}

func TestError_MessageFormat(t *testing.T) {
	err := NewCompositionError("child instruction failed", nil).WithInstruction("part1")

	msg := err.Error()
	if !strings.Contains(msg, "composition") {
		t.Errorf("Expected class in message, got %q", msg)
	}
	if !strings.Contains(msg, "part1") {
		t.Errorf("Expected instruction name in message, got %q", msg)
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := NewExecutionError("wrapper", cause)

	if !errors.Is(err, cause) {
		t.Error("Expected errors.Is to find the wrapped cause")
	}
	wrapped := fmt.Errorf("outer: %w", err)
	var target *Error
	if !errors.As(wrapped, &target) {
		t.Fatal("Expected errors.As to find the instruction error")
	}
	if target.Class != ErrorClassExecution {
		t.Errorf("Expected execution class, got %s", target.Class)
	}
}

func TestError_WithDetail(t *testing.T) {
	err := NewValidationError("bad context", nil).
		WithDetail("key", "input").
		WithDetail("expected", "string")

	if err.Details["key"] != "input" || err.Details["expected"] != "string" {
		t.Errorf("Expected details recorded, got %v", err.Details)
	}
}
