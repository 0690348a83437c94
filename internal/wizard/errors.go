package wizard

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTransitionUnavailable is returned when an action is not offered at the current step.
	ErrTransitionUnavailable = errors.New("transition not available at current step")
	// ErrFieldNotOnStep is returned when editing a field that the visible step does not show.
	ErrFieldNotOnStep = errors.New("field is not editable on the current step")
	// ErrUnknownField is returned for a field name outside the draft.
	ErrUnknownField = errors.New("unknown field")
	// ErrInvalidValue is returned when a value cannot be stored in the given field.
	ErrInvalidValue = errors.New("invalid value")
	// ErrLocked is returned when the draft is edited while a submission is in flight or a result is shown.
	ErrLocked = errors.New("draft is locked")
	// ErrIncomplete is returned when required fields are empty.
	ErrIncomplete = errors.New("required fields missing")
	// ErrBusy is returned when a submission is already in flight.
	ErrBusy = errors.New("submission already in flight")
	// ErrClosed is returned for any operation on a closed session.
	ErrClosed = errors.New("session closed")
	// ErrSessionNotFound is returned by the registry for unknown ids.
	ErrSessionNotFound = errors.New("session not found")
)

// IncompleteError lists the required fields that were empty.
type IncompleteError struct {
	Fields []Field
}

func (e *IncompleteError) Error() string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = string(f)
	}
	return fmt.Sprintf("required fields missing: %s", strings.Join(names, ", "))
}

// Is makes errors.Is(err, ErrIncomplete) hold.
func (e *IncompleteError) Is(target error) bool {
	return target == ErrIncomplete
}

// ParseError collects the fields whose text could not be coerced to a number.
type ParseError struct {
	Fields map[Field]error
}

func (e *ParseError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range allFields {
		if err, ok := e.Fields[f]; ok {
			parts = append(parts, fmt.Sprintf("%s: %v", f, err))
		}
	}
	return "parsing draft: " + strings.Join(parts, "; ")
}

// Is makes errors.Is(err, ErrInvalidValue) hold.
func (e *ParseError) Is(target error) bool {
	return target == ErrInvalidValue
}
