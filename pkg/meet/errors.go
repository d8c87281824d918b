package meet

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation matches every *ValidationError via errors.Is.
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrInUse      = errors.New("still referenced")
	ErrForbidden  = errors.New("not permitted")
)

// ValidationError rejects a write before anything is persisted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

var (
	ErrDuplicateRegistration = &ValidationError{Field: "studentId", Reason: "student is already registered for this event"}
	ErrEventFull             = &ValidationError{Field: "eventId", Reason: "event has reached its participant limit"}
	ErrNoEligibleResults     = &ValidationError{Reason: "no results match the certificate filter"}
	ErrMeetInfoMissing       = &ValidationError{Field: "meetInfo", Reason: "meet information is not configured"}
	ErrNotApproved           = &ValidationError{Field: "registrationId", Reason: "registration is not approved"}
	ErrResultExists          = &ValidationError{Field: "registrationId", Reason: "a result is already recorded for this registration"}
)

func required(field string) error {
	return &ValidationError{Field: field, Reason: "is required"}
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
}

func inUse(kind, id, by string) error {
	return fmt.Errorf("%s %s is referenced by %s: %w", kind, id, by, ErrInUse)
}
