// Package apperr defines the error taxonomy shared by the domain engines and services.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/garyjia/trip-finance/pkg/utils"
)

// Sentinel kinds. Typed errors below match these through errors.Is.
var (
	ErrValidation           = errors.New("validation failed")
	ErrGating               = errors.New("cannot proceed")
	ErrPermission           = errors.New("permission denied")
	ErrConfirmationMismatch = errors.New("confirmation mismatch")
	ErrNoChange             = errors.New("no changes detected")
	ErrNotFound             = errors.New("not found")
	ErrConflict             = errors.New("conflict")
)

// Kind classifies a single field failure
type Kind string

const (
	KindRequired             Kind = "required"
	KindInvalid              Kind = "invalid"
	KindNotPositive          Kind = "not_positive"
	KindNegative             Kind = "negative"
	KindReserved             Kind = "reserved"
	KindOutOfOrder           Kind = "out_of_order"
	KindMissingDocumentation Kind = "missing_documentation"
)

// FieldError is one field-level failure
type FieldError struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// ValidationError carries every field failure found in one pass
type ValidationError struct {
	Fields map[string]FieldError `json:"fields"`
}

// NewValidationError returns an empty validation result
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string]FieldError)}
}

// Add records a failure for field. The first failure per field wins.
func (e *ValidationError) Add(field string, kind Kind, message string) {
	if _, exists := e.Fields[field]; exists {
		return
	}
	e.Fields[field] = FieldError{Kind: kind, Message: message}
}

// Has reports whether field failed
func (e *ValidationError) Has(field string) bool {
	_, ok := e.Fields[field]
	return ok
}

// KindOf returns the failure kind recorded for field
func (e *ValidationError) KindOf(field string) Kind {
	return e.Fields[field].Kind
}

// HasErrors reports whether any field failed
func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

// OrNil returns the error when it holds failures, nil otherwise
func (e *ValidationError) OrNil() error {
	if e == nil || !e.HasErrors() {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, e.Fields[name].Message))
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(parts, "; "))
}

// Is matches ErrValidation
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Collect folds validator/v10 failures into e. Other errors are recorded under "_".
func (e *ValidationError) Collect(err error) {
	if err == nil {
		return
	}
	violations, ok := utils.Violations(err)
	if !ok {
		e.Add("_", KindInvalid, err.Error())
		return
	}
	for _, v := range violations {
		label := utils.HumanizeField(v.Field)
		switch v.Tag {
		case "required":
			e.Add(v.Field, KindRequired, fmt.Sprintf("%s is required", label))
		case "gt":
			e.Add(v.Field, KindNotPositive, fmt.Sprintf("%s must be greater than zero", label))
		case "gte":
			e.Add(v.Field, KindNegative, fmt.Sprintf("%s cannot be negative", label))
		default:
			e.Add(v.Field, KindInvalid, fmt.Sprintf("%s is invalid", label))
		}
	}
}

// Invalid builds a validation error for a single field
func Invalid(field string, kind Kind, message string) *ValidationError {
	e := NewValidationError()
	e.Add(field, kind, message)
	return e
}

// GatingError reports the unmet condition that blocked a workflow transition
type GatingError struct {
	Step      string `json:"step"`
	Condition string `json:"condition"`
	Detail    string `json:"detail,omitempty"`
}

func (e *GatingError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s from step %s: %s (%s)", ErrGating, e.Step, e.Condition, e.Detail)
	}
	return fmt.Sprintf("%s from step %s: %s", ErrGating, e.Step, e.Condition)
}

// Is matches ErrGating
func (e *GatingError) Is(target error) bool {
	return target == ErrGating
}

// PermissionError reports an actor attempting an action their role does not allow
type PermissionError struct {
	Action string `json:"action"`
	Role   string `json:"role"`
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("%s: role %q may not %s", ErrPermission, e.Role, e.Action)
}

// Is matches ErrPermission
func (e *PermissionError) Is(target error) bool {
	return target == ErrPermission
}

// ConfirmationMismatchError reports a typed confirmation phrase that did not match
type ConfirmationMismatchError struct {
	Expected string `json:"expected"`
}

func (e *ConfirmationMismatchError) Error() string {
	return fmt.Sprintf("%s: type %q to confirm", ErrConfirmationMismatch, e.Expected)
}

// Is matches ErrConfirmationMismatch
func (e *ConfirmationMismatchError) Is(target error) bool {
	return target == ErrConfirmationMismatch
}

// NoChangeError reports an edit whose before and after snapshots are identical
type NoChangeError struct {
	TripID string `json:"trip_id"`
}

func (e *NoChangeError) Error() string {
	return fmt.Sprintf("%s for trip %s", ErrNoChange, e.TripID)
}

// Is matches ErrNoChange
func (e *NoChangeError) Is(target error) bool {
	return target == ErrNoChange
}

// NotFound wraps ErrNotFound with the missing resource
func NotFound(resource, id string) error {
	return fmt.Errorf("%s %s: %w", resource, id, ErrNotFound)
}

// Conflict wraps ErrConflict with a reason
func Conflict(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

// Code returns a stable machine-readable code for err
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "VALIDATION_ERROR"
	case errors.Is(err, ErrGating):
		return "CANNOT_PROCEED"
	case errors.Is(err, ErrPermission):
		return "PERMISSION_DENIED"
	case errors.Is(err, ErrConfirmationMismatch):
		return "CONFIRMATION_MISMATCH"
	case errors.Is(err, ErrNoChange):
		return "NO_CHANGE"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrConflict):
		return "CONFLICT"
	default:
		return "INTERNAL_ERROR"
	}
}

// HTTPStatus maps err onto a response status
func HTTPStatus(err error) int {
	switch Code(err) {
	case "":
		return http.StatusOK
	case "VALIDATION_ERROR", "CONFIRMATION_MISMATCH":
		return http.StatusBadRequest
	case "CANNOT_PROCEED", "NO_CHANGE":
		return http.StatusUnprocessableEntity
	case "PERMISSION_DENIED":
		return http.StatusForbidden
	case "NOT_FOUND":
		return http.StatusNotFound
	case "CONFLICT":
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
