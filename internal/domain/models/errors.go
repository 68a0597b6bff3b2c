package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks input that was rejected before any mutation.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks an unknown farmer, transaction or loan within the caller's scope.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks a concurrent write detected while saving a farmer.
	// The whole operation should be retried from a fresh read.
	ErrConflict = errors.New("concurrent modification")

	// ErrDuplicate marks an attempt to register an already used farmer id.
	ErrDuplicate = errors.New("already exists")

	// ErrPersistence marks an unavailable or failing storage backend.
	ErrPersistence = errors.New("persistence failure")
)

// Validation codes.
const (
	CodeRequired      = "REQUIRED"
	CodeAmountInvalid = "AMOUNT_INVALID"
	CodeInvalid       = "INVALID"
)

// ValidationError describes a rejected field.
type ValidationError struct {
	Field   string
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", strings.ToLower(e.Code), e.Message)
	}
	return fmt.Sprintf("%s %s: %s", e.Field, strings.ToLower(e.Code), e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Required builds a ValidationError for a missing field.
func Required(field string) error {
	return &ValidationError{Field: field, Code: CodeRequired, Message: "is required"}
}

// AmountInvalid builds a ValidationError for a negative or out of range amount.
func AmountInvalid(field, message string) error {
	return &ValidationError{Field: field, Code: CodeAmountInvalid, Message: message}
}

// Invalid builds a ValidationError for a malformed value.
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Code: CodeInvalid, Message: message}
}

// NotFound wraps ErrNotFound with the kind of entity that was missing.
func NotFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
}

// IsRetryable reports whether the error is worth retrying from a fresh read.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict)
}

func normalizeLabel(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
