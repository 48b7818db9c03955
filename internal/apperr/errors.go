// Package apperr defines the error taxonomy shared by the catalog services.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors. Match them with errors.Is.
var (
	ErrNotFound             = errors.New("NOT_FOUND")
	ErrValidation           = errors.New("VALIDATION_ERROR")
	ErrDuplicateSlug        = errors.New("DUPLICATE_SLUG")
	ErrDuplicateSKU         = errors.New("DUPLICATE_SKU")
	ErrEmptySelection       = errors.New("EMPTY_SELECTION")
	ErrDuplicateCombination = errors.New("DUPLICATE_COMBINATION")
	ErrReconciliationFailed = errors.New("RECONCILIATION_FAILED")
	ErrInUse                = errors.New("IN_USE")
)

// FieldError ties a failure to one input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	err     error
}

// Error implements error.
func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap exposes the sentinel the field error was built from.
func (e *FieldError) Unwrap() error {
	return e.err
}

// Field builds a FieldError that unwraps to kind.
func Field(kind error, field, message string) *FieldError {
	return &FieldError{Field: field, Message: message, err: kind}
}

// ValidationError collects every field-level problem found in one input.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

// Error implements error.
func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Is reports ErrValidation so callers do not need errors.As for the common case.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Add records a problem for field.
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message, err: ErrValidation})
}

// Merge appends the fields of other, prefixing them with prefix when not empty.
func (e *ValidationError) Merge(prefix string, other *ValidationError) {
	if other == nil {
		return
	}
	for _, f := range other.Fields {
		if prefix != "" {
			f.Field = prefix + "." + f.Field
		}
		e.Fields = append(e.Fields, f)
	}
}

// OrNil returns nil when no field failed, so it can be returned directly.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// Invalid builds a ValidationError with a single field.
func Invalid(field, message string) error {
	v := &ValidationError{}
	v.Add(field, message)
	return v
}

// Reconciliation wraps a storage failure that happened while syncing variants.
func Reconciliation(cause error) error {
	return fmt.Errorf("%w: %w", ErrReconciliationFailed, cause)
}

// IsDomain reports whether err belongs to the taxonomy above. Anything else is
// an infrastructure failure.
func IsDomain(err error) bool {
	for _, target := range []error{
		ErrNotFound, ErrValidation, ErrDuplicateSlug, ErrDuplicateSKU,
		ErrEmptySelection, ErrDuplicateCombination, ErrReconciliationFailed, ErrInUse,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
