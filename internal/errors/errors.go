// Package errors consolidates the error definitions for the minidas module.
//
// This file provides:
// - Sentinel errors for all error conditions
// - Error category checking functions
// - Error wrapping utilities
// - The Violations collector used by schema validation
package errors

import (
	"errors"
	"fmt"
)

// ============================================================================
// Sentinel errors for common conditions
// ============================================================================

var (
	// File-level errors
	ErrAlreadyExists      = errors.New("already exists")
	ErrNotAContainer      = errors.New("not a miniDAS container")
	ErrUnsupportedVersion = errors.New("unsupported container version")
	ErrCorrupted          = errors.New("container corrupted")
	ErrClosed             = errors.New("container is closed")

	// Validation errors
	ErrSchemaViolation      = errors.New("schema violation")
	ErrUnsupportedValueKind = errors.New("unsupported metadata value kind")
	ErrInvalidKey           = errors.New("invalid metadata key")
	ErrInvalidDType         = errors.New("invalid data type")

	// Call errors
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrInvalidRange     = errors.New("invalid range")
	ErrIndexOutOfBounds = errors.New("index out of bounds")
	ErrShapeMismatch    = errors.New("shape mismatch")
)

// ============================================================================
// Helper functions for error checking
// ============================================================================

// Is is a convenience wrapper for errors.Is
var Is = errors.Is

// As is a convenience wrapper for errors.As
var As = errors.As

// New is a convenience wrapper for errors.New
var New = errors.New

// IsOpenError returns true if err indicates that a file could not be
// opened as a container (as opposed to an I/O fault).
func IsOpenError(err error) bool {
	return errors.Is(err, ErrNotAContainer) ||
		errors.Is(err, ErrUnsupportedVersion) ||
		errors.Is(err, ErrCorrupted)
}

// IsValidation returns true if err is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrSchemaViolation) ||
		errors.Is(err, ErrUnsupportedValueKind) ||
		errors.Is(err, ErrInvalidKey) ||
		errors.Is(err, ErrInvalidDType)
}

// IsSliceError returns true if err comes from slicing arithmetic.
func IsSliceError(err error) bool {
	return errors.Is(err, ErrInvalidRange) ||
		errors.Is(err, ErrIndexOutOfBounds)
}

// ============================================================================
// Error wrapping utilities
// ============================================================================

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// ============================================================================
// Error constructors with context
// ============================================================================

// NewAlreadyExists creates an already-exists error for a destination path.
func NewAlreadyExists(path string) error {
	return fmt.Errorf("%s: %w (use overwrite to replace)", path, ErrAlreadyExists)
}

// NewNotAContainer creates a not-a-container error for a path.
func NewNotAContainer(path, reason string) error {
	return fmt.Errorf("%s: %s: %w", path, reason, ErrNotAContainer)
}

// NewUnsupportedVersion creates a version mismatch error.
func NewUnsupportedVersion(got, want int) error {
	return fmt.Errorf("container version %d, reader supports %d: %w", got, want, ErrUnsupportedVersion)
}

// NewUnsupportedValueKind creates an unsupported-value error naming the
// metadata path that carries the offending value.
func NewUnsupportedValueKind(path string, value interface{}) error {
	return fmt.Errorf("field %q holds %T: %w", path, value, ErrUnsupportedValueKind)
}

// NewInvalidParameter creates an invalid parameter error.
func NewInvalidParameter(name string, value interface{}, reason string) error {
	return fmt.Errorf("parameter %s=%v: %s: %w", name, value, reason, ErrInvalidParameter)
}

// ============================================================================
// Violations Collection
// ============================================================================

// Violations collects schema violations so a caller gets the complete
// diagnostic in one pass instead of one failure at a time.
type Violations struct {
	Items []string
}

// Add records a violation for a field.
func (v *Violations) Add(field, reason string) {
	v.Items = append(v.Items, fmt.Sprintf("%s: %s", field, reason))
}

// HasViolations returns true if any violation was recorded.
func (v *Violations) HasViolations() bool {
	return len(v.Items) > 0
}

// Error implements the error interface.
func (v *Violations) Error() string {
	if len(v.Items) == 0 {
		return ""
	}
	if len(v.Items) == 1 {
		return fmt.Sprintf("schema violation: %s", v.Items[0])
	}

	msg := fmt.Sprintf("schema validation failed with %d violations:", len(v.Items))
	for _, item := range v.Items {
		msg += "\n  - " + item
	}
	return msg
}

// Err returns nil if no violations were recorded, otherwise an error
// wrapping ErrSchemaViolation that carries the itemized report.
func (v *Violations) Err() error {
	if len(v.Items) == 0 {
		return nil
	}
	return fmt.Errorf("%s: %w", v.Error(), ErrSchemaViolation)
}
