// Package errors provides the error taxonomy shared by the npy and npz packages.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	// ErrFormat indicates malformed or unsupported NPY/NPZ content
	ErrFormat = errors.New("invalid format")
	// ErrNotFound indicates a requested archive member does not exist
	ErrNotFound = errors.New("not found")
	// ErrState indicates an operation on a closed handle or a mismatched projection
	ErrState = errors.New("invalid state")
	// ErrInvalidInput indicates invalid input or validation failure
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnsupported indicates an unsupported element type or feature
	ErrUnsupported = errors.New("unsupported")
)

// FormatError reports content that cannot be decoded or encoded as NPY.
// It always matches ErrFormat, and additionally matches whatever Err wraps.
type FormatError struct {
	Op       string // Operation being performed (e.g., "read header", "decode payload")
	Message  string // Human-readable description
	Expected string // Expected value, if applicable
	Actual   string // Actual value, if applicable
	Err      error  // Underlying error, if any
}

func (e *FormatError) Error() string {
	msg := e.Message
	if e.Expected != "" || e.Actual != "" {
		msg = fmt.Sprintf("%s: expected %s, got %s", msg, e.Expected, e.Actual)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Op != "" {
		return fmt.Sprintf("npy: %s: %s", e.Op, msg)
	}
	return "npy: " + msg
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrFormat.
func (e *FormatError) Is(target error) bool {
	return target == ErrFormat
}

// SyntaxError reports a structural mismatch in metadata text.
type SyntaxError struct {
	Pos      int    // Byte offset into the text
	Expected string // What the grammar expected
	Actual   string // The token that was found
	Message  string // Parser message, used when Expected/Actual are unknown
}

func (e *SyntaxError) Error() string {
	if e.Expected != "" {
		return fmt.Sprintf("syntax error at offset %d: expected %s, got %s", e.Pos, e.Expected, e.Actual)
	}
	return fmt.Sprintf("syntax error at offset %d: %s", e.Pos, e.Message)
}

func (e *SyntaxError) Unwrap() error {
	return ErrInvalidInput
}

// LexicalError reports a position in metadata text where no token matches.
type LexicalError struct {
	Pos  int    // Byte offset into the text
	Near string // Text at the failing position
}

func (e *LexicalError) Error() string {
	return fmt.Sprintf("lexical error at offset %d near %q", e.Pos, e.Near)
}

func (e *LexicalError) Unwrap() error {
	return ErrInvalidInput
}

// NotFoundError represents a resource not found error with context
type NotFoundError struct {
	Resource string // Type of resource (e.g., "array", "member")
	ID       string // Identifier of the resource
	Err      error  // Underlying error, if any
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e *NotFoundError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrNotFound
}

// StateError reports an operation that is not valid in the current state.
type StateError struct {
	Operation string // Operation that was attempted
	Reason    string // Why it is not allowed
}

func (e *StateError) Error() string {
	if e.Operation != "" {
		return fmt.Sprintf("cannot %s: %s", e.Operation, e.Reason)
	}
	return e.Reason
}

func (e *StateError) Unwrap() error {
	return ErrState
}

// ValidationError represents an input validation error with context
type ValidationError struct {
	Field   string // Field name that failed validation
	Value   string // Value that failed validation (may be truncated)
	Message string // Human-readable error message
	Err     error  // Underlying error, if any
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidInput
}

// Is reports whether target is ErrInvalidInput.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// IOError represents an I/O operation error with context
type IOError struct {
	Operation string // Operation being performed (e.g., "read", "write", "open")
	Path      string // File/resource path involved
	Err       error  // Underlying error
}

func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to %s %s: %v", e.Operation, e.Path, e.Err)
	}
	return fmt.Sprintf("failed to %s: %v", e.Operation, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// UnsupportedError represents an unsupported feature or format
type UnsupportedError struct {
	Feature string // Feature or format that is unsupported
	Reason  string // Why it's not supported
	Err     error  // Underlying error, if any
}

func (e *UnsupportedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("unsupported %s: %s", e.Feature, e.Reason)
	}
	return fmt.Sprintf("unsupported %s", e.Feature)
}

func (e *UnsupportedError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrUnsupported
}

// Helper functions for creating common errors

// NewFormat creates a FormatError
func NewFormat(op, message string) *FormatError {
	return &FormatError{
		Op:      op,
		Message: message,
	}
}

// NewMismatch creates a FormatError reporting an expected and an actual value
func NewMismatch(op, message string, expected, actual any) *FormatError {
	return &FormatError{
		Op:       op,
		Message:  message,
		Expected: fmt.Sprint(expected),
		Actual:   fmt.Sprint(actual),
	}
}

// NewNotFound creates a NotFoundError
func NewNotFound(resource, id string) *NotFoundError {
	return &NotFoundError{
		Resource: resource,
		ID:       id,
	}
}

// NewState creates a StateError
func NewState(operation, reason string) *StateError {
	return &StateError{
		Operation: operation,
		Reason:    reason,
	}
}

// NewValidation creates a ValidationError
func NewValidation(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// NewIO creates an IOError
func NewIO(operation, path string, err error) *IOError {
	return &IOError{
		Operation: operation,
		Path:      path,
		Err:       err,
	}
}

// NewUnsupported creates an UnsupportedError
func NewUnsupported(feature, reason string) *UnsupportedError {
	return &UnsupportedError{
		Feature: feature,
		Reason:  reason,
	}
}

// Wrap adds context to an error. If err is nil, returns nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf adds formatted context to an error. If err is nil, returns nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// Is wraps errors.Is for convenience
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
