// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrSymbolNotFound    = errors.New("symbol not found")
	ErrAlertNotFound     = errors.New("alert not found")
	ErrInvalidSymbol     = errors.New("invalid symbol")
	ErrDuplicateAlert    = errors.New("duplicate active alert")
	ErrSourceUnavailable = errors.New("source unavailable")
	ErrParse             = errors.New("unparseable record")
	ErrDatabaseError     = errors.New("database error")
	ErrConfigInvalid     = errors.New("invalid configuration")
	ErrInputValidation   = errors.New("input validation failed")
	ErrTimeout           = errors.New("operation timed out")
)

// ParseError reports a raw record that could not be normalized.
type ParseError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error: %s %q: %s", e.Field, e.Value, e.Reason)
}

// Unwrap lets errors.Is match ErrParse.
func (e *ParseError) Unwrap() error {
	return ErrParse
}

// NewParseError creates a new ParseError.
func NewParseError(field, value, reason string) *ParseError {
	return &ParseError{
		Field:  field,
		Value:  value,
		Reason: reason,
	}
}

// SourceError represents a failure of a single source adapter.
type SourceError struct {
	Source string
	Symbol string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source error [%s] %s: %v", e.Source, e.Symbol, e.Err)
}

func (e *SourceError) Unwrap() []error {
	return []error{ErrSourceUnavailable, e.Err}
}

// NewSourceError creates a new SourceError.
func NewSourceError(source, symbol string, err error) *SourceError {
	return &SourceError{
		Source: source,
		Symbol: symbol,
		Err:    err,
	}
}

// StoreError represents a persistence failure.
type StoreError struct {
	Operation string
	Err       error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store error [%s]: %v", e.Operation, e.Err)
}

func (e *StoreError) Unwrap() []error {
	return []error{ErrDatabaseError, e.Err}
}

// NewStoreError creates a new StoreError. It returns nil for a nil err.
func NewStoreError(operation string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{
		Operation: operation,
		Err:       err,
	}
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInputValidation
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

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

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
