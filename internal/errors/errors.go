// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrNotFound               = errors.New("not found")
	ErrConflict               = errors.New("conflict")
	ErrExpired                = errors.New("expired")
	ErrAlreadyResolved        = errors.New("session already resolved")
	ErrAlreadyConsumed        = errors.New("approval already consumed")
	ErrUnknownExercise        = errors.New("unknown exercise")
	ErrExerciseNotSatisfied   = errors.New("exercise requirements not satisfied")
	ErrTemporarilyUnavailable = errors.New("temporarily unavailable")
	ErrConfigInvalid          = errors.New("invalid configuration")
	ErrDatabaseError          = errors.New("database error")
)

// SessionError represents an error related to cooldown session operations.
type SessionError struct {
	SessionID string
	UserID    string
	Operation string
	Err       error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("session error [%s] %s: %v", e.SessionID, e.Operation, e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

// NewSessionError creates a new SessionError.
func NewSessionError(sessionID, userID, operation string, err error) *SessionError {
	return &SessionError{
		SessionID: sessionID,
		UserID:    userID,
		Operation: operation,
		Err:       err,
	}
}

// ApprovalError represents an error related to trade approval operations.
type ApprovalError struct {
	ApprovalID string
	UserID     string
	Operation  string
	Err        error
}

func (e *ApprovalError) Error() string {
	return fmt.Sprintf("approval error [%s] %s: %v", e.ApprovalID, e.Operation, e.Err)
}

func (e *ApprovalError) Unwrap() error {
	return e.Err
}

// NewApprovalError creates a new ApprovalError.
func NewApprovalError(approvalID, userID, operation string, err error) *ApprovalError {
	return &ApprovalError{
		ApprovalID: approvalID,
		UserID:     userID,
		Operation:  operation,
		Err:        err,
	}
}

// HistoryError represents a failure reading the trade journal store.
type HistoryError struct {
	UserID  string
	Message string
	Err     error
}

func (e *HistoryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("history error [%s]: %s: %v", e.UserID, e.Message, e.Err)
	}
	return fmt.Sprintf("history error [%s]: %s", e.UserID, e.Message)
}

func (e *HistoryError) Unwrap() error {
	return e.Err
}

// NewHistoryError creates a new HistoryError.
func NewHistoryError(userID, message string, err error) *HistoryError {
	return &HistoryError{
		UserID:  userID,
		Message: message,
		Err:     err,
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

// IsRetryable reports whether the error is in the retryable class.
// Only ErrTemporarilyUnavailable may be retried by callers; the core itself
// never retries, so a skip penalty or a trigger is recorded at most once.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTemporarilyUnavailable)
}
