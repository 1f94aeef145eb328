package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// Common sentinel errors for quick checks
var (
	// ErrInvalidArgument is returned when required structured input is missing or malformed.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidClause is returned when a filter clause fails validation.
	ErrInvalidClause = errors.New("invalid filter clause")

	// ErrMissingAlias is returned when an alias-keyed result is requested but a statement has no alias.
	ErrMissingAlias = errors.New("missing statement alias")

	// ErrTransaction is returned when a transaction fails after BEGIN.
	ErrTransaction = errors.New("transaction failed")

	// ErrRollback is returned when a rollback fails.
	ErrRollback = errors.New("rollback failed")
)

// Error is the base interface for all custom errors in the system.
// It extends the standard error interface with additional context.
type Error interface {
	error
	// Code returns the error code
	Code() string
	// Message returns the human-readable error message
	Message() string
	// Unwrap returns the underlying cause
	Unwrap() error
}

// BaseError provides a foundation for all typed errors.
type BaseError struct {
	code    string
	message string
	cause   error
	stack   []uintptr
}

// Error implements the error interface.
func (e *BaseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Code returns the error code.
func (e *BaseError) Code() string {
	return e.code
}

// Message returns the error message.
func (e *BaseError) Message() string {
	return e.message
}

// Unwrap returns the underlying cause.
func (e *BaseError) Unwrap() error {
	return e.cause
}

// Stack returns the captured stack trace.
func (e *BaseError) Stack() []uintptr {
	return e.stack
}

// captureStack captures the current stack trace.
func captureStack(skip int) []uintptr {
	const maxDepth = 32
	stack := make([]uintptr, maxDepth)
	n := runtime.Callers(skip+2, stack)
	return stack[:n]
}

// StackTrace returns a formatted stack trace string.
func (e *BaseError) StackTrace() string {
	if len(e.stack) == 0 {
		return ""
	}

	var buf strings.Builder
	frames := runtime.CallersFrames(e.stack)
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "runtime/") {
			fmt.Fprintf(&buf, "%s\n\t%s:%d\n", frame.Function, frame.File, frame.Line)
		}
		if !more {
			break
		}
	}
	return buf.String()
}

// InvalidArgumentError represents missing or malformed structured input.
// It is always raised before any I/O is performed.
type InvalidArgumentError struct {
	*BaseError
	Field string
	Value interface{}
}

// NewInvalidArgumentError creates a new invalid argument error.
func NewInvalidArgumentError(field, message string, value interface{}) *InvalidArgumentError {
	return &InvalidArgumentError{
		BaseError: &BaseError{
			code:    CodeInvalidArgument,
			message: message,
			cause:   ErrInvalidArgument,
			stack:   captureStack(1),
		},
		Field: field,
		Value: value,
	}
}

// Error implements the error interface.
func (e *InvalidArgumentError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid argument: %s: %s", e.Field, e.message)
	}
	return fmt.Sprintf("invalid argument: %s", e.message)
}

// InvalidClauseError represents a filter clause that failed validation.
// It is raised before any SQL is built, so a rejected clause is never
// interpolated into a statement.
type InvalidClauseError struct {
	*BaseError
	Clause   string
	Position int
}

// NewInvalidClauseError creates a new invalid clause error.
func NewInvalidClauseError(clause, message string, position int) *InvalidClauseError {
	return &InvalidClauseError{
		BaseError: &BaseError{
			code:    CodeInvalidClause,
			message: message,
			cause:   ErrInvalidClause,
			stack:   captureStack(1),
		},
		Clause:   clause,
		Position: position,
	}
}

// Error implements the error interface.
func (e *InvalidClauseError) Error() string {
	return fmt.Sprintf("invalid filter clause at offset %d: %s", e.Position, e.message)
}

// MissingAliasError represents a statement without an alias in an
// alias-keyed transaction. It is raised before BEGIN is issued.
type MissingAliasError struct {
	*BaseError
	Index int
}

// NewMissingAliasError creates a new missing alias error.
func NewMissingAliasError(index int) *MissingAliasError {
	return &MissingAliasError{
		BaseError: &BaseError{
			code:    CodeMissingAlias,
			message: fmt.Sprintf("statement %d has no alias but alias-keyed results were requested", index),
			cause:   ErrMissingAlias,
			stack:   captureStack(1),
		},
		Index: index,
	}
}

// TransactionError wraps a driver error that occurred after BEGIN.
// The transaction has been rolled back when this error is returned.
type TransactionError struct {
	*BaseError
	Phase string // "begin", "statement", "hook", "commit"
}

// NewTransactionError creates a new transaction error for the given phase.
func NewTransactionError(phase string, cause error) *TransactionError {
	return &TransactionError{
		BaseError: &BaseError{
			code:    CodeTransaction,
			message: fmt.Sprintf("transaction failed during %s", phase),
			cause:   cause,
			stack:   captureStack(1),
		},
		Phase: phase,
	}
}

// Is reports whether target matches the transaction sentinel.
func (e *TransactionError) Is(target error) bool {
	return target == ErrTransaction
}

// RollbackError indicates ROLLBACK itself failed. The connection is
// discarded rather than returned to the pool, and the failure that
// triggered the rollback is preserved for context.
type RollbackError struct {
	*BaseError
	// Original is the failure that triggered the rollback attempt.
	Original error
}

// NewRollbackError creates a new rollback error chained with the original failure.
func NewRollbackError(cause, original error) *RollbackError {
	return &RollbackError{
		BaseError: &BaseError{
			code:    CodeRollback,
			message: fmt.Sprintf("rollback failed (original failure: %v)", original),
			cause:   cause,
			stack:   captureStack(1),
		},
		Original: original,
	}
}

// Is reports whether target matches the rollback sentinel.
func (e *RollbackError) Is(target error) bool {
	return target == ErrRollback
}

// Wrap wraps an error with a message, preserving the original's code when
// it is already a typed error.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	code := CodeUnknown
	var typed Error
	if errors.As(err, &typed) {
		code = typed.Code()
	}
	return &BaseError{
		code:    code,
		message: message,
		cause:   err,
		stack:   captureStack(1),
	}
}
