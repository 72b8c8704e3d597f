package errors

import (
	"fmt"

	crdberrors "github.com/cockroachdb/errors"
)

// Error is a coded error with SQLSTATE-style classification.
type Error struct {
	Code       string // SQLSTATE code
	Message    string // Primary error message
	Detail     string // Optional detailed error message
	Hint       string // Optional hint message
	Table      string // Table name if applicable
	Column     string // Column name if applicable
	DataType   string // Data type name if applicable
	Constraint string // Constraint name if applicable
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (SQLSTATE %s) DETAIL: %s", e.Message, e.Code, e.Detail)
	}
	return fmt.Sprintf("%s (SQLSTATE %s)", e.Message, e.Code)
}

// New creates a new Error with the given code and message
func New(code string, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new Error with a formatted message
func Newf(code string, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// WithDetail adds detail to the error
func (e *Error) WithDetail(detail string) *Error {
	e.Detail = detail
	return e
}

// WithDetailf adds formatted detail to the error
func (e *Error) WithDetailf(format string, args ...interface{}) *Error {
	e.Detail = fmt.Sprintf(format, args...)
	return e
}

// WithHint adds a hint to the error
func (e *Error) WithHint(hint string) *Error {
	e.Hint = hint
	return e
}

// WithTable sets the table name
func (e *Error) WithTable(table string) *Error {
	e.Table = table
	return e
}

// WithColumn sets the column name
func (e *Error) WithColumn(column string) *Error {
	e.Column = column
	return e
}

// WithConstraint sets the constraint name
func (e *Error) WithConstraint(constraint string) *Error {
	e.Constraint = constraint
	return e
}

// WithDataType sets the data type name
func (e *Error) WithDataType(dataType string) *Error {
	e.DataType = dataType
	return e
}

// IsError checks if err, or anything it wraps, is an Error with the given code.
func IsError(err error, code string) bool {
	var qErr *Error
	return crdberrors.As(err, &qErr) && qErr.Code == code
}

// GetError extracts the coded Error from err, classifying anything else as
// an internal error.
func GetError(err error) *Error {
	if err == nil {
		return nil
	}
	var qErr *Error
	if crdberrors.As(err, &qErr) {
		return qErr
	}
	return InternalErrorf("%v", err)
}

// InternalErrorf creates an internal error
func InternalErrorf(format string, args ...interface{}) *Error {
	return Newf(InternalError, format, args...)
}

// AssertionFailedf reports a broken internal invariant. The returned error
// carries a stack trace.
func AssertionFailedf(format string, args ...interface{}) error {
	return crdberrors.AssertionFailedf(format, args...)
}

// Wrapf annotates err with a message, preserving its classification.
func Wrapf(err error, format string, args ...interface{}) error {
	return crdberrors.Wrapf(err, format, args...)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return crdberrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return crdberrors.As(err, target)
}
