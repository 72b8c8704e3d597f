package errors

import (
	"fmt"

	crdberrors "github.com/cockroachdb/errors"
)

// Location identifies where in the source expression a plan node came from.
type Location struct {
	Line   int
	Column int
}

// IsZero reports whether the location is unknown.
func (l Location) IsZero() bool {
	return l.Line == 0 && l.Column == 0
}

func (l Location) String() string {
	if l.IsZero() {
		return "unknown location"
	}
	return fmt.Sprintf("line %d, column %d", l.Line, l.Column)
}

// Severity of a compiler diagnostic.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// CompilerError is raised or collected while binding a plan.
type CompilerError struct {
	Severity Severity
	Location Location
	cause    error
}

// NewCompilerWarning records a non-fatal diagnostic.
func NewCompilerWarning(cause error, loc Location) *CompilerError {
	return &CompilerError{Severity: SeverityWarning, Location: loc, cause: cause}
}

// NewCompilerError records a diagnostic that prevents producing a valid plan.
func NewCompilerError(cause error, loc Location) *CompilerError {
	return &CompilerError{Severity: SeverityError, Location: loc, cause: cause}
}

func (e *CompilerError) Error() string {
	return fmt.Sprintf("%s at %s: %v", e.Severity, e.Location, e.cause)
}

func (e *CompilerError) Unwrap() error { return e.cause }

// Code returns the SQLSTATE code of the underlying error, if any.
func (e *CompilerError) Code() string {
	if qErr := GetError(e.cause); qErr != nil {
		return qErr.Code
	}
	return ""
}

// RuntimeError wraps a failure raised while executing a plan node.
type RuntimeError struct {
	Location Location
	cause    error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%v (at %s)", e.cause, e.Location)
}

func (e *RuntimeError) Unwrap() error { return e.cause }

// WrapRuntime tags err with loc. Errors already carrying a location are
// returned unchanged so nested nodes wrap exactly once.
func WrapRuntime(err error, loc Location) error {
	if err == nil {
		return nil
	}
	var re *RuntimeError
	if crdberrors.As(err, &re) {
		return err
	}
	return &RuntimeError{Location: loc, cause: err}
}

// IsRuntime reports whether err carries an execution location.
func IsRuntime(err error) bool {
	var re *RuntimeError
	return crdberrors.As(err, &re)
}
