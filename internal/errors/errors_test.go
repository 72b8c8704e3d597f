package errors

import (
	"context"
	"fmt"
	"testing"

	crdberrors "github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodedError(t *testing.T) {
	err := ColumnNotFoundError("Name", "Emp")
	assert.Equal(t, UndefinedColumn, err.Code)
	assert.Equal(t, "Emp", err.Table)
	assert.Contains(t, err.Error(), "SQLSTATE 42703")

	wrapped := fmt.Errorf("binding: %w", err)
	assert.True(t, IsError(wrapped, UndefinedColumn))
	assert.False(t, IsError(wrapped, UndefinedTable))
	assert.Same(t, err, GetError(wrapped))
}

func TestGetErrorClassifiesUnknown(t *testing.T) {
	assert.Nil(t, GetError(nil))
	qErr := GetError(context.Canceled)
	require.NotNil(t, qErr)
	assert.Equal(t, InternalError, qErr.Code)
}

func TestWrapRuntimeOnce(t *testing.T) {
	inner := WrapRuntime(DivisionByZeroError(), Location{Line: 3, Column: 7})
	outer := WrapRuntime(Wrapf(inner, "evaluating"), Location{Line: 1, Column: 1})

	var re *RuntimeError
	require.True(t, crdberrors.As(outer, &re))
	assert.Equal(t, Location{Line: 3, Column: 7}, re.Location)
	assert.True(t, IsError(outer, DivisionByZero))
	assert.Nil(t, WrapRuntime(nil, Location{}))
}

func TestCompilerError(t *testing.T) {
	w := NewCompilerWarning(InvalidCastError("Date", "Integer"), Location{Line: 2, Column: 4})
	assert.Equal(t, SeverityWarning, w.Severity)
	assert.Equal(t, CannotCoerce, w.Code())
	assert.Contains(t, w.Error(), "warning at line 2, column 4")

	e := NewCompilerError(NonRepeatableRestrictionError("Random() > 1"), Location{})
	assert.Equal(t, InvalidRestriction, e.Code())
	assert.Contains(t, e.Error(), "unknown location")
	assert.False(t, IsRuntime(e))
}

func TestAssertionFailed(t *testing.T) {
	err := AssertionFailedf("node %d regressed", 4)
	assert.True(t, crdberrors.HasAssertionFailure(err))
	assert.Equal(t, InternalError, GetError(err).Code)
}
