package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	err := New(ErrTypeValidation, "test error message")

	assert.Equal(t, ErrTypeValidation, err.Type)
	assert.Equal(t, "test error message", err.Message)
	assert.NoError(t, err.Cause)
}

func TestNewf(t *testing.T) {
	err := Newf(ErrTypeExecution, "failed to run query against %s", "duckdb")

	assert.Equal(t, ErrTypeExecution, err.Type)
	assert.Equal(t, "failed to run query against duckdb", err.Message)
}

func TestWrap(t *testing.T) {
	originalErr := errors.New("original error")
	wrappedErr := Wrap(originalErr, ErrTypeGeneration, "completion request failed")

	assert.Equal(t, ErrTypeGeneration, wrappedErr.Type)
	assert.Equal(t, "completion request failed", wrappedErr.Message)
	assert.Equal(t, originalErr, wrappedErr.Cause)
}

func TestWrapf(t *testing.T) {
	originalErr := errors.New("connection refused")
	wrappedErr := Wrapf(
		originalErr,
		ErrTypeGeneration,
		"failed to reach %s:%d",
		"localhost",
		11434,
	)

	assert.Equal(t, ErrTypeGeneration, wrappedErr.Type)
	assert.Equal(t, "failed to reach localhost:11434", wrappedErr.Message)
	assert.Equal(t, originalErr, wrappedErr.Cause)
}

func TestErrorString(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name: "error without cause",
			err: &Error{
				Type:    ErrTypeValidation,
				Message: "invalid input",
			},
			expected: "validation: invalid input",
		},
		{
			name: "error with cause",
			err: &Error{
				Type:    ErrTypeExecution,
				Message: "query failed",
				Cause:   errors.New("connection timeout"),
			},
			expected: "execution: query failed (caused by: connection timeout)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestUnwrap(t *testing.T) {
	originalErr := errors.New("original error")
	wrappedErr := Wrap(originalErr, ErrTypeExecution, "wrapped error")

	assert.Equal(t, originalErr, wrappedErr.Unwrap())
}

func TestIsType(t *testing.T) {
	structErr := New(ErrTypeMalformedQuery, "query begins with error marker")
	regularErr := errors.New("regular error")

	assert.True(t, IsType(structErr, ErrTypeMalformedQuery))
	assert.False(t, IsType(structErr, ErrTypeExecution))
	assert.False(t, IsType(regularErr, ErrTypeMalformedQuery))
}

func TestGetType(t *testing.T) {
	structErr := New(ErrTypeGeneration, "completion failed")
	regularErr := errors.New("regular error")

	assert.Equal(t, ErrTypeGeneration, GetType(structErr))
	assert.Equal(t, ErrTypeInternal, GetType(regularErr))
}

func TestNewConfigError(t *testing.T) {
	err := NewConfigError("invalid value", "field_mappings")

	assert.Equal(t, ErrTypeConfig, err.Type)
	assert.Contains(t, err.Message, "invalid value")
	assert.Contains(t, err.Message, "field_mappings")
	assert.Len(t, err.Suggestions, 2)
}

func TestNewConfigErrorEmptyField(t *testing.T) {
	err := NewConfigError("failed to load", "")

	assert.Equal(t, ErrTypeConfig, err.Type)
	assert.Equal(t, "failed to load", err.Message)
}
