package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := New(ErrorTypeQuery, "query exploded")

	assert.Equal(t, ErrorTypeQuery, err.Type)
	assert.Equal(t, "query: query exploded", err.Error())
	assert.Nil(t, err.Cause)
	assert.NotEmpty(t, err.Stack)
}

func TestWrap(t *testing.T) {
	t.Run("wraps plain error", func(t *testing.T) {
		cause := stderrors.New("disk full")
		err := Wrap(cause, ErrorTypeFile, "failed to write file")

		assert.Equal(t, "file: failed to write file: disk full", err.Error())
		assert.True(t, stderrors.Is(err, cause))
		assert.NotEmpty(t, err.Stack)
	})

	t.Run("nil cause returns nil", func(t *testing.T) {
		assert.Nil(t, Wrap(nil, ErrorTypeFile, "no-op"))
	})

	t.Run("preserves original stack", func(t *testing.T) {
		inner := New(ErrorTypeRequest, "request failed")
		outer := Wrap(fmt.Errorf("retry: %w", inner), ErrorTypeRemote, "remote unavailable")

		assert.Equal(t, inner.Stack, outer.Stack)
		assert.Equal(t, ErrorTypeRemote, outer.Type)
	})
}

func TestWithDetail(t *testing.T) {
	err := New(ErrorTypeConfig, "missing field").
		WithDetail("source", "weather_api").
		WithDetail("field", "base_url")

	require.NotNil(t, err.Details)
	assert.Equal(t, "weather_api", err.Details["source"])
	assert.Equal(t, "base_url", err.Details["field"])
}

func TestTypePredicates(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		errType    ErrorType
		isType     bool
		isFatal    bool
		isNotFound bool
	}{
		{
			name:    "config error is fatal",
			err:     New(ErrorTypeConfig, "bad catalog"),
			errType: ErrorTypeConfig,
			isType:  true,
			isFatal: true,
		},
		{
			name:       "not found is not fatal",
			err:        New(ErrorTypeNotFound, "missing blob"),
			errType:    ErrorTypeNotFound,
			isType:     true,
			isNotFound: true,
		},
		{
			name:    "query error is neither",
			err:     New(ErrorTypeQuery, "syntax error"),
			errType: ErrorTypeQuery,
			isType:  true,
		},
		{
			name:    "plain error matches nothing",
			err:     stderrors.New("plain"),
			errType: ErrorTypeInternal,
		},
		{
			name:    "wrapped structured error still matches",
			err:     fmt.Errorf("context: %w", New(ErrorTypeNotFound, "gone")),
			errType: ErrorTypeNotFound,
			isType:  true,
			// errors.As finds the inner error through the wrapper
			isNotFound: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.isType, IsType(tt.err, tt.errType))
			assert.Equal(t, tt.isFatal, IsFatal(tt.err))
			assert.Equal(t, tt.isNotFound, IsNotFound(tt.err))
		})
	}
}
