package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder(t *testing.T) {
	t.Run("CarriesAllFields", func(t *testing.T) {
		cause := fmt.Errorf("socket closed")
		err := Storage(CodeStorageFailure, "query failed").
			WithOperation("GetNode").
			WithResource("node").
			WithDetails("table=%s", "coursegraph").
			WithCause(cause).
			Build()

		var ge *GraphError
		require.True(t, As(err, &ge))
		assert.Equal(t, ErrorTypeStorage, ge.Type)
		assert.Equal(t, CodeStorageFailure, ge.Code)
		assert.Equal(t, "GetNode", ge.Operation)
		assert.Equal(t, "table=coursegraph", ge.Details)
		assert.True(t, Is(err, cause))
	})

	t.Run("StorageIsRetryable", func(t *testing.T) {
		err := Storage(CodeStorageFailure, "throttled").Build()
		assert.True(t, IsRetryable(err))
	})

	t.Run("ValidationIsNotRetryable", func(t *testing.T) {
		err := Validation(CodeValidationFailed, "bad input").Build()
		assert.False(t, IsRetryable(err))
	})
}

func TestClassification(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"Validation", Validation(CodeValidationFailed, "x").Build(), IsValidation},
		{"NotFound", NotFound(CodeNodeNotFound, "x").Build(), IsNotFound},
		{"Conflict", Conflict(CodeNodeDuplicate, "x").Build(), IsConflict},
		{"DepthExceeded", DepthExceeded(CodeDepthExceeded, "x").Build(), IsDepthExceeded},
		{"Storage", Storage(CodeStorageFailure, "x").Build(), IsStorage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(tt.err))
		})
	}
}

func TestWrap(t *testing.T) {
	t.Run("PreservesTypeAndCode", func(t *testing.T) {
		inner := NotFound(CodeNodeNotFound, "node missing").Build()
		wrapped := Wrap(inner, "resolve endpoint")

		assert.True(t, IsNotFound(wrapped))
		assert.True(t, HasCode(wrapped, CodeNodeNotFound))
		assert.Contains(t, wrapped.Error(), "resolve endpoint")
	})

	t.Run("ForeignErrorBecomesInternal", func(t *testing.T) {
		wrapped := Wrap(fmt.Errorf("plain failure"), "do thing")
		assert.Equal(t, ErrorTypeInternal, TypeOf(wrapped))
	})

	t.Run("NilStaysNil", func(t *testing.T) {
		assert.NoError(t, Wrap(nil, "anything"))
	})
}

func TestTypeOfForeignError(t *testing.T) {
	assert.Equal(t, ErrorTypeInternal, TypeOf(fmt.Errorf("boom")))
}
