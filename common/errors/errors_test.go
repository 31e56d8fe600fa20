package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Error(t *testing.T) {
	err := New(ErrCodeInvalidTransition, "transition not allowed")
	assert.Equal(t, "[INVALID_TRANSITION] transition not allowed", err.Error())

	wrapped := Wrap(ErrCodeStoreUnavailable, "failed to commit", fmt.Errorf("connection reset"))
	assert.Equal(t, "[STORE_UNAVAILABLE] failed to commit: connection reset", wrapped.Error())
}

func TestCode(t *testing.T) {
	err := New(ErrCodeSignatureMismatch, "signature does not match payload")
	assert.Equal(t, ErrCodeSignatureMismatch, Code(err))

	// 표준 래핑을 거쳐도 코드가 추출되어야 함
	chained := fmt.Errorf("callback failed: %w", err)
	assert.Equal(t, ErrCodeSignatureMismatch, Code(chained))

	assert.Equal(t, ErrorCode(""), Code(fmt.Errorf("plain error")))
	assert.Equal(t, ErrorCode(""), Code(nil))
}

func TestCode_OutermostWins(t *testing.T) {
	inner := New(ErrCodeConcurrentModification, "status moved")
	outer := Wrap(ErrCodeTransitionConflict, "lost the race repeatedly", inner)

	assert.Equal(t, ErrCodeTransitionConflict, Code(outer))
	assert.True(t, Is(outer, ErrCodeTransitionConflict))
	assert.False(t, Is(outer, ErrCodeConcurrentModification))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(New(ErrCodeConcurrentModification, "")))
	assert.True(t, IsRetryable(New(ErrCodeStoreUnavailable, "")))
	assert.False(t, IsRetryable(New(ErrCodeInvalidTransition, "")))
	assert.False(t, IsRetryable(New(ErrCodeTransitionConflict, "")))
}

func TestIsValidation(t *testing.T) {
	assert.True(t, IsValidation(New(ErrCodeInvalidAmountBreakdown, "")))
	assert.True(t, IsValidation(New(ErrCodeSignatureMismatch, "")))
	assert.False(t, IsValidation(New(ErrCodeConcurrentModification, "")))
	assert.False(t, IsValidation(New(ErrCodeStoreUnavailable, "")))
}
