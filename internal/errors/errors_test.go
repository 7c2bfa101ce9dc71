package errors

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOfAndRetryable(t *testing.T) {
	ioErr := New(KindIO, "store.write", "disk full")
	assert.True(t, Retryable(ioErr))
	assert.True(t, Is(ioErr, KindIO))

	validationErr := New(KindValidation, "issue.create", "missing title")
	assert.False(t, Retryable(validationErr))
	assert.Equal(t, KindValidation, KindOf(validationErr))
}

func TestWrapPreservesUnwrap(t *testing.T) {
	cause := errors.New("boom")
	wrapped := Wrap(KindProvider, "provider.execute", cause)
	require.ErrorIs(t, wrapped, cause)
	assert.Equal(t, KindProvider, KindOf(wrapped))
}

func TestRetrySucceedsAfterTransientFailure(t *testing.T) {
	attempts := 0
	cfg := RetryConfig{MaxAttempts: 3, BaseDelay: 0, MaxDelay: 0, JitterFactor: 0}
	err := Retry(context.Background(), cfg, func(ctx context.Context) error {
		attempts++
		if attempts < 2 {
			return New(KindIO, "op", "transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestRetryStopsOnNonRetryableKind(t *testing.T) {
	attempts := 0
	cfg := DefaultRetryConfig()
	err := Retry(context.Background(), cfg, func(ctx context.Context) error {
		attempts++
		return New(KindValidation, "op", "bad input")
	})
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestCircuitBreakerOpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker("claude_code", CircuitBreakerConfig{FailureThreshold: 2, SuccessThreshold: 1, Timeout: 0})
	require.NoError(t, cb.Allow())
	cb.Mark(New(KindProvider, "op", "fail"))
	require.NoError(t, cb.Allow())
	cb.Mark(New(KindProvider, "op", "fail"))
	assert.Equal(t, StateOpen, cb.State())
}
