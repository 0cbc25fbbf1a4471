package errors

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetryConfig(maxRetries int) RetryConfig {
	return RetryConfig{
		MaxRetries:   maxRetries,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestRetry_SucceedsAfterTransientError(t *testing.T) {
	// Given: a function that fails twice then succeeds
	attempts := 0
	fn := func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient error")
		}
		return nil
	}

	// When: retrying
	err := Retry(context.Background(), fastRetryConfig(3), fn)

	// Then: succeeds after 3 attempts
	assert.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetry_FailsAfterMaxRetries(t *testing.T) {
	// Given: a function that always fails
	attempts := 0
	persistent := errors.New("persistent error")
	fn := func() error {
		attempts++
		return persistent
	}

	// When: retrying with limited retries
	err := Retry(context.Background(), fastRetryConfig(2), fn)

	// Then: fails with wrapped error
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 retries")
	assert.ErrorIs(t, err, persistent)
	assert.Equal(t, 3, attempts) // Initial + 2 retries
}

func TestRetry_ShouldRetryStopsOnPermanentError(t *testing.T) {
	// Given: a permanent error and a predicate that only retries retryable errors
	attempts := 0
	fn := func() error {
		attempts++
		return New(ErrCodeUnsupportedFormat, "no parser for npm", nil)
	}
	cfg := fastRetryConfig(5)
	cfg.ShouldRetry = IsRetryable

	// When: retrying
	err := Retry(context.Background(), cfg, fn)

	// Then: the first error is returned unwrapped, no retries
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, ErrCodeUnsupportedFormat, GetCode(err))
}

func TestRetry_ShouldRetryRetriesSubmitFailures(t *testing.T) {
	attempts := 0
	fn := func() error {
		attempts++
		if attempts < 2 {
			return New(ErrCodeIndexSubmitFailed, "batch rejected", nil)
		}
		return nil
	}
	cfg := fastRetryConfig(3)
	cfg.ShouldRetry = IsRetryable

	err := Retry(context.Background(), cfg, fn)

	assert.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestRetry_RespectsContextCancellation(t *testing.T) {
	// Given: an already cancelled context
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := Retry(ctx, fastRetryConfig(3), func() error {
		called = true
		return nil
	})

	// Then: returns context error without calling fn
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestRetryWithResult_ReturnsValue(t *testing.T) {
	attempts := 0
	fn := func() (int, error) {
		attempts++
		if attempts < 2 {
			return 0, errors.New("error")
		}
		return 42, nil
	}

	result, err := RetryWithResult(context.Background(), fastRetryConfig(3), fn)

	assert.NoError(t, err)
	assert.Equal(t, 42, result)
}

func TestRetryWithResult_ReturnsZeroOnFailure(t *testing.T) {
	fn := func() (string, error) {
		return "partial", errors.New("error")
	}

	result, err := RetryWithResult(context.Background(), fastRetryConfig(1), fn)

	assert.Error(t, err)
	assert.Equal(t, "", result)
}

func TestRetry_ImmediateSuccessNoDelay(t *testing.T) {
	cfg := RetryConfig{
		MaxRetries:   5,
		InitialDelay: 1 * time.Second,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
	}

	start := time.Now()
	err := Retry(context.Background(), cfg, func() error { return nil })

	assert.NoError(t, err)
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestDefaultRetryConfig_HasSensibleDefaults(t *testing.T) {
	cfg := DefaultRetryConfig()

	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 1*time.Second, cfg.InitialDelay)
	assert.Equal(t, 16*time.Second, cfg.MaxDelay)
	assert.Equal(t, 2.0, cfg.Multiplier)
	assert.Nil(t, cfg.ShouldRetry)
}
