package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// transientError implements RetryableError for tests.
type transientError struct {
	msg       string
	retryable bool
}

func (e *transientError) Error() string     { return e.msg }
func (e *transientError) IsRetryable() bool { return e.retryable }

// fastConfig mirrors the production defaults at millisecond scale so the
// delay sequence stays observable without slowing the suite.
func fastConfig() *Config {
	return &Config{
		MaxAttempts:  3,
		InitialDelay: 10 * time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     100 * time.Millisecond,
	}
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	result := Do(context.Background(), fastConfig(), func(ctx context.Context) (string, error) {
		return "ok", nil
	})

	require.True(t, result.Success)
	assert.Equal(t, "ok", result.Data)
	assert.Equal(t, 1, result.Attempts)
	assert.NoError(t, result.Err)
}

func TestDo_RetriesWithBackoffSequence(t *testing.T) {
	var attemptTimes []time.Time

	result := Do(context.Background(), fastConfig(), func(ctx context.Context) (int, error) {
		attemptTimes = append(attemptTimes, time.Now())
		return 0, &transientError{msg: "flaky", retryable: true}
	})

	require.False(t, result.Success)
	assert.Equal(t, 3, result.Attempts)
	require.Len(t, attemptTimes, 3)

	// Waits follow initial delay then doubled delay.
	firstGap := attemptTimes[1].Sub(attemptTimes[0])
	secondGap := attemptTimes[2].Sub(attemptTimes[1])
	assert.GreaterOrEqual(t, firstGap, 10*time.Millisecond)
	assert.GreaterOrEqual(t, secondGap, 20*time.Millisecond)
	assert.GreaterOrEqual(t, result.TotalTime, 30*time.Millisecond)
}

func TestDo_RecoverySecondAttempt(t *testing.T) {
	calls := 0
	result := Do(context.Background(), fastConfig(), func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", &transientError{msg: "flaky", retryable: true}
		}
		return "recovered", nil
	})

	require.True(t, result.Success)
	assert.Equal(t, 2, result.Attempts)
	assert.Equal(t, "recovered", result.Data)
}

func TestDo_NonRetryableStopsImmediately(t *testing.T) {
	calls := 0
	permanent := &transientError{msg: "bad input", retryable: false}

	result := Do(context.Background(), fastConfig(), func(ctx context.Context) (string, error) {
		calls++
		return "", permanent
	})

	require.False(t, result.Success)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, 1, calls)
	assert.Equal(t, permanent, result.Err)
}

func TestDo_ContextCancelStopsWaiting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	cfg := &Config{MaxAttempts: 3, InitialDelay: time.Minute, Multiplier: 2.0, MaxDelay: time.Minute}
	result := Do(ctx, cfg, func(ctx context.Context) (string, error) {
		return "", &transientError{msg: "flaky", retryable: true}
	})

	require.False(t, result.Success)
	assert.ErrorIs(t, result.Err, context.Canceled)
	assert.Less(t, result.TotalTime, time.Second)
}

func TestDo_IsRetryableOverride(t *testing.T) {
	calls := 0
	cfg := fastConfig()
	cfg.IsRetryable = func(error) bool { return false }

	Do(context.Background(), cfg, func(ctx context.Context) (string, error) {
		calls++
		return "", errors.New("timeout") // would retry under the default rules
	})

	assert.Equal(t, 1, calls)
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"typed retryable", &transientError{msg: "x", retryable: true}, true},
		{"typed permanent with retryable wording", &transientError{msg: "rate limit", retryable: false}, false},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"timeout wording", errors.New("request timed out"), true},
		{"status 429", errors.New("unexpected status 429"), true},
		{"status 503", errors.New("server returned 503"), true},
		{"quota wording", errors.New("monthly quota exceeded"), true},
		{"overloaded wording", errors.New("provider overloaded"), true},
		{"plain failure", errors.New("invalid request body"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestCheckpointStore(t *testing.T) {
	store := NewCheckpointStore()

	t.Run("save and recover", func(t *testing.T) {
		store.Save("analysis:stage:3", "raw output")
		raw, ok := store.Recover("analysis:stage:3")
		require.True(t, ok)
		assert.Equal(t, "raw output", raw)
	})

	t.Run("later save overwrites", func(t *testing.T) {
		store.Save("analysis:stage:3", "second attempt")
		raw, _ := store.Recover("analysis:stage:3")
		assert.Equal(t, "second attempt", raw)
	})

	t.Run("clear removes the slot", func(t *testing.T) {
		store.Clear("analysis:stage:3")
		_, ok := store.Recover("analysis:stage:3")
		assert.False(t, ok)
		assert.Equal(t, 0, store.Len())
	})

	t.Run("recover on unknown key", func(t *testing.T) {
		_, ok := store.Recover("missing")
		assert.False(t, ok)
	})
}
