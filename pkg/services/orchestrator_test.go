package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cloneforge/cloneforge-engine/pkg/apperrors"
)

func TestOrchestrator_RunExecutesWork(t *testing.T) {
	o := NewOrchestrator(5, zap.NewNop())

	result, err := o.Run(context.Background(), "key", func(ctx context.Context) (any, error) {
		return "value", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "value", result)
	assert.Equal(t, 0, o.Active())
	assert.False(t, o.InFlight("key"))
}

func TestOrchestrator_RejectsAtCapacity(t *testing.T) {
	o := NewOrchestrator(2, zap.NewNop())

	release := make(chan struct{})
	started := make(chan struct{}, 2)
	var wg sync.WaitGroup

	for _, key := range []string{"a", "b"} {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			o.Run(context.Background(), key, func(ctx context.Context) (any, error) {
				started <- struct{}{}
				<-release
				return key, nil
			})
		}(key)
	}
	<-started
	<-started

	// A third distinct request is rejected immediately, not queued.
	begin := time.Now()
	_, err := o.Run(context.Background(), "c", func(ctx context.Context) (any, error) {
		t.Fatal("rejected work must not execute")
		return nil, nil
	})
	require.Error(t, err)
	assert.Less(t, time.Since(begin), 100*time.Millisecond)

	appErr := apperrors.AsAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.CodeRateLimited, appErr.Code)

	close(release)
	wg.Wait()
	assert.Equal(t, 0, o.Active())
}

func TestOrchestrator_DuplicateKeyJoinsInFlight(t *testing.T) {
	o := NewOrchestrator(5, zap.NewNop())

	release := make(chan struct{})
	started := make(chan struct{})
	executions := 0

	var wg sync.WaitGroup
	results := make([]any, 3)
	errs := make([]error, 3)

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], errs[0] = o.Run(context.Background(), "same", func(ctx context.Context) (any, error) {
			executions++
			close(started)
			<-release
			return "shared", nil
		})
	}()
	<-started

	// Joiners do not consume capacity and share the leader's result.
	for i := 1; i <= 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = o.Run(context.Background(), "same", func(ctx context.Context) (any, error) {
				executions++
				return "should not run", nil
			})
		}(i)
	}

	assert.Eventually(t, func() bool { return o.Active() == 1 }, time.Second, time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, 1, executions)
	for i := 0; i < 3; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "shared", results[i])
	}
}

func TestOrchestrator_HandleRemovedAfterFailure(t *testing.T) {
	o := NewOrchestrator(5, zap.NewNop())

	boom := errors.New("boom")
	_, err := o.Run(context.Background(), "key", func(ctx context.Context) (any, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)

	// A failed run is not memoized: the next identical request runs fresh.
	assert.False(t, o.InFlight("key"))
	result, err := o.Run(context.Background(), "key", func(ctx context.Context) (any, error) {
		return "second", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "second", result)
}

func TestOrchestrator_JoinerHonorsContext(t *testing.T) {
	o := NewOrchestrator(5, zap.NewNop())

	release := make(chan struct{})
	started := make(chan struct{})
	go o.Run(context.Background(), "slow", func(ctx context.Context) (any, error) {
		close(started)
		<-release
		return nil, nil
	})
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := o.Run(ctx, "slow", func(ctx context.Context) (any, error) {
		return nil, nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
}

func TestNewOrchestrator_MinimumCapacity(t *testing.T) {
	o := NewOrchestrator(0, zap.NewNop())

	// Capacity is clamped so at least one request is admitted.
	result, err := o.Run(context.Background(), "key", func(ctx context.Context) (any, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
}
