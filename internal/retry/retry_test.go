package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedSleeps struct {
	waits []time.Duration
}

func (r *recordedSleeps) sleep(ctx context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return nil
}

func TestExponentialBackoff(t *testing.T) {
	backoff := Exponential(time.Second, 2)

	assert.Equal(t, time.Second, backoff(1))
	assert.Equal(t, 2*time.Second, backoff(2))
	assert.Equal(t, 4*time.Second, backoff(3))
	assert.Equal(t, time.Second, backoff(0))
}

func TestDoSucceedsAfterTwoFailures(t *testing.T) {
	sleeps := &recordedSleeps{}
	policy := Policy{MaxAttempts: 3, Backoff: Exponential(time.Second, 2), Sleep: sleeps.sleep}

	calls := 0
	result, err := Do(context.Background(), policy, func(ctx context.Context, attempt int) (string, error) {
		calls++
		if attempt < 3 {
			return "", errors.New("transient")
		}
		return "payload", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "payload", result)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, sleeps.waits)
}

func TestDoStopsAtFirstSuccess(t *testing.T) {
	sleeps := &recordedSleeps{}
	policy := Policy{MaxAttempts: 3, Backoff: Exponential(time.Second, 2), Sleep: sleeps.sleep}

	calls := 0
	_, err := Do(context.Background(), policy, func(ctx context.Context, attempt int) (int, error) {
		calls++
		return 1, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, sleeps.waits)
}

func TestDoExhausted(t *testing.T) {
	sleeps := &recordedSleeps{}
	var retried []int
	policy := Policy{
		MaxAttempts: 3,
		Backoff:     Exponential(time.Second, 2),
		Sleep:       sleeps.sleep,
		OnRetry: func(attempt int, wait time.Duration, err error) {
			retried = append(retried, attempt)
		},
	}

	last := errors.New("still failing")
	result, err := Do(context.Background(), policy, func(ctx context.Context, attempt int) ([]byte, error) {
		return nil, last
	})

	require.Error(t, err)
	assert.Nil(t, result)

	var exhausted *ExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Equal(t, 3, exhausted.Attempts)
	assert.ErrorIs(t, err, last)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, sleeps.waits)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestDoStopsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := Do(ctx, Policy{MaxAttempts: 3, Backoff: Exponential(time.Hour, 2)}, func(ctx context.Context, attempt int) (int, error) {
		calls++
		return 0, errors.New("boom")
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestSleepHonoursDuration(t *testing.T) {
	start := time.Now()
	require.NoError(t, Sleep(context.Background(), 10*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}
