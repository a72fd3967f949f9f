package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTaken = errors.New("registration number taken")

func fast(opts ...Option) *Retrier {
	return New(append([]Option{WithInitialDelay(time.Microsecond), WithMaxDelay(time.Millisecond)}, opts...)...)
}

func TestDo_RetriesUntilSuccess(t *testing.T) {
	calls := 0
	var hooks []int
	err := fast(
		WithMaxAttempts(5),
		WithRetryIf(func(err error) bool { return errors.Is(err, errTaken) }),
		WithOnRetry(func(attempt int, _ error, _ time.Duration) { hooks = append(hooks, attempt) }),
	).Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errTaken
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, hooks)
}

func TestDo_StopsOnUnmatchedError(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	err := fast(WithMaxAttempts(5)).Do(context.Background(), func(context.Context) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestDo_MarkersAreStripped(t *testing.T) {
	calls := 0
	err := fast(WithMaxAttempts(3)).Do(context.Background(), func(context.Context) error {
		calls++
		return Retryable(errTaken)
	})
	assert.Equal(t, 3, calls)
	assert.Same(t, errTaken, err)

	calls = 0
	err = ConnectRetrier(5, nil).Do(context.Background(), func(context.Context) error {
		calls++
		return Permanent(errTaken)
	})
	assert.Equal(t, 1, calls)
	assert.Same(t, errTaken, err)
}

func TestDo_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := fast().Do(ctx, func(context.Context) error {
		calls++
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestDelay_Capped(t *testing.T) {
	r := New(WithInitialDelay(time.Second), WithMaxDelay(3*time.Second), WithJitter(0))
	assert.Equal(t, time.Second, r.delay(1))
	assert.Equal(t, 2*time.Second, r.delay(2))
	assert.Equal(t, 3*time.Second, r.delay(5))
}
