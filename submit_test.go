package worksteal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aminehadbi/worksteal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler(t *testing.T, workers int) *Scheduler {
	t.Helper()
	s, err := New(&Config{Workers: workers, Pinner: NoPinning(), Logger: core.NewNoOpLogger()})
	require.NoError(t, err)
	t.Cleanup(s.Shutdown)
	return s
}

func TestGo_RunsAction(t *testing.T) {
	s := newTestScheduler(t, 2)
	ran := make(chan struct{})

	f, err := Go(s, func(ctx context.Context) error {
		close(ran)
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, f.Err())

	select {
	case <-ran:
	default:
		t.Fatal("action did not run")
	}
}

func TestGo_ClosedScheduler(t *testing.T) {
	s := newTestScheduler(t, 1)
	s.Shutdown()

	f, err := Go(s, func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrSchedulerClosed)
	assert.ErrorIs(t, f.Err(), ErrSchedulerClosed)
}

// TestWaitAll_MixedTypes verifies waiting on futures of different value types
func TestWaitAll_MixedTypes(t *testing.T) {
	s := newTestScheduler(t, 4)

	a, err := Submit(s, func(ctx context.Context) (int, error) { return 1, nil })
	require.NoError(t, err)
	b, err := Submit(s, func(ctx context.Context) (string, error) { return "b", nil })
	require.NoError(t, err)
	c, err := Go(s, func(ctx context.Context) error { return nil })
	require.NoError(t, err)

	require.NoError(t, WaitAll(context.Background(), a, b, c))
	assert.Equal(t, TaskCompleted, a.State())
	assert.Equal(t, TaskCompleted, b.State())
}

// TestWaitAll_ReturnsFailure verifies that a failing future surfaces
func TestWaitAll_ReturnsFailure(t *testing.T) {
	s := newTestScheduler(t, 2)
	sentinel := errors.New("second failed")

	ok, _ := Go(s, func(ctx context.Context) error { return nil })
	bad, _ := Go(s, func(ctx context.Context) error { return sentinel })

	assert.ErrorIs(t, WaitAll(context.Background(), ok, bad), sentinel)
}

// TestWaitAll_ContextDone verifies that WaitAll gives up when ctx ends
// Given: A task blocked on a channel
// When: WaitAll is called with a short deadline
// Then: It returns context.DeadlineExceeded while the task keeps running
func TestWaitAll_ContextDone(t *testing.T) {
	s := newTestScheduler(t, 1)
	release := make(chan struct{})
	f, err := Go(s, func(ctx context.Context) error {
		<-release
		return nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, WaitAll(ctx, f), context.DeadlineExceeded)

	close(release)
	require.NoError(t, f.Err())
}
