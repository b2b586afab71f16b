package prometheus

import (
	"context"
	"testing"
	"time"

	"github.com/aminehadbi/worksteal/core"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type schedulerStub struct {
	stats core.SchedulerStats
}

func (s schedulerStub) Stats() core.SchedulerStats { return s.stats }

func TestSnapshotPoller_CollectsSchedulerStats(t *testing.T) {
	reg := prom.NewRegistry()
	poller, err := NewSnapshotPoller(reg, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("NewSnapshotPoller failed: %v", err)
	}

	poller.AddScheduler("pool-a", schedulerStub{stats: core.SchedulerStats{
		Workers:     2,
		Queued:      4,
		Active:      2,
		Completed:   10,
		Stolen:      3,
		Running:     true,
		QueueDepths: []int{1, 3},
	}})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	poller.Start(ctx)
	defer poller.Stop()

	assertEventually(t, 2*time.Second, func() bool {
		queued := testutil.ToFloat64(poller.queued.WithLabelValues("pool-a"))
		active := testutil.ToFloat64(poller.active.WithLabelValues("pool-a"))
		return queued == 4 && active == 2
	})

	if got := testutil.ToFloat64(poller.running.WithLabelValues("pool-a")); got != 1 {
		t.Fatalf("running gauge = %v, want 1", got)
	}
	if got := testutil.ToFloat64(poller.stolen.WithLabelValues("pool-a")); got != 3 {
		t.Fatalf("stolen gauge = %v, want 3", got)
	}
	if got := testutil.ToFloat64(poller.queueDepth.WithLabelValues("pool-a", "1")); got != 3 {
		t.Fatalf("queue depth of worker 1 = %v, want 3", got)
	}
}

// TestSnapshotPoller_RealScheduler verifies polling a live scheduler through shutdown
func TestSnapshotPoller_RealScheduler(t *testing.T) {
	reg := prom.NewRegistry()
	poller, err := NewSnapshotPoller(reg, 5*time.Millisecond)
	if err != nil {
		t.Fatalf("NewSnapshotPoller failed: %v", err)
	}
	s, err := core.New(&core.Config{Workers: 2, Pinner: core.NoPinning(), Logger: core.NewNoOpLogger()})
	if err != nil {
		t.Fatalf("core.New failed: %v", err)
	}
	poller.AddScheduler("live", s)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	poller.Start(ctx)
	defer poller.Stop()

	assertEventually(t, 2*time.Second, func() bool {
		return testutil.ToFloat64(poller.workers.WithLabelValues("live")) == 2
	})

	s.Shutdown()
	assertEventually(t, 2*time.Second, func() bool {
		return testutil.ToFloat64(poller.running.WithLabelValues("live")) == 0
	})
}

func TestSnapshotPoller_StartStop_Idempotent(t *testing.T) {
	reg := prom.NewRegistry()
	poller, err := NewSnapshotPoller(reg, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("NewSnapshotPoller failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	poller.Start(ctx)
	poller.Start(ctx)
	poller.Stop()
	poller.Stop()
}

func assertEventually(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met within timeout")
}
