package prometheus

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/aminehadbi/worksteal/core"
	prom "github.com/prometheus/client_golang/prometheus"
)

// SchedulerSnapshotProvider provides current scheduler stats snapshots.
// *core.Scheduler implements it.
type SchedulerSnapshotProvider interface {
	Stats() core.SchedulerStats
}

// SnapshotPoller periodically exports scheduler Stats() snapshots into Prometheus gauges.
type SnapshotPoller struct {
	interval time.Duration

	schedulersMu sync.RWMutex
	schedulers   map[string]SchedulerSnapshotProvider

	queued     *prom.GaugeVec
	active     *prom.GaugeVec
	workers    *prom.GaugeVec
	running    *prom.GaugeVec
	completed  *prom.GaugeVec
	failed     *prom.GaugeVec
	discarded  *prom.GaugeVec
	stolen     *prom.GaugeVec
	queueDepth *prom.GaugeVec

	stateMu sync.Mutex
	polling bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSnapshotPoller creates a snapshot poller and registers its collectors.
func NewSnapshotPoller(reg prom.Registerer, interval time.Duration) (*SnapshotPoller, error) {
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	if interval <= 0 {
		interval = time.Second
	}

	gauge := func(name, help string, labels ...string) *prom.GaugeVec {
		return prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: "worksteal",
			Name:      name,
			Help:      help,
		}, append([]string{"scheduler"}, labels...))
	}

	p := &SnapshotPoller{
		interval:   interval,
		schedulers: make(map[string]SchedulerSnapshotProvider),
		queued:     gauge("scheduler_queued", "Tasks accepted but not yet dequeued."),
		active:     gauge("scheduler_active", "Tasks currently executing."),
		workers:    gauge("scheduler_workers", "Worker count."),
		running:    gauge("scheduler_running", "Scheduler running state (1=running, 0=shut down)."),
		completed:  gauge("scheduler_completed_total", "Completed task count snapshot."),
		failed:     gauge("scheduler_failed_total", "Failed task count snapshot."),
		discarded:  gauge("scheduler_discarded_total", "Discarded task count snapshot."),
		stolen:     gauge("scheduler_stolen_total", "Stolen task count snapshot."),
		queueDepth: gauge("worker_queue_depth", "Length of each worker's queue.", "worker"),
	}

	for _, vec := range []**prom.GaugeVec{
		&p.queued, &p.active, &p.workers, &p.running,
		&p.completed, &p.failed, &p.discarded, &p.stolen, &p.queueDepth,
	} {
		registered, err := registerCollector(reg, *vec)
		if err != nil {
			return nil, err
		}
		*vec = registered
	}
	return p, nil
}

// AddScheduler adds or replaces a scheduler snapshot provider by name.
func (p *SnapshotPoller) AddScheduler(name string, provider SchedulerSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "scheduler")
	p.schedulersMu.Lock()
	p.schedulers[name] = provider
	p.schedulersMu.Unlock()
}

// Start begins periodic polling; repeated calls are no-ops.
func (p *SnapshotPoller) Start(ctx context.Context) {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if p.polling {
		p.stateMu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.polling = true
	p.stateMu.Unlock()

	go p.loop(pollCtx, p.done)
}

// Stop stops periodic polling; repeated calls are safe.
func (p *SnapshotPoller) Stop() {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if !p.polling {
		p.stateMu.Unlock()
		return
	}
	cancel := p.cancel
	done := p.done
	p.stateMu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	p.stateMu.Lock()
	p.polling = false
	p.cancel = nil
	p.done = nil
	p.stateMu.Unlock()
}

func (p *SnapshotPoller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.collectOnce()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.collectOnce()
		}
	}
}

func (p *SnapshotPoller) collectOnce() {
	p.schedulersMu.RLock()
	defer p.schedulersMu.RUnlock()

	for name, provider := range p.schedulers {
		stats := provider.Stats()
		p.queued.WithLabelValues(name).Set(float64(stats.Queued))
		p.active.WithLabelValues(name).Set(float64(stats.Active))
		p.workers.WithLabelValues(name).Set(float64(stats.Workers))
		p.completed.WithLabelValues(name).Set(float64(stats.Completed))
		p.failed.WithLabelValues(name).Set(float64(stats.Failed))
		p.discarded.WithLabelValues(name).Set(float64(stats.Discarded))
		p.stolen.WithLabelValues(name).Set(float64(stats.Stolen))
		if stats.Running {
			p.running.WithLabelValues(name).Set(1)
		} else {
			p.running.WithLabelValues(name).Set(0)
		}
		for worker, depth := range stats.QueueDepths {
			p.queueDepth.WithLabelValues(name, strconv.Itoa(worker)).Set(float64(depth))
		}
	}
}
