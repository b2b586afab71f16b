package prometheus

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aminehadbi/worksteal/core"
	prom "github.com/prometheus/client_golang/prometheus"
)

const schedulerLabel = "scheduler"

// ExporterOptions controls collector configuration.
type ExporterOptions struct {
	// Scheduler is the value of the "scheduler" label. Defaults to "worksteal".
	Scheduler       string
	DurationBuckets []float64
}

// MetricsExporter implements core.Metrics on top of Prometheus collectors.
// Every vector is curried with the scheduler label, so several schedulers
// can share one registry.
type MetricsExporter struct {
	durations prom.ObserverVec // worker
	failures  *prom.CounterVec // worker, kind
	steals    *prom.CounterVec // worker
	discarded *prom.CounterVec // reason
}

var _ core.Metrics = (*MetricsExporter)(nil)

// NewMetricsExporter registers the worker pool collectors on reg (the
// default registerer when nil). Exporters created with the same namespace
// on the same registry share collectors.
func NewMetricsExporter(namespace string, reg prom.Registerer, opts ExporterOptions) (*MetricsExporter, error) {
	namespace = normalizeLabel(namespace, "worksteal")
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	buckets := opts.DurationBuckets
	if len(buckets) == 0 {
		// 10µs .. ~2.6s
		buckets = prom.ExponentialBuckets(0.00001, 4, 10)
	}
	curry := prom.Labels{schedulerLabel: normalizeLabel(opts.Scheduler, "worksteal")}

	durations, err := registerCollector(reg, prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "task_duration_seconds",
		Help:      "Time spent executing a task, by worker.",
		Buckets:   buckets,
	}, []string{schedulerLabel, "worker"}))
	if err != nil {
		return nil, err
	}

	e := &MetricsExporter{durations: durations.MustCurryWith(curry)}
	counters := []struct {
		name, help string
		labels     []string
		dst        **prom.CounterVec
	}{
		{"task_failures_total", "Tasks that returned an error or panicked, by worker and kind.", []string{"worker", "kind"}, &e.failures},
		{"task_steals_total", "Tasks a worker took from another worker's queue.", []string{"worker"}, &e.steals},
		{"task_discarded_total", "Accepted or submitted tasks that never ran, by reason.", []string{"reason"}, &e.discarded},
	}

	for _, c := range counters {
		vec, err := registerCollector(reg, prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      c.name,
			Help:      c.help,
		}, append([]string{schedulerLabel}, c.labels...)))
		if err != nil {
			return nil, err
		}
		*c.dst = vec.MustCurryWith(curry)
	}
	return e, nil
}

// RecordTaskDuration observes the run time of one task on worker.
func (m *MetricsExporter) RecordTaskDuration(worker int, duration time.Duration) {
	if m == nil {
		return
	}
	m.durations.WithLabelValues(workerLabel(worker)).Observe(duration.Seconds())
}

// RecordTaskFailure counts a failed task under kind "panic" or "error".
func (m *MetricsExporter) RecordTaskFailure(worker int, panicked bool) {
	if m == nil {
		return
	}
	kind := "error"
	if panicked {
		kind = "panic"
	}
	m.failures.WithLabelValues(workerLabel(worker), kind).Inc()
}

// RecordSteal counts a steal by thief. The victim is not exported to keep
// cardinality linear in the worker count.
func (m *MetricsExporter) RecordSteal(thief, _ int) {
	if m == nil {
		return
	}
	m.steals.WithLabelValues(workerLabel(thief)).Inc()
}

// RecordTaskDiscarded counts a task that never ran.
func (m *MetricsExporter) RecordTaskDiscarded(reason string) {
	if m == nil {
		return
	}
	m.discarded.WithLabelValues(normalizeLabel(reason, "unknown")).Inc()
}

func normalizeLabel(v string, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func workerLabel(worker int) string {
	if worker < 0 {
		return "unknown"
	}
	return strconv.Itoa(worker)
}

// registerCollector registers collector, or returns the collector of the
// same type that is already registered under its descriptor.
func registerCollector[T prom.Collector](reg prom.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var already prom.AlreadyRegisteredError
	if !errors.As(err, &already) {
		return collector, err
	}
	existing, ok := already.ExistingCollector.(T)
	if !ok {
		return collector, fmt.Errorf("collector type mismatch for %T", collector)
	}
	return existing, nil
}
