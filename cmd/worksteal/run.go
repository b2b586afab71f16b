package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aminehadbi/worksteal/core"
	"github.com/aminehadbi/worksteal/internal/config"
	promexporter "github.com/aminehadbi/worksteal/observability/prometheus"
)

var errCounterMismatch = errors.New("counter does not match the number of successful tasks")

func newRunCommand() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Submit counter tasks from concurrent producers and verify the total",
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := config.NewViper(configFile)
			if err != nil {
				return err
			}
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}

			logger, err := cfg.Logger()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			zap.ReplaceGlobals(logger)

			undo, err := maxprocs.Set(maxprocs.Logger(logger.Sugar().Infof))
			defer undo()
			if err != nil {
				logger.Warn("failed to set GOMAXPROCS", zap.Error(err))
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			summary, err := run(ctx, cfg, logger, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			return verifySummary(summary)
		},
	}

	cmd.Flags().StringVar(&configFile, "config", "", "optional config file (yaml, json or toml)")
	// Flags are rebound to the per-run viper instance in RunE.
	cobra.CheckErr(config.BindFlags(cmd.Flags(), viper.New()))
	return cmd
}

// verifySummary checks that every successful task incremented the counter
// exactly once.
func verifySummary(summary Summary) error {
	if summary.Counter != int64(summary.Succeeded) {
		return fmt.Errorf("%w: counter=%d succeeded=%d", errCounterMismatch, summary.Counter, summary.Succeeded)
	}
	return nil
}

// Summary is the outcome of one run.
type Summary struct {
	Workers   int
	Submitted int
	Succeeded int
	Failed    int
	Discarded int
	Stolen    int64
	Counter   int64
	Elapsed   time.Duration
}

func run(ctx context.Context, cfg *config.Configuration, logger *zap.Logger, out io.Writer) (Summary, error) {
	reg := prom.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	exporter, err := promexporter.NewMetricsExporter("", reg, promexporter.ExporterOptions{Scheduler: cfg.Name})
	if err != nil {
		return Summary{}, err
	}

	s, err := core.New(cfg.SchedulerConfig(core.NewZapLogger(logger), exporter))
	if err != nil {
		return Summary{}, fmt.Errorf("starting scheduler: %w", err)
	}

	poller, err := promexporter.NewSnapshotPoller(reg, time.Second)
	if err != nil {
		s.Shutdown()
		return Summary{}, err
	}
	poller.AddScheduler(cfg.Name, s)
	poller.Start(ctx)
	defer poller.Stop()

	if cfg.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		logger.Info("serving metrics", zap.String("addr", cfg.MetricsAddr))
	}

	start := time.Now()
	var counter atomic.Int64
	futures, submitErr := produce(ctx, s, cfg, &counter)

	summary := Summary{Workers: s.WorkerCount(), Submitted: len(futures)}
	waitErr := collect(ctx, futures, &summary)

	if cfg.Drain {
		if err := s.ShutdownGraceful(cfg.ShutdownTimeout); err != nil {
			logger.Warn("graceful shutdown incomplete", zap.Error(err))
		}
	} else {
		s.Shutdown()
	}
	// Futures still open after an interrupt are resolved by the shutdown.
	if waitErr != nil {
		_ = collect(context.Background(), futures, &summary)
	}

	stats := s.Stats()
	summary.Stolen = stats.Stolen
	summary.Counter = counter.Load()
	summary.Elapsed = time.Since(start)

	fmt.Fprintf(out, "workers=%d submitted=%d succeeded=%d failed=%d discarded=%d stolen=%d counter=%d elapsed=%s\n",
		summary.Workers, summary.Submitted, summary.Succeeded, summary.Failed, summary.Discarded,
		summary.Stolen, summary.Counter, summary.Elapsed.Round(time.Millisecond))

	if submitErr != nil && !errors.Is(submitErr, context.Canceled) {
		return summary, submitErr
	}
	return summary, nil
}

// produce splits cfg.Tasks over cfg.Producers goroutines. Every task
// increments counter unless it is selected to fail.
func produce(ctx context.Context, s *core.Scheduler, cfg *config.Configuration, counter *atomic.Int64) ([]*core.Future[struct{}], error) {
	futures := make([]*core.Future[struct{}], cfg.Tasks)
	g, gctx := errgroup.WithContext(ctx)

	per := (cfg.Tasks + cfg.Producers - 1) / cfg.Producers
	for p := range cfg.Producers {
		lo := p * per
		hi := min(lo+per, cfg.Tasks)
		if lo >= hi {
			break
		}
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				f, err := core.Submit(s, counterTask(i, cfg.FailEvery, counter))
				futures[i] = f
				if err != nil {
					return err
				}
			}
			return nil
		})
	}
	err := g.Wait()

	submitted := futures[:0]
	for _, f := range futures {
		if f != nil {
			submitted = append(submitted, f)
		}
	}
	return submitted, err
}

var errInjected = errors.New("injected failure")

func counterTask(i, failEvery int, counter *atomic.Int64) core.TaskFunc[struct{}] {
	return func(ctx context.Context) (struct{}, error) {
		if failEvery > 0 && (i+1)%failEvery == 0 {
			return struct{}{}, fmt.Errorf("task %d: %w", i, errInjected)
		}
		counter.Add(1)
		return struct{}{}, nil
	}
}

// collect tallies resolved futures into summary. It returns ctx.Err() if ctx
// ends first, leaving the tallies untouched.
func collect(ctx context.Context, futures []*core.Future[struct{}], summary *Summary) error {
	for _, f := range futures {
		select {
		case <-f.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	summary.Succeeded, summary.Failed, summary.Discarded = 0, 0, 0
	for _, f := range futures {
		err := f.Err()
		switch {
		case err == nil:
			summary.Succeeded++
		case errors.Is(err, core.ErrTaskDiscarded), errors.Is(err, core.ErrSchedulerClosed):
			summary.Discarded++
		default:
			summary.Failed++
		}
	}
	return nil
}
