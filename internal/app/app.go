package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/splat3api/splatsync/internal/config"
	"github.com/splat3api/splatsync/internal/httpserver"
	"github.com/splat3api/splatsync/internal/httpserver/deps"
	"github.com/splat3api/splatsync/internal/logger"
	"github.com/splat3api/splatsync/internal/metrics"
	"github.com/splat3api/splatsync/internal/orchestrator"
	"github.com/splat3api/splatsync/internal/scheduler"
	"github.com/splat3api/splatsync/internal/splatnet"
	"github.com/splat3api/splatsync/internal/storage"
	"github.com/splat3api/splatsync/internal/version"
)

// job is a scheduler loop.
type job interface {
	Start(ctx context.Context) error
	Stop()
}

type App struct {
	cfg       *config.Config
	logger    logger.Logger
	metrics   *metrics.Manager
	catalogue *splatnet.Catalogue
	layout    storage.Layout
	orch      *orchestrator.Orchestrator

	// long lived, only used by /readyz
	probe *goredis.Client
}

// New wires the pipeline. It does not connect to anything yet: every
// command opens its own session.
func New(cfg *config.Config, log logger.Logger) (*App, error) {
	catalogue, err := splatnet.LoadCatalogue(cfg.QueryFile)
	if err != nil {
		return nil, fmt.Errorf("load query catalogue: %w", err)
	}
	layout, err := storage.LoadLayout(cfg.TimeZone)
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:       cfg,
		logger:    log,
		metrics:   metrics.NewManager(metrics.WithGoCollectors()),
		catalogue: catalogue,
		layout:    layout,
	}
	a.orch = orchestrator.New(orchestrator.Config{
		Open:    a.openSession,
		Layout:  layout,
		Metrics: a.metrics,
		Logger:  log,
	})
	return a, nil
}

// RunOnce handles a single command and returns its error.
func (a *App) RunOnce(ctx context.Context, command string) error {
	cmd, ok := orchestrator.ParseCommand(command)
	if !ok {
		return fmt.Errorf("unknown command %q", command)
	}
	// Handle acks a bad date; from the command line it is a usage error
	if cmd.Date != "" {
		if _, err := a.layout.ParseDate(cmd.Date); err != nil {
			return fmt.Errorf("invalid archive date %q: %w", cmd.Date, err)
		}
	}
	ctx, cancel := context.WithTimeout(ctx, a.cfg.TriggerTimeout)
	defer cancel()
	return a.orch.Handle(ctx, command)
}

// Serve runs the HTTP trigger endpoint and the scheduler until SIGINT or
// SIGTERM.
func (a *App) Serve() error {
	a.logger.Infof("🚀 Starting splatsync %s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Info(version.String())
	if a.cfg.BucketURL == "mem://" {
		a.logger.Warn("bucket is in memory, snapshots are lost on exit")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.probe = goredis.NewClient(&goredis.Options{
		Addr:     a.cfg.RedisAddr,
		Username: a.cfg.RedisUser,
		Password: a.cfg.RedisPassword,
		DB:       a.cfg.RedisDB,
	})

	d := deps.Deps{
		Logger:           a.logger,
		StartTime:        time.Now(),
		Version:          version.Version,
		Commit:           version.Commit,
		BuildDate:        version.BuildDate,
		GoVersion:        version.GoVersion,
		TimeNow:          time.Now,
		AllowedHosts:     a.cfg.AllowedHosts,
		AllowedCIDRS:     a.cfg.AllowedCIDRS,
		TrustProxy:       a.cfg.TrustProxy,
		Trigger:          a.orch,
		TriggerTimeout:   a.cfg.TriggerTimeout,
		TriggerBurst:     a.cfg.TriggerBurst,
		TriggerPerMinute: a.cfg.TriggerPerMinute,
		Metrics:          a.metrics,
		Checks: map[string]deps.Check{
			"redis":  func(ctx context.Context) error { return a.probe.Ping(ctx).Err() },
			"bucket": a.checkBucket,
		},
	}
	server := httpserver.New(a.cfg, a.logger, d)

	jobs, err := a.jobs()
	if err != nil {
		return err
	}
	for _, j := range jobs {
		if err := j.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
	}
	a.logger.Info("scheduler started", logger.Int("jobs", len(jobs)))

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	// waits for a scheduled run in progress, which sees the cancelled ctx
	for _, j := range jobs {
		j.Stop()
	}

	if err := a.probe.Close(); err != nil {
		a.logger.Warnf("failed to close redis probe: %v", err)
	}

	a.logger.Info("✅ splatsync stopped cleanly")
	return nil
}

func (a *App) jobs() ([]job, error) {
	var jobs []job
	periodic := []struct {
		command  orchestrator.Kind
		interval time.Duration
	}{
		{orchestrator.UpdateSchedule, a.cfg.ScheduleInterval},
		{orchestrator.UpdateXRanking, a.cfg.RankingInterval},
		{orchestrator.UpdateSeasonInfo, a.cfg.SeasonInterval},
	}
	for _, p := range periodic {
		if p.interval <= 0 {
			a.logger.Info("scheduled job disabled", logger.String("command", string(p.command)))
			continue
		}
		// schedule refresh is a no-op while fresh, so it is safe to run at boot
		runOnStart := p.command == orchestrator.UpdateSchedule
		jobs = append(jobs, scheduler.NewPeriodic(string(p.command), a.orch, a.logger, p.interval, a.cfg.TriggerTimeout, runOnStart))
	}

	if a.cfg.ArchiveAt != "" {
		hour, minute, err := config.ParseClock(a.cfg.ArchiveAt)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, scheduler.NewDaily(string(orchestrator.ArchiveXRanking), a.orch, a.logger,
			hour, minute, a.layout.Location(), a.cfg.TriggerTimeout))
	}
	return jobs, nil
}

func (a *App) checkBucket(ctx context.Context) error {
	bucket, err := storage.OpenBucket(ctx, a.cfg.BucketURL)
	if err != nil {
		return err
	}
	defer func() { _ = bucket.Close() }()

	ok, err := bucket.IsAccessible(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("bucket %s is not accessible", a.cfg.BucketURL)
	}
	return nil
}
