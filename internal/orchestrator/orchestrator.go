// Package orchestrator turns trigger messages into pipeline runs.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/splat3api/splatsync/internal/archive"
	"github.com/splat3api/splatsync/internal/logger"
	"github.com/splat3api/splatsync/internal/metrics"
	"github.com/splat3api/splatsync/internal/storage"
)

// ErrBusy is returned when the same command is already running.
var ErrBusy = crerr.New("command already running")

// Session holds the connections of one invocation. Close releases them.
type Session interface {
	RefreshSchedules(ctx context.Context) (bool, error)
	RefreshRankings(ctx context.Context) error
	UpdateSeasons(ctx context.Context) error
	Archive(ctx context.Context, day time.Time) ([]archive.Result, error)
	Close() error
}

// Opener opens a session for one invocation.
type Opener func(ctx context.Context, log logger.Logger) (Session, error)

type Config struct {
	Open    Opener
	Layout  storage.Layout
	Now     func() time.Time // default: time.Now
	Metrics *metrics.Manager
	Logger  logger.Logger
}

type Orchestrator struct {
	open    Opener
	layout  storage.Layout
	now     func() time.Time
	metrics *metrics.Manager
	log     logger.Logger

	mu      sync.Mutex
	running map[Kind]bool
}

func New(cfg Config) *Orchestrator {
	o := &Orchestrator{
		open:    cfg.Open,
		layout:  cfg.Layout,
		now:     cfg.Now,
		metrics: cfg.Metrics,
		log:     cfg.Logger,
		running: make(map[Kind]bool),
	}
	if o.now == nil {
		o.now = time.Now
	}
	if o.log == nil {
		o.log = logger.Nop()
	}
	return o
}

// Handle runs message to completion. Unknown messages and archive commands
// with an unparseable date are logged and ignored. The job error is returned
// as is.
func (o *Orchestrator) Handle(ctx context.Context, message string) error {
	cmd, ok := ParseCommand(message)
	if !ok {
		o.log.Warn("ignoring unknown command", logger.String("message", message))
		o.metrics.Trigger("unknown", metrics.OutcomeIgnored)
		return nil
	}

	// a bad date would fail every redelivery of the message, so it is acked
	var day time.Time
	if cmd.Kind == ArchiveXRanking {
		var err error
		if day, err = o.archiveDay(cmd.Date); err != nil {
			o.log.Warn("ignoring archive command with invalid date",
				logger.String("message", message),
				logger.Error(err))
			o.metrics.Trigger(string(cmd.Kind), metrics.OutcomeIgnored)
			return nil
		}
	}

	if !o.acquire(cmd.Kind) {
		o.log.Warn("command already running", logger.String("command", string(cmd.Kind)))
		o.metrics.Trigger(string(cmd.Kind), metrics.OutcomeBusy)
		return ErrBusy
	}
	defer o.release(cmd.Kind)

	log := o.log.With(
		logger.String("run_id", uuid.NewString()),
		logger.String("command", cmd.String()))

	err := o.run(ctx, cmd, day, log)
	o.metrics.Trigger(string(cmd.Kind), outcome(err))
	return err
}

func (o *Orchestrator) run(ctx context.Context, cmd Command, day time.Time, log logger.Logger) error {
	started := time.Now()
	log.Info("command started")

	sess, err := o.open(ctx, log)
	if err != nil {
		log.Error("failed to open session", logger.Error(err))
		return fmt.Errorf("open session: %w", err)
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			log.Warn("failed to close session", logger.Error(cerr))
		}
	}()

	err = o.dispatch(ctx, sess, cmd, day, log)
	if err != nil {
		log.Error("command failed", logger.Duration("took", time.Since(started)), logger.Error(err))
		return err
	}
	log.Info("command finished", logger.Duration("took", time.Since(started)))
	return nil
}

func (o *Orchestrator) dispatch(ctx context.Context, sess Session, cmd Command, day time.Time, log logger.Logger) error {
	switch cmd.Kind {
	case UpdateSchedule:
		wrote, err := sess.RefreshSchedules(ctx)
		if err == nil && !wrote {
			log.Info("schedules already fresh")
		}
		return err
	case UpdateXRanking:
		return sess.RefreshRankings(ctx)
	case UpdateSeasonInfo:
		return sess.UpdateSeasons(ctx)
	case ArchiveXRanking:
		results, err := sess.Archive(ctx, day)
		for _, r := range results {
			if r.Skipped {
				log.Info("archive skipped, no snapshots", logger.String("mode", string(r.Mode)))
			}
		}
		return err
	default:
		return fmt.Errorf("unhandled command %q", cmd.Kind)
	}
}

// archiveDay resolves the archived day: the explicit date, else today in
// the storage zone.
func (o *Orchestrator) archiveDay(date string) (time.Time, error) {
	if date == "" {
		return o.layout.StartOfDay(o.now()), nil
	}
	return o.layout.ParseDate(date)
}

func (o *Orchestrator) acquire(k Kind) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running[k] {
		return false
	}
	o.running[k] = true
	return true
}

func (o *Orchestrator) release(k Kind) {
	o.mu.Lock()
	delete(o.running, k)
	o.mu.Unlock()
}

func outcome(err error) string {
	if err != nil {
		return metrics.OutcomeError
	}
	return metrics.OutcomeSuccess
}
