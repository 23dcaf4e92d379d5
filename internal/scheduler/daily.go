package scheduler

import (
	"context"
	"time"

	"github.com/splat3api/splatsync/internal/logger"
)

// NextRun returns the first hour:minute in loc strictly after now.
func NextRun(now time.Time, hour, minute int, loc *time.Location) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, hour, minute, 0, 0, loc)
	}
	return next
}

// Daily fires a command once a day at a wall clock time.
type Daily struct {
	command string
	trigger Trigger
	logger  logger.Logger
	hour    int
	minute  int
	loc     *time.Location
	timeout time.Duration
	now     func() time.Time
	stopCh  chan struct{}
	done    chan struct{}
}

func NewDaily(
	command string,
	trigger Trigger,
	log logger.Logger,
	hour, minute int,
	loc *time.Location,
	timeout time.Duration,
) *Daily {
	return &Daily{
		command: command,
		trigger: trigger,
		logger:  log,
		hour:    hour,
		minute:  minute,
		loc:     loc,
		timeout: timeout,
		now:     time.Now,
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}
}

func (d *Daily) Start(ctx context.Context) error {
	go func() {
		defer close(d.done)
		for {
			next := NextRun(d.now(), d.hour, d.minute, d.loc)
			d.logger.Info("next daily run scheduled",
				logger.String("command", d.command),
				logger.Time("at", next))

			timer := time.NewTimer(next.Sub(d.now()))
			select {
			case <-timer.C:
				fire(ctx, d.trigger, d.command, d.timeout, d.logger)
			case <-d.stopCh:
				timer.Stop()
				return
			case <-ctx.Done():
				timer.Stop()
				return
			}
		}
	}()
	return nil
}

// Stop ends the loop and waits for a run in progress.
func (d *Daily) Stop() {
	close(d.stopCh)
	<-d.done
}
