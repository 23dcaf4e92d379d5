package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/splat3api/splatsync/internal/logger"
)

// Periodic fires a command on a fixed interval.
type Periodic struct {
	command    string
	trigger    Trigger
	logger     logger.Logger
	interval   time.Duration
	timeout    time.Duration
	runOnStart bool
	stopCh     chan struct{}
	done       chan struct{}
}

// NewPeriodic creates a periodic trigger. When runOnStart is set the command
// also fires once right after Start.
func NewPeriodic(
	command string,
	trigger Trigger,
	log logger.Logger,
	interval time.Duration,
	timeout time.Duration,
	runOnStart bool,
) *Periodic {
	return &Periodic{
		command:    command,
		trigger:    trigger,
		logger:     log,
		interval:   interval,
		timeout:    timeout,
		runOnStart: runOnStart,
		stopCh:     make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start begins the periodic loop
func (p *Periodic) Start(ctx context.Context) error {
	if p.interval <= 0 {
		return fmt.Errorf("%s: interval must be positive, got %s", p.command, p.interval)
	}

	ticker := time.NewTicker(p.interval)
	go func() {
		defer close(p.done)
		defer ticker.Stop()

		if p.runOnStart {
			fire(ctx, p.trigger, p.command, p.timeout, p.logger)
		}
		for {
			select {
			case <-ticker.C:
				fire(ctx, p.trigger, p.command, p.timeout, p.logger)
			case <-p.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop ends the loop and waits for a run in progress.
func (p *Periodic) Stop() {
	close(p.stopCh)
	<-p.done
}
