package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/splat3api/splatsync/internal/logger"
	"github.com/splat3api/splatsync/internal/orchestrator"
)

// Trigger runs one command message.
type Trigger interface {
	Handle(ctx context.Context, message string) error
}

// fire runs command under timeout. A command still running from the
// previous tick is reported, not treated as a failure.
func fire(ctx context.Context, t Trigger, command string, timeout time.Duration, log logger.Logger) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	err := t.Handle(ctx, command)
	switch {
	case err == nil:
	case errors.Is(err, orchestrator.ErrBusy):
		log.Warn("previous run still in progress, tick skipped", logger.String("command", command))
	default:
		log.Error("scheduled command failed", logger.String("command", command), logger.Error(err))
	}
}
