package deps

import (
	"context"
	"time"

	"github.com/splat3api/splatsync/internal/logger"
	"github.com/splat3api/splatsync/internal/metrics"
)

// Trigger runs one command message to completion.
type Trigger interface {
	Handle(ctx context.Context, message string) error
}

// Check probes one backing service for /readyz.
type Check func(ctx context.Context) error

type Deps struct {
	Logger           logger.Logger
	StartTime        time.Time
	Version          string
	Commit           string
	BuildDate        string
	GoVersion        string
	TimeNow          func() time.Time // for testing, defaults to time.Now
	AllowedHosts     []string         // Host headers allowed on /trigger, empty = any
	AllowedCIDRS     []string         // IPs allowed on /trigger and /readyz
	TrustProxy       bool             // true if running behind a trusted reverse proxy
	Trigger          Trigger          // command entry point
	TriggerTimeout   time.Duration    // upper bound of one triggered command
	TriggerBurst     int              // rate limit burst per client IP
	TriggerPerMinute int              // rate limit refill per client IP
	Checks           map[string]Check // readiness probes by component name
	Metrics          *metrics.Manager
}
