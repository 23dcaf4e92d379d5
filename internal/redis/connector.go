package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/redis/go-redis/v9"
	"github.com/splat3api/splatsync/internal/logger"
)

// ConnectOptions configures the cache client and how long New keeps
// trying to reach it.
type ConnectOptions struct {
	Addr         string // ex: "localhost:6379"
	User         string
	Password     string
	RedisDB      int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int

	ConnectTimeout time.Duration // budget for all ping attempts (ex: 30s)
	RetryInterval  time.Duration // first wait, doubled each attempt (ex: 2s)
	MaxWait        time.Duration // cap on a single wait (ex: 10s)
	PingTimeout    time.Duration // per ping (ex: 2s)
	WarnThreshold  int           // attempts logged at warn before switching to error
}

func (o ConnectOptions) validate() error {
	var errs []error
	positive := []struct {
		name string
		v    time.Duration
	}{
		{"ConnectTimeout", o.ConnectTimeout},
		{"RetryInterval", o.RetryInterval},
		{"MaxWait", o.MaxWait},
		{"PingTimeout", o.PingTimeout},
	}
	for _, p := range positive {
		if p.v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be > 0, got %v", p.name, p.v))
		}
	}
	if o.WarnThreshold < 0 {
		errs = append(errs, fmt.Errorf("WarnThreshold must be >= 0, got %d", o.WarnThreshold))
	}
	return errors.Join(errs...)
}

// New opens a client and pings it with exponential backoff until
// ConnectTimeout or ctx expires. Every command session owns one client and
// closes it when done. On failure the client is already closed.
func New(ctx context.Context, opts ConnectOptions, log logger.Logger) (*redis.Client, error) {
	if err := opts.validate(); err != nil {
		log.Error("invalid redis connect options", logger.Error(err))
		return nil, err
	}

	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Username:     opts.User,
		Password:     opts.Password,
		DB:           opts.RedisDB,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		PoolSize:     opts.PoolSize,
	})

	if err := ping(ctx, client, opts, log.With(logger.String("addr", opts.Addr))); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func ping(parent context.Context, client *redis.Client, opts ConnectOptions, log logger.Logger) error {
	ctx, cancel := context.WithTimeout(parent, opts.ConnectTimeout)
	defer cancel()

	log.Info("connecting to redis", logger.Duration("timeout", opts.ConnectTimeout))
	started := time.Now()
	attempt := 0

	op := func() (struct{}, error) {
		attempt++
		pingCtx, pingCancel := context.WithTimeout(ctx, opts.PingTimeout)
		defer pingCancel()
		return struct{}{}, client.Ping(pingCtx).Err()
	}
	notify := func(err error, next time.Duration) {
		fields := []logger.Field{
			logger.Int("attempt", attempt),
			logger.Duration("next_retry_in", next),
			logger.Error(err),
		}
		if attempt <= opts.WarnThreshold {
			log.Warn("redis ping failed, retrying", fields...)
			return
		}
		log.Error("redis still unavailable", append(fields, logger.Duration("remaining", timeLeft(ctx)))...)
	}

	_, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(&backoff.ExponentialBackOff{
			InitialInterval: opts.RetryInterval,
			Multiplier:      2,
			MaxInterval:     opts.MaxWait,
		}),
		backoff.WithMaxElapsedTime(opts.ConnectTimeout),
		backoff.WithNotify(notify),
	)
	if err != nil {
		log.Error("redis unavailable",
			logger.Int("attempts", attempt),
			logger.Duration("timeout", opts.ConnectTimeout),
			logger.Error(err))
		return fmt.Errorf("redis unavailable at %s after %d attempts (timeout: %v): %w",
			opts.Addr, attempt, opts.ConnectTimeout, err)
	}

	if attempt > 1 {
		log.Warn("connected to redis after retry",
			logger.Int("attempts", attempt),
			logger.Duration("elapsed", time.Since(started)))
	} else {
		log.Info("connected to redis")
	}
	return nil
}

func timeLeft(ctx context.Context) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok {
		return 0
	}
	return time.Until(deadline)
}
