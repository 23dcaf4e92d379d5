package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/splat3api/splatsync/internal/domain"
	"github.com/splat3api/splatsync/internal/logger"
)

// FetchConfig controls pagination, retries and pacing of one dataset fetch.
type FetchConfig struct {
	Groups        int           // disjoint page groups, each with its own cursor chain
	PageSize      int           // records requested per page
	MaxRetries    int           // retries per page after the first attempt
	RetryMinWait  time.Duration // first backoff
	RetryMaxWait  time.Duration // backoff cap
	PageInterval  time.Duration // pause between pages
	GroupInterval time.Duration // pause before each new group
}

// DefaultFetchConfig mirrors the upstream limits observed in production.
func DefaultFetchConfig() FetchConfig {
	return FetchConfig{
		Groups:        5,
		PageSize:      25,
		MaxRetries:    3,
		RetryMinWait:  5 * time.Second,
		RetryMaxWait:  10 * time.Second,
		PageInterval:  time.Second,
		GroupInterval: 5 * time.Second,
	}
}

// PageRequest identifies one page. Cursor is empty for the first page of a group.
type PageRequest struct {
	Scope    string
	Group    int
	Cursor   string
	PageSize int
}

type Page[T any] struct {
	Records     []T
	HasNextPage bool
	EndCursor   string
}

// PageSource issues one page request. Transient failures must wrap
// domain.ErrTransientUpstream to be retried.
type PageSource[T any] func(ctx context.Context, req PageRequest) (Page[T], error)

type FetchStats struct {
	Pages   int
	Retries int
	Records int
	Paused  time.Duration // pacing and retry waits requested during the fetch
}

// Fetcher walks page groups and cursor chains for a single dataset.
type Fetcher struct {
	cfg   FetchConfig
	pacer *Pacer
	log   logger.Logger
}

func NewFetcher(cfg FetchConfig, sleep SleepFunc, log logger.Logger) *Fetcher {
	if cfg.Groups <= 0 {
		cfg.Groups = 1
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Fetcher{
		cfg:   cfg,
		pacer: NewPacer(cfg.PageInterval, cfg.GroupInterval, sleep),
		log:   log,
	}
}

// Fetch returns every record of scope, groups in order and pages in cursor
// order. Any page that still fails after MaxRetries fails the whole fetch
// and no records are returned.
func Fetch[T any](ctx context.Context, f *Fetcher, src PageSource[T], scope string) (out []T, stats FetchStats, err error) {
	pausedBefore := f.pacer.Slept()
	defer func() { stats.Paused = f.pacer.Slept() - pausedBefore }()

	for group := 1; group <= f.cfg.Groups; group++ {
		cursor := ""
		for index := 0; ; index++ {
			if err := f.pacer.BeforePage(ctx, group, index); err != nil {
				return nil, stats, err
			}

			req := PageRequest{Scope: scope, Group: group, Cursor: cursor, PageSize: f.cfg.PageSize}
			page, err := fetchWithRetry(ctx, f, src, req, &stats)
			if err != nil {
				return nil, stats, fmt.Errorf("group %d page %d: %w", group, index+1, err)
			}
			stats.Pages++
			out = append(out, page.Records...)

			if !page.HasNextPage {
				break
			}
			if page.EndCursor == "" || page.EndCursor == cursor {
				return nil, stats, fmt.Errorf("%w: group %d page %d reports more pages without advancing the cursor",
					domain.ErrDatasetUnavailable, group, index+1)
			}
			cursor = page.EndCursor
		}
	}

	stats.Records = len(out)
	return out, stats, nil
}

func fetchWithRetry[T any](ctx context.Context, f *Fetcher, src PageSource[T], req PageRequest, stats *FetchStats) (Page[T], error) {
	policy := &backoff.ExponentialBackOff{
		InitialInterval: f.cfg.RetryMinWait,
		Multiplier:      2,
		MaxInterval:     f.cfg.RetryMaxWait,
	}
	policy.Reset()

	for attempt := 0; ; attempt++ {
		page, err := src(ctx, req)
		if err == nil {
			return page, nil
		}
		if !errors.Is(err, domain.ErrTransientUpstream) {
			return Page[T]{}, err
		}
		if attempt >= f.cfg.MaxRetries {
			return Page[T]{}, fmt.Errorf("giving up after %d retries: %w", attempt, err)
		}

		wait := max(policy.NextBackOff(), f.cfg.RetryMinWait)
		stats.Retries++
		f.log.Warn("transient upstream error, retrying page",
			logger.Int("group", req.Group),
			logger.Int("attempt", attempt+1),
			logger.Duration("next_retry_in", wait),
			logger.Error(err))

		if err := f.pacer.Wait(ctx, wait); err != nil {
			return Page[T]{}, err
		}
	}
}
