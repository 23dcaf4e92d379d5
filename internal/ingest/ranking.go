package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/sourcegraph/conc/pool"
	"github.com/splat3api/splatsync/internal/domain"
	"github.com/splat3api/splatsync/internal/logger"
	"github.com/splat3api/splatsync/internal/metrics"
	"github.com/splat3api/splatsync/internal/redact"
	"github.com/splat3api/splatsync/internal/splatnet"
)

// RankingSource pages through one mode leaderboard of a season.
func RankingSource(api API, mode domain.Mode) PageSource[splatnet.XRankingPlayer] {
	query := splatnet.RankingQuery(mode)
	return func(ctx context.Context, req PageRequest) (Page[splatnet.XRankingPlayer], error) {
		vars := map[string]any{
			"id":     req.Scope,
			"page":   req.Group,
			"first":  req.PageSize,
			"cursor": nil,
		}
		if req.Cursor != "" {
			vars["cursor"] = req.Cursor
		}

		raw, err := api.FetchPage(ctx, query, vars)
		if err != nil {
			return Page[splatnet.XRankingPlayer]{}, err
		}
		conn, err := splatnet.DecodeXRankingPage(mode, raw)
		if err != nil {
			return Page[splatnet.XRankingPlayer]{}, err
		}
		return Page[splatnet.XRankingPlayer]{
			Records:     conn.Players(),
			HasNextPage: conn.PageInfo.HasNextPage,
			EndCursor:   conn.Cursor(),
		}, nil
	}
}

// EncodeRanking turns records into sorted-set members scored by rank.
func EncodeRanking(records []domain.RankingRecord) ([]domain.ScoredMember, error) {
	out := make([]domain.ScoredMember, 0, len(records))
	for _, r := range records {
		b, err := sonic.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("encode rank %d: %w", r.Rank, err)
		}
		out = append(out, domain.ScoredMember{Score: float64(r.Rank), Member: b})
	}
	return out, nil
}

type RankingRefresherConfig struct {
	API       API
	Cache     RankingCache
	Snapshots SnapshotSink
	Fetch     FetchConfig
	Region    string
	Modes     []domain.Mode    // default: every mode
	Sleep     SleepFunc        // default: wall clock
	Now       func() time.Time // default: time.Now
	Metrics   *metrics.Manager
	Logger    logger.Logger
}

// RankingRefresher refreshes every X ranking mode of the current season.
type RankingRefresher struct {
	api       API
	cache     RankingCache
	snapshots SnapshotSink
	fetch     FetchConfig
	region    string
	modes     []domain.Mode
	sleep     SleepFunc
	now       func() time.Time
	metrics   *metrics.Manager
	log       logger.Logger
}

func NewRankingRefresher(cfg RankingRefresherConfig) *RankingRefresher {
	r := &RankingRefresher{
		api:       cfg.API,
		cache:     cfg.Cache,
		snapshots: cfg.Snapshots,
		fetch:     cfg.Fetch,
		region:    cfg.Region,
		modes:     cfg.Modes,
		sleep:     cfg.Sleep,
		now:       cfg.Now,
		metrics:   cfg.Metrics,
		log:       cfg.Logger,
	}
	if len(r.modes) == 0 {
		r.modes = domain.AllModes()
	}
	if r.sleep == nil {
		r.sleep = Sleep
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.log == nil {
		r.log = logger.Nop()
	}
	return r
}

// Refresh resolves the current season then refreshes all modes concurrently.
// A failing mode does not cancel the others; all failures are returned joined.
func (r *RankingRefresher) Refresh(ctx context.Context) error {
	seasons, err := r.api.FetchSeasonInfo(ctx, r.region)
	if err != nil {
		r.log.Error("season lookup failed",
			logger.String("stage", StageSeason),
			logger.String("region", r.region),
			logger.Error(err))
		return fmt.Errorf("season info: %w", err)
	}
	season := seasons.Current
	capturedAt := r.now()

	r.log.Info("refreshing x rankings",
		logger.String("season", season.Name),
		logger.Int("modes", len(r.modes)))

	p := pool.New().WithContext(ctx)
	for _, mode := range r.modes {
		p.Go(func(ctx context.Context) error {
			return r.refreshMode(ctx, season.ID, mode, capturedAt)
		})
	}
	return p.Wait()
}

func (r *RankingRefresher) refreshMode(ctx context.Context, seasonID string, mode domain.Mode, capturedAt time.Time) error {
	dataset := mode.Dataset()
	log := r.log.With(logger.String("dataset", dataset))

	started := time.Now()
	f := NewFetcher(r.fetch, r.sleep, log)
	players, stats, err := Fetch(ctx, f, RankingSource(r.api, mode), seasonID)
	r.metrics.ObserveFetch(dataset, stats.Pages, stats.Retries, time.Since(started), err)
	if err != nil {
		stage := StageFetch
		if errors.Is(err, domain.ErrMalformedPayload) {
			stage = StageDecode
		}
		log.Error("ranking fetch failed",
			logger.String("stage", stage),
			logger.Int("pages", stats.Pages),
			logger.Int("retries", stats.Retries),
			logger.Error(err))
		return fmt.Errorf("%s: %w", dataset, err)
	}

	records := redact.Rankings(players)
	if len(records) == 0 {
		err := fmt.Errorf("%w: %s returned no records", domain.ErrDatasetUnavailable, dataset)
		log.Error("empty ranking", logger.String("stage", StageFetch), logger.Error(err))
		return err
	}

	members, err := EncodeRanking(records)
	if err != nil {
		log.Error("ranking encode failed", logger.String("stage", StageCache), logger.Error(err))
		return fmt.Errorf("%s: %w", dataset, err)
	}

	// the cache swap and the snapshot are independent; both are attempted
	var errs []error
	if err := r.cache.ReplaceDataset(ctx, dataset, members, capturedAt); err != nil {
		log.Error("cache publish failed", logger.String("stage", StageCache), logger.Error(err))
		errs = append(errs, fmt.Errorf("%s cache: %w", dataset, err))
	} else {
		r.metrics.CacheSwap(dataset)
	}

	path, err := r.snapshots.WriteRanking(ctx, mode, capturedAt, records)
	r.metrics.SnapshotWrite(err)
	if err != nil {
		log.Error("snapshot write failed", logger.String("stage", StageSnapshot), logger.Error(err))
		errs = append(errs, fmt.Errorf("%s snapshot: %w", dataset, err))
	}

	if len(errs) == 0 {
		log.Info("ranking refreshed",
			logger.Int("records", len(records)),
			logger.Int("pages", stats.Pages),
			logger.Int("retries", stats.Retries),
			logger.Duration("paused", stats.Paused),
			logger.String("snapshot", path),
			logger.Duration("took", time.Since(started)))
	}
	return errors.Join(errs...)
}
