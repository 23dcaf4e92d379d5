package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/splat3api/splatsync/internal/domain"
	"github.com/splat3api/splatsync/internal/logger"
	"github.com/splat3api/splatsync/internal/metrics"
	"github.com/splat3api/splatsync/internal/redact"
	"github.com/splat3api/splatsync/internal/splatnet"
	storeredis "github.com/splat3api/splatsync/internal/store/redis"
)

// DefaultRefreshThreshold is how much validity the cached schedule window
// must have left for a refresh to be skipped.
const DefaultRefreshThreshold = 2*time.Hour + 5*time.Minute

const scheduleDataset = "Schedules"

// ScheduleSource is a single-page source for the stage schedule query.
func ScheduleSource(api API) PageSource[splatnet.StageSchedule] {
	return func(ctx context.Context, _ PageRequest) (Page[splatnet.StageSchedule], error) {
		raw, err := api.FetchPage(ctx, splatnet.QueryStageSchedule, nil)
		if err != nil {
			return Page[splatnet.StageSchedule]{}, err
		}
		s, err := splatnet.DecodeStageSchedule(raw)
		if err != nil {
			return Page[splatnet.StageSchedule]{}, err
		}
		return Page[splatnet.StageSchedule]{Records: []splatnet.StageSchedule{s}}, nil
	}
}

// ScheduleTTL returns how long a schedule window stays valid at now: until
// its latest slot starts, in whole seconds.
func ScheduleTTL(s domain.StageSchedules, now time.Time) (time.Duration, error) {
	latest, ok := s.LatestStart()
	if !ok {
		return 0, fmt.Errorf("%w: schedule window is empty", domain.ErrDatasetUnavailable)
	}
	ttl := latest.Sub(now).Truncate(time.Second)
	if ttl <= 0 {
		return 0, fmt.Errorf("%w: latest schedule slot started at %s", domain.ErrDatasetUnavailable, latest.Format(time.RFC3339))
	}
	return ttl, nil
}

type ScheduleRefresherConfig struct {
	API       API
	Cache     KeyValueCache
	Fetch     FetchConfig
	Threshold time.Duration    // default: DefaultRefreshThreshold
	Sleep     SleepFunc        // default: wall clock
	Now       func() time.Time // default: time.Now
	Metrics   *metrics.Manager
	Logger    logger.Logger
}

// ScheduleRefresher keeps the schedule keys populated ahead of expiry.
type ScheduleRefresher struct {
	api       API
	cache     KeyValueCache
	fetch     FetchConfig
	threshold time.Duration
	sleep     SleepFunc
	now       func() time.Time
	metrics   *metrics.Manager
	log       logger.Logger
}

func NewScheduleRefresher(cfg ScheduleRefresherConfig) *ScheduleRefresher {
	r := &ScheduleRefresher{
		api:       cfg.API,
		cache:     cfg.Cache,
		fetch:     cfg.Fetch,
		threshold: cfg.Threshold,
		sleep:     cfg.Sleep,
		now:       cfg.Now,
		metrics:   cfg.Metrics,
		log:       cfg.Logger,
	}
	// one query, one page
	r.fetch.Groups = 1
	if r.threshold <= 0 {
		r.threshold = DefaultRefreshThreshold
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

// Refresh fetches and caches the schedule window unless the cached one is
// still valid for longer than the threshold. It reports whether it wrote.
func (r *ScheduleRefresher) Refresh(ctx context.Context) (bool, error) {
	log := r.log.With(logger.String("dataset", scheduleDataset))

	cached, ok, err := r.cache.Get(ctx, storeredis.KeySchedules)
	if err != nil {
		log.Error("schedule cache read failed", logger.String("stage", StageCache), logger.Error(err))
		return false, err
	}
	if ok && cached.FreshFor(r.threshold) {
		log.Info("cached schedules still fresh, skipping", logger.Duration("ttl", cached.TTL))
		return false, nil
	}

	started := time.Now()
	pages, stats, err := Fetch(ctx, NewFetcher(r.fetch, r.sleep, log), ScheduleSource(r.api), "")
	r.metrics.ObserveFetch(scheduleDataset, stats.Pages, stats.Retries, time.Since(started), err)
	if err != nil {
		stage := StageFetch
		if errors.Is(err, domain.ErrMalformedPayload) {
			stage = StageDecode
		}
		log.Error("schedule fetch failed", logger.String("stage", stage), logger.Error(err))
		return false, err
	}
	if len(pages) != 1 {
		return false, fmt.Errorf("%w: expected one schedule payload, got %d", domain.ErrDatasetUnavailable, len(pages))
	}

	schedules := redact.Schedules(pages[0])
	ttl, err := ScheduleTTL(schedules, r.now())
	if err != nil {
		log.Error("stale schedule window", logger.String("stage", StageFetch), logger.Error(err))
		return false, err
	}

	entries, err := scheduleEntries(schedules)
	if err != nil {
		log.Error("schedule encode failed", logger.String("stage", StageCache), logger.Error(err))
		return false, err
	}

	var errs []error
	for _, e := range entries {
		if err := r.cache.Set(ctx, e.key, e.value, ttl); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		log.Error("schedule cache write failed", logger.String("stage", StageCache), logger.Error(err))
		return false, err
	}

	r.metrics.CacheSwap(scheduleDataset)
	log.Info("schedules refreshed", logger.Duration("ttl", ttl))
	return true, nil
}

type cacheEntry struct {
	key   string
	value []byte
}

// scheduleEntries encodes every schedule key. The umbrella Schedules key goes
// last so a partially failed refresh is retried on the next run.
func scheduleEntries(s domain.StageSchedules) ([]cacheEntry, error) {
	parts := []struct {
		key string
		v   any
	}{
		{storeredis.KeyRegularSchedule, s.Regular},
		{storeredis.KeyBankaraOpenSchedule, s.BankaraOpen},
		{storeredis.KeyBankaraChallengeSchedule, s.BankaraChallenge},
		{storeredis.KeyXBattleSchedule, s.X},
		{storeredis.KeyLeagueSchedule, s.League},
		{storeredis.KeySalmonRunSchedule, s.SalmonRun},
		{storeredis.KeySchedules, s},
	}

	out := make([]cacheEntry, 0, len(parts))
	for _, p := range parts {
		b, err := sonic.Marshal(p.v)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", p.key, err)
		}
		out = append(out, cacheEntry{key: p.key, value: b})
	}
	return out, nil
}
