package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"gocloud.dev/blob"

	"github.com/splat3api/splatsync/internal/archive"
	"github.com/splat3api/splatsync/internal/ingest"
	"github.com/splat3api/splatsync/internal/logger"
	"github.com/splat3api/splatsync/internal/orchestrator"
	"github.com/splat3api/splatsync/internal/redis"
	"github.com/splat3api/splatsync/internal/splatnet"
	"github.com/splat3api/splatsync/internal/storage"
	redisstore "github.com/splat3api/splatsync/internal/store/redis"
)

// session owns the connections of one command invocation.
type session struct {
	app    *App
	log    logger.Logger
	redis  *goredis.Client
	store  *redisstore.Store
	bucket *blob.Bucket
}

// openSession connects Redis (with retry) and the bucket. It is the
// orchestrator's Opener.
func (a *App) openSession(ctx context.Context, log logger.Logger) (orchestrator.Session, error) {
	client, err := redis.New(ctx, a.redisOptions(), log)
	if err != nil {
		return nil, err
	}

	bucket, err := storage.OpenBucket(ctx, a.cfg.BucketURL)
	if err != nil {
		_ = client.Close()
		return nil, err
	}

	return &session{
		app:    a,
		log:    log,
		redis:  client,
		store:  redisstore.NewStore(client),
		bucket: bucket,
	}, nil
}

func (a *App) redisOptions() redis.ConnectOptions {
	return redis.ConnectOptions{
		Addr:           a.cfg.RedisAddr,
		User:           a.cfg.RedisUser,
		Password:       a.cfg.RedisPassword,
		RedisDB:        a.cfg.RedisDB,
		DialTimeout:    a.cfg.RedisDT,
		ReadTimeout:    a.cfg.RedisRT,
		WriteTimeout:   a.cfg.RedisWT,
		PoolSize:       a.cfg.RedisPoolSize,
		ConnectTimeout: a.cfg.RedisConnectTimeout,
		RetryInterval:  a.cfg.RedisRetryInterval,
		MaxWait:        a.cfg.RedisMaxWait,
		PingTimeout:    a.cfg.RedisPingTimeout,
		WarnThreshold:  a.cfg.RedisWarnThreshold,
	}
}

func (a *App) fetchConfig() ingest.FetchConfig {
	return ingest.FetchConfig{
		Groups:        a.cfg.PageGroups,
		PageSize:      a.cfg.PageSize,
		MaxRetries:    a.cfg.MaxRetries,
		RetryMinWait:  a.cfg.RetryMinWait,
		RetryMaxWait:  a.cfg.RetryMaxWait,
		PageInterval:  a.cfg.PageInterval,
		GroupInterval: a.cfg.GroupInterval,
	}
}

// api authenticates against upstream, reusing the cached bearer token.
func (s *session) api(ctx context.Context) (ingest.API, error) {
	auth, err := splatnet.NewAuthenticator(splatnet.AuthConfig{
		ServiceID: s.app.cfg.ServiceID,
		Source:    splatnet.StaticToken(s.app.cfg.Credential),
		Cache:     s.store,
		Client: splatnet.ClientConfig{
			BaseURL:   s.app.cfg.BaseURL,
			Timeout:   s.app.cfg.UpstreamTimeout,
			Catalogue: s.app.catalogue,
			Logger:    s.log,
		},
		Logger: s.log,
	})
	if err != nil {
		return nil, err
	}
	client, err := auth.Initialize(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	return client, nil
}

func (s *session) snapshots() *storage.SnapshotWriter {
	return storage.NewSnapshotWriter(s.bucket, s.app.layout, s.log)
}

func (s *session) RefreshSchedules(ctx context.Context) (bool, error) {
	api, err := s.api(ctx)
	if err != nil {
		return false, err
	}
	return ingest.NewScheduleRefresher(ingest.ScheduleRefresherConfig{
		API:       api,
		Cache:     s.store,
		Fetch:     s.app.fetchConfig(),
		Threshold: s.app.cfg.RefreshThreshold,
		Metrics:   s.app.metrics,
		Logger:    s.log,
	}).Refresh(ctx)
}

func (s *session) RefreshRankings(ctx context.Context) error {
	api, err := s.api(ctx)
	if err != nil {
		return err
	}
	return ingest.NewRankingRefresher(ingest.RankingRefresherConfig{
		API:       api,
		Cache:     s.store,
		Snapshots: s.snapshots(),
		Fetch:     s.app.fetchConfig(),
		Region:    s.app.cfg.Region,
		Metrics:   s.app.metrics,
		Logger:    s.log,
	}).Refresh(ctx)
}

func (s *session) UpdateSeasons(ctx context.Context) error {
	api, err := s.api(ctx)
	if err != nil {
		return err
	}
	return ingest.NewSeasonJob(api, s.snapshots(), s.app.cfg.Region, s.app.metrics, s.log).Run(ctx)
}

func (s *session) Archive(ctx context.Context, day time.Time) ([]archive.Result, error) {
	return archive.New(archive.Config{
		Bucket:  s.bucket,
		Layout:  s.app.layout,
		Workers: s.app.cfg.ArchiveWorkers,
		Metrics: s.app.metrics,
		Logger:  s.log,
	}).Archive(ctx, day)
}

func (s *session) Close() error {
	var errs []error
	if err := s.bucket.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close bucket: %w", err))
	}
	if err := s.redis.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close redis: %w", err))
	}
	return errors.Join(errs...)
}
