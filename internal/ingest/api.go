// Package ingest pulls datasets from upstream and publishes them to the
// cache and the snapshot bucket.
package ingest

import (
	"context"
	"time"

	"github.com/splat3api/splatsync/internal/domain"
)

// API is the authenticated upstream handle handed out by the credential
// provider. *splatnet.Client implements it.
type API interface {
	FetchPage(ctx context.Context, query string, variables map[string]any) ([]byte, error)
	FetchSeasonInfo(ctx context.Context, region string) (domain.Seasons, error)
}

// RankingCache publishes a ranking dataset in one indivisible step.
type RankingCache interface {
	ReplaceDataset(ctx context.Context, dataset string, members []domain.ScoredMember, capturedAt time.Time) error
}

// KeyValueCache is the TTL key/value side of the freshness cache.
type KeyValueCache interface {
	Get(ctx context.Context, key string) (domain.CacheEntry, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// SnapshotSink persists immutable JSON snapshots.
type SnapshotSink interface {
	WriteRanking(ctx context.Context, mode domain.Mode, capturedAt time.Time, records []domain.RankingRecord) (string, error)
	WriteSeasons(ctx context.Context, seasons domain.Seasons) (string, error)
}

// Failure stages used in logs.
const (
	StageSeason   = "season"
	StageFetch    = "fetch"
	StageDecode   = "decode"
	StageCache    = "cache"
	StageSnapshot = "snapshot"
)
