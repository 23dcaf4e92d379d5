package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"gocloud.dev/blob"

	"github.com/splat3api/splatsync/internal/domain"
	"github.com/splat3api/splatsync/internal/logger"
)

const contentTypeJSON = "application/json"

// SnapshotWriter persists immutable JSON snapshots to a bucket.
type SnapshotWriter struct {
	bucket *blob.Bucket
	layout Layout
	log    logger.Logger
}

func NewSnapshotWriter(bucket *blob.Bucket, layout Layout, log logger.Logger) *SnapshotWriter {
	if log == nil {
		log = logger.Nop()
	}
	return &SnapshotWriter{bucket: bucket, layout: layout, log: log}
}

// WriteRanking stores the records of one mode as a JSON array under the
// hourly snapshot path of capturedAt and returns that path.
func (w *SnapshotWriter) WriteRanking(ctx context.Context, mode domain.Mode, capturedAt time.Time, records []domain.RankingRecord) (string, error) {
	if records == nil {
		records = []domain.RankingRecord{}
	}
	key := w.layout.SnapshotPath(mode, capturedAt)
	return key, w.put(ctx, key, records)
}

// WriteSeasons stores [current, past...] at SeasonInfoPath.
func (w *SnapshotWriter) WriteSeasons(ctx context.Context, seasons domain.Seasons) (string, error) {
	list := make([]domain.SeasonInfo, 0, len(seasons.Past)+1)
	list = append(list, seasons.Current)
	list = append(list, seasons.Past...)
	return SeasonInfoPath, w.put(ctx, SeasonInfoPath, list)
}

func (w *SnapshotWriter) put(ctx context.Context, key string, v any) error {
	b, err := sonic.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %w", domain.ErrStorageWrite, key, err)
	}
	if err := w.bucket.WriteAll(ctx, key, b, &blob.WriterOptions{ContentType: contentTypeJSON}); err != nil {
		return fmt.Errorf("%w: put %s: %w", domain.ErrStorageWrite, key, err)
	}
	w.log.Debug("snapshot written", logger.String("key", key), logger.Int("bytes", len(b)))
	return nil
}
