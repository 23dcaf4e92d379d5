package ingest

import (
	"context"
	"fmt"

	"github.com/splat3api/splatsync/internal/logger"
	"github.com/splat3api/splatsync/internal/metrics"
)

// SeasonJob publishes the season list for clients that browse past rankings.
type SeasonJob struct {
	api       API
	snapshots SnapshotSink
	region    string
	metrics   *metrics.Manager
	log       logger.Logger
}

func NewSeasonJob(api API, snapshots SnapshotSink, region string, m *metrics.Manager, log logger.Logger) *SeasonJob {
	if log == nil {
		log = logger.Nop()
	}
	return &SeasonJob{api: api, snapshots: snapshots, region: region, metrics: m, log: log}
}

func (j *SeasonJob) Run(ctx context.Context) error {
	seasons, err := j.api.FetchSeasonInfo(ctx, j.region)
	if err != nil {
		j.log.Error("season lookup failed", logger.String("stage", StageSeason), logger.Error(err))
		return fmt.Errorf("season info: %w", err)
	}

	path, err := j.snapshots.WriteSeasons(ctx, seasons)
	j.metrics.SnapshotWrite(err)
	if err != nil {
		j.log.Error("season snapshot failed", logger.String("stage", StageSnapshot), logger.Error(err))
		return err
	}

	j.log.Info("season info saved",
		logger.String("current", seasons.Current.Name),
		logger.Int("past", len(seasons.Past)),
		logger.String("path", path))
	return nil
}
