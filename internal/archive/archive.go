// Package archive compacts a day of ranking snapshots into one tar.gz per mode.
package archive

import (
	"archive/tar"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/panjf2000/ants/v2"
	"gocloud.dev/blob"

	"github.com/splat3api/splatsync/internal/domain"
	"github.com/splat3api/splatsync/internal/logger"
	"github.com/splat3api/splatsync/internal/metrics"
	"github.com/splat3api/splatsync/internal/storage"
)

const contentTypeGzip = "application/gzip"

// Result reports what happened to one mode.
type Result struct {
	Mode    domain.Mode
	Key     string // archive object, empty when skipped
	Entries int
	Skipped bool
}

type Config struct {
	Bucket  *blob.Bucket
	Layout  storage.Layout
	Modes   []domain.Mode // default: every mode
	Workers int           // default: one per mode
	Metrics *metrics.Manager
	Logger  logger.Logger
}

// Archiver builds the daily archives. Output is byte-for-byte reproducible
// for a given snapshot set, so re-running a day overwrites it with the same
// object.
type Archiver struct {
	bucket  *blob.Bucket
	layout  storage.Layout
	modes   []domain.Mode
	workers int
	metrics *metrics.Manager
	log     logger.Logger
}

func New(cfg Config) *Archiver {
	a := &Archiver{
		bucket:  cfg.Bucket,
		layout:  cfg.Layout,
		modes:   cfg.Modes,
		workers: cfg.Workers,
		metrics: cfg.Metrics,
		log:     cfg.Logger,
	}
	if len(a.modes) == 0 {
		a.modes = domain.AllModes()
	}
	if a.workers <= 0 {
		a.workers = len(a.modes)
	}
	if a.log == nil {
		a.log = logger.Nop()
	}
	return a
}

// Archive builds archives/<mode>/<date>.tar.gz for every mode with snapshots
// on day. Results are in mode order; failures are joined.
func (a *Archiver) Archive(ctx context.Context, day time.Time) ([]Result, error) {
	pool, err := ants.NewPool(a.workers)
	if err != nil {
		return nil, fmt.Errorf("create archive pool: %w", err)
	}
	defer pool.Release()

	results := make([]Result, len(a.modes))
	errs := make([]error, len(a.modes))

	var wg sync.WaitGroup
	for i, mode := range a.modes {
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			results[i], errs[i] = a.archiveMode(ctx, mode, day)
		}); err != nil {
			wg.Done()
			results[i] = Result{Mode: mode}
			errs[i] = fmt.Errorf("%s: submit: %w", mode, err)
		}
	}
	wg.Wait()

	return results, errors.Join(errs...)
}

func (a *Archiver) archiveMode(ctx context.Context, mode domain.Mode, day time.Time) (Result, error) {
	res := Result{Mode: mode}
	log := a.log.With(logger.String("mode", string(mode)), logger.String("date", a.layout.Date(day)))

	keys, err := a.snapshotKeys(ctx, a.layout.SnapshotPrefix(mode, day))
	if err != nil {
		log.Error("snapshot listing failed", logger.String("stage", "archive"), logger.Error(err))
		return res, fmt.Errorf("%s: %w", mode, err)
	}
	if len(keys) == 0 {
		log.Warn("no snapshots to archive")
		res.Skipped = true
		return res, nil
	}

	res.Key = a.layout.ArchivePath(mode, day)

	// cancelling the writer context before Close discards the upload
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w, err := a.bucket.NewWriter(wctx, res.Key, &blob.WriterOptions{ContentType: contentTypeGzip})
	if err != nil {
		return res, fmt.Errorf("%w: open %s: %w", domain.ErrStorageWrite, res.Key, err)
	}

	if err := writeTarGz(ctx, w, a.bucket, keys, a.layout.StartOfDay(day)); err != nil {
		cancel()
		_ = w.Close()
		log.Error("archive aborted", logger.String("stage", "archive"), logger.Error(err))
		return res, fmt.Errorf("%w: %s: %w", domain.ErrStorageWrite, res.Key, err)
	}
	if err := w.Close(); err != nil {
		log.Error("archive upload failed", logger.String("stage", "archive"), logger.Error(err))
		return res, fmt.Errorf("%w: close %s: %w", domain.ErrStorageWrite, res.Key, err)
	}

	res.Entries = len(keys)
	a.metrics.ArchiveWritten(string(mode))
	log.Info("archive written", logger.String("key", res.Key), logger.Int("entries", res.Entries))
	return res, nil
}

// snapshotKeys lists the .json objects under prefix in key order.
func (a *Archiver) snapshotKeys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	it := a.bucket.List(&blob.ListOptions{Prefix: prefix})
	for {
		obj, err := it.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", prefix, err)
		}
		if obj.IsDir || !strings.HasSuffix(obj.Key, ".json") {
			continue
		}
		keys = append(keys, obj.Key)
	}
	sort.Strings(keys)
	return keys, nil
}

// writeTarGz streams keys into dst as a gzip'd tar, one object in memory at
// a time. Entries are named by base name and stamped with modTime.
func writeTarGz(ctx context.Context, dst io.Writer, src *blob.Bucket, keys []string, modTime time.Time) error {
	gz := gzip.NewWriter(dst)
	// klauspost writes ModTime.Unix() even for the zero time; epoch encodes as 0
	gz.ModTime = time.Unix(0, 0)
	tw := tar.NewWriter(gz)

	var compact bytes.Buffer
	for _, key := range keys {
		raw, err := src.ReadAll(ctx, key)
		if err != nil {
			return fmt.Errorf("read %s: %w", key, err)
		}
		compact.Reset()
		if err := json.Compact(&compact, raw); err != nil {
			return fmt.Errorf("snapshot %s: %w", key, err)
		}

		hdr := &tar.Header{
			Typeflag: tar.TypeReg,
			Name:     path.Base(key),
			Mode:     0o644,
			Size:     int64(compact.Len()),
			ModTime:  modTime,
			Format:   tar.FormatUSTAR,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return fmt.Errorf("tar header %s: %w", key, err)
		}
		if _, err := tw.Write(compact.Bytes()); err != nil {
			return fmt.Errorf("tar write %s: %w", key, err)
		}
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("tar close: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("gzip close: %w", err)
	}
	return nil
}
