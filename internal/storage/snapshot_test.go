package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"gocloud.dev/blob"
	"gocloud.dev/blob/memblob"

	"github.com/splat3api/splatsync/internal/domain"
)

func TestWriteRanking(t *testing.T) {
	ctx := context.Background()
	bucket := memblob.OpenBucket(nil)
	defer bucket.Close()

	w := NewSnapshotWriter(bucket, NewLayout(time.UTC), nil)
	at := time.Date(2026, 10, 18, 9, 12, 0, 0, time.UTC)
	records := []domain.RankingRecord{
		{Name: "Ikasumi", NameID: "1234", Rank: 1, XPower: 3512.7, Weapon: ".52 Gal"},
		{Name: "Tako", NameID: "5678", Rank: 2, XPower: 3499.1, Weapon: "Splattershot"},
	}

	key, err := w.WriteRanking(ctx, domain.ModeRainmaker, at, records)
	if err != nil {
		t.Fatalf("WriteRanking: %v", err)
	}
	if key != "jsons/18-Oct-2026/xRankingGl/xRankingGl.18-Oct-2026.09.json" {
		t.Fatalf("unexpected key %s", key)
	}

	attrs, err := bucket.Attributes(ctx, key)
	if err != nil {
		t.Fatalf("Attributes: %v", err)
	}
	if attrs.ContentType != "application/json" {
		t.Fatalf("content type = %s", attrs.ContentType)
	}

	raw, err := bucket.ReadAll(ctx, key)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	var got []domain.RankingRecord
	if err := sonic.Unmarshal(raw, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 || got[1] != records[1] {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestWriteSeasonsAsList(t *testing.T) {
	ctx := context.Background()
	bucket := memblob.OpenBucket(nil)
	defer bucket.Close()

	w := NewSnapshotWriter(bucket, NewLayout(time.UTC), nil)
	seasons := domain.Seasons{
		Current: domain.SeasonInfo{ID: "s4", Name: "Drizzle Season 2026"},
		Past:    []domain.SeasonInfo{{ID: "s3"}, {ID: "s2"}},
	}
	if _, err := w.WriteSeasons(ctx, seasons); err != nil {
		t.Fatalf("WriteSeasons: %v", err)
	}

	raw, err := bucket.ReadAll(ctx, SeasonInfoPath)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	var got []domain.SeasonInfo
	if err := sonic.Unmarshal(raw, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	ids := []string{}
	for _, s := range got {
		ids = append(ids, s.ID)
	}
	if len(ids) != 3 || ids[0] != "s4" || ids[2] != "s2" {
		t.Fatalf("unexpected order %v", ids)
	}
}

func TestWriteOnClosedBucket(t *testing.T) {
	bucket := memblob.OpenBucket(nil)
	_ = bucket.Close()

	w := NewSnapshotWriter(bucket, NewLayout(time.UTC), nil)
	_, err := w.WriteRanking(context.Background(), domain.ModeArea, time.Now(), nil)
	if !errors.Is(err, domain.ErrStorageWrite) {
		t.Fatalf("expected ErrStorageWrite, got %v", err)
	}
}

func TestOpenBucket(t *testing.T) {
	ctx := context.Background()
	if _, err := OpenBucket(ctx, ""); !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}

	dir := t.TempDir()
	b, err := OpenBucket(ctx, "file://"+dir)
	if err != nil {
		t.Fatalf("OpenBucket: %v", err)
	}
	defer b.Close()
	if err := b.WriteAll(ctx, "probe.json", []byte("{}"), &blob.WriterOptions{ContentType: "application/json"}); err != nil {
		t.Fatalf("WriteAll: %v", err)
	}
}
