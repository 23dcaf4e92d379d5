package storage

import (
	"fmt"
	"path"
	"time"
	_ "time/tzdata"

	"github.com/splat3api/splatsync/internal/domain"
)

// DateLayout renders the day part of every object path, ex: 18-Oct-2026.
const DateLayout = "02-Jan-2006"

// SeasonInfoPath is where the season list is published.
const SeasonInfoPath = "seasoninfo.json"

// DefaultZone is the zone dates and hours are rendered in.
const DefaultZone = "Asia/Tokyo"

// Layout maps snapshots and archives to object keys.
// Dates and hours are rendered in the layout zone, not in UTC.
type Layout struct {
	loc *time.Location
}

func NewLayout(loc *time.Location) Layout {
	if loc == nil {
		loc = time.UTC
	}
	return Layout{loc: loc}
}

// LoadLayout resolves an IANA zone name; empty means DefaultZone.
func LoadLayout(zone string) (Layout, error) {
	if zone == "" {
		zone = DefaultZone
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return Layout{}, fmt.Errorf("%w: time zone %q: %w", domain.ErrConfiguration, zone, err)
	}
	return NewLayout(loc), nil
}

func (l Layout) Location() *time.Location { return l.loc }

func (l Layout) Date(t time.Time) string {
	return t.In(l.loc).Format(DateLayout)
}

// ParseDate reads a DD-Mon-YYYY date as midnight in the layout zone.
func (l Layout) ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, l.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want DD-Mon-YYYY): %w", s, err)
	}
	return t, nil
}

// StartOfDay returns midnight of t's day in the layout zone.
func (l Layout) StartOfDay(t time.Time) time.Time {
	y, m, d := t.In(l.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, l.loc)
}

// SnapshotPath is jsons/<date>/<mode>/<mode>.<date>.<HH>.json.
func (l Layout) SnapshotPath(mode domain.Mode, at time.Time) string {
	date := l.Date(at)
	hour := at.In(l.loc).Format("15")
	return path.Join("jsons", date, string(mode), fmt.Sprintf("%s.%s.%s.json", mode, date, hour))
}

// SnapshotPrefix lists every snapshot of mode taken on day.
func (l Layout) SnapshotPrefix(mode domain.Mode, day time.Time) string {
	return path.Join("jsons", l.Date(day), string(mode)) + "/"
}

// ArchivePath is archives/<mode>/<date>.tar.gz.
func (l Layout) ArchivePath(mode domain.Mode, day time.Time) string {
	return path.Join("archives", string(mode), l.Date(day)+".tar.gz")
}
