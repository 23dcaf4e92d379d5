package ingest

import (
	"context"
	"time"
)

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the wall-clock SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Pacer spaces out requests to one upstream dataset with fixed pauses:
// PageInterval between pages of a group and GroupInterval before each new
// group. It is not safe for concurrent use; each dataset fetch owns one.
type Pacer struct {
	PageInterval  time.Duration
	GroupInterval time.Duration

	sleep SleepFunc
	slept time.Duration
}

func NewPacer(page, group time.Duration, sleep SleepFunc) *Pacer {
	if sleep == nil {
		sleep = Sleep
	}
	return &Pacer{PageInterval: page, GroupInterval: group, sleep: sleep}
}

// BeforePage waits before the page at index (0-based) of group (1-based).
// The very first request of a fetch is not delayed.
func (p *Pacer) BeforePage(ctx context.Context, group, index int) error {
	switch {
	case group <= 1 && index == 0:
		return ctx.Err()
	case index == 0:
		return p.Wait(ctx, p.GroupInterval)
	default:
		return p.Wait(ctx, p.PageInterval)
	}
}

// Wait sleeps for d through the injected sleep function.
func (p *Pacer) Wait(ctx context.Context, d time.Duration) error {
	p.slept += d
	return p.sleep(ctx, d)
}

// Slept returns the total pause requested so far.
func (p *Pacer) Slept() time.Duration {
	return p.slept
}
