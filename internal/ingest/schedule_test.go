package ingest

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/splat3api/splatsync/internal/domain"
	"github.com/splat3api/splatsync/internal/splatnet"
	storeredis "github.com/splat3api/splatsync/internal/store/redis"
	"github.com/stretchr/testify/require"
)

type scheduleAPI struct {
	t     *testing.T
	calls int
}

func (a *scheduleAPI) FetchPage(_ context.Context, query string, _ map[string]any) ([]byte, error) {
	require.Equal(a.t, splatnet.QueryStageSchedule, query)
	a.calls++
	return os.ReadFile("../splatnet/testdata/stage_schedule.json")
}

func (a *scheduleAPI) FetchSeasonInfo(context.Context, string) (domain.Seasons, error) {
	return domain.Seasons{}, nil
}

var fixtureLatest = time.Date(2026, 10, 18, 2, 0, 0, 0, time.UTC)

func TestScheduleTTL(t *testing.T) {
	s := domain.StageSchedules{
		Regular: []domain.Schedule{{StartTime: fixtureLatest.Add(-2 * time.Hour)}},
		X:       []domain.Schedule{{StartTime: fixtureLatest}},
		SalmonRun: []domain.SalmonRunSchedule{
			{StartTime: fixtureLatest.Add(48 * time.Hour)},
		},
	}

	tests := []struct {
		name    string
		now     time.Time
		want    time.Duration
		wantErr bool
	}{
		{name: "six hours ahead", now: fixtureLatest.Add(-6 * time.Hour), want: 6 * time.Hour},
		{name: "sub second truncated", now: fixtureLatest.Add(-1500 * time.Millisecond), want: time.Second},
		{name: "latest slot already started", now: fixtureLatest, wantErr: true},
		{name: "window in the past", now: fixtureLatest.Add(time.Hour), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ScheduleTTL(s, tt.now)
			if tt.wantErr {
				require.ErrorIs(t, err, domain.ErrDatasetUnavailable)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}

	_, err := ScheduleTTL(domain.StageSchedules{}, fixtureLatest)
	require.ErrorIs(t, err, domain.ErrDatasetUnavailable)
}

func TestScheduleRefresherSkipsWhileFresh(t *testing.T) {
	ctx := context.Background()
	store, mr := newStore(t)
	api := &scheduleAPI{t: t}
	now := fixtureLatest.Add(-6 * time.Hour)

	r := NewScheduleRefresher(ScheduleRefresherConfig{
		API:   api,
		Cache: store,
		Fetch: testFetchConfig(5),
		Sleep: (&fakeSleep{}).sleep,
		Now:   func() time.Time { return now },
	})

	wrote, err := r.Refresh(ctx)
	require.NoError(t, err)
	require.True(t, wrote)
	require.Equal(t, 1, api.calls)

	for _, key := range []string{
		storeredis.KeySchedules,
		storeredis.KeyRegularSchedule,
		storeredis.KeyBankaraOpenSchedule,
		storeredis.KeyBankaraChallengeSchedule,
		storeredis.KeyXBattleSchedule,
		storeredis.KeyLeagueSchedule,
		storeredis.KeySalmonRunSchedule,
	} {
		require.True(t, mr.Exists(key), key)
		require.Equal(t, 6*time.Hour, mr.TTL(key), key)
	}

	// still valid for more than the threshold
	wrote, err = r.Refresh(ctx)
	require.NoError(t, err)
	require.False(t, wrote)
	require.Equal(t, 1, api.calls)

	// a skipped refresh leaves the TTL counting down
	mr.FastForward(time.Minute)
	now = now.Add(time.Minute)
	wrote, err = r.Refresh(ctx)
	require.NoError(t, err)
	require.False(t, wrote)
	require.Equal(t, 1, api.calls)
	for _, key := range []string{storeredis.KeySchedules, storeredis.KeyXBattleSchedule} {
		require.Equal(t, 6*time.Hour-time.Minute, mr.TTL(key), key)
	}

	mr.FastForward(4*time.Hour - time.Minute)
	now = now.Add(4*time.Hour - time.Minute)

	wrote, err = r.Refresh(ctx)
	require.NoError(t, err)
	require.True(t, wrote)
	require.Equal(t, 2, api.calls)
	require.Equal(t, 2*time.Hour, mr.TTL(storeredis.KeySchedules))
}

func TestScheduleRefresherContent(t *testing.T) {
	ctx := context.Background()
	store, mr := newStore(t)

	r := NewScheduleRefresher(ScheduleRefresherConfig{
		API:   &scheduleAPI{t: t},
		Cache: store,
		Sleep: (&fakeSleep{}).sleep,
		Now:   func() time.Time { return fixtureLatest.Add(-time.Hour) },
	})
	_, err := r.Refresh(ctx)
	require.NoError(t, err)

	raw, err := mr.Get(storeredis.KeySchedules)
	require.NoError(t, err)

	var got domain.StageSchedules
	require.NoError(t, sonic.Unmarshal([]byte(raw), &got))
	require.Len(t, got.BankaraChallenge, 2)
	require.Len(t, got.BankaraOpen, 2)
	require.Equal(t, domain.EventOnly{}, got.League[0].Setting)

	rs, ok := got.BankaraChallenge[0].Setting.(domain.RuleSet)
	require.True(t, ok)
	require.Equal(t, "Rainmaker", rs.Rule)

	rot, ok := got.SalmonRun[0].Setting.(domain.CoopRotation)
	require.True(t, ok)
	require.Equal(t, "Spawning Grounds", rot.Stage)
	require.Len(t, rot.Weapons, 4)

	league, err := mr.Get(storeredis.KeyLeagueSchedule)
	require.NoError(t, err)
	require.Contains(t, league, `"rule":null`)
	require.Contains(t, league, `"stages":null`)
}

func TestScheduleRefresherRejectsStaleWindow(t *testing.T) {
	store, mr := newStore(t)

	r := NewScheduleRefresher(ScheduleRefresherConfig{
		API:   &scheduleAPI{t: t},
		Cache: store,
		Sleep: (&fakeSleep{}).sleep,
		Now:   func() time.Time { return fixtureLatest.Add(time.Hour) },
	})
	wrote, err := r.Refresh(context.Background())
	require.ErrorIs(t, err, domain.ErrDatasetUnavailable)
	require.False(t, wrote)
	require.Empty(t, mr.Keys())
}
