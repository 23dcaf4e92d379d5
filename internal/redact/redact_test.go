package redact

import (
	"os"
	"sort"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/splat3api/splatsync/internal/domain"
	"github.com/splat3api/splatsync/internal/splatnet"
)

func fixture(t *testing.T, name string) []byte {
	t.Helper()
	b, err := os.ReadFile("../splatnet/testdata/" + name)
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	return b
}

func TestRankingsAllowList(t *testing.T) {
	conn, err := splatnet.DecodeXRankingPage(domain.ModeArea, fixture(t, "xranking_page.json"))
	if err != nil {
		t.Fatalf("DecodeXRankingPage() error = %v", err)
	}

	records := Rankings(conn.Players())
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}
	want := domain.RankingRecord{Name: "Ikasumi", NameID: "1234", Rank: 1, XPower: 3512.7, Weapon: ".52 Gal"}
	if records[0] != want {
		t.Errorf("records[0] = %+v, want %+v", records[0], want)
	}

	for _, r := range records {
		b, err := sonic.Marshal(r)
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}
		var fields map[string]any
		if err := sonic.Unmarshal(b, &fields); err != nil {
			t.Fatalf("Unmarshal() error = %v", err)
		}
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		if got := strings.Join(keys, ","); got != "name,nameId,rank,weapon,xPower" {
			t.Errorf("record keys = %s", got)
		}
		for _, leaked := range []string{"WFJhbmtpbmdQbGF5ZXI", "byname", "Fearless", "nameplate", "Splash Wall"} {
			if strings.Contains(string(b), leaked) {
				t.Errorf("record %s leaks %q", b, leaked)
			}
		}
	}
}

func TestSchedules(t *testing.T) {
	raw, err := splatnet.DecodeStageSchedule(fixture(t, "stage_schedule.json"))
	if err != nil {
		t.Fatalf("DecodeStageSchedule() error = %v", err)
	}
	s := Schedules(raw)

	if len(s.Regular) != 2 {
		t.Fatalf("len(Regular) = %d, want 2", len(s.Regular))
	}
	rs, ok := s.Regular[0].Setting.(domain.RuleSet)
	if !ok || rs.Rule != "Turf War" || len(rs.Stages) != 2 || rs.Stages[0] != (domain.Stage{ID: 1, Name: "Scorch Gorge"}) {
		t.Errorf("Regular[0].Setting = %#v", s.Regular[0].Setting)
	}
	if _, ok := s.Regular[1].Setting.(domain.EventOnly); !ok {
		t.Errorf("Regular[1].Setting = %#v, want EventOnly", s.Regular[1].Setting)
	}

	// one normal slot split by mode plus one event slot present in both lists
	if len(s.BankaraChallenge) != 2 || len(s.BankaraOpen) != 2 {
		t.Fatalf("bankara lens = %d/%d, want 2/2", len(s.BankaraChallenge), len(s.BankaraOpen))
	}
	if rs, ok := s.BankaraChallenge[0].Setting.(domain.RuleSet); !ok || rs.Rule != "Rainmaker" {
		t.Errorf("BankaraChallenge[0] = %#v", s.BankaraChallenge[0].Setting)
	}
	if rs, ok := s.BankaraOpen[0].Setting.(domain.RuleSet); !ok || rs.Rule != "Clam Blitz" {
		t.Errorf("BankaraOpen[0] = %#v", s.BankaraOpen[0].Setting)
	}
	for _, list := range [][]domain.Schedule{s.BankaraChallenge, s.BankaraOpen} {
		if _, ok := list[1].Setting.(domain.EventOnly); !ok {
			t.Errorf("bankara event slot = %#v, want EventOnly", list[1].Setting)
		}
	}

	if len(s.League) != 1 {
		t.Fatalf("len(League) = %d", len(s.League))
	}
	if _, ok := s.League[0].Setting.(domain.EventOnly); !ok {
		t.Errorf("League[0] = %#v, want EventOnly", s.League[0].Setting)
	}

	if len(s.SalmonRun) != 1 {
		t.Fatalf("len(SalmonRun) = %d", len(s.SalmonRun))
	}
	rot, ok := s.SalmonRun[0].Setting.(domain.CoopRotation)
	if !ok || rot.Stage != "Spawning Grounds" || len(rot.Weapons) != 4 {
		t.Errorf("SalmonRun[0] = %#v", s.SalmonRun[0].Setting)
	}

	b, err := sonic.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	for _, leaked := range []string{"VnNTdGFnZS0x", "TURF_WAR", "Q29vcFN0YWdl", "__typename"} {
		if strings.Contains(string(b), leaked) {
			t.Errorf("schedules leak %q", leaked)
		}
	}
}

func TestSalmonRunWithoutSetting(t *testing.T) {
	out := SalmonRun([]splatnet.CoopNode{{}})
	if _, ok := out[0].Setting.(domain.EventOnly); !ok {
		t.Errorf("Setting = %#v, want EventOnly", out[0].Setting)
	}
}
