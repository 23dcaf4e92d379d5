// Package redact turns upstream payloads into the public records that are
// cached and archived. Anything not explicitly copied here is dropped.
package redact

import (
	"time"

	"github.com/splat3api/splatsync/internal/domain"
	"github.com/splat3api/splatsync/internal/splatnet"
)

// Ranking keeps name, nameId, rank, xPower and the main weapon name.
func Ranking(p splatnet.XRankingPlayer) domain.RankingRecord {
	return domain.RankingRecord{
		Name:   p.Name,
		NameID: p.NameID,
		Rank:   p.Rank,
		XPower: p.XPower,
		Weapon: p.Weapon.Name,
	}
}

func Rankings(players []splatnet.XRankingPlayer) []domain.RankingRecord {
	out := make([]domain.RankingRecord, 0, len(players))
	for _, p := range players {
		out = append(out, Ranking(p))
	}
	return out
}

// Schedules maps every schedule list of a StageScheduleQuery payload.
func Schedules(s splatnet.StageSchedule) domain.StageSchedules {
	challenge, open := Bankara(s.BankaraSchedules.Nodes)

	out := domain.StageSchedules{
		Regular:          make([]domain.Schedule, 0, len(s.RegularSchedules.Nodes)),
		BankaraChallenge: challenge,
		BankaraOpen:      open,
		X:                make([]domain.Schedule, 0, len(s.XSchedules.Nodes)),
		League:           make([]domain.Schedule, 0, len(s.LeagueSchedules.Nodes)),
		SalmonRun:        SalmonRun(s.CoopGroupingSchedule.RegularSchedules.Nodes),
	}
	for _, n := range s.RegularSchedules.Nodes {
		out.Regular = append(out.Regular, vsSchedule(n.StartTime, n.EndTime, n.Setting))
	}
	for _, n := range s.XSchedules.Nodes {
		out.X = append(out.X, vsSchedule(n.StartTime, n.EndTime, n.Setting))
	}
	for _, n := range s.LeagueSchedules.Nodes {
		out.League = append(out.League, vsSchedule(n.StartTime, n.EndTime, n.Setting))
	}
	return out
}

// Bankara splits anarchy slots by mode. A slot without settings is an event
// slot and appears in both lists.
func Bankara(nodes []splatnet.BankaraNode) (challenge, open []domain.Schedule) {
	challenge = make([]domain.Schedule, 0, len(nodes))
	open = make([]domain.Schedule, 0, len(nodes))

	for _, n := range nodes {
		if len(n.Settings) == 0 {
			ev := domain.Schedule{StartTime: n.StartTime, EndTime: n.EndTime, Setting: domain.EventOnly{}}
			challenge = append(challenge, ev)
			open = append(open, ev)
			continue
		}
		for i := range n.Settings {
			sched := vsSchedule(n.StartTime, n.EndTime, &n.Settings[i])
			switch n.Settings[i].Mode {
			case "CHALLENGE":
				challenge = append(challenge, sched)
			case "OPEN":
				open = append(open, sched)
			}
		}
	}
	return challenge, open
}

func SalmonRun(nodes []splatnet.CoopNode) []domain.SalmonRunSchedule {
	out := make([]domain.SalmonRunSchedule, 0, len(nodes))
	for _, n := range nodes {
		sched := domain.SalmonRunSchedule{StartTime: n.StartTime, EndTime: n.EndTime, Setting: domain.EventOnly{}}
		if n.Setting != nil {
			weapons := make([]string, 0, len(n.Setting.Weapons))
			for _, w := range n.Setting.Weapons {
				weapons = append(weapons, w.Name)
			}
			sched.Setting = domain.CoopRotation{Stage: n.Setting.CoopStage.Name, Weapons: weapons}
		}
		out = append(out, sched)
	}
	return out
}

func vsSchedule(start, end time.Time, s *splatnet.VsMatchSetting) domain.Schedule {
	sched := domain.Schedule{StartTime: start, EndTime: end, Setting: domain.EventOnly{}}
	if s == nil {
		return sched
	}
	stages := make([]domain.Stage, 0, len(s.VsStages))
	for _, st := range s.VsStages {
		stages = append(stages, domain.Stage{ID: st.VsStageID, Name: st.Name})
	}
	sched.Setting = domain.RuleSet{Rule: s.VsRule.Name, Stages: stages}
	return sched
}
