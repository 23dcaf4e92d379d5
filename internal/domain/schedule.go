package domain

import (
	"fmt"
	"time"

	"github.com/bytedance/sonic"
)

// Stage is a versus stage as exposed publicly.
type Stage struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// MatchSetting is what a versus rotation plays.
//
// It is either a RuleSet (normal rotation) or EventOnly (festival window,
// where the regular ruleset does not apply). There is no third state, so
// a rotation can never carry a rule without stages or the reverse.
type MatchSetting interface {
	isMatchSetting()
}

// RuleSet is a normal rotation.
type RuleSet struct {
	Rule   string
	Stages []Stage
}

// EventOnly marks a rotation slot taken over by an event.
type EventOnly struct{}

func (RuleSet) isMatchSetting()   {}
func (EventOnly) isMatchSetting() {}

// Schedule is one versus rotation slot.
type Schedule struct {
	StartTime time.Time
	EndTime   time.Time
	Setting   MatchSetting
}

type scheduleWire struct {
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	Rule      *string   `json:"rule"`
	Stages    []Stage   `json:"stages"`
}

// MarshalJSON renders rule and stages as a null pair for event slots.
func (s Schedule) MarshalJSON() ([]byte, error) {
	w := scheduleWire{StartTime: s.StartTime, EndTime: s.EndTime}
	if rs, ok := s.Setting.(RuleSet); ok {
		rule := rs.Rule
		w.Rule = &rule
		w.Stages = rs.Stages
		if w.Stages == nil {
			w.Stages = []Stage{}
		}
	}
	return sonic.Marshal(w)
}

// UnmarshalJSON rejects records where only one of rule/stages is null.
func (s *Schedule) UnmarshalJSON(data []byte) error {
	var w scheduleWire
	if err := sonic.Unmarshal(data, &w); err != nil {
		return err
	}
	s.StartTime = w.StartTime
	s.EndTime = w.EndTime
	switch {
	case w.Rule == nil && w.Stages == nil:
		s.Setting = EventOnly{}
	case w.Rule != nil && w.Stages != nil:
		s.Setting = RuleSet{Rule: *w.Rule, Stages: w.Stages}
	default:
		return fmt.Errorf("schedule %s: rule and stages must both be null or both be set", w.StartTime.Format(time.RFC3339))
	}
	return nil
}

// CoopSetting is what a Salmon Run rotation plays.
type CoopSetting interface {
	isCoopSetting()
}

// CoopRotation is a normal Salmon Run rotation.
type CoopRotation struct {
	Stage   string
	Weapons []string
}

func (CoopRotation) isCoopSetting() {}
func (EventOnly) isCoopSetting()    {}

// SalmonRunSchedule is one Salmon Run rotation slot.
type SalmonRunSchedule struct {
	StartTime time.Time
	EndTime   time.Time
	Setting   CoopSetting
}

type salmonRunWire struct {
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	Stage     *string   `json:"stage"`
	Weapons   []string  `json:"weapons"`
}

func (s SalmonRunSchedule) MarshalJSON() ([]byte, error) {
	w := salmonRunWire{StartTime: s.StartTime, EndTime: s.EndTime}
	if rot, ok := s.Setting.(CoopRotation); ok {
		stage := rot.Stage
		w.Stage = &stage
		w.Weapons = rot.Weapons
		if w.Weapons == nil {
			w.Weapons = []string{}
		}
	}
	return sonic.Marshal(w)
}

func (s *SalmonRunSchedule) UnmarshalJSON(data []byte) error {
	var w salmonRunWire
	if err := sonic.Unmarshal(data, &w); err != nil {
		return err
	}
	s.StartTime = w.StartTime
	s.EndTime = w.EndTime
	switch {
	case w.Stage == nil && w.Weapons == nil:
		s.Setting = EventOnly{}
	case w.Stage != nil && w.Weapons != nil:
		s.Setting = CoopRotation{Stage: *w.Stage, Weapons: w.Weapons}
	default:
		return fmt.Errorf("salmon run schedule %s: stage and weapons must both be null or both be set", w.StartTime.Format(time.RFC3339))
	}
	return nil
}

// StageSchedules is the redacted content of one schedule fetch.
type StageSchedules struct {
	Regular          []Schedule          `json:"regularSchedules"`
	BankaraChallenge []Schedule          `json:"bankaraChallengeSchedules"`
	BankaraOpen      []Schedule          `json:"bankaraOpenSchedules"`
	X                []Schedule          `json:"xSchedules"`
	League           []Schedule          `json:"leagueSchedules"`
	SalmonRun        []SalmonRunSchedule `json:"salmonRunSchedules"`
}

// LatestStart returns the start time of the last slot of the fetched window.
//
// The window is bounded by the versus lists; Salmon Run rotations are longer
// and published further ahead, so they are not considered.
func (s StageSchedules) LatestStart() (time.Time, bool) {
	var latest time.Time
	found := false
	for _, list := range [][]Schedule{s.Regular, s.BankaraChallenge, s.BankaraOpen, s.X, s.League} {
		for _, sc := range list {
			if !found || sc.StartTime.After(latest) {
				latest = sc.StartTime
				found = true
			}
		}
	}
	return latest, found
}
