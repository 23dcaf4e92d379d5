package domain

import "fmt"

// Mode identifies one X ranking leaderboard.
// The value is the upstream node field name and is also used in storage paths.
type Mode string

const (
	ModeArea      Mode = "xRankingAr"
	ModeTower     Mode = "xRankingLf"
	ModeRainmaker Mode = "xRankingGl"
	ModeClam      Mode = "xRankingCl"
)

// AllModes lists every ranking mode in refresh order.
func AllModes() []Mode {
	return []Mode{ModeArea, ModeRainmaker, ModeClam, ModeTower}
}

// ParseMode accepts either the upstream identifier or the short name.
func ParseMode(s string) (Mode, error) {
	switch s {
	case string(ModeArea), "area":
		return ModeArea, nil
	case string(ModeTower), "tower":
		return ModeTower, nil
	case string(ModeRainmaker), "rainmaker":
		return ModeRainmaker, nil
	case string(ModeClam), "clam":
		return ModeClam, nil
	default:
		return "", fmt.Errorf("unknown ranking mode %q", s)
	}
}

// Name returns the short human name ("area", "tower", ...).
func (m Mode) Name() string {
	switch m {
	case ModeArea:
		return "area"
	case ModeTower:
		return "tower"
	case ModeRainmaker:
		return "rainmaker"
	case ModeClam:
		return "clam"
	default:
		return string(m)
	}
}

// Dataset returns the cache dataset name, ex: "AreaXRankings".
func (m Mode) Dataset() string {
	switch m {
	case ModeArea:
		return "AreaXRankings"
	case ModeTower:
		return "TowerXRankings"
	case ModeRainmaker:
		return "RainmakerXRankings"
	case ModeClam:
		return "ClamXRankings"
	default:
		return string(m)
	}
}
