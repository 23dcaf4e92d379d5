package redis

const (
	// KeySchedules holds the whole redacted schedule window.
	KeySchedules = "Schedules"

	KeyRegularSchedule          = "regular_schedule"
	KeyBankaraOpenSchedule      = "bankara_open_schedule"
	KeyBankaraChallengeSchedule = "bankara_challenge_schedule"
	KeyXBattleSchedule          = "x_battle_schedule"
	KeyLeagueSchedule           = "league_schedule"
	KeySalmonRunSchedule        = "salmon_run_schedule"
)

// DataKey returns the published sorted set of a ranking dataset.
func DataKey(dataset string) string {
	return dataset + ":data"
}

// TempKey returns the staging sorted set a dataset is built in before promotion.
func TempKey(dataset string) string {
	return dataset + ":temp"
}

// UpdatedAtKey returns the key holding the capture time of DataKey.
func UpdatedAtKey(dataset string) string {
	return dataset + ":updatedAt"
}
