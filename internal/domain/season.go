package domain

import "time"

// SeasonInfo describes one X ranking season.
// ID is opaque and only used as the pagination scope of ranking fetches.
type SeasonInfo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
}

// Seasons is the content of seasoninfo.json.
type Seasons struct {
	Current SeasonInfo   `json:"current"`
	Past    []SeasonInfo `json:"past"`
}
