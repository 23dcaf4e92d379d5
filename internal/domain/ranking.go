package domain

// RankingRecord is the public view of one X ranking entry.
//
// It is what leaves the ingestion boundary: account identifiers,
// opaque upstream IDs and cosmetic data are never part of it.
type RankingRecord struct {
	// Name is the in-game display name.
	Name string `json:"name"`

	// NameID is the 4-digit discriminator shown next to the name.
	NameID string `json:"nameId"`

	// Rank is strictly positive and unique within one fetch of one mode.
	Rank int `json:"rank"`

	// XPower is the rating that produced Rank.
	XPower float64 `json:"xPower"`

	// Weapon is the main weapon display name.
	Weapon string `json:"weapon"`
}

// ScoredMember is one sorted-set entry: an encoded record and its score.
type ScoredMember struct {
	Score  float64
	Member []byte
}
