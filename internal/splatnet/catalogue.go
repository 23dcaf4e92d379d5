package splatnet

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/splat3api/splatsync/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed queries.yaml
var defaultCatalogue []byte

const (
	QueryStageSchedule = "StageScheduleQuery"
	QueryXRanking      = "XRankingQuery"
)

// Catalogue maps persisted query names to their sha256 hashes,
// together with the web view headers the hashes belong to.
type Catalogue struct {
	WebViewVersion string            `yaml:"webViewVersion"`
	AcceptLanguage string            `yaml:"acceptLanguage"`
	Queries        map[string]string `yaml:"queries"`
}

// LoadCatalogue parses the query file at path, or the embedded
// catalogue when path is empty.
func LoadCatalogue(path string) (*Catalogue, error) {
	data := defaultCatalogue
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read query file: %w", err)
		}
		data = b
	}

	var c Catalogue
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse query yaml: %w", err)
	}
	if len(c.Queries) == 0 {
		return nil, fmt.Errorf("query catalogue is empty")
	}
	return &c, nil
}

// Hash returns the persisted query hash for name.
func (c *Catalogue) Hash(name string) (string, error) {
	h, ok := c.Queries[name]
	if !ok || h == "" {
		return "", fmt.Errorf("unknown persisted query %q", name)
	}
	return h, nil
}

// RankingQuery returns the name of the detail refetch query for a mode.
func RankingQuery(m domain.Mode) string {
	switch m {
	case domain.ModeArea:
		return "DetailTabViewXRankingArRefetchQuery"
	case domain.ModeClam:
		return "DetailTabViewXRankingClRefetchQuery"
	case domain.ModeRainmaker:
		return "DetailTabViewXRankingGlRefetchQuery"
	case domain.ModeTower:
		return "DetailTabViewXRankingLfRefetchQuery"
	default:
		return ""
	}
}
