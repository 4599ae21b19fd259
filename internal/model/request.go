package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Level is a dancer skill level as used by step sheet sites.
type Level string

const (
	LevelBeginner     Level = "Beginner"
	LevelHighBeginner Level = "High Beginner"
	LevelImprover     Level = "Improver"
	LevelIntermediate Level = "Intermediate"
	LevelAdvanced     Level = "Advanced"
	LevelAny          Level = "Any"
)

// AllLevels returns the selectable skill levels in display order.
func AllLevels() []Level {
	return []Level{
		LevelBeginner,
		LevelHighBeginner,
		LevelImprover,
		LevelIntermediate,
		LevelAdvanced,
		LevelAny,
	}
}

// ParseLevel resolves a user-supplied level string. Matching is
// case-insensitive and tolerates hyphens and underscores in place of
// spaces ("high-beginner", "high_beginner").
func ParseLevel(s string) (Level, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", " ", "_", " ").Replace(norm)
	for _, l := range AllLevels() {
		if norm == strings.ToLower(string(l)) {
			return l, nil
		}
	}
	return "", eris.Errorf("model: unknown level %q", s)
}

// Region values offered by the UI. RegionOther stands in for a
// free-text region typed by the user.
const (
	RegionGlobal = "Global"
	RegionEU     = "EU"
	RegionUS     = "US"
	RegionUK     = "UK"
	RegionOther  = "Other"
)

// AllRegions returns the selectable regions in display order.
func AllRegions() []string {
	return []string{RegionGlobal, RegionEU, RegionUS, RegionUK, RegionOther}
}

// NormalizeRegion maps the UI region selection to the value carried in
// requests. "Global" means no preference and normalizes to empty; "Other"
// resolves to the free-text override when one was given.
func NormalizeRegion(region, other string) string {
	region = strings.TrimSpace(region)
	switch region {
	case "", RegionGlobal:
		return ""
	case RegionOther:
		if o := strings.TrimSpace(other); o != "" {
			return o
		}
		return ""
	default:
		return region
	}
}

// Bounds for the max-results knob. The remote service is asked for at
// most MaxMaxResults entries per group and the UI slider matches.
const (
	MinMaxResults     = 1
	MaxMaxResults     = 5
	DefaultMaxResults = 3
)

// SearchRequest captures one choreography search as entered by the user.
type SearchRequest struct {
	SongTitle  string `json:"song_title"`
	Artist     string `json:"artist,omitempty"`
	Level      Level  `json:"level"`
	Region     string `json:"region,omitempty"`
	MaxResults int    `json:"max_results"`
}

// Validate checks the request against the input contract.
func (r SearchRequest) Validate() error {
	if strings.TrimSpace(r.SongTitle) == "" {
		return eris.New("model: song title is required")
	}
	if r.Level != "" {
		if _, err := ParseLevel(string(r.Level)); err != nil {
			return err
		}
	}
	if r.MaxResults < MinMaxResults || r.MaxResults > MaxMaxResults {
		return eris.Errorf("model: max results must be between %d and %d, got %d",
			MinMaxResults, MaxMaxResults, r.MaxResults)
	}
	return nil
}

// LevelOrAny returns the requested level, treating the zero value as Any.
func (r SearchRequest) LevelOrAny() Level {
	if r.Level == "" {
		return LevelAny
	}
	return r.Level
}

// RegionLabel renders the region preference for prompts and listings.
func (r SearchRequest) RegionLabel() string {
	if strings.TrimSpace(r.Region) == "" {
		return "any region"
	}
	return r.Region
}
