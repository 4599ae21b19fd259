package model

import "strings"

// MatchType categorizes what kind of resource a match points at.
type MatchType string

const (
	MatchTypeStepSheet     MatchType = "step_sheet"
	MatchTypeTutorialVideo MatchType = "tutorial_video"
	MatchTypeArticle       MatchType = "article"
	MatchTypeOther         MatchType = "other"
)

// AllMatchTypes returns all defined match types.
func AllMatchTypes() []MatchType {
	return []MatchType{
		MatchTypeStepSheet,
		MatchTypeTutorialVideo,
		MatchTypeArticle,
		MatchTypeOther,
	}
}

// ParseMatchType normalizes a model-supplied type string. Unrecognized
// values fold to MatchTypeOther rather than failing the payload.
func ParseMatchType(s string) MatchType {
	norm := MatchType(strings.ToLower(strings.TrimSpace(s)))
	for _, mt := range AllMatchTypes() {
		if norm == mt {
			return mt
		}
	}
	return MatchTypeOther
}

// FitType says how a choreography relates to the requested song.
type FitType string

const (
	// FitDedicated marks choreography written for the requested song.
	FitDedicated FitType = "dedicated_for_song"
	// FitCompatible marks choreography written for another song that
	// still works with this one (tempo, rhythm, feel).
	FitCompatible FitType = "compatible_generic"
	// FitUnknown marks entries the model did not commit either way on.
	FitUnknown FitType = "unknown"
)

// AllFitTypes returns all defined fit types.
func AllFitTypes() []FitType {
	return []FitType{FitDedicated, FitCompatible, FitUnknown}
}

// ParseFitType normalizes a model-supplied fit string. Unrecognized
// values fold to FitUnknown rather than failing the payload.
func ParseFitType(s string) FitType {
	norm := FitType(strings.ToLower(strings.TrimSpace(s)))
	for _, ft := range AllFitTypes() {
		if norm == ft {
			return ft
		}
	}
	return FitUnknown
}

// Choreography is one ranked match returned by the remote service.
type Choreography struct {
	Rank            int       `json:"rank"`
	Name            string    `json:"name"`
	EstimatedLevel  string    `json:"estimated_level"`
	EstimatedRegion string    `json:"estimated_region,omitempty"`
	Type            MatchType `json:"type"`
	Fit             FitType   `json:"fit_type"`
	URL             string    `json:"url"`
	ExtraSources    []string  `json:"extra_sources,omitempty"`
	Reason          string    `json:"reason"`
}

// SongProfile is the musical analysis block the model returns alongside
// matches. Scalar fields stay strings because models routinely answer
// with ranges ("88-92 BPM") or qualifiers.
type SongProfile struct {
	BPM                string   `json:"bpm,omitempty"`
	TempoLabel         string   `json:"tempo_label,omitempty"`
	Style              string   `json:"style,omitempty"`
	TimeSignature      string   `json:"time_signature,omitempty"`
	DanceFeel          string   `json:"dance_feel,omitempty"`
	TypicalDanceStyles []string `json:"typical_dance_styles,omitempty"`
	Summary            string   `json:"summary,omitempty"`
	Sources            []string `json:"sources,omitempty"`
}

// SearchPayload is the JSON object the instruction asks the model to
// produce. Absent sections decode to zero values; the orchestrator and
// classifier treat those as empty, not as errors.
type SearchPayload struct {
	Song            string         `json:"song"`
	Artist          string         `json:"artist,omitempty"`
	RequestedLevel  string         `json:"requested_level,omitempty"`
	RequestedRegion string         `json:"requested_region,omitempty"`
	SongInfo        *SongProfile   `json:"song_info,omitempty"`
	Choreographies  []Choreography `json:"choreographies"`
}

// Normalize folds enum fields on every entry to their canonical values.
// Called once right after decoding so downstream code can switch on the
// constants without re-checking spelling.
func (p *SearchPayload) Normalize() {
	for i := range p.Choreographies {
		c := &p.Choreographies[i]
		c.Type = ParseMatchType(string(c.Type))
		c.Fit = ParseFitType(string(c.Fit))
	}
}
