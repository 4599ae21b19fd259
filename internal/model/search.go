package model

import "time"

// SearchStatus tracks a stored search through its lifecycle.
type SearchStatus string

const (
	SearchStatusQueued    SearchStatus = "queued"
	SearchStatusSearching SearchStatus = "searching"
	SearchStatusComplete  SearchStatus = "complete"
	SearchStatusFailed    SearchStatus = "failed"
)

// Search is one recorded search: the request, its status, and the
// outcome once the remote calls finish.
type Search struct {
	ID        string         `json:"id"`
	Request   SearchRequest  `json:"request"`
	Status    SearchStatus   `json:"status"`
	Outcome   *SearchOutcome `json:"outcome,omitempty"`
	Error     string         `json:"error,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// TokenUsage aggregates token counts across remote calls.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Add merges token usage from another instance.
func (t *TokenUsage) Add(other TokenUsage) {
	t.InputTokens += other.InputTokens
	t.OutputTokens += other.OutputTokens
}

// Call names used in CallOutcome. The combined call carries the whole
// single-prompt flow; analysis and compatible are the two-call flow.
const (
	CallCombined   = "combined"
	CallAnalysis   = "analysis"
	CallCompatible = "compatible"
)

// CallOutcome records one remote call. Raw holds the transcript when
// the payload failed to parse, so a partially failed search can still
// show the model's answer verbatim.
type CallOutcome struct {
	Name     string     `json:"name"`
	OK       bool       `json:"ok"`
	Raw      string     `json:"raw,omitempty"`
	Error    string     `json:"error,omitempty"`
	Duration int64      `json:"duration_ms"`
	Usage    TokenUsage `json:"usage"`
	Cost     float64    `json:"cost"`
}

// SearchOutcome is the final, classified result of a search.
type SearchOutcome struct {
	SongInfo   *SongProfile   `json:"song_info,omitempty"`
	Dedicated  []Choreography `json:"dedicated"`
	Compatible []Choreography `json:"compatible"`
	Other      []Choreography `json:"other,omitempty"`
	Calls      []CallOutcome  `json:"calls"`
	Usage      TokenUsage     `json:"usage"`
	TotalCost  float64        `json:"total_cost"`
	Provider   string         `json:"provider"`
	Model      string         `json:"model"`
	Elapsed    int64          `json:"elapsed_ms"`
	FromCache  bool           `json:"from_cache"`
}

// Empty reports whether the outcome carries no matches in any group.
// An empty outcome is a normal terminal state, not an error.
func (o *SearchOutcome) Empty() bool {
	return len(o.Dedicated) == 0 && len(o.Compatible) == 0 && len(o.Other) == 0
}

// MatchCount returns the total number of matches across groups.
func (o *SearchOutcome) MatchCount() int {
	return len(o.Dedicated) + len(o.Compatible) + len(o.Other)
}

// Partial reports whether at least one call failed while another
// produced a usable group.
func (o *SearchOutcome) Partial() bool {
	var ok, failed bool
	for _, c := range o.Calls {
		if c.OK {
			ok = true
		} else {
			failed = true
		}
	}
	return ok && failed
}
