package search

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bootstobeats/stepfinder/internal/config"
	"github.com/bootstobeats/stepfinder/internal/extract"
	"github.com/bootstobeats/stepfinder/internal/llm"
	"github.com/bootstobeats/stepfinder/internal/model"
)

func testConfig() *config.Config {
	return &config.Config{
		Provider: "anthropic",
		Anthropic: config.AnthropicConfig{
			Key:       "sk-test",
			Model:     "claude-sonnet-4-5-20250929",
			MaxTokens: 8192,
		},
		Perplexity: config.PerplexityConfig{Model: "sonar-pro"},
		Search: config.SearchConfig{
			MaxResults:    3,
			TimeoutSecs:   300,
			CacheTTLHours: 24,
		},
	}
}

func testRequest() model.SearchRequest {
	return model.SearchRequest{
		SongTitle:  "Texas Hold 'Em",
		Artist:     "Beyoncé",
		Level:      model.LevelBeginner,
		Region:     "EU",
		MaxResults: 3,
	}
}

func storedSearch(req model.SearchRequest) *model.Search {
	now := time.Now().UTC()
	return &model.Search{
		ID:        "search-1",
		Request:   req,
		Status:    model.SearchStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

const combinedTranscript = `Here is what I found after searching step sheet sites.

{
  "song": "Texas Hold 'Em",
  "artist": "Beyoncé",
  "requested_level": "Beginner",
  "requested_region": "EU",
  "song_info": {"bpm": "110", "style": "country pop", "summary": "Uptempo country pop with a steady stomp."},
  "choreographies": [
    {"rank": 1, "name": "Hold 'Em", "estimated_level": "Beginner", "type": "step_sheet", "fit_type": "dedicated_for_song", "url": "https://example.com/hold-em", "reason": "Choreographed for Texas Hold 'Em"},
    {"rank": 2, "name": "Boot Scootin' Boogie", "estimated_level": "Beginner", "type": "step_sheet", "fit_type": "compatible_generic", "url": "https://example.com/boot", "reason": "Same tempo and feel"}
  ]
}`

const analysisTranscript = `{
  "song": "Texas Hold 'Em",
  "artist": "Beyoncé",
  "song_info": {"bpm": "110", "tempo_label": "mid-tempo", "style": "country pop", "summary": "Uptempo country pop with a steady stomp."},
  "choreographies": [
    {"rank": 1, "name": "Hold 'Em", "estimated_level": "Beginner", "type": "step_sheet", "fit_type": "dedicated_for_song", "url": "https://example.com/hold-em", "reason": "Choreographed for Texas Hold 'Em"}
  ]
}`

const compatibleTranscript = `{
  "song": "Texas Hold 'Em",
  "choreographies": [
    {"rank": 1, "name": "Boot Scootin' Boogie", "estimated_level": "Beginner", "type": "step_sheet", "fit_type": "compatible_generic", "url": "https://example.com/boot", "reason": "Same tempo and feel"}
  ]
}`

func TestRun_Combined(t *testing.T) {
	cfg := testConfig()
	req := testRequest()

	st := &mockStore{}
	st.On("CreateSearch", mock.Anything, req).Return(storedSearch(req), nil)
	st.On("UpdateSearchStatus", mock.Anything, "search-1", model.SearchStatusSearching).Return(nil)
	st.On("CompleteSearch", mock.Anything, "search-1", mock.Anything).Return(nil)

	provider := &mockProvider{}
	provider.On("Generate", mock.Anything, model.CallCombined, mock.MatchedBy(func(in string) bool {
		return strings.Contains(in, `"Texas Hold 'Em"`) && strings.Contains(in, "compatible_generic")
	})).Return(&llm.Result{
		Text:  combinedTranscript,
		Model: "claude-sonnet-4-5-20250929",
		Usage: model.TokenUsage{InputTokens: 1000, OutputTokens: 2000},
		Cost:  0.01,
	}, nil)

	sr, err := New(cfg, st, provider).Run(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, sr)
	assert.Equal(t, model.SearchStatusComplete, sr.Status)

	out := sr.Outcome
	require.NotNil(t, out)
	require.Len(t, out.Dedicated, 1)
	assert.Equal(t, "Hold 'Em", out.Dedicated[0].Name)
	require.Len(t, out.Compatible, 1)
	assert.Equal(t, "Boot Scootin' Boogie", out.Compatible[0].Name)
	assert.Empty(t, out.Other)
	require.NotNil(t, out.SongInfo)
	assert.Equal(t, "110", out.SongInfo.BPM)

	require.Len(t, out.Calls, 1)
	assert.True(t, out.Calls[0].OK)
	assert.Empty(t, out.Calls[0].Raw)
	assert.Equal(t, model.TokenUsage{InputTokens: 1000, OutputTokens: 2000}, out.Usage)
	assert.InDelta(t, 0.01, out.TotalCost, 1e-9)
	assert.Equal(t, "anthropic", out.Provider)
	assert.False(t, out.FromCache)
	assert.False(t, out.Partial())

	st.AssertExpectations(t)
	provider.AssertExpectations(t)
}

func TestRun_Combined_EmptyResults(t *testing.T) {
	cfg := testConfig()
	req := testRequest()

	st := &mockStore{}
	st.On("CreateSearch", mock.Anything, req).Return(storedSearch(req), nil)
	st.On("UpdateSearchStatus", mock.Anything, "search-1", model.SearchStatusSearching).Return(nil)
	st.On("CompleteSearch", mock.Anything, "search-1", mock.Anything).Return(nil)

	provider := &mockProvider{}
	provider.On("Generate", mock.Anything, model.CallCombined, mock.Anything).Return(&llm.Result{
		Text: `{"song": "Texas Hold 'Em", "choreographies": []}`,
	}, nil)

	sr, err := New(cfg, st, provider).Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, model.SearchStatusComplete, sr.Status)
	assert.True(t, sr.Outcome.Empty())
}

func TestRun_Combined_ParseFailure(t *testing.T) {
	cfg := testConfig()
	req := testRequest()

	st := &mockStore{}
	st.On("CreateSearch", mock.Anything, req).Return(storedSearch(req), nil)
	st.On("UpdateSearchStatus", mock.Anything, "search-1", model.SearchStatusSearching).Return(nil)
	st.On("FailSearch", mock.Anything, "search-1", mock.Anything).Return(nil)

	provider := &mockProvider{}
	provider.On("Generate", mock.Anything, model.CallCombined, mock.Anything).Return(&llm.Result{
		Text: "I could not find any step sheets for that song.",
	}, nil)

	sr, err := New(cfg, st, provider).Run(context.Background(), req)
	require.Error(t, err)
	assert.True(t, extract.IsNoJSON(err))

	require.NotNil(t, sr)
	assert.Equal(t, model.SearchStatusFailed, sr.Status)
	require.Len(t, sr.Outcome.Calls, 1)
	assert.False(t, sr.Outcome.Calls[0].OK)
	assert.Equal(t, "I could not find any step sheets for that song.", sr.Outcome.Calls[0].Raw)

	st.AssertExpectations(t)
}

func TestRun_Combined_CachesOutcome(t *testing.T) {
	cfg := testConfig()
	cfg.Search.CacheEnabled = true
	req := testRequest()
	fp := Fingerprint(req, "anthropic", cfg.Anthropic.Model, false)

	st := &mockStore{}
	st.On("CreateSearch", mock.Anything, req).Return(storedSearch(req), nil)
	st.On("GetCachedOutcome", mock.Anything, fp).Return(nil, nil)
	st.On("UpdateSearchStatus", mock.Anything, "search-1", model.SearchStatusSearching).Return(nil)
	st.On("CompleteSearch", mock.Anything, "search-1", mock.Anything).Return(nil)
	st.On("SetCachedOutcome", mock.Anything, fp, mock.Anything, 24*time.Hour).Return(nil)

	provider := &mockProvider{}
	provider.On("Generate", mock.Anything, model.CallCombined, mock.Anything).Return(&llm.Result{
		Text: combinedTranscript,
	}, nil)

	_, err := New(cfg, st, provider).Run(context.Background(), req)
	require.NoError(t, err)
	st.AssertExpectations(t)
}

func TestRun_CacheHit(t *testing.T) {
	cfg := testConfig()
	cfg.Search.CacheEnabled = true
	req := testRequest()

	cached := &model.SearchOutcome{
		Dedicated: []model.Choreography{{Rank: 1, Name: "Hold 'Em", Fit: model.FitDedicated}},
		Provider:  "anthropic",
	}

	st := &mockStore{}
	st.On("CreateSearch", mock.Anything, req).Return(storedSearch(req), nil)
	st.On("GetCachedOutcome", mock.Anything, mock.Anything).Return(cached, nil)
	st.On("CompleteSearch", mock.Anything, "search-1", cached).Return(nil)

	provider := &mockProvider{}

	sr, err := New(cfg, st, provider).Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, model.SearchStatusComplete, sr.Status)
	assert.True(t, sr.Outcome.FromCache)
	assert.Len(t, sr.Outcome.Dedicated, 1)

	provider.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything)
	st.AssertNotCalled(t, "SetCachedOutcome", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	st.AssertExpectations(t)
}

func TestRun_Split(t *testing.T) {
	cfg := testConfig()
	cfg.Search.SplitCalls = true
	req := testRequest()

	st := &mockStore{}
	st.On("CreateSearch", mock.Anything, req).Return(storedSearch(req), nil)
	st.On("UpdateSearchStatus", mock.Anything, "search-1", model.SearchStatusSearching).Return(nil)
	st.On("CompleteSearch", mock.Anything, "search-1", mock.Anything).Return(nil)

	provider := &mockProvider{}
	provider.On("Generate", mock.Anything, model.CallAnalysis, mock.MatchedBy(func(in string) bool {
		return strings.Contains(in, "dedicated_for_song")
	})).Return(&llm.Result{
		Text:  analysisTranscript,
		Usage: model.TokenUsage{InputTokens: 1000, OutputTokens: 2000},
		Cost:  0.01,
	}, nil)
	// The second instruction carries the first call's profile and
	// excludes the dedicated matches already found.
	provider.On("Generate", mock.Anything, model.CallCompatible, mock.MatchedBy(func(in string) bool {
		return strings.Contains(in, "SONG PROFILE (from a previous analysis):") &&
			strings.Contains(in, "- BPM: 110") &&
			strings.Contains(in, "ALREADY FOUND (do not repeat these):") &&
			strings.Contains(in, "- Hold 'Em")
	})).Return(&llm.Result{
		Text:  compatibleTranscript,
		Usage: model.TokenUsage{InputTokens: 500, OutputTokens: 700},
		Cost:  0.005,
	}, nil)

	sr, err := New(cfg, st, provider).Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, model.SearchStatusComplete, sr.Status)

	out := sr.Outcome
	require.Len(t, out.Dedicated, 1)
	require.Len(t, out.Compatible, 1)
	assert.Equal(t, "Boot Scootin' Boogie", out.Compatible[0].Name)
	require.NotNil(t, out.SongInfo)
	assert.Equal(t, "mid-tempo", out.SongInfo.TempoLabel)

	require.Len(t, out.Calls, 2)
	assert.Equal(t, model.CallAnalysis, out.Calls[0].Name)
	assert.Equal(t, model.CallCompatible, out.Calls[1].Name)
	assert.Equal(t, model.TokenUsage{InputTokens: 1500, OutputTokens: 2700}, out.Usage)
	assert.InDelta(t, 0.015, out.TotalCost, 1e-9)
	assert.False(t, out.Partial())

	provider.AssertExpectations(t)
	st.AssertExpectations(t)
}

func TestRun_Split_AnalysisParseFailure(t *testing.T) {
	cfg := testConfig()
	cfg.Search.CacheEnabled = true
	cfg.Search.SplitCalls = true
	req := testRequest()

	st := &mockStore{}
	st.On("CreateSearch", mock.Anything, req).Return(storedSearch(req), nil)
	st.On("GetCachedOutcome", mock.Anything, mock.Anything).Return(nil, nil)
	st.On("UpdateSearchStatus", mock.Anything, "search-1", model.SearchStatusSearching).Return(nil)
	st.On("CompleteSearch", mock.Anything, "search-1", mock.Anything).Return(nil)

	provider := &mockProvider{}
	provider.On("Generate", mock.Anything, model.CallAnalysis, mock.Anything).Return(&llm.Result{
		Text: "Sorry, I had trouble with that request.",
	}, nil)
	// No profile, no exclusion list to interpolate.
	provider.On("Generate", mock.Anything, model.CallCompatible, mock.MatchedBy(func(in string) bool {
		return !strings.Contains(in, "SONG PROFILE") && !strings.Contains(in, "ALREADY FOUND")
	})).Return(&llm.Result{
		Text: compatibleTranscript,
	}, nil)

	sr, err := New(cfg, st, provider).Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, model.SearchStatusComplete, sr.Status)

	out := sr.Outcome
	assert.True(t, out.Partial())
	assert.Empty(t, out.Dedicated)
	require.Len(t, out.Compatible, 1)
	assert.Nil(t, out.SongInfo)

	require.Len(t, out.Calls, 2)
	assert.False(t, out.Calls[0].OK)
	assert.Equal(t, "Sorry, I had trouble with that request.", out.Calls[0].Raw)
	assert.True(t, out.Calls[1].OK)

	// Partial outcomes must not be cached.
	st.AssertNotCalled(t, "SetCachedOutcome", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	st.AssertExpectations(t)
	provider.AssertExpectations(t)
}

func TestRun_Split_CompatibleCallFailure(t *testing.T) {
	cfg := testConfig()
	cfg.Search.SplitCalls = true
	req := testRequest()

	st := &mockStore{}
	st.On("CreateSearch", mock.Anything, req).Return(storedSearch(req), nil)
	st.On("UpdateSearchStatus", mock.Anything, "search-1", model.SearchStatusSearching).Return(nil)
	st.On("CompleteSearch", mock.Anything, "search-1", mock.Anything).Return(nil)

	provider := &mockProvider{}
	provider.On("Generate", mock.Anything, model.CallAnalysis, mock.Anything).Return(&llm.Result{
		Text: analysisTranscript,
	}, nil)
	provider.On("Generate", mock.Anything, model.CallCompatible, mock.Anything).Return(nil,
		eris.New("llm: anthropic generate: status 529"))

	sr, err := New(cfg, st, provider).Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, model.SearchStatusComplete, sr.Status)

	out := sr.Outcome
	assert.True(t, out.Partial())
	require.Len(t, out.Dedicated, 1)
	assert.Equal(t, "Hold 'Em", out.Dedicated[0].Name)
	assert.Empty(t, out.Compatible)
	require.NotNil(t, out.SongInfo)

	require.Len(t, out.Calls, 2)
	assert.False(t, out.Calls[1].OK)
	assert.Contains(t, out.Calls[1].Error, "status 529")
	st.AssertExpectations(t)
}

func TestRun_Split_AnalysisCallFailure_Aborts(t *testing.T) {
	cfg := testConfig()
	cfg.Search.SplitCalls = true
	req := testRequest()

	st := &mockStore{}
	st.On("CreateSearch", mock.Anything, req).Return(storedSearch(req), nil)
	st.On("UpdateSearchStatus", mock.Anything, "search-1", model.SearchStatusSearching).Return(nil)
	st.On("FailSearch", mock.Anything, "search-1", mock.Anything).Return(nil)

	provider := &mockProvider{}
	provider.On("Generate", mock.Anything, model.CallAnalysis, mock.Anything).Return(nil,
		eris.New("llm: anthropic generate: connection refused")).Once()

	sr, err := New(cfg, st, provider).Run(context.Background(), req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "analysis call")

	require.NotNil(t, sr)
	assert.Equal(t, model.SearchStatusFailed, sr.Status)
	assert.Len(t, sr.Outcome.Calls, 1)

	// The second call never runs after a first-call transport failure.
	provider.AssertNumberOfCalls(t, "Generate", 1)
	st.AssertExpectations(t)
}

func TestRun_Split_BothParseFailures(t *testing.T) {
	cfg := testConfig()
	cfg.Search.SplitCalls = true
	req := testRequest()

	st := &mockStore{}
	st.On("CreateSearch", mock.Anything, req).Return(storedSearch(req), nil)
	st.On("UpdateSearchStatus", mock.Anything, "search-1", model.SearchStatusSearching).Return(nil)
	st.On("FailSearch", mock.Anything, "search-1", mock.Anything).Return(nil)

	provider := &mockProvider{}
	provider.On("Generate", mock.Anything, model.CallAnalysis, mock.Anything).Return(&llm.Result{
		Text: "first answer without json",
	}, nil)
	provider.On("Generate", mock.Anything, model.CallCompatible, mock.Anything).Return(&llm.Result{
		Text: "second answer without json",
	}, nil)

	sr, err := New(cfg, st, provider).Run(context.Background(), req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "both calls failed")

	require.NotNil(t, sr)
	assert.Equal(t, model.SearchStatusFailed, sr.Status)
	require.Len(t, sr.Outcome.Calls, 2)
	assert.Equal(t, "first answer without json", sr.Outcome.Calls[0].Raw)
	assert.Equal(t, "second answer without json", sr.Outcome.Calls[1].Raw)
	st.AssertExpectations(t)
}

func TestRun_InvalidRequest(t *testing.T) {
	req := testRequest()
	req.SongTitle = "   "

	st := &mockStore{}
	provider := &mockProvider{}

	_, err := New(testConfig(), st, provider).Run(context.Background(), req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "song title is required")
	st.AssertNotCalled(t, "CreateSearch", mock.Anything, mock.Anything)
}

func TestRun_ProviderUnavailable(t *testing.T) {
	st := &mockStore{}
	provider := &mockProvider{unavailable: true}

	_, err := New(testConfig(), st, provider).Run(context.Background(), testRequest())
	require.Error(t, err)
	assert.True(t, config.IsConfiguration(err))
	assert.Contains(t, err.Error(), "not configured")
	st.AssertNotCalled(t, "CreateSearch", mock.Anything, mock.Anything)
}

func TestFingerprint_Normalization(t *testing.T) {
	base := Fingerprint(testRequest(), "anthropic", "claude-sonnet-4-5-20250929", true)

	// Case and diacritics fold away.
	req := testRequest()
	req.SongTitle = "TEXAS HOLD 'EM"
	req.Artist = "beyonce"
	assert.Equal(t, base, Fingerprint(req, "anthropic", "claude-sonnet-4-5-20250929", true))

	// Provider, model, and mode are all part of the key.
	assert.NotEqual(t, base, Fingerprint(testRequest(), "perplexity", "claude-sonnet-4-5-20250929", true))
	assert.NotEqual(t, base, Fingerprint(testRequest(), "anthropic", "sonar-pro", true))
	assert.NotEqual(t, base, Fingerprint(testRequest(), "anthropic", "claude-sonnet-4-5-20250929", false))

	// So is the request itself.
	req = testRequest()
	req.MaxResults = 5
	assert.NotEqual(t, base, Fingerprint(req, "anthropic", "claude-sonnet-4-5-20250929", true))
}

func TestSummarizeProfile(t *testing.T) {
	assert.Empty(t, summarizeProfile(nil))

	got := summarizeProfile(&model.SongProfile{
		BPM:                "110",
		TempoLabel:         "mid-tempo",
		Style:              "country pop",
		TypicalDanceStyles: []string{"line dance", "two-step"},
	})
	assert.Equal(t, "- BPM: 110\n- Tempo: mid-tempo\n- Style: country pop\n- Typical dance styles: line dance, two-step", got)
}
