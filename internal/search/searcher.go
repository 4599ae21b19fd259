// Package search runs one choreography search end to end: build the
// instruction, call the model, recover the transcript, classify the
// matches, and persist the record. Calls are sequential with one
// outstanding request and no retry; a failure surfaces to the caller
// with whatever the other call produced.
package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/bootstobeats/stepfinder/internal/classify"
	"github.com/bootstobeats/stepfinder/internal/config"
	"github.com/bootstobeats/stepfinder/internal/extract"
	"github.com/bootstobeats/stepfinder/internal/llm"
	"github.com/bootstobeats/stepfinder/internal/model"
	"github.com/bootstobeats/stepfinder/internal/prompt"
	"github.com/bootstobeats/stepfinder/internal/store"
)

// Searcher orchestrates searches against one provider.
type Searcher struct {
	cfg      *config.Config
	store    store.Store
	provider llm.Provider
}

// New creates a Searcher with all dependencies.
func New(cfg *config.Config, st store.Store, provider llm.Provider) *Searcher {
	return &Searcher{cfg: cfg, store: st, provider: provider}
}

// Run executes one search. The returned Search carries the outcome even
// when err is non-nil, so callers can render raw transcripts and
// per-call errors from a failed search.
func (s *Searcher) Run(ctx context.Context, req model.SearchRequest) (*model.Search, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if !s.provider.Available() {
		return nil, &config.ConfigurationError{Problems: []string{
			fmt.Sprintf("provider %s is not configured", s.provider.Name()),
		}}
	}

	log := zap.L().With(
		zap.String("song", req.SongTitle),
		zap.String("artist", req.Artist),
		zap.String("level", string(req.LevelOrAny())),
	)
	log.Info("search: starting", zap.String("provider", s.provider.Name()))

	sr, err := s.store.CreateSearch(ctx, req)
	if err != nil {
		return nil, eris.Wrap(err, "search: create record")
	}

	setStatus := func(status model.SearchStatus) {
		if statusErr := s.store.UpdateSearchStatus(ctx, sr.ID, status); statusErr != nil {
			log.Warn("search: failed to update status", zap.Error(statusErr))
		}
	}

	var fingerprint string
	if s.cfg.Search.CacheEnabled {
		fingerprint = Fingerprint(req, s.provider.Name(), s.modelName(), s.cfg.Search.SplitCalls)
		cached, cacheErr := s.store.GetCachedOutcome(ctx, fingerprint)
		if cacheErr != nil {
			log.Warn("search: cache lookup failed", zap.Error(cacheErr))
		} else if cached != nil {
			cached.FromCache = true
			sr.Status = model.SearchStatusComplete
			sr.Outcome = cached
			if saveErr := s.store.CompleteSearch(ctx, sr.ID, cached); saveErr != nil {
				log.Warn("search: failed to save cached outcome", zap.Error(saveErr))
			}
			log.Info("search: cache hit", zap.Int("matches", cached.MatchCount()))
			return sr, nil
		}
	}

	setStatus(model.SearchStatusSearching)
	start := time.Now()

	outcome := &model.SearchOutcome{
		Provider: s.provider.Name(),
		Model:    s.modelName(),
	}

	var runErr error
	if s.cfg.Search.SplitCalls {
		runErr = s.runSplit(ctx, req, outcome, log)
	} else {
		runErr = s.runCombined(ctx, req, outcome, log)
	}
	outcome.Elapsed = time.Since(start).Milliseconds()
	sr.Outcome = outcome

	if runErr != nil {
		sr.Status = model.SearchStatusFailed
		sr.Error = runErr.Error()
		if failErr := s.store.FailSearch(ctx, sr.ID, sr.Error); failErr != nil {
			log.Warn("search: failed to record failure", zap.Error(failErr))
		}
		return sr, runErr
	}

	sr.Status = model.SearchStatusComplete
	if saveErr := s.store.CompleteSearch(ctx, sr.ID, outcome); saveErr != nil {
		log.Warn("search: failed to save outcome", zap.Error(saveErr))
	}

	// Partial outcomes are not cached: a cache hit would freeze the
	// failed half for the whole TTL.
	if s.cfg.Search.CacheEnabled && !outcome.Partial() {
		if cacheErr := s.store.SetCachedOutcome(ctx, fingerprint, outcome, s.cfg.Search.CacheTTL()); cacheErr != nil {
			log.Warn("search: failed to cache outcome", zap.Error(cacheErr))
		}
	}

	log.Info("search: complete",
		zap.String("search_id", sr.ID),
		zap.Int("dedicated", len(outcome.Dedicated)),
		zap.Int("compatible", len(outcome.Compatible)),
		zap.Int("other", len(outcome.Other)),
		zap.Int64("elapsed_ms", outcome.Elapsed),
		zap.Float64("estimated_cost_usd", outcome.TotalCost),
	)
	return sr, nil
}

// runCombined issues the single-instruction flow: analysis plus both
// fit groups in one answer.
func (s *Searcher) runCombined(ctx context.Context, req model.SearchRequest, outcome *model.SearchOutcome, log *zap.Logger) error {
	payload, call, err := s.call(ctx, model.CallCombined, prompt.Build(req), log)
	recordCall(outcome, call)
	if err != nil {
		return err
	}

	outcome.SongInfo = payload.SongInfo
	groups := classify.Partition(payload.Choreographies, req.SongTitle, req.MaxResults)
	outcome.Dedicated = groups.Dedicated
	outcome.Compatible = groups.Compatible
	outcome.Other = groups.Other
	return nil
}

// runSplit issues the two-call flow: song analysis with dedicated
// matches first, then compatible matches informed by the profile. The
// second call runs even when the first payload fails to parse; only a
// first-call transport failure aborts, and only both payloads failing
// turns the whole search into an error.
func (s *Searcher) runSplit(ctx context.Context, req model.SearchRequest, outcome *model.SearchOutcome, log *zap.Logger) error {
	analysis, call1, err1 := s.call(ctx, model.CallAnalysis, prompt.BuildAnalysis(req), log)
	recordCall(outcome, call1)
	if err1 != nil && !isParseFailure(err1) {
		return eris.Wrap(err1, "search: analysis call")
	}

	var profileSummary string
	var exclude []string
	if analysis != nil {
		outcome.SongInfo = analysis.SongInfo
		profileSummary = summarizeProfile(analysis.SongInfo)
		for _, c := range analysis.Choreographies {
			exclude = append(exclude, c.Name)
		}
	}

	compatible, call2, err2 := s.call(ctx, model.CallCompatible, prompt.BuildCompatible(req, profileSummary, exclude), log)
	recordCall(outcome, call2)

	if err1 != nil && err2 != nil {
		return eris.Errorf("search: both calls failed: analysis: %s; compatible: %s",
			err1.Error(), err2.Error())
	}

	var items []model.Choreography
	if analysis != nil {
		items = append(items, analysis.Choreographies...)
	}
	if compatible != nil {
		items = append(items, compatible.Choreographies...)
	}
	groups := classify.Partition(items, req.SongTitle, req.MaxResults)
	outcome.Dedicated = groups.Dedicated
	outcome.Compatible = groups.Compatible
	outcome.Other = groups.Other
	return nil
}

// call issues one remote call and turns its result into a CallOutcome.
// On a parse failure the transcript is kept in Raw so the caller can
// surface the model's answer verbatim.
func (s *Searcher) call(ctx context.Context, name, instruction string, log *zap.Logger) (*model.SearchPayload, model.CallOutcome, error) {
	out := model.CallOutcome{Name: name}

	start := time.Now()
	res, err := s.provider.Generate(ctx, name, instruction)
	out.Duration = time.Since(start).Milliseconds()
	if err != nil {
		out.Error = err.Error()
		log.Error("search: call failed",
			zap.String("call", name),
			zap.Int64("duration_ms", out.Duration),
			zap.Error(err),
		)
		return nil, out, err
	}

	out.Usage = res.Usage
	out.Cost = res.Cost

	payload, err := extract.Payload(res.Text)
	if err != nil {
		out.Raw = res.Text
		out.Error = err.Error()
		log.Error("search: payload parse failed",
			zap.String("call", name),
			zap.Int64("duration_ms", out.Duration),
			zap.Error(err),
		)
		return nil, out, err
	}

	out.OK = true
	log.Info("search: call complete",
		zap.String("call", name),
		zap.Int64("duration_ms", out.Duration),
		zap.Int("choreographies", len(payload.Choreographies)),
	)
	return payload, out, nil
}

// modelName resolves the configured model for the active provider. The
// name is fixed before any call so cache fingerprints stay stable.
func (s *Searcher) modelName() string {
	if s.provider.Name() == "perplexity" {
		return s.cfg.Perplexity.Model
	}
	return s.cfg.Anthropic.Model
}

func recordCall(outcome *model.SearchOutcome, call model.CallOutcome) {
	outcome.Calls = append(outcome.Calls, call)
	outcome.Usage.Add(call.Usage)
	outcome.TotalCost += call.Cost
}

// isParseFailure reports whether the call reached the model and got a
// transcript back that just didn't contain a usable payload.
func isParseFailure(err error) bool {
	return extract.IsNoJSON(err) || extract.IsMalformedJSON(err)
}

// summarizeProfile renders the analysis call's song profile as plain
// lines for interpolation into the compatible-call instruction.
func summarizeProfile(p *model.SongProfile) string {
	if p == nil {
		return ""
	}
	var b strings.Builder
	add := func(label, value string) {
		if strings.TrimSpace(value) != "" {
			fmt.Fprintf(&b, "- %s: %s\n", label, value)
		}
	}
	add("BPM", p.BPM)
	add("Tempo", p.TempoLabel)
	add("Style", p.Style)
	add("Time signature", p.TimeSignature)
	add("Dance feel", p.DanceFeel)
	if len(p.TypicalDanceStyles) > 0 {
		add("Typical dance styles", strings.Join(p.TypicalDanceStyles, ", "))
	}
	add("Summary", p.Summary)
	return strings.TrimRight(b.String(), "\n")
}
