package web

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bootstobeats/stepfinder/internal/config"
	"github.com/bootstobeats/stepfinder/internal/model"
	"github.com/bootstobeats/stepfinder/internal/store"
)

// formData carries the form values back into the template so the form
// stays filled in after a submit.
type formData struct {
	Song        string
	Artist      string
	Level       model.Level
	Region      string
	RegionOther string
	Max         int
}

func defaultForm() formData {
	return formData{
		Song:   "Texas Hold 'Em",
		Artist: "Beyoncé",
		Level:  model.LevelBeginner,
		Region: model.RegionEU,
		Max:    model.DefaultMaxResults,
	}
}

type pageData struct {
	Form   formData
	Error  string
	Search *model.Search
}

func (pageData) Levels() []model.Level { return model.AllLevels() }
func (pageData) Regions() []string     { return model.AllRegions() }
func (pageData) MinResults() int       { return model.MinMaxResults }
func (pageData) MaxResults() int       { return model.MaxMaxResults }

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, pageData{Form: defaultForm()})
}

// handleSearch runs a search from the HTML form. Errors render inline
// above the results instead of replacing the page.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	form := formData{
		Song:        strings.TrimSpace(r.PostFormValue("song_title")),
		Artist:      strings.TrimSpace(r.PostFormValue("artist")),
		Level:       model.Level(r.PostFormValue("level")),
		Region:      r.PostFormValue("region"),
		RegionOther: strings.TrimSpace(r.PostFormValue("region_other")),
		Max:         clampResults(r.PostFormValue("max_results")),
	}

	req := model.SearchRequest{
		SongTitle:  form.Song,
		Artist:     form.Artist,
		Level:      form.Level,
		Region:     model.NormalizeRegion(form.Region, form.RegionOther),
		MaxResults: form.Max,
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Search.Timeout())
	defer cancel()

	sr, err := s.searcher.Run(ctx, req)
	page := pageData{Form: form, Search: sr}
	if err != nil {
		page.Error = err.Error()
	}
	s.render(w, page)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		zap.L().Warn("web: health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleAPISearch is the JSON twin of the form handler. A search that
// ran but failed still returns its record, status and error included.
func (s *Server) handleAPISearch(w http.ResponseWriter, r *http.Request) {
	var req model.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.MaxResults == 0 {
		req.MaxResults = model.DefaultMaxResults
	}
	if err := req.Validate(); err != nil {
		apiError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Search.Timeout())
	defer cancel()

	sr, err := s.searcher.Run(ctx, req)
	switch {
	case config.IsConfiguration(err):
		apiError(w, http.StatusServiceUnavailable, err.Error())
	case err != nil && sr == nil:
		apiError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, sr)
	}
}

func (s *Server) handleAPIList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.SearchFilter{
		Status: model.SearchStatus(q.Get("status")),
		Song:   q.Get("song"),
	}
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 {
		filter.Limit = n
	}
	if n, err := strconv.Atoi(q.Get("offset")); err == nil && n > 0 {
		filter.Offset = n
	}

	searches, err := s.store.ListSearches(r.Context(), filter)
	if err != nil {
		zap.L().Error("web: list searches", zap.Error(err))
		apiError(w, http.StatusInternalServerError, "list searches failed")
		return
	}
	if searches == nil {
		searches = []model.Search{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"searches": searches,
		"count":    len(searches),
	})
}

func (s *Server) handleAPIGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sr, err := s.store.GetSearch(r.Context(), id)
	if err != nil {
		zap.L().Error("web: get search", zap.String("search_id", id), zap.Error(err))
		apiError(w, http.StatusInternalServerError, "get search failed")
		return
	}
	if sr == nil {
		apiError(w, http.StatusNotFound, "search not found")
		return
	}
	writeJSON(w, http.StatusOK, sr)
}

func (s *Server) render(w http.ResponseWriter, page pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tpl.ExecuteTemplate(w, "index.html", page); err != nil {
		zap.L().Error("web: render failed", zap.Error(err))
	}
}

// clampResults folds a form value into the slider's bounds. The HTML
// input enforces them already; this covers hand-crafted posts.
func clampResults(v string) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return model.DefaultMaxResults
	}
	if n < model.MinMaxResults {
		return model.MinMaxResults
	}
	if n > model.MaxMaxResults {
		return model.MaxMaxResults
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("web: encode response", zap.Error(err))
	}
}

func apiError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
