// Package web serves the Boots to Beats UI: a single search form
// rendered server-side, plus a JSON API mirroring it for scripted use.
package web

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/bootstobeats/stepfinder/internal/config"
	"github.com/bootstobeats/stepfinder/internal/model"
	"github.com/bootstobeats/stepfinder/internal/store"
)

//go:embed templates/*.html
var templateFS embed.FS

// Runner executes one search end to end. *search.Searcher satisfies it.
type Runner interface {
	Run(ctx context.Context, req model.SearchRequest) (*model.Search, error)
}

// Server holds the handler dependencies.
type Server struct {
	cfg      *config.Config
	store    store.Store
	searcher Runner
	tpl      *template.Template
}

// New parses the embedded templates and returns a ready Server.
func New(cfg *config.Config, st store.Store, searcher Runner) (*Server, error) {
	tpl, err := template.New("").Funcs(template.FuncMap{
		"usd": func(v float64) string { return fmt.Sprintf("$%.4f", v) },
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, eris.Wrap(err, "web: parse templates")
	}
	return &Server{cfg: cfg, store: st, searcher: searcher, tpl: tpl}, nil
}

// Handler builds the route tree. API routes sit under /api with open
// CORS so the endpoints are callable from other origins.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestLogger(zap.L()))

	r.Get("/", s.handleIndex)
	r.Post("/search", s.handleSearch)
	r.Get("/health", s.handleHealth)

	r.Route("/api", func(api chi.Router) {
		api.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
		api.Post("/search", s.handleAPISearch)
		api.Get("/searches", s.handleAPIList)
		api.Get("/searches/{id}", s.handleAPIGet)
	})

	return r
}
