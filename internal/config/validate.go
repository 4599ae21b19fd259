package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/bootstobeats/stepfinder/internal/model"
)

// ConfigurationError reports an invalid or incomplete configuration.
// Problems holds one message per failed check.
type ConfigurationError struct {
	Problems []string
}

func (e *ConfigurationError) Error() string {
	return "config: invalid configuration:\n  - " + strings.Join(e.Problems, "\n  - ")
}

// IsConfiguration reports whether err is or wraps a ConfigurationError.
func IsConfiguration(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}

// Validate checks the configuration for the given mode ("search" or
// "serve"). All problems are collected so a single run surfaces every
// missing piece at once.
func (c *Config) Validate(mode string) error {
	switch mode {
	case "search", "serve":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	var problems []string
	addProblem := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	switch c.Provider {
	case "anthropic":
		if c.Anthropic.Key == "" {
			addProblem("anthropic.key is required (set STEPFINDER_ANTHROPIC_KEY or ANTHROPIC_API_KEY)")
		}
		if c.Anthropic.Model == "" {
			addProblem("anthropic.model is required")
		}
		if c.Anthropic.MaxTokens <= 0 {
			addProblem("anthropic.max_tokens must be > 0")
		}
		if c.Anthropic.WebSearchMaxUses < 0 || c.Anthropic.WebSearchMaxUses > 20 {
			addProblem("anthropic.web_search_max_uses must be between 0 and 20")
		}
	case "perplexity":
		if c.Perplexity.Key == "" {
			addProblem("perplexity.key is required (set STEPFINDER_PERPLEXITY_KEY or PERPLEXITY_API_KEY)")
		}
		if c.Perplexity.Model == "" {
			addProblem("perplexity.model is required")
		}
		if c.Perplexity.RateLimitRPS < 0 {
			addProblem("perplexity.rate_limit_rps must be >= 0")
		}
	default:
		addProblem("provider must be %q or %q, got %q", "anthropic", "perplexity", c.Provider)
	}

	if c.Search.MaxResults < model.MinMaxResults || c.Search.MaxResults > model.MaxMaxResults {
		addProblem("search.max_results must be between %d and %d", model.MinMaxResults, model.MaxMaxResults)
	}
	if c.Search.TimeoutSecs <= 0 {
		addProblem("search.timeout_secs must be > 0")
	}
	if c.Search.CacheTTLHours < 0 {
		addProblem("search.cache_ttl_hours must be >= 0")
	}

	switch c.Store.Driver {
	case "sqlite", "postgres":
		if c.Store.DatabaseURL == "" {
			addProblem("store.database_url is required")
		}
	default:
		addProblem("store.driver must be %q or %q, got %q", "sqlite", "postgres", c.Store.Driver)
	}

	if mode == "serve" {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			addProblem("server.port must be > 0")
		}
	}

	if len(problems) > 0 {
		return &ConfigurationError{Problems: problems}
	}
	return nil
}
