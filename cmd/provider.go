package main

import (
	"github.com/rotisserie/eris"

	"github.com/bootstobeats/stepfinder/internal/cost"
	"github.com/bootstobeats/stepfinder/internal/llm"
	"github.com/bootstobeats/stepfinder/internal/prompt"
	anthropicpkg "github.com/bootstobeats/stepfinder/pkg/anthropic"
	"github.com/bootstobeats/stepfinder/pkg/perplexity"
)

// initProvider builds the configured LLM provider. A missing API key
// still yields a provider; it reports itself unavailable so the
// searcher can surface a configuration error.
func initProvider() (llm.Provider, error) {
	calc := cost.NewCalculator(cfg.Rates())

	switch cfg.Provider {
	case "anthropic":
		var client anthropicpkg.Client
		if cfg.Anthropic.Key != "" {
			client = anthropicpkg.NewClient(cfg.Anthropic.Key)
		}
		return llm.NewAnthropicProvider(client, calc, llm.AnthropicOptions{
			Model:            cfg.Anthropic.Model,
			MaxTokens:        int64(cfg.Anthropic.MaxTokens),
			System:           prompt.System,
			Temperature:      tempPtr(cfg.Anthropic.Temperature),
			WebSearchMaxUses: int64(cfg.Anthropic.WebSearchMaxUses),
			AllowedDomains:   cfg.Anthropic.AllowedDomains,
		}), nil

	case "perplexity":
		var client perplexity.Client
		if cfg.Perplexity.Key != "" {
			opts := []perplexity.Option{
				perplexity.WithModel(cfg.Perplexity.Model),
				perplexity.WithRateLimit(cfg.Perplexity.RateLimitRPS),
			}
			if cfg.Perplexity.BaseURL != "" {
				opts = append(opts, perplexity.WithBaseURL(cfg.Perplexity.BaseURL))
			}
			client = perplexity.NewClient(cfg.Perplexity.Key, opts...)
		}
		return llm.NewPerplexityProvider(client, calc, llm.PerplexityOptions{
			Model:         cfg.Perplexity.Model,
			System:        prompt.System,
			Temperature:   tempPtr(cfg.Perplexity.Temperature),
			MaxTokens:     cfg.Perplexity.MaxTokens,
			SearchDomains: cfg.Perplexity.SearchDomains,
			SearchRecency: cfg.Perplexity.SearchRecency,
		}), nil

	default:
		return nil, eris.Errorf("unsupported provider: %s (use anthropic or perplexity)", cfg.Provider)
	}
}

// tempPtr treats zero as unset so the vendors' defaults apply.
func tempPtr(v float64) *float64 {
	if v <= 0 {
		return nil
	}
	return &v
}
