package llm

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/bootstobeats/stepfinder/internal/cost"
	"github.com/bootstobeats/stepfinder/internal/model"
	"github.com/bootstobeats/stepfinder/pkg/anthropic"
)

// AnthropicOptions configures the Anthropic-backed provider.
type AnthropicOptions struct {
	Model            string
	MaxTokens        int64
	System           string
	Temperature      *float64
	WebSearchMaxUses int64
	AllowedDomains   []string
}

// AnthropicProvider runs instructions through the Anthropic Messages
// API with the server-side web search tool enabled, so the model
// grounds its answer in live results.
type AnthropicProvider struct {
	client anthropic.Client
	calc   *cost.Calculator
	opts   AnthropicOptions
}

// NewAnthropicProvider wraps an Anthropic client as a Provider.
func NewAnthropicProvider(client anthropic.Client, calc *cost.Calculator, opts AnthropicOptions) *AnthropicProvider {
	if calc == nil {
		calc = cost.NewCalculator(cost.DefaultRates())
	}
	return &AnthropicProvider{client: client, calc: calc, opts: opts}
}

// Name implements Provider.
func (p *AnthropicProvider) Name() string { return "anthropic" }

// Available implements Provider.
func (p *AnthropicProvider) Available() bool { return p.client != nil }

// Generate implements Provider.
func (p *AnthropicProvider) Generate(ctx context.Context, call, instruction string) (*Result, error) {
	req := anthropic.MessageRequest{
		Model:       p.opts.Model,
		MaxTokens:   p.opts.MaxTokens,
		Temperature: p.opts.Temperature,
		Messages: []anthropic.Message{
			{Role: "user", Content: instruction},
		},
	}
	if p.opts.System != "" {
		req.System = anthropic.BuildCachedSystemBlocks(p.opts.System)
	}
	if p.opts.WebSearchMaxUses > 0 {
		req.WebSearch = &anthropic.WebSearchTool{
			MaxUses:        p.opts.WebSearchMaxUses,
			AllowedDomains: p.opts.AllowedDomains,
		}
	}

	resp, err := p.client.CreateMessage(ctx, req)
	if err != nil {
		return nil, eris.Wrap(err, "llm: anthropic generate")
	}

	text := joinText(resp.Content)
	if strings.TrimSpace(text) == "" {
		return nil, &NoOutputError{Provider: p.Name()}
	}

	resp.Usage.LogCost(p.opts.Model, call)

	callCost := p.calc.Claude(p.opts.Model,
		int(resp.Usage.InputTokens), int(resp.Usage.OutputTokens),
		int(resp.Usage.CacheCreationInputTokens), int(resp.Usage.CacheReadInputTokens),
	) + p.calc.WebSearch(int(resp.Usage.WebSearchRequests))

	return &Result{
		Text:  text,
		Model: resp.Model,
		Usage: model.TokenUsage{
			InputTokens:  int(resp.Usage.InputTokens),
			OutputTokens: int(resp.Usage.OutputTokens),
		},
		Cost:      callCost,
		Citations: citationURLs(resp.Content),
	}, nil
}

// joinText concatenates the text blocks of a response. Web search
// interleaves tool blocks with text; only text blocks carry output.
func joinText(blocks []anthropic.ContentBlock) string {
	var parts []string
	for _, b := range blocks {
		if (b.Type == "" || b.Type == "text") && b.Text != "" {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// citationURLs collects citation URLs across text blocks, deduplicated
// in first-seen order.
func citationURLs(blocks []anthropic.ContentBlock) []string {
	seen := make(map[string]struct{})
	var urls []string
	for _, b := range blocks {
		for _, c := range b.Citations {
			if c.URL == "" {
				continue
			}
			if _, ok := seen[c.URL]; ok {
				continue
			}
			seen[c.URL] = struct{}{}
			urls = append(urls, c.URL)
		}
	}
	return urls
}
