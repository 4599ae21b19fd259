package llm

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/bootstobeats/stepfinder/internal/cost"
	"github.com/bootstobeats/stepfinder/internal/model"
	"github.com/bootstobeats/stepfinder/pkg/perplexity"
)

// PerplexityOptions configures the Perplexity-backed provider.
type PerplexityOptions struct {
	Model         string
	System        string
	Temperature   *float64
	MaxTokens     int
	SearchDomains []string
	SearchRecency string
}

// PerplexityProvider runs instructions through Perplexity's
// search-grounded chat completions.
type PerplexityProvider struct {
	client perplexity.Client
	calc   *cost.Calculator
	opts   PerplexityOptions
}

// NewPerplexityProvider wraps a Perplexity client as a Provider.
func NewPerplexityProvider(client perplexity.Client, calc *cost.Calculator, opts PerplexityOptions) *PerplexityProvider {
	if calc == nil {
		calc = cost.NewCalculator(cost.DefaultRates())
	}
	return &PerplexityProvider{client: client, calc: calc, opts: opts}
}

// Name implements Provider.
func (p *PerplexityProvider) Name() string { return "perplexity" }

// Available implements Provider.
func (p *PerplexityProvider) Available() bool { return p.client != nil }

// Generate implements Provider.
func (p *PerplexityProvider) Generate(ctx context.Context, call, instruction string) (*Result, error) {
	var messages []perplexity.Message
	if p.opts.System != "" {
		messages = append(messages, perplexity.Message{Role: "system", Content: p.opts.System})
	}
	messages = append(messages, perplexity.Message{Role: "user", Content: instruction})

	req := perplexity.ChatCompletionRequest{
		Model:               p.opts.Model,
		Messages:            messages,
		Temperature:         p.opts.Temperature,
		SearchDomainFilter:  p.opts.SearchDomains,
		SearchRecencyFilter: p.opts.SearchRecency,
	}
	if p.opts.MaxTokens > 0 {
		req.MaxTokens = &p.opts.MaxTokens
	}

	resp, err := p.client.ChatCompletion(ctx, req)
	if err != nil {
		return nil, eris.Wrap(err, "llm: perplexity generate")
	}

	if len(resp.Choices) == 0 {
		return nil, &NoOutputError{Provider: p.Name()}
	}
	text := resp.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		return nil, &NoOutputError{Provider: p.Name()}
	}

	usage := model.TokenUsage{
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}
	callCost := p.calc.Perplexity(usage.InputTokens, usage.OutputTokens) + p.calc.PerplexityQuery()

	respModel := resp.Model
	if respModel == "" {
		respModel = p.opts.Model
	}

	zap.L().Info("llm: perplexity call complete",
		zap.String("call", call),
		zap.String("model", respModel),
		zap.Int("input_tokens", usage.InputTokens),
		zap.Int("output_tokens", usage.OutputTokens),
		zap.Int("citations", len(resp.Citations)),
		zap.Float64("estimated_cost_usd", callCost),
	)

	return &Result{
		Text:      text,
		Model:     respModel,
		Usage:     usage,
		Cost:      callCost,
		Citations: resp.Citations,
	}, nil
}
