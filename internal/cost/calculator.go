package cost

// Rates holds per-provider pricing configuration.
type Rates struct {
	Anthropic  map[string]ModelRate `yaml:"anthropic" mapstructure:"anthropic"`
	WebSearch  WebSearchRate        `yaml:"web_search" mapstructure:"web_search"`
	Perplexity PerplexityRate       `yaml:"perplexity" mapstructure:"perplexity"`
}

// ModelRate holds per-model token pricing (per million tokens).
type ModelRate struct {
	Input         float64 `yaml:"input" mapstructure:"input"`
	Output        float64 `yaml:"output" mapstructure:"output"`
	CacheWriteMul float64 `yaml:"cache_write_mul" mapstructure:"cache_write_mul"`
	CacheReadMul  float64 `yaml:"cache_read_mul" mapstructure:"cache_read_mul"`
}

// WebSearchRate holds server-side web search tool pricing.
type WebSearchRate struct {
	PerRequest float64 `yaml:"per_request" mapstructure:"per_request"`
}

// PerplexityRate holds Perplexity pricing.
type PerplexityRate struct {
	Input    float64 `yaml:"input" mapstructure:"input"`
	Output   float64 `yaml:"output" mapstructure:"output"`
	PerQuery float64 `yaml:"per_query" mapstructure:"per_query"`
}

// Calculator computes costs for API usage.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Claude computes the token cost for a Messages API call.
func (c *Calculator) Claude(model string, input, output, cacheWrite, cacheRead int) float64 {
	rate, ok := c.rates.Anthropic[model]
	if !ok {
		return 0
	}

	inCost := (float64(input) / 1e6) * rate.Input
	outCost := (float64(output) / 1e6) * rate.Output
	cwCost := (float64(cacheWrite) / 1e6) * rate.Input * rate.CacheWriteMul
	crCost := (float64(cacheRead) / 1e6) * rate.Input * rate.CacheReadMul

	return inCost + outCost + cwCost + crCost
}

// WebSearch computes the surcharge for server-side web search tool
// requests. Billed per request regardless of model.
func (c *Calculator) WebSearch(requests int) float64 {
	return float64(requests) * c.rates.WebSearch.PerRequest
}

// Perplexity computes the token cost for a chat completion.
func (c *Calculator) Perplexity(input, output int) float64 {
	return (float64(input)/1e6)*c.rates.Perplexity.Input +
		(float64(output)/1e6)*c.rates.Perplexity.Output
}

// PerplexityQuery returns the flat search fee per Perplexity query.
func (c *Calculator) PerplexityQuery() float64 {
	return c.rates.Perplexity.PerQuery
}

// DefaultRates returns the default pricing rates.
func DefaultRates() Rates {
	return Rates{
		Anthropic: map[string]ModelRate{
			"claude-haiku-4-5-20251001": {
				Input: 0.80, Output: 4.00,
				CacheWriteMul: 1.25, CacheReadMul: 0.1,
			},
			"claude-sonnet-4-5-20250929": {
				Input: 3.00, Output: 15.00,
				CacheWriteMul: 1.25, CacheReadMul: 0.1,
			},
			"claude-opus-4-6": {
				Input: 15.00, Output: 75.00,
				CacheWriteMul: 1.25, CacheReadMul: 0.1,
			},
		},
		WebSearch:  WebSearchRate{PerRequest: 0.01},
		Perplexity: PerplexityRate{Input: 3.00, Output: 15.00, PerQuery: 0.005},
	}
}
