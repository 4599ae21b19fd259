package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/bootstobeats/stepfinder/internal/cost"
	"github.com/bootstobeats/stepfinder/internal/model"
)

// Config holds the full application configuration.
type Config struct {
	Provider   string           `yaml:"provider" mapstructure:"provider"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Perplexity PerplexityConfig `yaml:"perplexity" mapstructure:"perplexity"`
	Search     SearchConfig     `yaml:"search" mapstructure:"search"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Pricing    cost.Rates       `yaml:"pricing" mapstructure:"pricing"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key              string   `yaml:"key" mapstructure:"key"`
	Model            string   `yaml:"model" mapstructure:"model"`
	MaxTokens        int      `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature      float64  `yaml:"temperature" mapstructure:"temperature"`
	WebSearchMaxUses int      `yaml:"web_search_max_uses" mapstructure:"web_search_max_uses"`
	AllowedDomains   []string `yaml:"allowed_domains" mapstructure:"allowed_domains"`
}

// PerplexityConfig holds Perplexity API settings.
type PerplexityConfig struct {
	Key           string   `yaml:"key" mapstructure:"key"`
	BaseURL       string   `yaml:"base_url" mapstructure:"base_url"`
	Model         string   `yaml:"model" mapstructure:"model"`
	MaxTokens     int      `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature   float64  `yaml:"temperature" mapstructure:"temperature"`
	SearchDomains []string `yaml:"search_domains" mapstructure:"search_domains"`
	SearchRecency string   `yaml:"search_recency" mapstructure:"search_recency"`
	RateLimitRPS  float64  `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
}

// SearchConfig configures the choreography search flow.
type SearchConfig struct {
	MaxResults    int  `yaml:"max_results" mapstructure:"max_results"`
	SplitCalls    bool `yaml:"split_calls" mapstructure:"split_calls"`
	TimeoutSecs   int  `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	CacheEnabled  bool `yaml:"cache_enabled" mapstructure:"cache_enabled"`
	CacheTTLHours int  `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
}

// Timeout returns the per-search deadline callers apply around Run.
func (c SearchConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// CacheTTL returns how long cached outcomes stay valid.
func (c SearchConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLHours) * time.Hour
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the web server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// MonitoringConfig configures the background alert checker that runs
// under the serve command.
type MonitoringConfig struct {
	Enabled              bool    `yaml:"enabled" mapstructure:"enabled"`
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	CheckIntervalSecs    int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	LookbackWindowHours  int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	CostThresholdUSD     float64 `yaml:"cost_threshold_usd" mapstructure:"cost_threshold_usd"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("STEPFINDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Credentials also resolve from the vendors' standard variables.
	_ = v.BindEnv("anthropic.key", "STEPFINDER_ANTHROPIC_KEY", "ANTHROPIC_API_KEY")
	_ = v.BindEnv("perplexity.key", "STEPFINDER_PERPLEXITY_KEY", "PERPLEXITY_API_KEY")

	// Defaults
	v.SetDefault("provider", "anthropic")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 8192)
	v.SetDefault("anthropic.web_search_max_uses", 5)
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar-pro")
	v.SetDefault("perplexity.max_tokens", 4096)
	v.SetDefault("perplexity.temperature", 0.2)
	v.SetDefault("perplexity.rate_limit_rps", 1)
	v.SetDefault("search.max_results", model.DefaultMaxResults)
	v.SetDefault("search.split_calls", true)
	v.SetDefault("search.timeout_secs", 300)
	v.SetDefault("search.cache_enabled", true)
	v.SetDefault("search.cache_ttl_hours", 24)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "stepfinder.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("monitoring.enabled", false)
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.lookback_window_hours", 24)
	v.SetDefault("monitoring.failure_rate_threshold", 0.5)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("pricing.web_search.per_request", 0.01)
	v.SetDefault("pricing.perplexity.input", 3.00)
	v.SetDefault("pricing.perplexity.output", 15.00)
	v.SetDefault("pricing.perplexity.per_query", 0.005)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Rates returns the configured pricing rates. The per-model Anthropic
// table falls back to the built-in one when the config file does not
// override it.
func (c *Config) Rates() cost.Rates {
	r := c.Pricing
	if len(r.Anthropic) == 0 {
		r.Anthropic = cost.DefaultRates().Anthropic
	}
	return r
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
