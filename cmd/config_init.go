package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/bootstobeats/stepfinder/internal/model"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config.yaml",
	Long:  "Writes a config.yaml with the default settings so they can be edited in place.\nAPI keys stay in the environment (ANTHROPIC_API_KEY, PERPLEXITY_API_KEY).",
	RunE: func(cmd *cobra.Command, _ []string) error {
		outputPath, _ := cmd.Flags().GetString("output")
		force, _ := cmd.Flags().GetBool("force")

		if !force {
			if _, err := os.Stat(outputPath); err == nil {
				return eris.Errorf("config init: %s already exists (use --force to overwrite)", outputPath)
			}
		}

		data, err := starterConfigYAML()
		if err != nil {
			return err
		}
		if err := os.WriteFile(outputPath, data, 0o644); err != nil {
			return eris.Wrapf(err, "config init: write %s", outputPath)
		}

		fmt.Printf("Wrote %s\n", outputPath)
		return nil
	},
}

func init() {
	configInitCmd.Flags().StringP("output", "o", "config.yaml", "path to write the config file")
	configInitCmd.Flags().Bool("force", false, "overwrite an existing file")

	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

// starterSettings mirrors the keys the config loader reads. API keys are
// deliberately absent: they belong in the environment, not on disk.
type starterSettings struct {
	Provider   string            `yaml:"provider"`
	Anthropic  starterAnthropic  `yaml:"anthropic"`
	Perplexity starterPerplexity `yaml:"perplexity"`
	Search     starterSearch     `yaml:"search"`
	Store      starterStore      `yaml:"store"`
	Server     starterServer     `yaml:"server"`
	Log        starterLog        `yaml:"log"`
}

type starterAnthropic struct {
	Model            string `yaml:"model"`
	MaxTokens        int    `yaml:"max_tokens"`
	WebSearchMaxUses int    `yaml:"web_search_max_uses"`
}

type starterPerplexity struct {
	BaseURL   string  `yaml:"base_url"`
	Model     string  `yaml:"model"`
	MaxTokens int     `yaml:"max_tokens"`
	Temp      float64 `yaml:"temperature"`
	RateRPS   float64 `yaml:"rate_limit_rps"`
}

type starterSearch struct {
	MaxResults    int  `yaml:"max_results"`
	SplitCalls    bool `yaml:"split_calls"`
	TimeoutSecs   int  `yaml:"timeout_secs"`
	CacheEnabled  bool `yaml:"cache_enabled"`
	CacheTTLHours int  `yaml:"cache_ttl_hours"`
}

type starterStore struct {
	Driver      string `yaml:"driver"`
	DatabaseURL string `yaml:"database_url"`
}

type starterServer struct {
	Port int `yaml:"port"`
}

type starterLog struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

const starterHeader = `# stepfinder configuration.
# Environment variables override these values (prefix STEPFINDER_, dots
# become underscores: STEPFINDER_SEARCH_MAX_RESULTS). API keys are read
# from ANTHROPIC_API_KEY and PERPLEXITY_API_KEY.

`

// starterConfigYAML renders the default settings as a commented YAML file.
func starterConfigYAML() ([]byte, error) {
	starter := starterSettings{
		Provider: "anthropic",
		Anthropic: starterAnthropic{
			Model:            "claude-sonnet-4-5-20250929",
			MaxTokens:        8192,
			WebSearchMaxUses: 5,
		},
		Perplexity: starterPerplexity{
			BaseURL:   "https://api.perplexity.ai",
			Model:     "sonar-pro",
			MaxTokens: 4096,
			Temp:      0.2,
			RateRPS:   1,
		},
		Search: starterSearch{
			MaxResults:    model.DefaultMaxResults,
			SplitCalls:    true,
			TimeoutSecs:   300,
			CacheEnabled:  true,
			CacheTTLHours: 24,
		},
		Store: starterStore{
			Driver:      "sqlite",
			DatabaseURL: "stepfinder.db",
		},
		Server: starterServer{Port: 8080},
		Log:    starterLog{Level: "info", Format: "json"},
	}

	var buf bytes.Buffer
	buf.WriteString(starterHeader)

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(starter); err != nil {
		return nil, eris.Wrap(err, "config init: encode settings")
	}
	if err := enc.Close(); err != nil {
		return nil, eris.Wrap(err, "config init: encode settings")
	}

	return buf.Bytes(), nil
}
