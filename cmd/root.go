package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bootstobeats/stepfinder/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "stepfinder",
	Short: "Find line dance choreographies that fit a song",
	Long:  "Boots to Beats: asks a web-search-capable model for line dance choreographies matching a song, skill level, and region, then classifies and records the matches.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
