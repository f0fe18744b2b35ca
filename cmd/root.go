package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/avgeo/notam-studio/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "notam-studio",
	Short: "Airspace and maritime notice visualization pipeline",
	Long:  "Ingests NOTAM and maritime notice text (or images via OCR), parses them into structured records through a remote parse service, and serves the overlay scene, tile proxy, and PNG snapshot export to a map client.",
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
