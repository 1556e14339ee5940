package main

import (
	"fmt"

	"github.com/fgeck/dbdump-homelab/internal/config"
	"github.com/fgeck/dbdump-homelab/internal/scheduler"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long:  `Load and validate the configuration without connecting to the server, then print it with secrets redacted.`,
	RunE:  validateConfig,
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if cfg.Schedule != "" {
		if err := scheduler.ValidateSpec(cfg.Schedule); err != nil {
			log.Error().Err(err).Msg("configuration validation failed")
			return err
		}
	}

	summary, err := config.Summary(cfg)
	if err != nil {
		return err
	}

	fmt.Println("Configuration is valid!")
	fmt.Println()
	fmt.Print(summary)

	return nil
}
