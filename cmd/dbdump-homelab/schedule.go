package main

import (
	"context"
	"os"

	"github.com/fgeck/dbdump-homelab/internal/scheduler"
	"github.com/fgeck/dbdump-homelab/internal/services/runner"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run exports on the configured cron schedule",
	Long: `Stay in the foreground and execute an export run on every tick of the
schedule (standard five-field cron syntax or @every/@daily descriptors).
A run that is still busy when the next tick fires causes that tick to be skipped.`,
	RunE: scheduleExports,
}

func scheduleExports(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := scheduler.ValidateSpec(cfg.Schedule); err != nil {
		log.Error().Err(err).Msg("schedule is required for the schedule command")
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	runnerSvc := runner.New(log.Logger, os.Stdout)
	sched := scheduler.New(ctx, log.Logger)
	if err := sched.AddJob(cfg.Schedule, "export", func(ctx context.Context) error {
		_, err := runnerSvc.Run(ctx, *cfg)
		return err
	}); err != nil {
		return err
	}

	sched.Run()
	return nil
}
