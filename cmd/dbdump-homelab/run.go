package main

import (
	"os"

	"github.com/fgeck/dbdump-homelab/internal/services/runner"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one export run",
	Long: `Execute one export run:
1. Wake-on-LAN (if configured)
2. List the databases of the server
3. Apply the include/exclude selection
4. Dump each selected database and zip the dump
5. Print the successful dumps, fastest first
6. Shut down the database host over SSH (if configured)
7. Write metrics (if configured)
8. Send Telegram notification (if configured)

A database whose dump fails is logged and skipped. Any other error aborts
the run with exit status 1.`,
	RunE: runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	runnerSvc := runner.New(log.Logger, os.Stdout)
	run, err := runnerSvc.Run(ctx, *cfg)
	if err != nil {
		log.Error().Err(err).Msg("export run failed")
		return err
	}

	log.Info().
		Str("run_id", run.ID.String()).
		Int("succeeded", len(run.Successes)).
		Int("failed", len(run.Failures)).
		Msg("export run finished")
	return nil
}
