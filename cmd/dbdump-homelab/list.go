package main

import (
	"fmt"
	"os"
	"slices"

	"github.com/fatih/color"
	"github.com/fgeck/dbdump-homelab/internal/services/runner"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List databases and show which ones would be exported",
	Long:  `Connect to the server, list its databases and apply the selection without dumping anything.`,
	RunE:  listDatabases,
}

func listDatabases(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	plan, err := runner.New(log.Logger, os.Stdout).Plan(ctx, *cfg)
	if err != nil {
		log.Error().Err(err).Msg("failed to list databases")
		return err
	}

	selected := color.New(color.FgGreen)
	skipped := color.New(color.FgHiBlack)

	fmt.Printf("%s on %s\n\n", plan.Backend, plan.Host)
	for _, name := range plan.Discovered {
		if slices.Contains(plan.Selected, name) {
			_, _ = selected.Printf("  [x] %s\n", name)
		} else {
			_, _ = skipped.Printf("  [ ] %s\n", name)
		}
	}
	fmt.Println()
	fmt.Printf("%d of %d databases selected\n", len(plan.Selected), len(plan.Discovered))

	return nil
}
