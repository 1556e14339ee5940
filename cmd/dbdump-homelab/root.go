package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/fgeck/dbdump-homelab/internal/config"
	"github.com/fgeck/dbdump-homelab/internal/models"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	// Version is set at build time.
	Version = "dev"

	// Configuration flags.
	configFile string
	envFile    string
	verbose    bool
	quiet      bool
	jsonOutput bool

	// consoleOut is where logs go before a log file is attached.
	consoleOut io.Writer = os.Stdout
)

var rootCmd = &cobra.Command{
	Use:   "dbdump-homelab",
	Short: "Dump every database of a MySQL, PostgreSQL or SQL Server instance",
	Long: `dbdump-homelab discovers the databases of one server, dumps the selected
ones with the vendor tool (mysqldump, pg_dump, sqlcmd) and zips each dump:
  - Wake-on-LAN to wake the database host
  - wildcard or explicit database selection with exclusions
  - ranked report of successful dumps, fastest first
  - Prometheus textfile metrics
  - Telegram notifications

Configure with a YAML file (--config) or DB_* environment variables.
Run once from an external scheduler, or use the schedule command.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
	SilenceUsage: true,
	Version:      Version,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (optional, DB_* environment variables are used otherwise)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose (debug) output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "enable quiet mode (errors only)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output logs in JSON format")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(scheduleCmd)
}

func setupLogging() {
	noColor := !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd())
	color.NoColor = noColor

	// Set output format
	if jsonOutput {
		consoleOut = os.Stdout
	} else {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05", NoColor: noColor}
		output.FormatLevel = func(i interface{}) string {
			if s, ok := i.(string); ok {
				return strings.ToUpper(s)
			}
			return ""
		}
		consoleOut = output
	}
	log.Logger = zerolog.New(consoleOut).With().Timestamp().Logger()

	// Set log level
	switch {
	case quiet:
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case verbose:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// attachLogFile tees the logs into a rotating JSON log file.
func attachLogFile(cfg models.LogConfig) {
	if cfg.File == "" {
		return
	}

	file := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	}
	log.Logger = zerolog.New(zerolog.MultiLevelWriter(consoleOut, file)).With().Timestamp().Logger()
	log.Debug().Str("file", cfg.File).Msg("logging to file")
}

// loadConfig reads the dotenv file, then the config file if one was given,
// or the environment alone otherwise.
func loadConfig() (*models.ExportConfig, error) {
	if err := config.LoadEnvFile(envFile); err != nil {
		log.Error().Err(err).Str("file", envFile).Msg("failed to load env file")
		return nil, err
	}

	parser := config.NewParser()

	var cfg *models.ExportConfig
	var err error
	if configFile != "" {
		cfg, err = parser.LoadFile(configFile)
	} else {
		cfg, err = parser.LoadEnv()
	}
	if err != nil {
		log.Error().Err(err).Str("file", configFile).Msg("failed to load config")
		return nil, err
	}

	attachLogFile(cfg.Log)

	log.Debug().
		Str("backend", string(cfg.Connection.Backend)).
		Str("host", cfg.Connection.Host).
		Int("port", cfg.Connection.Port).
		Str("folder", cfg.Connection.Folder).
		Msg("configuration loaded")

	return cfg, nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			log.Warn().Str("signal", sig.String()).Msg("received signal, shutting down")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
