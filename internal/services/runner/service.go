// Package runner orchestrates an export run: wake the host, discover and
// select databases, dump them, then rank and report the results.
package runner

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"time"

	dberrors "github.com/fgeck/dbdump-homelab/internal/errors"
	"github.com/fgeck/dbdump-homelab/internal/models"
	"github.com/fgeck/dbdump-homelab/internal/selection"
	"github.com/fgeck/dbdump-homelab/internal/services/backend"
	"github.com/fgeck/dbdump-homelab/internal/services/exporter"
	"github.com/fgeck/dbdump-homelab/internal/services/metrics"
	"github.com/fgeck/dbdump-homelab/internal/services/report"
	"github.com/fgeck/dbdump-homelab/internal/services/ssh"
	"github.com/fgeck/dbdump-homelab/internal/services/telegram"
	"github.com/fgeck/dbdump-homelab/internal/services/wol"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// Service defines the interface for the export runner.
type Service interface {
	Run(ctx context.Context, cfg models.ExportConfig) (*models.ExportRun, error)
	Plan(ctx context.Context, cfg models.ExportConfig) (*models.ExportRun, error)
}

// BackendFactory creates the backend for a connection.
type BackendFactory func(logger zerolog.Logger, conn models.ConnectionConfig) (backend.Backend, error)

// ExporterFactory creates the exporter for a per-database timeout.
type ExporterFactory func(logger zerolog.Logger, timeout time.Duration) exporter.Service

// Services bundles the collaborators of a run.
type Services struct {
	Backend  BackendFactory
	Exporter ExporterFactory
	WOL      wol.Service
	Shutdown ssh.Service
	Metrics  metrics.Service
	Telegram telegram.Service
	Clock    clockwork.Clock
}

// Impl implements the runner Service interface.
type Impl struct {
	svc    Services
	out    io.Writer
	logger zerolog.Logger
}

// New creates a new runner that prints its report to out.
func New(logger zerolog.Logger, out io.Writer) *Impl {
	return NewWithServices(logger, out, Services{
		Backend: backend.New,
		Exporter: func(logger zerolog.Logger, timeout time.Duration) exporter.Service {
			return exporter.New(logger, timeout)
		},
		WOL:      wol.New(logger),
		Shutdown: ssh.New(logger),
		Metrics:  metrics.New(logger),
		Telegram: telegram.New(logger),
		Clock:    clockwork.NewRealClock(),
	})
}

// NewWithServices creates a new runner with custom services (for testing).
func NewWithServices(logger zerolog.Logger, out io.Writer, svc Services) *Impl {
	return &Impl{
		svc:    svc,
		out:    out,
		logger: logger,
	}
}

// Plan discovers the databases of the server and applies the selection
// without dumping anything.
func (s *Impl) Plan(ctx context.Context, cfg models.ExportConfig) (*models.ExportRun, error) {
	run := s.newRun(cfg)

	be, err := s.svc.Backend(s.logger, cfg.Connection)
	if err != nil {
		return nil, fmt.Errorf("selecting backend: %w", err)
	}

	if err := s.discover(ctx, be, cfg, run); err != nil {
		return nil, err
	}

	return run, nil
}

// Run executes a complete export run. Databases whose dump process fails are
// recorded in the run's Failures and do not stop the loop. Any other error
// aborts the run and is returned together with what was collected so far.
//
//nolint:gocognit // export workflow has multiple steps
func (s *Impl) Run(ctx context.Context, cfg models.ExportConfig) (*models.ExportRun, error) {
	run := s.newRun(cfg)
	var failedStep string
	var runErr error

	logger := s.logger.With().Str("run_id", run.ID.String()).Logger()

	logger.Info().
		Str("backend", string(run.Backend)).
		Str("address", run.Host).
		Str("folder", cfg.Connection.Folder).
		Msg("starting export run")

	defer func() {
		// A host that never woke up has nothing to shut down.
		if cfg.Shutdown != nil && s.svc.Shutdown != nil && failedStep != "wol" {
			s.runShutdown(ctx, logger, *cfg.Shutdown)
		}
		run.Duration = s.svc.Clock.Since(run.StartTime)
		if cfg.Metrics != nil && s.svc.Metrics != nil {
			if err := s.svc.Metrics.Record(*cfg.Metrics, run); err != nil {
				logger.Warn().Err(err).Msg("failed to write metrics")
			}
		}
		if cfg.Telegram != nil && s.svc.Telegram != nil {
			s.sendNotification(ctx, logger, cfg, run, failedStep, runErr)
		}
	}()

	// Step 1: Wake-on-LAN (if configured)
	if cfg.WOL != nil {
		failedStep = "wol"
		if err := s.runWOL(ctx, cfg); err != nil {
			runErr = err
			return run, err
		}
	}

	// Step 2: Backend selection
	failedStep = "backend"
	be, err := s.svc.Backend(logger, cfg.Connection)
	if err != nil {
		runErr = fmt.Errorf("selecting backend: %w", err)
		return run, runErr
	}

	// Step 3: Catalog and selection
	failedStep = "catalog"
	if err := s.discover(ctx, be, cfg, run); err != nil {
		runErr = err
		return run, err
	}

	// Step 4: Output folder
	failedStep = "prepare"
	if err := os.MkdirAll(cfg.Connection.Folder, 0o750); err != nil {
		runErr = dberrors.NewPersistenceError("creating output folder", cfg.Connection.Folder, err)
		return run, runErr
	}

	// Step 5: Export loop
	failedStep = "export"
	exp := s.svc.Exporter(logger, cfg.Timeout)
	var successes []models.DumpResult
	for i, name := range run.Selected {
		if err := ctx.Err(); err != nil {
			runErr = fmt.Errorf("export interrupted before %s: %w", name, err)
			break
		}

		res, err := exp.Export(ctx, i, name, be.DumpCommand(name))
		if err != nil {
			runErr = fmt.Errorf("exporting %s: %w", name, err)
			break
		}
		if res.Success {
			successes = append(successes, *res)
		} else {
			run.Failures = append(run.Failures, *res)
		}
	}

	// Step 6: Rank and report
	run.Successes = report.Rank(successes)
	run.Duration = s.svc.Clock.Since(run.StartTime)

	if runErr != nil {
		return run, runErr
	}

	if s.out != nil {
		if err := report.NewRenderer(s.out).Render(run); err != nil {
			logger.Warn().Err(err).Msg("failed to print report")
		}
	}

	failedStep = ""
	logger.Info().
		Int("succeeded", len(run.Successes)).
		Int("failed", len(run.Failures)).
		Dur("duration", run.Duration).
		Msg("export run completed")

	return run, nil
}

func (s *Impl) newRun(cfg models.ExportConfig) *models.ExportRun {
	return &models.ExportRun{
		ID:        uuid.New(),
		Backend:   cfg.Connection.Backend,
		Host:      address(cfg.Connection),
		StartTime: s.svc.Clock.Now(),
	}
}

func (s *Impl) discover(ctx context.Context, be backend.Backend, cfg models.ExportConfig, run *models.ExportRun) error {
	discovered, err := be.ListDatabases(ctx)
	if err != nil {
		return fmt.Errorf("listing databases: %w", err)
	}

	run.Discovered = discovered
	run.Selected = selection.Select(discovered, cfg.Selection)

	s.logger.Info().
		Int("discovered", len(run.Discovered)).
		Int("selected", len(run.Selected)).
		Strs("databases", run.Selected).
		Msg("databases selected")

	return nil
}

func (s *Impl) runWOL(ctx context.Context, cfg models.ExportConfig) error {
	wolCfg := *cfg.WOL
	if wolCfg.PollAddress == "" {
		wolCfg.PollAddress = address(cfg.Connection)
	}

	result, err := s.svc.WOL.Wake(ctx, wolCfg)
	if err == nil {
		err = result.Error
	}
	if err == nil && !result.TargetReady {
		err = fmt.Errorf("target did not become ready after WOL")
	}
	if err != nil {
		return dberrors.NewConnectionError(string(cfg.Connection.Backend), wolCfg.PollAddress, fmt.Errorf("WOL failed: %w", err))
	}

	s.logger.Info().
		Bool("packet_sent", result.PacketSent).
		Dur("wait_duration", result.WaitDuration).
		Msg("WOL completed")

	return nil
}

func (s *Impl) runShutdown(ctx context.Context, logger zerolog.Logger, cfg models.ShutdownConfig) {
	result, err := s.svc.Shutdown.Shutdown(context.WithoutCancel(ctx), cfg)
	if err == nil {
		err = result.Error
	}
	if err != nil {
		logger.Error().Err(err).Str("host", cfg.Host).Msg("failed to shut down database host")
		return
	}

	logger.Info().
		Str("host", cfg.Host).
		Str("command", result.Command).
		Msg("database host shutdown scheduled")
}

func (s *Impl) sendNotification(
	ctx context.Context,
	logger zerolog.Logger,
	cfg models.ExportConfig,
	run *models.ExportRun,
	failedStep string,
	runErr error,
) {
	msg := models.TelegramMessage{
		Success:   runErr == nil && len(run.Failures) == 0,
		RunID:     run.ID.String(),
		Backend:   run.Backend,
		Host:      run.Host,
		StartTime: run.StartTime,
		Duration:  run.Duration,
		Selected:  len(run.Selected),
		Successes: run.Successes,
	}
	for _, res := range run.Failures {
		msg.Failed = append(msg.Failed, res.Database)
	}
	if runErr != nil {
		msg.FailedStep = failedStep
		msg.ErrorMessage = runErr.Error()
	}

	// The run context may already be cancelled; the summary still goes out.
	result, err := s.svc.Telegram.SendNotification(context.WithoutCancel(ctx), *cfg.Telegram, msg)
	if err == nil {
		err = result.Error
	}
	if err != nil {
		logger.Error().Err(err).Msg("failed to send Telegram notification")
		return
	}

	logger.Info().Msg("Telegram notification sent")
}

func address(conn models.ConnectionConfig) string {
	return net.JoinHostPort(conn.Host, strconv.Itoa(conn.Port))
}
