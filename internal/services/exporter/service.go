// Package exporter runs one dump command and persists its result.
package exporter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	dberrors "github.com/fgeck/dbdump-homelab/internal/errors"
	"github.com/fgeck/dbdump-homelab/internal/models"
	"github.com/fgeck/dbdump-homelab/internal/services/compress"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// Service defines the interface for single-database exports.
type Service interface {
	Export(ctx context.Context, index int, database string, cmd models.DumpCommand) (*models.DumpResult, error)
}

// CommandRunner allows mocking exec.Command in tests.
//
// Run returns an error only when the process could not be started; a
// non-zero exit is reported through ProcessOutput.ExitCode. When stdout is
// nil the process output is buffered into ProcessOutput.Stdout.
type CommandRunner interface {
	Run(ctx context.Context, cmd models.DumpCommand, stdout io.Writer) (*models.ProcessOutput, error)
}

// waitDelay bounds how long Wait blocks on inherited pipes after the dump
// process was killed.
const waitDelay = 10 * time.Second

// DefaultRunner is the default command runner using os/exec.
type DefaultRunner struct{}

// Run executes cmd to completion, streaming stdout and capturing stderr.
func (r *DefaultRunner) Run(ctx context.Context, cmd models.DumpCommand, stdout io.Writer) (*models.ProcessOutput, error) {
	c := exec.CommandContext(ctx, cmd.Program, cmd.Args...)
	c.Env = append(os.Environ(), cmd.Env...)
	c.WaitDelay = waitDelay

	var stdoutBuf, stderr bytes.Buffer
	if stdout == nil {
		stdout = &stdoutBuf
	}
	c.Stdout = stdout
	c.Stderr = &stderr

	err := c.Run()
	out := &models.ProcessOutput{
		Stderr:   stderr.Bytes(),
		TimedOut: errors.Is(ctx.Err(), context.DeadlineExceeded),
	}
	if stdoutBuf.Len() > 0 {
		out.Stdout = stdoutBuf.Bytes()
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return out, nil
	case errors.As(err, &exitErr):
		out.ExitCode = exitErr.ExitCode()
		return out, nil
	case errors.Is(err, exec.ErrWaitDelay):
		// The dump exited cleanly but a child kept its output open.
		return out, nil
	default:
		return nil, fmt.Errorf("starting %s: %w", cmd.Program, err)
	}
}

// Impl implements the exporter Service interface.
type Impl struct {
	runner     CommandRunner
	compressor compress.Service
	clock      clockwork.Clock
	timeout    time.Duration
	logger     zerolog.Logger
}

// New creates a new exporter. A zero timeout disables the per-export deadline.
func New(logger zerolog.Logger, timeout time.Duration) *Impl {
	return &Impl{
		runner:     &DefaultRunner{},
		compressor: compress.New(),
		clock:      clockwork.NewRealClock(),
		timeout:    timeout,
		logger:     logger,
	}
}

// NewWithDeps creates a new exporter with custom dependencies (for testing).
func NewWithDeps(
	logger zerolog.Logger,
	runner CommandRunner,
	compressor compress.Service,
	clock clockwork.Clock,
	timeout time.Duration,
) *Impl {
	return &Impl{
		runner:     runner,
		compressor: compressor,
		clock:      clock,
		timeout:    timeout,
		logger:     logger,
	}
}

// Export runs the dump for one database and archives it.
//
// A dump that exits non-zero is reported through the result's Error field and
// leaves no files behind. The returned error is reserved for failures that
// must abort the whole run: the dump utility cannot be started, or the
// finished dump cannot be written or compressed.
func (s *Impl) Export(ctx context.Context, index int, database string, cmd models.DumpCommand) (*models.DumpResult, error) {
	result := &models.DumpResult{
		Index:    index,
		Database: database,
		DumpPath: cmd.OutputPath,
	}

	s.logger.Info().
		Int("index", index).
		Str("database", database).
		Str("program", cmd.Program).
		Str("output", cmd.OutputPath).
		Msg("starting dump")

	// Captured dumps stream into a temp file that only becomes the dump on
	// a clean exit.
	var stdout io.Writer
	var tmp *os.File
	if cmd.CaptureStdout {
		f, err := os.OpenFile(tempPath(cmd.OutputPath), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, dberrors.NewPersistenceError("writing dump", cmd.OutputPath, err)
		}
		tmp = f
		stdout = f
	}

	runCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := s.clock.Now()
	out, err := s.runner.Run(runCtx, cmd, stdout)
	result.Duration = s.clock.Since(start)
	if err != nil {
		// Nothing ran, so only our own temp file can exist.
		if tmp != nil {
			s.discard(cmd, tmp)
		}
		return nil, err
	}

	if out.ExitCode != 0 || out.TimedOut {
		s.discard(cmd, tmp)

		procErr := &dberrors.ExportProcessError{
			Database: database,
			ExitCode: out.ExitCode,
			Stdout:   out.Stdout,
			Stderr:   out.Stderr,
			TimedOut: out.TimedOut,
		}
		result.Error = procErr

		s.logger.Error().
			Str("database", database).
			Int("exit_code", out.ExitCode).
			Bool("timed_out", out.TimedOut).
			Str("stdout", string(out.Stdout)).
			Str("stderr", string(out.Stderr)).
			Msg("failed to dump database")

		return result, nil
	}

	if tmp != nil {
		if err := tmp.Close(); err != nil {
			_ = os.Remove(tmp.Name())
			return nil, dberrors.NewPersistenceError("writing dump", cmd.OutputPath, err)
		}
		if err := os.Rename(tmp.Name(), cmd.OutputPath); err != nil {
			_ = os.Remove(tmp.Name())
			return nil, dberrors.NewPersistenceError("writing dump", cmd.OutputPath, err)
		}
	}

	archivePath := ArchivePath(cmd.OutputPath)
	if err := s.compressor.Compress(cmd.OutputPath, archivePath); err != nil {
		return nil, dberrors.NewPersistenceError("compressing dump", cmd.OutputPath, err)
	}

	result.Success = true
	result.ArchivePath = archivePath
	if info, err := os.Stat(archivePath); err == nil {
		result.ArchiveBytes = info.Size()
	}

	s.logger.Info().
		Str("database", database).
		Int64("duration_us", result.Duration.Microseconds()).
		Str("archive", archivePath).
		Int64("archive_bytes", result.ArchiveBytes).
		Msg("successfully dumped database")

	return result, nil
}

// discard removes whatever a failed dump left on disk: the partial temp file
// of a captured dump, or the file the utility was writing itself.
func (s *Impl) discard(cmd models.DumpCommand, tmp *os.File) {
	path := cmd.OutputPath
	if tmp != nil {
		_ = tmp.Close()
		path = tmp.Name()
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn().Err(err).Str("path", path).Msg("failed to remove partial dump")
	}
}

func tempPath(dumpPath string) string {
	return dumpPath + ".tmp"
}

// ArchivePath returns the .zip path that sits next to a dump file.
func ArchivePath(dumpPath string) string {
	return strings.TrimSuffix(dumpPath, filepath.Ext(dumpPath)) + ".zip"
}
