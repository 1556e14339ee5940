package models

import (
	"time"

	"github.com/google/uuid"
)

// DumpCommand is a fully built dump utility invocation for one database.
type DumpCommand struct {
	Program string
	Args    []string
	Env     []string // KEY=VALUE pairs added to the inherited environment
	// OutputPath is the canonical dump file for the database.
	OutputPath string
	// CaptureStdout is true when the dump arrives on stdout and must be
	// written to OutputPath by the executor. Otherwise the utility writes
	// OutputPath itself.
	CaptureStdout bool
}

// ProcessOutput holds what a finished dump process left behind.
type ProcessOutput struct {
	ExitCode int
	Stdout   []byte // empty when stdout was streamed to the dump file
	Stderr   []byte
	TimedOut bool
}

// DumpResult holds the outcome of one attempted export.
type DumpResult struct {
	Index        int // position in the export loop
	Database     string
	Duration     time.Duration
	Success      bool
	DumpPath     string
	ArchivePath  string
	ArchiveBytes int64
	Error        error
}

// ExportRun summarizes one complete run.
type ExportRun struct {
	ID         uuid.UUID
	Backend    Backend
	Host       string
	StartTime  time.Time
	Duration   time.Duration
	Discovered []string
	Selected   []string
	Successes  []DumpResult // ranked by duration
	Failures   []DumpResult
}
