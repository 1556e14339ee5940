package runner

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fatih/color"
	dberrors "github.com/fgeck/dbdump-homelab/internal/errors"
	"github.com/fgeck/dbdump-homelab/internal/models"
	"github.com/fgeck/dbdump-homelab/internal/services/backend"
	"github.com/fgeck/dbdump-homelab/internal/services/compress"
	"github.com/fgeck/dbdump-homelab/internal/services/exporter"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

// Mock implementations.
type mockBackend struct {
	listFunc func(ctx context.Context) ([]string, error)
	folder   string
}

func (m *mockBackend) Kind() models.Backend { return models.BackendMySQL }

func (m *mockBackend) ListDatabases(ctx context.Context) ([]string, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx)
	}
	return []string{"a", "b"}, nil
}

func (m *mockBackend) DumpCommand(database string) models.DumpCommand {
	return models.DumpCommand{
		Program:       "mysqldump",
		Args:          []string{database},
		OutputPath:    filepath.Join(m.folder, database+".sql"),
		CaptureStdout: true,
	}
}

type mockExporter struct {
	exportFunc func(ctx context.Context, index int, database string, cmd models.DumpCommand) (*models.DumpResult, error)
	calls      []string
}

func (m *mockExporter) Export(ctx context.Context, index int, database string, cmd models.DumpCommand) (*models.DumpResult, error) {
	m.calls = append(m.calls, database)
	if m.exportFunc != nil {
		return m.exportFunc(ctx, index, database, cmd)
	}
	return &models.DumpResult{Index: index, Database: database, Success: true, Duration: time.Millisecond}, nil
}

type mockWOLService struct {
	wakeFunc func(ctx context.Context, cfg models.WOLConfig) (*models.WOLResult, error)
}

func (m *mockWOLService) Wake(ctx context.Context, cfg models.WOLConfig) (*models.WOLResult, error) {
	if m.wakeFunc != nil {
		return m.wakeFunc(ctx, cfg)
	}
	return &models.WOLResult{PacketSent: true, TargetReady: true}, nil
}

type mockShutdownService struct {
	shutdownFunc func(ctx context.Context, cfg models.ShutdownConfig) (*models.ShutdownResult, error)
	calls        int
}

func (m *mockShutdownService) Shutdown(ctx context.Context, cfg models.ShutdownConfig) (*models.ShutdownResult, error) {
	m.calls++
	if m.shutdownFunc != nil {
		return m.shutdownFunc(ctx, cfg)
	}
	return &models.ShutdownResult{CommandRun: true}, nil
}

type mockMetricsService struct {
	recordFunc func(cfg models.MetricsConfig, run *models.ExportRun) error
}

func (m *mockMetricsService) Record(cfg models.MetricsConfig, run *models.ExportRun) error {
	if m.recordFunc != nil {
		return m.recordFunc(cfg, run)
	}
	return nil
}

type mockTelegramService struct {
	sendFunc func(ctx context.Context, cfg models.TelegramConfig, msg models.TelegramMessage) (*models.TelegramResult, error)
}

func (m *mockTelegramService) SendNotification(ctx context.Context, cfg models.TelegramConfig, msg models.TelegramMessage) (*models.TelegramResult, error) {
	if m.sendFunc != nil {
		return m.sendFunc(ctx, cfg, msg)
	}
	return &models.TelegramResult{MessageSent: true}, nil
}

// fakeDumpTool stands in for the dump utility. Each call advances the clock
// by the duration configured for the database, which is the last argument.
type fakeDumpTool struct {
	clock     clockwork.FakeClock
	durations map[string]time.Duration
	exitCodes map[string]int
}

func (f *fakeDumpTool) Run(_ context.Context, cmd models.DumpCommand, stdout io.Writer) (*models.ProcessOutput, error) {
	database := cmd.Args[len(cmd.Args)-1]
	f.clock.Advance(f.durations[database])
	if code := f.exitCodes[database]; code != 0 {
		return &models.ProcessOutput{ExitCode: code, Stderr: []byte("Access denied for " + database)}, nil
	}
	if _, err := io.WriteString(stdout, "-- dump of "+database+"\n"); err != nil {
		return nil, err
	}
	return &models.ProcessOutput{}, nil
}

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func testConfig(folder string) models.ExportConfig {
	return models.ExportConfig{
		Connection: models.ConnectionConfig{
			Backend:  models.BackendMySQL,
			Host:     "db.local",
			Port:     3306,
			Username: "backup",
			Password: "secret",
			Folder:   folder,
		},
		Selection: models.ExportSpec{Include: []string{models.Wildcard}},
		Timeout:   time.Hour,
	}
}

func mockServices(folder string) (Services, *mockExporter) {
	exp := &mockExporter{}
	return Services{
		Backend: func(zerolog.Logger, models.ConnectionConfig) (backend.Backend, error) {
			return &mockBackend{folder: folder}, nil
		},
		Exporter: func(zerolog.Logger, time.Duration) exporter.Service { return exp },
		WOL:      &mockWOLService{},
		Shutdown: &mockShutdownService{},
		Metrics:  &mockMetricsService{},
		Telegram: &mockTelegramService{},
		Clock:    clockwork.NewFakeClock(),
	}, exp
}

// catalogServices wires the real MySQL backend against sqlmock and the real
// exporter against fakeDumpTool, so only the server and the dump binary are
// simulated.
func catalogServices(t *testing.T, discovered []string, tool *fakeDumpTool) Services {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rows := sqlmock.NewRows([]string{"Database"})
	for _, name := range discovered {
		rows.AddRow(name)
	}
	mock.ExpectQuery("SHOW DATABASES").WillReturnRows(rows)

	opener := func(string, string) (*sql.DB, error) { return db, nil }

	return Services{
		Backend: func(logger zerolog.Logger, conn models.ConnectionConfig) (backend.Backend, error) {
			return backend.NewWithOpener(logger, conn, opener)
		},
		Exporter: func(logger zerolog.Logger, timeout time.Duration) exporter.Service {
			return exporter.NewWithDeps(logger, tool, compress.New(), tool.clock, timeout)
		},
		Clock: tool.clock,
	}
}

func TestRun_Scenario_WildcardWithExclusion_RanksFastestFirst(t *testing.T) {
	folder := filepath.Join(t.TempDir(), "dumps")
	tool := &fakeDumpTool{
		clock:     clockwork.NewFakeClock(),
		durations: map[string]time.Duration{"a": 500 * time.Microsecond, "c": 200 * time.Microsecond},
	}

	cfg := testConfig(folder)
	cfg.Selection.Exclude = []string{"b"}

	var out bytes.Buffer
	svc := NewWithServices(testLogger(), &out, catalogServices(t, []string{"a", "b", "c"}, tool))

	run, err := svc.Run(context.Background(), cfg)

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, run.Discovered)
	assert.Equal(t, []string{"a", "c"}, run.Selected)
	require.Len(t, run.Successes, 2)
	assert.Equal(t, "c", run.Successes[0].Database)
	assert.Equal(t, 200*time.Microsecond, run.Successes[0].Duration)
	assert.Equal(t, "a", run.Successes[1].Database)
	assert.Equal(t, 500*time.Microsecond, run.Successes[1].Duration)
	assert.Empty(t, run.Failures)

	for _, name := range []string{"a.sql", "a.zip", "c.sql", "c.zip"} {
		assert.FileExists(t, filepath.Join(folder, name))
	}
	assert.NoFileExists(t, filepath.Join(folder, "b.sql"))
	assert.NoFileExists(t, filepath.Join(folder, "b.zip"))

	report := out.String()
	assert.Less(t, strings.Index(report, " c "), strings.Index(report, " a "))
	assert.Contains(t, report, "2 succeeded, 0 failed of 2 selected (3 discovered)")
}

func TestRun_Scenario_ExplicitSelectionIgnoresExclusion(t *testing.T) {
	folder := t.TempDir()
	tool := &fakeDumpTool{clock: clockwork.NewFakeClock()}

	cfg := testConfig(folder)
	cfg.Selection = models.ExportSpec{Include: []string{"x", "a"}, Exclude: []string{"a"}}

	svc := NewWithServices(testLogger(), io.Discard, catalogServices(t, []string{"a", "b"}, tool))

	run, err := svc.Run(context.Background(), cfg)

	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, run.Selected)
	require.Len(t, run.Successes, 1)
	assert.Equal(t, "a", run.Successes[0].Database)
	assert.FileExists(t, filepath.Join(folder, "a.zip"))
	assert.NoFileExists(t, filepath.Join(folder, "x.sql"))
}

func TestRun_FailingDatabaseIsIsolated(t *testing.T) {
	folder := t.TempDir()
	tool := &fakeDumpTool{
		clock:     clockwork.NewFakeClock(),
		durations: map[string]time.Duration{"a": 3 * time.Millisecond, "b": time.Millisecond, "c": 2 * time.Millisecond},
		exitCodes: map[string]int{"b": 2},
	}

	var out bytes.Buffer
	svc := NewWithServices(testLogger(), &out, catalogServices(t, []string{"a", "b", "c"}, tool))

	run, err := svc.Run(context.Background(), testConfig(folder))

	require.NoError(t, err)
	require.Len(t, run.Successes, 2)
	assert.Equal(t, "c", run.Successes[0].Database)
	assert.Equal(t, "a", run.Successes[1].Database)

	require.Len(t, run.Failures, 1)
	assert.Equal(t, "b", run.Failures[0].Database)
	assert.True(t, errors.Is(run.Failures[0].Error, dberrors.ErrExportProcess))

	assert.NoFileExists(t, filepath.Join(folder, "b.sql"))
	assert.NoFileExists(t, filepath.Join(folder, "b.zip"))
	assert.NotContains(t, out.String(), " b ")
	assert.Contains(t, out.String(), "2 succeeded, 1 failed of 3 selected")
}

func TestRun_CatalogErrorAbortsBeforeExports(t *testing.T) {
	svc, exp := mockServices(t.TempDir())
	svc.Backend = func(zerolog.Logger, models.ConnectionConfig) (backend.Backend, error) {
		return &mockBackend{listFunc: func(context.Context) ([]string, error) {
			return nil, dberrors.NewConnectionError("mysql", "db.local:3306", errors.New("access denied"))
		}}, nil
	}

	run, err := NewWithServices(testLogger(), io.Discard, svc).Run(context.Background(), testConfig(t.TempDir()))

	require.Error(t, err)
	assert.True(t, errors.Is(err, dberrors.ErrConnection))
	assert.Empty(t, exp.calls)
	assert.Empty(t, run.Selected)
}

func TestRun_UnsupportedBackend(t *testing.T) {
	svc, exp := mockServices(t.TempDir())
	svc.Backend = backend.New

	cfg := testConfig(t.TempDir())
	cfg.Connection.Backend = "oracle"

	_, err := NewWithServices(testLogger(), io.Discard, svc).Run(context.Background(), cfg)

	require.Error(t, err)
	assert.True(t, errors.Is(err, dberrors.ErrUnsupportedBackend))
	assert.Empty(t, exp.calls)
}

func TestRun_UnwritableFolderIsPersistenceError(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	svc, exp := mockServices(blocker)

	_, err := NewWithServices(testLogger(), io.Discard, svc).Run(context.Background(), testConfig(filepath.Join(blocker, "dumps")))

	require.Error(t, err)
	assert.True(t, errors.Is(err, dberrors.ErrPersistence))
	assert.Empty(t, exp.calls)
}

func TestRun_PersistenceErrorAbortsRemainingExports(t *testing.T) {
	folder := t.TempDir()
	svc, exp := mockServices(folder)
	svc.Backend = func(zerolog.Logger, models.ConnectionConfig) (backend.Backend, error) {
		return &mockBackend{folder: folder, listFunc: func(context.Context) ([]string, error) {
			return []string{"a", "b", "c"}, nil
		}}, nil
	}
	exp.exportFunc = func(_ context.Context, index int, database string, cmd models.DumpCommand) (*models.DumpResult, error) {
		if database == "b" {
			return nil, dberrors.NewPersistenceError("writing dump", cmd.OutputPath, errors.New("disk full"))
		}
		return &models.DumpResult{Index: index, Database: database, Success: true}, nil
	}

	var out bytes.Buffer
	run, err := NewWithServices(testLogger(), &out, svc).Run(context.Background(), testConfig(folder))

	require.Error(t, err)
	assert.True(t, errors.Is(err, dberrors.ErrPersistence))
	assert.Equal(t, []string{"a", "b"}, exp.calls)
	require.Len(t, run.Successes, 1)
	assert.Empty(t, out.String())
}

func TestRun_ContextCancelledStopsLoop(t *testing.T) {
	folder := t.TempDir()
	svc, exp := mockServices(folder)

	ctx, cancel := context.WithCancel(context.Background())
	exp.exportFunc = func(_ context.Context, index int, database string, _ models.DumpCommand) (*models.DumpResult, error) {
		cancel()
		return &models.DumpResult{Index: index, Database: database, Success: true}, nil
	}

	_, err := NewWithServices(testLogger(), io.Discard, svc).Run(ctx, testConfig(folder))

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"a"}, exp.calls)
}

func TestRun_PassesTimeoutAndDumpCommand(t *testing.T) {
	folder := t.TempDir()
	svc, exp := mockServices(folder)

	var gotTimeout time.Duration
	svc.Exporter = func(_ zerolog.Logger, timeout time.Duration) exporter.Service {
		gotTimeout = timeout
		return exp
	}
	var commands []models.DumpCommand
	exp.exportFunc = func(_ context.Context, index int, database string, cmd models.DumpCommand) (*models.DumpResult, error) {
		commands = append(commands, cmd)
		return &models.DumpResult{Index: index, Database: database, Success: true}, nil
	}

	cfg := testConfig(folder)
	cfg.Timeout = 42 * time.Minute

	_, err := NewWithServices(testLogger(), io.Discard, svc).Run(context.Background(), cfg)

	require.NoError(t, err)
	assert.Equal(t, 42*time.Minute, gotTimeout)
	require.Len(t, commands, 2)
	assert.Equal(t, filepath.Join(folder, "a.sql"), commands[0].OutputPath)
	assert.Equal(t, filepath.Join(folder, "b.sql"), commands[1].OutputPath)
}

func TestRun_WithWOL_DefaultsPollAddressToDatabase(t *testing.T) {
	svc, _ := mockServices(t.TempDir())

	var captured models.WOLConfig
	svc.WOL = &mockWOLService{
		wakeFunc: func(_ context.Context, cfg models.WOLConfig) (*models.WOLResult, error) {
			captured = cfg
			return &models.WOLResult{PacketSent: true, TargetReady: true}, nil
		},
	}

	cfg := testConfig(t.TempDir())
	cfg.WOL = &models.WOLConfig{MACAddress: "AA:BB:CC:DD:EE:FF"}

	_, err := NewWithServices(testLogger(), io.Discard, svc).Run(context.Background(), cfg)

	require.NoError(t, err)
	assert.Equal(t, "db.local:3306", captured.PollAddress)
}

func TestRun_WOLFailureIsConnectionError(t *testing.T) {
	svc, exp := mockServices(t.TempDir())
	backendCalled := false
	svc.Backend = func(zerolog.Logger, models.ConnectionConfig) (backend.Backend, error) {
		backendCalled = true
		return &mockBackend{}, nil
	}
	svc.WOL = &mockWOLService{
		wakeFunc: func(context.Context, models.WOLConfig) (*models.WOLResult, error) {
			return &models.WOLResult{PacketSent: true, Error: errors.New("timeout waiting for db.local:3306")}, nil
		},
	}

	cfg := testConfig(t.TempDir())
	cfg.WOL = &models.WOLConfig{MACAddress: "AA:BB:CC:DD:EE:FF", PollAddress: "db.local:22"}

	_, err := NewWithServices(testLogger(), io.Discard, svc).Run(context.Background(), cfg)

	require.Error(t, err)
	assert.True(t, errors.Is(err, dberrors.ErrConnection))
	assert.Contains(t, err.Error(), "db.local:22")
	assert.False(t, backendCalled)
	assert.Empty(t, exp.calls)
}

func TestRun_ShutdownAfterRun(t *testing.T) {
	svc, _ := mockServices(t.TempDir())
	var captured models.ShutdownConfig
	shutdown := &mockShutdownService{
		shutdownFunc: func(_ context.Context, cfg models.ShutdownConfig) (*models.ShutdownResult, error) {
			captured = cfg
			return &models.ShutdownResult{Error: errors.New("connection refused")}, nil
		},
	}
	svc.Shutdown = shutdown

	cfg := testConfig(t.TempDir())
	cfg.Shutdown = &models.ShutdownConfig{Host: "db.local", Port: 22, KeyPath: "/k"}

	_, err := NewWithServices(testLogger(), io.Discard, svc).Run(context.Background(), cfg)

	require.NoError(t, err)
	assert.Equal(t, 1, shutdown.calls)
	assert.Equal(t, "db.local", captured.Host)
}

func TestRun_ShutdownAfterAbortedExport(t *testing.T) {
	svc, _ := mockServices(t.TempDir())
	svc.Backend = func(zerolog.Logger, models.ConnectionConfig) (backend.Backend, error) {
		return &mockBackend{listFunc: func(context.Context) ([]string, error) {
			return nil, errors.New("access denied")
		}}, nil
	}
	shutdown := &mockShutdownService{}
	svc.Shutdown = shutdown

	cfg := testConfig(t.TempDir())
	cfg.Shutdown = &models.ShutdownConfig{Host: "db.local", KeyPath: "/k"}

	_, err := NewWithServices(testLogger(), io.Discard, svc).Run(context.Background(), cfg)

	require.Error(t, err)
	assert.Equal(t, 1, shutdown.calls)
}

func TestRun_NoShutdownWhenWOLFails(t *testing.T) {
	svc, _ := mockServices(t.TempDir())
	svc.WOL = &mockWOLService{
		wakeFunc: func(context.Context, models.WOLConfig) (*models.WOLResult, error) {
			return nil, errors.New("no route to host")
		},
	}
	shutdown := &mockShutdownService{}
	svc.Shutdown = shutdown

	cfg := testConfig(t.TempDir())
	cfg.WOL = &models.WOLConfig{MACAddress: "AA:BB:CC:DD:EE:FF"}
	cfg.Shutdown = &models.ShutdownConfig{Host: "db.local", KeyPath: "/k"}

	_, err := NewWithServices(testLogger(), io.Discard, svc).Run(context.Background(), cfg)

	require.Error(t, err)
	assert.Equal(t, 0, shutdown.calls)
}

func TestRun_WithTelegram_Success(t *testing.T) {
	svc, _ := mockServices(t.TempDir())

	var captured models.TelegramMessage
	sent := false
	svc.Telegram = &mockTelegramService{
		sendFunc: func(_ context.Context, _ models.TelegramConfig, msg models.TelegramMessage) (*models.TelegramResult, error) {
			sent = true
			captured = msg
			return &models.TelegramResult{MessageSent: true}, nil
		},
	}

	cfg := testConfig(t.TempDir())
	cfg.Telegram = &models.TelegramConfig{BotToken: "123:ABC", ChatID: "-1"}

	run, err := NewWithServices(testLogger(), io.Discard, svc).Run(context.Background(), cfg)

	require.NoError(t, err)
	require.True(t, sent)
	assert.True(t, captured.Success)
	assert.Equal(t, run.ID.String(), captured.RunID)
	assert.Equal(t, models.BackendMySQL, captured.Backend)
	assert.Equal(t, "db.local:3306", captured.Host)
	assert.Equal(t, 2, captured.Selected)
	assert.Len(t, captured.Successes, 2)
	assert.Empty(t, captured.FailedStep)
}

func TestRun_WithTelegram_PartialFailure(t *testing.T) {
	svc, exp := mockServices(t.TempDir())
	exp.exportFunc = func(_ context.Context, index int, database string, _ models.DumpCommand) (*models.DumpResult, error) {
		if database == "b" {
			return &models.DumpResult{Index: index, Database: database, Error: &dberrors.ExportProcessError{Database: "b", ExitCode: 1}}, nil
		}
		return &models.DumpResult{Index: index, Database: database, Success: true}, nil
	}

	var captured models.TelegramMessage
	svc.Telegram = &mockTelegramService{
		sendFunc: func(_ context.Context, _ models.TelegramConfig, msg models.TelegramMessage) (*models.TelegramResult, error) {
			captured = msg
			return &models.TelegramResult{MessageSent: true}, nil
		},
	}

	cfg := testConfig(t.TempDir())
	cfg.Telegram = &models.TelegramConfig{BotToken: "123:ABC", ChatID: "-1"}

	_, err := NewWithServices(testLogger(), io.Discard, svc).Run(context.Background(), cfg)

	require.NoError(t, err)
	assert.False(t, captured.Success)
	assert.Equal(t, []string{"b"}, captured.Failed)
	assert.Empty(t, captured.ErrorMessage)
}

func TestRun_WithTelegram_AbortReportsFailedStep(t *testing.T) {
	svc, _ := mockServices(t.TempDir())
	svc.Backend = func(zerolog.Logger, models.ConnectionConfig) (backend.Backend, error) {
		return &mockBackend{listFunc: func(context.Context) ([]string, error) {
			return nil, errors.New("connection refused")
		}}, nil
	}

	var captured models.TelegramMessage
	svc.Telegram = &mockTelegramService{
		sendFunc: func(_ context.Context, _ models.TelegramConfig, msg models.TelegramMessage) (*models.TelegramResult, error) {
			captured = msg
			return &models.TelegramResult{MessageSent: true}, nil
		},
	}

	cfg := testConfig(t.TempDir())
	cfg.Telegram = &models.TelegramConfig{BotToken: "123:ABC", ChatID: "-1"}

	_, err := NewWithServices(testLogger(), io.Discard, svc).Run(context.Background(), cfg)

	require.Error(t, err)
	assert.False(t, captured.Success)
	assert.Equal(t, "catalog", captured.FailedStep)
	assert.Contains(t, captured.ErrorMessage, "connection refused")
}

func TestRun_TelegramFailureDoesNotFailRun(t *testing.T) {
	svc, _ := mockServices(t.TempDir())
	svc.Telegram = &mockTelegramService{
		sendFunc: func(context.Context, models.TelegramConfig, models.TelegramMessage) (*models.TelegramResult, error) {
			return &models.TelegramResult{Error: errors.New("status 500")}, nil
		},
	}

	cfg := testConfig(t.TempDir())
	cfg.Telegram = &models.TelegramConfig{BotToken: "123:ABC", ChatID: "-1"}

	_, err := NewWithServices(testLogger(), io.Discard, svc).Run(context.Background(), cfg)

	assert.NoError(t, err)
}

func TestRun_RecordsMetrics(t *testing.T) {
	svc, _ := mockServices(t.TempDir())

	var recorded *models.ExportRun
	var path string
	svc.Metrics = &mockMetricsService{
		recordFunc: func(cfg models.MetricsConfig, run *models.ExportRun) error {
			path = cfg.TextfilePath
			recorded = run
			return errors.New("read-only filesystem")
		},
	}

	cfg := testConfig(t.TempDir())
	cfg.Metrics = &models.MetricsConfig{TextfilePath: "/var/lib/node_exporter/dbdump.prom"}

	run, err := NewWithServices(testLogger(), io.Discard, svc).Run(context.Background(), cfg)

	require.NoError(t, err)
	assert.Equal(t, "/var/lib/node_exporter/dbdump.prom", path)
	assert.Same(t, run, recorded)
	assert.Len(t, recorded.Successes, 2)
}

func TestRun_NoMetricsWhenDisabled(t *testing.T) {
	svc, _ := mockServices(t.TempDir())
	called := false
	svc.Metrics = &mockMetricsService{
		recordFunc: func(models.MetricsConfig, *models.ExportRun) error {
			called = true
			return nil
		},
	}

	_, err := NewWithServices(testLogger(), io.Discard, svc).Run(context.Background(), testConfig(t.TempDir()))

	require.NoError(t, err)
	assert.False(t, called)
}

func TestRun_NoDatabasesSelected(t *testing.T) {
	svc, exp := mockServices(t.TempDir())

	cfg := testConfig(t.TempDir())
	cfg.Selection = models.ExportSpec{Include: []string{"missing"}}

	var out bytes.Buffer
	run, err := NewWithServices(testLogger(), &out, svc).Run(context.Background(), cfg)

	require.NoError(t, err)
	assert.Empty(t, run.Selected)
	assert.Empty(t, exp.calls)
	assert.Contains(t, out.String(), "none")
}

func TestPlan_DoesNotExport(t *testing.T) {
	folder := filepath.Join(t.TempDir(), "never-created")
	svc, exp := mockServices(folder)

	cfg := testConfig(folder)
	cfg.Selection.Exclude = []string{"b"}

	run, err := NewWithServices(testLogger(), io.Discard, svc).Plan(context.Background(), cfg)

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, run.Discovered)
	assert.Equal(t, []string{"a"}, run.Selected)
	assert.Empty(t, exp.calls)
	assert.NoDirExists(t, folder)
}
