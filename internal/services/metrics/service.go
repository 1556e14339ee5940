// Package metrics publishes export results as a Prometheus textfile.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fgeck/dbdump-homelab/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

const namespace = "dbdump"

// Service defines the interface for recording run metrics.
type Service interface {
	Record(cfg models.MetricsConfig, run *models.ExportRun) error
}

// Impl writes one textfile per run for the node_exporter textfile collector.
type Impl struct {
	logger zerolog.Logger
}

// New creates a new metrics service.
func New(logger zerolog.Logger) *Impl {
	return &Impl{logger: logger}
}

// Record replaces cfg.TextfilePath with gauges describing run.
func (s *Impl) Record(cfg models.MetricsConfig, run *models.ExportRun) error {
	reg := prometheus.NewRegistry()
	labels := prometheus.Labels{"backend": string(run.Backend), "host": run.Host}

	duration := promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   namespace,
		Subsystem:   "export",
		Name:        "duration_seconds",
		Help:        "Wall-clock duration of the dump process per database",
		ConstLabels: labels,
	}, []string{"database"})

	success := promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   namespace,
		Subsystem:   "export",
		Name:        "success",
		Help:        "1 if the last dump of the database succeeded, 0 otherwise",
		ConstLabels: labels,
	}, []string{"database"})

	archiveBytes := promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   namespace,
		Subsystem:   "export",
		Name:        "archive_bytes",
		Help:        "Size of the zip archive per database",
		ConstLabels: labels,
	}, []string{"database"})

	selected := promauto.With(reg).NewGauge(prometheus.GaugeOpts{
		Namespace:   namespace,
		Name:        "databases_selected",
		Help:        "Number of databases selected for export in the last run",
		ConstLabels: labels,
	})

	lastRun := promauto.With(reg).NewGauge(prometheus.GaugeOpts{
		Namespace:   namespace,
		Name:        "last_run_timestamp_seconds",
		Help:        "Unix time the last run started",
		ConstLabels: labels,
	})

	for _, res := range run.Successes {
		duration.WithLabelValues(res.Database).Set(res.Duration.Seconds())
		success.WithLabelValues(res.Database).Set(1)
		archiveBytes.WithLabelValues(res.Database).Set(float64(res.ArchiveBytes))
	}
	for _, res := range run.Failures {
		duration.WithLabelValues(res.Database).Set(res.Duration.Seconds())
		success.WithLabelValues(res.Database).Set(0)
	}
	selected.Set(float64(len(run.Selected)))
	lastRun.Set(float64(run.StartTime.Unix()))

	if err := os.MkdirAll(filepath.Dir(cfg.TextfilePath), 0o750); err != nil {
		return fmt.Errorf("creating metrics directory: %w", err)
	}

	if err := prometheus.WriteToTextfile(cfg.TextfilePath, reg); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}

	s.logger.Debug().Str("path", cfg.TextfilePath).Msg("metrics textfile written")
	return nil
}
