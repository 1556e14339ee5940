// Package models contains the data structures used throughout dbdump-homelab.
package models

import "time"

// ExportConfig holds the complete configuration for an export run.
type ExportConfig struct {
	Connection ConnectionConfig
	Selection  ExportSpec
	Timeout    time.Duration `default:"2h"` // per-database dump deadline
	Schedule   string        // cron expression, only used by the schedule command
	Log        LogConfig
	Metrics    *MetricsConfig  // nil if not configured
	WOL        *WOLConfig      // nil if not configured
	Shutdown   *ShutdownConfig // nil if not configured
	Telegram   *TelegramConfig // nil if not configured
}

// LogConfig holds optional log file settings.
type LogConfig struct {
	File       string
	MaxSizeMB  int `default:"100"`
	MaxBackups int `default:"3"`
	MaxAgeDays int `default:"28"`
}

// MetricsConfig holds Prometheus textfile settings.
type MetricsConfig struct {
	TextfilePath string
}
