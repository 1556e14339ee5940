// Package config provides configuration file and environment parsing.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	dberrors "github.com/fgeck/dbdump-homelab/internal/errors"
	"github.com/fgeck/dbdump-homelab/internal/models"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// envBindings maps config keys to the environment variables that can set them.
var envBindings = map[string]string{
	"database.connection": "DB_CONNECTION",
	"database.host":       "DB_HOST",
	"database.port":       "DB_PORT",
	"database.username":   "DB_USERNAME",
	"database.password":   "DB_PASSWORD",
	"export.folder":       "DB_FOLDER",
	"export.include":      "DB_EXPORTS",
	"export.exclude":      "DB_FORGETS",
	"export.timeout":      "DB_EXPORT_TIMEOUT",
	"schedule":            "DB_SCHEDULE",
	"metrics.textfile":    "DB_METRICS_TEXTFILE",
	"log.file":            "DB_LOG_FILE",
}

// Parser handles configuration parsing.
type Parser struct {
	v *viper.Viper
}

// NewParser creates a new configuration parser with the DB_* environment
// variables bound.
func NewParser() *Parser {
	v := viper.New()
	v.SetConfigType("yaml")
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}
	return &Parser{v: v}
}

// LoadEnvFile loads a dotenv file into the process environment. Variables
// that are already set keep their value. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := gotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return &dberrors.ConfigError{Field: "env-file", Message: fmt.Sprintf("reading %s", path), Err: err}
	}
	return nil
}

// LoadFile loads configuration from a file path, with environment overrides.
func (p *Parser) LoadFile(path string) (*models.ExportConfig, error) {
	p.v.SetConfigFile(path)

	if err := p.v.ReadInConfig(); err != nil {
		return nil, &dberrors.ConfigError{Message: "reading config file", Err: err}
	}

	return p.parse()
}

// LoadReader loads configuration from a reader (useful for testing).
func (p *Parser) LoadReader(content string) (*models.ExportConfig, error) {
	if err := p.v.ReadConfig(strings.NewReader(content)); err != nil {
		return nil, &dberrors.ConfigError{Message: "reading config", Err: err}
	}

	return p.parse()
}

// LoadEnv loads configuration from environment variables only.
func (p *Parser) LoadEnv() (*models.ExportConfig, error) {
	return p.parse()
}

func (p *Parser) parse() (*models.ExportConfig, error) {
	// The first malformed number or duration wins.
	var convErr error
	getInt := func(key string) int {
		n, err := p.getInt(key)
		if err != nil && convErr == nil {
			convErr = err
		}
		return n
	}
	getDuration := func(key string) time.Duration {
		d, err := p.getDuration(key)
		if err != nil && convErr == nil {
			convErr = err
		}
		return d
	}

	cfg := &models.ExportConfig{
		Connection: models.ConnectionConfig{
			Backend:  models.Backend(strings.ToLower(strings.TrimSpace(p.getString("database.connection")))),
			Host:     p.getString("database.host"),
			Port:     getInt("database.port"),
			Username: p.getString("database.username"),
			Password: p.getString("database.password"),
			Folder:   p.getString("export.folder"),
		},
		Selection: models.ExportSpec{
			Include: p.getList("export.include"),
			Exclude: p.getList("export.exclude"),
		},
		Timeout:  getDuration("export.timeout"),
		Schedule: p.getString("schedule"),
		Log: models.LogConfig{
			File:       p.getString("log.file"),
			MaxSizeMB:  getInt("log.max_size_mb"),
			MaxBackups: getInt("log.max_backups"),
			MaxAgeDays: getInt("log.max_age_days"),
		},
	}

	if path := p.getString("metrics.textfile"); path != "" {
		cfg.Metrics = &models.MetricsConfig{TextfilePath: path}
	}

	if p.v.IsSet("wol") {
		cfg.WOL = &models.WOLConfig{
			MACAddress:    p.v.GetString("wol.mac_address"),
			BroadcastIP:   p.v.GetString("wol.broadcast_ip"),
			PollAddress:   p.getString("wol.poll_address"),
			Timeout:       getDuration("wol.timeout"),
			PollInterval:  getDuration("wol.poll_interval"),
			StabilizeWait: getDuration("wol.stabilize_wait"),
		}
	}

	if p.v.IsSet("shutdown") {
		cfg.Shutdown = &models.ShutdownConfig{
			Host:           p.getString("shutdown.host"),
			Port:           getInt("shutdown.port"),
			Username:       p.getString("shutdown.username"),
			KeyPath:        p.getString("shutdown.key_path"),
			KnownHostsPath: p.getString("shutdown.known_hosts"),
			Delay:          getDuration("shutdown.delay"),
			OS:             p.v.GetString("shutdown.os"),
		}
	}

	if p.v.IsSet("telegram") {
		cfg.Telegram = &models.TelegramConfig{
			BotToken: p.getString("telegram.bot_token"),
			ChatID:   p.getString("telegram.chat_id"),
		}
	}

	if convErr != nil {
		return nil, convErr
	}

	if err := applyDefaults(cfg); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults fills zero values from the struct tags and the backend port.
func applyDefaults(cfg *models.ExportConfig) error {
	if len(cfg.Selection.Include) == 0 {
		cfg.Selection.Include = nil
	}

	targets := []any{cfg, &cfg.Connection, &cfg.Selection, &cfg.Log}
	if cfg.WOL != nil {
		targets = append(targets, cfg.WOL)
	}
	if cfg.Shutdown != nil {
		targets = append(targets, cfg.Shutdown)
	}
	for _, target := range targets {
		if err := defaults.Set(target); err != nil {
			return &dberrors.ConfigError{Message: "applying defaults", Err: err}
		}
	}

	if cfg.Connection.Port == 0 {
		cfg.Connection.Port = cfg.Connection.Backend.DefaultPort()
	}
	if cfg.Shutdown != nil && cfg.Shutdown.Host == "" {
		cfg.Shutdown.Host = cfg.Connection.Host
	}
	return nil
}

// getString reads a string value and expands ${VAR} references.
func (p *Parser) getString(key string) string {
	return p.expandEnv(p.v.GetString(key))
}

// getInt reads an integer. Unset and blank values are zero; anything that
// does not parse is a ConfigError.
func (p *Parser) getInt(key string) (int, error) {
	raw, ok := p.getScalar(key)
	if !ok {
		return 0, nil
	}
	n, err := cast.ToIntE(raw)
	if err != nil {
		return 0, &dberrors.ConfigError{Field: key, Message: fmt.Sprintf("%v is not a valid integer", raw), Err: err}
	}
	return n, nil
}

// getDuration reads a duration such as "90s" or "2h". Unset and blank values
// are zero; anything that does not parse is a ConfigError.
func (p *Parser) getDuration(key string) (time.Duration, error) {
	raw, ok := p.getScalar(key)
	if !ok {
		return 0, nil
	}
	d, err := cast.ToDurationE(raw)
	if err != nil {
		return 0, &dberrors.ConfigError{Field: key, Message: fmt.Sprintf("%v is not a valid duration", raw), Err: err}
	}
	return d, nil
}

// getScalar returns the raw value of key with strings expanded and trimmed.
func (p *Parser) getScalar(key string) (any, bool) {
	raw := p.v.Get(key)
	if s, ok := raw.(string); ok {
		s = strings.TrimSpace(p.expandEnv(s))
		if s == "" {
			return nil, false
		}
		return s, true
	}
	return raw, raw != nil
}

// getList reads a YAML sequence or a comma-separated string.
func (p *Parser) getList(key string) []string {
	var raw []string
	if s, ok := p.v.Get(key).(string); ok {
		raw = strings.Split(s, ",")
	} else {
		raw = p.v.GetStringSlice(key)
	}

	var out []string
	for _, item := range raw {
		item = strings.TrimSpace(p.expandEnv(item))
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

// expandEnv expands environment variables in the format ${VAR} or $VAR.
func (p *Parser) expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Validate performs validation on a loaded or hand-assembled configuration.
func Validate(cfg *models.ExportConfig) error {
	if cfg == nil {
		return dberrors.NewConfigError("", "configuration is nil")
	}

	conn := cfg.Connection
	switch conn.Backend {
	case "":
		return dberrors.NewConfigError("database.connection", "is required")
	case models.BackendMySQL, models.BackendPostgres, models.BackendSQLServer:
	default:
		return dberrors.NewUnsupportedBackendError(string(conn.Backend))
	}

	if conn.Host == "" {
		return dberrors.NewConfigError("database.host", "must not be empty")
	}
	if conn.Port < 1 || conn.Port > 65535 {
		return dberrors.NewConfigError("database.port", fmt.Sprintf("%d is out of range", conn.Port))
	}
	if conn.Folder == "" {
		return dberrors.NewConfigError("export.folder", "must not be empty")
	}
	if cfg.Timeout < 0 {
		return dberrors.NewConfigError("export.timeout", "must not be negative")
	}

	if cfg.Metrics != nil && cfg.Metrics.TextfilePath == "" {
		return dberrors.NewConfigError("metrics.textfile", "must not be empty")
	}

	if cfg.WOL != nil {
		if cfg.WOL.MACAddress == "" {
			return dberrors.NewConfigError("wol.mac_address", "is required when wol is configured")
		}
		if cfg.WOL.PollInterval <= 0 {
			return dberrors.NewConfigError("wol.poll_interval", "must be positive")
		}
	}

	if cfg.Shutdown != nil {
		if cfg.Shutdown.KeyPath == "" {
			return dberrors.NewConfigError("shutdown.key_path", "is required when shutdown is configured")
		}
		if cfg.Shutdown.OS != "linux" && cfg.Shutdown.OS != "windows" {
			return dberrors.NewConfigError("shutdown.os", "must be one of: linux, windows")
		}
	}

	if cfg.Telegram != nil {
		if cfg.Telegram.BotToken == "" {
			return dberrors.NewConfigError("telegram.bot_token", "is required when telegram is configured")
		}
		if cfg.Telegram.ChatID == "" {
			return dberrors.NewConfigError("telegram.chat_id", "is required when telegram is configured")
		}
	}

	return nil
}
