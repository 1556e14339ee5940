package config

import (
	"fmt"

	"github.com/fgeck/dbdump-homelab/internal/models"
	"gopkg.in/yaml.v3"
)

const redacted = "********"

type summary struct {
	Database summaryDatabase  `yaml:"database"`
	Export   summaryExport    `yaml:"export"`
	Schedule string           `yaml:"schedule,omitempty"`
	Metrics  string           `yaml:"metrics_textfile,omitempty"`
	LogFile  string           `yaml:"log_file,omitempty"`
	WOL      *summaryWOL      `yaml:"wol,omitempty"`
	Shutdown *summaryShutdown `yaml:"shutdown,omitempty"`
	Telegram *summaryTelegram `yaml:"telegram,omitempty"`
}

type summaryDatabase struct {
	Connection string `yaml:"connection"`
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Username   string `yaml:"username,omitempty"`
	Password   string `yaml:"password,omitempty"`
}

type summaryExport struct {
	Folder  string   `yaml:"folder"`
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude,omitempty"`
	Timeout string   `yaml:"timeout"`
}

type summaryWOL struct {
	MACAddress    string `yaml:"mac_address"`
	BroadcastIP   string `yaml:"broadcast_ip"`
	PollAddress   string `yaml:"poll_address,omitempty"`
	Timeout       string `yaml:"timeout"`
	PollInterval  string `yaml:"poll_interval"`
	StabilizeWait string `yaml:"stabilize_wait"`
}

type summaryShutdown struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Username   string `yaml:"username"`
	KeyPath    string `yaml:"key_path"`
	KnownHosts string `yaml:"known_hosts,omitempty"`
	Delay      string `yaml:"delay"`
	OS         string `yaml:"os"`
}

type summaryTelegram struct {
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
}

// Summary renders cfg as YAML with secrets redacted.
func Summary(cfg *models.ExportConfig) (string, error) {
	s := summary{
		Database: summaryDatabase{
			Connection: string(cfg.Connection.Backend),
			Host:       cfg.Connection.Host,
			Port:       cfg.Connection.Port,
			Username:   cfg.Connection.Username,
		},
		Export: summaryExport{
			Folder:  cfg.Connection.Folder,
			Include: cfg.Selection.Include,
			Exclude: cfg.Selection.Exclude,
			Timeout: cfg.Timeout.String(),
		},
		Schedule: cfg.Schedule,
		LogFile:  cfg.Log.File,
	}
	if cfg.Connection.Password != "" {
		s.Database.Password = redacted
	}
	if cfg.WOL != nil {
		s.WOL = &summaryWOL{
			MACAddress:    cfg.WOL.MACAddress,
			BroadcastIP:   cfg.WOL.BroadcastIP,
			PollAddress:   cfg.WOL.PollAddress,
			Timeout:       cfg.WOL.Timeout.String(),
			PollInterval:  cfg.WOL.PollInterval.String(),
			StabilizeWait: cfg.WOL.StabilizeWait.String(),
		}
	}
	if cfg.Shutdown != nil {
		s.Shutdown = &summaryShutdown{
			Host:       cfg.Shutdown.Host,
			Port:       cfg.Shutdown.Port,
			Username:   cfg.Shutdown.Username,
			KeyPath:    cfg.Shutdown.KeyPath,
			KnownHosts: cfg.Shutdown.KnownHostsPath,
			Delay:      cfg.Shutdown.Delay.String(),
			OS:         cfg.Shutdown.OS,
		}
	}
	if cfg.Metrics != nil {
		s.Metrics = cfg.Metrics.TextfilePath
	}
	if cfg.Telegram != nil {
		s.Telegram = &summaryTelegram{BotToken: redacted, ChatID: cfg.Telegram.ChatID}
	}

	out, err := yaml.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("marshaling config summary: %w", err)
	}
	return string(out), nil
}
