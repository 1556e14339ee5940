package models

import "time"

// ShutdownConfig describes how to power off the database host over SSH once
// a run is over.
type ShutdownConfig struct {
	Host           string // defaults to the database host
	Port           int    `default:"22"`
	Username       string `default:"root"`
	KeyPath        string
	KnownHostsPath string        // host key verification is skipped when empty
	Delay          time.Duration `default:"1m"`
	OS             string        `default:"linux"` // linux or windows
}

// ShutdownResult holds the result of a remote shutdown.
type ShutdownResult struct {
	CommandRun bool
	Command    string
	Output     string
	Error      error
}
