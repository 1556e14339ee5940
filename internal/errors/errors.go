// Package errors defines the error kinds of an export run.
//
// Each kind has a sentinel for errors.Is and a struct type carrying details
// for errors.As. Configuration, backend, connection and persistence errors
// abort the run; ExportProcessError is recovered per database.
package errors

import (
	"errors"
	"fmt"
)

var (
	ErrConfiguration      = errors.New("configuration error")
	ErrUnsupportedBackend = errors.New("unsupported backend")
	ErrConnection         = errors.New("database connection failed")
	ErrExportProcess      = errors.New("dump process failed")
	ErrPersistence        = errors.New("persisting dump failed")
)

// ConfigError reports an unreadable or invalid configuration value.
type ConfigError struct {
	Field   string
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("configuration error: %s", e.Message)
	}
	return fmt.Sprintf("configuration error for '%s': %s", e.Field, e.Message)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func (e *ConfigError) Is(target error) bool {
	return target == ErrConfiguration
}

func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

// UnsupportedBackendError is returned when the backend kind matches none of
// mysql, postgres or sqlserver.
type UnsupportedBackendError struct {
	Kind string
}

func (e *UnsupportedBackendError) Error() string {
	return fmt.Sprintf("unsupported backend %q (want mysql, postgres or sqlserver)", e.Kind)
}

func (e *UnsupportedBackendError) Is(target error) bool {
	return target == ErrUnsupportedBackend
}

func NewUnsupportedBackendError(kind string) *UnsupportedBackendError {
	return &UnsupportedBackendError{Kind: kind}
}

// ConnectionError covers auth failures, unreachable hosts and protocol errors
// while listing databases.
type ConnectionError struct {
	Backend string
	Address string
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s connection to %s failed: %v", e.Backend, e.Address, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

func (e *ConnectionError) Is(target error) bool {
	return target == ErrConnection
}

func NewConnectionError(backend, address string, err error) *ConnectionError {
	return &ConnectionError{Backend: backend, Address: address, Err: err}
}

// ExportProcessError describes one dump process that exited non-zero or hit
// its deadline.
type ExportProcessError struct {
	Database string
	ExitCode int
	Stdout   []byte
	Stderr   []byte
	TimedOut bool
}

func (e *ExportProcessError) Error() string {
	if e.TimedOut {
		return fmt.Sprintf("dump of database '%s' timed out", e.Database)
	}
	return fmt.Sprintf("dump of database '%s' exited with status %d", e.Database, e.ExitCode)
}

func (e *ExportProcessError) Is(target error) bool {
	return target == ErrExportProcess
}

// PersistenceError reports a failed write or compression of a finished dump.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s '%s': %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

func NewPersistenceError(op, path string, err error) *PersistenceError {
	return &PersistenceError{Op: op, Path: path, Err: err}
}
