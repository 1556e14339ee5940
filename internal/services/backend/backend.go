// Package backend provides per-server-kind database discovery and dump
// command construction.
package backend

import (
	"context"
	"database/sql"
	"net"
	"strconv"

	dberrors "github.com/fgeck/dbdump-homelab/internal/errors"
	"github.com/fgeck/dbdump-homelab/internal/models"
	"github.com/rs/zerolog"
)

// Backend lists the databases of one server and builds dump commands for them.
type Backend interface {
	Kind() models.Backend
	ListDatabases(ctx context.Context) ([]string, error)
	DumpCommand(database string) models.DumpCommand
}

// Opener opens a database handle. It allows injecting sqlmock in tests.
type Opener func(driverName, dsn string) (*sql.DB, error)

// New returns the backend matching conn.Backend.
func New(logger zerolog.Logger, conn models.ConnectionConfig) (Backend, error) {
	return NewWithOpener(logger, conn, sql.Open)
}

// NewWithOpener creates a backend with a custom opener (for testing).
func NewWithOpener(logger zerolog.Logger, conn models.ConnectionConfig, opener Opener) (Backend, error) {
	logger = logger.With().Str("backend", string(conn.Backend)).Logger()

	switch conn.Backend {
	case models.BackendMySQL:
		return newMySQL(logger, conn, opener), nil
	case models.BackendPostgres:
		return newPostgres(logger, conn, opener), nil
	case models.BackendSQLServer:
		return newSQLServer(logger, conn, opener), nil
	default:
		return nil, dberrors.NewUnsupportedBackendError(string(conn.Backend))
	}
}

func address(conn models.ConnectionConfig) string {
	return net.JoinHostPort(conn.Host, strconv.Itoa(conn.Port))
}
