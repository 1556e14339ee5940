package backend

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fgeck/dbdump-homelab/internal/models"
	"github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog"
)

// MySQL dumps with mysqldump, which writes the dump to stdout.
type MySQL struct {
	conn    models.ConnectionConfig
	catalog *catalog
}

func newMySQL(logger zerolog.Logger, conn models.ConnectionConfig, opener Opener) *MySQL {
	cfg := mysql.NewConfig()
	cfg.User = conn.Username
	cfg.Passwd = conn.Password
	cfg.Net = "tcp"
	cfg.Addr = address(conn)
	cfg.Timeout = dialTimeout

	return &MySQL{
		conn: conn,
		catalog: &catalog{
			opener:  opener,
			backend: models.BackendMySQL,
			driver:  "mysql",
			dsn:     cfg.FormatDSN(),
			address: cfg.Addr,
			query:   "SHOW DATABASES",
			logger:  logger,
		},
	}
}

// Kind returns models.BackendMySQL.
func (b *MySQL) Kind() models.Backend {
	return models.BackendMySQL
}

// ListDatabases runs SHOW DATABASES.
func (b *MySQL) ListDatabases(ctx context.Context) ([]string, error) {
	return b.catalog.list(ctx)
}

// DumpCommand builds a mysqldump invocation for database.
func (b *MySQL) DumpCommand(database string) models.DumpCommand {
	args := []string{
		fmt.Sprintf("--host=%s", b.conn.Host),
		fmt.Sprintf("--port=%d", b.conn.Port),
	}

	if b.conn.Username != "" {
		args = append(args, fmt.Sprintf("--user=%s", b.conn.Username))
	}
	if b.conn.Password != "" {
		args = append(args, fmt.Sprintf("--password=%s", b.conn.Password))
	}

	args = append(args, database)

	return models.DumpCommand{
		Program:       "mysqldump",
		Args:          args,
		OutputPath:    filepath.Join(b.conn.Folder, database+".sql"),
		CaptureStdout: true,
	}
}
