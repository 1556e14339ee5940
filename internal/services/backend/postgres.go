package backend

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"

	"github.com/fgeck/dbdump-homelab/internal/models"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"github.com/rs/zerolog"
)

// maintenanceDB is the database the catalog connects to.
const maintenanceDB = "postgres"

// Postgres dumps with pg_dump, which writes the dump file itself via --file.
type Postgres struct {
	conn    models.ConnectionConfig
	catalog *catalog
}

func newPostgres(logger zerolog.Logger, conn models.ConnectionConfig, opener Opener) *Postgres {
	dsn := url.URL{
		Scheme:   "postgres",
		Host:     address(conn),
		Path:     "/" + maintenanceDB,
		RawQuery: url.Values{"connect_timeout": {fmt.Sprintf("%d", int(dialTimeout.Seconds()))}}.Encode(),
	}
	if conn.Username != "" {
		if conn.Password != "" {
			dsn.User = url.UserPassword(conn.Username, conn.Password)
		} else {
			dsn.User = url.User(conn.Username)
		}
	}

	return &Postgres{
		conn: conn,
		catalog: &catalog{
			opener:  opener,
			backend: models.BackendPostgres,
			driver:  "pgx",
			dsn:     dsn.String(),
			address: dsn.Host,
			query:   "SELECT datname FROM pg_database",
			logger:  logger,
		},
	}
}

// Kind returns models.BackendPostgres.
func (b *Postgres) Kind() models.Backend {
	return models.BackendPostgres
}

// ListDatabases queries pg_database.
func (b *Postgres) ListDatabases(ctx context.Context) ([]string, error) {
	return b.catalog.list(ctx)
}

// DumpCommand builds a pg_dump invocation for database. The password is
// passed through PGPASSWORD so it never shows up in the process list.
func (b *Postgres) DumpCommand(database string) models.DumpCommand {
	outputPath := filepath.Join(b.conn.Folder, database+".sql")

	args := []string{
		fmt.Sprintf("--host=%s", b.conn.Host),
		fmt.Sprintf("--port=%d", b.conn.Port),
	}

	if b.conn.Username != "" {
		args = append(args, fmt.Sprintf("--username=%s", b.conn.Username))
	}

	args = append(args,
		fmt.Sprintf("--dbname=%s", database),
		fmt.Sprintf("--file=%s", outputPath),
		"--no-password",
	)

	var env []string
	if b.conn.Password != "" {
		env = append(env, fmt.Sprintf("PGPASSWORD=%s", b.conn.Password))
	}

	return models.DumpCommand{
		Program:    "pg_dump",
		Args:       args,
		Env:        env,
		OutputPath: outputPath,
	}
}
