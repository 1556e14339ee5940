package backend

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/fgeck/dbdump-homelab/internal/models"
	_ "github.com/microsoft/go-mssqldb" // registers the "sqlserver" driver
	"github.com/rs/zerolog"
)

// SQLServer dumps with sqlcmd running BACKUP DATABASE, so the server writes a
// .bak file into the export folder.
type SQLServer struct {
	conn    models.ConnectionConfig
	catalog *catalog
}

func newSQLServer(logger zerolog.Logger, conn models.ConnectionConfig, opener Opener) *SQLServer {
	dsn := url.URL{
		Scheme:   "sqlserver",
		Host:     address(conn),
		RawQuery: url.Values{"dial timeout": {fmt.Sprintf("%d", int(dialTimeout.Seconds()))}}.Encode(),
	}
	if conn.Username != "" {
		dsn.User = url.UserPassword(conn.Username, conn.Password)
	}

	return &SQLServer{
		conn: conn,
		catalog: &catalog{
			opener:  opener,
			backend: models.BackendSQLServer,
			driver:  "sqlserver",
			dsn:     dsn.String(),
			address: dsn.Host,
			query:   "SELECT name FROM sys.databases",
			logger:  logger,
		},
	}
}

// Kind returns models.BackendSQLServer.
func (b *SQLServer) Kind() models.Backend {
	return models.BackendSQLServer
}

// ListDatabases queries sys.databases.
func (b *SQLServer) ListDatabases(ctx context.Context) ([]string, error) {
	return b.catalog.list(ctx)
}

// DumpCommand builds a sqlcmd BACKUP DATABASE invocation for database.
//
// The server writes the .bak, so conn.Folder must name the same directory on
// the SQL Server host and locally, or compression will not find the file.
func (b *SQLServer) DumpCommand(database string) models.DumpCommand {
	disk := b.conn.Folder + `\` + database + ".bak"
	statement := fmt.Sprintf("BACKUP DATABASE %s TO DISK=%s WITH FORMAT",
		quoteIdentifier(database), quoteLiteral(disk))

	args := []string{
		"-S", fmt.Sprintf("tcp:%s,%d", b.conn.Host, b.conn.Port),
	}

	if b.conn.Username != "" {
		args = append(args, "-U", b.conn.Username)
	}
	if b.conn.Password != "" {
		args = append(args, "-P", b.conn.Password)
	}

	// -b: exit non-zero when the statement fails
	args = append(args, "-b", "-Q", statement)

	return models.DumpCommand{
		Program:    "sqlcmd",
		Args:       args,
		OutputPath: filepath.Join(b.conn.Folder, database+".bak"),
	}
}

func quoteIdentifier(s string) string {
	return "[" + strings.ReplaceAll(s, "]", "]]") + "]"
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
