package models

// Backend is a database server kind.
type Backend string

// Supported backends.
const (
	BackendMySQL     Backend = "mysql"
	BackendPostgres  Backend = "postgres"
	BackendSQLServer Backend = "sqlserver"
)

// DefaultPort returns the conventional port for the backend, or 0 if unknown.
func (b Backend) DefaultPort() int {
	switch b {
	case BackendMySQL:
		return 3306
	case BackendPostgres:
		return 5432
	case BackendSQLServer:
		return 1433
	default:
		return 0
	}
}

// ConnectionConfig describes the server to back up and where dumps land.
type ConnectionConfig struct {
	Backend  Backend
	Host     string `default:"localhost"`
	Port     int
	Username string
	Password string
	Folder   string `default:"./dumps"`
}

// Wildcard in ExportSpec.Include selects every discovered database.
const Wildcard = "*"

// ExportSpec declares which databases to dump.
type ExportSpec struct {
	Include []string `default:"[\"*\"]"`
	Exclude []string
}
