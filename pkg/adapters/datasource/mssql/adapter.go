package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	_ "github.com/microsoft/go-mssqldb"         // SQL Server driver
	_ "github.com/microsoft/go-mssqldb/azuread" // Azure AD support

	"github.com/ekaya-inc/ekaya-datasource/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-datasource/pkg/config"
)

// Adapter is a live SQL Server session supporting SQL and service principal auth.
type Adapter struct {
	config *Config
	db     *sql.DB
}

// NewAdapter opens a SQL Server handle. The connection is established lazily.
func NewAdapter(cfg *Config) (*Adapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	var (
		db  *sql.DB
		err error
	)
	switch cfg.AuthMethod {
	case "sql":
		db, err = createSQLAuthConnection(cfg)
	case "service_principal":
		db, err = createServicePrincipalConnection(cfg)
	default:
		return nil, fmt.Errorf("unsupported auth method: %s", cfg.AuthMethod)
	}
	if err != nil {
		return nil, fmt.Errorf("create connection: %w", err)
	}
	db.SetMaxOpenConns(1)

	return &Adapter{config: cfg, db: db}, nil
}

func connectionQuery(cfg *Config) url.Values {
	query := url.Values{}
	query.Add("database", cfg.Database)

	if cfg.Encrypt {
		query.Add("encrypt", "true")
	} else {
		query.Add("encrypt", "false")
	}
	if cfg.TrustServerCertificate {
		query.Add("TrustServerCertificate", "true")
	}
	if cfg.ConnectionTimeout > 0 {
		query.Add("connection timeout", fmt.Sprintf("%d", cfg.ConnectionTimeout))
	}
	return query
}

// buildSQLAuthConnectionString escapes the credentials so they cannot alter
// the host or query parameters.
func buildSQLAuthConnectionString(cfg *Config) string {
	return fmt.Sprintf("sqlserver://%s:%s@%s:%d?%s",
		url.QueryEscape(cfg.Username),
		url.QueryEscape(cfg.Password),
		config.ResolveHostForDocker(cfg.Host),
		cfg.Port,
		connectionQuery(cfg).Encode(),
	)
}

// createSQLAuthConnection creates a connection using SQL Server authentication.
func createSQLAuthConnection(cfg *Config) (*sql.DB, error) {
	db, err := sql.Open("sqlserver", buildSQLAuthConnectionString(cfg))
	if err != nil {
		return nil, fmt.Errorf("open SQL auth connection: %w", err)
	}
	return db, nil
}

// createServicePrincipalConnection creates a connection using Azure AD Service Principal.
// Uses connection string with fedauth parameter for Azure AD authentication.
func createServicePrincipalConnection(cfg *Config) (*sql.DB, error) {
	query := connectionQuery(cfg)
	query.Add("fedauth", "ActiveDirectoryServicePrincipal")
	query.Add("user id", cfg.Username+"@"+cfg.TenantID)
	query.Add("password", cfg.Password)

	// For Azure AD, use azuresql driver
	connStr := fmt.Sprintf("sqlserver://%s:%d?%s",
		cfg.Host,
		cfg.Port,
		query.Encode(),
	)

	db, err := sql.Open("azuresql", connStr)
	if err != nil {
		return nil, fmt.Errorf("open service principal connection: %w", err)
	}
	return db, nil
}

// Probe verifies the database is reachable with valid credentials.
func (a *Adapter) Probe(ctx context.Context) error {
	if err := a.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}

	var result int
	if err := a.db.QueryRowContext(ctx, validationQuery).Scan(&result); err != nil {
		return fmt.Errorf("validation query failed: %w", err)
	}
	return nil
}

// ListDatabases returns the databases on the server.
func (a *Adapter) ListDatabases(ctx context.Context) ([]string, error) {
	rows, err := a.db.QueryContext(ctx, "SELECT name FROM sys.databases ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list databases: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan database name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate databases: %w", err)
	}
	return names, nil
}

// Close releases the connection.
func (a *Adapter) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// Ensure Adapter implements Session at compile time.
var _ datasource.Session = (*Adapter)(nil)
