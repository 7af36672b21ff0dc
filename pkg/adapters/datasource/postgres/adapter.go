package postgres

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ekaya-inc/ekaya-datasource/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-datasource/pkg/config"
)

// Adapter is a live PostgreSQL session.
type Adapter struct {
	config *Config
	pool   *pgxpool.Pool
}

// buildConnectionString builds a PostgreSQL URL with proper escaping.
// IMPORTANT: All user-provided fields must be URL-escaped to handle special characters
// in passwords (e.g., @, /, #, ?) that would otherwise break URL parsing.
// When running in Docker, localhost is automatically resolved to host.docker.internal
// to allow connections to databases running on the host machine.
func buildConnectionString(cfg *Config) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = DefaultSSLMode()
	}

	port := strconv.Itoa(cfg.Port)
	hosts := make([]string, 0, len(cfg.Hosts))
	for _, h := range cfg.Hosts {
		hosts = append(hosts, net.JoinHostPort(config.ResolveHostForDocker(h), port))
	}

	return fmt.Sprintf(
		"postgresql://%s:%s@%s/%s?sslmode=%s",
		url.QueryEscape(cfg.User),
		url.QueryEscape(cfg.Password),
		strings.Join(hosts, ","),
		url.QueryEscape(cfg.Database),
		sslMode,
	)
}

// NewAdapter opens a small pool owned by the adapter. The pool connects lazily.
func NewAdapter(ctx context.Context, cfg *Config) (*Adapter, error) {
	poolCfg, err := pgxpool.ParseConfig(buildConnectionString(cfg))
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	poolCfg.MaxConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	return &Adapter{
		config: cfg,
		pool:   pool,
	}, nil
}

// Probe verifies the database is reachable with valid credentials.
// It checks:
// 1. Server connectivity (ping)
// 2. Database access (validation query)
// 3. Correct database name (to prevent connecting to wrong/default database)
func (a *Adapter) Probe(ctx context.Context) error {
	if err := a.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}

	var version string
	if err := a.pool.QueryRow(ctx, validationQuery).Scan(&version); err != nil {
		return fmt.Errorf("validation query failed: %w", err)
	}

	if a.config.Database == "" {
		return nil
	}

	var currentDB string
	if err := a.pool.QueryRow(ctx, "SELECT current_database()").Scan(&currentDB); err != nil {
		return fmt.Errorf("failed to get current database name: %w", err)
	}

	// PostgreSQL database names are case-sensitive, but compare case-insensitively
	// to match the other engines and tolerate common configuration issues.
	if !strings.EqualFold(currentDB, a.config.Database) {
		return fmt.Errorf("connected to wrong database: expected %q but connected to %q", a.config.Database, currentDB)
	}

	return nil
}

// ListDatabases returns every non-template database on the server.
func (a *Adapter) ListDatabases(ctx context.Context) ([]string, error) {
	rows, err := a.pool.Query(ctx, "SELECT datname FROM pg_database WHERE NOT datistemplate ORDER BY datname")
	if err != nil {
		return nil, fmt.Errorf("list databases: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan databases: %w", err)
	}
	return names, nil
}

// Close releases the pool.
func (a *Adapter) Close() error {
	if a.pool != nil {
		a.pool.Close()
	}
	return nil
}

// Ensure Adapter implements Session at compile time.
var _ datasource.Session = (*Adapter)(nil)
