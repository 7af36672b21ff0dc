package clickhouse

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/ekaya-inc/ekaya-datasource/pkg/adapters/datasource"
)

// Session is a live ClickHouse connection.
type Session struct {
	conn driver.Conn
}

// NewSession opens a ClickHouse connection.
func NewSession(opts *clickhouse.Options) (*Session, error) {
	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open clickhouse connection: %w", err)
	}
	return &Session{conn: conn}, nil
}

// Probe pings the server and runs the validation query.
func (s *Session) Probe(ctx context.Context) error {
	if err := s.conn.Ping(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	var result uint8
	if err := s.conn.QueryRow(ctx, validationQuery).Scan(&result); err != nil {
		return fmt.Errorf("validation query failed: %w", err)
	}
	return nil
}

// ListDatabases returns the databases on the server.
func (s *Session) ListDatabases(ctx context.Context) ([]string, error) {
	rows, err := s.conn.Query(ctx, "SELECT name FROM system.databases ORDER BY name")
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

func (s *Session) Close() error {
	return s.conn.Close()
}

var _ datasource.Session = (*Session)(nil)
