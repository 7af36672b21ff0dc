package mysql

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ekaya-inc/ekaya-datasource/pkg/adapters/datasource"
)

// Session is a live MySQL connection.
type Session struct {
	db *sqlx.DB
}

// NewSession opens a MySQL handle. The connection itself is established lazily
// by the first Probe or ListDatabases call.
func NewSession(cfg *Config) (*Session, error) {
	db, err := sqlx.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open mysql connection: %w", err)
	}
	db.SetMaxOpenConns(1)
	return &Session{db: db}, nil
}

// Probe runs the validation query.
func (s *Session) Probe(ctx context.Context) error {
	var result int
	if err := s.db.GetContext(ctx, &result, validationQuery); err != nil {
		return fmt.Errorf("validation query failed: %w", err)
	}
	return nil
}

// ListDatabases returns the schemas visible to the connected user.
func (s *Session) ListDatabases(ctx context.Context) ([]string, error) {
	var names []string
	if err := s.db.SelectContext(ctx, &names, "SHOW DATABASES"); err != nil {
		return nil, fmt.Errorf("show databases: %w", err)
	}
	return names, nil
}

func (s *Session) Close() error {
	return s.db.Close()
}

var _ datasource.Session = (*Session)(nil)
