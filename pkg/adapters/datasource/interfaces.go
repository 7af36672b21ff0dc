package datasource

import (
	"context"

	"github.com/ekaya-inc/ekaya-datasource/pkg/models"
)

// Processor converts between an engine's parameter DTO and the canonical
// ConnectionParam. Implementations are stateless; every method is a pure function
// of its arguments.
type Processor interface {
	// CheckParams validates the caller-supplied DTO (host, port, database,
	// engine-specific restrictions). Returns an apperrors validation error.
	CheckParams(dto models.DatasourceParamDTO) error

	// BuildConnectionParams produces the canonical parameters. Building the same
	// DTO with the same options always yields the same output.
	BuildConnectionParams(dto models.DatasourceParamDTO, opts BuildOptions) (*models.ConnectionParam, error)

	// CreateParamDTO reconstructs the engine DTO from stored canonical parameters.
	CreateParamDTO(param *models.ConnectionParam) (models.DatasourceParamDTO, error)
}

// Session is a live connection to a datasource.
// Each implementation owns its connection and must be closed when done.
type Session interface {
	// Probe runs the engine's validation query, or a protocol-level reachability
	// check for engines without a query driver.
	Probe(ctx context.Context) error

	// ListDatabases enumerates the databases visible to the connected user.
	ListDatabases(ctx context.Context) ([]string, error)

	// Close releases the connection.
	Close() error
}

// SessionFactory opens a Session. The password in param is plaintext.
type SessionFactory func(ctx context.Context, param *models.ConnectionParam) (Session, error)
