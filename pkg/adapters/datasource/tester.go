package datasource

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-datasource/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-datasource/pkg/logging"
	"github.com/ekaya-inc/ekaya-datasource/pkg/models"
)

// DefaultProbeTimeout bounds a probe or enumeration when no timeout is configured.
const DefaultProbeTimeout = 10 * time.Second

// ConnectivityTester performs single, unretried live checks against a datasource.
type ConnectivityTester interface {
	// Test opens a session and runs the engine's probe. Every failure, including
	// timeouts and authentication errors, collapses to false.
	Test(ctx context.Context, dbType models.DbType, param *models.ConnectionParam) bool

	// ListDatabases enumerates databases over a fresh session. Returns an
	// ErrConnectFailed-coded error when the session cannot be opened and an
	// ErrQuery-coded error when the enumeration itself fails.
	ListDatabases(ctx context.Context, dbType models.DbType, param *models.ConnectionParam) ([]string, error)
}

type connectivityTester struct {
	factory DatasourceAdapterFactory
	timeout time.Duration
	logger  *zap.Logger
}

// NewConnectivityTester creates a tester that bounds every call with timeout.
func NewConnectivityTester(factory DatasourceAdapterFactory, timeout time.Duration, logger *zap.Logger) ConnectivityTester {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return &connectivityTester{
		factory: factory,
		timeout: timeout,
		logger:  logger,
	}
}

func (t *connectivityTester) Test(ctx context.Context, dbType models.DbType, param *models.ConnectionParam) bool {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	ok := t.probe(ctx, dbType, param)
	observeConnectionTest(dbType, ok)
	return ok
}

func (t *connectivityTester) probe(ctx context.Context, dbType models.DbType, param *models.ConnectionParam) bool {
	session, err := t.factory.NewSession(ctx, dbType, param)
	if err != nil {
		t.logger.Warn("Connection test failed to open session",
			zap.String("type", string(dbType)),
			zap.String("error", logging.SanitizeError(err)))
		return false
	}
	defer t.closeSession(session, dbType)

	if err := session.Probe(ctx); err != nil {
		t.logger.Warn("Connection test probe failed",
			zap.String("type", string(dbType)),
			zap.String("error", logging.SanitizeError(err)))
		return false
	}
	return true
}

func (t *connectivityTester) ListDatabases(ctx context.Context, dbType models.DbType, param *models.ConnectionParam) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	session, err := t.factory.NewSession(ctx, dbType, param)
	if err != nil {
		observeDatabaseListing(dbType, false)
		t.logger.Error("Failed to open datasource session",
			zap.String("type", string(dbType)),
			zap.String("error", logging.SanitizeError(err)))
		return nil, apperrors.Wrap(apperrors.CodeConnectFailed, err, "datasource connect failed")
	}
	defer t.closeSession(session, dbType)

	databases, err := session.ListDatabases(ctx)
	observeDatabaseListing(dbType, err == nil)
	if err != nil {
		t.logger.Error("Failed to list databases",
			zap.String("type", string(dbType)),
			zap.String("error", logging.SanitizeError(err)))
		return nil, apperrors.Wrap(apperrors.CodeQuery, err, "query datasource error")
	}
	return databases, nil
}

func (t *connectivityTester) closeSession(session Session, dbType models.DbType) {
	if err := session.Close(); err != nil {
		t.logger.Warn("Failed to close datasource session",
			zap.String("type", string(dbType)),
			zap.String("error", logging.SanitizeError(err)))
	}
}

var _ ConnectivityTester = (*connectivityTester)(nil)
