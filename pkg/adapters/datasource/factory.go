package datasource

import (
	"context"
	"fmt"

	"github.com/ekaya-inc/ekaya-datasource/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-datasource/pkg/crypto"
	"github.com/ekaya-inc/ekaya-datasource/pkg/models"
)

// DatasourceAdapterFactory opens live sessions from the registry.
type DatasourceAdapterFactory interface {
	// NewSession opens a session for stored canonical parameters. The password is
	// decoded here and never leaves the session.
	NewSession(ctx context.Context, dbType models.DbType, param *models.ConnectionParam) (Session, error)

	// ListTypes returns info for all registered engines.
	ListTypes() []DatasourceAdapterInfo
}

type registryFactory struct {
	codec             crypto.SecretCodec
	encryptionEnabled bool
}

// NewDatasourceAdapterFactory returns a factory that uses the global registry.
// When encryptionEnabled is set, stored passwords are decoded with codec before
// a session is opened.
func NewDatasourceAdapterFactory(codec crypto.SecretCodec, encryptionEnabled bool) DatasourceAdapterFactory {
	return &registryFactory{
		codec:             codec,
		encryptionEnabled: encryptionEnabled,
	}
}

func (f *registryFactory) NewSession(ctx context.Context, dbType models.DbType, param *models.ConnectionParam) (Session, error) {
	factory := GetSessionFactory(dbType)
	if factory == nil {
		return nil, apperrors.New(apperrors.CodeUnsupportedEngine, "unsupported datasource type: %s (not compiled in)", dbType)
	}
	if param == nil {
		return nil, fmt.Errorf("connection params are required")
	}

	plain := param.Clone()
	if f.encryptionEnabled && f.codec != nil {
		password, err := f.codec.Decode(plain.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to decode datasource password: %w", err)
		}
		plain.Password = password
	}
	return factory(ctx, plain)
}

func (f *registryFactory) ListTypes() []DatasourceAdapterInfo {
	return RegisteredAdapters()
}

// Ensure registryFactory implements DatasourceAdapterFactory at compile time.
var _ DatasourceAdapterFactory = (*registryFactory)(nil)
