package postgres

import (
	"context"

	"github.com/ekaya-inc/ekaya-datasource/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-datasource/pkg/models"
)

func init() {
	datasource.Register(datasource.DatasourceAdapterRegistration{
		Info: datasource.DatasourceAdapterInfo{
			Type:        models.DbTypePostgreSQL,
			DisplayName: "PostgreSQL",
			Description: "Connect to PostgreSQL 12+, Aurora PostgreSQL, Supabase",
			Icon:        "postgres",
		},
		Processor: Processor{},
		SessionFactory: func(ctx context.Context, param *models.ConnectionParam) (datasource.Session, error) {
			cfg, err := FromParam(param)
			if err != nil {
				return nil, err
			}
			return NewAdapter(ctx, cfg)
		},
	})
}
