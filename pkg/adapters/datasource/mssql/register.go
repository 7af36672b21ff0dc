package mssql

import (
	"context"

	"github.com/ekaya-inc/ekaya-datasource/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-datasource/pkg/models"
)

func init() {
	datasource.Register(datasource.DatasourceAdapterRegistration{
		Info: datasource.DatasourceAdapterInfo{
			Type:        models.DbTypeSQLServer,
			DisplayName: "Microsoft SQL Server",
			Description: "Connect to SQL Server 2019+, Azure SQL Database",
			Icon:        "mssql",
		},
		Processor: Processor{},
		SessionFactory: func(ctx context.Context, param *models.ConnectionParam) (datasource.Session, error) {
			cfg, err := FromParam(param)
			if err != nil {
				return nil, err
			}
			return NewAdapter(cfg)
		},
	})
}
