package mysql

import (
	"context"

	"github.com/ekaya-inc/ekaya-datasource/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-datasource/pkg/models"
)

func init() {
	datasource.Register(datasource.DatasourceAdapterRegistration{
		Info: datasource.DatasourceAdapterInfo{
			Type:        models.DbTypeMySQL,
			DisplayName: "MySQL",
			Description: "Connect to MySQL 5.7+, MariaDB",
			Icon:        "mysql",
		},
		Processor: Processor{},
		SessionFactory: func(ctx context.Context, param *models.ConnectionParam) (datasource.Session, error) {
			cfg, err := FromParam(param)
			if err != nil {
				return nil, err
			}
			return NewSession(cfg)
		},
	})
}
