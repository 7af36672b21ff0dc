package clickhouse

import (
	"context"

	"github.com/ekaya-inc/ekaya-datasource/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-datasource/pkg/models"
)

func init() {
	datasource.Register(datasource.DatasourceAdapterRegistration{
		Info: datasource.DatasourceAdapterInfo{
			Type:        models.DbTypeClickHouse,
			DisplayName: "ClickHouse",
			Description: "Connect to ClickHouse 22+ over HTTP",
			Icon:        "clickhouse",
		},
		Processor: Processor{},
		SessionFactory: func(ctx context.Context, param *models.ConnectionParam) (datasource.Session, error) {
			opts, err := OptionsFromParam(param)
			if err != nil {
				return nil, err
			}
			return NewSession(opts)
		},
	})
}
