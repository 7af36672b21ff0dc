package hive

import (
	"context"

	"github.com/ekaya-inc/ekaya-datasource/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-datasource/pkg/models"
)

// sessionFactory probes the Thrift listeners over TCP; no hive2 driver is linked in.
func sessionFactory(dbType models.DbType) datasource.SessionFactory {
	return func(ctx context.Context, param *models.ConnectionParam) (datasource.Session, error) {
		return datasource.NewTCPSession(dbType, param.Address, addressPrefix)
	}
}

func init() {
	datasource.Register(datasource.DatasourceAdapterRegistration{
		Info: datasource.DatasourceAdapterInfo{
			Type:        models.DbTypeHive,
			DisplayName: "Apache Hive",
			Description: "Connect to HiveServer2, optionally with Kerberos",
			Icon:        "hive",
		},
		Processor:      Processor{dbType: models.DbTypeHive},
		SessionFactory: sessionFactory(models.DbTypeHive),
	})
	datasource.Register(datasource.DatasourceAdapterRegistration{
		Info: datasource.DatasourceAdapterInfo{
			Type:        models.DbTypeSpark,
			DisplayName: "Spark SQL",
			Description: "Connect to the Spark Thrift Server",
			Icon:        "spark",
		},
		Processor:      Processor{dbType: models.DbTypeSpark},
		SessionFactory: sessionFactory(models.DbTypeSpark),
	})
}
