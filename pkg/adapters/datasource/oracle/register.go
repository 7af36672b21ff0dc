package oracle

import (
	"context"

	"github.com/ekaya-inc/ekaya-datasource/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-datasource/pkg/models"
)

// newSession probes the listener over TCP; no Oracle driver is linked in.
func newSession(ctx context.Context, param *models.ConnectionParam) (datasource.Session, error) {
	f, _ := formatFor(connectTypeOf(param))
	return datasource.NewTCPSession(models.DbTypeOracle, param.Address, f.Scheme)
}

func init() {
	datasource.Register(datasource.DatasourceAdapterRegistration{
		Info: datasource.DatasourceAdapterInfo{
			Type:        models.DbTypeOracle,
			DisplayName: "Oracle Database",
			Description: "Connect to Oracle 11g+ by service name or SID",
			Icon:        "oracle",
		},
		Processor:      Processor{},
		SessionFactory: newSession,
	})
}
