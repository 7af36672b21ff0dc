package clickhouse

import (
	"crypto/tls"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	"github.com/ekaya-inc/ekaya-datasource/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-datasource/pkg/config"
	"github.com/ekaya-inc/ekaya-datasource/pkg/models"
)

// DefaultDialTimeout bounds connection establishment.
const DefaultDialTimeout = 10 * time.Second

// OptionsFromParam converts canonical parameters to clickhouse-go options. JDBC
// URLs address the HTTP interface, so the HTTP protocol is used. The ssl
// property enables TLS.
func OptionsFromParam(param *models.ConnectionParam) (*clickhouse.Options, error) {
	host, port, err := datasource.SplitAddress(param.Address, addressPrefix)
	if err != nil {
		return nil, err
	}
	var addrs []string
	for _, h := range strings.Split(host, ",") {
		addrs = append(addrs, net.JoinHostPort(config.ResolveHostForDocker(h), strconv.Itoa(port)))
	}

	opts := &clickhouse.Options{
		Addr:     addrs,
		Protocol: clickhouse.HTTP,
		Auth: clickhouse.Auth{
			Database: param.Database,
			Username: param.User,
			Password: param.Password,
		},
		DialTimeout: DefaultDialTimeout,
	}
	if param.Other != nil {
		if v, ok := param.Other.Get("ssl"); ok && strings.EqualFold(v, "true") {
			opts.TLS = &tls.Config{}
		}
	}
	return opts, nil
}
