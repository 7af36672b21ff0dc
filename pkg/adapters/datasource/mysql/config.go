package mysql

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/ekaya-inc/ekaya-datasource/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-datasource/pkg/config"
	"github.com/ekaya-inc/ekaya-datasource/pkg/models"
)

// Config contains MySQL-specific connection options. Params holds the
// JDBC-style properties; only useSSL is translated into the Go driver's DSN.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	Params   map[string]string
}

// DefaultPort returns the default MySQL port.
func DefaultPort() int {
	return 3306
}

// DefaultTimeout bounds connection establishment.
func DefaultTimeout() time.Duration {
	return 10 * time.Second
}

// FromParam creates a Config from canonical connection parameters.
// Only the first host of a host list is used.
func FromParam(param *models.ConnectionParam) (*Config, error) {
	host, port, err := datasource.SplitAddress(param.Address, addressPrefix)
	if err != nil {
		return nil, err
	}
	if port == 0 {
		port = DefaultPort()
	}

	cfg := &Config{
		Host:     strings.Split(host, ",")[0],
		Port:     port,
		User:     param.User,
		Password: param.Password,
		Database: param.Database,
		Params:   map[string]string{},
	}
	if param.Other != nil {
		for pair := param.Other.Oldest(); pair != nil; pair = pair.Next() {
			if isForbidden(pair.Key) {
				continue
			}
			cfg.Params[pair.Key] = pair.Value
		}
	}
	return cfg, nil
}

// DSN renders the go-sql-driver data source name.
func (c *Config) DSN() string {
	mc := mysql.NewConfig()
	mc.User = c.User
	mc.Passwd = c.Password
	mc.Net = "tcp"
	mc.Addr = fmt.Sprintf("%s:%d", config.ResolveHostForDocker(c.Host), c.Port)
	mc.DBName = c.Database
	mc.Timeout = DefaultTimeout()
	mc.AllowAllFiles = false
	if strings.EqualFold(c.Params["useSSL"], "true") {
		mc.TLSConfig = "true"
	}
	return mc.FormatDSN()
}
