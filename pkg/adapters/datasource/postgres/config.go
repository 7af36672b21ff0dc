package postgres

import (
	"fmt"
	"strings"

	"github.com/ekaya-inc/ekaya-datasource/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-datasource/pkg/models"
)

// Config contains PostgreSQL-specific connection options.
type Config struct {
	Hosts    []string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string // "disable", "prefer", "require", "verify-ca", "verify-full"
}

// DefaultPort returns the default PostgreSQL port.
func DefaultPort() int {
	return 5432
}

// DefaultSSLMode returns the default SSL mode.
func DefaultSSLMode() string {
	return "prefer"
}

// FromParam creates a Config from canonical connection parameters. The JDBC
// properties ssl=true and sslmode=<mode> select the SSL mode.
func FromParam(param *models.ConnectionParam) (*Config, error) {
	host, port, err := datasource.SplitAddress(param.Address, addressPrefix)
	if err != nil {
		return nil, err
	}
	if param.User == "" {
		return nil, fmt.Errorf("user is required")
	}

	cfg := &Config{
		Hosts:    strings.Split(host, ","),
		Port:     port,
		User:     param.User,
		Password: param.Password,
		Database: param.Database,
		SSLMode:  DefaultSSLMode(),
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort()
	}
	if param.Other != nil {
		if v, ok := param.Other.Get("ssl"); ok && strings.EqualFold(v, "true") {
			cfg.SSLMode = "require"
		}
		if v, ok := param.Other.Get("sslmode"); ok && v != "" {
			cfg.SSLMode = v
		}
	}
	return cfg, nil
}
