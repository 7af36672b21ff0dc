package mssql

import (
	"fmt"
	"strings"

	"github.com/ekaya-inc/ekaya-datasource/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-datasource/pkg/models"
)

// Config contains SQL Server-specific connection options.
type Config struct {
	Host     string
	Port     int
	Database string

	// AuthMethod determines which authentication to use
	// Options: "sql", "service_principal"
	AuthMethod string

	// Username and Password are the SQL login, or the client id and secret
	// of the service principal.
	Username string
	Password string
	TenantID string

	// Connection options
	Encrypt                bool
	TrustServerCertificate bool
	ConnectionTimeout      int
}

// DefaultPort returns the default SQL Server port.
func DefaultPort() int {
	return 1433
}

// DefaultConnectionTimeout returns the default connection timeout in seconds.
func DefaultConnectionTimeout() int {
	return 30
}

// FromParam creates a Config from canonical connection parameters. The JDBC
// properties encrypt, trustServerCertificate, loginTimeout, authentication and
// tenantId are honored.
func FromParam(param *models.ConnectionParam) (*Config, error) {
	host, port, err := datasource.SplitAddress(param.Address, addressPrefix)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Host:              strings.Split(host, ",")[0],
		Port:              port,
		Database:          param.Database,
		AuthMethod:        "sql",
		Username:          param.User,
		Password:          param.Password,
		ConnectionTimeout: DefaultConnectionTimeout(),
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort()
	}

	if param.Other != nil {
		if v, ok := param.Other.Get("encrypt"); ok {
			cfg.Encrypt = v == "true" || v == "strict"
		}
		if v, ok := param.Other.Get("trustServerCertificate"); ok {
			cfg.TrustServerCertificate = strings.EqualFold(v, "true")
		}
		if v, ok := param.Other.Get("loginTimeout"); ok {
			var timeout int
			if _, err := fmt.Sscanf(v, "%d", &timeout); err == nil && timeout > 0 {
				cfg.ConnectionTimeout = timeout
			}
		}
		if v, ok := param.Other.Get("authentication"); ok && strings.EqualFold(v, "ActiveDirectoryServicePrincipal") {
			cfg.AuthMethod = "service_principal"
		}
		if v, ok := param.Other.Get("tenantId"); ok {
			cfg.TenantID = v
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the fields required by the auth method are set.
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host is required")
	}
	switch c.AuthMethod {
	case "sql":
		if c.Username == "" {
			return fmt.Errorf("username is required for SQL authentication")
		}
	case "service_principal":
		if c.TenantID == "" || c.Username == "" || c.Password == "" {
			return fmt.Errorf("tenantId, client id and client secret are required for service principal authentication")
		}
	default:
		return fmt.Errorf("unsupported auth method: %s", c.AuthMethod)
	}
	return nil
}
