package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/ekaya-inc/ekaya-datasource/pkg/crypto"
	"github.com/ekaya-inc/ekaya-datasource/pkg/permission"
)

// Config holds all configuration for ekaya-datasource.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, keys, tokens) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"3443"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// TLS configuration (optional - if both provided, server uses HTTPS)
	TLSCertPath string `yaml:"tls_cert_path" env:"TLS_CERT_PATH" env-default:""`
	TLSKeyPath  string `yaml:"tls_key_path" env:"TLS_KEY_PATH" env-default:""`

	// Database configuration (PostgreSQL holding datasource records)
	Database DatabaseConfig `yaml:"database"`

	// Datasource directory behavior
	Datasource DatasourceConfig `yaml:"datasource"`

	// Vault transit settings, used when datasource.encryption_codec is "vault"
	Vault VaultConfig `yaml:"vault"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"ekaya"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"ekaya_datasource"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// DatasourceConfig holds the process-wide datasource flags and limits.
type DatasourceConfig struct {
	// EncryptionEnabled encodes stored datasource passwords with EncryptionCodec.
	EncryptionEnabled bool   `yaml:"encryption_enabled" env:"DATASOURCE_ENCRYPTION_ENABLED" env-default:"false"`
	EncryptionCodec   string `yaml:"encryption_codec" env:"DATASOURCE_ENCRYPTION_CODEC" env-default:"salted"`
	EncryptionSalt    string `yaml:"encryption_salt" env:"DATASOURCE_ENCRYPTION_SALT" env-default:"!@#$%^&*"`

	// EncryptionKey is the key material for the aes codec.
	// A 32-byte base64 key is used directly; anything else is treated as a passphrase.
	EncryptionKey string `yaml:"-" env:"DATASOURCE_ENCRYPTION_KEY"` // Secret - not in YAML

	// KerberosEnabled adds principal and keytab fields for engines that support them.
	KerberosEnabled bool `yaml:"kerberos_enabled" env:"DATASOURCE_KERBEROS_ENABLED" env-default:"false"`

	// Field limits in characters (Unicode code points).
	MaxNameLength int `yaml:"max_name_length" env:"DATASOURCE_MAX_NAME_LENGTH" env-default:"64"`
	MaxNoteLength int `yaml:"max_note_length" env:"DATASOURCE_MAX_NOTE_LENGTH" env-default:"255"`

	// ProbeTimeoutSeconds bounds a single connectivity probe or database listing.
	ProbeTimeoutSeconds int `yaml:"probe_timeout_seconds" env:"DATASOURCE_PROBE_TIMEOUT_SECONDS" env-default:"10"`

	// GeneralUserOperationsStr is a comma-separated allowlist of operation codes
	// general users may attempt. Empty means every datasource operation.
	GeneralUserOperationsStr string `yaml:"general_user_operations" env:"DATASOURCE_GENERAL_USER_OPERATIONS" env-default:""`

	// GeneralUserOperations is the parsed list (not from config file).
	GeneralUserOperations []string `yaml:"-"`
}

// VaultConfig holds HashiCorp Vault transit settings.
type VaultConfig struct {
	Address string `yaml:"address" env:"VAULT_ADDR" env-default:""`
	Token   string `yaml:"-" env:"VAULT_TOKEN"` // Secret - not in YAML
	Mount   string `yaml:"mount" env:"VAULT_TRANSIT_MOUNT" env-default:"transit"`
	Key     string `yaml:"key" env:"VAULT_TRANSIT_KEY" env-default:""`
	Context string `yaml:"context" env:"VAULT_TRANSIT_CONTEXT" env-default:""`
}

// Load reads configuration from config.yaml with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
func Load(version string) (*Config, error) {
	return LoadFile("config.yaml", version)
}

// LoadFile is Load with an explicit config path.
func LoadFile(path, version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := cfg.parseComplexFields(); err != nil {
		return nil, fmt.Errorf("failed to parse config fields: %w", err)
	}

	if err := cfg.validateTLS(); err != nil {
		return nil, fmt.Errorf("invalid TLS configuration: %w", err)
	}

	if err := cfg.validateDatasource(); err != nil {
		return nil, fmt.Errorf("invalid datasource configuration: %w", err)
	}

	return cfg, nil
}

// parseComplexFields handles fields that need post-processing after loading.
func (c *Config) parseComplexFields() error {
	ops, err := parseOperations(c.Datasource.GeneralUserOperationsStr)
	if err != nil {
		return err
	}
	c.Datasource.GeneralUserOperations = ops
	return nil
}

// validateTLS ensures TLS configuration is valid if provided.
// Both cert and key must be provided together, and files must exist.
func (c *Config) validateTLS() error {
	certSet := c.TLSCertPath != ""
	keySet := c.TLSKeyPath != ""

	if certSet != keySet {
		return fmt.Errorf("both tls_cert_path and tls_key_path must be provided together")
	}

	if certSet {
		if _, err := os.Stat(c.TLSCertPath); err != nil {
			return fmt.Errorf("TLS cert file does not exist: %w", err)
		}
		if _, err := os.Stat(c.TLSKeyPath); err != nil {
			return fmt.Errorf("TLS key file does not exist: %w", err)
		}
	}

	return nil
}

func (c *Config) validateDatasource() error {
	ds := &c.Datasource
	if ds.MaxNameLength <= 0 || ds.MaxNoteLength <= 0 {
		return fmt.Errorf("max_name_length and max_note_length must be positive")
	}
	if ds.ProbeTimeoutSeconds <= 0 {
		return fmt.Errorf("probe_timeout_seconds must be positive")
	}

	switch ds.EncryptionCodec {
	case "", crypto.CodecSalted:
	case crypto.CodecAES:
		if ds.EncryptionEnabled && ds.EncryptionKey == "" {
			return fmt.Errorf("DATASOURCE_ENCRYPTION_KEY is required for the %s codec", crypto.CodecAES)
		}
	case crypto.CodecVault:
		if ds.EncryptionEnabled && (c.Vault.Address == "" || c.Vault.Key == "" || c.Vault.Context == "") {
			return fmt.Errorf("vault address, key and context are required for the %s codec", crypto.CodecVault)
		}
	default:
		return fmt.Errorf("unknown encryption_codec %q", ds.EncryptionCodec)
	}
	return nil
}

// parseOperations parses a comma-separated operation allowlist.
// Returns nil for an empty value.
func parseOperations(value string) ([]string, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}

	var ops []string
	for _, part := range strings.Split(value, ",") {
		op := strings.TrimSpace(part)
		if op == "" {
			continue
		}
		if !slices.Contains(permission.DatasourceOperations, op) {
			return nil, fmt.Errorf("unknown operation code %q", op)
		}
		ops = append(ops, op)
	}
	return ops, nil
}

// ProbeTimeout returns ProbeTimeoutSeconds as a duration.
func (c *DatasourceConfig) ProbeTimeout() time.Duration {
	return time.Duration(c.ProbeTimeoutSeconds) * time.Second
}

// URL returns a PostgreSQL connection URL.
func (c *DatabaseConfig) URL() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:     "/" + c.Database,
		RawQuery: url.Values{"sslmode": []string{c.SSLMode}}.Encode(),
	}
	return u.String()
}
