package datasource

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/ekaya-inc/ekaya-datasource/pkg/models"
)

// EngineFormat holds the fixed canonical constants of one engine addressing mode.
type EngineFormat struct {
	// Scheme prefixes the host list, e.g. "jdbc:mysql://".
	Scheme string
	// DatabaseSeparator joins the address and the database name in the connection string.
	DatabaseSeparator string
	DriverClassName   string
	ValidationQuery   string
}

// Build fills the engine-independent part of the canonical parameters.
func (f EngineFormat) Build(base *models.BaseDatasourceParamDTO, opts BuildOptions) (*models.ConnectionParam, error) {
	password, err := opts.EncodePassword(base.Password)
	if err != nil {
		return nil, err
	}

	address := FormatAddress(f.Scheme, base.Host, base.Port)
	return &models.ConnectionParam{
		User:            base.UserName,
		Password:        password,
		Address:         address,
		Database:        base.Database,
		JDBCURL:         f.ConnectionString(address, base.Database),
		DriverClassName: f.DriverClassName,
		ValidationQuery: f.ValidationQuery,
		Other:           CopyProperties(base.Other),
	}, nil
}

// ConnectionString appends the database to address per the engine's convention.
func (f EngineFormat) ConnectionString(address, database string) string {
	return address + f.DatabaseSeparator + database
}

// ParseBase recovers the shared DTO fields from canonical parameters.
func (f EngineFormat) ParseBase(param *models.ConnectionParam) (models.BaseDatasourceParamDTO, error) {
	host, port, err := SplitAddress(param.Address, f.Scheme)
	if err != nil {
		return models.BaseDatasourceParamDTO{}, err
	}
	return models.BaseDatasourceParamDTO{
		Host:     host,
		Port:     port,
		Database: param.Database,
		UserName: param.User,
		Password: param.Password,
		Other:    CopyProperties(param.Other),
	}, nil
}

// FormatAddress renders scheme + host:port. A comma-separated host list becomes
// h1:port,h2:port.
func FormatAddress(scheme, host string, port int) string {
	p := strconv.Itoa(port)
	hosts := strings.Split(host, ",")
	parts := make([]string, 0, len(hosts))
	for _, h := range hosts {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		parts = append(parts, net.JoinHostPort(h, p))
	}
	return scheme + strings.Join(parts, ",")
}

// SplitAddress is the inverse of FormatAddress. Every host in the list must share
// one port.
func SplitAddress(address, scheme string) (string, int, error) {
	rest, ok := strings.CutPrefix(address, scheme)
	if !ok {
		return "", 0, fmt.Errorf("address %q does not start with %q", address, scheme)
	}

	var hosts []string
	port := 0
	for _, hp := range strings.Split(rest, ",") {
		h, p, err := net.SplitHostPort(strings.TrimSpace(hp))
		if err != nil {
			return "", 0, fmt.Errorf("invalid address %q: %w", address, err)
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return "", 0, fmt.Errorf("invalid port in address %q: %w", address, err)
		}
		if port != 0 && n != port {
			return "", 0, fmt.Errorf("address %q mixes ports %d and %d", address, port, n)
		}
		port = n
		hosts = append(hosts, h)
	}
	return strings.Join(hosts, ","), port, nil
}

// HostPorts returns the host:port pairs of an address.
func HostPorts(address, scheme string) ([]string, error) {
	host, port, err := SplitAddress(address, scheme)
	if err != nil {
		return nil, err
	}
	hosts := strings.Split(host, ",")
	result := make([]string, 0, len(hosts))
	for _, h := range hosts {
		result = append(result, net.JoinHostPort(h, strconv.Itoa(port)))
	}
	return result, nil
}

// CopyProperties returns an insertion-ordered copy, or nil when props is empty.
func CopyProperties(props *models.Properties) *models.Properties {
	if props == nil || props.Len() == 0 {
		return nil
	}
	c := orderedmap.New[string, string]()
	for pair := props.Oldest(); pair != nil; pair = pair.Next() {
		c.Set(pair.Key, pair.Value)
	}
	return c
}
