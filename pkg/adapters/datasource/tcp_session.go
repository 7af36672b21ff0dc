package datasource

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/ekaya-inc/ekaya-datasource/pkg/models"
)

// TCPSession serves engines that have no query driver in this service. Its
// probe succeeds when any listed host accepts a TCP connection.
type TCPSession struct {
	dbType models.DbType
	addrs  []string
	dialer net.Dialer
}

// NewTCPSession creates a session over the host:port pairs of a canonical address.
func NewTCPSession(dbType models.DbType, address, scheme string) (*TCPSession, error) {
	addrs, err := HostPorts(address, scheme)
	if err != nil {
		return nil, err
	}
	return &TCPSession{dbType: dbType, addrs: addrs}, nil
}

// Probe dials each host in order and returns on the first success.
func (s *TCPSession) Probe(ctx context.Context) error {
	var errs []error
	for _, addr := range s.addrs {
		conn, err := s.dialer.DialContext(ctx, "tcp", addr)
		if err == nil {
			return conn.Close()
		}
		errs = append(errs, err)
	}
	return fmt.Errorf("no reachable %s host: %w", s.dbType, errors.Join(errs...))
}

// ListDatabases is not available without a query driver.
func (s *TCPSession) ListDatabases(ctx context.Context) ([]string, error) {
	return nil, fmt.Errorf("listing databases is not supported for %s", s.dbType)
}

func (s *TCPSession) Close() error {
	return nil
}

var _ Session = (*TCPSession)(nil)
