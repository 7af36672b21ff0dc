package models

import (
	"encoding/json"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ConnectionParam is the canonical, serializable connection description produced
// by the parameter builder. Field order is the serialization order and must not
// change within a deployment. Engine-specific fields are omitted when empty.
type ConnectionParam struct {
	User            string      `json:"user"`
	Password        string      `json:"password"`
	Address         string      `json:"address"`
	Database        string      `json:"database"`
	JDBCURL         string      `json:"jdbcUrl"`
	DriverClassName string      `json:"driverClassName"`
	ValidationQuery string      `json:"validationQuery"`
	Other           *Properties `json:"other,omitempty"`

	// Oracle
	ConnectType ConnectType `json:"connectType,omitempty"`

	// Kerberos (Hive, Spark)
	Principal               string `json:"principal,omitempty"`
	JavaSecurityKrb5Conf    string `json:"javaSecurityKrb5Conf,omitempty"`
	LoginUserKeytabUsername string `json:"loginUserKeytabUsername,omitempty"`
	LoginUserKeytabPath     string `json:"loginUserKeytabPath,omitempty"`
}

// JSON serializes the parameters into their canonical stored form.
func (p *ConnectionParam) JSON() (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("failed to marshal connection params: %w", err)
	}
	return string(b), nil
}

// Clone returns a deep copy, including the extra properties.
func (p *ConnectionParam) Clone() *ConnectionParam {
	if p == nil {
		return nil
	}
	c := *p
	if p.Other != nil {
		c.Other = orderedmap.New[string, string]()
		for pair := p.Other.Oldest(); pair != nil; pair = pair.Next() {
			c.Other.Set(pair.Key, pair.Value)
		}
	}
	return &c
}

// ParseConnectionParam decodes the stored canonical form.
func ParseConnectionParam(raw string) (*ConnectionParam, error) {
	if raw == "" {
		return nil, fmt.Errorf("connection params are empty")
	}
	var p ConnectionParam
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal connection params: %w", err)
	}
	return &p, nil
}
