package models

import "fmt"

// DbType identifies a database engine.
type DbType string

const (
	DbTypeMySQL      DbType = "MYSQL"
	DbTypePostgreSQL DbType = "POSTGRESQL"
	DbTypeHive       DbType = "HIVE"
	DbTypeSpark      DbType = "SPARK"
	DbTypeClickHouse DbType = "CLICKHOUSE"
	DbTypeOracle     DbType = "ORACLE"
	DbTypeSQLServer  DbType = "SQLSERVER"
)

// DbTypes lists every known engine in display order.
var DbTypes = []DbType{
	DbTypeMySQL,
	DbTypePostgreSQL,
	DbTypeHive,
	DbTypeSpark,
	DbTypeClickHouse,
	DbTypeOracle,
	DbTypeSQLServer,
}

// ParseDbType converts a string into a known DbType.
func ParseDbType(s string) (DbType, error) {
	for _, t := range DbTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown database type: %q", s)
}

// ConnectType selects how an Oracle instance is addressed.
type ConnectType string

const (
	ConnectTypeOracleServiceName ConnectType = "ORACLE_SERVICE_NAME"
	ConnectTypeOracleSID         ConnectType = "ORACLE_SID"
)
