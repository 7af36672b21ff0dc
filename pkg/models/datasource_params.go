package models

import (
	"github.com/google/uuid"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Properties is an insertion-ordered string map. Extra driver properties keep the
// order the caller supplied them in, both in memory and when serialized to JSON.
type Properties = orderedmap.OrderedMap[string, string]

// NewProperties builds Properties from alternating key/value arguments.
// A trailing key without a value is ignored.
func NewProperties(kv ...string) *Properties {
	props := orderedmap.New[string, string]()
	for i := 0; i+1 < len(kv); i += 2 {
		props.Set(kv[i], kv[i+1])
	}
	return props
}

// DatasourceParamDTO is the engine-specific input a caller submits to create or
// update a datasource. Each supported engine has exactly one variant.
type DatasourceParamDTO interface {
	// Base returns the fields shared by every engine.
	Base() *BaseDatasourceParamDTO
	// Type returns the engine this variant describes.
	Type() DbType
}

// BaseDatasourceParamDTO holds the fields shared by every engine variant.
type BaseDatasourceParamDTO struct {
	ID       uuid.UUID   `json:"id,omitempty"`
	Name     string      `json:"name"`
	Note     string      `json:"note"`
	Host     string      `json:"host" validate:"required,max=1024,hostlist"`
	Port     int         `json:"port" validate:"min=1,max=65535"`
	Database string      `json:"database" validate:"max=255"`
	UserName string      `json:"userName" validate:"max=255"`
	Password string      `json:"password"`
	Other    *Properties `json:"other,omitempty" validate:"-"`
}

// Base implements DatasourceParamDTO for every variant that embeds BaseDatasourceParamDTO.
func (b *BaseDatasourceParamDTO) Base() *BaseDatasourceParamDTO {
	return b
}

// MySQLDatasourceParamDTO describes a MySQL datasource.
type MySQLDatasourceParamDTO struct {
	BaseDatasourceParamDTO
}

func (*MySQLDatasourceParamDTO) Type() DbType { return DbTypeMySQL }

// PostgreSQLDatasourceParamDTO describes a PostgreSQL datasource.
type PostgreSQLDatasourceParamDTO struct {
	BaseDatasourceParamDTO
}

func (*PostgreSQLDatasourceParamDTO) Type() DbType { return DbTypePostgreSQL }

// ClickHouseDatasourceParamDTO describes a ClickHouse datasource.
type ClickHouseDatasourceParamDTO struct {
	BaseDatasourceParamDTO
}

func (*ClickHouseDatasourceParamDTO) Type() DbType { return DbTypeClickHouse }

// SQLServerDatasourceParamDTO describes a Microsoft SQL Server datasource.
type SQLServerDatasourceParamDTO struct {
	BaseDatasourceParamDTO
}

func (*SQLServerDatasourceParamDTO) Type() DbType { return DbTypeSQLServer }

// OracleDatasourceParamDTO describes an Oracle datasource. ConnectType decides
// whether Database is a service name or a SID.
type OracleDatasourceParamDTO struct {
	BaseDatasourceParamDTO
	ConnectType ConnectType `json:"connectType" validate:"omitempty,oneof=ORACLE_SERVICE_NAME ORACLE_SID"`
}

func (*OracleDatasourceParamDTO) Type() DbType { return DbTypeOracle }

// KerberosParams are the security credential fields of Hadoop-family engines.
// They only reach the canonical parameters when Kerberos is enabled.
type KerberosParams struct {
	Principal               string `json:"principal"`
	JavaSecurityKrb5Conf    string `json:"javaSecurityKrb5Conf"`
	LoginUserKeytabUsername string `json:"loginUserKeytabUsername"`
	LoginUserKeytabPath     string `json:"loginUserKeytabPath"`
}

// HiveDatasourceParamDTO describes a HiveServer2 datasource. Host may list
// several comma-separated hosts sharing one port.
type HiveDatasourceParamDTO struct {
	BaseDatasourceParamDTO
	KerberosParams
}

func (*HiveDatasourceParamDTO) Type() DbType { return DbTypeHive }

// SparkDatasourceParamDTO describes a Spark Thrift Server datasource.
type SparkDatasourceParamDTO struct {
	BaseDatasourceParamDTO
	KerberosParams
}

func (*SparkDatasourceParamDTO) Type() DbType { return DbTypeSpark }
