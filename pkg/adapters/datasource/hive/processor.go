// Package hive registers HiveServer2 and the Spark Thrift Server, which share
// the hive2 JDBC protocol.
package hive

import (
	"github.com/ekaya-inc/ekaya-datasource/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-datasource/pkg/models"
)

const (
	addressPrefix   = "jdbc:hive2://"
	driverClassName = "org.apache.hive.jdbc.HiveDriver"
	validationQuery = "select 1"
)

var format = datasource.EngineFormat{
	Scheme:            addressPrefix,
	DatabaseSeparator: "/",
	DriverClassName:   driverClassName,
	ValidationQuery:   validationQuery,
}

// kerberosDTO is implemented by the Hive and Spark DTOs.
type kerberosDTO interface {
	models.DatasourceParamDTO
	kerberos() *models.KerberosParams
}

type hiveDTO struct{ *models.HiveDatasourceParamDTO }

func (d hiveDTO) kerberos() *models.KerberosParams { return &d.KerberosParams }

type sparkDTO struct{ *models.SparkDatasourceParamDTO }

func (d sparkDTO) kerberos() *models.KerberosParams { return &d.KerberosParams }

// Processor builds canonical parameters for one hive2-protocol engine.
type Processor struct {
	dbType models.DbType
}

func (p Processor) unwrap(dto models.DatasourceParamDTO) (kerberosDTO, error) {
	switch d := dto.(type) {
	case *models.HiveDatasourceParamDTO:
		if p.dbType == models.DbTypeHive {
			return hiveDTO{d}, nil
		}
	case *models.SparkDatasourceParamDTO:
		if p.dbType == models.DbTypeSpark {
			return sparkDTO{d}, nil
		}
	}
	return nil, datasource.UnexpectedDTO(p.dbType, dto)
}

func (p Processor) CheckParams(dto models.DatasourceParamDTO) error {
	if _, err := p.unwrap(dto); err != nil {
		return err
	}
	return datasource.ValidateDTO(dto)
}

func (p Processor) BuildConnectionParams(dto models.DatasourceParamDTO, opts datasource.BuildOptions) (*models.ConnectionParam, error) {
	d, err := p.unwrap(dto)
	if err != nil {
		return nil, err
	}

	param, err := format.Build(d.Base(), opts)
	if err != nil {
		return nil, err
	}
	if opts.KerberosEnabled {
		k := d.kerberos()
		param.Principal = k.Principal
		param.JavaSecurityKrb5Conf = k.JavaSecurityKrb5Conf
		param.LoginUserKeytabUsername = k.LoginUserKeytabUsername
		param.LoginUserKeytabPath = k.LoginUserKeytabPath
	}
	return param, nil
}

func (p Processor) CreateParamDTO(param *models.ConnectionParam) (models.DatasourceParamDTO, error) {
	base, err := format.ParseBase(param)
	if err != nil {
		return nil, err
	}
	k := models.KerberosParams{
		Principal:               param.Principal,
		JavaSecurityKrb5Conf:    param.JavaSecurityKrb5Conf,
		LoginUserKeytabUsername: param.LoginUserKeytabUsername,
		LoginUserKeytabPath:     param.LoginUserKeytabPath,
	}
	if p.dbType == models.DbTypeSpark {
		return &models.SparkDatasourceParamDTO{BaseDatasourceParamDTO: base, KerberosParams: k}, nil
	}
	return &models.HiveDatasourceParamDTO{BaseDatasourceParamDTO: base, KerberosParams: k}, nil
}

var _ datasource.Processor = Processor{}
