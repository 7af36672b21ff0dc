package postgres

import (
	"github.com/ekaya-inc/ekaya-datasource/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-datasource/pkg/models"
)

const (
	addressPrefix   = "jdbc:postgresql://"
	driverClassName = "org.postgresql.Driver"
	validationQuery = "select version()"
)

var format = datasource.EngineFormat{
	Scheme:            addressPrefix,
	DatabaseSeparator: "/",
	DriverClassName:   driverClassName,
	ValidationQuery:   validationQuery,
}

// Processor builds canonical PostgreSQL connection parameters.
type Processor struct{}

func (Processor) CheckParams(dto models.DatasourceParamDTO) error {
	d, ok := dto.(*models.PostgreSQLDatasourceParamDTO)
	if !ok {
		return datasource.UnexpectedDTO(models.DbTypePostgreSQL, dto)
	}
	return datasource.ValidateDTO(d)
}

func (Processor) BuildConnectionParams(dto models.DatasourceParamDTO, opts datasource.BuildOptions) (*models.ConnectionParam, error) {
	d, ok := dto.(*models.PostgreSQLDatasourceParamDTO)
	if !ok {
		return nil, datasource.UnexpectedDTO(models.DbTypePostgreSQL, dto)
	}
	return format.Build(&d.BaseDatasourceParamDTO, opts)
}

func (Processor) CreateParamDTO(param *models.ConnectionParam) (models.DatasourceParamDTO, error) {
	base, err := format.ParseBase(param)
	if err != nil {
		return nil, err
	}
	return &models.PostgreSQLDatasourceParamDTO{BaseDatasourceParamDTO: base}, nil
}

var _ datasource.Processor = Processor{}
