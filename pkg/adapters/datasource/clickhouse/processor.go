package clickhouse

import (
	"github.com/ekaya-inc/ekaya-datasource/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-datasource/pkg/models"
)

const (
	addressPrefix   = "jdbc:clickhouse://"
	driverClassName = "com.clickhouse.jdbc.ClickHouseDriver"
	validationQuery = "select 1"
)

var format = datasource.EngineFormat{
	Scheme:            addressPrefix,
	DatabaseSeparator: "/",
	DriverClassName:   driverClassName,
	ValidationQuery:   validationQuery,
}

// Processor builds canonical ClickHouse connection parameters.
type Processor struct{}

func (Processor) CheckParams(dto models.DatasourceParamDTO) error {
	d, ok := dto.(*models.ClickHouseDatasourceParamDTO)
	if !ok {
		return datasource.UnexpectedDTO(models.DbTypeClickHouse, dto)
	}
	return datasource.ValidateDTO(d)
}

func (Processor) BuildConnectionParams(dto models.DatasourceParamDTO, opts datasource.BuildOptions) (*models.ConnectionParam, error) {
	d, ok := dto.(*models.ClickHouseDatasourceParamDTO)
	if !ok {
		return nil, datasource.UnexpectedDTO(models.DbTypeClickHouse, dto)
	}
	return format.Build(&d.BaseDatasourceParamDTO, opts)
}

func (Processor) CreateParamDTO(param *models.ConnectionParam) (models.DatasourceParamDTO, error) {
	base, err := format.ParseBase(param)
	if err != nil {
		return nil, err
	}
	return &models.ClickHouseDatasourceParamDTO{BaseDatasourceParamDTO: base}, nil
}

var _ datasource.Processor = Processor{}
