package oracle

import (
	"strings"

	"github.com/ekaya-inc/ekaya-datasource/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-datasource/pkg/models"
)

const (
	serviceNamePrefix = "jdbc:oracle:thin:@//"
	sidPrefix         = "jdbc:oracle:thin:@"
	driverClassName   = "oracle.jdbc.OracleDriver"
	validationQuery   = "select 1 from dual"
)

var (
	serviceNameFormat = datasource.EngineFormat{
		Scheme:            serviceNamePrefix,
		DatabaseSeparator: "/",
		DriverClassName:   driverClassName,
		ValidationQuery:   validationQuery,
	}
	sidFormat = datasource.EngineFormat{
		Scheme:            sidPrefix,
		DatabaseSeparator: ":",
		DriverClassName:   driverClassName,
		ValidationQuery:   validationQuery,
	}
)

// formatFor returns the addressing format of a connect type. An empty connect
// type means service name.
func formatFor(ct models.ConnectType) (datasource.EngineFormat, models.ConnectType) {
	if ct == models.ConnectTypeOracleSID {
		return sidFormat, models.ConnectTypeOracleSID
	}
	return serviceNameFormat, models.ConnectTypeOracleServiceName
}

// connectTypeOf recovers the connect type of stored parameters, falling back to
// the address form for records written without one.
func connectTypeOf(param *models.ConnectionParam) models.ConnectType {
	if param.ConnectType != "" {
		return param.ConnectType
	}
	if strings.HasPrefix(param.Address, serviceNamePrefix) {
		return models.ConnectTypeOracleServiceName
	}
	return models.ConnectTypeOracleSID
}

// Processor builds canonical Oracle connection parameters.
type Processor struct{}

func (Processor) CheckParams(dto models.DatasourceParamDTO) error {
	d, ok := dto.(*models.OracleDatasourceParamDTO)
	if !ok {
		return datasource.UnexpectedDTO(models.DbTypeOracle, dto)
	}
	return datasource.ValidateDTO(d)
}

func (Processor) BuildConnectionParams(dto models.DatasourceParamDTO, opts datasource.BuildOptions) (*models.ConnectionParam, error) {
	d, ok := dto.(*models.OracleDatasourceParamDTO)
	if !ok {
		return nil, datasource.UnexpectedDTO(models.DbTypeOracle, dto)
	}

	f, ct := formatFor(d.ConnectType)
	param, err := f.Build(&d.BaseDatasourceParamDTO, opts)
	if err != nil {
		return nil, err
	}
	param.ConnectType = ct
	return param, nil
}

func (Processor) CreateParamDTO(param *models.ConnectionParam) (models.DatasourceParamDTO, error) {
	f, ct := formatFor(connectTypeOf(param))
	base, err := f.ParseBase(param)
	if err != nil {
		return nil, err
	}
	return &models.OracleDatasourceParamDTO{BaseDatasourceParamDTO: base, ConnectType: ct}, nil
}

var _ datasource.Processor = Processor{}
