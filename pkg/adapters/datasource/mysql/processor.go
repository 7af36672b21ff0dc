package mysql

import (
	"strings"

	"github.com/ekaya-inc/ekaya-datasource/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-datasource/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-datasource/pkg/models"
)

const (
	addressPrefix   = "jdbc:mysql://"
	driverClassName = "com.mysql.cj.jdbc.Driver"
	validationQuery = "select 1"
)

var format = datasource.EngineFormat{
	Scheme:            addressPrefix,
	DatabaseSeparator: "/",
	DriverClassName:   driverClassName,
	ValidationQuery:   validationQuery,
}

// forbiddenProperties let a malicious server read client files or trigger
// deserialization in the connecting driver.
var forbiddenProperties = []string{
	"allowLoadLocalInfile",
	"autoDeserialize",
	"allowLocalInfile",
	"allowUrlInLocalInfile",
}

// Processor builds canonical MySQL connection parameters.
type Processor struct{}

func (Processor) CheckParams(dto models.DatasourceParamDTO) error {
	d, ok := dto.(*models.MySQLDatasourceParamDTO)
	if !ok {
		return datasource.UnexpectedDTO(models.DbTypeMySQL, dto)
	}
	if err := datasource.ValidateDTO(d); err != nil {
		return err
	}
	if d.Other == nil {
		return nil
	}
	for pair := d.Other.Oldest(); pair != nil; pair = pair.Next() {
		if isForbidden(pair.Key) {
			return apperrors.New(apperrors.CodeValidation, "mysql connection property %s is not allowed", pair.Key)
		}
	}
	return nil
}

func isForbidden(key string) bool {
	for _, f := range forbiddenProperties {
		if strings.EqualFold(strings.TrimSpace(key), f) {
			return true
		}
	}
	return false
}

func (Processor) BuildConnectionParams(dto models.DatasourceParamDTO, opts datasource.BuildOptions) (*models.ConnectionParam, error) {
	d, ok := dto.(*models.MySQLDatasourceParamDTO)
	if !ok {
		return nil, datasource.UnexpectedDTO(models.DbTypeMySQL, dto)
	}
	return format.Build(&d.BaseDatasourceParamDTO, opts)
}

func (Processor) CreateParamDTO(param *models.ConnectionParam) (models.DatasourceParamDTO, error) {
	base, err := format.ParseBase(param)
	if err != nil {
		return nil, err
	}
	return &models.MySQLDatasourceParamDTO{BaseDatasourceParamDTO: base}, nil
}

var _ datasource.Processor = Processor{}
