package datasource

import (
	"fmt"

	"github.com/ekaya-inc/ekaya-datasource/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-datasource/pkg/crypto"
	"github.com/ekaya-inc/ekaya-datasource/pkg/models"
)

// BuildOptions carries the process-wide flags that affect canonical output.
// They are read from configuration once and passed explicitly into every build.
type BuildOptions struct {
	// EncryptPassword replaces the password with Codec's encoding.
	EncryptPassword bool
	Codec           crypto.SecretCodec

	// KerberosEnabled adds the security credential fields for engines that carry them.
	KerberosEnabled bool
}

// EncodePassword applies the codec when encryption is enabled. Empty passwords
// are never encoded.
func (o BuildOptions) EncodePassword(password string) (string, error) {
	if !o.EncryptPassword || password == "" {
		return password, nil
	}
	if o.Codec == nil {
		return "", fmt.Errorf("password encryption is enabled but no codec is configured")
	}
	encoded, err := o.Codec.Encode(password)
	if err != nil {
		return "", fmt.Errorf("failed to encode password: %w", err)
	}
	return encoded, nil
}

func processorFor(dbType models.DbType) (Processor, error) {
	p := GetProcessor(dbType)
	if p == nil {
		return nil, apperrors.New(apperrors.CodeUnsupportedEngine, "unsupported datasource type: %s", dbType)
	}
	return p, nil
}

// BuildConnectionParams converts an engine DTO to canonical parameters using the
// processor registered for its type.
func BuildConnectionParams(dto models.DatasourceParamDTO, opts BuildOptions) (*models.ConnectionParam, error) {
	if dto == nil {
		return nil, apperrors.New(apperrors.CodeValidation, "datasource parameters are required")
	}
	p, err := processorFor(dto.Type())
	if err != nil {
		return nil, err
	}
	return p.BuildConnectionParams(dto, opts)
}

// CheckParams validates a DTO with the processor registered for its type.
func CheckParams(dto models.DatasourceParamDTO) error {
	if dto == nil {
		return apperrors.New(apperrors.CodeValidation, "datasource parameters are required")
	}
	p, err := processorFor(dto.Type())
	if err != nil {
		return err
	}
	return p.CheckParams(dto)
}

// CreateParamDTO reconstructs the engine DTO for stored canonical parameters.
func CreateParamDTO(dbType models.DbType, param *models.ConnectionParam) (models.DatasourceParamDTO, error) {
	if param == nil {
		return nil, fmt.Errorf("connection params are required")
	}
	p, err := processorFor(dbType)
	if err != nil {
		return nil, err
	}
	return p.CreateParamDTO(param)
}

// UnexpectedDTO is returned by processors handed a DTO of another engine.
func UnexpectedDTO(want models.DbType, got models.DatasourceParamDTO) error {
	return apperrors.New(apperrors.CodeValidation, "expected %s parameters, got %T", want, got)
}
