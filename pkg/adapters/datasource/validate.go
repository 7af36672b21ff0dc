package datasource

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/ekaya-inc/ekaya-datasource/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-datasource/pkg/models"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the shared validator with the "hostlist" rule registered.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		_ = v.RegisterValidation("hostlist", func(fl validator.FieldLevel) bool {
			for _, h := range strings.Split(fl.Field().String(), ",") {
				if v.Var(strings.TrimSpace(h), "required,hostname_rfc1123|ip") != nil {
					return false
				}
			}
			return true
		})
		validate = v
	})
	return validate
}

// ValidateDTO runs the struct validation tags of a DTO and converts failures into
// a validation error naming the first offending field.
func ValidateDTO(dto models.DatasourceParamDTO) error {
	err := Validator().Struct(dto)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return apperrors.Wrap(apperrors.CodeValidation, err,
			fmt.Sprintf("datasource parameter %s failed %q check", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return apperrors.Wrap(apperrors.CodeValidation, err, "invalid datasource parameters")
}
