package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	flerrors "github.com/matzehuels/flowlayout/pkg/errors"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration against its struct constraints and
// returns an INVALID_CONFIG error naming every violated field.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return flerrors.Wrap(flerrors.ErrCodeInvalidConfig, err, "validate config")
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return flerrors.New(flerrors.ErrCodeInvalidConfig, "invalid config: %s", strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "gtefield":
		return fmt.Sprintf("%s must be >= %s", field, fe.Param())
	case "hostname_port":
		return field + " must be host:port"
	default:
		if fe.Param() != "" {
			return fmt.Sprintf("%s must satisfy %s=%s", field, fe.Tag(), fe.Param())
		}
		return fmt.Sprintf("%s must satisfy %s", field, fe.Tag())
	}
}
