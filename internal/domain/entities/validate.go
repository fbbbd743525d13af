package entities

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var fieldValidate = validator.New()

// Validate checks the field constraints of a member payload.
func (f MemberFields) Validate() error {
	return describeValidation(fieldValidate.Struct(f))
}

// Validate checks the field constraints of a patch.
func (p MemberPatch) Validate() error {
	return describeValidation(fieldValidate.Struct(p))
}

func describeValidation(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrInvalidRequest, strings.Join(parts, "; "))
}
