package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// 校验失败统一包装成 ErrInvalidParameter
func Validate(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		fields := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			fields = append(fields, fmt.Sprintf("%s(%s)", fe.Field(), fe.Tag()))
		}
		return fmt.Errorf("%w: %s", ErrInvalidParameter, strings.Join(fields, ", "))
	}
	return fmt.Errorf("%w: %v", ErrInvalidParameter, err)
}

func (p *DischargeRunParameters) Validate() error {
	return Validate(p)
}

func (p *ThermalSimParameters) Validate() error {
	return Validate(p)
}

func (c *BatteryCellSpec) Validate() error {
	return Validate(c)
}
