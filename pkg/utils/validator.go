package utils

import (
	"github.com/go-playground/validator/v10"
)

type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New()

	// Custom validations
	v.RegisterValidation("auth_mode", validateAuthMode)

	return &Validator{
		validate: v,
	}
}

func (v *Validator) Struct(s interface{}) error {
	return v.validate.Struct(s)
}

func validateAuthMode(fl validator.FieldLevel) bool {
	mode := fl.Field().String()
	supportedModes := map[string]bool{
		"open":       true,
		"code":       true,
		"guest_list": true,
	}
	return supportedModes[mode]
}
