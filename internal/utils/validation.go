package utils

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	registerCustomValidations()
}

// ValidateStruct validates a struct using validation tags
func ValidateStruct(s interface{}) error {
	if err := validate.Struct(s); err != nil {
		return err
	}
	return nil
}

// IsValidUUID checks if a string is a valid UUID
func IsValidUUID(uuid string) bool {
	r := regexp.MustCompile("^[a-fA-F0-9]{8}-[a-fA-F0-9]{4}-[a-fA-F0-9]{4}-[a-fA-F0-9]{4}-[a-fA-F0-9]{12}$")
	return r.MatchString(uuid)
}

// IsValidMCU checks if a string is a valid MCU identifier
func IsValidMCU(mcu string) bool {
	return len(mcu) > 0
}

// registerCustomValidations registers custom validation functions
func registerCustomValidations() {
	validate.RegisterValidation("mcu", func(fl validator.FieldLevel) bool {
		return IsValidMCU(fl.Field().String())
	})
}
