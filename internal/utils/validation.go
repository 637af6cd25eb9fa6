package utils

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	validate.RegisterValidation("room_name", validateRoomName)
}

func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

func validateRoomName(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	if strings.TrimSpace(name) == "" || len(name) > 128 {
		return false
	}
	return !strings.ContainsAny(name, " \t\r\n")
}

// Validator exposes the shared validator so transports validate inbound
// payloads with the same custom tags.
func Validator() *validator.Validate {
	return validate
}
