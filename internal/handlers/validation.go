package handlers

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/shopspring/decimal"
)

// newValidator returns a validator that names fields by their JSON key,
// checks decimal.Decimal values as numbers and knows the notblank tag.
func newValidator() *validator.Validate {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{})
	if err := validate.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}
	return validate
}

// validationMessages flattens validator errors into field -> message.
func validationMessages(err error) map[string]string {
	errorMessages := make(map[string]string)
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		errorMessages["body"] = err.Error()
		return errorMessages
	}
	for _, e := range validationErrors {
		switch e.Tag() {
		case "required":
			errorMessages[e.Field()] = fmt.Sprintf("Field '%s' is required", e.Field())
		case "notblank":
			errorMessages[e.Field()] = fmt.Sprintf("Field '%s' must not be blank", e.Field())
		case "max":
			errorMessages[e.Field()] = fmt.Sprintf("Field '%s' must be at most %s characters long", e.Field(), e.Param())
		case "gte":
			errorMessages[e.Field()] = fmt.Sprintf("Field '%s' must be greater than or equal to %s", e.Field(), e.Param())
		default:
			errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
		}
	}
	return errorMessages
}
