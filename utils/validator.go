package utils

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"worksync/models"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("task_status", func(fl validator.FieldLevel) bool {
		return models.TaskStatus(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("datetime_input", func(fl validator.FieldLevel) bool {
		_, err := ParseDateTime(fl.Field().String(), time.UTC)
		return err == nil
	})
	return v
}

func ValidateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return err
	}

	// Format validation errors
	var messages []string
	for _, err := range fieldErrors {
		field := strings.ToLower(err.Field())
		tag := err.Tag()
		param := err.Param()

		switch tag {
		case "required":
			messages = append(messages, field+" is required")
		case "min":
			messages = append(messages, field+" must be at least "+param)
		case "max":
			messages = append(messages, field+" must be at most "+param)
		case "email":
			messages = append(messages, field+" must be a valid email")
		case "gt":
			messages = append(messages, field+" must be greater than "+param)
		case "task_status":
			messages = append(messages, field+" must be one of OPEN, AT_WORK, DONE")
		case "datetime_input":
			messages = append(messages, field+" must look like "+DateTimeLayout+" or RFC 3339")
		default:
			messages = append(messages, field+" is invalid")
		}
	}

	return errors.New(strings.Join(messages, ", "))
}
