package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"ctbb/internal/queue"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("toml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return describeValidation(err)
	}
	if err := c.validateCaseList(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateCaseList() error {
	info, err := os.Stat(c.Pipeline.CaseList)
	if err != nil {
		if os.IsNotExist(err) {
			return &queue.ConfigurationError{Field: "pipeline.case_list", Value: c.Pipeline.CaseList, Msg: "does not exist"}
		}
		return fmt.Errorf("pipeline.case_list: %w", err)
	}
	if info.IsDir() {
		return &queue.ConfigurationError{Field: "pipeline.case_list", Value: c.Pipeline.CaseList, Msg: "is a directory"}
	}
	return nil
}

func describeValidation(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("validate config: %w", err)
	}
	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		messages = append(messages, describeField(fe))
	}
	return &queue.ConfigurationError{Field: "config", Msg: strings.Join(messages, "; ")}
}

func describeField(fe validator.FieldError) string {
	// Namespace is "Config.<section>.<key>[i]"; drop the struct name.
	name := fe.Namespace()
	if idx := strings.IndexByte(name, '.'); idx >= 0 {
		name = name[idx+1:]
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", name)
	case "required_if":
		return fmt.Sprintf("%s is required when %s", name, strings.ReplaceAll(fe.Param(), " ", " is "))
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %v", name, strings.ReplaceAll(fe.Param(), " ", ", "), fe.Value())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", name, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", name, fe.Param())
	default:
		return fmt.Sprintf("%s failed %q validation", name, fe.Tag())
	}
}
