package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/Shivanand-hulikatti/bookmyslot/internal/model"
	"github.com/go-playground/validator/v10"
)

// ErrInvalidInput is the class of every request rejected before it reaches
// the store.
var ErrInvalidInput = errors.New("invalid input")

// ValidationErrors lists the rejected fields of a request.
type ValidationErrors []model.FieldError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ErrInvalidInput.Error()
	}
	msgs := make([]string, 0, len(v))
	for _, fe := range v {
		msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Field, fe.Message))
	}
	return fmt.Sprintf("%s: %s", ErrInvalidInput, strings.Join(msgs, "; "))
}

func (v ValidationErrors) Unwrap() error { return ErrInvalidInput }

func invalid(field, message string) error {
	return ValidationErrors{{Field: field, Message: message}}
}

// Validator checks request DTOs against their struct tags.
type Validator struct {
	validate *validator.Validate
}

// NewValidator returns a Validator that reports fields by their JSON names.
func NewValidator() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{validate: v}
}

// Struct validates s and translates failures into ValidationErrors.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := make(ValidationErrors, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}
		out = append(out, model.FieldError{Field: field, Message: message(fe)})
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at least %s item(s)", fe.Param())
		}
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "email":
		return "must be a valid email address"
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}
