package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// EchoValidator plugs go-playground/validator into echo's Context.Validate.
type EchoValidator struct {
	v *validator.Validate
}

func New() *EchoValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return &EchoValidator{v: v}
}

type Error struct {
	Fields []string
	msg    string
}

func (e *Error) Error() string { return e.msg }

func (ev *EchoValidator) Validate(i any) error {
	err := ev.v.Struct(i)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &Error{msg: err.Error()}
	}

	out := &Error{}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out.Fields = append(out.Fields, fe.Field())
		msgs = append(msgs, message(fe))
	}
	out.msg = strings.Join(msgs, "; ")
	return out
}

func message(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}
