// Package validacion runs go-playground/validator tags and reports the outcome
// as a plain result (ok or a list of field errors) with no HTTP or UI binding.
package validacion

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"papeleria/internal/apierror"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// decimal.Decimal is validated as its float value so tags like min=0 work.
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	// Report JSON field names, not Go ones.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
}

// FieldError is one failed field.
type FieldError = apierror.FieldError

// Result is the outcome of a validation pass.
type Result struct {
	Errors []FieldError
}

func (r Result) OK() bool { return len(r.Errors) == 0 }

// Add records a field failure.
func (r *Result) Add(field, message string) {
	r.Errors = append(r.Errors, FieldError{Field: field, Message: message})
}

// Err returns nil when the result is OK, else an *Error.
func (r Result) Err() error {
	if r.OK() {
		return nil
	}
	return &Error{Fields: r.Errors}
}

// Error is a local validation failure. No network call is made when one is
// returned.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return strings.Join(msgs, "; ")
}

// New builds a single-field *Error.
func New(field, message string) *Error {
	return &Error{Fields: []FieldError{{Field: field, Message: message}}}
}

// As extracts an *Error from err.
func As(err error) (*Error, bool) {
	var ve *Error
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// Struct validates v against its `validate` tags. mensajes overrides the
// message for "field" or "field.tag"; the default is derived from the tag.
func Struct(v any, mensajes map[string]string) Result {
	var res Result
	err := validate.Struct(v)
	if err == nil {
		return res
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		res.Add("", err.Error())
		return res
	}
	for _, fe := range ves {
		res.Add(fe.Field(), mensaje(fe, mensajes))
	}
	return res
}

func mensaje(fe validator.FieldError, mensajes map[string]string) string {
	if m, ok := mensajes[fe.Field()+"."+fe.Tag()]; ok {
		return m
	}
	if m, ok := mensajes[fe.Field()]; ok {
		return m
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s es requerido", fe.Field())
	case "min":
		return fmt.Sprintf("%s debe ser mayor o igual a %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s debe ser menor o igual a %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s no es valido (%s)", fe.Field(), fe.Tag())
	}
}
