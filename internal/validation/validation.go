// Package validation decodes JSON request bodies and checks them against
// `validate` struct tags, reporting problems per field.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/2beens/workouttracker/pkg"
)

const maxBodyBytes = 1 << 20

// Error is returned for any client side input problem.
type Error struct {
	Message string
	Fields  []pkg.FieldError
}

func (e *Error) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return fmt.Sprintf("%s (%s)", e.Message, strings.Join(parts, "; "))
}

// NewFieldError builds a single-field validation error.
func NewFieldError(field, message string) *Error {
	return &Error{
		Message: "validation failed",
		Fields:  []pkg.FieldError{{Field: field, Message: message}},
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// report json names, not go field names
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})

	// empty string is accepted and means "no media"
	if err := v.RegisterValidation("optional_http_url", func(fl validator.FieldLevel) bool {
		raw := fl.Field().String()
		if raw == "" {
			return true
		}
		u, err := url.ParseRequestURI(raw)
		if err != nil {
			return false
		}
		return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
	}); err != nil {
		panic(err)
	}

	// rejects strings made only of whitespace
	if err := v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	}); err != nil {
		panic(err)
	}

	return v
}

// Struct validates v and converts validator errors to *Error.
func Struct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return fmt.Errorf("validate: %w", err)
	}

	fields := make([]pkg.FieldError, 0, len(validationErrs))
	for _, fe := range validationErrs {
		fields = append(fields, pkg.FieldError{
			Field:   fieldPath(fe.Namespace()),
			Message: message(fe),
		})
	}
	return &Error{Message: "validation failed", Fields: fields}
}

// DecodeAndValidate reads a JSON body into dst and validates it.
// Unknown fields are ignored.
func DecodeAndValidate(r *http.Request, dst any) error {
	if r.Body == nil {
		return &Error{Message: "request body is empty"}
	}

	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := decoder.Decode(dst); err != nil {
		return decodeError(err)
	}

	return Struct(dst)
}

func decodeError(err error) *Error {
	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError
	switch {
	case errors.Is(err, io.EOF):
		return &Error{Message: "request body is empty"}
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		return NewFieldError(field, fmt.Sprintf("must be of type %s", typeErr.Type.String()))
	case errors.As(err, &syntaxErr):
		return &Error{Message: fmt.Sprintf("malformed JSON at offset %d", syntaxErr.Offset)}
	default:
		return &Error{Message: "malformed JSON: " + err.Error()}
	}
}

// fieldPath drops the root struct name: "createPlanRequest.exercises[0].orderIndex" -> "exercises[0].orderIndex".
func fieldPath(namespace string) string {
	if idx := strings.Index(namespace, "."); idx >= 0 {
		return namespace[idx+1:]
	}
	return namespace
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "notblank":
		return "must not be blank"
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "optional_http_url":
		return "must be a valid http(s) URL"
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}

// WriteError writes a 400 response describing err.
func WriteError(w http.ResponseWriter, err *Error) {
	pkg.WriteJSONError(w, http.StatusBadRequest, err.Message, err.Fields)
}

// HandleError writes a 400 if err is a validation error and reports whether it did.
func HandleError(w http.ResponseWriter, err error) bool {
	var vErr *Error
	if errors.As(err, &vErr) {
		WriteError(w, vErr)
		return true
	}
	return false
}
