package types

import (
	"errors"
	"reflect"
	"strings"

	validator "gopkg.in/go-playground/validator.v9"
)

// Relay validation failures, in the order they are checked.
var (
	ErrMissingFields = errors.New("Missing required fields: signature, intent, or permit")
	ErrInvalidIntent = errors.New("Invalid intent structure")
	ErrInvalidPermit = errors.New("Invalid permit structure")
)

// RelayValidationError names the first missing field
type RelayValidationError struct {
	Kind  error
	Field string
}

func (e *RelayValidationError) Error() string {
	return e.Kind.Error()
}

func (e *RelayValidationError) Unwrap() error {
	return e.Kind
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate performs the presence checks of the relay endpoint. It never
// looks at signatures or amounts beyond their presence.
func (r *RelayRequest) Validate() error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	// Errors come back in struct order: signature, intent.*, permit.*
	var first *RelayValidationError
	for _, fe := range fieldErrs {
		path := strings.SplitN(fe.Namespace(), ".", 2)
		if len(path) < 2 {
			continue
		}
		field := path[1]
		switch {
		case !strings.Contains(field, "."):
			return &RelayValidationError{Kind: ErrMissingFields, Field: field}
		case first != nil:
		case strings.HasPrefix(field, "intent."):
			first = &RelayValidationError{Kind: ErrInvalidIntent, Field: field}
		default:
			first = &RelayValidationError{Kind: ErrInvalidPermit, Field: field}
		}
	}
	if first != nil {
		return first
	}
	return err
}
