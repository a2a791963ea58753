package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/iwvelando/loan-compare/internal/model"
)

// FieldError is a single problem with one input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Errors is the list of field-level problems found in a request. It is
// returned before any computation runs.
type Errors []FieldError

func (e Errors) Error() string {
	parts := make([]string, 0, len(e))
	for _, fe := range e {
		parts = append(parts, fe.Field+" "+fe.Message)
	}
	return "invalid request: " + strings.Join(parts, "; ")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	return v
}

// ValidateRequest checks a comparison request and returns every field-level
// problem it finds, or nil when the request can be computed.
func ValidateRequest(req model.Request) Errors {
	var errs Errors

	if err := validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return Errors{{Field: "request", Message: err.Error()}}
		}
		for _, fe := range fieldErrs {
			errs = append(errs, FieldError{Field: fe.Field(), Message: describe(fe)})
		}
	}

	if req.Mode != "" && !req.Mode.Valid() {
		errs = append(errs, FieldError{Field: "mode",
			Message: fmt.Sprintf("must be %s or %s", model.ModeMaximize, model.ModeCheck)})
	}
	if req.Product != "" && !req.Product.Valid() {
		errs = append(errs, FieldError{Field: "product",
			Message: fmt.Sprintf("must be one of %s", joinProducts())})
	}
	if req.Mode == model.ModeCheck && req.RequestedAmount <= 0 {
		errs = append(errs, FieldError{Field: "requestedAmount", Message: "must be greater than 0 in check mode"})
	}
	if req.Product.Secured() && req.PropertyValue <= 0 {
		errs = append(errs, FieldError{Field: "propertyValue", Message: "must be greater than 0 for secured products"})
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	default:
		return fmt.Sprintf("failed %s check", fe.Tag())
	}
}

func joinProducts() string {
	names := make([]string, 0, len(model.ProductTypes))
	for _, p := range model.ProductTypes {
		names = append(names, string(p))
	}
	return strings.Join(names, ", ")
}
