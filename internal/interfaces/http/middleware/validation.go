package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/clutch/ledger/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// SetupValidator names fields after their json tag and registers the
// decimal tags: decimal (parses), decimal_gt0 and decimal_gte0.
func SetupValidator() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		RegisterDecimalValidators(v)

		// Use JSON tag names for field names in errors
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
			}
			return name
		})
	}
}

// RegisterDecimalValidators makes decimal.Decimal fields validate as their
// string form and registers the decimal tags on v
func RegisterDecimalValidators(v *validator.Validate) {
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})

	check := func(pred func(decimal.Decimal) bool) validator.Func {
		return func(fl validator.FieldLevel) bool {
			d, err := decimal.NewFromString(fl.Field().String())
			return err == nil && pred(d)
		}
	}
	_ = v.RegisterValidation("decimal", check(func(decimal.Decimal) bool { return true }))
	_ = v.RegisterValidation("decimal_gt0", check(decimal.Decimal.IsPositive))
	_ = v.RegisterValidation("decimal_gte0", check(func(d decimal.Decimal) bool { return !d.IsNegative() }))
}

// FormatValidationErrors lists one message per rejected field
func FormatValidationErrors(err error, requestID string) dto.Response {
	var details []dto.ValidationDetail

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, e := range verrs {
			details = append(details, dto.ValidationDetail{
				Field:   e.Field(),
				Message: validationMessage(e),
			})
		}
	}
	return dto.NewValidationErrorResponse("Request validation failed", requestID, details)
}

// HandleValidationError writes a 400 with the field messages
func HandleValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, FormatValidationErrors(err, GetRequestID(c)))
}

// tagMessages maps a validation tag to its message. %s is the tag parameter.
var tagMessages = map[string]string{
	"required":     "This field is required",
	"len":          "Must be exactly %s characters",
	"uuid":         "Invalid UUID format",
	"oneof":        "Must be one of: %s",
	"gte":          "Must be greater than or equal to %s",
	"lte":          "Must be less than or equal to %s",
	"gt":           "Must be greater than %s",
	"lt":           "Must be less than %s",
	"datetime":     "Must be a date formatted as %s",
	"dive":         "Invalid list element",
	"decimal":      "Must be a decimal number",
	"decimal_gt0":  "Must be a positive amount",
	"decimal_gte0": "Must not be negative",
}

func validationMessage(e validator.FieldError) string {
	tag := e.Tag()
	if tag == "min" || tag == "max" {
		bound := map[string]string{"min": "at least", "max": "at most"}[tag]
		if e.Kind() == reflect.String {
			return "Must be " + bound + " " + e.Param() + " characters"
		}
		if e.Kind() == reflect.Slice {
			return "Must have " + bound + " " + e.Param() + " items"
		}
		return "Must be " + bound + " " + e.Param()
	}
	msg, ok := tagMessages[tag]
	if !ok {
		return "Invalid value"
	}
	if strings.Contains(msg, "%s") {
		return fmt.Sprintf(msg, e.Param())
	}
	return msg
}
