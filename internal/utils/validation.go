package utils

import (
	"errors"
	"sort"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate performs validation on a struct.
func Validate(s interface{}) error {
	return validate.Struct(s)
}

// ValidationFields turns validator errors into a field -> message map keyed
// by the JSON-style (lower camel) field name.
func ValidationFields(err error) map[string]string {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return nil
	}
	fields := make(map[string]string, len(errs))
	for _, e := range errs {
		fields[lowerFirst(e.Field())] = describe(e)
	}
	return fields
}

func describe(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + e.Param()
	case "max":
		return "must be at most " + e.Param()
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(e.Param(), " ", ", ")
	}
	return "failed " + e.Tag() + " check"
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}

// FormatValidationError formats validation errors into a readable string.
func FormatValidationError(err error) string {
	fields := ValidationFields(err)
	if len(fields) == 0 {
		return err.Error()
	}
	msgs := make([]string, 0, len(fields))
	for f, m := range fields {
		msgs = append(msgs, f+" "+m)
	}
	sort.Strings(msgs)
	return strings.Join(msgs, ", ")
}

// BindAndValidate binds the request body to a struct and validates it.
// If validation fails, it sends a BadRequest response and returns false.
func BindAndValidate(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		if fields := ValidationFields(err); len(fields) > 0 {
			ValidationFailed(c, "Validation failed: "+FormatValidationError(err), fields)
			return false
		}
		BadRequest(c, "Invalid request payload: "+err.Error())
		return false
	}
	if err := Validate(obj); err != nil {
		if fields := ValidationFields(err); len(fields) > 0 {
			ValidationFailed(c, "Validation failed: "+FormatValidationError(err), fields)
			return false
		}
		BadRequest(c, "Validation failed: "+err.Error())
		return false
	}
	return true
}
