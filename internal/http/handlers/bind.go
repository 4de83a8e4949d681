package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// BindJSON binds and validates a request body, turning validator output
// into one readable message instead of a 400 with no explanation.
func BindJSON(ctx *gin.Context, out interface{}) bool {
	err := ctx.ShouldBindJSON(out)

	if err != nil {
		RespondBadRequest(ctx, bindErrorMessage(err, out))

		return false
	}

	return true
}

func bindErrorMessage(err error, out interface{}) string {
	var validatorErrs validator.ValidationErrors

	if errors.As(err, &validatorErrs) {
		parts := make([]string, 0, len(validatorErrs))

		for _, fieldErr := range validatorErrs {
			name := jsonFieldName(out, fieldErr.StructField())

			parts = append(parts, name+" "+ruleMessage(fieldErr.Tag(), fieldErr.Param()))
		}

		return strings.Join(parts, "; ")
	}

	var syntaxErr *json.SyntaxError

	if errors.As(err, &syntaxErr) {
		return "request body is not valid JSON"
	}

	var typeErr *json.UnmarshalTypeError

	if errors.As(err, &typeErr) {
		return fmt.Sprintf("%s must be of type %s", typeErr.Field, typeErr.Type)
	}

	return "invalid request body"
}

// jsonFieldName maps a struct field back to its json tag so error
// messages use the names the client actually sent.
func jsonFieldName(out interface{}, structField string) string {
	t := reflect.TypeOf(out)

	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t == nil || t.Kind() != reflect.Struct {
		return structField
	}

	sf, ok := t.FieldByName(structField)

	if !ok {
		return structField
	}

	tag := sf.Tag.Get("json")

	name, _, _ := strings.Cut(tag, ",")

	if name == "" || name == "-" {
		return structField
	}

	return name
}

func ruleMessage(rule, param string) string {
	switch rule {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + param + " characters"
	case "max":
		return "must be at most " + param + " characters"
	case "eqfield":
		return "must match " + param
	case "gt":
		return "must be greater than " + param
	default:
		if param != "" {
			return fmt.Sprintf("failed %s validation (%s)", rule, param)
		}
		return "failed " + rule + " validation"
	}
}
