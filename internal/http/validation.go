package httpapi

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"pharmafront/internal/apperr"
)

// FromBindError turns a gin binding failure into an Invalid error with one
// message per field. dst is the struct that was bound; its form or json tags
// name the fields.
func FromBindError(err error, dst any) error {
	fields := map[string]string{}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			fields[fieldKey(dst, fe.StructField())] = messageForTag(fe.Tag(), fe.Param())
		}
		return &apperr.AppError{Kind: apperr.Invalid, PublicMsg: "Revise los campos marcados.", Fields: fields, Err: err}
	}
	return &apperr.AppError{Kind: apperr.Invalid, PublicMsg: "Los datos enviados no son válidos.", Err: err}
}

func fieldKey(dst any, structField string) string {
	t := reflect.TypeOf(dst)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return strings.ToLower(structField)
	}
	f, ok := t.FieldByName(structField)
	if !ok {
		return strings.ToLower(structField)
	}
	for _, key := range []string{"form", "json"} {
		tag, _, _ := strings.Cut(f.Tag.Get(key), ",")
		if tag != "" && tag != "-" {
			return tag
		}
	}
	return strings.ToLower(structField)
}

func messageForTag(tag, param string) string {
	switch tag {
	case "required":
		return "Este campo es obligatorio."
	case "email":
		return "Ingrese un correo electrónico válido."
	case "min", "gte":
		return "Debe ser al menos " + param + "."
	case "max", "lte":
		return "Debe ser como máximo " + param + "."
	case "gt":
		return "Debe ser mayor que " + param + "."
	case "oneof":
		return "Debe ser uno de: " + param + "."
	default:
		return "Valor no válido."
	}
}
