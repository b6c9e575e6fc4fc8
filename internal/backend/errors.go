package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strings"

	"pharmafront/internal/apperr"
)

// ErrUnauthorized is wrapped by every 401 so callers can clear the session.
var ErrUnauthorized = errors.New("backend: unauthorized")

const (
	msgTimeout      = "El servidor no respondió a tiempo. Intente nuevamente."
	msgUnavailable  = "No se pudo conectar con el servidor."
	msgUnauthorized = "Su sesión expiró. Inicie sesión nuevamente."
	msgInvalid      = "Los datos enviados no son válidos."
)

var fieldNames = map[string]string{
	"username":                "Usuario",
	"password":                "Contraseña",
	"email":                   "Correo electrónico",
	"full_name":               "Nombre completo",
	"name":                    "Nombre",
	"description":             "Descripción",
	"sku":                     "SKU",
	"price":                   "Precio",
	"stock":                   "Stock",
	"category_id":             "Categoría",
	"customer_id":             "Cliente",
	"product_id":              "Producto",
	"order_item_id":           "Línea del pedido",
	"items":                   "Productos",
	"quantity":                "Cantidad",
	"shipping_address_number": "Dirección de envío",
	"status":                  "Estado",
	"assigned_seller_id":      "Vendedor",
	"assignment_notes":        "Notas de asignación",
	"discount_percentage":     "Porcentaje de descuento",
	"price_list_id":           "Lista de precios",
	"sales_group_id":          "Grupo de ventas",
	"role":                    "Rol",
}

var typeMessages = map[string]string{
	"missing":                         "es obligatorio",
	"value_error.missing":             "es obligatorio",
	"greater_than":                    "tiene un valor demasiado bajo",
	"greater_than_equal":              "tiene un valor demasiado bajo",
	"value_error.number.not_gt":       "tiene un valor demasiado bajo",
	"value_error.number.not_ge":       "tiene un valor demasiado bajo",
	"less_than":                       "tiene un valor demasiado alto",
	"less_than_equal":                 "tiene un valor demasiado alto",
	"value_error.number.not_lt":       "tiene un valor demasiado alto",
	"value_error.number.not_le":       "tiene un valor demasiado alto",
	"string_too_short":                "es demasiado corto",
	"value_error.any_str.min_length":  "es demasiado corto",
	"string_too_long":                 "es demasiado largo",
	"value_error.any_str.max_length":  "es demasiado largo",
	"too_short":                       "no puede estar vacío",
	"value_error.list.min_items":      "no puede estar vacío",
	"int_parsing":                     "debe ser un número entero",
	"int_type":                        "debe ser un número entero",
	"type_error.integer":              "debe ser un número entero",
	"float_parsing":                   "debe ser un número",
	"decimal_parsing":                 "debe ser un número",
	"type_error.float":                "debe ser un número",
	"type_error.decimal":              "debe ser un número",
	"value_error.email":               "no es un correo válido",
	"enum":                            "no es una opción válida",
	"type_error.enum":                 "no es una opción válida",
	"value_error":                     "no es válido",
}

type validationIssue struct {
	Loc  []any  `json:"loc"`
	Msg  string `json:"msg"`
	Type string `json:"type"`
}

type errorBody struct {
	Detail  json.RawMessage `json:"detail"`
	Message string          `json:"message"`
}

func transportError(err error) error {
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return &apperr.AppError{Kind: apperr.Timeout, PublicMsg: msgTimeout, Err: err}
	}
	return &apperr.AppError{Kind: apperr.Unavailable, PublicMsg: msgUnavailable, Err: err}
}

func statusError(status int, raw []byte) error {
	var body errorBody
	_ = json.Unmarshal(raw, &body)

	detail := body.Message
	var issues []validationIssue
	if len(body.Detail) > 0 {
		var s string
		if err := json.Unmarshal(body.Detail, &s); err == nil {
			detail = s
		} else {
			_ = json.Unmarshal(body.Detail, &issues)
		}
	}

	cause := fmt.Errorf("backend status %d: %s", status, strings.TrimSpace(string(raw)))

	switch {
	case status == http.StatusUnauthorized:
		return &apperr.AppError{Kind: apperr.Unauthorized, Status: status, PublicMsg: msgUnauthorized, Err: fmt.Errorf("%w: %v", ErrUnauthorized, cause)}
	case status == http.StatusUnprocessableEntity && len(issues) > 0:
		msg, fields := translateValidation(issues)
		return &apperr.AppError{Kind: apperr.Invalid, Status: status, PublicMsg: msg, Fields: fields, Err: cause}
	case status >= 500:
		if detail == "" {
			return &apperr.AppError{Kind: apperr.Internal, Status: status, PublicMsg: "Error interno del servidor.", Err: cause}
		}
		return &apperr.AppError{Kind: apperr.Internal, Status: status, PublicMsg: detail, Err: cause}
	}

	if detail == "" {
		detail = http.StatusText(status)
	}
	kind := apperr.Invalid
	switch status {
	case http.StatusForbidden:
		kind = apperr.Forbidden
	case http.StatusNotFound:
		kind = apperr.NotFound
	case http.StatusConflict:
		kind = apperr.Conflict
	case http.StatusUnprocessableEntity:
		if detail == http.StatusText(status) {
			detail = msgInvalid
		}
	}
	return &apperr.AppError{Kind: kind, Status: status, PublicMsg: detail, Err: cause}
}

// translateValidation turns backend field errors into one readable Spanish message
// plus a field -> message map.
func translateValidation(issues []validationIssue) (string, map[string]string) {
	fields := make(map[string]string, len(issues))
	for _, is := range issues {
		key := fieldKey(is.Loc)
		msg := typeMessages[is.Type]
		if msg == "" {
			msg = is.Msg
		}
		if _, dup := fields[key]; !dup {
			fields[key] = msg
		}
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		label := fieldNames[k]
		if label == "" {
			label = k
		}
		parts = append(parts, label+" "+fields[k])
	}
	if len(parts) == 0 {
		return msgInvalid, fields
	}
	return strings.Join(parts, "; ") + ".", fields
}

// fieldKey picks the innermost named segment of a FastAPI error location.
func fieldKey(loc []any) string {
	for i := len(loc) - 1; i >= 0; i-- {
		if s, ok := loc[i].(string); ok && s != "body" && s != "query" && s != "path" {
			return s
		}
	}
	return "_"
}
