package pkg

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/simp-lee/itemhub/internal/domain"
)

// Response is the JSON envelope for every API response.
// Success is derived from ResponseCode and is never set independently.
type Response struct {
	Success      bool        `json:"success"`
	ResponseCode int         `json:"response_code"`
	Message      string      `json:"message"`
	TableName    string      `json:"table_name,omitempty"`
	Pagination   *Pagination `json:"pagination,omitempty"`
	Data         any         `json:"data,omitempty"`
}

// Option adjusts an envelope under construction.
type Option func(*Response)

// WithTableName labels the envelope with the table the data came from.
func WithTableName(name string) Option {
	return func(r *Response) { r.TableName = name }
}

// WithPagination attaches pagination metadata.
func WithPagination(p Pagination) Option {
	return func(r *Response) { r.Pagination = &p }
}

// WithData attaches a payload, typically per-field validation details on errors.
func WithData(data any) Option {
	return func(r *Response) { r.Data = data }
}

func newEnvelope(code int, message string, data any, opts []Option) Response {
	r := Response{
		Success:      code < http.StatusBadRequest,
		ResponseCode: code,
		Message:      message,
		Data:         data,
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// SuccessEnvelope builds an envelope for a successful operation.
func SuccessEnvelope(data any, message string, code int, opts ...Option) Response {
	return newEnvelope(code, message, data, opts)
}

// ErrorEnvelope builds an envelope for a failed operation. Data is omitted
// unless WithData is given.
func ErrorEnvelope(message string, code int, opts ...Option) Response {
	return newEnvelope(code, message, nil, opts)
}

// ListEnvelope builds a success envelope with pagination computed from total.
// A nil slice is rendered as an empty JSON array.
func ListEnvelope(data any, message string, code int, tableName string, page, perPage int, total int64) Response {
	return newEnvelope(code, message, emptyIfNil(data), []Option{
		WithTableName(tableName),
		WithPagination(NewPagination(page, perPage, total)),
	})
}

// emptyIfNil replaces a nil slice (or nil data) with an empty slice of the same type.
func emptyIfNil(data any) any {
	if data == nil {
		return []any{}
	}
	v := reflect.ValueOf(data)
	if v.Kind() == reflect.Slice && v.IsNil() {
		return reflect.MakeSlice(v.Type(), 0, 0).Interface()
	}
	return data
}

// Success renders a success envelope with the given status.
func Success(c *gin.Context, code int, message string, data any, opts ...Option) {
	c.JSON(code, SuccessEnvelope(data, message, code, opts...))
}

// List renders a 200 paginated envelope for one page of rows.
func List(c *gin.Context, message, tableName string, req domain.PageRequest, total int64, data any) {
	c.JSON(http.StatusOK, ListEnvelope(data, message, http.StatusOK, tableName, req.Page, req.PerPage, total))
}

// NoContent renders an empty 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Fail records err for the error dispatcher and stops the handler chain.
// Handlers must not render error envelopes themselves.
func Fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// BindAndValidate binds the JSON request body to obj and validates it.
// On failure it records a validation error and returns false.
// Usage in handlers:
//
//	if !pkg.BindAndValidate(c, &req) { return }
func BindAndValidate(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		Fail(c, BindingError(err, obj, ""))
		return false
	}
	return true
}

// BindingError converts a binding or validation failure into a validation
// AppError. Per-field messages are keyed by JSON name, prefixed with prefix
// when non-empty (for example "items[2].").
func BindingError(err error, obj any, prefix string) *domain.AppError {
	if details := ValidationDetails(err, obj, prefix); details != nil {
		return domain.NewValidationError("Validation error", details)
	}

	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &typeErr) && typeErr.Field != "":
		return domain.NewValidationError("Invalid request body", map[string]string{
			prefix + typeErr.Field: "type",
		})
	case errors.Is(err, io.EOF):
		return domain.NewValidationError("Invalid request body", map[string]string{"body": "required"})
	default:
		return domain.NewValidationError("Invalid request body", map[string]string{"body": "json"})
	}
}

// ValidationDetails extracts per-field messages from validator errors.
// It returns nil when err is not a validator.ValidationErrors.
func ValidationDetails(err error, obj any, prefix string) map[string]string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return nil
	}

	jsonTags := buildJSONTagMap(obj)

	fieldErrors := make(map[string]string, len(ve))
	for _, fe := range ve {
		name, ok := jsonTags[fe.StructField()]
		if !ok {
			name = strings.ToLower(fe.Field())
		}
		msg := fe.Tag()
		if fe.Param() != "" {
			msg += "=" + fe.Param()
		}
		fieldErrors[prefix+name] = msg
	}
	return fieldErrors
}

// ItemsPrefix returns the detail-key prefix for element i of a JSON array body.
func ItemsPrefix(i int) string {
	return "items[" + strconv.Itoa(i) + "]."
}

// buildJSONTagMap returns a map from struct field name to its JSON tag name.
// If obj is nil or not a struct (pointer), it returns nil.
func buildJSONTagMap(obj any) map[string]string {
	if obj == nil {
		return nil
	}
	t := reflect.TypeOf(obj)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}
	m := make(map[string]string, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if name := parseJSONTagName(f.Tag.Get("json")); name != "" {
			m[f.Name] = name
		}
	}
	return m
}

// parseJSONTagName extracts the field name from a JSON struct tag value.
func parseJSONTagName(tag string) string {
	if tag == "" || tag == "-" {
		return ""
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" || name == "-" {
		return ""
	}
	return name
}
