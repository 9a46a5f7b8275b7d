package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"irrigation-backend/internal/apierr"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// Struct checks s against its `validate` tags and converts failures into a
// field-level *apierr.ValidationError.
func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apierr.BadRequest("Invalid request payload")
	}

	out := &apierr.ValidationError{}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, apierr.FieldError{
			Field:   fe.Field(),
			Message: message(fe),
		})
	}
	return out
}

// ParseBody decodes the JSON body into dst and validates it.
func ParseBody(c *fiber.Ctx, dst any) error {
	if err := Decode(c, dst); err != nil {
		return err
	}
	return Struct(dst)
}

// Decode fills dst from the request body without validating it. JSON keys
// may be sent in camelCase or snake_case; a value of the wrong JSON type is
// reported against its field.
func Decode(c *fiber.Ctx, dst any) error {
	ct := strings.ToLower(string(c.Request().Header.ContentType()))
	if !strings.HasPrefix(ct, fiber.MIMEApplicationJSON) {
		if err := c.BodyParser(dst); err != nil {
			return apierr.BadRequest("Invalid request body")
		}
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(c.Body()))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return apierr.BadRequest("Request body is not valid JSON")
	}
	normalized, err := json.Marshal(snakeKeys(raw))
	if err != nil {
		return apierr.BadRequest("Request body is not valid JSON")
	}

	if err := json.Unmarshal(normalized, dst); err != nil {
		var te *json.UnmarshalTypeError
		if errors.As(err, &te) {
			if te.Field == "" {
				return apierr.BadRequest("Request body must be a JSON object")
			}
			return apierr.Fields(te.Field, "has the wrong type")
		}
		return apierr.BadRequest("Invalid request body: " + err.Error())
	}
	return nil
}

// snakeKeys renames the keys of the top-level object and of objects held in
// its top-level arrays. Deeper objects (specifications, metadata) are user
// data and keep their keys. An explicit snake_case key wins over its
// camelCase twin.
func snakeKeys(v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	out := renameKeys(m)
	for k, val := range out {
		list, ok := val.([]any)
		if !ok {
			continue
		}
		for i, el := range list {
			if obj, ok := el.(map[string]any); ok {
				list[i] = renameKeys(obj)
			}
		}
		out[k] = list
	}
	return out
}

func renameKeys(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		sk := SnakeCase(k)
		if sk != k {
			if _, explicit := m[sk]; explicit {
				continue
			}
		}
		out[sk] = v
	}
	return out
}

// SnakeCase turns "customerName" into "customer_name" and "userID" into
// "user_id".
func SnakeCase(s string) string {
	rs := []rune(s)
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i, r := range rs {
		if unicode.IsUpper(r) {
			if i > 0 && rs[i-1] != '_' {
				prevLower := unicode.IsLower(rs[i-1]) || unicode.IsDigit(rs[i-1])
				nextLower := i+1 < len(rs) && unicode.IsLower(rs[i+1])
				if prevLower || nextLower {
					b.WriteByte('_')
				}
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

func message(fe validator.FieldError) string {
	isString := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "required", "required_without":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "url", "http_url":
		return "must be a valid URL"
	case "min":
		if isString {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		if fe.Kind() == reflect.Slice || fe.Kind() == reflect.Map {
			return fmt.Sprintf("must contain at least %s entries", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if isString {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be %s or more", fe.Param())
	case "lte":
		return fmt.Sprintf("must be %s or less", fe.Param())
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	}
	return "is invalid"
}
