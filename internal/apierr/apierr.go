// Package apierr carries the error taxonomy shared by every handler:
// field-level validation failures, coded auth errors and opaque server errors.
package apierr

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const (
	CodeValidation         = "validation_failed"
	CodeInvalidCredentials = "invalid_credentials"
	CodeMissingToken       = "missing_token"
	CodeInvalidToken       = "invalid_token"
	CodeTokenExpired       = "token_expired"
	CodeForbidden          = "forbidden"
	CodeNotFound           = "not_found"
	CodeBadRequest         = "bad_request"
	CodeConflict           = "conflict"
	CodeInternal           = "internal_error"
	CodeTooManyRequests    = "too_many_requests"
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is returned when a payload fails field rules. Nothing is
// written when it is returned.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Has reports whether field failed validation.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// Fields builds a ValidationError from field/message pairs.
func Fields(pairs ...string) *ValidationError {
	ve := &ValidationError{}
	for i := 0; i+1 < len(pairs); i += 2 {
		ve.Fields = append(ve.Fields, FieldError{Field: pairs[i], Message: pairs[i+1]})
	}
	return ve
}

// Error is a user-visible error with a stable machine code.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

func New(status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

func BadRequest(message string) *Error {
	return New(fiber.StatusBadRequest, CodeBadRequest, message)
}

func NotFound(message string) *Error {
	return New(fiber.StatusNotFound, CodeNotFound, message)
}

// Internal hides the cause from the client; the cause is logged by Handler.
func Internal(message string, cause error) error {
	return &internalError{public: message, cause: cause}
}

type internalError struct {
	public string
	cause  error
}

func (e *internalError) Error() string {
	if e.cause == nil {
		return e.public
	}
	return e.public + ": " + e.cause.Error()
}

func (e *internalError) Unwrap() error { return e.cause }

var (
	ErrInvalidCredentials = New(fiber.StatusUnauthorized, CodeInvalidCredentials, "Invalid email or password")
	ErrMissingToken       = New(fiber.StatusUnauthorized, CodeMissingToken, "Authorization header is missing")
	ErrInvalidToken       = New(fiber.StatusUnauthorized, CodeInvalidToken, "Authorization token is invalid")
	ErrTokenExpired       = New(fiber.StatusUnauthorized, CodeTokenExpired, "Authorization token has expired")
	ErrForbidden          = New(fiber.StatusForbidden, CodeForbidden, "You are not allowed to perform this action")
)

// Handler is the Fiber ErrorHandler. Validation and auth errors are returned
// with detail; everything else is logged and reported generically.
func Handler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var ve *ValidationError
		if errors.As(err, &ve) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":  "Validation failed",
				"code":   CodeValidation,
				"fields": ve.Fields,
			})
		}

		var ae *Error
		if errors.As(err, &ae) {
			return c.Status(ae.Status).JSON(fiber.Map{
				"error": ae.Message,
				"code":  ae.Code,
			})
		}

		var ie *internalError
		if errors.As(err, &ie) {
			log.Error("request failed",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Error(err),
			)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": ie.public,
				"code":  CodeInternal,
			})
		}

		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{
				"error": fe.Message,
				"code":  codeForStatus(fe.Code),
			})
		}

		log.Error("unexpected error",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unexpected server error",
			"code":  CodeInternal,
		})
	}
}

func codeForStatus(status int) string {
	switch status {
	case fiber.StatusBadRequest:
		return CodeBadRequest
	case fiber.StatusUnauthorized:
		return CodeInvalidToken
	case fiber.StatusForbidden:
		return CodeForbidden
	case fiber.StatusNotFound:
		return CodeNotFound
	case fiber.StatusConflict:
		return CodeConflict
	case fiber.StatusTooManyRequests:
		return CodeTooManyRequests
	}
	if status >= 500 {
		return CodeInternal
	}
	return CodeBadRequest
}
