package utils

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// ValidationError reports a missing or malformed request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Invalid builds a ValidationError for field.
func Invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// NotFoundError reports that a referenced entity does not exist.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string { return e.Entity + " not found" }

func NotFound(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

// AuthorizationError reports a policy denial. Action reads like
// "update this task".
type AuthorizationError struct {
	Action string
}

func (e *AuthorizationError) Error() string { return "Not authorized to " + e.Action }

func Forbidden(action string) *AuthorizationError {
	return &AuthorizationError{Action: action}
}

// AuthenticationError reports missing or bad credentials.
type AuthenticationError struct {
	Message string
}

func (e *AuthenticationError) Error() string { return e.Message }

// ConflictError reports a uniqueness violation.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// StatusFor maps an error from the taxonomy to its HTTP status.
func StatusFor(err error) int {
	var (
		validation *ValidationError
		notFound   *NotFoundError
		authz      *AuthorizationError
		authn      *AuthenticationError
		conflict   *ConflictError
		fiberErr   *fiber.Error
	)
	switch {
	case errors.As(err, &validation):
		return fiber.StatusBadRequest
	case errors.As(err, &authn):
		return fiber.StatusUnauthorized
	case errors.As(err, &authz):
		return fiber.StatusForbidden
	case errors.As(err, &notFound):
		return fiber.StatusNotFound
	case errors.As(err, &conflict):
		return fiber.StatusConflict
	case errors.As(err, &fiberErr):
		return fiberErr.Code
	}
	return fiber.StatusInternalServerError
}

// HandleError writes the JSON error response for err. Errors outside the
// taxonomy are logged and reported as a generic server error.
func HandleError(c *fiber.Ctx, err error) error {
	status := StatusFor(err)
	body := fiber.Map{"error": err.Error()}

	var validation *ValidationError
	if errors.As(err, &validation) && validation.Field != "" {
		body["field"] = validation.Field
	}

	if status == fiber.StatusInternalServerError {
		LogError("request_failed", err, map[string]interface{}{
			"method": c.Method(),
			"path":   c.Path(),
		})
		body["error"] = "Internal server error"
	}
	return c.Status(status).JSON(body)
}

// FiberErrorHandler routes errors returned from handlers through HandleError.
func FiberErrorHandler(c *fiber.Ctx, err error) error {
	return HandleError(c, err)
}
