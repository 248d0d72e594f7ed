package utils

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Kind    string            `json:"kind,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// MessageResponse is returned by operations that have nothing else to report.
type MessageResponse struct {
	Message string `json:"message"`
}

// Success writes data as JSON with the given status.
func Success(c *fiber.Ctx, status int, data interface{}) error {
	return c.Status(status).JSON(data)
}

// Message writes {"message": msg} with status 200.
func Message(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusOK).JSON(MessageResponse{Message: msg})
}

// Error writes err with the status its kind maps to.
func Error(c *fiber.Ctx, err error) error {
	var ae *AppError
	if !errors.As(err, &ae) {
		return InternalServerError(c, err.Error())
	}
	if ae.Kind == KindNotFound {
		return NotFound(c)
	}
	return c.Status(HTTPStatus(err)).JSON(ErrorResponse{
		Error:   err.Error(),
		Kind:    string(ae.Kind),
		Details: ae.Fields,
	})
}

// NotFound sends a 404 with the fixed "not found" message.
func NotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "not found", Kind: string(KindNotFound)})
}

// InternalServerError sends a 500.
func InternalServerError(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: message})
}
