package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"sumup/internal/models"
)

// ErrorHandler answers any error that escaped a handler with a generic 400
// so one failing request never takes the process down. Routing errors keep
// their own status.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) && fiberErr.Code == fiber.StatusNotFound {
		return c.Status(fiberErr.Code).JSON(models.ErrorResponse{Error: fiberErr.Message})
	}

	slog.Error("unhandled_request_error",
		"method", c.Method(),
		"path", c.Path(),
		"request_id", requestID(c),
		"error", err)

	return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{Error: "request failed"})
}
