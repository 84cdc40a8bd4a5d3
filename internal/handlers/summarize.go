package handlers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"sumup/internal/logging"
	"sumup/internal/models"
	"sumup/internal/services"
)

// Error messages returned to the frontend
const (
	msgAccountNotFound = "account not found"
	msgProcessingError = "could not process account"
	msgMissingHandle   = "handle is required"
)

// SummarizeHandler serves summarization and cache-busting requests
type SummarizeHandler struct {
	service *services.SummarizeService
	timeout time.Duration
}

// NewSummarizeHandler creates a new summarize handler. timeout bounds the
// whole upstream pipeline of one request; zero means no bound.
func NewSummarizeHandler(service *services.SummarizeService, timeout time.Duration) *SummarizeHandler {
	return &SummarizeHandler{service: service, timeout: timeout}
}

// Summarize handles GET /api/summarize/:handle?type=&style=
func (h *SummarizeHandler) Summarize(c *fiber.Ctx) error {
	handle := c.Params("handle")
	if strings.TrimSpace(handle) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{Error: msgMissingHandle})
	}
	summaryType := services.ParseSummaryType(c.Query("type"))
	style := c.Query("style")

	logger := logging.WithRequest(requestID(c), handle)

	ctx := c.UserContext()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	entry, err := h.service.Summarize(ctx, handle, summaryType, style)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUnknownSummaryType):
			logger.Info("summarize_rejected", "type", summaryType)
			return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{Error: err.Error()})
		case errors.Is(err, services.ErrAccountNotFound):
			logger.Info("summarize_not_found")
			return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{Error: msgAccountNotFound})
		default:
			logger.Error("summarize_failed", "type", summaryType, "style", style, "error", err)
			return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{Error: msgProcessingError})
		}
	}

	return c.JSON(entry)
}

// Clear handles GET /api/clear/:handle with optional type and style
func (h *SummarizeHandler) Clear(c *fiber.Ctx) error {
	handle := c.Params("handle")
	if strings.TrimSpace(handle) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{Error: msgMissingHandle})
	}

	var summaryType models.SummaryType
	if raw := c.Query("type"); raw != "" {
		summaryType = services.ParseSummaryType(raw)
	}

	cleared := h.service.Clear(handle, summaryType, c.Query("style"))
	logging.WithRequest(requestID(c), handle).Info("cache_cleared", "type", summaryType, "entries", cleared)

	return c.JSON(fiber.Map{"cleared": cleared})
}

// Test handles GET /api/test
func (h *SummarizeHandler) Test(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"result": "Test"})
}

func requestID(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestid").(string); ok {
		return id
	}
	return ""
}
