package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"sumup/internal/jobs"
	"sumup/internal/services"
)

// JobStatusSource reports the state of scheduled jobs
type JobStatusSource interface {
	GetStatus() map[string]jobs.JobStatus
}

// HealthHandler handles health check requests
type HealthHandler struct {
	sessions services.SessionSource
	cache    *services.SummaryCache
	jobs     JobStatusSource
}

// NewHealthHandler creates a new health handler. scheduler may be nil.
func NewHealthHandler(sessions services.SessionSource, cache *services.SummaryCache, scheduler JobStatusSource) *HealthHandler {
	return &HealthHandler{sessions: sessions, cache: cache, jobs: scheduler}
}

// Handle responds with server health status
func (h *HealthHandler) Handle(c *fiber.Ctx) error {
	session := h.sessions.Current()
	if session == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status":    "unhealthy",
			"session":   nil,
			"jobs":      h.jobStatus(),
			"timestamp": time.Now().Format(time.RFC3339),
		})
	}

	return c.JSON(fiber.Map{
		"status": "healthy",
		"session": fiber.Map{
			"handle":     session.Handle,
			"acquiredAt": session.AcquiredAt.Format(time.RFC3339),
		},
		"cacheEntries": h.cache.Count(),
		"jobs":         h.jobStatus(),
		"timestamp":    time.Now().Format(time.RFC3339),
	})
}

func (h *HealthHandler) jobStatus() map[string]jobs.JobStatus {
	if h.jobs == nil {
		return map[string]jobs.JobStatus{}
	}
	return h.jobs.GetStatus()
}
