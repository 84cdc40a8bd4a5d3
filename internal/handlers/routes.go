package handlers

import "github.com/gofiber/fiber/v2"

// RegisterRoutes mounts the API and health endpoints
func RegisterRoutes(app fiber.Router, summarize *SummarizeHandler, health *HealthHandler) {
	app.Get("/health", health.Handle)

	api := app.Group("/api")
	api.Get("/test", summarize.Test)
	api.Get("/summarize/:handle", summarize.Summarize)
	api.Get("/summarize", summarize.Summarize)
	api.Get("/clear/:handle", summarize.Clear)
	api.Get("/clear", summarize.Clear)
}
