package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/smartcity/flowsense/internal/service"
)

// SetupRoutes configures all HTTP routes
func SetupRoutes(app *fiber.App, signalSvc *service.SignalService) {
	handler := NewHandler(signalSvc)

	api := app.Group("/api")
	{
		api.Get("/health", handler.HealthCheck)

		// Live state and history
		api.Get("/status", handler.GetStatus)
		api.Get("/history", handler.GetHistory)

		// Lane sampling control
		api.Post("/start", handler.StartProcessing)
		api.Post("/stop", handler.StopProcessing)
	}
}
