package http

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/smartcity/flowsense/internal/domain"
	"github.com/smartcity/flowsense/internal/service"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// Handler contains all HTTP handlers
type Handler struct {
	signalSvc *service.SignalService
}

// NewHandler creates a new handler
func NewHandler(signalSvc *service.SignalService) *Handler {
	return &Handler{
		signalSvc: signalSvc,
	}
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(c *fiber.Ctx) error {
	storage := h.signalSvc.StorageName()
	if err := h.signalSvc.StorageHealth(c.Context()); err != nil {
		log.Printf("Storage health check failed: %v", err)
		storage += " (unreachable)"
	}

	return c.JSON(fiber.Map{
		"status":  "ok",
		"message": "Backend is running",
		"storage": storage,
	})
}

// GetStatus returns the live intersection state
func (h *Handler) GetStatus(c *fiber.Ctx) error {
	return c.JSON(domain.StatusResponse{
		Data:    h.signalSvc.Status(),
		Success: true,
	})
}

// GetHistory returns the most recent phase events
func (h *Handler) GetHistory(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", defaultHistoryLimit)
	if limit < 1 || limit > maxHistoryLimit {
		limit = defaultHistoryLimit
	}

	events, err := h.signalSvc.History(c.Context(), limit)
	if err != nil {
		log.Printf("History request failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    events,
		"count":   len(events),
	})
}

// StartProcessing starts lane sampling for the requested video source
func (h *Handler) StartProcessing(c *fiber.Ctx) error {
	var req domain.StartRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "Invalid request body",
			})
		}
	}

	if err := h.signalSvc.Start(req.VideoPath); err != nil {
		if errors.Is(err, domain.ErrAlreadyRunning) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "Already processing",
			})
		}
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to start processing")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Processing started",
	})
}

// StopProcessing stops lane sampling
func (h *Handler) StopProcessing(c *fiber.Ctx) error {
	h.signalSvc.Stop()

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Processing stopped",
	})
}

// ErrorHandler converts returned errors into the API's JSON envelope
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}
