package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

type HealthHandler struct {
	provider string
	model    string
	started  time.Time
}

func NewHealthHandler(provider, model string) *HealthHandler {
	return &HealthHandler{
		provider: provider,
		model:    model,
		started:  time.Now(),
	}
}

// HandleHealth handles GET /health
func (h *HealthHandler) HandleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":   "healthy",
		"time":     time.Now(),
		"uptime":   time.Since(h.started).Round(time.Second).String(),
		"provider": h.provider,
		"model":    h.model,
	})
}

// HandleIndex handles GET /
func (h *HealthHandler) HandleIndex(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": "Hiring Evaluator API",
		"version": "1.0.0",
		"endpoints": []string{
			"POST /api/v1/analyze",
			"GET /api/v1/health",
			"GET /metrics",
		},
	})
}
