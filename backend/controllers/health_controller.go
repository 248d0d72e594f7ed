package controllers

import (
	"context"
	"time"

	"career-roadmap/backend/repository"
	"career-roadmap/backend/utils"

	"github.com/gofiber/fiber/v2"
)

const readyMessage = "Career Roadmap backend ready"

type HealthController struct {
	Store   repository.Store
	Timeout time.Duration
}

func NewHealthController(store repository.Store) *HealthController {
	return &HealthController{Store: store, Timeout: 2 * time.Second}
}

// Ready godoc
// @Summary Readiness text
// @Tags system
// @Produce json
// @Success 200 {object} utils.MessageResponse
// @Router / [get]
func (hc *HealthController) Ready(c *fiber.Ctx) error {
	return utils.Message(c, readyMessage)
}

// Health godoc
// @Summary Storage health
// @Description Pings the database (and the cache when one is configured)
// @Tags system
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /healthz [get]
func (hc *HealthController) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), hc.Timeout)
	defer cancel()

	if err := hc.Store.Ping(ctx); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unavailable",
			"error":  err.Error(),
		})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}
