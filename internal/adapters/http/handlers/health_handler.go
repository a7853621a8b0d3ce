package handlers

import (
	"github.com/RusinduKasun/ITP-Project-2025-sub000/internal/config"
	"github.com/RusinduKasun/ITP-Project-2025-sub000/internal/core/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	db       *gorm.DB
	notifier *services.NotificationService
	cfg      *config.Config
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db *gorm.DB, notifier *services.NotificationService, cfg *config.Config) *HealthHandler {
	return &HealthHandler{db: db, notifier: notifier, cfg: cfg}
}

// Root handles root endpoint
// @Summary Root endpoint
// @Description Returns API status
// @Tags Health
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func (h *HealthHandler) Root(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "running",
		"message": "🚀 ITP Accounts API v1.0 is running",
		"mode":    h.cfg.AppMode,
		"docs":    "/swagger/index.html",
	})
}

// HealthCheck handles health check
// @Summary Health check
// @Description Check API and database health. Mail without a configured
// @Description channel reports "degraded" but does not fail the check.
// @Tags Health
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health [get]
func (h *HealthHandler) HealthCheck(c *fiber.Ctx) error {
	status := fiber.StatusOK
	dbStatus := "healthy"
	if err := config.HealthCheck(h.db); err != nil {
		status = fiber.StatusServiceUnavailable
		dbStatus = "unhealthy"
	}

	mailStatus := "healthy"
	if !h.notifier.IsEnabled() {
		mailStatus = "degraded"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": "ok",
		"checks": fiber.Map{
			"api":           "healthy",
			"database":      dbStatus,
			"mail":          mailStatus,
			"mail_channels": h.notifier.ConfiguredChannels(),
		},
	})
}
