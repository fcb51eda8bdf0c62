package system

import (
	"apex-dashboard/internal/common/api"
	"apex-dashboard/internal/common/models"
	"apex-dashboard/internal/config"
	"apex-dashboard/internal/metrics"
	"apex-dashboard/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type SystemApi struct {
	controller *SystemController
	config     *config.Config
}

func NewSystemApi(controller *SystemController, cfg *config.Config) api.Route {
	return &SystemApi{
		controller: controller,
		config:     cfg,
	}
}

func (h *SystemApi) Setup(app *fiber.App) {
	app.Get("/api/health", h.controller.Health)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))
	auth := middleware.AuthMiddleware(h.config.SkipAuth)
	app.Get("/api/me", auth, h.controller.GetCurrentUser)
	app.Get("/api/logs", auth, middleware.RequireRole(models.RoleAdmin), h.controller.GetRecentLogs)
}
