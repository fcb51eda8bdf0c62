package extension

import (
	"apex-dashboard/internal/common/api"
	"apex-dashboard/internal/common/models"
	"apex-dashboard/internal/config"
	"apex-dashboard/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type ExtensionApi struct {
	Controller *ExtensionController
	Config     *config.Config
}

func NewExtensionApi(controller *ExtensionController, cfg *config.Config) api.Route {
	return &ExtensionApi{
		Controller: controller,
		Config:     cfg,
	}
}

func (a *ExtensionApi) Setup(app *fiber.App) {
	group := app.Group("/api/plugins")

	group.Use(middleware.AuthMiddleware(a.Config.SkipAuth))

	group.Get("/", a.Controller.GetReport)
	group.Post("/reload", middleware.RequireRole(models.RoleAdmin), a.Controller.Reload)
}
