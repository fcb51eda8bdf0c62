package dashboard

import (
	"apex-dashboard/internal/common/api"
	"apex-dashboard/internal/common/models"
	"apex-dashboard/internal/config"
	"apex-dashboard/internal/middleware"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

type DashboardApi struct {
	DashboardController *DashboardController
	WebSocketController *WebSocketController
	Config              *config.Config
}

func NewDashboardApi(dashboardController *DashboardController, wsController *WebSocketController, cfg *config.Config) api.Route {
	return &DashboardApi{
		DashboardController: dashboardController,
		WebSocketController: wsController,
		Config:              cfg,
	}
}

func (api *DashboardApi) Setup(app *fiber.App) {
	limiter := middleware.NewKeyedLimiter(api.Config.PointerRateLimit, api.Config.PointerRateLimit)
	api.WebSocketController.Limiter = limiter

	auth := middleware.AuthMiddleware(api.Config.SkipAuth)
	group := app.Group("/api/dashboard", auth)

	group.Get("/", api.DashboardController.GetState)
	group.Put("/active", api.DashboardController.SetActive)
	group.Put("/role", api.DashboardController.SetRole)
	group.Put("/encryption", middleware.RequireRole(models.RoleAdmin), api.DashboardController.SetEncryption)
	group.Get("/export", api.DashboardController.Export)
	group.Post("/import", middleware.RequireRole(models.RoleAdmin), api.DashboardController.Import)
	group.Post("/widgets/:id/pointer", middleware.RateLimit(limiter), api.DashboardController.Pointer)

	group.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	group.Get("/ws", websocket.New(api.WebSocketController.HandleWebSocket))

	app.Get("/api/widgets/types", auth, api.DashboardController.ListWidgetTypes)
}
