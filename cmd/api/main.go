package main

import (
	"context"
	"fmt"
	"log"

	common_api "apex-dashboard/internal/common/api"
	"apex-dashboard/internal/config"
	"apex-dashboard/internal/database"
	"apex-dashboard/internal/features/dashboard"
	"apex-dashboard/internal/features/extension"
	"apex-dashboard/internal/features/settings"
	"apex-dashboard/internal/features/system"
	"apex-dashboard/internal/features/vault"
	"apex-dashboard/internal/features/widget"
	"apex-dashboard/internal/logger"
	"apex-dashboard/internal/metrics"
	"apex-dashboard/internal/middleware"
	"apex-dashboard/pkg/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// NewFiberServer creates a new Fiber app instance
func NewFiberServer(cfg *config.Config) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(recover.New())
	app.Use(middleware.CORSMiddleware(cfg.CORSOrigins))
	app.Use(middleware.MetricsMiddleware())

	return app
}

// AsRoute is a helper function to reduce boilerplate.
// It tags the constructor so Fx knows to add it to the "routes" group.
func AsRoute(f any) any {
	return fx.Annotate(
		f,
		fx.As(new(common_api.Route)),    // Cast to Interface
		fx.ResultTags(`group:"routes"`), // Add to Group
	)
}

// RegisterAllRoutes takes the group "routes" (slice of interfaces)
// and calls Setup() on each one.
func RegisterAllRoutes(app *fiber.App, routes []common_api.Route, log *zap.Logger) {
	for _, route := range routes {
		log.Debug("setting up routes", zap.String("api", fmt.Sprintf("%T", route)))
		route.Setup(app)
	}
	log.Info("routes registered", zap.Int("count", len(routes)))
}

// RegisterAllRoutesWithAnnotation wraps RegisterAllRoutes with fx annotations
var RegisterAllRoutesWithAnnotation = fx.Annotate(
	RegisterAllRoutes,
	fx.ParamTags(``, `group:"routes"`, ``),
)

// StartServer creates a lifecycle hook to start Fiber in a goroutine
// and shut it down when the app exits.
func StartServer(lc fx.Lifecycle, app *fiber.App, cfg *config.Config, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				port := fmt.Sprintf(":%s", cfg.Port)
				logger.Info("listening", zap.String("addr", port))
				if err := app.Listen(port); err != nil {
					log.Fatalf("Server failed to start: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return app.ShutdownWithContext(ctx)
		},
	})
}

// StartDashboard renders the persisted dashboard, then loads plugins in
// the background and re-renders so plugin widget types show up.
func StartDashboard(lc fx.Lifecycle, svc dashboard.DashboardService, loader extension.PluginLoader, log *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := svc.Start(ctx); err != nil {
				log.Warn("dashboard started with errors", zap.Error(err))
			}
			go func() {
				bg := context.Background()
				report := loader.LoadAll(bg, svc)
				if len(report.Plugins) == 0 {
					return
				}
				if _, err := svc.Render(bg); err != nil {
					log.Warn("re-render after plugin load failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			svc.Shutdown()
			return nil
		},
	})
}

// @title           Apex Dashboard API
// @version         1.0
// @description     Grid layout and state persistence for the Apex dashboard.

// @BasePath        /
func main() {
	app := fx.New(
		fx.Provide(
			// Load Config
			config.LoadConfig,

			// Initialize Logger
			logger.NewLifecycleLogBuffer,
			logger.NewLogger,

			// Initialize Fiber Server
			NewFiberServer,

			// Initialize Database
			database.NewDatabase,

			// Persistence
			vault.NewVaultService,
			settings.NewSettingsRepository,
			settings.NewConfigStore,

			// Dashboard engine
			widget.NewDefaultRegistry,
			widget.NewScheduler,
			dashboard.NewHub,
			dashboard.NewDashboardService,
			extension.NewPluginLoader,

			func(s dashboard.DashboardService) extension.Host { return s },

			// Initialize Controller
			settings.NewSettingsController,
			dashboard.NewDashboardController,
			dashboard.NewWebSocketController,
			extension.NewExtensionController,
			system.NewSystemController,

			// Initialize API Routes
			AsRoute(settings.NewSettingsApi),
			AsRoute(dashboard.NewDashboardApi),
			AsRoute(extension.NewExtensionApi),
			AsRoute(system.NewSystemApi),
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(
			metrics.Register,
			func(cfg *config.Config) { utils.SetSecret(cfg.JWTSecret) },
			RegisterAllRoutesWithAnnotation,
			StartServer,
			StartDashboard,
		),
	)

	app.Run()
}
