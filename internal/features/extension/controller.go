package extension

import (
	"github.com/gofiber/fiber/v2"
)

type ExtensionController struct {
	Loader PluginLoader
	Host   Host
}

func NewExtensionController(loader PluginLoader, host Host) *ExtensionController {
	return &ExtensionController{
		Loader: loader,
		Host:   host,
	}
}

// GetReport godoc
// @Summary Plugin load report
// @Description Result of the last plugin load, one entry per plugin
// @Tags plugins
// @Produce json
// @Success 200 {object} Report
// @Router /api/plugins [get]
func (ctrl *ExtensionController) GetReport(c *fiber.Ctx) error {
	return c.JSON(ctrl.Loader.LastReport())
}

// Reload godoc
// @Summary Reload plugins
// @Description Re-reads the manifest, loads every plugin again and re-renders the dashboard
// @Tags plugins
// @Produce json
// @Success 200 {object} Report
// @Router /api/plugins/reload [post]
func (ctrl *ExtensionController) Reload(c *fiber.Ctx) error {
	report := ctrl.Loader.LoadAll(c.UserContext(), ctrl.Host)
	if len(report.Plugins) > 0 {
		// Render failures end up in the dashboard state, not the report.
		_, _ = ctrl.Host.Render(c.UserContext())
	}
	return c.JSON(report)
}
