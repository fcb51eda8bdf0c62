package settings

import (
	"github.com/gofiber/fiber/v2"
)

type SettingsController struct {
	Store ConfigStore
}

func NewSettingsController(store ConfigStore) *SettingsController {
	return &SettingsController{
		Store: store,
	}
}

// GetStorageStatus godoc
// @Summary Get storage status
// @Description Driver, encryption mode and revision of the persisted dashboard document
// @Tags settings
// @Produce json
// @Success 200 {object} StorageStatus
// @Router /api/settings/storage [get]
func (c *SettingsController) GetStorageStatus(ctx *fiber.Ctx) error {
	status := c.Store.Status(ctx.UserContext())
	if status.Revision != "" {
		ctx.Set(fiber.HeaderETag, `"`+status.Revision+`"`)
	}
	return ctx.JSON(status)
}
