package system

import (
	"context"
	"errors"
	"time"

	"apex-dashboard/internal/config"
	"apex-dashboard/internal/database"
	"apex-dashboard/internal/logger"
	"apex-dashboard/pkg/utils"

	"github.com/gofiber/fiber/v2"
)

type SystemController struct {
	Store   database.KVStore
	Config  *config.Config
	Logs    *logger.LogBuffer
	started time.Time
}

func NewSystemController(store database.KVStore, cfg *config.Config, logs *logger.LogBuffer) *SystemController {
	return &SystemController{
		Store:   store,
		Config:  cfg,
		Logs:    logs,
		started: time.Now(),
	}
}

// Health godoc
// @Summary      Health check
// @Description  Reports whether the persistence store answers
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      503  {object}  map[string]interface{}
// @Router       /api/health [get]
func (c *SystemController) Health(ctx *fiber.Ctx) error {
	probeCtx, cancel := context.WithTimeout(ctx.UserContext(), 2*time.Second)
	defer cancel()

	status := "healthy"
	code := fiber.StatusOK
	storeStatus := "ok"
	if _, err := c.Store.Get(probeCtx, c.Config.ConfigKey); err != nil && !errors.Is(err, database.ErrKeyNotFound) {
		status = "degraded"
		code = fiber.StatusServiceUnavailable
		storeStatus = err.Error()
	}

	return ctx.Status(code).JSON(fiber.Map{
		"status":  status,
		"service": c.Config.AppId,
		"store": fiber.Map{
			"driver": c.Config.StoreDriver,
			"status": storeStatus,
		},
		"uptime": time.Since(c.started).Round(time.Second).String(),
	})
}

// GetCurrentUser godoc
// @Summary      Get current user info
// @Description  Get the current user's info from JWT
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/me [get]
func (c *SystemController) GetCurrentUser(ctx *fiber.Ctx) error {
	claims, ok := ctx.Locals(utils.UserClaimsKey).(*utils.UserClaims)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	return ctx.JSON(fiber.Map{
		"user_id": claims.UserID,
		"roles":   claims.Roles,
	})
}

// GetRecentLogs godoc
// @Summary      Recent warnings and errors
// @Tags         system
// @Produce      json
// @Param        limit  query  int  false  "Maximum entries, newest first"
// @Success      200  {array}  logger.LogEntry
// @Router       /api/logs [get]
func (c *SystemController) GetRecentLogs(ctx *fiber.Ctx) error {
	return ctx.JSON(c.Logs.Recent(ctx.QueryInt("limit", 50)))
}
