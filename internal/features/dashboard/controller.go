package dashboard

import (
	"encoding/hex"
	"encoding/json"
	"errors"

	"apex-dashboard/internal/features/widget"

	"github.com/gofiber/fiber/v2"
	"lukechampine.com/blake3"
)

type DashboardController struct {
	DashboardService DashboardService
}

func NewDashboardController(dashboardService DashboardService) *DashboardController {
	return &DashboardController{
		DashboardService: dashboardService,
	}
}

// errorStatus maps service errors onto HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, ErrInvalidImport),
		errors.Is(err, widget.ErrInvalidBounds),
		errors.Is(err, widget.ErrUnknownHandle):
		return fiber.StatusBadRequest
	case errors.Is(err, widget.ErrNotEditable):
		return fiber.StatusForbidden
	case errors.Is(err, widget.ErrUnknownWidget),
		errors.Is(err, ErrUnknownDashboard):
		return fiber.StatusNotFound
	case errors.Is(err, widget.ErrPointerCaptured):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

func fail(ctx *fiber.Ctx, err error) error {
	return ctx.Status(errorStatus(err)).JSON(fiber.Map{"error": err.Error()})
}

// renderState marshals the state and tags it with a digest of the exact
// body, so widget content and render errors change the ETag too.
func (ctrl *DashboardController) renderState() ([]byte, string, error) {
	body, err := json.Marshal(ctrl.DashboardService.State())
	if err != nil {
		return nil, "", err
	}
	sum := blake3.Sum256(body)
	return body, `"` + hex.EncodeToString(sum[:16]) + `"`, nil
}

func (ctrl *DashboardController) stateResponse(ctx *fiber.Ctx) error {
	body, etag, err := ctrl.renderState()
	if err != nil {
		return fail(ctx, err)
	}
	ctx.Set(fiber.HeaderETag, etag)
	ctx.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return ctx.Send(body)
}

// GetState godoc
// @Summary Get dashboard state
// @Description Active dashboard, role, edit permission and the rendered widgets
// @Tags dashboard
// @Produce json
// @Success 200 {object} State
// @Success 304
// @Router /api/dashboard [get]
func (ctrl *DashboardController) GetState(ctx *fiber.Ctx) error {
	body, etag, err := ctrl.renderState()
	if err != nil {
		return fail(ctx, err)
	}
	if ctx.Get(fiber.HeaderIfNoneMatch) == etag {
		return ctx.SendStatus(fiber.StatusNotModified)
	}
	ctx.Set(fiber.HeaderETag, etag)
	ctx.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return ctx.Send(body)
}

// SetActive godoc
// @Summary Switch dashboard
// @Tags dashboard
// @Accept json
// @Produce json
// @Param body body SetActiveRequest true "Dashboard id"
// @Success 200 {object} State
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/dashboard/active [put]
func (ctrl *DashboardController) SetActive(ctx *fiber.Ctx) error {
	var req SetActiveRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := ctrl.DashboardService.SetDashboard(ctx.UserContext(), req.ID); err != nil {
		return fail(ctx, err)
	}
	return ctrl.stateResponse(ctx)
}

// SetRole godoc
// @Summary Switch active role
// @Tags dashboard
// @Accept json
// @Produce json
// @Param body body SetRoleRequest true "Role"
// @Success 200 {object} State
// @Failure 400 {object} map[string]interface{}
// @Router /api/dashboard/role [put]
func (ctrl *DashboardController) SetRole(ctx *fiber.Ctx) error {
	var req SetRoleRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := ctrl.DashboardService.SetRole(ctx.UserContext(), req.Role); err != nil {
		return fail(ctx, err)
	}
	return ctrl.stateResponse(ctx)
}

// SetEncryption godoc
// @Summary Toggle at-rest encryption
// @Tags dashboard
// @Accept json
// @Produce json
// @Param body body SetEncryptionRequest true "Encryption flag"
// @Success 200 {object} State
// @Failure 400 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/dashboard/encryption [put]
func (ctrl *DashboardController) SetEncryption(ctx *fiber.Ctx) error {
	var req SetEncryptionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := ctrl.DashboardService.SetEncryption(ctx.UserContext(), req.Enabled); err != nil {
		return fail(ctx, err)
	}
	return ctrl.stateResponse(ctx)
}

// Export godoc
// @Summary Export the config
// @Description Always plaintext. format=xlsx returns a workbook with one sheet per dashboard.
// @Tags dashboard
// @Produce json
// @Param format query string false "json or xlsx"
// @Success 200 {file} file
// @Failure 400 {object} map[string]interface{}
// @Router /api/dashboard/export [get]
func (ctrl *DashboardController) Export(ctx *fiber.Ctx) error {
	var (
		filename string
		data     []byte
		err      error
	)
	switch ctx.Query("format", "json") {
	case "json":
		filename, data, err = ctrl.DashboardService.ExportConfig()
	case "xlsx":
		filename, data, err = ctrl.DashboardService.ExportWorkbook()
	default:
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "format must be json or xlsx"})
	}
	if err != nil {
		return fail(ctx, err)
	}

	ctx.Attachment(filename)
	return ctx.Send(data)
}

// Import godoc
// @Summary Import a config
// @Description Replaces the live config. Invalid documents are rejected and change nothing.
// @Tags dashboard
// @Accept json
// @Produce json
// @Success 200 {object} State
// @Failure 400 {object} map[string]interface{}
// @Router /api/dashboard/import [post]
func (ctrl *DashboardController) Import(ctx *fiber.Ctx) error {
	if err := ctrl.DashboardService.ImportConfig(ctx.UserContext(), ctx.Body()); err != nil {
		return fail(ctx, err)
	}
	return ctrl.stateResponse(ctx)
}

// Pointer godoc
// @Summary Forward a pointer event
// @Description Drives the drag/resize state machine of one widget
// @Tags dashboard
// @Accept json
// @Produce json
// @Param id path string true "Widget id"
// @Param event body PointerEvent true "Pointer event"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/dashboard/widgets/{id}/pointer [post]
func (ctrl *DashboardController) Pointer(ctx *fiber.Ctx) error {
	var ev PointerEvent
	if err := ctx.BodyParser(&ev); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	ev.WidgetID = ctx.Params("id")
	if err := validate.Struct(&ev); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	pos, err := ctrl.DashboardService.HandlePointer(ctx.UserContext(), ev)
	if err != nil {
		return fail(ctx, err)
	}
	return ctx.JSON(fiber.Map{"widget_id": ev.WidgetID, "position": pos})
}

// ListWidgetTypes godoc
// @Summary List widget types
// @Description Built-in and plugin-registered widget types
// @Tags widgets
// @Produce json
// @Success 200 {array} string
// @Router /api/widgets/types [get]
func (ctrl *DashboardController) ListWidgetTypes(ctx *fiber.Ctx) error {
	return ctx.JSON(ctrl.DashboardService.WidgetTypes())
}
