package dashboard

import (
	"apex-dashboard/internal/common/models"
	"apex-dashboard/internal/features/grid"
	"apex-dashboard/internal/features/widget"
)

type DashboardSummary struct {
	ID    string      `json:"id"`
	Label string      `json:"label"`
	Role  models.Role `json:"role"`
}

// State is everything a client needs to draw the dashboard.
type State struct {
	ActiveDashboardID string              `json:"activeDashboardId"`
	ActiveRole        models.Role         `json:"activeRole"`
	EncryptionEnabled bool                `json:"encryptionEnabled"`
	CanEdit           bool                `json:"canEdit"`
	Columns           int                 `json:"columns"`
	Dashboards        []DashboardSummary  `json:"dashboards"`
	Widgets           []widget.WidgetView `json:"widgets"`
	Revision          string              `json:"revision"`
	Error             string              `json:"error,omitempty"`
}

type PointerPhase string

const (
	PhaseDown PointerPhase = "down"
	PhaseMove PointerPhase = "move"
	PhaseUp   PointerPhase = "up"
)

// Rect is the grid's client rectangle measured by the browser.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// PointerEvent is one forwarded pointer event. Rect is only read on
// pointer-down.
type PointerEvent struct {
	WidgetID  string        `json:"widget_id,omitempty"`
	Phase     PointerPhase  `json:"phase" validate:"required,oneof=down move up"`
	Handle    widget.Handle `json:"handle,omitempty"`
	PointerID int           `json:"pointer_id"`
	X         float64       `json:"x"`
	Y         float64       `json:"y"`
	Rect      Rect          `json:"rect"`
}

func (e PointerEvent) point() grid.Point {
	return grid.Point{X: e.X, Y: e.Y}
}

type SetActiveRequest struct {
	ID string `json:"id"`
}

type SetRoleRequest struct {
	Role models.Role `json:"role"`
}

type SetEncryptionRequest struct {
	Enabled bool `json:"enabled"`
}
