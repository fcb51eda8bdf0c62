package widget

import (
	"context"
	"errors"

	"apex-dashboard/internal/common/models"
	"apex-dashboard/internal/features/grid"
)

var (
	ErrUnknownWidgetType   = errors.New("unknown widget type")
	ErrUnknownWidget       = errors.New("unknown widget")
	ErrNotEditable         = errors.New("dashboard is not editable")
	ErrPointerCaptured     = errors.New("pointer already captured")
	ErrInvalidBounds       = errors.New("invalid grid bounds")
	ErrUnknownHandle       = errors.New("unknown handle")
	ErrProviderUnavailable = errors.New("data provider unavailable")
)

// Node is a renderable tree handed to the browser as JSON.
type Node struct {
	Tag      string `json:"tag"`
	Class    string `json:"class,omitempty"`
	Text     string `json:"text,omitempty"`
	Data     any    `json:"data,omitempty"`
	Children []Node `json:"children,omitempty"`
}

func el(tag, class, text string, children ...Node) Node {
	return Node{Tag: tag, Class: class, Text: text, Children: children}
}

// Renderer produces the body of a widget card.
type Renderer interface {
	RenderContent() Node
}

// Refresher is implemented by renderers with a data cycle. Renderers
// guard their own state: UpdateData runs on the scheduler goroutine.
type Refresher interface {
	UpdateData(ctx context.Context) error
}

// Host is the dashboard handle given to widget factories. Publish must
// not block.
type Host interface {
	Publish(event models.Event)
}

// Factory builds the renderer for one widget instance.
type Factory func(def *models.WidgetDef, host Host) Renderer

// WidgetView is one rendered widget as served to clients.
type WidgetView struct {
	ID        string            `json:"id"`
	Type      models.WidgetType `json:"type"`
	Title     string            `json:"title"`
	Role      models.Role       `json:"role"`
	Position  models.Position   `json:"position"`
	Placement grid.Placement    `json:"placement"`
	Editable  bool              `json:"editable"`
	Handles   []Handle          `json:"handles,omitempty"`
	Content   Node              `json:"content"`
}
