package widget

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"apex-dashboard/internal/common/models"
	"apex-dashboard/internal/features/grid"
	"apex-dashboard/internal/metrics"

	"go.uber.org/zap"
)

type Mode int

const (
	Idle Mode = iota
	Dragging
	Resizing
)

func (m Mode) String() string {
	switch m {
	case Dragging:
		return "dragging"
	case Resizing:
		return "resizing"
	default:
		return "idle"
	}
}

type Handle string

const (
	HandleDrag   Handle = "drag"
	HandleResize Handle = "resize"
)

// interaction is the state of one pointer session. Bounds are measured
// once at pointer-down.
type interaction struct {
	mode      Mode
	pointerID int
	start     models.Position
	bounds    grid.Bounds
}

type ControllerOptions struct {
	Editable  bool
	Scheduler Scheduler
	Log       *zap.Logger
	// OnChange runs after every applied move, with the updated definition.
	OnChange func(def *models.WidgetDef)
	// OnRefresh runs on the scheduler goroutine after a successful refresh.
	OnRefresh func(id string, content Node)
	// RefreshTimeout bounds a single UpdateData call.
	RefreshTimeout time.Duration
}

// Controller owns one rendered widget: its position, its pointer state
// machine and its refresh timer. It mutates only def.Position. Pointer
// methods are not safe for concurrent use; the dashboard serializes them.
type Controller struct {
	def      *models.WidgetDef
	renderer Renderer
	opts     ControllerOptions
	log      *zap.Logger

	state  interaction
	cancel func()
	closed bool
	// stopped is read from the scheduler goroutine.
	stopped atomic.Bool
}

func NewController(def *models.WidgetDef, renderer Renderer, opts ControllerOptions) *Controller {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	if opts.RefreshTimeout <= 0 {
		opts.RefreshTimeout = 10 * time.Second
	}
	return &Controller{
		def:      def,
		renderer: renderer,
		opts:     opts,
		log:      log.With(zap.String("widget", def.ID)),
	}
}

func (c *Controller) ID() string { return c.def.ID }

func (c *Controller) Mode() Mode { return c.state.mode }

func (c *Controller) Editable() bool { return c.opts.Editable }

func (c *Controller) Position() models.Position { return c.def.Position }

// View renders the widget card. Handles are only listed when editable.
func (c *Controller) View() WidgetView {
	v := WidgetView{
		ID:        c.def.ID,
		Type:      c.def.Type,
		Title:     c.def.Title,
		Role:      c.def.Role,
		Position:  c.def.Position,
		Placement: grid.GridArea(c.def.Position),
		Editable:  c.opts.Editable,
		Content:   c.renderer.RenderContent(),
	}
	if c.opts.Editable {
		v.Handles = []Handle{HandleDrag, HandleResize}
	}
	return v
}

// PointerDown starts a drag or resize and captures pointerID.
func (c *Controller) PointerDown(handle Handle, pointerID int, bounds grid.Bounds) error {
	if !c.opts.Editable {
		return ErrNotEditable
	}
	if c.state.mode != Idle {
		return ErrPointerCaptured
	}
	if !bounds.Valid() {
		return ErrInvalidBounds
	}

	var mode Mode
	switch handle {
	case HandleDrag:
		mode = Dragging
	case HandleResize:
		mode = Resizing
	default:
		return fmt.Errorf("%w: %q", ErrUnknownHandle, handle)
	}

	c.state = interaction{
		mode:      mode,
		pointerID: pointerID,
		start:     c.def.Position,
		bounds:    bounds,
	}
	metrics.PointerEvents.WithLabelValues("down").Inc()
	return nil
}

// PointerMove applies the pointer position to the widget. Moves from a
// pointer other than the captured one are ignored and report false.
func (c *Controller) PointerMove(pointerID int, p grid.Point) (models.Position, bool, error) {
	if !c.opts.Editable {
		return c.def.Position, false, ErrNotEditable
	}
	if c.state.mode == Idle || c.state.pointerID != pointerID {
		return c.def.Position, false, nil
	}

	switch c.state.mode {
	case Dragging:
		c.def.Position.X, c.def.Position.Y = grid.DragTarget(c.state.bounds, p)
	case Resizing:
		c.def.Position.W, c.def.Position.H = grid.ResizeTarget(c.state.bounds, p, c.state.start)
	}
	metrics.PointerEvents.WithLabelValues("move").Inc()

	if c.opts.OnChange != nil {
		c.opts.OnChange(c.def)
	}
	return c.def.Position, true, nil
}

// PointerUp ends the session. Every intermediate position has already
// been applied, so there is nothing to roll back.
func (c *Controller) PointerUp(pointerID int) (bool, error) {
	if !c.opts.Editable {
		return false, ErrNotEditable
	}
	if c.state.mode == Idle || c.state.pointerID != pointerID {
		return false, nil
	}
	c.state = interaction{}
	metrics.PointerEvents.WithLabelValues("up").Inc()
	return true, nil
}

// StartRefresh schedules the renderer's data cycle. It does nothing for
// renderers without one, after Teardown, or when already running.
func (c *Controller) StartRefresh(interval time.Duration) {
	r, ok := c.renderer.(Refresher)
	if !ok || c.closed || c.cancel != nil || c.opts.Scheduler == nil {
		return
	}

	id, typ := c.def.ID, string(c.def.Type)
	timeout := c.opts.RefreshTimeout
	onRefresh := c.opts.OnRefresh
	log := c.log

	c.cancel = c.opts.Scheduler.Every(id, interval, func() {
		if c.stopped.Load() {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := r.UpdateData(ctx); err != nil {
			result := "error"
			if errors.Is(err, ErrProviderUnavailable) {
				result = "unavailable"
			}
			metrics.WidgetRefreshes.WithLabelValues(typ, result).Inc()
			log.Warn("widget refresh failed", zap.Error(err))
			return
		}
		metrics.WidgetRefreshes.WithLabelValues(typ, "ok").Inc()
		if onRefresh != nil && !c.stopped.Load() {
			onRefresh(id, c.renderer.RenderContent())
		}
	})
	log.Debug("refresh scheduled", zap.Duration("interval", interval))
}

// Teardown cancels the refresh timer and drops any pointer capture. Only
// the first call has an effect.
func (c *Controller) Teardown() {
	if c.closed {
		return
	}
	c.closed = true
	c.stopped.Store(true)
	c.state = interaction{}
	if c.cancel != nil {
		c.cancel()
	}
}
