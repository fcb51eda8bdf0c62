package extension

import (
	"context"
	"sync"
	"time"

	"apex-dashboard/internal/common/models"
	"apex-dashboard/internal/features/widget"
)

const WidgetClock models.WidgetType = "clock"

// RegisterBuiltinNatives makes the plugins shipped with the binary
// available to manifests.
func RegisterBuiltinNatives(l PluginLoader) {
	l.RegisterNative("clock", clockPlugin)
}

func clockPlugin(ctx context.Context, host Host) error {
	host.RegisterWidget(WidgetClock, func(def *models.WidgetDef, _ widget.Host) widget.Renderer {
		return &ClockWidget{now: time.Now, zone: time.UTC}
	})
	return nil
}

// ClockWidget shows the wall clock, refreshed on the widget's interval.
type ClockWidget struct {
	now  func() time.Time
	zone *time.Location

	mu      sync.Mutex
	current time.Time
}

func (w *ClockWidget) RenderContent() widget.Node {
	w.mu.Lock()
	t := w.current
	w.mu.Unlock()
	if t.IsZero() {
		t = w.now()
	}
	t = t.In(w.zone)
	return widget.Node{
		Tag:   "div",
		Class: "clock",
		Children: []widget.Node{
			{Tag: "span", Class: "clock-time", Text: t.Format("15:04:05")},
			{Tag: "span", Class: "clock-zone", Text: w.zone.String()},
		},
	}
}

func (w *ClockWidget) UpdateData(ctx context.Context) error {
	w.mu.Lock()
	w.current = w.now()
	w.mu.Unlock()
	return nil
}
