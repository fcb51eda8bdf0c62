package widget

import (
	"fmt"
	"sort"
	"sync"

	"apex-dashboard/internal/common/models"
)

// Registry maps widget types to factories. Plugins may register while
// the dashboard is rendering, so access is locked.
type Registry struct {
	mu        sync.RWMutex
	factories map[models.WidgetType]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[models.WidgetType]Factory)}
}

// NewDefaultRegistry returns a registry holding the built-in widgets.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	RegisterBuiltins(r)
	return r
}

// Register adds or replaces the factory for t.
func (r *Registry) Register(t models.WidgetType, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[t] = f
}

func (r *Registry) Lookup(t models.WidgetType) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[t]
	return f, ok
}

// Types lists registered types in name order.
func (r *Registry) Types() []models.WidgetType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.WidgetType, 0, len(r.factories))
	for t := range r.factories {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Build instantiates the renderer for def.
func (r *Registry) Build(def *models.WidgetDef, host Host) (Renderer, error) {
	f, ok := r.Lookup(def.Type)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownWidgetType, def.Type)
	}
	return f(def, host), nil
}
