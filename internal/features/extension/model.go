package extension

import (
	"context"
	"time"

	"apex-dashboard/internal/common/models"
	"apex-dashboard/internal/features/widget"
)

// Host is the slice of the dashboard a plugin may call into.
type Host interface {
	ActiveDashboardID() string
	ActiveRole() models.Role
	CanEdit() bool
	SetDashboard(ctx context.Context, id string) error
	SetRole(ctx context.Context, role models.Role) error
	RegisterWidget(t models.WidgetType, f widget.Factory)
	Publish(event models.Event)
	Render(ctx context.Context) ([]widget.WidgetView, error)
}

// NativePlugin is a plugin compiled into the binary and listed in the
// manifest as "native:<name>".
type NativePlugin func(ctx context.Context, host Host) error

// Manifest lists plugin entries. Entries are script paths, glob patterns,
// http(s) URLs or native:<name> references.
type Manifest struct {
	Plugins []string `yaml:"plugins" json:"plugins"`
}

type PluginKind string

const (
	KindScript PluginKind = "script"
	KindNative PluginKind = "native"
)

type PluginStatus string

const (
	StatusLoaded PluginStatus = "loaded"
	StatusFailed PluginStatus = "failed"
)

type PluginResult struct {
	Entry    string        `json:"entry"`
	Kind     PluginKind    `json:"kind"`
	Status   PluginStatus  `json:"status"`
	Init     bool          `json:"init"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Report describes the last LoadAll run. Plugins is sorted by entry.
type Report struct {
	Manifest string         `json:"manifest"`
	Found    bool           `json:"found"`
	LoadedAt time.Time      `json:"loaded_at"`
	Plugins  []PluginResult `json:"plugins"`
}

func (r Report) Failed() int {
	n := 0
	for _, p := range r.Plugins {
		if p.Status == StatusFailed {
			n++
		}
	}
	return n
}
