package models

import (
	"fmt"
	"time"

	"github.com/tiendc/go-deepcopy"
)

// Position is expressed in whole grid cells. X and Y are 1-based.
type Position struct {
	X int `json:"x" validate:"min=1"`
	Y int `json:"y" validate:"min=1"`
	W int `json:"w" validate:"min=2"`
	H int `json:"h" validate:"min=1"`
}

type WidgetDef struct {
	ID       string     `json:"id" validate:"required"`
	Type     WidgetType `json:"type" validate:"required"`
	Title    string     `json:"title"`
	Position Position   `json:"position"`
	Role     Role       `json:"role" validate:"oneof=admin viewer"`
}

type DashboardDef struct {
	ID      string      `json:"id" validate:"required"`
	Label   string      `json:"label"`
	Role    Role        `json:"role" validate:"oneof=admin viewer"`
	Widgets []WidgetDef `json:"widgets" validate:"dive"`
}

// ProviderConfig is the free-form data source block of a widget type.
type ProviderConfig map[string]any

// RefreshInterval returns refreshMs as a duration, or fallback when unset.
func (p ProviderConfig) RefreshInterval(fallback time.Duration) time.Duration {
	if p == nil {
		return fallback
	}
	switch v := p["refreshMs"].(type) {
	case float64:
		if v > 0 {
			return time.Duration(v) * time.Millisecond
		}
	case int:
		if v > 0 {
			return time.Duration(v) * time.Millisecond
		}
	case int64:
		if v > 0 {
			return time.Duration(v) * time.Millisecond
		}
	}
	return fallback
}

// Config is the root persisted document. Field names match the browser
// export format.
type Config struct {
	EncryptionEnabled bool                          `json:"encryptionEnabled"`
	Dashboards        map[string]DashboardDef       `json:"dashboards" validate:"required,min=1,dive"`
	ActiveDashboardID string                        `json:"activeDashboardId,omitempty" validate:"required"`
	ActiveRole        Role                          `json:"activeRole,omitempty" validate:"oneof=admin viewer"`
	DataSources       map[WidgetType]ProviderConfig `json:"dataSources,omitempty"`
}

// ActiveDashboard returns the selected dashboard. The returned value is a
// copy, but its Widgets slice still shares storage with the config.
func (c *Config) ActiveDashboard() (DashboardDef, bool) {
	d, ok := c.Dashboards[c.ActiveDashboardID]
	return d, ok
}

// Clone returns a deep copy that shares no memory with c.
func (c *Config) Clone() (*Config, error) {
	var out Config
	if err := deepcopy.Copy(&out, c); err != nil {
		return nil, fmt.Errorf("copy config: %w", err)
	}
	return &out, nil
}

var defaultConfig = Config{
	EncryptionEnabled: false,
	Dashboards: map[string]DashboardDef{
		"personal": {
			ID:    "personal",
			Label: "Personal",
			Role:  RoleAdmin,
			Widgets: []WidgetDef{
				{ID: "calendar-1", Type: WidgetCalendar, Title: "Command Calendar", Position: Position{X: 1, Y: 1, W: 4, H: 2}, Role: RoleAdmin},
				{ID: "weather-1", Type: WidgetWeather, Title: "Weather Intelligence", Position: Position{X: 5, Y: 1, W: 4, H: 2}, Role: RoleViewer},
				{ID: "server-1", Type: WidgetServerStatus, Title: "Server Status", Position: Position{X: 9, Y: 1, W: 4, H: 2}, Role: RoleAdmin},
				{ID: "github-1", Type: WidgetGithubProjects, Title: "GitHub Projects", Position: Position{X: 1, Y: 3, W: 6, H: 3}, Role: RoleViewer},
			},
		},
		"team": {
			ID:    "team",
			Label: "Team",
			Role:  RoleViewer,
			Widgets: []WidgetDef{
				{ID: "calendar-team", Type: WidgetCalendar, Title: "Global Sync Calendar", Position: Position{X: 1, Y: 1, W: 5, H: 2}, Role: RoleViewer},
				{ID: "server-team", Type: WidgetServerStatus, Title: "Fleet Telemetry", Position: Position{X: 6, Y: 1, W: 7, H: 2}, Role: RoleAdmin},
				{ID: "github-team", Type: WidgetGithubProjects, Title: "Release Pipelines", Position: Position{X: 1, Y: 3, W: 7, H: 3}, Role: RoleViewer},
				{ID: "weather-team", Type: WidgetWeather, Title: "Ops Weather", Position: Position{X: 8, Y: 3, W: 5, H: 3}, Role: RoleViewer},
			},
		},
	},
}

// DefaultConfig returns a fresh copy of the built-in first-run document.
// The shared instance is never handed out.
func DefaultConfig() *Config {
	cfg, err := defaultConfig.Clone()
	if err != nil {
		// The default document only holds plain values; copying cannot fail.
		panic(err)
	}
	return cfg
}

// Normalize fills the selection fields the first-run document leaves empty.
func (c *Config) Normalize() {
	if c.ActiveDashboardID == "" {
		c.ActiveDashboardID = "personal"
	}
	if c.ActiveRole == "" {
		c.ActiveRole = RoleAdmin
		if personal, ok := c.Dashboards["personal"]; ok && personal.Role != "" {
			c.ActiveRole = personal.Role
		}
	}
}
