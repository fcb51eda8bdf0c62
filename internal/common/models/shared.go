package models

// Role is the permission level used for both widget visibility and
// dashboard edit rights.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleViewer Role = "viewer"
)

func (r Role) rank() int {
	switch r {
	case RoleAdmin:
		return 2
	case RoleViewer:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether r satisfies the required role. Unknown roles
// satisfy nothing.
func (r Role) AtLeast(required Role) bool {
	return r.rank() > 0 && r.rank() >= required.rank()
}

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleViewer
}

type WidgetType string

const (
	WidgetCalendar       WidgetType = "calendar"
	WidgetWeather        WidgetType = "weather"
	WidgetServerStatus   WidgetType = "serverStatus"
	WidgetGithubProjects WidgetType = "githubProjects"
)

type EventType string

const (
	EventLayoutChanged    EventType = "layout_changed"
	EventDashboardChanged EventType = "dashboard_changed"
	EventRoleChanged      EventType = "role_changed"
	EventEncryptionToggle EventType = "encryption_changed"
	EventConfigImported   EventType = "config_imported"
	EventWidgetRefreshed  EventType = "widget_refreshed"
)

// Event is broadcast to change subscribers (WebSocket clients).
type Event struct {
	Type     EventType `json:"type"`
	WidgetID string    `json:"widget_id,omitempty"`
	Position *Position `json:"position,omitempty"`
	Data     any       `json:"data,omitempty"`
}
