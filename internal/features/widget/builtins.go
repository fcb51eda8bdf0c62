package widget

import (
	"context"
	"sync"
	"time"

	"apex-dashboard/internal/common/models"
)

var defaultIntervals = map[models.WidgetType]time.Duration{
	models.WidgetCalendar:       60 * time.Second,
	models.WidgetWeather:        6 * time.Second,
	models.WidgetServerStatus:   15 * time.Second,
	models.WidgetGithubProjects: 30 * time.Second,
}

const fallbackInterval = 30 * time.Second

// DefaultInterval is the refresh cadence used when dataSources has no
// refreshMs for the type.
func DefaultInterval(t models.WidgetType) time.Duration {
	if d, ok := defaultIntervals[t]; ok {
		return d
	}
	return fallbackInterval
}

// RegisterBuiltins adds the four stock widgets.
func RegisterBuiltins(r *Registry) {
	r.Register(models.WidgetCalendar, func(def *models.WidgetDef, host Host) Renderer {
		return &CalendarWidget{now: time.Now}
	})
	r.Register(models.WidgetWeather, func(def *models.WidgetDef, host Host) Renderer {
		return &WeatherWidget{}
	})
	r.Register(models.WidgetServerStatus, func(def *models.WidgetDef, host Host) Renderer {
		return &ServerStatusWidget{}
	})
	r.Register(models.WidgetGithubProjects, func(def *models.WidgetDef, host Host) Renderer {
		return &GithubProjectsWidget{}
	})
}

type item struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

func badgeList(items []item) Node {
	list := el("ul", "widget-list", "")
	for _, it := range items {
		list.Children = append(list.Children, el("li", "", "",
			el("span", "", it.Name),
			el("span", "widget-badge", it.Status),
		))
	}
	return list
}

// CalendarWidget lists the day's fixed agenda under today's date.
type CalendarWidget struct {
	now func() time.Time

	mu   sync.Mutex
	date string
}

var calendarEvents = []string{"Ops sync 09:30", "Security briefing 12:00", "Release checkpoint 15:45"}

func (w *CalendarWidget) RenderContent() Node {
	w.mu.Lock()
	if w.date == "" {
		w.date = w.now().Format("Monday, January 2")
	}
	date := w.date
	w.mu.Unlock()

	list := el("ul", "widget-list", "")
	for _, ev := range calendarEvents {
		list.Children = append(list.Children, el("li", "", ev, el("span", "widget-badge", "Confirmed")))
	}
	return el("div", "widget-content", "", el("div", "widget-stat", date), list)
}

// UpdateData rolls the header over at midnight.
func (w *CalendarWidget) UpdateData(ctx context.Context) error {
	w.mu.Lock()
	w.date = w.now().Format("Monday, January 2")
	w.mu.Unlock()
	return nil
}

type WeatherState struct {
	Temp       string `json:"temp"`
	Conditions string `json:"conditions"`
	Wind       string `json:"wind"`
	AQI        string `json:"aqi"`
	UV         string `json:"uv"`
}

var weatherStates = []WeatherState{
	{Temp: "72°", Conditions: "Clear · 12% humidity", Wind: "6 mph", AQI: "42", UV: "Low"},
	{Temp: "68°", Conditions: "Marine layer · 20% humidity", Wind: "9 mph", AQI: "39", UV: "Moderate"},
	{Temp: "74°", Conditions: "Sunset glow · 15% humidity", Wind: "4 mph", AQI: "45", UV: "Low"},
}

// WeatherWidget cycles through canned readings, one step per refresh.
type WeatherWidget struct {
	mu    sync.Mutex
	index int
}

func (w *WeatherWidget) Current() WeatherState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return weatherStates[w.index]
}

func (w *WeatherWidget) RenderContent() Node {
	s := w.Current()
	cell := func(label, value string) Node {
		return el("div", "", "", el("p", "label", label), el("strong", "", value))
	}
	return el("div", "widget-content", "",
		el("div", "widget-stat", s.Temp),
		el("p", "muted", s.Conditions),
		el("div", "weather-grid", "",
			cell("Wind", s.Wind),
			cell("AQI", s.AQI),
			cell("UV", s.UV),
		),
	)
}

func (w *WeatherWidget) UpdateData(ctx context.Context) error {
	w.mu.Lock()
	w.index = (w.index + 1) % len(weatherStates)
	w.mu.Unlock()
	return nil
}

type ServerStatusWidget struct{}

var serverServices = []item{
	{Name: "Core API", Status: "Stable"},
	{Name: "Edge Mesh", Status: "Stable"},
	{Name: "Data Lake", Status: "Syncing"},
}

func (w *ServerStatusWidget) RenderContent() Node {
	return el("div", "widget-content", "",
		el("div", "widget-stat", "99.98%"),
		badgeList(serverServices),
		el("div", "widget-footer", "",
			el("span", "label", "Uptime last 24h"),
			el("span", "widget-badge", "0 incidents"),
		),
	)
}

func (w *ServerStatusWidget) UpdateData(ctx context.Context) error { return nil }

type GithubProjectsWidget struct{}

var githubPipelines = []item{
	{Name: "apex-core", Status: "Passing"},
	{Name: "sentinel-ui", Status: "Deploying"},
	{Name: "pulse-api", Status: "Queued"},
	{Name: "nebula-mobile", Status: "Passing"},
}

func (w *GithubProjectsWidget) RenderContent() Node {
	return el("div", "widget-content", "",
		el("div", "widget-stat", "5 pipelines"),
		badgeList(githubPipelines),
		el("div", "widget-footer", "",
			el("button", "pill ghost", "Open pipelines"),
			el("span", "label", "Last sync 2m ago"),
		),
	)
}

func (w *GithubProjectsWidget) UpdateData(ctx context.Context) error { return nil }

// StaticRenderer serves a fixed payload. Plugin-registered widget types
// use it.
type StaticRenderer struct {
	Payload any
}

func (r StaticRenderer) RenderContent() Node {
	return Node{Tag: "div", Class: "widget-content", Data: r.Payload}
}

// StaticFactory returns a factory for StaticRenderer.
func StaticFactory(payload any) Factory {
	return func(def *models.WidgetDef, host Host) Renderer {
		return StaticRenderer{Payload: payload}
	}
}
