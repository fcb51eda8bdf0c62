package widget

import (
	"context"
	"errors"
	"testing"
	"time"

	"apex-dashboard/internal/common/models"
)

func TestDefaultRegistryHasBuiltins(t *testing.T) {
	r := NewDefaultRegistry()
	got := r.Types()
	want := []models.WidgetType{
		models.WidgetCalendar,
		models.WidgetGithubProjects,
		models.WidgetServerStatus,
		models.WidgetWeather,
	}
	if len(got) != len(want) {
		t.Fatalf("Types() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Types()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestBuildUnknownType(t *testing.T) {
	r := NewDefaultRegistry()
	def := &models.WidgetDef{ID: "x", Type: "stockTicker"}
	if _, err := r.Build(def, nil); !errors.Is(err, ErrUnknownWidgetType) {
		t.Errorf("error = %v, want ErrUnknownWidgetType", err)
	}
}

func TestRegisterPluginType(t *testing.T) {
	r := NewRegistry()
	r.Register("stockTicker", StaticFactory(map[string]any{"symbol": "APX"}))

	rend, err := r.Build(&models.WidgetDef{ID: "t", Type: "stockTicker"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	content := rend.RenderContent()
	data, ok := content.Data.(map[string]any)
	if !ok || data["symbol"] != "APX" {
		t.Errorf("content = %+v", content)
	}
}

func TestDefaultInterval(t *testing.T) {
	tests := []struct {
		typ  models.WidgetType
		want time.Duration
	}{
		{models.WidgetCalendar, time.Minute},
		{models.WidgetWeather, 6 * time.Second},
		{models.WidgetServerStatus, 15 * time.Second},
		{models.WidgetGithubProjects, 30 * time.Second},
		{"plugin", 30 * time.Second},
	}
	for _, tt := range tests {
		if got := DefaultInterval(tt.typ); got != tt.want {
			t.Errorf("DefaultInterval(%s) = %v, want %v", tt.typ, got, tt.want)
		}
	}
}

func TestCalendarHeaderUsesClock(t *testing.T) {
	day := time.Date(2026, time.October, 17, 9, 0, 0, 0, time.UTC)
	w := &CalendarWidget{now: func() time.Time { return day }}

	content := w.RenderContent()
	if got := content.Children[0].Text; got != "Saturday, October 17" {
		t.Errorf("header = %q", got)
	}
	if n := len(content.Children[1].Children); n != 3 {
		t.Errorf("agenda has %d entries, want 3", n)
	}

	day = day.Add(24 * time.Hour)
	_ = w.UpdateData(context.Background())
	if got := w.RenderContent().Children[0].Text; got != "Sunday, October 18" {
		t.Errorf("header after refresh = %q", got)
	}
}

func TestStaticBuiltinsRender(t *testing.T) {
	tests := []struct {
		name string
		r    Renderer
		stat string
		rows int
	}{
		{"server status", &ServerStatusWidget{}, "99.98%", 3},
		{"github projects", &GithubProjectsWidget{}, "5 pipelines", 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := tt.r.RenderContent()
			if n.Children[0].Text != tt.stat {
				t.Errorf("stat = %q, want %q", n.Children[0].Text, tt.stat)
			}
			if got := len(n.Children[1].Children); got != tt.rows {
				t.Errorf("rows = %d, want %d", got, tt.rows)
			}
		})
	}
}
