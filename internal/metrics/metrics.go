package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds every collector the dashboard exposes on /metrics.
var Registry = prometheus.NewRegistry()

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "apex_http_requests_total", Help: "HTTP requests by route and status"},
		[]string{"method", "route", "status"},
	)
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "apex_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	ConfigSaves = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "apex_config_saves_total", Help: "Config writes by outcome"},
		[]string{"result"}, // written | unchanged | stale | error
	)
	ConfigLoads = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "apex_config_loads_total", Help: "Config loads by outcome"},
		[]string{"result"}, // stored | default | fallback
	)
	SaveDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "apex_config_save_duration_seconds",
		Help:    "Time spent persisting the config document",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	})

	PointerEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "apex_pointer_events_total", Help: "Pointer events by phase"},
		[]string{"phase"},
	)
	WidgetRefreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "apex_widget_refreshes_total", Help: "Widget data refreshes by type and outcome"},
		[]string{"type", "result"},
	)
	ActiveTimers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "apex_widget_refresh_timers",
		Help: "Refresh timers currently scheduled",
	})

	PluginLoads = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "apex_plugin_loads_total", Help: "Plugin loads by outcome"},
		[]string{"result"},
	)
	WebsocketClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "apex_websocket_clients",
		Help: "Connected change-feed clients",
	})

	LogEntries = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "apex_log_entries_total", Help: "Log entries by level"},
		[]string{"level"},
	)
)

var registerOnce sync.Once

// Register adds all collectors to Registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			RequestsTotal, RequestDuration,
			ConfigSaves, ConfigLoads, SaveDuration,
			PointerEvents, WidgetRefreshes, ActiveTimers,
			PluginLoads, WebsocketClients,
			LogEntries,
		)
	})
}
