package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"apex-dashboard/internal/common/models"
	"apex-dashboard/internal/config"
	"apex-dashboard/internal/features/grid"
	"apex-dashboard/internal/features/settings"
	"apex-dashboard/internal/features/widget"
	"apex-dashboard/internal/metrics"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var (
	ErrInvalidImport    = errors.New("invalid config import")
	ErrUnknownDashboard = errors.New("unknown dashboard")
)

type DashboardService interface {
	Start(ctx context.Context) error
	State() State
	CanEdit() bool
	ActiveDashboardID() string
	ActiveRole() models.Role
	Render(ctx context.Context) ([]widget.WidgetView, error)
	SetDashboard(ctx context.Context, id string) error
	SetRole(ctx context.Context, role models.Role) error
	SetEncryption(ctx context.Context, enabled bool) error
	ImportConfig(ctx context.Context, raw []byte) error
	ExportConfig() (filename string, data []byte, err error)
	ExportWorkbook() (filename string, data []byte, err error)
	HandlePointer(ctx context.Context, ev PointerEvent) (models.Position, error)
	RegisterWidget(t models.WidgetType, f widget.Factory)
	WidgetTypes() []models.WidgetType
	Subscribe() (<-chan models.Event, func())
	Publish(event models.Event)
	Shutdown()
}

// DashboardServiceImpl owns the live config. Every public operation runs
// under mu, so operations never interleave; writes to the store happen
// after mu is released, ordered by snapshot generation.
type DashboardServiceImpl struct {
	store     settings.ConfigStore
	registry  *widget.Registry
	scheduler widget.Scheduler
	hub       *Hub
	log       *zap.Logger

	columns   int
	rowHeight int
	gap       int

	mu          sync.Mutex
	cfg         *models.Config
	controllers map[string]*widget.Controller
	order       []string
	renderErr   error
	pending     []models.Event
}

var validate = validator.New()

func NewDashboardService(
	store settings.ConfigStore,
	registry *widget.Registry,
	scheduler widget.Scheduler,
	hub *Hub,
	cfg *config.Config,
	log *zap.Logger,
) DashboardService {
	return &DashboardServiceImpl{
		store:       store,
		registry:    registry,
		scheduler:   scheduler,
		hub:         hub,
		log:         log,
		columns:     cfg.Columns,
		rowHeight:   cfg.RowHeight,
		gap:         cfg.Gap,
		cfg:         models.DefaultConfig(),
		controllers: make(map[string]*widget.Controller),
	}
}

// Start loads the persisted config, falling back to defaults when it
// cannot be read, and renders the active dashboard.
func (s *DashboardServiceImpl) Start(ctx context.Context) error {
	cfg, err := s.store.Load(ctx)
	if err != nil {
		s.log.Warn("failed to load dashboard config, using defaults", zap.Error(err))
		metrics.ConfigLoads.WithLabelValues("fallback").Inc()
		cfg = models.DefaultConfig()
	}
	cfg.Normalize()

	s.mu.Lock()
	s.cfg = cfg
	_, renderErr := s.renderLocked()
	s.finish(ctx, false)

	s.log.Info("dashboard ready",
		zap.String("dashboard", cfg.ActiveDashboardID),
		zap.String("role", string(cfg.ActiveRole)),
		zap.Bool("encrypted", cfg.EncryptionEnabled))
	return renderErr
}

func (s *DashboardServiceImpl) canEditLocked() bool {
	d, ok := s.cfg.ActiveDashboard()
	return ok && d.Role == models.RoleAdmin && s.cfg.ActiveRole == models.RoleAdmin
}

// CanEdit is true only when both the dashboard and the active role are
// admin.
func (s *DashboardServiceImpl) CanEdit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canEditLocked()
}

func (s *DashboardServiceImpl) ActiveDashboardID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.ActiveDashboardID
}

func (s *DashboardServiceImpl) ActiveRole() models.Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.ActiveRole
}

func (s *DashboardServiceImpl) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{
		ActiveDashboardID: s.cfg.ActiveDashboardID,
		ActiveRole:        s.cfg.ActiveRole,
		EncryptionEnabled: s.cfg.EncryptionEnabled,
		CanEdit:           s.canEditLocked(),
		Columns:           s.columns,
		Widgets:           s.viewsLocked(),
		Revision:          s.store.Revision(),
	}
	for id, d := range s.cfg.Dashboards {
		st.Dashboards = append(st.Dashboards, DashboardSummary{ID: id, Label: d.Label, Role: d.Role})
	}
	sort.Slice(st.Dashboards, func(i, j int) bool { return st.Dashboards[i].ID < st.Dashboards[j].ID })
	if s.renderErr != nil {
		st.Error = s.renderErr.Error()
	}
	return st
}

func (s *DashboardServiceImpl) viewsLocked() []widget.WidgetView {
	views := make([]widget.WidgetView, 0, len(s.order))
	for _, id := range s.order {
		views = append(views, s.controllers[id].View())
	}
	return views
}

func (s *DashboardServiceImpl) teardownLocked() {
	for _, c := range s.controllers {
		c.Teardown()
	}
	s.controllers = make(map[string]*widget.Controller)
	s.order = nil
}

// renderLocked replaces the controller set for the active dashboard.
func (s *DashboardServiceImpl) renderLocked() ([]widget.WidgetView, error) {
	s.teardownLocked()

	d, ok := s.cfg.ActiveDashboard()
	if !ok {
		s.renderErr = fmt.Errorf("%w: %q", ErrUnknownDashboard, s.cfg.ActiveDashboardID)
		s.log.Warn("active dashboard does not exist", zap.String("dashboard", s.cfg.ActiveDashboardID))
		return []widget.WidgetView{}, s.renderErr
	}
	s.renderErr = nil

	editable := s.canEditLocked()
	for i := range d.Widgets {
		def := &d.Widgets[i]
		if def.Role == models.RoleAdmin && s.cfg.ActiveRole != models.RoleAdmin {
			continue
		}
		if _, dup := s.controllers[def.ID]; dup {
			s.log.Warn("duplicate widget id, keeping the first", zap.String("widget", def.ID))
			continue
		}

		renderer, err := s.registry.Build(def, s)
		if err != nil {
			s.log.Debug("skipping widget", zap.String("widget", def.ID), zap.Error(err))
			continue
		}

		c := widget.NewController(def, renderer, widget.ControllerOptions{
			Editable:  editable,
			Scheduler: s.scheduler,
			Log:       s.log,
			OnChange:  s.onWidgetChange,
			OnRefresh: s.onWidgetRefresh,
		})
		s.controllers[def.ID] = c
		s.order = append(s.order, def.ID)

		interval := s.cfg.DataSources[def.Type].RefreshInterval(widget.DefaultInterval(def.Type))
		c.StartRefresh(interval)
	}

	return s.viewsLocked(), nil
}

// onWidgetChange runs under mu, from inside PointerMove.
func (s *DashboardServiceImpl) onWidgetChange(def *models.WidgetDef) {
	pos := def.Position
	s.pending = append(s.pending, models.Event{
		Type:     models.EventLayoutChanged,
		WidgetID: def.ID,
		Position: &pos,
	})
}

// onWidgetRefresh runs on the scheduler goroutine and must not take mu.
func (s *DashboardServiceImpl) onWidgetRefresh(id string, content widget.Node) {
	s.hub.Publish(models.Event{Type: models.EventWidgetRefreshed, WidgetID: id, Data: content})
}

// finish must be called with mu held. It snapshots the config when
// persist is set, releases mu, publishes queued events, then writes.
func (s *DashboardServiceImpl) finish(ctx context.Context, persist bool) error {
	events := s.pending
	s.pending = nil

	var (
		snap    settings.Snapshot
		snapErr error
	)
	if persist {
		snap, snapErr = s.store.Snapshot(s.cfg)
	}
	s.mu.Unlock()

	for _, e := range events {
		s.hub.Publish(e)
	}

	if !persist {
		return nil
	}
	if snapErr != nil {
		return snapErr
	}
	if err := s.store.Write(ctx, snap); err != nil {
		s.log.Error("failed to persist dashboard config", zap.Error(err))
		return err
	}
	return nil
}

func (s *DashboardServiceImpl) Render(ctx context.Context) ([]widget.WidgetView, error) {
	s.mu.Lock()
	views, err := s.renderLocked()
	s.finish(ctx, false)
	return views, err
}

// SetDashboard does not check that id exists. An unknown id renders an
// empty set and is reported as ErrUnknownDashboard, but still persisted.
func (s *DashboardServiceImpl) SetDashboard(ctx context.Context, id string) error {
	s.mu.Lock()
	s.cfg.ActiveDashboardID = id
	_, renderErr := s.renderLocked()
	s.pending = append(s.pending, models.Event{Type: models.EventDashboardChanged, Data: id})
	return errors.Join(renderErr, s.finish(ctx, true))
}

// SetRole does not check the role value.
func (s *DashboardServiceImpl) SetRole(ctx context.Context, role models.Role) error {
	s.mu.Lock()
	s.cfg.ActiveRole = role
	_, renderErr := s.renderLocked()
	s.pending = append(s.pending, models.Event{Type: models.EventRoleChanged, Data: role})
	return errors.Join(renderErr, s.finish(ctx, true))
}

// SetEncryption changes only the storage mode; the layout is unaffected.
func (s *DashboardServiceImpl) SetEncryption(ctx context.Context, enabled bool) error {
	s.mu.Lock()
	s.cfg.EncryptionEnabled = enabled
	s.pending = append(s.pending, models.Event{Type: models.EventEncryptionToggle, Data: enabled})
	return s.finish(ctx, true)
}

// ImportConfig replaces the live config with raw. Documents that fail to
// parse or validate are rejected and leave the live config untouched.
func (s *DashboardServiceImpl) ImportConfig(ctx context.Context, raw []byte) error {
	next, err := parseImport(raw)
	if err != nil {
		s.log.Info("rejected config import", zap.Error(err))
		return err
	}

	s.mu.Lock()
	s.teardownLocked()
	s.cfg = next
	_, renderErr := s.renderLocked()
	s.pending = append(s.pending, models.Event{Type: models.EventConfigImported, Data: next.ActiveDashboardID})
	return errors.Join(renderErr, s.finish(ctx, true))
}

func parseImport(raw []byte) (*models.Config, error) {
	var cfg models.Config
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	if _, ok := cfg.Dashboards[cfg.ActiveDashboardID]; !ok {
		return nil, fmt.Errorf("%w: active dashboard %q does not exist", ErrInvalidImport, cfg.ActiveDashboardID)
	}
	for id, d := range cfg.Dashboards {
		seen := make(map[string]bool, len(d.Widgets))
		for _, w := range d.Widgets {
			if seen[w.ID] {
				return nil, fmt.Errorf("%w: dashboard %q has duplicate widget id %q", ErrInvalidImport, id, w.ID)
			}
			seen[w.ID] = true
		}
	}
	return &cfg, nil
}

// ExportConfig returns the live config as indented plaintext JSON, never
// encrypted, with the suggested download name.
func (s *DashboardServiceImpl) ExportConfig() (string, []byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(s.cfg, "", "  ")
	if err != nil {
		return "", nil, err
	}
	return exportFilename(s.cfg.ActiveDashboardID, ".json"), data, nil
}

func (s *DashboardServiceImpl) ExportWorkbook() (string, []byte, error) {
	s.mu.Lock()
	snap, err := s.cfg.Clone()
	s.mu.Unlock()
	if err != nil {
		return "", nil, err
	}

	data, err := buildWorkbook(snap)
	if err != nil {
		return "", nil, err
	}
	return exportFilename(snap.ActiveDashboardID, ".xlsx"), data, nil
}

func exportFilename(activeID, ext string) string {
	return "apex-dashboard-" + activeID + ext
}

// HandlePointer routes a forwarded pointer event to the widget that owns
// it. Every applied move is persisted.
func (s *DashboardServiceImpl) HandlePointer(ctx context.Context, ev PointerEvent) (models.Position, error) {
	s.mu.Lock()
	c, ok := s.controllers[ev.WidgetID]
	if !ok {
		s.mu.Unlock()
		return models.Position{}, fmt.Errorf("%w: %q", widget.ErrUnknownWidget, ev.WidgetID)
	}

	switch ev.Phase {
	case PhaseDown:
		b := grid.NewBounds(ev.Rect.Left, ev.Rect.Top, ev.Rect.Width, ev.Rect.Height, s.columns, s.rowHeight, s.gap)
		err := c.PointerDown(ev.Handle, ev.PointerID, b)
		pos := c.Position()
		s.mu.Unlock()
		return pos, err

	case PhaseMove:
		pos, applied, err := c.PointerMove(ev.PointerID, ev.point())
		if err != nil || !applied {
			s.mu.Unlock()
			return pos, err
		}
		return pos, s.finish(ctx, true)

	case PhaseUp:
		_, err := c.PointerUp(ev.PointerID)
		pos := c.Position()
		s.mu.Unlock()
		return pos, err

	default:
		s.mu.Unlock()
		return models.Position{}, fmt.Errorf("unknown pointer phase %q", ev.Phase)
	}
}

// RegisterWidget adds a widget type. Widgets of that type show up on the
// next render.
func (s *DashboardServiceImpl) RegisterWidget(t models.WidgetType, f widget.Factory) {
	s.registry.Register(t, f)
}

func (s *DashboardServiceImpl) WidgetTypes() []models.WidgetType {
	return s.registry.Types()
}

func (s *DashboardServiceImpl) Subscribe() (<-chan models.Event, func()) {
	return s.hub.Subscribe()
}

// Publish lets renderers push events. It never blocks and never takes mu.
func (s *DashboardServiceImpl) Publish(event models.Event) {
	s.hub.Publish(event)
}

// Shutdown cancels all refresh timers.
func (s *DashboardServiceImpl) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teardownLocked()
}
