package dashboard

import (
	"context"
	"encoding/json"
	"sync"

	"apex-dashboard/internal/common/models"
	"apex-dashboard/internal/metrics"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// wsMessage is written to clients. Exactly one of Event, Result or Error
// is set.
type wsMessage struct {
	Event  *models.Event    `json:"event,omitempty"`
	Result *models.Position `json:"result,omitempty"`
	Widget string           `json:"widget_id,omitempty"`
	Error  string           `json:"error,omitempty"`
}

type WebSocketController struct {
	Service DashboardService
	Limiter interface{ Allow(key string) bool }
	log     *zap.Logger
}

func NewWebSocketController(service DashboardService, log *zap.Logger) *WebSocketController {
	return &WebSocketController{Service: service, log: log}
}

// HandleWebSocket reads pointer events from the client and streams change
// events back until either side closes.
func (h *WebSocketController) HandleWebSocket(c *websocket.Conn) {
	clientID := uuid.NewString()
	log := h.log.With(zap.String("client", clientID))
	log.Debug("websocket connected")

	events, cancel := h.Service.Subscribe()
	defer cancel()

	metrics.WebsocketClients.Inc()
	defer metrics.WebsocketClients.Dec()

	var writeMu sync.Mutex
	write := func(msg wsMessage) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return c.WriteJSON(msg)
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				if err := write(wsMessage{Event: &ev}); err != nil {
					log.Debug("websocket write failed", zap.Error(err))
					return
				}
			case <-done:
				return
			}
		}
	}()
	defer close(done)

	for {
		_, msg, err := c.ReadMessage()
		if err != nil {
			log.Debug("websocket closed", zap.Error(err))
			return
		}

		var ev PointerEvent
		if err := json.Unmarshal(msg, &ev); err != nil {
			if werr := write(wsMessage{Error: "invalid pointer event"}); werr != nil {
				return
			}
			continue
		}
		if h.Limiter != nil && !h.Limiter.Allow(clientID) {
			continue
		}
		if err := validate.Struct(&ev); err != nil {
			if werr := write(wsMessage{Widget: ev.WidgetID, Error: err.Error()}); werr != nil {
				return
			}
			continue
		}

		pos, err := h.Service.HandlePointer(context.Background(), ev)
		reply := wsMessage{Widget: ev.WidgetID, Result: &pos}
		if err != nil {
			reply = wsMessage{Widget: ev.WidgetID, Error: err.Error()}
		}
		if err := write(reply); err != nil {
			return
		}
	}
}
