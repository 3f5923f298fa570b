package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"service-dispatch/internal/auth"
	"service-dispatch/internal/fanout"
	"service-dispatch/internal/logx"
)

const (
	wsWriteWait    = 10 * time.Second
	wsPongWait     = 60 * time.Second
	wsPingPeriod   = wsPongWait * 9 / 10
	wsMaxFrameSize = 4 << 10
	actionJoin     = "join"
	actionLeave    = "leave"
)

// EventsHandler streams fan-out events over a WebSocket.
type EventsHandler struct {
	hub        subscriptionHub
	upgrader   websocket.Upgrader
	logger     logx.Logger
	pingPeriod time.Duration
	pongWait   time.Duration
}

// NewEventsHandler creates a new EventsHandler.
func NewEventsHandler(logger logx.Logger, hub subscriptionHub) *EventsHandler {
	if logger == nil {
		logger = logx.Nop()
	}
	return &EventsHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Callers are authenticated by token, not by cookie.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger:     logger,
		pingPeriod: wsPingPeriod,
		pongWait:   wsPongWait,
	}
}

// Subscribe handles GET /ws. The connection joins the caller's user topic and,
// for drivers, the broadcast topic. Clients add or drop delivery topics with
// {"action":"join"|"leave","delivery_id":"..."} frames.
func (h *EventsHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(h.logger, w, r)
	if !ok {
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", logx.String("req_id", reqID(r.Context())), logx.Err(err))
		return
	}

	sub := h.hub.Connect()
	h.hub.Join(sub, fanout.UserTopic(p.UserID))
	if p.Role == auth.RoleDriver {
		h.hub.Join(sub, fanout.TopicDrivers)
	}

	logger := h.logger.With(logx.String("user_id", p.UserID), logx.Any("subscriber", sub.ID()))
	logger.Info("websocket connected")

	go h.readLoop(conn, sub, logger)
	h.writeLoop(conn, sub, logger)
	logger.Info("websocket disconnected")
}

func (h *EventsHandler) readLoop(conn *websocket.Conn, sub *fanout.Subscriber, logger logx.Logger) {
	defer h.hub.Disconnect(sub)

	conn.SetReadLimit(wsMaxFrameSize)
	_ = conn.SetReadDeadline(time.Now().Add(h.pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.pongWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("websocket read failed", logx.Err(err))
			}
			return
		}
		var frame subscriptionFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			logger.Debug("websocket frame malformed", logx.Err(err))
			continue
		}
		switch frame.Action {
		case actionJoin:
			h.hub.Join(sub, fanout.DeliveryTopic(frame.DeliveryID))
		case actionLeave:
			h.hub.Leave(sub, fanout.DeliveryTopic(frame.DeliveryID))
		default:
			logger.Debug("websocket frame ignored", logx.String("action", frame.Action))
		}
	}
}

// writeLoop is the only writer on conn. It ends when the subscriber is
// disconnected or a write fails.
func (h *EventsHandler) writeLoop(conn *websocket.Conn, sub *fanout.Subscriber, logger logx.Logger) {
	ticker := time.NewTicker(h.pingPeriod)
	defer func() {
		ticker.Stop()
		h.hub.Disconnect(sub)
		_ = conn.Close()
	}()

	for {
		select {
		case e, ok := <-sub.Events():
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteJSON(e); err != nil {
				logger.Debug("websocket write failed", logx.Err(err))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
