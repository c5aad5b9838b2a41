package handler

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/dkoval/items-api/internal/model"
)

// WebSocket configuration constants.
const (
	writeWait       = 10 * time.Second
	pongWait        = 60 * time.Second
	pingPeriod      = (pongWait * 9) / 10
	maxMessageSize  = 512
	eventBufferSize = 16
)

// WatchHandler streams item change events to WebSocket subscribers. It
// implements EventPublisher so the REST handlers can feed it directly.
type WatchHandler struct {
	upgrader websocket.Upgrader
	logger   *zap.Logger
	mu       sync.RWMutex
	clients  map[*websocket.Conn]chan model.ItemEvent
}

// NewWatchHandler creates a new WatchHandler instance.
func NewWatchHandler(logger *zap.Logger) *WatchHandler {
	return &WatchHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(_ *http.Request) bool {
				return true // Allow all origins for development
			},
		},
		logger:  logger,
		clients: make(map[*websocket.Conn]chan model.ItemEvent),
	}
}

// RegisterRoutes registers the watch route with the router.
func (h *WatchHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/watch", h.HandleWatch).Methods(http.MethodGet)
}

// Publish broadcasts an item event to all connected subscribers. A
// subscriber whose buffer is full misses the event rather than blocking
// the mutating request.
func (h *WatchHandler) Publish(event model.ItemEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for conn, events := range h.clients {
		select {
		case events <- event:
		default:
			h.logger.Warn("dropping event for slow watch client",
				zap.String("remote_addr", conn.RemoteAddr().String()),
				zap.String("type", event.Type),
			)
		}
	}
}

// HandleWatch handles GET /watch requests by upgrading the connection and
// streaming item events until the client disconnects.
func (h *WatchHandler) HandleWatch(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("failed to upgrade connection", zap.Error(err))
		return
	}

	events := make(chan model.ItemEvent, eventBufferSize)

	h.mu.Lock()
	h.clients[conn] = events
	h.mu.Unlock()

	h.logger.Info("watch client connected", zap.String("remote_addr", conn.RemoteAddr().String()))

	go h.writePump(conn, events)
	go h.readPump(conn)
}

// readPump drains incoming messages. Subscribers are not expected to send
// anything; the read loop exists to process pong frames and to detect
// disconnects.
func (h *WatchHandler) readPump(conn *websocket.Conn) {
	defer h.removeClient(conn)

	conn.SetReadLimit(maxMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		h.logger.Error("failed to set read deadline", zap.Error(err))
		return
	}

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn("watch read error", zap.Error(err))
			}
			return
		}
	}
}

// writePump forwards events to the connection and keeps it alive with
// pings. It exits when the events channel is closed or a write fails.
func (h *WatchHandler) writePump(conn *websocket.Conn, events <-chan model.ItemEvent) {
	pingTicker := time.NewTicker(pingPeriod)
	defer pingTicker.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				h.sendCloseMessage(conn)
				return
			}
			if err := h.sendEvent(conn, event); err != nil {
				h.logger.Debug("failed to send event", zap.Error(err))
				return
			}
		case <-pingTicker.C:
			if err := h.sendPing(conn); err != nil {
				h.logger.Debug("failed to send ping", zap.Error(err))
				return
			}
		}
	}
}

// sendEvent writes one event to the connection.
func (h *WatchHandler) sendEvent(conn *websocket.Conn, event model.ItemEvent) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteJSON(event)
}

// sendPing sends a ping message to the connection.
func (h *WatchHandler) sendPing(conn *websocket.Conn) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.PingMessage, nil)
}

// sendCloseMessage sends a close message to the connection.
func (h *WatchHandler) sendCloseMessage(conn *websocket.Conn) {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		h.logger.Debug("failed to set write deadline for close", zap.Error(err))
		return
	}

	closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "server shutting down")
	if err := conn.WriteMessage(websocket.CloseMessage, closeMsg); err != nil {
		h.logger.Debug("failed to send close message", zap.Error(err))
	}
}

// removeClient unregisters a client and closes its connection.
func (h *WatchHandler) removeClient(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if events, exists := h.clients[conn]; exists {
		close(events)
		delete(h.clients, conn)
		h.logger.Info("watch client disconnected", zap.String("remote_addr", conn.RemoteAddr().String()))
	}

	if err := conn.Close(); err != nil {
		h.logger.Debug("error closing connection", zap.Error(err))
	}
}

// CloseAllConnections closes all active watch connections.
func (h *WatchHandler) CloseAllConnections() {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn, events := range h.clients {
		close(events)
		delete(h.clients, conn)
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	// Give writePump goroutines time to send close messages.
	time.Sleep(100 * time.Millisecond)

	for _, conn := range conns {
		if err := conn.Close(); err != nil {
			h.logger.Debug("error closing connection", zap.Error(err))
		}
	}

	h.logger.Info("all watch connections closed")
}
