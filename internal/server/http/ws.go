package http

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"jeeves/internal/domain"
	"jeeves/internal/eventhub"
	"jeeves/internal/logging"
)

// WebSocketHandler is the socket-transport alternative to SSEHandler for
// streaming C10 events: one frame per EventEnvelope, same payload shape,
// for clients that prefer a persistent duplex socket over text/event-stream.
type WebSocketHandler struct {
	hub      *eventhub.Hub
	upgrader websocket.Upgrader
	logger   logging.Logger
}

// NewWebSocketHandler wires a WebSocketHandler against the shared event hub.
// The upgrader allows any origin: CORS for the REST surface is handled by
// CORSMiddleware, and a websocket upgrade has no preflight to gate on.
func NewWebSocketHandler(hub *eventhub.Hub) *WebSocketHandler {
	return &WebSocketHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logging.NewComponentLogger("ws"),
	}
}

const wsWriteTimeout = 10 * time.Second

// HandleStream upgrades the connection and relays event hub broadcasts until
// the client disconnects or a write stalls past wsWriteTimeout.
func (h *WebSocketHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws: upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	events := make(chan domain.EventEnvelope, 64)
	subID := h.hub.AddSubscriber(func(e domain.EventEnvelope) error {
		select {
		case events <- e:
		default:
			// slow client: drop rather than block the broadcaster
		}
		return nil
	})
	defer h.hub.RemoveSubscriber(subID)

	// Drain client reads on a background goroutine purely to notice
	// disconnects (the protocol is server-push only, no client frames).
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-closed:
			return
		case e := <-events:
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(e); err != nil {
				return
			}
		}
	}
}
