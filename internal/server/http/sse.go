package http

import (
	"encoding/json"
	"net/http"

	"jeeves/internal/domain"
	"jeeves/internal/eventhub"
	"jeeves/internal/logging"
)

// SSEHandler streams the event hub's broadcasts to a single HTTP client as
// server-sent events, one `data: <json>\n\n` frame per event.
type SSEHandler struct {
	hub    *eventhub.Hub
	logger logging.Logger
}

// NewSSEHandler wires an SSEHandler against the shared event hub.
func NewSSEHandler(hub *eventhub.Hub) *SSEHandler {
	return &SSEHandler{hub: hub, logger: logging.NewComponentLogger("sse")}
}

// HandleStream subscribes the requesting client to the event hub for the
// lifetime of the connection and flushes each event as it arrives.
func (h *SSEHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

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

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-events:
			data, err := json.Marshal(e)
			if err != nil {
				h.logger.Warn("sse: marshal event: %v", err)
				continue
			}
			if _, err := w.Write([]byte("data: ")); err != nil {
				return
			}
			if _, err := w.Write(data); err != nil {
				return
			}
			if _, err := w.Write([]byte("\n\n")); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
