// Package http wires the boundary command surface (C15) onto a stdlib
// net/http server: one ServeMux using Go 1.22+ method-specific patterns,
// a JSON command dispatcher, an SSE stream and a websocket stream over
// the event hub, and a small middleware stack (logging, CORS) in the
// teacher's style.
package http

import (
	"net/http"
	"strings"
	"time"

	"jeeves/internal/eventhub"
	"jeeves/internal/logging"
)

// RouterConfig configures cross-cutting router behavior.
type RouterConfig struct {
	Environment      string
	AllowedOrigins   []string
	NonStreamTimeout time.Duration
}

// NewRouter builds the full jeeves HTTP handler: the command API, the SSE
// viewer stream, and the health check, wrapped in logging and CORS.
func NewRouter(api *APIHandler, hub *eventhub.Hub, cfg RouterConfig) http.Handler {
	logger := logging.NewComponentLogger("router")
	sse := NewSSEHandler(hub)
	ws := NewWebSocketHandler(hub)

	mux := http.NewServeMux()
	mux.Handle("POST /api/command", routeHandler("/api/command", http.HandlerFunc(api.HandleCommand)))
	mux.Handle("GET /api/events", routeHandler("/api/events", http.HandlerFunc(sse.HandleStream)))
	mux.Handle("GET /api/events/ws", routeHandler("/api/events/ws", http.HandlerFunc(ws.HandleStream)))
	mux.Handle("GET /health", routeHandler("/health", http.HandlerFunc(api.HandleHealth)))

	var handler http.Handler = mux
	handler = LoggingMiddleware(logger)(handler)
	handler = CORSMiddleware(cfg.Environment, cfg.AllowedOrigins)(handler)
	if cfg.NonStreamTimeout > 0 {
		handler = TimeoutMiddleware(cfg.NonStreamTimeout)(handler)
	}
	return handler
}

func routeHandler(route string, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Header.Set("X-Jeeves-Route", route)
		handler.ServeHTTP(w, r)
	})
}

func isStreamingRoute(path string) bool {
	return strings.HasPrefix(path, "/api/events")
}
