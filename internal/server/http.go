package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/esimkit/esimctl/internal/logging"
	"github.com/esimkit/esimctl/internal/protocol"
	"github.com/esimkit/esimctl/internal/version"
)

// HealthPath answers plain HTTP probes.
const HealthPath = "/healthz"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// Handler routes the websocket endpoint and the health probe.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(protocol.Path, s.serveWebSocket)
	mux.HandleFunc(HealthPath, serveHealth)
	return mux
}

func (s *Server) serveWebSocket(w http.ResponseWriter, r *http.Request) {
	LogHTTPRequestDetails(r)

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		logging.Warn("WebSocket upgrade failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}

	s.handleConnection(r.Context(), protocol.NewConn(ws))
}

func serveHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"version": version.Version,
	})
}

// LogHTTPRequestDetails logs the upgrade request at debug level.
func LogHTTPRequestDetails(req *http.Request) {
	headers := make(map[string]string)
	for key, values := range req.Header {
		headers[key] = strings.Join(values, ", ")
	}

	logging.Debug("WebSocket upgrade request",
		zap.String("remote_addr", req.RemoteAddr),
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.String("user_agent", req.Header.Get("User-Agent")),
		zap.Any("headers", headers),
	)
}
