// Package net exposes the HTTP surface: health, diagnostics, the model
// catalog, and the WebSocket upgrade.
package net

import (
	"encoding/json"
	"log"
	nethttp "net/http"
	"time"

	"github.com/gorilla/mux"

	server "hexworld/server"
	"hexworld/server/internal/net/ws"
	"hexworld/server/logging"
	"hexworld/server/models"
)

type HTTPHandlerConfig struct {
	Logger      *log.Logger
	RouterStats func() logging.RouterStats
	CORSOrigin  string
}

// NewHTTPHandler wires the routes onto a gorilla/mux router.
func NewHTTPHandler(hub *server.Hub, catalog *models.Catalog, cfg HTTPHandlerConfig) nethttp.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	if catalog == nil {
		catalog = models.Default()
	}

	router := mux.NewRouter()

	router.HandleFunc("/health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	}).Methods(nethttp.MethodGet)

	router.HandleFunc("/diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		connections, rooms := hub.DiagnosticsSnapshot()
		payload := struct {
			Status      string `json:"status"`
			ServerTime  int64  `json:"serverTime"`
			Connections int    `json:"connections"`
			Rooms       int    `json:"rooms"`
			Logging     any    `json:"logging,omitempty"`
		}{
			Status:      "ok",
			ServerTime:  time.Now().UnixMilli(),
			Connections: connections,
			Rooms:       rooms,
		}
		if cfg.RouterStats != nil {
			payload.Logging = cfg.RouterStats()
		}
		writeJSON(w, logger, payload)
	}).Methods(nethttp.MethodGet)

	router.HandleFunc("/models", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		writeJSON(w, logger, struct {
			Models []string `json:"models"`
		}{Models: catalog.IDs()})
	}).Methods(nethttp.MethodGet)

	wsHandler := ws.NewHandler(hub, ws.HandlerConfig{Logger: logger})
	router.HandleFunc("/ws", wsHandler.Handle)

	return withCORS(router, cfg.CORSOrigin)
}

func writeJSON(w nethttp.ResponseWriter, logger *log.Logger, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Printf("failed to encode response: %v", err)
		nethttp.Error(w, "failed to encode", nethttp.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

// withCORS lets the browser client talk to a server on another origin.
func withCORS(h nethttp.Handler, origin string) nethttp.Handler {
	if origin == "" {
		origin = "*"
	}
	return nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type")
		if r.Method == nethttp.MethodOptions {
			w.WriteHeader(nethttp.StatusNoContent)
			return
		}
		h.ServeHTTP(w, r)
	})
}
