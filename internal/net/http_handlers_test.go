package net

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	server "hexworld/server"
	"hexworld/server/logging"
	"hexworld/server/models"
)

func newHandler(t *testing.T, cfg HTTPHandlerConfig) http.Handler {
	t.Helper()
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard, "", 0)
	}
	store := server.NewRoomStore(1)
	hub := server.NewHub(store, nil)
	return NewHTTPHandler(hub, models.Default(), cfg)
}

func TestHealthEndpoint(t *testing.T) {
	handler := newHandler(t, HTTPHandlerConfig{})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "ok" {
		t.Fatalf("body = %q, want ok", rec.Body.String())
	}
}

func TestModelsEndpoint(t *testing.T) {
	handler := newHandler(t, HTTPHandlerConfig{})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/models", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var payload struct {
		Models []string `json:"models"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	want := models.Default().IDs()
	if len(payload.Models) != len(want) {
		t.Fatalf("models = %v, want %v", payload.Models, want)
	}
	for i, id := range want {
		if payload.Models[i] != id {
			t.Fatalf("models[%d] = %q, want %q", i, payload.Models[i], id)
		}
	}
}

func TestDiagnosticsEndpoint(t *testing.T) {
	handler := newHandler(t, HTTPHandlerConfig{
		RouterStats: func() logging.RouterStats {
			return logging.RouterStats{EventsTotal: 12, DroppedTotal: 1}
		},
	})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/diagnostics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var payload struct {
		Status      string `json:"status"`
		ServerTime  int64  `json:"serverTime"`
		Connections int    `json:"connections"`
		Rooms       int    `json:"rooms"`
		Logging     *struct {
			EventsTotal  uint64 `json:"eventsTotal"`
			DroppedTotal uint64 `json:"droppedTotal"`
		} `json:"logging"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if payload.Status != "ok" || payload.ServerTime == 0 {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if payload.Connections != 0 || payload.Rooms != 0 {
		t.Fatalf("idle server reported connections=%d rooms=%d", payload.Connections, payload.Rooms)
	}
	if payload.Logging == nil || payload.Logging.EventsTotal != 12 {
		t.Fatalf("logging stats missing: %+v", payload.Logging)
	}
}

func TestCORSHeaders(t *testing.T) {
	handler := newHandler(t, HTTPHandlerConfig{CORSOrigin: "https://editor.example"})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://editor.example" {
		t.Fatalf("allow-origin = %q", got)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/models", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d, want 204", rec.Code)
	}
}
