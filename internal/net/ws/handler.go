// Package ws upgrades connections and pumps the sync protocol's inbound
// leg: every message is decoded and handed to the hub, which applies and
// broadcasts before the next read.
package ws

import (
	"encoding/json"
	"log"
	nethttp "net/http"

	"github.com/gorilla/websocket"
	"github.com/segmentio/ksuid"

	server "hexworld/server"
)

type HandlerConfig struct {
	Logger *log.Logger
}

type Handler struct {
	hub      *server.Hub
	logger   *log.Logger
	upgrader websocket.Upgrader
}

// clientMessage is the single inbound message shape; Type selects which of
// the remaining fields matter.
type clientMessage struct {
	Ver    int               `json:"ver,omitempty"`
	Type   string            `json:"type"`
	Code   string            `json:"code,omitempty"`
	Room   string            `json:"room,omitempty"`
	CellID string            `json:"cellId,omitempty"`
	Delta  *server.CellDelta `json:"delta,omitempty"`
	Text   string            `json:"text,omitempty"`
}

func NewHandler(hub *server.Hub, cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Handler{
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *nethttp.Request) bool {
				return true
			},
		},
	}
}

// Handle upgrades the request, mints a connection id, and runs the read
// loop until the peer goes away. Reads are handled to completion one at a
// time, which is what keeps room broadcasts ordered.
func (h *Handler) Handle(w nethttp.ResponseWriter, r *nethttp.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("upgrade failed: %v", err)
		return
	}

	connID := ksuid.New().String()
	if err := h.hub.Register(connID, conn); err != nil {
		h.logger.Printf("failed to greet %s: %v", connID, err)
		h.hub.Disconnect(connID, "greeting failed")
		return
	}

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			h.hub.Disconnect(connID, "read failed")
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			h.logger.Printf("discarding malformed message from %s: %v", connID, err)
			continue
		}

		switch msg.Type {
		case "create_room":
			h.hub.HandleCreateRoom(connID)
		case "join_room":
			h.hub.HandleJoinRoom(connID, msg.Code)
		case "cell_action":
			var delta server.CellDelta
			if msg.Delta != nil {
				delta = *msg.Delta
			}
			h.hub.HandleCellAction(connID, msg.Room, msg.CellID, delta)
		case "chat":
			h.hub.HandleChat(connID, msg.Room, msg.Text)
		default:
			h.logger.Printf("ignoring unknown message type %q from %s", msg.Type, connID)
		}
	}
}
