package server

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"hexworld/server/logging"
	"hexworld/server/logging/lifecycle"
	protocollog "hexworld/server/logging/protocol"
)

// Hub couples the room store to live WebSocket subscribers and enforces the
// broadcast rules of the sync protocol. Room mutations and their fanout run
// under one mutex, so every member of a room observes cell updates in the
// same relative order. There is no ordering across rooms.
type Hub struct {
	mu    sync.Mutex
	store *RoomStore
	subs  map[string]*subscriber
	pub   logging.Publisher
	clock func() time.Time
}

type subscriber struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *subscriber) send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// NewHub wires the hub to an injected store and event publisher.
func NewHub(store *RoomStore, pub logging.Publisher) *Hub {
	if pub == nil {
		pub = logging.NopPublisher()
	}
	return &Hub{
		store: store,
		subs:  make(map[string]*subscriber),
		pub:   pub,
		clock: time.Now,
	}
}

// Store exposes the injected room store for diagnostics and tests.
func (h *Hub) Store() *RoomStore {
	return h.store
}

// Register associates a connection id with an upgraded socket and sends the
// connected greeting. A lingering subscriber under the same id is closed
// first.
func (h *Hub) Register(connID string, conn *websocket.Conn) error {
	h.mu.Lock()
	if existing, ok := h.subs[connID]; ok {
		existing.conn.Close()
	}
	sub := &subscriber{conn: conn}
	h.subs[connID] = sub
	h.mu.Unlock()

	lifecycle.ConnectionOpened(context.Background(), h.pub, connID)

	data, err := json.Marshal(connectedMessage{Ver: ProtocolVersion, Type: msgConnected, ClientID: connID})
	if err != nil {
		return err
	}
	return sub.send(data)
}

// HandleCreateRoom mints a room owned by the connection and replies with
// its code.
func (h *Hub) HandleCreateRoom(connID string) {
	code := h.store.CreateRoom(connID)
	lifecycle.RoomCreated(context.Background(), h.pub, code, connID)
	h.sendTo(connID, roomCreatedMessage{Ver: ProtocolVersion, Type: msgRoomCreated, Code: code})
}

// HandleJoinRoom adds the connection to the room and replies with the full
// cell snapshot, or with a room_error when the code is unknown. Remaining
// members are told about the newcomer. The reply and the membership fanout
// happen under the hub lock so the snapshot cannot race a concurrent delta.
func (h *Hub) HandleJoinRoom(connID, code string) {
	h.mu.Lock()
	cells, err := h.store.JoinRoom(code, connID)
	if err != nil {
		h.mu.Unlock()
		h.sendTo(connID, roomErrorMessage{Ver: ProtocolVersion, Type: msgRoomError, Reason: RoomNotFoundReason})
		return
	}

	joined := normalizeRoomCode(code)
	failed := h.sendToLocked(connID, roomJoinedMessage{Ver: ProtocolVersion, Type: msgRoomJoined, Code: joined, Cells: cells})
	failed = append(failed, h.broadcastRoomLocked(joined, memberEventMessage{Ver: ProtocolVersion, Type: msgUserJoined, Room: joined, ID: connID}, connID)...)
	h.mu.Unlock()

	lifecycle.RoomJoined(context.Background(), h.pub, joined, connID, len(cells))
	h.dropConnections(failed, "write failed")
}

// HandleCellAction applies a delta through the store and broadcasts the
// resulting cell_updated to every member of the room, the sender included.
// Senders never apply speculatively; the echo is the one code path that
// mutates a mirror. An unknown room is a silent no-op.
func (h *Hub) HandleCellAction(connID, code, cellID string, delta CellDelta) {
	room := normalizeRoomCode(code)

	h.mu.Lock()
	stamp, ok := h.store.ApplyCellUpdate(room, cellID, delta)
	if !ok {
		h.mu.Unlock()
		protocollog.CellDropped(context.Background(), h.pub, room, connID)
		return
	}

	members := h.store.Members(room)
	msg := cellUpdatedMessage{
		Ver:         ProtocolVersion,
		Type:        msgCellUpdated,
		Room:        room,
		CellID:      cellID,
		Delta:       delta,
		LastUpdated: stamp,
	}
	failed := h.broadcastRoomLocked(room, msg)
	h.mu.Unlock()

	protocollog.CellUpdated(context.Background(), h.pub, room, connID, cellID, protocollog.CellUpdatedPayload{
		Color:      delta.Color != nil,
		Height:     delta.Height != nil,
		VoxelModel: delta.VoxelModel != nil,
		Members:    len(members),
	})
	h.dropConnections(failed, "write failed")
}

// HandleChat stamps a chat line with the sender and server time and fans it
// out to the room. Unknown rooms drop the line silently.
func (h *Hub) HandleChat(connID, code, text string) {
	room := normalizeRoomCode(code)

	h.mu.Lock()
	members := h.store.Members(room)
	if members == nil {
		h.mu.Unlock()
		return
	}
	msg := chatBroadcastMessage{
		Ver:       ProtocolVersion,
		Type:      msgChat,
		Room:      room,
		SenderID:  connID,
		Text:      text,
		Timestamp: h.clock().UnixMilli(),
	}
	failed := h.broadcastRoomLocked(room, msg)
	h.mu.Unlock()

	protocollog.ChatBroadcast(context.Background(), h.pub, room, connID, len(members))
	h.dropConnections(failed, "write failed")
}

// Disconnect tears down a connection: the socket is closed, the store
// forgets the membership, rooms that drain are deleted, and remaining
// members get a user_left notice. Safe to call twice.
func (h *Hub) Disconnect(connID, reason string) {
	h.mu.Lock()
	sub, ok := h.subs[connID]
	if ok {
		delete(h.subs, connID)
	}

	affected := h.store.Leave(connID)

	var failed []string
	for _, room := range affected {
		failed = append(failed, h.broadcastRoomLocked(room, memberEventMessage{Ver: ProtocolVersion, Type: msgUserLeft, Room: room, ID: connID})...)
	}
	h.mu.Unlock()

	if ok {
		sub.conn.Close()
		lifecycle.ConnectionClosed(context.Background(), h.pub, connID, reason)
	}
	for _, room := range affected {
		lifecycle.RoomLeft(context.Background(), h.pub, room, connID)
	}
	h.dropConnections(failed, "write failed")
}

// DiagnosticsSnapshot reports coarse counts for the diagnostics endpoint.
func (h *Hub) DiagnosticsSnapshot() (connections, rooms int) {
	h.mu.Lock()
	connections = len(h.subs)
	h.mu.Unlock()
	return connections, h.store.RoomCount()
}

// broadcastRoomLocked marshals once and writes to every member of the room,
// minus any ids listed in skip. It returns the connection ids whose writes
// failed; the caller cleans those up after releasing the hub lock.
func (h *Hub) broadcastRoomLocked(room string, msg any, skip ...string) []string {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("failed to marshal broadcast for room %s: %v", room, err)
		return nil
	}

	var failed []string
	for _, id := range h.store.Members(room) {
		if contains(skip, id) {
			continue
		}
		sub, ok := h.subs[id]
		if !ok {
			continue
		}
		if err := sub.send(data); err != nil {
			log.Printf("failed to send update to %s: %v", id, err)
			failed = append(failed, id)
		}
	}
	return failed
}

// sendToLocked writes one message to a single connection while the hub
// lock is held. Like broadcastRoomLocked it defers cleanup to the caller.
func (h *Hub) sendToLocked(connID string, msg any) []string {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("failed to marshal message for %s: %v", connID, err)
		return nil
	}
	sub, ok := h.subs[connID]
	if !ok {
		return nil
	}
	if err := sub.send(data); err != nil {
		log.Printf("failed to send message to %s: %v", connID, err)
		return []string{connID}
	}
	return nil
}

func (h *Hub) sendTo(connID string, msg any) {
	h.mu.Lock()
	failed := h.sendToLocked(connID, msg)
	h.mu.Unlock()
	h.dropConnections(failed, "write failed")
}

// dropConnections disconnects every listed id outside the hub lock.
func (h *Hub) dropConnections(ids []string, reason string) {
	for _, id := range ids {
		h.Disconnect(id, reason)
	}
}

func contains(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

func normalizeRoomCode(code string) string {
	return strings.ToUpper(code)
}
