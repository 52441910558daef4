// Package lifecycle publishes connection and room lifecycle events.
package lifecycle

import (
	"context"

	"hexworld/server/logging"
)

const (
	// EventConnectionOpened is emitted when a WebSocket finishes the handshake.
	EventConnectionOpened logging.EventType = "lifecycle.connection_opened"
	// EventConnectionClosed is emitted when a connection goes away.
	EventConnectionClosed logging.EventType = "lifecycle.connection_closed"
	// EventRoomCreated is emitted when a room is minted.
	EventRoomCreated logging.EventType = "lifecycle.room_created"
	// EventRoomJoined is emitted when a connection joins a room.
	EventRoomJoined logging.EventType = "lifecycle.room_joined"
	// EventRoomLeft is emitted for every room a disconnecting member belonged to.
	EventRoomLeft logging.EventType = "lifecycle.room_left"
)

// ConnectionClosedPayload captures why a connection went away.
type ConnectionClosedPayload struct {
	Reason string `json:"reason"`
}

// RoomJoinedPayload captures the snapshot size handed to the joiner.
type RoomJoinedPayload struct {
	CellCount int `json:"cellCount"`
}

// ConnectionOpened publishes a connection handshake event.
func ConnectionOpened(ctx context.Context, pub logging.Publisher, connID string) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventConnectionOpened,
		Actor:    logging.EntityRef{ID: connID, Kind: logging.EntityKindConnection},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
	})
}

// ConnectionClosed publishes a connection teardown event.
func ConnectionClosed(ctx context.Context, pub logging.Publisher, connID, reason string) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventConnectionClosed,
		Actor:    logging.EntityRef{ID: connID, Kind: logging.EntityKindConnection},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  ConnectionClosedPayload{Reason: reason},
	})
}

// RoomCreated publishes a room creation event.
func RoomCreated(ctx context.Context, pub logging.Publisher, room, ownerID string) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventRoomCreated,
		Room:     room,
		Actor:    logging.EntityRef{ID: ownerID, Kind: logging.EntityKindConnection},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
	})
}

// RoomJoined publishes a join event with the snapshot size.
func RoomJoined(ctx context.Context, pub logging.Publisher, room, connID string, cellCount int) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventRoomJoined,
		Room:     room,
		Actor:    logging.EntityRef{ID: connID, Kind: logging.EntityKindConnection},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  RoomJoinedPayload{CellCount: cellCount},
	})
}

// RoomLeft publishes a leave event.
func RoomLeft(ctx context.Context, pub logging.Publisher, room, connID string) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventRoomLeft,
		Room:     room,
		Actor:    logging.EntityRef{ID: connID, Kind: logging.EntityKindConnection},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
	})
}
