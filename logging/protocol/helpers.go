// Package protocol publishes sync-protocol events: cell updates and chat.
package protocol

import (
	"context"

	"hexworld/server/logging"
)

const (
	// EventCellUpdated is emitted after a cell delta is applied and broadcast.
	EventCellUpdated logging.EventType = "sync.cell_updated"
	// EventCellDropped is emitted when a cell action named an unknown room.
	EventCellDropped logging.EventType = "sync.cell_dropped"
	// EventChatBroadcast is emitted when a chat line fans out to a room.
	EventChatBroadcast logging.EventType = "sync.chat_broadcast"
)

// CellUpdatedPayload captures which delta fields were present.
type CellUpdatedPayload struct {
	Color      bool `json:"color,omitempty"`
	Height     bool `json:"height,omitempty"`
	VoxelModel bool `json:"voxelModel,omitempty"`
	Members    int  `json:"members"`
}

// ChatBroadcastPayload captures the fanout size, not the message body.
type ChatBroadcastPayload struct {
	Members int `json:"members"`
}

// CellUpdated publishes a cell update event.
func CellUpdated(ctx context.Context, pub logging.Publisher, room, connID, cellID string, payload CellUpdatedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventCellUpdated,
		Room:     room,
		Actor:    logging.EntityRef{ID: connID, Kind: logging.EntityKindConnection},
		Severity: logging.SeverityDebug,
		Category: logging.CategorySync,
		Payload:  payload,
		Extra:    map[string]any{"cellId": cellID},
	})
}

// CellDropped publishes a silent no-op event for an unknown room.
func CellDropped(ctx context.Context, pub logging.Publisher, room, connID string) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventCellDropped,
		Room:     room,
		Actor:    logging.EntityRef{ID: connID, Kind: logging.EntityKindConnection},
		Severity: logging.SeverityWarn,
		Category: logging.CategorySync,
	})
}

// ChatBroadcast publishes a chat fanout event.
func ChatBroadcast(ctx context.Context, pub logging.Publisher, room, connID string, members int) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventChatBroadcast,
		Room:     room,
		Actor:    logging.EntityRef{ID: connID, Kind: logging.EntityKindConnection},
		Severity: logging.SeverityDebug,
		Category: logging.CategorySync,
		Payload:  ChatBroadcastPayload{Members: members},
	})
}
