// Package client implements an in-process participant for the sync
// protocol: it dials the server's WebSocket endpoint, mirrors room state
// through a reconciler, and submits cell actions, chat, and terrain passes.
// The end-to-end tests drive the whole protocol through this package.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	server "hexworld/server"
	"hexworld/server/internal/reconcile"
	"hexworld/server/internal/terrain"
)

// Options tune a client. The zero value selects the defaults.
type Options struct {
	// BatchSize bounds snapshot application per mirror tick.
	BatchSize int
	// TickInterval is the cadence of the mirror pump, standing in for the
	// render loop's frame tick.
	TickInterval time.Duration
	// EventBuffer sizes the observation channels used by tests.
	EventBuffer int
	// Logger receives connection-level noise.
	Logger *log.Logger
}

const (
	defaultTickInterval = 15 * time.Millisecond
	defaultEventBuffer  = 256
)

// CellUpdate is one observed cell_updated broadcast.
type CellUpdate struct {
	Room        string
	CellID      string
	Delta       server.CellDelta
	LastUpdated int64
}

// Chat is one observed chat broadcast.
type Chat struct {
	Room      string
	SenderID  string
	Text      string
	Timestamp int64
}

// MemberEvent is one observed user_joined or user_left notice.
type MemberEvent struct {
	Room   string
	ID     string
	Joined bool
}

type joinReply struct {
	code string
	err  error
}

// Client is one live connection. Methods are safe for concurrent use; the
// read loop is the only writer into the mirror besides the snapshot pump.
type Client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	mirror  *reconcile.Mirror
	logger  *log.Logger

	id string

	mu   sync.Mutex
	room string

	created chan string
	joined  chan joinReply
	updates chan CellUpdate
	chats   chan Chat
	members chan MemberEvent

	done      chan struct{}
	closeOnce sync.Once
}

// serverMessage is the union of everything the server sends.
type serverMessage struct {
	Ver         int                          `json:"ver"`
	Type        string                       `json:"type"`
	ClientID    string                       `json:"clientId"`
	Code        string                       `json:"code"`
	Cells       map[string]*server.CellState `json:"cells"`
	Reason      string                       `json:"reason"`
	Room        string                       `json:"room"`
	CellID      string                       `json:"cellId"`
	Delta       server.CellDelta             `json:"delta"`
	LastUpdated int64                        `json:"lastUpdated"`
	SenderID    string                       `json:"senderId"`
	Text        string                       `json:"text"`
	Timestamp   int64                        `json:"timestamp"`
	ID          string                       `json:"id"`
}

// clientMessage mirrors the server's inbound shape.
type clientMessage struct {
	Ver    int               `json:"ver,omitempty"`
	Type   string            `json:"type"`
	Code   string            `json:"code,omitempty"`
	Room   string            `json:"room,omitempty"`
	CellID string            `json:"cellId,omitempty"`
	Delta  *server.CellDelta `json:"delta,omitempty"`
	Text   string            `json:"text,omitempty"`
}

// Dial connects, waits for the server's connected greeting, and starts the
// read loop and the mirror pump.
func Dial(ctx context.Context, url string, opts Options) (*Client, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	tickInterval := opts.TickInterval
	if tickInterval <= 0 {
		tickInterval = defaultTickInterval
	}
	eventBuffer := opts.EventBuffer
	if eventBuffer <= 0 {
		eventBuffer = defaultEventBuffer
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if resp != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	_, payload, err := conn.ReadMessage()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("read greeting: %w", err)
	}
	var greeting serverMessage
	if err := json.Unmarshal(payload, &greeting); err != nil {
		conn.Close()
		return nil, fmt.Errorf("decode greeting: %w", err)
	}
	if greeting.Type != "connected" || greeting.ClientID == "" {
		conn.Close()
		return nil, fmt.Errorf("unexpected greeting %q", greeting.Type)
	}

	c := &Client{
		conn:    conn,
		mirror:  reconcile.NewMirror(opts.BatchSize),
		logger:  logger,
		id:      greeting.ClientID,
		created: make(chan string, 1),
		joined:  make(chan joinReply, 1),
		updates: make(chan CellUpdate, eventBuffer),
		chats:   make(chan Chat, eventBuffer),
		members: make(chan MemberEvent, eventBuffer),
		done:    make(chan struct{}),
	}

	go c.readLoop()
	go c.pumpMirror(tickInterval)

	return c, nil
}

// ID returns the server-minted connection id.
func (c *Client) ID() string {
	return c.id
}

// Mirror exposes the local cell mirror.
func (c *Client) Mirror() *reconcile.Mirror {
	return c.mirror
}

// Room returns the code of the room the client last created or joined.
func (c *Client) Room() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room
}

// CreateRoom asks the server for a fresh room and waits for its code. The
// creator is a member immediately; no separate join is required.
func (c *Client) CreateRoom(ctx context.Context) (string, error) {
	if err := c.write(clientMessage{Type: "create_room"}); err != nil {
		return "", err
	}
	select {
	case code := <-c.created:
		c.mu.Lock()
		c.room = code
		c.mu.Unlock()
		return code, nil
	case <-c.done:
		return "", errors.New("connection closed")
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// JoinRoom joins an existing room and waits for the snapshot (or the
// server's room_error). Codes are uppercased before sending.
func (c *Client) JoinRoom(ctx context.Context, code string) error {
	code = strings.ToUpper(code)
	if err := c.write(clientMessage{Type: "join_room", Code: code}); err != nil {
		return err
	}
	select {
	case reply := <-c.joined:
		if reply.err != nil {
			return reply.err
		}
		c.mu.Lock()
		c.room = reply.code
		c.mu.Unlock()
		return nil
	case <-c.done:
		return errors.New("connection closed")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SendCellAction submits a delta for one cell of the current room. The
// local mirror is only touched when the server's echo arrives.
func (c *Client) SendCellAction(cellID string, delta server.CellDelta) error {
	return c.write(clientMessage{Type: "cell_action", Room: c.Room(), CellID: cellID, Delta: &delta})
}

// SendChat submits a chat line for the current room.
func (c *Client) SendChat(text string) error {
	return c.write(clientMessage{Type: "chat", Room: c.Room(), Text: text})
}

// GenerateTerrain runs a random terrain pass over the grid and submits one
// cell action per cell, preserving colors already present in the mirror.
// It returns the number of submitted updates.
func (c *Client) GenerateTerrain(rng *rand.Rand, radius int) (int, error) {
	params := terrain.RandomParams(rng, radius)
	return c.applyTerrain(params, radius)
}

// ApplyTerrain replays a fixed parameter set, for reproducible passes.
func (c *Client) ApplyTerrain(params terrain.Params, radius int) (int, error) {
	return c.applyTerrain(params, radius)
}

func (c *Client) applyTerrain(params terrain.Params, radius int) (int, error) {
	updates := terrain.Generate(params, radius, c.mirror.ColorOf)
	for _, update := range updates {
		height := update.Height
		delta := server.CellDelta{Height: &height, Color: update.Color}
		if err := c.SendCellAction(update.CellID, delta); err != nil {
			return 0, fmt.Errorf("terrain cell %s: %w", update.CellID, err)
		}
	}
	return len(updates), nil
}

// WaitSynced blocks until the snapshot queue has drained into the mirror.
func (c *Client) WaitSynced(ctx context.Context) error {
	for {
		if c.mirror.Pending() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return errors.New("connection closed")
		case <-time.After(time.Millisecond):
		}
	}
}

// NextCellUpdate blocks for the next observed cell_updated broadcast.
func (c *Client) NextCellUpdate(ctx context.Context) (CellUpdate, error) {
	select {
	case update := <-c.updates:
		return update, nil
	case <-c.done:
		return CellUpdate{}, errors.New("connection closed")
	case <-ctx.Done():
		return CellUpdate{}, ctx.Err()
	}
}

// NextChat blocks for the next observed chat broadcast.
func (c *Client) NextChat(ctx context.Context) (Chat, error) {
	select {
	case chat := <-c.chats:
		return chat, nil
	case <-c.done:
		return Chat{}, errors.New("connection closed")
	case <-ctx.Done():
		return Chat{}, ctx.Err()
	}
}

// NextMemberEvent blocks for the next user_joined/user_left notice.
func (c *Client) NextMemberEvent(ctx context.Context) (MemberEvent, error) {
	select {
	case event := <-c.members:
		return event, nil
	case <-c.done:
		return MemberEvent{}, errors.New("connection closed")
	case <-ctx.Done():
		return MemberEvent{}, ctx.Err()
	}
}

// Close tears the connection down politely.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()
		err = c.conn.Close()
		close(c.done)
	})
	return err
}

func (c *Client) write(msg clientMessage) error {
	msg.Ver = server.ProtocolVersion
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *Client) readLoop() {
	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			c.Close()
			return
		}

		var msg serverMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			c.logger.Printf("discarding malformed server message: %v", err)
			continue
		}

		switch msg.Type {
		case "room_created":
			select {
			case c.created <- msg.Code:
			default:
			}
		case "room_joined":
			c.mirror.ApplySnapshot(msg.Cells)
			select {
			case c.joined <- joinReply{code: msg.Code}:
			default:
			}
		case "room_error":
			select {
			case c.joined <- joinReply{err: errors.New(msg.Reason)}:
			default:
			}
		case "cell_updated":
			c.mirror.ApplyDelta(msg.CellID, msg.Delta, msg.LastUpdated)
			c.observe(CellUpdate{Room: msg.Room, CellID: msg.CellID, Delta: msg.Delta, LastUpdated: msg.LastUpdated})
		case "chat":
			select {
			case c.chats <- Chat{Room: msg.Room, SenderID: msg.SenderID, Text: msg.Text, Timestamp: msg.Timestamp}:
			default:
			}
		case "user_joined":
			select {
			case c.members <- MemberEvent{Room: msg.Room, ID: msg.ID, Joined: true}:
			default:
			}
		case "user_left":
			select {
			case c.members <- MemberEvent{Room: msg.Room, ID: msg.ID}:
			default:
			}
		default:
			// Unknown types are forward compatibility, not errors.
		}
	}
}

func (c *Client) observe(update CellUpdate) {
	select {
	case c.updates <- update:
	default:
		c.logger.Printf("dropping observed update for %s: buffer full", update.CellID)
	}
}

// pumpMirror drains snapshot batches at the tick cadence, one batch per
// tick, mimicking the render loop's cooperative scheduling.
func (c *Client) pumpMirror(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.mirror.Tick()
		}
	}
}
