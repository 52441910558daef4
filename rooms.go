package server

import (
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"
)

// ErrRoomNotFound is returned when a join names a code with no live room.
var ErrRoomNotFound = errors.New("room not found")

// RoomNotFoundReason is the wire-facing reason string for ErrRoomNotFound.
const RoomNotFoundReason = "Room not found"

// Room is one collaborative session: an isolated cell map plus the set of
// connections editing it. Rooms are ephemeral; when the last member leaves
// the room and its cell history are dropped.
type Room struct {
	Code      string
	HostID    string
	Members   map[string]struct{}
	Cells     map[string]*CellState
	CreatedAt time.Time
}

// RoomStore owns every live room and the connection→room membership index.
// It is constructed once at process start and injected into the hub; there
// is no package-level registry. A single mutex serializes all operations
// and no operation blocks mid-mutation, so room state never observes a
// partial write.
type RoomStore struct {
	mu          sync.Mutex
	rooms       map[string]*Room
	memberRooms map[string]map[string]struct{}
	rng         *rand.Rand
	clock       func() time.Time
}

// NewRoomStore creates an empty store whose room codes are drawn from the
// given seed. The RNG is deliberately non-cryptographic; codes gate nothing
// but discovery.
func NewRoomStore(seed int64) *RoomStore {
	return &RoomStore{
		rooms:       make(map[string]*Room),
		memberRooms: make(map[string]map[string]struct{}),
		rng:         rand.New(rand.NewSource(seed)),
		clock:       time.Now,
	}
}

// mintRoomCodeLocked draws a 6-character uppercase alphanumeric code.
// Codes are not checked against live rooms; a collision would replace the
// existing room under that code, orphaning its members and cells. Left
// as-is on purpose: rooms are short-lived and the code space is large
// relative to concurrent room counts.
func (s *RoomStore) mintRoomCodeLocked() string {
	var code [roomCodeLength]byte
	for i := range code {
		code[i] = roomCodeAlphabet[s.rng.Intn(len(roomCodeAlphabet))]
	}
	return string(code[:])
}

// CreateRoom mints a code, creates an empty room owned by ownerID, and
// records the owner's membership.
func (s *RoomStore) CreateRoom(ownerID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	code := s.mintRoomCodeLocked()
	s.rooms[code] = &Room{
		Code:      code,
		HostID:    ownerID,
		Members:   map[string]struct{}{ownerID: {}},
		Cells:     make(map[string]*CellState),
		CreatedAt: s.clock(),
	}
	s.indexMemberLocked(ownerID, code)
	return code
}

// JoinRoom adds a connection to the room's membership and returns a deep
// copy of the full cell map as the join-time snapshot. Codes are
// case-insensitive on input. An unknown code fails with ErrRoomNotFound and
// leaves no membership side effects.
func (s *RoomStore) JoinRoom(code, connID string) (map[string]*CellState, error) {
	code = strings.ToUpper(code)

	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[code]
	if !ok {
		return nil, ErrRoomNotFound
	}

	room.Members[connID] = struct{}{}
	s.indexMemberLocked(connID, code)
	return CloneCells(room.Cells), nil
}

// ApplyCellUpdate shallow-merges a delta into a cell, creating the entry on
// first touch, and stamps LastUpdated. It reports the stamp and whether the
// room exists; a missing room is a silent no-op. The cell id is stored
// as-is — the store never validates keys against the grid topology.
func (s *RoomStore) ApplyCellUpdate(code, cellID string, delta CellDelta) (int64, bool) {
	code = strings.ToUpper(code)

	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[code]
	if !ok {
		return 0, false
	}

	cell, ok := room.Cells[cellID]
	if !ok {
		cell = &CellState{}
		room.Cells[cellID] = cell
	}
	cell.Merge(delta, s.clock())
	return cell.LastUpdated, true
}

// Leave removes the connection from every room it belongs to and returns
// the affected room codes. Rooms whose membership drains are deleted
// outright, cell history included.
func (s *RoomStore) Leave(connID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	codes := s.memberRooms[connID]
	if len(codes) == 0 {
		delete(s.memberRooms, connID)
		return nil
	}

	affected := make([]string, 0, len(codes))
	for code := range codes {
		affected = append(affected, code)
		room, ok := s.rooms[code]
		if !ok {
			continue
		}
		delete(room.Members, connID)
		if len(room.Members) == 0 {
			delete(s.rooms, code)
		}
	}
	delete(s.memberRooms, connID)
	return affected
}

// Members returns the current member connection ids for a room, or nil for
// an unknown code.
func (s *RoomStore) Members(code string) []string {
	code = strings.ToUpper(code)

	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[code]
	if !ok {
		return nil
	}
	members := make([]string, 0, len(room.Members))
	for id := range room.Members {
		members = append(members, id)
	}
	return members
}

// IsMember reports whether a connection currently belongs to the room.
func (s *RoomStore) IsMember(code, connID string) bool {
	code = strings.ToUpper(code)

	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[code]
	if !ok {
		return false
	}
	_, member := room.Members[connID]
	return member
}

// RoomCount reports the number of live rooms.
func (s *RoomStore) RoomCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms)
}

// CellSnapshot returns a deep copy of one cell's state, or nil when the
// room or cell is unknown. Used by diagnostics and tests.
func (s *RoomStore) CellSnapshot(code, cellID string) *CellState {
	code = strings.ToUpper(code)

	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[code]
	if !ok {
		return nil
	}
	return room.Cells[cellID].Clone()
}

// indexMemberLocked keeps the reverse index in lockstep with the room's
// member set.
func (s *RoomStore) indexMemberLocked(connID, code string) {
	codes, ok := s.memberRooms[connID]
	if !ok {
		codes = make(map[string]struct{})
		s.memberRooms[connID] = codes
	}
	codes[code] = struct{}{}
}
