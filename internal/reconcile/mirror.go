// Package reconcile maintains a client-side mirror of a room's cell state.
// Snapshots arrive once at join time and are applied in batches so a large
// room never stalls the caller's render loop; deltas arrive continuously
// and merge with the same shallow-merge rule the server uses.
package reconcile

import (
	"sync"

	server "hexworld/server"
)

// DefaultBatchSize bounds how many snapshot cells one Tick applies.
const DefaultBatchSize = 10

// Phase describes how far a cell has progressed visually. Transitions are
// derived purely from which fields are set; no combination is rejected.
type Phase int

const (
	PhaseUntouched Phase = iota
	PhaseColored
	PhaseExtruded
	PhaseModelAttached
)

func (p Phase) String() string {
	switch p {
	case PhaseColored:
		return "colored"
	case PhaseExtruded:
		return "extruded"
	case PhaseModelAttached:
		return "model"
	default:
		return "untouched"
	}
}

// PhaseOf derives the render phase from a cell's state.
func PhaseOf(state server.CellState) Phase {
	switch {
	case state.VoxelModel != nil:
		return PhaseModelAttached
	case state.Height != nil && *state.Height > 0:
		return PhaseExtruded
	case state.Color != nil:
		return PhaseColored
	default:
		return PhaseUntouched
	}
}

// ChangeFunc observes one cell changing. The renderer subscribes here;
// merge logic itself never performs rendering side effects.
type ChangeFunc func(cellID string, state server.CellState, phase Phase)

type snapshotEntry struct {
	cellID string
	state  *server.CellState
}

// Mirror is the local, eventually consistent copy of a room's cells. All
// methods are safe for concurrent use; the mutex serializes the read-loop
// and render-loop goroutines.
type Mirror struct {
	mu        sync.Mutex
	cells     map[string]*server.CellState
	pending   []snapshotEntry
	batchSize int
	onChange  []ChangeFunc
}

// NewMirror creates an empty mirror. batchSize <= 0 selects
// DefaultBatchSize.
func NewMirror(batchSize int) *Mirror {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Mirror{
		cells:     make(map[string]*server.CellState),
		batchSize: batchSize,
	}
}

// OnChange registers a change observer. Observers run synchronously inside
// the applying call, after the merge has completed.
func (m *Mirror) OnChange(fn ChangeFunc) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	m.onChange = append(m.onChange, fn)
	m.mu.Unlock()
}

// ApplySnapshot resets the mirror and queues the snapshot for batched
// application. Nothing is visible until the caller pumps Tick.
func (m *Mirror) ApplySnapshot(cells map[string]*server.CellState) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cells = make(map[string]*server.CellState, len(cells))
	m.pending = m.pending[:0]
	for id, state := range cells {
		m.pending = append(m.pending, snapshotEntry{cellID: id, state: state.Clone()})
	}
}

// Tick applies at most one batch of pending snapshot cells and reports
// whether more work remains. The caller schedules the next batch on its
// next cooperative tick.
func (m *Mirror) Tick() bool {
	m.mu.Lock()

	n := m.batchSize
	if n > len(m.pending) {
		n = len(m.pending)
	}
	batch := m.pending[:n]
	m.pending = m.pending[n:]

	applied := make([]snapshotEntry, 0, n)
	for _, entry := range batch {
		m.cells[entry.cellID] = entry.state
		applied = append(applied, snapshotEntry{cellID: entry.cellID, state: entry.state.Clone()})
	}
	observers := append([]ChangeFunc(nil), m.onChange...)
	remaining := len(m.pending) > 0
	m.mu.Unlock()

	for _, entry := range applied {
		notify(observers, entry.cellID, *entry.state)
	}
	return remaining
}

// Pending reports how many snapshot cells still wait for a Tick.
func (m *Mirror) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// ApplyDelta merges one cell update into the mirror. Re-applying an
// identical delta leaves the state unchanged.
//
// A delta can arrive while the cell's snapshot entry is still queued. The
// delta is newer than the snapshot on an ordered connection, so the queued
// entry is applied and removed here before the merge; a later Tick must not
// clobber the merged cell with pre-join state.
func (m *Mirror) ApplyDelta(cellID string, delta server.CellDelta, lastUpdated int64) {
	m.mu.Lock()
	for i, entry := range m.pending {
		if entry.cellID == cellID {
			m.cells[cellID] = entry.state
			m.pending = append(m.pending[:i], m.pending[i+1:]...)
			break
		}
	}
	cell, ok := m.cells[cellID]
	if !ok {
		cell = &server.CellState{}
		m.cells[cellID] = cell
	}
	if delta.Color != nil {
		color := *delta.Color
		cell.Color = &color
	}
	if delta.Height != nil {
		height := *delta.Height
		cell.Height = &height
	}
	if delta.VoxelModel != nil {
		model := *delta.VoxelModel
		cell.VoxelModel = &model
	}
	cell.LastUpdated = lastUpdated
	state := *cell.Clone()
	observers := append([]ChangeFunc(nil), m.onChange...)
	m.mu.Unlock()

	notify(observers, cellID, state)
}

// Cell returns a copy of one cell's mirrored state.
func (m *Mirror) Cell(cellID string) (server.CellState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cell, ok := m.cells[cellID]
	if !ok {
		return server.CellState{}, false
	}
	return *cell.Clone(), true
}

// ColorOf returns the mirrored color of a cell, or nil when unset. The
// terrain generator reads colors back through this before building deltas.
func (m *Mirror) ColorOf(cellID string) *string {
	m.mu.Lock()
	defer m.mu.Unlock()
	cell, ok := m.cells[cellID]
	if !ok || cell.Color == nil {
		return nil
	}
	color := *cell.Color
	return &color
}

// Len reports how many cells have been applied to the mirror.
func (m *Mirror) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.cells)
}

func notify(observers []ChangeFunc, cellID string, state server.CellState) {
	phase := PhaseOf(state)
	for _, fn := range observers {
		fn(cellID, state, phase)
	}
}
