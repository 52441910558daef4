package server

import "time"

// Rotation is a per-axis rotation for a placed voxel model, in radians.
type Rotation struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// VoxelModel describes a decorative object placed on a cell. A delta that
// carries a model replaces the stored object wholesale; individual model
// fields are never merged.
type VoxelModel struct {
	Type        string   `json:"type"`
	Scale       float64  `json:"scale,omitempty"`
	Rotation    Rotation `json:"rotation"`
	Animate     bool     `json:"animate,omitempty"`
	HoverRange  float64  `json:"hoverRange,omitempty"`
	HoverSpeed  float64  `json:"hoverSpeed,omitempty"`
	RotateSpeed float64  `json:"rotateSpeed,omitempty"`
}

// CellDelta is a partial update for one cell. Nil fields are absent and
// leave the stored value untouched; the pointer wrappers keep "absent"
// distinguishable from a zero value on the wire.
type CellDelta struct {
	Color      *string     `json:"color,omitempty"`
	Height     *float64    `json:"height,omitempty"`
	VoxelModel *VoxelModel `json:"voxelModel,omitempty"`
}

// IsEmpty reports whether the delta would change nothing.
func (d CellDelta) IsEmpty() bool {
	return d.Color == nil && d.Height == nil && d.VoxelModel == nil
}

// CellState is the stored attribute set for one touched cell. Untouched
// cells have no entry at all; every field stays optional after the first
// write.
type CellState struct {
	Color       *string     `json:"color,omitempty"`
	Height      *float64    `json:"height,omitempty"`
	VoxelModel  *VoxelModel `json:"voxelModel,omitempty"`
	LastUpdated int64       `json:"lastUpdated,omitempty"`
}

// Merge shallow-merges a delta into the state: present fields fully replace
// the stored value, absent fields are left alone, and LastUpdated is
// stamped with now. Applying the same delta twice yields the same state.
func (s *CellState) Merge(delta CellDelta, now time.Time) {
	if delta.Color != nil {
		color := *delta.Color
		s.Color = &color
	}
	if delta.Height != nil {
		height := *delta.Height
		s.Height = &height
	}
	if delta.VoxelModel != nil {
		model := *delta.VoxelModel
		s.VoxelModel = &model
	}
	s.LastUpdated = now.UnixMilli()
}

// Clone returns a copy that shares no pointers with the receiver.
func (s *CellState) Clone() *CellState {
	if s == nil {
		return nil
	}
	cloned := &CellState{LastUpdated: s.LastUpdated}
	if s.Color != nil {
		color := *s.Color
		cloned.Color = &color
	}
	if s.Height != nil {
		height := *s.Height
		cloned.Height = &height
	}
	if s.VoxelModel != nil {
		model := *s.VoxelModel
		cloned.VoxelModel = &model
	}
	return cloned
}

// CloneCells deep-copies a cell map for snapshot hand-off.
func CloneCells(cells map[string]*CellState) map[string]*CellState {
	cloned := make(map[string]*CellState, len(cells))
	for id, state := range cells {
		cloned[id] = state.Clone()
	}
	return cloned
}
