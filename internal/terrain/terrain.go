package terrain

import (
	"math"
	"math/rand"

	"hexworld/server/internal/grid"
)

// HeightStep is the quantization unit for generated heights.
const HeightStep = 0.25

// baseHeight keeps every generated cell visibly extruded.
const baseHeight = HeightStep

// Peak marks a mountain center on the fractional axial plane.
type Peak struct {
	Q float64 `json:"q"`
	R float64 `json:"r"`
}

// Params are the shared knobs for one terrain pass. Every cell of the pass
// uses the same seed, peaks, and curve parameters, so replaying a pass with
// equal Params reproduces it exactly.
type Params struct {
	Seed       uint32  `json:"seed"`
	Octaves    int     `json:"octaves"`
	Scale      float64 `json:"scale"`
	Amplitude  float64 `json:"amplitude"`
	PeakHeight float64 `json:"peakHeight"`
	PeakWidth  float64 `json:"peakWidth"`
	Peaks      []Peak  `json:"peaks"`
}

// RandomParams draws a parameter set for a grid of the given radius: one or
// two peak centers at random angles and distances inside the bounding
// radius, plus shared scale, amplitude, and octave settings.
func RandomParams(rng *rand.Rand, radius int) Params {
	bound := float64(radius)

	peakCount := 1 + rng.Intn(2)
	peaks := make([]Peak, 0, peakCount)
	for i := 0; i < peakCount; i++ {
		angle := rng.Float64() * 2 * math.Pi
		distance := rng.Float64() * bound * 0.7
		peaks = append(peaks, Peak{
			Q: math.Cos(angle) * distance,
			R: math.Sin(angle) * distance,
		})
	}

	return Params{
		Seed:       rng.Uint32(),
		Octaves:    3 + rng.Intn(3),
		Scale:      0.08 + rng.Float64()*0.12,
		Amplitude:  2 + rng.Float64()*3,
		PeakHeight: 3 + rng.Float64()*3,
		PeakWidth:  bound*0.4 + rng.Float64()*bound*0.4,
		Peaks:      peaks,
	}
}

// PeakInfluence returns the extra height contributed by the nearest peak:
// an inverse-square falloff peakHeight*(1 - d²/width²) inside the peak
// width, zero outside it.
func PeakInfluence(q, r float64, peaks []Peak, peakHeight, peakWidth float64) float64 {
	if len(peaks) == 0 || peakWidth <= 0 {
		return 0
	}

	nearest := math.Inf(1)
	for _, peak := range peaks {
		d := math.Hypot(q-peak.Q, r-peak.R)
		if d < nearest {
			nearest = d
		}
	}

	if nearest >= peakWidth {
		return 0
	}
	return peakHeight * (1 - (nearest*nearest)/(peakWidth*peakWidth))
}

// CellUpdate is one generated cell: the quantized height plus the cell's
// pre-existing color carried forward so the merge on the server does not
// have to know about terrain passes.
type CellUpdate struct {
	CellID string
	Height float64
	Color  *string
}

// Generate computes the height field for every cell within radius of the
// origin and returns one update per cell. lookup reports the current color
// of a cell (nil when unset or when lookup itself is nil) and is consulted
// before the update is built.
func Generate(params Params, radius int, lookup func(cellID string) *string) []CellUpdate {
	field := NewNoiseField(params.Seed)
	cells := grid.CellsWithinRadius(grid.Coord{}, radius)

	updates := make([]CellUpdate, 0, len(cells))
	for _, cell := range cells {
		fq := float64(cell.Q)
		fr := float64(cell.R)

		height := baseHeight
		height += field.FractalNoise(fq*params.Scale, fr*params.Scale, params.Octaves, 0.5) * params.Amplitude
		height += PeakInfluence(fq, fr, params.Peaks, params.PeakHeight, params.PeakWidth)

		update := CellUpdate{
			CellID: cell.ID(),
			Height: QuantizeHeight(height),
		}
		if lookup != nil {
			update.Color = lookup(update.CellID)
		}
		updates = append(updates, update)
	}
	return updates
}

// QuantizeHeight snaps a height to the nearest HeightStep, clamped at zero.
func QuantizeHeight(height float64) float64 {
	quantized := math.Round(height/HeightStep) * HeightStep
	if quantized < 0 {
		return 0
	}
	return quantized
}
