// Package terrain produces deterministic, reproducible height fields for
// the hex grid from a numeric seed. Generation runs on a client and feeds
// the sync protocol one cell update at a time; the server never computes
// terrain itself.
package terrain

import "math"

// NoiseField is a seeded 2D gradient noise source. Two fields built from
// the same seed return bit-identical values for every input.
type NoiseField struct {
	perm [512]int
}

// NewNoiseField builds the permutation table for a seed. A 32-bit
// multiply-xor-shift mixer drives a Fisher-Yates shuffle of 0..255; the
// table is duplicated to length 512 so lattice lookups never wrap.
func NewNoiseField(seed uint32) *NoiseField {
	var p [256]int
	for i := range p {
		p[i] = i
	}

	state := seed
	next := func() uint32 {
		state += 0x6d2b79f5
		z := state
		z = (z ^ z>>15) * (z | 1)
		z ^= z + (z^z>>7)*(z|61)
		return z ^ z>>14
	}

	for i := 255; i > 0; i-- {
		j := int(next() % uint32(i+1))
		p[i], p[j] = p[j], p[i]
	}

	field := &NoiseField{}
	for i := 0; i < 512; i++ {
		field.perm[i] = p[i&255]
	}
	return field
}

// fade is the quintic smoothstep 6t⁵-15t⁴+10t³.
func fade(t float64) float64 {
	return t * t * t * (t*(t*6-15) + 10)
}

func lerp(a, b, t float64) float64 {
	return a + t*(b-a)
}

// grad projects the fractional offset onto one of four diagonal gradients
// selected by the corner hash.
func grad(hash int, x, y float64) float64 {
	switch hash & 3 {
	case 0:
		return x + y
	case 1:
		return -x + y
	case 2:
		return x - y
	default:
		return -x - y
	}
}

// Noise returns classic gradient noise in [-1, 1] for a point on the
// lattice plane.
func (f *NoiseField) Noise(x, y float64) float64 {
	fx := math.Floor(x)
	fy := math.Floor(y)
	xi := int(fx) & 255
	yi := int(fy) & 255
	xf := x - fx
	yf := y - fy

	u := fade(xf)
	v := fade(yf)

	aa := f.perm[f.perm[xi]+yi]
	ab := f.perm[f.perm[xi]+yi+1]
	ba := f.perm[f.perm[xi+1]+yi]
	bb := f.perm[f.perm[xi+1]+yi+1]

	x1 := lerp(grad(aa, xf, yf), grad(ba, xf-1, yf), u)
	x2 := lerp(grad(ab, xf, yf-1), grad(bb, xf-1, yf-1), u)
	return lerp(x1, x2, v)
}

// FractalNoise sums octaves layers of Noise at doubling frequency and
// persistence-scaled amplitude, normalizes by the total amplitude, and
// remaps the result from [-1, 1] to [0, 1].
func (f *NoiseField) FractalNoise(x, y float64, octaves int, persistence float64) float64 {
	if octaves < 1 {
		octaves = 1
	}

	total := 0.0
	frequency := 1.0
	amplitude := 1.0
	maxAmplitude := 0.0
	for i := 0; i < octaves; i++ {
		total += f.Noise(x*frequency, y*frequency) * amplitude
		maxAmplitude += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	normalized := (total/maxAmplitude + 1) / 2
	if normalized < 0 {
		return 0
	}
	if normalized > 1 {
		return 1
	}
	return normalized
}
