package terrain

import (
	"math/rand"
	"testing"
)

func TestSameSeedProducesIdenticalFields(t *testing.T) {
	first := NewNoiseField(1234)
	second := NewNoiseField(1234)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 1000; i++ {
		x := rng.Float64()*200 - 100
		y := rng.Float64()*200 - 100
		for octaves := 1; octaves <= 6; octaves++ {
			a := first.FractalNoise(x, y, octaves, 0.5)
			b := second.FractalNoise(x, y, octaves, 0.5)
			if a != b {
				t.Fatalf("fields diverged at (%v, %v) octaves=%d: %v vs %v", x, y, octaves, a, b)
			}
		}
	}
}

func TestDifferentSeedsProduceDifferentFields(t *testing.T) {
	first := NewNoiseField(1)
	second := NewNoiseField(2)

	diverged := false
	for i := 0; i < 64 && !diverged; i++ {
		x := float64(i)*0.37 + 0.11
		y := float64(i)*0.53 + 0.29
		if first.Noise(x, y) != second.Noise(x, y) {
			diverged = true
		}
	}
	if !diverged {
		t.Fatal("fields with different seeds never diverged")
	}
}

func TestNoiseStaysWithinUnitRange(t *testing.T) {
	field := NewNoiseField(99)
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 10000; i++ {
		x := rng.Float64()*500 - 250
		y := rng.Float64()*500 - 250
		v := field.Noise(x, y)
		if v < -1 || v > 1 {
			t.Fatalf("Noise(%v, %v) = %v escaped [-1, 1]", x, y, v)
		}
	}
}

func TestFractalNoiseStaysWithinBounds(t *testing.T) {
	field := NewNoiseField(2026)
	rng := rand.New(rand.NewSource(8))
	for i := 0; i < 10000; i++ {
		x := rng.Float64()*300 - 150
		y := rng.Float64()*300 - 150
		octaves := 1 + i%6
		v := field.FractalNoise(x, y, octaves, 0.5)
		if v < 0 || v > 1 {
			t.Fatalf("FractalNoise(%v, %v, %d) = %v escaped [0, 1]", x, y, octaves, v)
		}
	}
}

func TestNoiseIsZeroOnLatticePoints(t *testing.T) {
	field := NewNoiseField(5)
	for x := -3; x <= 3; x++ {
		for y := -3; y <= 3; y++ {
			if v := field.Noise(float64(x), float64(y)); v != 0 {
				t.Fatalf("Noise(%d, %d) = %v, want 0 on lattice points", x, y, v)
			}
		}
	}
}
