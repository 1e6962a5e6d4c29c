// Copyright © 2024 Aqsis-core contributors.
// Use is governed by a BSD-style license found in the LICENSE file.

package bucket

import (
	"math"
	"math/rand"
	"testing"

	"github.com/aqsisrender/core/math/geom"
	"github.com/aqsisrender/core/state"
)

func singleSampleOpaquePixel(color geom.Color, sx, sy float64) *Pixel {
	d := SampleData{SX: sx, SY: sy}
	d.Insert(SampleEntry{Z: 1, Color: color, Opacity: geom.White})
	return &Pixel{Xs: 1, Ys: 1, Samples: []SampleData{d}}
}

func TestFilterPixelUniformFieldPreservesColor(t *testing.T) {
	red := geom.Color{R: 1}
	pixelAt := func(x, y int) (*Pixel, bool) {
		if x < 0 || x > 4 || y < 0 || y > 4 {
			return nil, false
		}
		return singleSampleOpaquePixel(red, float64(x)+0.5, float64(y)+0.5), true
	}
	filter, ok := geom.NamedFilter("box")
	if !ok {
		t.Fatalf("box filter not registered")
	}
	out := FilterPixel(2, 2, filter, 2, 2, DepthMin, [3]float64{1, 1, 1}, nil, pixelAt)
	if math.Abs(out.Color.R-1) > 1e-9 {
		t.Fatalf("uniform red field filtered to %+v, want R=1", out.Color)
	}
}

func TestFilterPixelCropEdgeDoesNotDarken(t *testing.T) {
	white := geom.White
	pixelAt := func(x, y int) (*Pixel, bool) {
		// Only pixels with x >= 0 exist, simulating a crop at the left
		// edge of the frame.
		if x < 0 || y < 0 || y > 4 {
			return nil, false
		}
		return singleSampleOpaquePixel(white, float64(x)+0.5, float64(y)+0.5), true
	}
	filter, _ := geom.NamedFilter("box")
	out := FilterPixel(0, 2, filter, 2, 2, DepthMin, [3]float64{1, 1, 1}, nil, pixelAt)
	if math.Abs(out.Color.R-1) > 1e-9 {
		t.Fatalf("crop-edge pixel darkened: %+v, want full white (normalized by applied weight only)", out.Color)
	}
}

func TestExposeIdentityAtUnitGainGamma(t *testing.T) {
	c := geom.Color{R: 0.2, G: 0.5, B: 0.8}
	out := Expose(c, 1, 1)
	if out != c {
		t.Fatalf("Expose(c,1,1) = %+v, want %+v unchanged", out, c)
	}
}

func TestExposeAppliesGainAndGamma(t *testing.T) {
	c := geom.Color{R: 0.25}
	out := Expose(c, 2, 2)
	want := math.Sqrt(0.5)
	if math.Abs(out.R-want) > 1e-9 {
		t.Fatalf("Expose(0.25, gain=2, gamma=2).R = %v, want %v", out.R, want)
	}
}

func TestQuantizeClampsToRange(t *testing.T) {
	q := state.Quantize{One: 255, Min: 0, Max: 255, Dither: 0}
	rng := rand.New(rand.NewSource(1))
	over := Quantize(geom.Color{R: 2}, q, rng)
	if over.R != 255 {
		t.Fatalf("Quantize clamp high = %v, want 255", over.R)
	}
	under := Quantize(geom.Color{R: -1}, q, rng)
	if under.R != 0 {
		t.Fatalf("Quantize clamp low = %v, want 0", under.R)
	}
}

func TestQuantizeZeroOneMeansFloatingPoint(t *testing.T) {
	q := state.Quantize{}
	rng := rand.New(rand.NewSource(1))
	c := geom.Color{R: 0.123456}
	out := Quantize(c, q, rng)
	if out != c {
		t.Fatalf("Quantize with One=0 should pass through unchanged, got %+v want %+v", out, c)
	}
}

func TestQuantizeNoDitherIsDeterministic(t *testing.T) {
	q := state.Quantize{One: 255, Min: 0, Max: 255, Dither: 0}
	c := geom.Color{R: 0.5}
	a := Quantize(c, q, rand.New(rand.NewSource(1)))
	b := Quantize(c, q, rand.New(rand.NewSource(2)))
	if a != b {
		t.Fatalf("Dither=0 should ignore the rng stream: got %+v and %+v", a, b)
	}
}
