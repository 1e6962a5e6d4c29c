// Copyright © 2024 Aqsis-core contributors.
// Use is governed by a BSD-style license found in the LICENSE file.

package bucket

import (
	"testing"

	"github.com/aqsisrender/core/math/geom"
	"github.com/aqsisrender/core/prim"
	"github.com/aqsisrender/core/shader"
	"github.com/aqsisrender/core/state"
)

func frontFacingSquare(t *testing.T, attrs *state.Attributes, z float64) *prim.Polygon {
	t.Helper()
	poly, err := prim.NewPolygon(attrs, []geom.V3{
		{X: -1, Y: -1, Z: z}, {X: 1, Y: -1, Z: z}, {X: 1, Y: 1, Z: z}, {X: -1, Y: 1, Z: z},
	}, nil)
	if err != nil {
		t.Fatalf("NewPolygon: %v", err)
	}
	return poly
}

// TestPipelineEndToEndSinglePolygon exercises the single-polygon sanity
// scenario: a camera-facing square at a known depth,
// filling a raster region, sampled, composited, filtered, and quantized
// to the expected solid color.
func TestPipelineEndToEndSinglePolygon(t *testing.T) {
	o := state.NewOptions()
	o.XRes, o.YRes = 8, 8
	o.ScreenWindow = [4]float64{-1, 1, -1, 1}
	o.Projection = state.Orthographic
	o.Near, o.Far = 0.01, 100
	o.PixelSamples = [2]int{2, 2}
	o.PixelFilter = "box"
	o.FilterWidth = [2]float64{1, 1}
	o.ColorQuantize = state.Quantize{} // floating-point output, no quantization noise.

	attrs := state.NewAttributes()
	attrs.Shading.Color = geom.Color{R: 1, G: 0, B: 0}
	attrs.Shading.Opacity = geom.White

	poly := frontFacingSquare(t, attrs, 5)

	p := NewPipeline(o, nil)
	bg := NewGrid(0, 0, o.XRes, o.YRes, 16, 16)
	b := NewBucket(0, 0, 0, 0, o.XRes, o.YRes, o.PixelSamples[0], o.PixelSamples[1], o.ShutterOpen, o.ShutterClose)

	bound := poly.Bound(0)
	p.DiceOrSplit(b, bg, PrimitiveJob{Prim: poly, Bound: bound}, 0)

	if len(b.Micros) == 0 {
		t.Fatalf("expected the polygon to dice directly into micropolygons")
	}
	for _, mp := range b.Micros {
		p.SampleMicropolygon(b, mp, false, 0, 0, 0, o.ZThreshold, nil)
	}

	// The square fills the entire screen window, so every pixel's center
	// should be covered and composite to solid red.
	c, a, _, _ := p.FinishPixel(0, 0, 4, 4, func(x, y int) (*Pixel, bool) {
		if x < 0 || x >= o.XRes || y < 0 || y >= o.YRes {
			return nil, false
		}
		return b.PixelAt(x, y), true
	})
	if c.R < 0.9 || c.G > 0.1 || c.B > 0.1 {
		t.Fatalf("center pixel composited to %+v, want solid red", c)
	}
	if a.R < 0.9 {
		t.Fatalf("center pixel alpha = %+v, want fully opaque", a)
	}
}

func TestShadeGridFallsBackToAttributeColor(t *testing.T) {
	attrs := state.NewAttributes()
	attrs.Shading.Color = geom.Color{R: 0.2, G: 0.4, B: 0.6}
	attrs.Shading.Opacity = geom.Color{R: 1, G: 1, B: 1}

	poly := frontFacingSquare(t, attrs, 5)
	g := poly.Dice()

	o := state.NewOptions()
	p := NewPipeline(o, nil)
	p.shadeGrid(g, attrs)

	for i, c := range g.Color {
		if c != attrs.Shading.Color {
			t.Fatalf("vertex %d shaded color = %+v, want the attribute's constant color %+v (no bound surface shader)", i, c, attrs.Shading.Color)
		}
	}
}

// countingLight records how many times it was asked to evaluate, so the
// test can confirm the pipeline actually runs active lights before the
// surface shader rather than silently dropping them.
type countingLight struct {
	evals int
}

func (l *countingLight) Name() string       { return "testlight" }
func (l *countingLight) Role() shader.Role  { return shader.LightSource }
func (l *countingLight) Ambient() bool      { return false }
func (l *countingLight) Evaluate(env *shader.Environment, lights []shader.LightCtx) error {
	l.evals++
	return nil
}

// litSurface asserts it was handed exactly the active lights the pipeline
// resolved, and tints the result to confirm it ran at all.
type litSurface struct {
	t        *testing.T
	wantName string
}

func (s *litSurface) Name() string      { return "testsurface" }
func (s *litSurface) Role() shader.Role { return shader.Surface }
func (s *litSurface) Ambient() bool     { return false }
func (s *litSurface) Evaluate(env *shader.Environment, lights []shader.LightCtx) error {
	if len(lights) != 1 || lights[0].Shader.Name() != s.wantName {
		s.t.Fatalf("surface shader saw lights = %+v, want exactly one named %q", lights, s.wantName)
	}
	for i := range env.Ci {
		env.Ci[i] = geom.Color{R: 1, G: 1, B: 1}
	}
	return nil
}

func TestShadeGridRunsActiveLightsBeforeSurface(t *testing.T) {
	attrs := state.NewAttributes()
	attrs.Shading.Color = geom.Color{R: 0.2, G: 0.4, B: 0.6}
	attrs.Shading.ActiveLights = map[int]bool{1: true, 2: false}

	light := &countingLight{}
	surface := &litSurface{t: t, wantName: "testlight"}
	attrs.Shading.BoundSurface = surface

	poly := frontFacingSquare(t, attrs, 5)
	g := poly.Dice()

	o := state.NewOptions()
	p := NewPipeline(o, nil)
	p.Lights = map[int]shader.Shader{1: light, 2: &countingLight{}}
	p.shadeGrid(g, attrs)

	if light.evals != 1 {
		t.Fatalf("active light evaluated %d times, want exactly 1 (once per grid, before the surface shader)", light.evals)
	}
	for i, c := range g.Color {
		if c != (geom.Color{R: 1, G: 1, B: 1}) {
			t.Fatalf("vertex %d shaded color = %+v, want the surface shader's output", i, c)
		}
	}
}

// TestDiceAndShadePopulatesMotionKeys exercises
// transformation motion blur: a primitive queued with MotionDeltas dices
// and shades once, then gets one extra MotionP/MotionRaster key per
// delta, each the shutter-open shade translated by that delta.
func TestDiceAndShadePopulatesMotionKeys(t *testing.T) {
	attrs := state.NewAttributes()
	poly := frontFacingSquare(t, attrs, 5)

	o := state.NewOptions()
	o.XRes, o.YRes = 8, 8
	o.ScreenWindow = [4]float64{-1, 1, -1, 1}
	o.Projection = state.Orthographic

	p := NewPipeline(o, nil)
	bg := NewGrid(0, 0, o.XRes, o.YRes, 16, 16)
	b := NewBucket(0, 0, 0, 0, o.XRes, o.YRes, 1, 1, 0, 1)

	var delta geom.M4
	delta.TranslateTM(1, 0, 0)
	job := PrimitiveJob{Prim: poly, Bound: poly.Bound(0), MotionDeltas: []geom.M4{delta}}
	p.diceAndShade(b, bg, job, 0)

	if len(b.Micros) == 0 {
		t.Fatalf("expected the polygon to dice into micropolygons")
	}
	for _, mp := range b.Micros {
		if len(mp.KeyTimes) != 2 {
			t.Fatalf("micropolygon carries %d key times, want 2 (shutter-open + 1 motion delta)", len(mp.KeyTimes))
		}
	}
}

func TestProjectGridFillsRaster(t *testing.T) {
	attrs := state.NewAttributes()
	poly := frontFacingSquare(t, attrs, 5)
	g := poly.Dice()

	o := state.NewOptions()
	o.XRes, o.YRes = 100, 100
	p := NewPipeline(o, nil)
	p.projectGrid(g)

	for i, r := range g.Raster {
		if r.X < 0 || r.X > float64(o.XRes) || r.Y < 0 || r.Y > float64(o.YRes) {
			t.Fatalf("vertex %d projected outside raster frame: %+v", i, r)
		}
	}
}
