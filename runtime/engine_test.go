// Copyright © 2024 Aqsis-core contributors.
// Use is governed by a BSD-style license found in the LICENSE file.

package runtime

import (
	"testing"

	"github.com/aqsisrender/core/display"
	"github.com/aqsisrender/core/math/geom"
	"github.com/aqsisrender/core/param"
	"github.com/aqsisrender/core/ri"
	"github.com/aqsisrender/core/state"
	"github.com/aqsisrender/core/stats"
)

// newTestContext wires a fresh ri.Context to a fresh Engine backed by a
// MemoryDriver — the end-to-end stack scenarios are meant to
// drive, rather than stopping at the bucket package's own boundary.
func newTestContext() (*ri.Context, *display.MemoryDriver) {
	mem := display.NewMemoryDriver()
	engine := NewEngine(display.NewManager(mem), stats.NewHandler(stats.Ignore), nil, nil, 2)
	ctx := ri.NewContext(engine, nil, stats.NewHandler(stats.Ignore), nil)
	return ctx, mem
}

// quadParams builds a Polygon call's inline-declared "P" parameter from 4
// vertices, in the order they are to be wound.
func quadParams(ctx *ri.Context, verts [4]geom.V3) *param.List {
	floats := make([]float64, 0, 12)
	for _, v := range verts {
		floats = append(floats, v.X, v.Y, v.Z)
	}
	params := ctx.NewParamList()
	if err := params.Get("vertex point[4] P", floats, nil); err != nil {
		panic(err) // malformed inline declaration is a test-authoring bug, not a runtime condition.
	}
	return params
}

func baseTestOptions(t *testing.T, ctx *ri.Context, xres, yres int) {
	t.Helper()
	if err := ctx.Format(xres, yres, 1); err != nil {
		t.Fatalf("Format: %v", err)
	}
	if err := ctx.ScreenWindow(-1, 1, -1, 1); err != nil {
		t.Fatalf("ScreenWindow: %v", err)
	}
	if err := ctx.Projection("orthographic", nil); err != nil {
		t.Fatalf("Projection: %v", err)
	}
	if err := ctx.Clipping(0.01, 100); err != nil {
		t.Fatalf("Clipping: %v", err)
	}
	if err := ctx.PixelSamples(2, 2); err != nil {
		t.Fatalf("PixelSamples: %v", err)
	}
	if err := ctx.PixelFilter("box", 1, 1); err != nil {
		t.Fatalf("PixelFilter: %v", err)
	}
	if err := ctx.Quantize("rgba", 0, 0, 0, 0); err != nil { // floating-point output, no quantization noise.
		t.Fatalf("Quantize: %v", err)
	}
}

// TestEngineSinglePolygonScenario drives a single camera-facing square
// through Begin/FrameBegin/WorldBegin/Polygon/WorldEnd against a
// MemoryDriver, exercising the single-polygon sanity scenario through
// the full RI surface end to end (bucket/pipeline_test.go's
// TestPipelineEndToEndSinglePolygon exercises the same scenario but only
// at the bucket package's own boundary, never through ri or runtime).
func TestEngineSinglePolygonScenario(t *testing.T) {
	ctx, mem := newTestContext()

	if err := ctx.Begin("test"); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := ctx.FrameBegin(1); err != nil {
		t.Fatalf("FrameBegin: %v", err)
	}
	baseTestOptions(t, ctx, 8, 8)
	if err := ctx.WorldBegin(); err != nil {
		t.Fatalf("WorldBegin: %v", err)
	}

	ctx.Color(geom.Color{R: 1, G: 0, B: 0})
	ctx.Opacity(geom.White)
	square := quadParams(ctx, [4]geom.V3{
		{X: -1, Y: -1, Z: 5}, {X: 1, Y: -1, Z: 5}, {X: 1, Y: 1, Z: 5}, {X: -1, Y: 1, Z: 5},
	})
	if err := ctx.Polygon(square); err != nil {
		t.Fatalf("Polygon: %v", err)
	}

	if err := ctx.WorldEnd(); err != nil {
		t.Fatalf("WorldEnd: %v", err)
	}
	if err := ctx.FrameEnd(); err != nil {
		t.Fatalf("FrameEnd: %v", err)
	}
	if err := ctx.End(); err != nil {
		t.Fatalf("End: %v", err)
	}

	s := mem.At(4, 4)
	if s.Color.R < 0.9 || s.Color.G > 0.1 || s.Color.B > 0.1 {
		t.Fatalf("center pixel composited to %+v, want solid red", s.Color)
	}
	if s.Alpha.R < 0.9 {
		t.Fatalf("center pixel alpha = %+v, want fully opaque", s.Alpha)
	}
}

// TestEngineCropWindowScenario checks that a CropWindow restricts both the
// display buffer's extent and where the square's pixels land: a 160x120
// frame cropped to the right half gets a MemoryDriver buffer sized and
// addressed to only that sub-rect.
func TestEngineCropWindowScenario(t *testing.T) {
	ctx, mem := newTestContext()

	if err := ctx.Begin("test"); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := ctx.FrameBegin(1); err != nil {
		t.Fatalf("FrameBegin: %v", err)
	}
	baseTestOptions(t, ctx, 160, 120)
	if err := ctx.CropWindow(0.5, 1.0, 0.0, 0.5); err != nil {
		t.Fatalf("CropWindow: %v", err)
	}
	if err := ctx.WorldBegin(); err != nil {
		t.Fatalf("WorldBegin: %v", err)
	}

	ctx.Color(geom.Color{R: 0, G: 1, B: 0})
	ctx.Opacity(geom.White)
	square := quadParams(ctx, [4]geom.V3{
		{X: -1, Y: -1, Z: 5}, {X: 1, Y: -1, Z: 5}, {X: 1, Y: 1, Z: 5}, {X: -1, Y: 1, Z: 5},
	})
	if err := ctx.Polygon(square); err != nil {
		t.Fatalf("Polygon: %v", err)
	}

	if err := ctx.WorldEnd(); err != nil {
		t.Fatalf("WorldEnd: %v", err)
	}

	wantX0, wantX1, wantY0, wantY1 := 80, 160, 0, 60
	if mem.Info.X0 != wantX0 || mem.Info.X1 != wantX1 || mem.Info.Y0 != wantY0 || mem.Info.Y1 != wantY1 {
		t.Fatalf("display opened with bounds (%d,%d,%d,%d), want (%d,%d,%d,%d)",
			mem.Info.X0, mem.Info.Y0, mem.Info.X1, mem.Info.Y1, wantX0, wantY0, wantX1, wantY1)
	}
	if got := len(mem.Pixels); got != (wantX1-wantX0)*(wantY1-wantY0) {
		t.Fatalf("display buffer has %d pixels, want %d", got, (wantX1-wantX0)*(wantY1-wantY0))
	}

	s := mem.At(100, 30)
	if s.Color.G < 0.9 {
		t.Fatalf("pixel inside crop window = %+v, want solid green", s.Color)
	}
}

// TestEngineCSGDifferenceScenario punches a small B solid fully through a
// larger A solid and checks that A minus B is transparent where B's
// footprint overlaps A, and solid A color everywhere else. A's front/back
// caps span the whole screen window at z=2/z=8; B's span a small central
// footprint at z=1/z=9, fully enclosing A's z-extent so the subtraction
// leaves no inner wall, just a hole. A cap's Enter flag is derived from its
// raster-space winding (bucket/pipeline.go's frontFacing): the orthographic
// camera's screen-to-raster mapping flips Y, which in turn flips a
// polygon's winding sign, so the vertex order that resolves to Enter=true
// here is the reverse of the "obvious" math-convention CCW order —
// empirically matched against bucket/pipeline_test.go's frontFacingSquare
// via the bucket-level CSG tests in composite_test.go.
func TestEngineCSGDifferenceScenario(t *testing.T) {
	ctx, mem := newTestContext()

	if err := ctx.Begin("test"); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := ctx.FrameBegin(1); err != nil {
		t.Fatalf("FrameBegin: %v", err)
	}
	baseTestOptions(t, ctx, 8, 8)
	if err := ctx.WorldBegin(); err != nil {
		t.Fatalf("WorldBegin: %v", err)
	}

	ctx.Color(geom.Color{R: 1, G: 0, B: 0})
	ctx.Opacity(geom.White)

	enterOrder := func(x0, y0, x1, y1, z float64) [4]geom.V3 {
		return [4]geom.V3{{X: x0, Y: y0, Z: z}, {X: x0, Y: y1, Z: z}, {X: x1, Y: y1, Z: z}, {X: x1, Y: y0, Z: z}}
	}
	exitOrder := func(x0, y0, x1, y1, z float64) [4]geom.V3 {
		return [4]geom.V3{{X: x0, Y: y0, Z: z}, {X: x1, Y: y0, Z: z}, {X: x1, Y: y1, Z: z}, {X: x0, Y: y1, Z: z}}
	}

	if err := ctx.SolidBegin(state.SolidDifference); err != nil {
		t.Fatalf("SolidBegin(difference): %v", err)
	}

	if err := ctx.SolidBegin(state.SolidPrimitive); err != nil {
		t.Fatalf("SolidBegin(A): %v", err)
	}
	if err := ctx.Polygon(quadParams(ctx, enterOrder(-1, -1, 1, 1, 2))); err != nil {
		t.Fatalf("A front cap: %v", err)
	}
	if err := ctx.Polygon(quadParams(ctx, exitOrder(-1, -1, 1, 1, 8))); err != nil {
		t.Fatalf("A back cap: %v", err)
	}
	if err := ctx.SolidEnd(); err != nil {
		t.Fatalf("SolidEnd(A): %v", err)
	}

	if err := ctx.SolidBegin(state.SolidPrimitive); err != nil {
		t.Fatalf("SolidBegin(B): %v", err)
	}
	if err := ctx.Polygon(quadParams(ctx, enterOrder(-0.3, -0.3, 0.3, 0.3, 1))); err != nil {
		t.Fatalf("B front cap: %v", err)
	}
	if err := ctx.Polygon(quadParams(ctx, exitOrder(-0.3, -0.3, 0.3, 0.3, 9))); err != nil {
		t.Fatalf("B back cap: %v", err)
	}
	if err := ctx.SolidEnd(); err != nil {
		t.Fatalf("SolidEnd(B): %v", err)
	}

	if err := ctx.SolidEnd(); err != nil {
		t.Fatalf("SolidEnd(difference): %v", err)
	}

	if err := ctx.WorldEnd(); err != nil {
		t.Fatalf("WorldEnd: %v", err)
	}

	outside := mem.At(0, 0)
	if outside.Color.R < 0.9 || outside.Alpha.R < 0.9 {
		t.Fatalf("pixel outside B's footprint = %+v, want solid opaque red", outside)
	}
	hole := mem.At(4, 4)
	if hole.Alpha.R > 0.1 {
		t.Fatalf("pixel inside B's punched hole = %+v, want fully transparent", hole)
	}
}
