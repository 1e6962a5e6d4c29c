// Copyright © 2024 Aqsis-core contributors.
// Use is governed by a BSD-style license found in the LICENSE file.

package runtime

import (
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/aqsisrender/core/display"
	"github.com/aqsisrender/core/math/geom"
	"github.com/aqsisrender/core/param"
	"github.com/aqsisrender/core/ri"
	"github.com/aqsisrender/core/shader"
	"github.com/aqsisrender/core/stats"
	"github.com/aqsisrender/core/texture"
)

// TestEngineShadowHiderScenario renders a half-frame occluder under the
// shadow hider: the engine must assemble a depth map carrying the
// light's matrices, persist it bit-identically through the texture
// subsystem, and answer shadow queries from it.
func TestEngineShadowHiderScenario(t *testing.T) {
	mem := display.NewMemoryDriver()
	engine := NewEngine(display.NewManager(mem), stats.NewHandler(stats.Ignore), nil, nil, 2)
	ctx := ri.NewContext(engine, nil, stats.NewHandler(stats.Ignore), nil)

	path := filepath.Join(t.TempDir(), "light.shad.tif")
	if err := ctx.Begin("test"); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := ctx.FrameBegin(1); err != nil {
		t.Fatalf("FrameBegin: %v", err)
	}
	baseTestOptions(t, ctx, 16, 16)
	if err := ctx.Hider("shadow", nil); err != nil {
		t.Fatalf("Hider: %v", err)
	}
	if err := ctx.Display(path, "file", "z", nil); err != nil {
		t.Fatalf("Display: %v", err)
	}
	if err := ctx.WorldBegin(); err != nil {
		t.Fatalf("WorldBegin: %v", err)
	}
	// Occluder over the left half of the light's view, at depth 5.
	occluder := quadParams(ctx, [4]geom.V3{
		{X: -1, Y: -1, Z: 5}, {X: 0, Y: -1, Z: 5}, {X: 0, Y: 1, Z: 5}, {X: -1, Y: 1, Z: 5},
	})
	if err := ctx.Polygon(occluder); err != nil {
		t.Fatalf("Polygon: %v", err)
	}
	if err := ctx.WorldEnd(); err != nil {
		t.Fatalf("WorldEnd: %v", err)
	}

	sm := engine.ShadowMap()
	if sm == nil {
		t.Fatal("shadow hider frame produced no shadow map")
	}
	if sm.XRes != 16 || sm.YRes != 16 {
		t.Fatalf("shadow map is %dx%d, want 16x16", sm.XRes, sm.YRes)
	}
	// Covered pixels store the occluder depth; uncovered ones the far
	// sentinel.
	if d := sm.Depths[8*16+4]; math.Abs(float64(d)-5) > 1e-5 {
		t.Fatalf("covered depth = %v, want 5", d)
	}
	if d := sm.Depths[8*16+12]; d != math.MaxFloat32 {
		t.Fatalf("uncovered depth = %v, want MaxFloat32", d)
	}

	// Round trip through the saved tiled float TIFF.
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening saved shadow map: %v", err)
	}
	defer f.Close()
	loaded, err := texture.ReadShadow(f)
	if err != nil {
		t.Fatalf("ReadShadow: %v", err)
	}
	for i := range sm.Depths {
		if math.Float32bits(loaded.Depths[i]) != math.Float32bits(sm.Depths[i]) {
			t.Fatalf("depth[%d] round-tripped to %v, want %v", i, loaded.Depths[i], sm.Depths[i])
		}
	}

	// Receivers behind the occluder (in light space) are fully shadowed;
	// in front of it, or beside it, fully lit.
	rng := rand.New(rand.NewSource(1))
	if lit, _ := loaded.Sample(geom.V3{X: -0.5, Y: 0, Z: 7}, 0, 0, 0, 0, 0.01, 0, 0, rng); lit != 0 {
		t.Fatalf("receiver behind occluder: lit = %v, want 0", lit)
	}
	if lit, _ := loaded.Sample(geom.V3{X: -0.5, Y: 0, Z: 4}, 0, 0, 0, 0, 0.01, 0, 0, rng); lit != 1 {
		t.Fatalf("receiver in front of occluder: lit = %v, want 1", lit)
	}
	if lit, _ := loaded.Sample(geom.V3{X: 0.5, Y: 0, Z: 7}, 0, 0, 0, 0, 0.01, 0, 0, rng); lit != 1 {
		t.Fatalf("receiver beside occluder: lit = %v, want 1", lit)
	}

	if err := ctx.FrameEnd(); err != nil {
		t.Fatalf("FrameEnd: %v", err)
	}
	if err := ctx.End(); err != nil {
		t.Fatalf("End: %v", err)
	}
}

// TestEngineMotionBlurScenario translates a narrow square across the
// frame over an open shutter: swept pixels get partial coverage
// proportional to the time the square covered them, rows outside the
// square's path stay empty.
func TestEngineMotionBlurScenario(t *testing.T) {
	ctx, mem := newTestContext()

	if err := ctx.Begin("test"); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := ctx.FrameBegin(1); err != nil {
		t.Fatalf("FrameBegin: %v", err)
	}
	baseTestOptions(t, ctx, 16, 16)
	if err := ctx.PixelSamples(4, 4); err != nil {
		t.Fatalf("PixelSamples: %v", err)
	}
	if err := ctx.Shutter(0, 1); err != nil {
		t.Fatalf("Shutter: %v", err)
	}
	if err := ctx.WorldBegin(); err != nil {
		t.Fatalf("WorldBegin: %v", err)
	}
	if err := ctx.MotionBegin([]float64{0, 1}); err != nil {
		t.Fatalf("MotionBegin: %v", err)
	}
	ctx.Translate(0, 0, 0)
	ctx.Translate(2, 0, 0)
	if err := ctx.MotionEnd(); err != nil {
		t.Fatalf("MotionEnd: %v", err)
	}
	square := quadParams(ctx, [4]geom.V3{
		{X: -0.9, Y: -0.5, Z: 5}, {X: -0.1, Y: -0.5, Z: 5}, {X: -0.1, Y: 0.5, Z: 5}, {X: -0.9, Y: 0.5, Z: 5},
	})
	if err := ctx.Polygon(square); err != nil {
		t.Fatalf("Polygon: %v", err)
	}
	if err := ctx.WorldEnd(); err != nil {
		t.Fatalf("WorldEnd: %v", err)
	}

	// The square is 0.4x the travel distance wide, so a pixel in the
	// swept core is covered for ~40% of the shutter.
	core := mem.At(8, 8).Alpha.R
	if core < 0.1 || core > 0.7 {
		t.Fatalf("swept-core coverage = %v, want partial (~0.4)", core)
	}
	if a := mem.At(8, 1).Alpha.R; a != 0 {
		t.Fatalf("row outside the sweep has coverage %v, want 0", a)
	}
	if err := ctx.FrameEnd(); err != nil {
		t.Fatalf("FrameEnd: %v", err)
	}
	if err := ctx.End(); err != nil {
		t.Fatalf("End: %v", err)
	}
}

// TestEngineDepthOfFieldScenario renders the same square in and out of
// focus: the in-focus square has hard edges, the defocused one bleeds
// coverage past its geometric footprint by its circle of confusion.
func TestEngineDepthOfFieldScenario(t *testing.T) {
	render := func(z float64) *display.MemoryDriver {
		ctx, mem := newTestContext()
		if err := ctx.Begin("test"); err != nil {
			t.Fatalf("Begin: %v", err)
		}
		if err := ctx.FrameBegin(1); err != nil {
			t.Fatalf("FrameBegin: %v", err)
		}
		baseTestOptions(t, ctx, 16, 16)
		if err := ctx.PixelSamples(4, 4); err != nil {
			t.Fatalf("PixelSamples: %v", err)
		}
		if err := ctx.DepthOfField(1, 2, 2); err != nil {
			t.Fatalf("DepthOfField: %v", err)
		}
		if err := ctx.WorldBegin(); err != nil {
			t.Fatalf("WorldBegin: %v", err)
		}
		square := quadParams(ctx, [4]geom.V3{
			{X: -0.5, Y: -0.5, Z: z}, {X: 0.5, Y: -0.5, Z: z}, {X: 0.5, Y: 0.5, Z: z}, {X: -0.5, Y: 0.5, Z: z},
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
		return mem
	}

	focused := render(2)   // at the focal distance: zero circle of confusion.
	defocused := render(1) // halfway to the lens: CoC = fl^2/(fstop*(fd-z)) = 4.

	if a := focused.At(8, 8).Alpha.R; a < 0.99 {
		t.Fatalf("in-focus square center coverage = %v, want 1", a)
	}
	if a := focused.At(12, 8).Alpha.R; a != 0 {
		t.Fatalf("in-focus square bleeds past its edge: coverage %v at x=12", a)
	}
	if a := defocused.At(12, 8).Alpha.R; a <= 0.05 {
		t.Fatalf("defocused square edge bleed = %v, want visible blur past the footprint", a)
	}
}

// tintShader is a stand-in imager: it overwrites every pixel's Ci with a
// constant, the way a background imager shader would.
type tintShader struct{ c geom.Color }

func (s *tintShader) Name() string      { return "tint" }
func (s *tintShader) Role() shader.Role { return shader.Imager }
func (s *tintShader) Ambient() bool     { return false }
func (s *tintShader) Evaluate(env *shader.Environment, _ []shader.LightCtx) error {
	for i := range env.Ci {
		env.Ci[i] = s.c
	}
	return nil
}

type tintFactory struct{ c geom.Color }

func (f tintFactory) Load(role shader.Role, name string, params *param.List) (shader.Shader, error) {
	return &tintShader{c: f.c}, nil
}

// TestEngineImagerShader checks the imager option runs on every output
// pixel after filtering: an empty world renders to the imager's color
// instead of black.
func TestEngineImagerShader(t *testing.T) {
	mem := display.NewMemoryDriver()
	engine := NewEngine(display.NewManager(mem), stats.NewHandler(stats.Ignore), nil, nil, 2)
	tint := geom.Color{R: 0.25, G: 0.5, B: 0.75}
	ctx := ri.NewContext(engine, tintFactory{c: tint}, stats.NewHandler(stats.Ignore), nil)

	if err := ctx.Begin("test"); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := ctx.FrameBegin(1); err != nil {
		t.Fatalf("FrameBegin: %v", err)
	}
	baseTestOptions(t, ctx, 8, 8)
	if err := ctx.Imager("background", nil); err != nil {
		t.Fatalf("Imager: %v", err)
	}
	if err := ctx.WorldBegin(); err != nil {
		t.Fatalf("WorldBegin: %v", err)
	}
	if err := ctx.WorldEnd(); err != nil {
		t.Fatalf("WorldEnd: %v", err)
	}

	got := mem.At(4, 4).Color
	if math.Abs(got.R-tint.R) > 1e-9 || math.Abs(got.G-tint.G) > 1e-9 || math.Abs(got.B-tint.B) > 1e-9 {
		t.Fatalf("empty world with imager rendered %+v, want %+v", got, tint)
	}
	if err := ctx.FrameEnd(); err != nil {
		t.Fatalf("FrameEnd: %v", err)
	}
	if err := ctx.End(); err != nil {
		t.Fatalf("End: %v", err)
	}
}
