// Copyright © 2024 Aqsis-core contributors.
// Use is governed by a BSD-style license found in the LICENSE file.

package bucket

import (
	"github.com/aqsisrender/core/grid"
	"github.com/aqsisrender/core/math/geom"
	"github.com/aqsisrender/core/shader"
	"github.com/aqsisrender/core/state"
	"github.com/aqsisrender/core/stats"
)

// Pipeline drives one bucket's primitive -> grid -> micropolygon -> sample
// chain. It is reusable across buckets within a
// frame; it carries the frame-wide camera and options but no per-bucket
// state of its own.
type Pipeline struct {
	Camera   *Camera
	Options  *state.Options
	Stats    *stats.Handler
	Lights   map[int]shader.Shader // active light handle -> its bound shader, set by the caller each frame.
	Imager   shader.Shader         // optional imager shader, run once per output pixel after filtering.
	CSGTrees []*CSGNode            // every Solid scope's resolved operation tree, for ResolveCSGForest.

	// BucketAt returns the bucket at grid coordinate (bx, by). The
	// scheduler supplies it so split children and boundary-crossing
	// micropolygons reach the bucket they actually fall in; when nil
	// (single-bucket callers) everything stays in the bucket being
	// processed.
	BucketAt func(bx, by int) *Bucket
}

// NewPipeline builds a Pipeline for the given frame options.
func NewPipeline(o *state.Options, h *stats.Handler) *Pipeline {
	return &Pipeline{Camera: NewCamera(o), Options: o, Stats: h}
}

// DiceOrSplit makes the per-primitive decision: cull
// it against the camera frustum and bucket grid, then either queue its
// diced grid or push its split children back onto the bucket queue for
// re-evaluation. time is the primitive's evaluation time (shutter-open
// for a static scene).
func (p *Pipeline) DiceOrSplit(b *Bucket, bg *Grid, job PrimitiveJob, time float64) {
	bound := job.Bound
	switch Cull(bound, p.Options.Near, p.Options.Far) {
	case Discard:
		return
	case ForceSplit:
		p.split(b, bg, job, time)
		return
	}

	raster := p.Camera.RasterBound(bound)
	fx0, fx1, fy0, fy1 := p.Options.CropPixels()
	marginX := p.Options.FilterWidth[0] / 2
	marginY := p.Options.FilterWidth[1] / 2
	if RasterCull(raster, marginX, marginY, float64(fx0), float64(fy0), float64(fx1), float64(fy1)) {
		return
	}

	rate := job.Prim.Attributes().Shading.ShadingRate
	if job.Prim.Diceable(rate, p.Camera.RasterExtentFunc()) {
		p.diceAndShade(b, bg, job, time)
		return
	}
	p.split(b, bg, job, time)
}

func (p *Pipeline) split(b *Bucket, bg *Grid, job PrimitiveJob, time float64) {
	children, err := job.Prim.Split()
	if err != nil {
		if p.Stats != nil {
			p.Stats.Report(stats.Diagnostic{Kind: stats.MaxEyeSplits, Message: err.Error()})
		}
		return
	}
	for _, c := range children {
		cb := c.Bound(time)
		p.queuePrimitive(b, bg, PrimitiveJob{Prim: c, Bound: cb, CSGNode: job.CSGNode, MotionDeltas: job.MotionDeltas})
	}
}

// queuePrimitive binds a split child to the bucket containing its raster
// bound's (xmin, ymin) corner, which may differ from the parent's
// bucket; a child's min corner never precedes its parent's, so children
// only ever flow to the parent's bucket or a later one.
func (p *Pipeline) queuePrimitive(b *Bucket, bg *Grid, job PrimitiveJob) {
	if p.BucketAt != nil {
		raster := p.Camera.RasterBound(job.Bound)
		nbx, nby := bg.BucketFor(raster.Min.X, raster.Min.Y)
		if nbx != b.BX || nby != b.BY {
			if nb := p.BucketAt(nbx, nby); nb != nil {
				nb.AddPrimitiveJob(job)
				return
			}
		}
	}
	b.AddPrimitiveJob(job)
}

// queueMicro queues mj in every bucket its raster bound overlaps: a
// micropolygon near a bucket edge contributes samples to neighbouring
// buckets' pixels too, and SampleMicropolygon clips each bucket's test
// loop to that bucket's own rect, so no sample is ever tested twice.
func (p *Pipeline) queueMicro(b *Bucket, bg *Grid, mj MicroJob) {
	if p.BucketAt == nil {
		b.AddMicropolygon(mj)
		return
	}
	bound := mj.MP.Bound()
	bx0, by0 := bg.BucketFor(bound.Min.X, bound.Min.Y)
	bx1, by1 := bg.BucketFor(bound.Max.X, bound.Max.Y)
	for by := by0; by <= by1; by++ {
		for bx := bx0; bx <= bx1; bx++ {
			if bx == b.BX && by == b.BY {
				b.AddMicropolygon(mj)
				continue
			}
			if nb := p.BucketAt(bx, by); nb != nil {
				nb.AddMicropolygon(mj)
			}
		}
	}
}

// diceAndShade dices job.Prim into a MicroGrid, runs its bound
// displacement/surface/atmosphere shaders, applies any motion deltas to
// populate additional motion keys, projects its vertices (and motion
// keys) to raster space, and queues the resulting micropolygons in
// every bucket their raster bounds overlap.
func (p *Pipeline) diceAndShade(b *Bucket, bg *Grid, job PrimitiveJob, time float64) {
	pr := job.Prim
	g := pr.Dice()
	attrs := pr.Attributes()

	p.shadeGrid(g, attrs)
	for _, delta := range job.MotionDeltas {
		p.addMotionKey(g, &delta)
	}
	p.projectGrid(g)

	matte := attrs.Shading.Matte
	keyTimes := motionKeyTimes(g, time)
	for _, mp := range g.Split() {
		p.queueMicro(b, bg, MicroJob{MP: mp, KeyTimes: keyTimes, Matte: matte, CSGNode: job.CSGNode})
	}
}

// addMotionKey appends a copy of g's already-shaded positions, transformed
// by delta, as the next motion key. Normals are not
// re-transformed per key: transformation motion blur only moves the
// already-shaded surface, it does not re-shade it.
func (p *Pipeline) addMotionKey(g *grid.MicroGrid, delta *geom.M4) {
	out := make([]geom.V3, len(g.P))
	for i, pt := range g.P {
		h := geom.MultPoint(&pt, delta)
		v, ok := geom.Project(h)
		if !ok {
			v = pt
		}
		out[i] = v
	}
	g.MotionP = append(g.MotionP, out)
}

// motionKeyTimes returns the normalized [0,1] shutter time of each of g's
// motion keys; a static grid (no MotionP) has exactly one key at the
// primitive's own evaluation time.
func motionKeyTimes(g *grid.MicroGrid, time float64) []float64 {
	n := g.NKeys()
	if n <= 1 {
		return []float64{time}
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i) / float64(n-1)
	}
	return out
}

// shadeGrid runs the displacement, surface, and atmosphere shaders bound
// on attrs over g's shading environment in place, writing the result back into g.P/Color/Opacity. A grid with no
// bound surface shader falls back to the constant attribute color/
// opacity.
func (p *Pipeline) shadeGrid(g *grid.MicroGrid, attrs *state.Attributes) {
	env := shader.NewEnvironment(g.UDim, g.VDim)
	for i := range env.P {
		env.P[i] = g.P[i]
		env.N[i] = g.N[i]
		env.Ng[i] = g.Ng[i]
		env.S[i] = g.S[i]
		env.T[i] = g.T[i]
		env.Time[i] = g.Time[i]
		env.Cs[i] = attrs.Shading.Color
		env.Os[i] = attrs.Shading.Opacity
		env.Ci[i] = attrs.Shading.Color
		env.Oi[i] = attrs.Shading.Opacity
	}

	if attrs.Shading.BoundDisplacement != nil {
		attrs.Shading.BoundDisplacement.Evaluate(env, nil)
		for i := range env.P {
			g.P[i] = env.P[i]
			g.N[i] = env.N[i]
		}
	}
	if attrs.Shading.BoundSurface != nil {
		attrs.Shading.BoundSurface.Evaluate(env, p.activeLights(attrs, env))
	}
	if attrs.Shading.BoundAtmosphere != nil {
		attrs.Shading.BoundAtmosphere.Evaluate(env, nil)
	}

	for i := range g.Color {
		g.Color[i] = env.Ci[i]
		g.Opacity[i] = env.Oi[i]
	}
}

// activeLights resolves attrs' ActiveLights set against p.Lights, running
// each light shader once over env to refresh its per-point state before
// the surface shader's illuminance loop reads it.
func (p *Pipeline) activeLights(attrs *state.Attributes, env *shader.Environment) []shader.LightCtx {
	if len(p.Lights) == 0 || len(attrs.Shading.ActiveLights) == 0 {
		return nil
	}
	var out []shader.LightCtx
	for handle, on := range attrs.Shading.ActiveLights {
		if !on {
			continue
		}
		ls, ok := p.Lights[handle]
		if !ok {
			continue
		}
		ls.Evaluate(env, nil)
		out = append(out, shader.LightCtx{Handle: handle, Shader: ls})
	}
	return out
}

// projectGrid fills g.Raster (and g.MotionRaster, one per extra motion
// key) from g.P/g.MotionP via the pipeline's camera.
func (p *Pipeline) projectGrid(g *grid.MicroGrid) {
	for i, pt := range g.P {
		r, ok := p.Camera.ProjectPoint(pt)
		if !ok {
			r = geom.V3{X: -1e6, Y: -1e6, Z: pt.Z}
		}
		g.Raster[i] = r
	}
	if len(g.MotionP) == 0 {
		return
	}
	g.MotionRaster = make([][]geom.V3, len(g.MotionP))
	for k, key := range g.MotionP {
		out := make([]geom.V3, len(key))
		for i, pt := range key {
			r, ok := p.Camera.ProjectPoint(pt)
			if !ok {
				r = geom.V3{X: -1e6, Y: -1e6, Z: pt.Z}
			}
			out[i] = r
		}
		g.MotionRaster[k] = out
	}
}

// SampleMicropolygon tests every sub-pixel sample of the pixels mp's
// raster bound overlaps against mp, recording a hit in each sample whose
// (time, DoF-adjusted) corners contain the sample point. zthreshold gates the opaque fast path's promotion.
func (p *Pipeline) SampleMicropolygon(b *Bucket, job MicroJob, dofActive bool, fstop, focalLength, focalDistance float64, zthreshold [3]float64, occ *Occlusion) {
	bound := job.MP.Bound()
	x0 := int(bound.Min.X)
	x1 := int(bound.Max.X) + 1
	y0 := int(bound.Min.Y)
	y1 := int(bound.Max.Y) + 1
	if x0 < b.X0 {
		x0 = b.X0
	}
	if y0 < b.Y0 {
		y0 = b.Y0
	}
	if x1 > b.X1 {
		x1 = b.X1
	}
	if y1 > b.Y1 {
		y1 = b.Y1
	}

	csgNode := job.CSGNode

	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			px := b.PixelAt(x, y)
			if px == nil {
				continue
			}
			if occ != nil && occ.Culls(b.BX, b.BY, bound.Min.Z) {
				continue
			}
			for si := range px.Samples {
				sd := &px.Samples[si]
				corners := job.MP.AtTime(job.KeyTimes, sd.Time)
				if dofActive {
					zc := centerZ(corners)
					coc := CircleOfConfusion(fstop, focalLength, focalDistance, zc)
					corners = offsetCorners(corners, sd.DoFOffset, coc)
				}
				z, inside := corners.Contains(sd.SX, sd.SY)
				if !inside {
					continue
				}
				entry := SampleEntry{
					Z: z, Color: job.MP.Color, Opacity: job.MP.Opacity,
					CSGNode: csgNode, Enter: csgNode != "" && frontFacing(corners),
				}
				if job.Matte {
					entry.Flags |= FlagMatte
				}
				sd.Insert(entry)
				sd.PromoteOpaque(zthreshold)
				if sd.HasOpaque && occ != nil {
					occ.Update(b.BX, b.BY, sd.Opaque.Z)
				}
			}
		}
	}
}

func centerZ(c grid.Corners) float64 {
	return (c[0].Z + c[1].Z + c[2].Z + c[3].Z) / 4
}

// frontFacing reports whether c's raster-space winding is the "entering"
// orientation of a CSG leaf's closed surface, by the sign of the
// quadrilateral's signed area (shoelace formula over x, y only — z plays
// no part, matching Contains' own 2D containment test). A solid's
// outward-facing caps and inward-facing (subtracted) caps are wound
// oppositely by construction, so this sign is what lets ResolveCSG
// tell a leaf's entering crossings from its exiting ones (the
// SampleEntry.Enter flag).
func frontFacing(c grid.Corners) bool {
	var sum float64
	for i := 0; i < 4; i++ {
		a, b := c[i], c[(i+1)%4]
		sum += a.X*b.Y - b.X*a.Y
	}
	return sum > 0
}

// offsetCorners shifts c's 4 corners by -dofOffset*coc, the DoF
// ray-origin correction.
func offsetCorners(c grid.Corners, dof geom.V2, coc float64) grid.Corners {
	dx, dy := -dof.X*coc, -dof.Y*coc
	var out grid.Corners
	for i := range c {
		out[i] = geom.V3{X: c[i].X + dx, Y: c[i].Y + dy, Z: c[i].Z}
	}
	return out
}

// FinishPixel runs the filter/imager/exposure/quantization chain for one
// output pixel, returning the final quantized
// color+opacity ready for display hand-off.
func (p *Pipeline) FinishPixel(bx, by, px, py int, pixelAt func(x, y int) (*Pixel, bool)) (color, alpha geom.Color, z float64, hasZ bool) {
	filter, ok := geom.NamedFilter(p.Options.PixelFilter)
	if !ok {
		filter, _ = geom.NamedFilter("box")
	}
	depthFilter, _ := DepthFilterByName(p.Options.DepthFilter)
	res := FilterPixel(px, py, filter, p.Options.FilterWidth[0], p.Options.FilterWidth[1], depthFilter, p.Options.ZThreshold, p.CSGTrees, pixelAt)
	if p.Imager != nil {
		res.Color, res.Alpha = p.runImager(px, py, res.Color, res.Alpha)
	}
	exposed := Expose(res.Color, p.Options.ExposureGain, p.Options.ExposureGamma)
	rng := PixelRand(bx, by, px, py)
	quantColor := Quantize(exposed, p.Options.ColorQuantize, rng)
	quantAlpha := Quantize(res.Alpha, p.Options.ColorQuantize, rng)
	var qz float64
	if res.HasZ {
		zc := geom.Color{R: res.Z, G: res.Z, B: res.Z}
		qz = Quantize(zc, p.Options.DepthQuantize, rng).R
	}
	return quantColor, quantAlpha, qz, res.HasZ
}

// DepthAtPixel resolves one output pixel to a depth only, for the shadow
// hider: every
// sub-pixel sample composites its entry list under the frame's depth
// filter and zthreshold, and the pixel's depth is the nearest qualifying
// sample depth — a 1x1 box footprint, the filter says a
// shadow render typically uses. Color, exposure, and quantization are
// skipped entirely.
func (p *Pipeline) DepthAtPixel(px, py int, pixelAt func(x, y int) (*Pixel, bool)) (z float64, hasZ bool) {
	pixel, ok := pixelAt(px, py)
	if !ok || pixel == nil {
		return 0, false
	}
	depthFilter, _ := DepthFilterByName(p.Options.DepthFilter)
	for i := range pixel.Samples {
		s := &pixel.Samples[i]
		res := CompositeSamples(ResolveCSGForest(s.AllEntries(), p.CSGTrees), depthFilter, p.Options.ZThreshold)
		if !res.HasZ {
			continue
		}
		if !hasZ || res.Z < z {
			z, hasZ = res.Z, true
		}
	}
	return z, hasZ
}

// runImager evaluates the bound imager shader on a single filtered output
// pixel: a 1x1 execution environment
// whose P carries the pixel's raster coordinate and whose Ci/Oi carry
// the filtered color/alpha, read back after the shader writes them in
// place. Imager shaders run after filtering and before exposure, the
// same slot Exposure occupies in the hand-off order.
func (p *Pipeline) runImager(px, py int, c, a geom.Color) (geom.Color, geom.Color) {
	env := shader.NewEnvironment(1, 1)
	env.P[0] = geom.V3{X: float64(px) + 0.5, Y: float64(py) + 0.5}
	env.Cs[0], env.Os[0] = c, a
	env.Ci[0], env.Oi[0] = c, a
	if err := p.Imager.Evaluate(env, nil); err != nil {
		if p.Stats != nil {
			p.Stats.Report(stats.Diagnostic{Kind: stats.InvalidData, Severity: stats.Warning, Message: "imager shader failed: " + err.Error(), OncePer: true})
		}
		return c, a
	}
	return env.Ci[0], env.Oi[0]
}
