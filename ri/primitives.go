// Copyright © 2024 Aqsis-core contributors.
// Use is governed by a BSD-style license found in the LICENSE file.

package ri

import (
	"github.com/aqsisrender/core/bucket"
	"github.com/aqsisrender/core/math/geom"
	"github.com/aqsisrender/core/param"
	"github.com/aqsisrender/core/prim"
	"github.com/aqsisrender/core/stats"
)

// emit hands a freshly constructed primitive either to the engine
// (transformed by the current CTM composed with world-to-camera) or,
// inside an ObjectBegin/End body, to the recording (untransformed, in
// object-local space; ObjectInstance transforms it later).
func (c *Context) emit(p prim.Primitive) {
	if c.recording != nil {
		c.recording.prims = append(c.recording.prims, p)
		return
	}
	ctm := *c.currentTransform()
	c.transformAndEmit(p, &ctm, c.currentCSGNode())
}

// currentCSGNode returns the tag of the innermost enclosing Solid scope
// opened with operation "primitive" (SolidBegin assigns that scope's
// CSGNode its Leaf name up front, since that scope's node IS the leaf
// every primitive emitted inside it resolves through); "" outside of one.
func (c *Context) currentCSGNode() string {
	for i := len(c.solids) - 1; i >= 0; i-- {
		if c.solids[i].Op == bucket.CSGPrimitive {
			return c.solids[i].Leaf
		}
	}
	return ""
}

// transformAndEmit transforms p from object space to camera space by ctm
// composed with the frozen world-to-camera matrix, computes p's motion
// deltas from the current scope's Transform keys, and
// queues it with the engine.
func (c *Context) transformAndEmit(p prim.Primitive, ctm *geom.M4, csgNode string) {
	var objectToCamera geom.M4
	objectToCamera.Mult(ctm, &c.worldToCamera)
	mInvT := geom.NormalMatrix(&objectToCamera)
	p.Transform(&objectToCamera, mInvT, c.options.ShutterOpen)

	deltas := c.motionDeltas(ctm)
	bound := p.Bound(c.options.ShutterOpen)
	if c.Engine != nil {
		c.Engine.AddPrimitive(p, bound, csgNode, deltas)
	}
}

// motionDeltas computes, for every motion key beyond the first, the
// relative camera-space transform key_i * key_0^-1: since worldToCamera cancels out of
// key_i*worldToCamera*(key_0*worldToCamera)^-1, the plain object-space
// delta is enough and the caller need not re-derive camera space per key.
func (c *Context) motionDeltas(ctm *geom.M4) []geom.M4 {
	top := c.Stack.Top()
	if top == nil || !top.Transform.IsMotion() {
		return nil
	}
	keys := top.Transform.Keys
	var key0Inv geom.M4
	if _, ok := key0Inv.Invert(&keys[0].Matrix); !ok {
		return nil
	}
	deltas := make([]geom.M4, 0, len(keys)-1)
	for i := 1; i < len(keys); i++ {
		var delta geom.M4
		delta.Mult(&keys[i].Matrix, &key0Inv)
		deltas = append(deltas, delta)
	}
	return deltas
}

// Polygon emits a simple convex polygon.
func (c *Context) Polygon(params *param.List) error {
	p := paramPoints3(params, "P")
	poly, err := prim.NewPolygon(c.Stack.Top().Attributes, p, params)
	if err != nil {
		return c.report(err)
	}
	c.emit(poly)
	return nil
}

// GeneralPolygon emits a (possibly concave, possibly multi-loop) polygon.
func (c *Context) GeneralPolygon(nloops []int, params *param.List) error {
	p := paramPoints3(params, "P")
	loops := splitLoops(nloops, p)
	gp, err := prim.NewGeneralPolygon(c.Stack.Top().Attributes, loops, params)
	if err != nil {
		return c.report(err)
	}
	c.emit(gp)
	return nil
}

func splitLoops(nloops []int, p []geom.V3) [][]geom.V3 {
	loops := make([][]geom.V3, len(nloops))
	off := 0
	for i, n := range nloops {
		end := off + n
		if end > len(p) {
			end = len(p)
		}
		loops[i] = p[off:end]
		off = end
	}
	return loops
}

// PointsPolygons emits a polygon mesh sharing one vertex pool.
func (c *Context) PointsPolygons(nverts, vertIdx []int, params *param.List) error {
	p := paramPoints3(params, "P")
	n := paramPoints3(params, "N")
	pp, err := prim.NewPointsPolygons(c.Stack.Top().Attributes, p, n, nverts, vertIdx, params)
	if err != nil {
		return c.report(err)
	}
	c.emit(pp)
	return nil
}

// PointsGeneralPolygons emits a mesh of (possibly concave, possibly
// multi-loop) polygons sharing one vertex pool.
func (c *Context) PointsGeneralPolygons(nloops, nverts, vertIdx []int, params *param.List) error {
	p := paramPoints3(params, "P")
	pgp, err := prim.NewPointsGeneralPolygons(c.Stack.Top().Attributes, p, nloops, nverts, vertIdx, params)
	if err != nil {
		return c.report(err)
	}
	c.emit(pgp)
	return nil
}

// Patch emits a single bilinear or bicubic patch.
func (c *Context) Patch(kind string, params *param.List) error {
	p := paramPoints3(params, "P")
	patch, err := prim.NewPatch(c.Stack.Top().Attributes, kind == "bicubic", p, params)
	if err != nil {
		return c.report(err)
	}
	c.emit(patch)
	return nil
}

// PatchMesh emits a regular grid of bilinear or bicubic patches.
func (c *Context) PatchMesh(kind string, nu, nv int, periodicU, periodicV bool, params *param.List) error {
	p := paramPoints3(params, "P")
	pm, err := prim.NewPatchMesh(c.Stack.Top().Attributes, kind == "bicubic", nu, nv, periodicU, periodicV, p, params)
	if err != nil {
		return c.report(err)
	}
	c.emit(pm)
	return nil
}

// NuPatch emits a non-uniform rational B-spline patch.
func (c *Context) NuPatch(nu, uOrder int, uKnot []float64, uMin, uMax float64,
	nv, vOrder int, vKnot []float64, vMin, vMax float64, params *param.List) error {
	p := paramHPoints(params, "Pw")
	if p == nil {
		// P (non-rational) with implicit weight 1.
		for _, v := range paramPoints3(params, "P") {
			p = append(p, geom.HPoint{X: v.X, Y: v.Y, Z: v.Z, W: 1})
		}
	}
	np, err := prim.NewNuPatch(c.Stack.Top().Attributes, nu, uOrder, uKnot, uMin, uMax, nv, vOrder, vKnot, vMin, vMax, p, params)
	if err != nil {
		return c.report(err)
	}
	c.emit(np)
	return nil
}

// quadric emits one of the seven parametric quadric surfaces, sharing
// the dispatch-on-name idiom the RI grammar itself uses for them.
func (c *Context) quadric(q *prim.Quadric) { c.emit(q) }

// Sphere emits a sphere quadric.
func (c *Context) Sphere(radius, zmin, zmax, thetaMax float64, params *param.List) {
	c.quadric(prim.NewSphere(c.Stack.Top().Attributes, radius, zmin, zmax, thetaMax, params))
}

// Cone emits a cone quadric.
func (c *Context) Cone(height, radius, thetaMax float64, params *param.List) {
	c.quadric(prim.NewCone(c.Stack.Top().Attributes, height, radius, thetaMax, params))
}

// Cylinder emits a cylinder quadric.
func (c *Context) Cylinder(radius, zmin, zmax, thetaMax float64, params *param.List) {
	c.quadric(prim.NewCylinder(c.Stack.Top().Attributes, radius, zmin, zmax, thetaMax, params))
}

// Hyperboloid emits a hyperboloid quadric swept between point1 and point2.
func (c *Context) Hyperboloid(p1, p2 geom.V3, thetaMax float64, params *param.List) {
	c.quadric(prim.NewHyperboloid(c.Stack.Top().Attributes, p1, p2, thetaMax, params))
}

// Paraboloid emits a paraboloid quadric.
func (c *Context) Paraboloid(rmax, zmin, zmax, thetaMax float64, params *param.List) {
	c.quadric(prim.NewParaboloid(c.Stack.Top().Attributes, rmax, zmin, zmax, thetaMax, params))
}

// Disk emits a disk quadric.
func (c *Context) Disk(height, radius, thetaMax float64, params *param.List) {
	c.quadric(prim.NewDisk(c.Stack.Top().Attributes, height, radius, thetaMax, params))
}

// Torus emits a torus quadric.
func (c *Context) Torus(majorR, minorR, phiMin, phiMax, thetaMax float64, params *param.List) {
	c.quadric(prim.NewTorus(c.Stack.Top().Attributes, majorR, minorR, phiMin, phiMax, thetaMax, params))
}

// SubdivisionMesh emits a Catmull-Clark subdivision surface.
func (c *Context) SubdivisionMesh(scheme string, nverts, vertIdx []int, tags []prim.SubdivTag, params *param.List) error {
	p := paramPoints3(params, "P")
	sm, err := prim.NewSubdivisionMesh(c.Stack.Top().Attributes, scheme, p, nverts, vertIdx, tags, params)
	if err != nil {
		return c.report(err)
	}
	c.emit(sm)
	return nil
}

// Curves emits a set of linear or cubic curve segments.
func (c *Context) Curves(basis string, nverts []int, periodic bool, params *param.List) error {
	p := paramPoints3(params, "P")
	width := paramFloats(params, "width")
	constantWidth := paramFloat1(params, "constantwidth", 1)
	kind := prim.LinearCurve
	if basis == "cubic" {
		kind = prim.CubicCurve
	}
	curves, err := prim.NewCurves(c.Stack.Top().Attributes, kind, nverts, periodic, p, width, constantWidth, params)
	if err != nil {
		return c.report(err)
	}
	c.emit(curves)
	return nil
}

// Points emits an unconnected point cloud, each point diced as a
// camera-facing disk sized by its width.
func (c *Context) Points(params *param.List) error {
	p := paramPoints3(params, "P")
	width := paramFloats(params, "width")
	constantWidth := paramFloat1(params, "constantwidth", 1)
	pts, err := prim.NewPoints(c.Stack.Top().Attributes, p, width, constantWidth, params)
	if err != nil {
		return c.report(err)
	}
	c.emit(pts)
	return nil
}

// Blobby emits an implicit-surface primitive evaluated from program and
// polygonized within bound (the caller derives bound from the
// constituent primitives, per prim.NewBlobby's contract).
func (c *Context) Blobby(program []prim.BlobbyInstr, bound geom.Bound, params *param.List) {
	c.emit(prim.NewBlobby(c.Stack.Top().Attributes, program, bound, params))
}

// ReadArchive emits a DelayedReadArchive procedural that re-runs the RIB
// reader against name when first split.
func (c *Context) ReadArchive(name string, bound geom.Bound, reader prim.ArchiveReader) {
	p := prim.NewProcedural(c.Stack.Top().Attributes, prim.DelayedReadArchive, bound)
	p.ArchiveName = name
	p.Archive = reader
	c.emit(p)
}

// RunProgram emits a RunProgram procedural that spawns program with args
// and reads generated RIB from its stdout when first split.
func (c *Context) RunProgram(program string, args []string, bound geom.Bound, reader prim.ArchiveReader) {
	p := prim.NewProcedural(c.Stack.Top().Attributes, prim.RunProgram, bound)
	p.Program = program
	p.Args = args
	p.Archive = reader
	c.emit(p)
}

// DynamicLoad emits a DynamicLoad procedural delegating to a registered
// ProceduralPlugin.
func (c *Context) DynamicLoad(pluginName string, plugin prim.ProceduralPlugin, bound geom.Bound) {
	p := prim.NewProcedural(c.Stack.Top().Attributes, prim.DynamicLoad, bound)
	p.PluginName = pluginName
	p.Plugin = plugin
	c.emit(p)
}

// report wraps a prim constructor's validation error as a non-fatal
// diagnostic and always returns nil so the caller treats it
// as "primitive dropped", not as a fatal Context error.
func (c *Context) report(err error) error {
	if d, ok := err.(stats.Diagnostic); ok {
		if c.Stats != nil {
			c.Stats.Report(d)
		}
		return nil
	}
	return c.reportf(stats.InvalidData, stats.Error, "%v", err)
}
