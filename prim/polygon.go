// Copyright © 2024 Aqsis-core contributors.
// Use is governed by a BSD-style license found in the LICENSE file.

package prim

import (
	"fmt"

	"github.com/aqsisrender/core/grid"
	"github.com/aqsisrender/core/math/geom"
	"github.com/aqsisrender/core/param"
	"github.com/aqsisrender/core/state"
	"github.com/aqsisrender/core/stats"
)

// Polygon is a single convex planar polygon. Rendering converts it to a
// fan of triangles at dice time; the vertex loop is kept explicit since
// a REYES polygon has no index buffer to populate.
type Polygon struct {
	Base
	P      []geom.V3
	N      []geom.V3 // per-vertex normal, optional (computed from winding if empty).
	Params *param.List

	bound geom.Bound
}

// NewPolygon validates nverts and constructs a Polygon from the current
// attributes; bad vertex counts return InvalidData
func NewPolygon(attrs *state.Attributes, p []geom.V3, params *param.List) (*Polygon, error) {
	if len(p) < 3 {
		return nil, stats.Diagnostic{Kind: stats.InvalidData, Severity: stats.Error,
			Message: fmt.Sprintf("polygon needs at least 3 vertices, got %d", len(p))}
	}
	poly := &Polygon{Base: Base{Attrs: attrs}, P: p, Params: params}
	poly.bound = computeBound(p)
	return poly, nil
}

func computeBound(p []geom.V3) geom.Bound {
	b := geom.EmptyBound()
	for _, v := range p {
		b = b.Extend(v)
	}
	return b
}

// Bound implements Primitive.
func (p *Polygon) Bound(time float64) geom.Bound {
	b := p.bound
	if p.Attrs.Geometric.DisplacementBound > 0 {
		b = b.Expand(p.Attrs.Geometric.DisplacementBound)
	}
	return b
}

// Diceable implements Primitive: a polygon is always "simple enough";
// the raster-extent test alone governs whether it dices or splits.
func (p *Polygon) Diceable(shadingRate float64, rasterExtent func(geom.Bound) (float64, float64)) bool {
	_, _, ok := DiceableByExtent(p.bound, shadingRate, rasterExtent, DefaultMaxGridDim)
	return ok
}

// faceNormal returns the polygon's planar normal from its first 3
// vertices, honoring the attribute's orientation.
func (p *Polygon) faceNormal() geom.V3 {
	var e1, e2, n geom.V3
	e1.Sub(&p.P[1], &p.P[0])
	e2.Sub(&p.P[2], &p.P[0])
	n.Cross(&e1, &e2)
	if p.Attrs.Geometric.Orientation == state.LH {
		n.Scale(&n, -1)
	}
	n.Unit()
	return n
}

// Dice implements Primitive: fans the polygon into an n x 2 grid with
// vertex 0 (the fan apex) repeated along the second row, so that each
// (u,v) quad MicroGrid.Split produces degenerates into exactly the
// triangle (apex, P[u], P[u+1]) — a REYES grid representation of the fan
// triangulation without a separate triangle-list pass.
func (p *Polygon) Dice() *grid.MicroGrid {
	n := len(p.P)
	g := grid.NewMicroGrid(n, 2)
	normal := p.faceNormal()
	apexN := normal
	if len(p.N) > 0 {
		apexN = p.N[0]
	}
	for i, v := range p.P {
		row0 := g.Index(i, 0)
		row1 := g.Index(i, 1)
		g.P[row0] = v
		g.P[row1] = p.P[0]
		if i < len(p.N) {
			g.N[row0] = p.N[i]
		} else {
			g.N[row0] = normal
		}
		g.N[row1] = apexN
		g.Ng[row0] = normal
		g.Ng[row1] = normal
		g.Color[row0] = p.Attrs.Shading.Color
		g.Color[row1] = p.Attrs.Shading.Color
		g.Opacity[row0] = p.Attrs.Shading.Opacity
		g.Opacity[row1] = p.Attrs.Shading.Opacity
	}
	return g
}

// Split implements Primitive: a polygon with more than 4 vertices fans
// into triangles; an oversized quad or triangle subdivides at its edge
// midpoints into 4 children wound the same way, halving raster extent
// per level until Diceable passes.
func (p *Polygon) Split() ([]Primitive, error) {
	if len(p.P) > 4 {
		out := make([]Primitive, 0, len(p.P)-2)
		apex := p.P[0]
		apexN := geom.V3{}
		if len(p.N) > 0 {
			apexN = p.N[0]
		}
		for i := 1; i < len(p.P)-1; i++ {
			tri, err := NewPolygon(p.Attrs, []geom.V3{apex, p.P[i], p.P[i+1]}, p.Params)
			if err != nil {
				return nil, err
			}
			if len(p.N) > 0 {
				tri.N = []geom.V3{apexN, p.N[i], p.N[i+1]}
			}
			out = append(out, tri)
		}
		return out, nil
	}

	mid := func(a, b geom.V3) geom.V3 {
		var m geom.V3
		m.Lerp(&a, &b, 0.5)
		return m
	}
	var loops [][]geom.V3
	if len(p.P) == 3 {
		m01 := mid(p.P[0], p.P[1])
		m12 := mid(p.P[1], p.P[2])
		m20 := mid(p.P[2], p.P[0])
		loops = [][]geom.V3{
			{p.P[0], m01, m20},
			{m01, p.P[1], m12},
			{m20, m12, p.P[2]},
			{m01, m12, m20},
		}
	} else {
		m01 := mid(p.P[0], p.P[1])
		m12 := mid(p.P[1], p.P[2])
		m23 := mid(p.P[2], p.P[3])
		m30 := mid(p.P[3], p.P[0])
		ctr := mid(m01, m23)
		loops = [][]geom.V3{
			{p.P[0], m01, ctr, m30},
			{m01, p.P[1], m12, ctr},
			{ctr, m12, p.P[2], m23},
			{m30, ctr, m23, p.P[3]},
		}
	}
	out := make([]Primitive, 0, len(loops))
	for _, loop := range loops {
		child, err := NewPolygon(p.Attrs, loop, p.Params)
		if err != nil {
			return nil, err
		}
		out = append(out, child)
	}
	return out, nil
}

// Transform implements Primitive.
func (p *Polygon) Transform(m, mInvT *geom.M4, time float64) {
	for i := range p.P {
		h := geom.MultPoint(&p.P[i], m)
		proj, _ := geom.Project(h)
		p.P[i] = proj
		if i < len(p.N) {
			p.N[i] = geom.MultVector(&p.N[i], mInvT)
		}
	}
	p.bound = computeBound(p.P)
}

// GeneralPolygon is a polygon with holes: the outer loop plus zero or
// more inner loops. It is decomposed by
// an ear-clipping-free approach: bridge each hole to the outer loop with
// a zero-area seam, producing a single simple loop Split then fans.
type GeneralPolygon struct {
	Base
	Loops  [][]geom.V3
	Params *param.List
}

// NewGeneralPolygon validates the loop vertex counts (each loop needs >=3
// vertices) before bridging.
func NewGeneralPolygon(attrs *state.Attributes, loops [][]geom.V3, params *param.List) (*GeneralPolygon, error) {
	if len(loops) == 0 {
		return nil, stats.Diagnostic{Kind: stats.InvalidData, Severity: stats.Error, Message: "general polygon has no loops"}
	}
	for _, l := range loops {
		if len(l) < 3 {
			return nil, stats.Diagnostic{Kind: stats.InvalidData, Severity: stats.Error,
				Message: fmt.Sprintf("general polygon loop needs at least 3 vertices, got %d", len(l))}
		}
	}
	return &GeneralPolygon{Base: Base{Attrs: attrs}, Loops: loops, Params: params}, nil
}

// Bound implements Primitive.
func (gp *GeneralPolygon) Bound(time float64) geom.Bound {
	b := geom.EmptyBound()
	for _, l := range gp.Loops {
		for _, v := range l {
			b = b.Extend(v)
		}
	}
	if gp.Attrs.Geometric.DisplacementBound > 0 {
		b = b.Expand(gp.Attrs.Geometric.DisplacementBound)
	}
	return b
}

// Diceable implements Primitive: a GeneralPolygon is never diced directly
// — Split always bridges it down to simple Polygons first.
func (gp *GeneralPolygon) Diceable(float64, func(geom.Bound) (float64, float64)) bool { return false }

// Dice implements Primitive; unreachable since Diceable is always false,
// provided for interface completeness.
func (gp *GeneralPolygon) Dice() *grid.MicroGrid { return grid.NewMicroGrid(1, 1) }

// Split implements Primitive: bridges every hole loop into the outer
// loop via a coincident-edge seam, then returns a single simple Polygon
// for further splitting/dicing.
func (gp *GeneralPolygon) Split() ([]Primitive, error) {
	verts := append([]geom.V3(nil), gp.Loops[0]...)
	for _, hole := range gp.Loops[1:] {
		verts = bridgeLoop(verts, hole)
	}
	poly, err := NewPolygon(gp.Attrs, verts, gp.Params)
	if err != nil {
		return nil, err
	}
	return []Primitive{poly}, nil
}

// bridgeLoop splices hole into outer via a seam from outer's first vertex
// to hole's nearest vertex, the standard zero-area-bridge technique for
// turning a polygon-with-holes into a single simple loop.
func bridgeLoop(outer, hole []geom.V3) []geom.V3 {
	if len(outer) == 0 {
		return hole
	}
	bridgePoint := outer[0]
	nearest := 0
	best := geom.EmptyBound()
	_ = best
	bestDist := -1.0
	for i, h := range hole {
		d := dist2(bridgePoint, h)
		if bestDist < 0 || d < bestDist {
			bestDist = d
			nearest = i
		}
	}
	out := make([]geom.V3, 0, len(outer)+len(hole)+2)
	out = append(out, outer...)
	out = append(out, bridgePoint)
	for i := 0; i <= len(hole); i++ {
		out = append(out, hole[(nearest+i)%len(hole)])
	}
	return out
}

func dist2(a, b geom.V3) float64 {
	dx, dy, dz := a.X-b.X, a.Y-b.Y, a.Z-b.Z
	return dx*dx + dy*dy + dz*dz
}

// Transform implements Primitive.
func (gp *GeneralPolygon) Transform(m, mInvT *geom.M4, time float64) {
	for _, l := range gp.Loops {
		for i := range l {
			h := geom.MultPoint(&l[i], m)
			proj, _ := geom.Project(h)
			l[i] = proj
		}
	}
}

// PointsPolygons is an indexed mesh of simple (hole-free) polygon faces
// sharing a single vertex pool. Faces are triangulated/
// fanned the same way a single Polygon is.
type PointsPolygons struct {
	Base
	P        []geom.V3
	N        []geom.V3
	NVerts   []int
	VertIdx  []int
	Params   *param.List
}

// NewPointsPolygons validates that sum(NVerts) == len(VertIdx) and every
// index is in range, rejecting malformed data with InvalidData.
func NewPointsPolygons(attrs *state.Attributes, p, n []geom.V3, nverts, vertIdx []int, params *param.List) (*PointsPolygons, error) {
	sum := 0
	for _, nv := range nverts {
		if nv < 3 {
			return nil, stats.Diagnostic{Kind: stats.InvalidData, Severity: stats.Error,
				Message: fmt.Sprintf("pointspolygons face needs >=3 vertices, got %d", nv)}
		}
		sum += nv
	}
	if sum != len(vertIdx) {
		return nil, stats.Diagnostic{Kind: stats.InvalidData, Severity: stats.Error,
			Message: "pointspolygons nverts does not sum to len(vertices)"}
	}
	for _, idx := range vertIdx {
		if idx < 0 || idx >= len(p) {
			return nil, stats.Diagnostic{Kind: stats.InvalidData, Severity: stats.Error,
				Message: fmt.Sprintf("pointspolygons vertex index %d out of range", idx)}
		}
	}
	return &PointsPolygons{Base: Base{Attrs: attrs}, P: p, N: n, NVerts: nverts, VertIdx: vertIdx, Params: params}, nil
}

// Bound implements Primitive.
func (pp *PointsPolygons) Bound(time float64) geom.Bound {
	b := computeBound(pp.P)
	if pp.Attrs.Geometric.DisplacementBound > 0 {
		b = b.Expand(pp.Attrs.Geometric.DisplacementBound)
	}
	return b
}

// Diceable implements Primitive: always false; Split breaks the mesh into
// per-face Polygons, each of which dices independently.
func (pp *PointsPolygons) Diceable(float64, func(geom.Bound) (float64, float64)) bool { return false }

// Dice implements Primitive; unreachable, provided for completeness.
func (pp *PointsPolygons) Dice() *grid.MicroGrid { return grid.NewMicroGrid(1, 1) }

// Split implements Primitive: emits one Polygon per face.
func (pp *PointsPolygons) Split() ([]Primitive, error) {
	out := make([]Primitive, 0, len(pp.NVerts))
	off := 0
	for _, nv := range pp.NVerts {
		idx := pp.VertIdx[off : off+nv]
		off += nv
		verts := make([]geom.V3, nv)
		var normals []geom.V3
		if len(pp.N) > 0 {
			normals = make([]geom.V3, nv)
		}
		for i, vi := range idx {
			verts[i] = pp.P[vi]
			if normals != nil {
				normals[i] = pp.N[vi]
			}
		}
		poly, err := NewPolygon(pp.Attrs, verts, pp.Params)
		if err != nil {
			return nil, err
		}
		poly.N = normals
		out = append(out, poly)
	}
	return out, nil
}

// Transform implements Primitive.
func (pp *PointsPolygons) Transform(m, mInvT *geom.M4, time float64) {
	for i := range pp.P {
		h := geom.MultPoint(&pp.P[i], m)
		proj, _ := geom.Project(h)
		pp.P[i] = proj
	}
	for i := range pp.N {
		pp.N[i] = geom.MultVector(&pp.N[i], mInvT)
	}
}

// PointsGeneralPolygons is PointsPolygons with per-face hole counts,
// generalizing the same shared vertex pool to faces-with-holes. Each face is bridged exactly as GeneralPolygon does before being
// handed to Polygon.
type PointsGeneralPolygons struct {
	Base
	P         []geom.V3
	NLoops    []int // loops per face.
	NVerts    []int // vertices per loop, flattened across all faces.
	VertIdx   []int
	Params    *param.List
}

// NewPointsGeneralPolygons validates the three-level index structure.
func NewPointsGeneralPolygons(attrs *state.Attributes, p []geom.V3, nloops, nverts, vertIdx []int, params *param.List) (*PointsGeneralPolygons, error) {
	sumLoops := 0
	for _, nl := range nloops {
		sumLoops += nl
	}
	if sumLoops != len(nverts) {
		return nil, stats.Diagnostic{Kind: stats.InvalidData, Severity: stats.Error,
			Message: "pointsgeneralpolygons nloops does not sum to len(nverts)"}
	}
	sumVerts := 0
	for _, nv := range nverts {
		sumVerts += nv
	}
	if sumVerts != len(vertIdx) {
		return nil, stats.Diagnostic{Kind: stats.InvalidData, Severity: stats.Error,
			Message: "pointsgeneralpolygons nverts does not sum to len(vertices)"}
	}
	return &PointsGeneralPolygons{Base: Base{Attrs: attrs}, P: p, NLoops: nloops, NVerts: nverts, VertIdx: vertIdx, Params: params}, nil
}

// Bound implements Primitive.
func (pgp *PointsGeneralPolygons) Bound(time float64) geom.Bound { return computeBound(pgp.P) }

// Diceable implements Primitive.
func (pgp *PointsGeneralPolygons) Diceable(float64, func(geom.Bound) (float64, float64)) bool {
	return false
}

// Dice implements Primitive; unreachable.
func (pgp *PointsGeneralPolygons) Dice() *grid.MicroGrid { return grid.NewMicroGrid(1, 1) }

// Split implements Primitive: emits one GeneralPolygon per face, each
// bridged down to a simple Polygon on its own next Split.
func (pgp *PointsGeneralPolygons) Split() ([]Primitive, error) {
	out := make([]Primitive, 0, len(pgp.NLoops))
	loopOff, vertOff := 0, 0
	for _, nl := range pgp.NLoops {
		loops := make([][]geom.V3, nl)
		for li := 0; li < nl; li++ {
			nv := pgp.NVerts[loopOff+li]
			idx := pgp.VertIdx[vertOff : vertOff+nv]
			vertOff += nv
			loop := make([]geom.V3, nv)
			for i, vi := range idx {
				loop[i] = pgp.P[vi]
			}
			loops[li] = loop
		}
		loopOff += nl
		gp, err := NewGeneralPolygon(pgp.Attrs, loops, pgp.Params)
		if err != nil {
			return nil, err
		}
		out = append(out, gp)
	}
	return out, nil
}

// Transform implements Primitive.
func (pgp *PointsGeneralPolygons) Transform(m, mInvT *geom.M4, time float64) {
	for i := range pgp.P {
		h := geom.MultPoint(&pgp.P[i], m)
		proj, _ := geom.Project(h)
		pgp.P[i] = proj
	}
}
