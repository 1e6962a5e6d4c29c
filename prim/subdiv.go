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

// SubdivTag names one Catmull-Clark tag kind, carrying its integer arguments (vertex/edge
// indices) and float arguments (sharpness values) split the way the RI
// call's two parallel arrays are split.
type SubdivTag struct {
	Name   string // "interpolateboundary", "crease", "corner", "hole".
	IntArgs []int
	FloatArgs []float64
}

// SubdivisionMesh is a Catmull-Clark subdivision surface.
// Face topology mirrors PointsPolygons (nverts/vertIdx over a shared
// vertex pool); Tags carry per-edge/vertex/face sharpness.
type SubdivisionMesh struct {
	Base
	Scheme  string // "catmull-clark" is the only supported scheme.
	P       []geom.V3
	NVerts  []int
	VertIdx []int
	Tags    []SubdivTag
	Params  *param.List

	level int // subdivision depth already applied, for Split's recursion.
}

// NewSubdivisionMesh validates the face topology exactly like
// PointsPolygons (each face needs >= 3 vertices, indices in range, and
// nverts sums to len(vertIdx)); non-manifold topology is detected lazily
// during Split.
func NewSubdivisionMesh(attrs *state.Attributes, scheme string, p []geom.V3, nverts, vertIdx []int, tags []SubdivTag, params *param.List) (*SubdivisionMesh, error) {
	sum := 0
	for _, nv := range nverts {
		if nv < 3 {
			return nil, stats.Diagnostic{Kind: stats.InvalidData, Severity: stats.Error,
				Message: fmt.Sprintf("subdivisionmesh face needs >=3 vertices, got %d", nv)}
		}
		sum += nv
	}
	if sum != len(vertIdx) {
		return nil, stats.Diagnostic{Kind: stats.InvalidData, Severity: stats.Error,
			Message: "subdivisionmesh nverts does not sum to len(vertices)"}
	}
	for _, idx := range vertIdx {
		if idx < 0 || idx >= len(p) {
			return nil, stats.Diagnostic{Kind: stats.InvalidData, Severity: stats.Error,
				Message: fmt.Sprintf("subdivisionmesh vertex index %d out of range", idx)}
		}
	}
	return &SubdivisionMesh{Base: Base{Attrs: attrs}, Scheme: scheme, P: p, NVerts: nverts, VertIdx: vertIdx, Tags: tags, Params: params}, nil
}

// Bound implements Primitive.
func (sm *SubdivisionMesh) Bound(time float64) geom.Bound {
	b := computeBound(sm.P)
	if sm.Attrs.Geometric.DisplacementBound > 0 {
		b = b.Expand(sm.Attrs.Geometric.DisplacementBound)
	}
	return b
}

// Diceable implements Primitive: a subdivision mesh is never diced
// directly; Split drives it down to quad faces after enough
// Catmull-Clark refinement steps, then the per-face Patch takes over.
func (sm *SubdivisionMesh) Diceable(float64, func(geom.Bound) (float64, float64)) bool { return false }

// Dice implements Primitive; unreachable.
func (sm *SubdivisionMesh) Dice() *grid.MicroGrid { return grid.NewMicroGrid(1, 1) }

// maxSubdivLevel bounds recursive refinement so a malformed mesh cannot
// loop forever; beyond this depth Split degrades to bilinear patches per
// face rather than refining further.
const maxSubdivLevel = 4

// Split implements Primitive: one level of Catmull-Clark refinement,
// then re-wraps as a SubdivisionMesh for further splitting, or once
// faces are small quads, emits bilinear Patch primitives directly.
func (sm *SubdivisionMesh) Split() ([]Primitive, error) {
	if sm.level >= maxSubdivLevel || allQuads(sm.NVerts) {
		return sm.toPatches()
	}
	refined, err := catmullClarkStep(sm)
	if err != nil {
		return nil, err
	}
	refined.level = sm.level + 1
	return []Primitive{refined}, nil
}

func allQuads(nverts []int) bool {
	for _, n := range nverts {
		if n != 4 {
			return false
		}
	}
	return true
}

func (sm *SubdivisionMesh) toPatches() ([]Primitive, error) {
	out := make([]Primitive, 0, len(sm.NVerts))
	off := 0
	for _, nv := range sm.NVerts {
		idx := sm.VertIdx[off : off+nv]
		off += nv
		if nv == 4 {
			cps := []geom.V3{sm.P[idx[0]], sm.P[idx[1]], sm.P[idx[3]], sm.P[idx[2]]}
			patch, err := NewPatch(sm.Attrs, false, cps, sm.Params)
			if err != nil {
				return nil, err
			}
			out = append(out, patch)
			continue
		}
		verts := make([]geom.V3, nv)
		for i, vi := range idx {
			verts[i] = sm.P[vi]
		}
		poly, err := NewPolygon(sm.Attrs, verts, sm.Params)
		if err != nil {
			return nil, err
		}
		out = append(out, poly)
	}
	return out, nil
}

// edgeKey identifies an undirected mesh edge by its two (normalized,
// smaller-first) vertex indices.
type edgeKey struct{ a, b int }

// catmullClarkStep computes one refinement pass: face points, edge
// points, and updated vertex points, then re-topologizes every original
// face into nverts-many quads around its centroid (the standard
// Catmull-Clark quadrangulation). Non-manifold input (an edge shared by
// more than 2 faces) returns a nil mesh and a NonManifoldSubdivision
// error.
func catmullClarkStep(sm *SubdivisionMesh) (*SubdivisionMesh, error) {
	normEdge := func(a, b int) edgeKey {
		if a > b {
			a, b = b, a
		}
		return edgeKey{a, b}
	}

	nFaces := len(sm.NVerts)
	faceStart := make([]int, nFaces)
	off := 0
	for i, nv := range sm.NVerts {
		faceStart[i] = off
		off += nv
	}

	facePoint := make([]geom.V3, nFaces)
	for f := 0; f < nFaces; f++ {
		nv := sm.NVerts[f]
		idx := sm.VertIdx[faceStart[f] : faceStart[f]+nv]
		var sum geom.V3
		for _, vi := range idx {
			sum.Add(&sum, &sm.P[vi])
		}
		sum.Scale(&sum, 1/float64(nv))
		facePoint[f] = sum
	}

	edgeFaces := map[edgeKey][]int{}
	for f := 0; f < nFaces; f++ {
		nv := sm.NVerts[f]
		idx := sm.VertIdx[faceStart[f] : faceStart[f]+nv]
		for i := 0; i < nv; i++ {
			a, b := idx[i], idx[(i+1)%nv]
			k := normEdge(a, b)
			edgeFaces[k] = append(edgeFaces[k], f)
		}
	}
	for _, faces := range edgeFaces {
		if len(faces) > 2 {
			return nil, stats.Diagnostic{Kind: stats.NonManifoldSubdivision, Severity: stats.Error,
				Message: "edge shared by more than 2 faces"}
		}
	}

	edgePoint := map[edgeKey]geom.V3{}
	for k, faces := range edgeFaces {
		var sum geom.V3
		sum.Add(&sm.P[k.a], &sm.P[k.b])
		for _, f := range faces {
			sum.Add(&sum, &facePoint[f])
		}
		sum.Scale(&sum, 1/float64(2+len(faces)))
		edgePoint[k] = sum
	}

	vertFaces := map[int][]int{}
	vertEdges := map[int][]edgeKey{}
	for f := 0; f < nFaces; f++ {
		nv := sm.NVerts[f]
		idx := sm.VertIdx[faceStart[f] : faceStart[f]+nv]
		for i := 0; i < nv; i++ {
			v := idx[i]
			vertFaces[v] = append(vertFaces[v], f)
			a, b := idx[i], idx[(i+1)%nv]
			vertEdges[v] = append(vertEdges[v], normEdge(a, b))
			pa, pb := idx[(i-1+nv)%nv], idx[i]
			vertEdges[pb] = append(vertEdges[pb], normEdge(pa, pb))
		}
	}

	newVertPoint := make([]geom.V3, len(sm.P))
	for v := range sm.P {
		faces := vertFaces[v]
		edges := uniqueEdges(vertEdges[v])
		n := float64(len(faces))
		if n == 0 {
			newVertPoint[v] = sm.P[v]
			continue
		}
		var favg, eavg geom.V3
		for _, f := range faces {
			favg.Add(&favg, &facePoint[f])
		}
		favg.Scale(&favg, 1/n)
		for _, e := range edges {
			mid := geom.V3{}
			mid.Add(&sm.P[e.a], &sm.P[e.b])
			mid.Scale(&mid, 0.5)
			eavg.Add(&eavg, &mid)
		}
		if len(edges) > 0 {
			eavg.Scale(&eavg, 1/float64(len(edges)))
		}
		p := sm.P[v]
		var term1, term2, term3 geom.V3
		term1.Scale(&favg, 1)
		term2.Scale(&eavg, 2)
		term3.Scale(&p, n-3)
		var sum geom.V3
		sum.Add(&term1, &term2)
		sum.Add(&sum, &term3)
		sum.Scale(&sum, 1/n)
		newVertPoint[v] = sum
	}

	// Re-topologize: every (original vertex, edge, face, edge) quad
	// around each corner of each face.
	var newP []geom.V3
	faceIdx := make([]int, nFaces)
	for f := range faceIdx {
		faceIdx[f] = len(newP)
		newP = append(newP, facePoint[f])
	}
	edgeIdx := map[edgeKey]int{}
	for k, p := range edgePoint {
		edgeIdx[k] = len(newP)
		newP = append(newP, p)
	}
	vertIdxNew := make([]int, len(sm.P))
	for v, p := range newVertPoint {
		vertIdxNew[v] = len(newP)
		newP = append(newP, p)
	}

	var nvertsOut, vertIdxOut []int
	for f := 0; f < nFaces; f++ {
		nv := sm.NVerts[f]
		idx := sm.VertIdx[faceStart[f] : faceStart[f]+nv]
		for i := 0; i < nv; i++ {
			prev := idx[(i-1+nv)%nv]
			cur := idx[i]
			next := idx[(i+1)%nv]
			e1 := edgeIdx[normEdge(prev, cur)]
			e2 := edgeIdx[normEdge(cur, next)]
			nvertsOut = append(nvertsOut, 4)
			vertIdxOut = append(vertIdxOut, vertIdxNew[cur], e2, faceIdx[f], e1)
		}
	}

	return &SubdivisionMesh{Base: Base{Attrs: sm.Attrs}, Scheme: sm.Scheme, P: newP, NVerts: nvertsOut, VertIdx: vertIdxOut, Params: sm.Params}, nil
}

func uniqueEdges(es []edgeKey) []edgeKey {
	seen := map[edgeKey]bool{}
	var out []edgeKey
	for _, e := range es {
		if !seen[e] {
			seen[e] = true
			out = append(out, e)
		}
	}
	return out
}

// Transform implements Primitive.
func (sm *SubdivisionMesh) Transform(m, mInvT *geom.M4, time float64) {
	for i := range sm.P {
		h := geom.MultPoint(&sm.P[i], m)
		proj, _ := geom.Project(h)
		sm.P[i] = proj
	}
}
