// Copyright © 2024 Aqsis-core contributors.
// Use is governed by a BSD-style license found in the LICENSE file.

package prim

import (
	"errors"
	"testing"

	"github.com/aqsisrender/core/math/geom"
	"github.com/aqsisrender/core/state"
	"github.com/aqsisrender/core/stats"
)

func cubeMesh(t *testing.T) *SubdivisionMesh {
	t.Helper()
	p := []geom.V3{
		{}, {X: 1}, {X: 1, Y: 1}, {Y: 1},
		{Z: 1}, {X: 1, Z: 1}, {X: 1, Y: 1, Z: 1}, {Y: 1, Z: 1},
	}
	nverts := []int{4, 4, 4, 4, 4, 4}
	vertIdx := []int{
		0, 1, 2, 3,
		4, 5, 6, 7,
		0, 1, 5, 4,
		1, 2, 6, 5,
		2, 3, 7, 6,
		3, 0, 4, 7,
	}
	sm, err := NewSubdivisionMesh(state.NewAttributes(), "catmull-clark", p, nverts, vertIdx, nil, nil)
	if err != nil {
		t.Fatalf("NewSubdivisionMesh: %v", err)
	}
	return sm
}

func TestNewSubdivisionMeshValidates(t *testing.T) {
	attrs := state.NewAttributes()
	p := []geom.V3{{}, {X: 1}, {Y: 1}}
	if _, err := NewSubdivisionMesh(attrs, "catmull-clark", p, []int{2}, []int{0, 1}, nil, nil); err == nil {
		t.Fatal("2-vertex face accepted")
	}
	if _, err := NewSubdivisionMesh(attrs, "catmull-clark", p, []int{3}, []int{0, 1, 9}, nil, nil); err == nil {
		t.Fatal("out-of-range vertex index accepted")
	}
}

// TestSubdivisionMeshAllQuadsSplitsToPatches checks an all-quad control
// cage goes straight to one bilinear patch per face.
func TestSubdivisionMeshAllQuadsSplitsToPatches(t *testing.T) {
	sm := cubeMesh(t)
	children, err := sm.Split()
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(children) != 6 {
		t.Fatalf("cube split into %d children, want 6", len(children))
	}
	for i, c := range children {
		if _, ok := c.(*Patch); !ok {
			t.Fatalf("child %d is %T, want *Patch", i, c)
		}
	}
}

// TestSubdivisionMeshTriangleRefines checks a non-quad cage refines
// through a Catmull-Clark step (which quadrangulates every face) rather
// than emitting patches directly.
func TestSubdivisionMeshTriangleRefines(t *testing.T) {
	attrs := state.NewAttributes()
	p := []geom.V3{{}, {X: 1}, {X: 0.5, Y: 1}}
	sm, err := NewSubdivisionMesh(attrs, "catmull-clark", p, []int{3}, []int{0, 1, 2}, nil, nil)
	if err != nil {
		t.Fatalf("NewSubdivisionMesh: %v", err)
	}
	children, err := sm.Split()
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(children) != 1 {
		t.Fatalf("triangle cage split into %d children, want 1 refined mesh", len(children))
	}
	refined, ok := children[0].(*SubdivisionMesh)
	if !ok {
		t.Fatalf("child is %T, want *SubdivisionMesh", children[0])
	}
	if !allQuads(refined.NVerts) {
		t.Fatal("one Catmull-Clark step should quadrangulate every face")
	}
	if len(refined.NVerts) != 3 {
		t.Fatalf("triangle quadrangulated into %d faces, want 3", len(refined.NVerts))
	}
}

// TestSubdivisionMeshNonManifold checks an edge shared by three faces is
// reported as NonManifoldSubdivision.
func TestSubdivisionMeshNonManifold(t *testing.T) {
	attrs := state.NewAttributes()
	p := []geom.V3{{}, {X: 1}, {Y: 1}, {Z: 1}, {Y: -1}}
	nverts := []int{3, 3, 3}
	vertIdx := []int{0, 1, 2, 0, 1, 3, 0, 1, 4}
	sm, err := NewSubdivisionMesh(attrs, "catmull-clark", p, nverts, vertIdx, nil, nil)
	if err != nil {
		t.Fatalf("NewSubdivisionMesh: %v", err)
	}
	_, err = sm.Split()
	if err == nil {
		t.Fatal("non-manifold mesh split without error")
	}
	var d stats.Diagnostic
	if !errors.As(err, &d) || d.Kind != stats.NonManifoldSubdivision {
		t.Fatalf("error = %v, want NonManifoldSubdivision", err)
	}
}
