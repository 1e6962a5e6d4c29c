// Copyright © 2024 Aqsis-core contributors.
// Use is governed by a BSD-style license found in the LICENSE file.

package bucket

import (
	"testing"

	"github.com/aqsisrender/core/math/geom"
)

func opaqueRed(z float64) SampleEntry {
	return SampleEntry{Z: z, Color: geom.Color{R: 1}, Opacity: geom.White}
}

func TestCompositeSamplesOpaqueNearestWins(t *testing.T) {
	entries := []SampleEntry{
		opaqueRed(1),
		{Z: 2, Color: geom.Color{G: 1}, Opacity: geom.White},
	}
	res := CompositeSamples(entries, DepthMin, [3]float64{1, 1, 1})
	if res.Color.R != 1 || res.Color.G != 0 {
		t.Fatalf("nearest opaque entry did not win: %+v", res.Color)
	}
	if !res.HasZ || res.Z != 1 {
		t.Fatalf("depth-min should report nearest qualifying z, got %+v", res)
	}
}

func TestCompositeSamplesMatteOccludes(t *testing.T) {
	// A matte+occludes entry zeroes the accumulator at the point it is
	// walked (back to front), so anything farther than it contributes
	// nothing to the final result; a nearer opaque entry still composites
	// normally on top of that reset accumulator.
	entries := []SampleEntry{
		{Z: 2, Color: geom.Color{G: 1}, Opacity: geom.White, Flags: FlagMatte | FlagOccludes},
		opaqueRed(5),
	}
	res := CompositeSamples(entries, DepthMin, [3]float64{1, 1, 1})
	if res.Color != (geom.Color{}) {
		t.Fatalf("nearest matte-occludes entry should discard everything farther than it, got %+v", res.Color)
	}
}

func TestCompositeSamplesMatteNonOccludingAttenuates(t *testing.T) {
	entries := []SampleEntry{
		{Z: 1, Color: geom.Color{R: 1, G: 1, B: 1}, Opacity: geom.Color{R: 0.5, G: 0.25, B: 0}, Flags: FlagMatte},
	}
	res := CompositeSamples(entries, DepthMin, [3]float64{1, 1, 1})
	// Matte non-occluding starts from black, attenuated by (1-opacity);
	// black source means color stays at zero regardless of attenuation.
	if res.Color != (geom.Color{}) {
		t.Fatalf("matte non-occluding should source black, got %+v", res.Color)
	}
}

func TestCompositeSamplesDepthFilters(t *testing.T) {
	entries := []SampleEntry{
		{Z: 1, Opacity: geom.White},
		{Z: 2, Opacity: geom.White},
		{Z: 3, Opacity: geom.White},
	}
	thresh := [3]float64{1, 1, 1}
	if r := CompositeSamples(entries, DepthMin, thresh); r.Z != 1 {
		t.Fatalf("DepthMin = %v, want 1", r.Z)
	}
	if r := CompositeSamples(entries, DepthMax, thresh); r.Z != 3 {
		t.Fatalf("DepthMax = %v, want 3", r.Z)
	}
	if r := CompositeSamples(entries, DepthMidpoint, thresh); r.Z != 1.5 {
		t.Fatalf("DepthMidpoint = %v, want 1.5", r.Z)
	}
	if r := CompositeSamples(entries, DepthAverage, thresh); r.Z != 2 {
		t.Fatalf("DepthAverage = %v, want 2", r.Z)
	}
}

func TestCompositeSamplesNoQualifyingHasNoZ(t *testing.T) {
	entries := []SampleEntry{{Z: 1, Opacity: geom.Color{R: 0.1, G: 0.1, B: 0.1}}}
	res := CompositeSamples(entries, DepthMin, [3]float64{1, 1, 1})
	if res.HasZ {
		t.Fatalf("expected HasZ=false when no entry reaches zthreshold")
	}
}

// TestResolveCSGDifference exercises the canonical CSG scenario:
// difference{A,B} where a ray crosses A then B then exits both, and the
// region inside both A and B must vanish from the resolved boundary.
func TestResolveCSGDifference(t *testing.T) {
	tree := &CSGNode{Op: CSGDifference, Children: []*CSGNode{
		{Op: CSGPrimitive, Leaf: "A"},
		{Op: CSGPrimitive, Leaf: "B"},
	}}
	entries := []SampleEntry{
		{Z: 1, CSGNode: "A", Enter: true},  // enter A: now inside (A and not B) -> surface
		{Z: 2, CSGNode: "B", Enter: true},  // enter B: now inside (A and B) -> A-B becomes empty -> surface
		{Z: 3, CSGNode: "B", Enter: false}, // exit B: back inside (A and not B) -> surface
		{Z: 4, CSGNode: "A", Enter: false}, // exit A: outside everything -> surface
	}
	out := ResolveCSG(entries, tree)
	if len(out) != 4 {
		t.Fatalf("expected all 4 crossings to survive (each toggles combined membership), got %d: %+v", len(out), out)
	}
}

// TestResolveCSGDropsInactiveBranch checks that a crossing wholly inside
// the already-subtracted region does not toggle the combined solid and
// is dropped.
func TestResolveCSGDropsInactiveBranch(t *testing.T) {
	tree := &CSGNode{Op: CSGDifference, Children: []*CSGNode{
		{Op: CSGPrimitive, Leaf: "A"},
		{Op: CSGPrimitive, Leaf: "B"},
	}}
	entries := []SampleEntry{
		{Z: 1, CSGNode: "B", Enter: true},  // enter B while outside A: still outside A-B, no toggle.
		{Z: 2, CSGNode: "B", Enter: false}, // exit B while outside A: still outside, no toggle.
	}
	out := ResolveCSG(entries, tree)
	if len(out) != 0 {
		t.Fatalf("expected both B-only crossings dropped (A never entered), got %+v", out)
	}
}

func TestResolveCSGUnion(t *testing.T) {
	tree := &CSGNode{Op: CSGUnion, Children: []*CSGNode{
		{Op: CSGPrimitive, Leaf: "A"},
		{Op: CSGPrimitive, Leaf: "B"},
	}}
	entries := []SampleEntry{
		{Z: 1, CSGNode: "A", Enter: true},  // enter A: outside->inside, surface.
		{Z: 2, CSGNode: "B", Enter: true},  // enter B while already inside A: union stays inside, no toggle.
		{Z: 3, CSGNode: "B", Enter: false}, // exit B while still inside A: union stays inside, no toggle.
		{Z: 4, CSGNode: "A", Enter: false}, // exit A: inside->outside, surface.
	}
	out := ResolveCSG(entries, tree)
	if len(out) != 2 {
		t.Fatalf("expected 2 surviving surface crossings for a union, got %d: %+v", len(out), out)
	}
}

// TestResolveCSGForestKeepsUnrelatedGroupsIndependent checks that two
// Solid groups sharing a pixel (plus an ordinary non-CSG entry) don't
// bleed into each other's leaf classification.
func TestResolveCSGForestKeepsUnrelatedGroupsIndependent(t *testing.T) {
	tree1 := &CSGNode{Op: CSGDifference, Children: []*CSGNode{
		{Op: CSGPrimitive, Leaf: "A"},
		{Op: CSGPrimitive, Leaf: "B"},
	}}
	tree2 := &CSGNode{Op: CSGUnion, Children: []*CSGNode{
		{Op: CSGPrimitive, Leaf: "C"},
		{Op: CSGPrimitive, Leaf: "D"},
	}}
	entries := []SampleEntry{
		{Z: 1, CSGNode: "A", Enter: true},
		{Z: 2, CSGNode: "C", Enter: true},
		{Z: 3, CSGNode: "D", Enter: true}, // inside C already -> union, no toggle.
		{Z: 4, CSGNode: "B", Enter: true}, // enters A-B's subtracted region -> toggle.
		{Z: 5, Opacity: geom.White},       // ordinary, non-CSG entry.
		{Z: 6, CSGNode: "D", Enter: false},
		{Z: 7, CSGNode: "B", Enter: false},
		{Z: 8, CSGNode: "A", Enter: false},
		{Z: 9, CSGNode: "C", Enter: false},
	}
	out := ResolveCSGForest(entries, []*CSGNode{tree1, tree2})
	// tree1 (A-B) keeps all 4 of its crossings (z=1,4,7,8); tree2 (C∪D)
	// keeps only its outer crossings (z=2,9) since z=3/6 don't toggle the
	// union; plus the passthrough entry at z=5.
	if len(out) != 7 {
		t.Fatalf("expected 7 surviving entries, got %d: %+v", len(out), out)
	}
	for i := 1; i < len(out); i++ {
		if out[i-1].Z > out[i].Z {
			t.Fatalf("result not sorted ascending by Z: %+v", out)
		}
	}
}
