// Copyright © 2024 Aqsis-core contributors.
// Use is governed by a BSD-style license found in the LICENSE file.

package geom

import "testing"

func TestBoundOverlaps(t *testing.T) {
	a := Bound{V3{0, 0, 0}, V3{1, 1, 1}}
	b := Bound{V3{0.5, 0.5, 0.5}, V3{2, 2, 2}}
	c := Bound{V3{2, 2, 2}, V3{3, 3, 3}}
	if !a.Overlaps(b) {
		t.Fatal("a and b should overlap")
	}
	if a.Overlaps(c) {
		t.Fatal("a and c should not overlap")
	}
}

func TestBoundUnion(t *testing.T) {
	a := Bound{V3{0, 0, 0}, V3{1, 1, 1}}
	b := Bound{V3{-1, -1, -1}, V3{0.5, 0.5, 0.5}}
	u := a.Union(b)
	want := Bound{V3{-1, -1, -1}, V3{1, 1, 1}}
	if u != want {
		t.Fatalf("Union got %+v want %+v", u, want)
	}
}

func TestEmptyBoundExtend(t *testing.T) {
	b := EmptyBound()
	if b.Valid() {
		t.Fatal("empty bound should be invalid")
	}
	b = b.Extend(V3{1, 2, 3})
	want := Bound{V3{1, 2, 3}, V3{1, 2, 3}}
	if b != want {
		t.Fatalf("Extend got %+v want %+v", b, want)
	}
}
