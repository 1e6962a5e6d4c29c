// Copyright © 2024 Aqsis-core contributors.
// Use is governed by a BSD-style license found in the LICENSE file.

package prim

import (
	"testing"

	"github.com/aqsisrender/core/math/geom"
	"github.com/aqsisrender/core/state"
)

func TestNewPointsValidation(t *testing.T) {
	attrs := state.NewAttributes()
	p := []geom.V3{{}, {X: 1}, {X: 2}}
	if _, err := NewPoints(attrs, p, []float64{0.1, 0.2, 0.3}, 0, nil); err != nil {
		t.Fatalf("valid points rejected: %v", err)
	}
	if _, err := NewPoints(attrs, p, []float64{0.1}, 0, nil); err == nil {
		t.Fatal("expected error: width count mismatch")
	}
}

func TestPointsDiceOnePerPoint(t *testing.T) {
	attrs := state.NewAttributes()
	p := []geom.V3{{X: 0}, {X: 1}, {X: 2}}
	pts, err := NewPoints(attrs, p, nil, 0.05, nil)
	if err != nil {
		t.Fatalf("NewPoints: %v", err)
	}
	g := pts.Dice()
	if g.UDim != 3 || g.VDim != 1 {
		t.Fatalf("grid dims = %dx%d, want 3x1", g.UDim, g.VDim)
	}
	for i, want := range p {
		if !g.P[i].Eq(&want) {
			t.Fatalf("P[%d] = %v, want %v", i, g.P[i], want)
		}
	}
}

func TestPointsSplitOversized(t *testing.T) {
	attrs := state.NewAttributes()
	n := DefaultMaxGridDim*DefaultMaxGridDim + 10
	p := make([]geom.V3, n)
	pts, err := NewPoints(attrs, p, nil, 0.01, nil)
	if err != nil {
		t.Fatalf("NewPoints: %v", err)
	}
	if pts.Diceable(1, nil) {
		t.Fatal("oversized point cloud should not be directly diceable")
	}
	children, err := pts.Split()
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(children) != 2 {
		t.Fatalf("Split produced %d children, want 2", len(children))
	}
	total := 0
	for _, c := range children {
		total += len(c.(*Points).P)
	}
	if total != n {
		t.Fatalf("split lost points: total = %d, want %d", total, n)
	}
}
