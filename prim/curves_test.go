// Copyright © 2024 Aqsis-core contributors.
// Use is governed by a BSD-style license found in the LICENSE file.

package prim

import (
	"testing"

	"github.com/aqsisrender/core/math/geom"
	"github.com/aqsisrender/core/state"
)

func TestNewCurvesValidation(t *testing.T) {
	attrs := state.NewAttributes()
	p := []geom.V3{{}, {X: 1}}
	if _, err := NewCurves(attrs, LinearCurve, []int{2}, false, p, nil, 0.1, nil); err != nil {
		t.Fatalf("valid linear curve rejected: %v", err)
	}
	if _, err := NewCurves(attrs, CubicCurve, []int{2}, false, p, nil, 0.1, nil); err == nil {
		t.Fatal("expected error for cubic curve with only 2 vertices")
	}
	if _, err := NewCurves(attrs, LinearCurve, []int{3}, false, p, nil, 0.1, nil); err == nil {
		t.Fatal("expected error: nvertices does not sum to len(P)")
	}
}

func TestCurvesDiceProducesRibbon(t *testing.T) {
	attrs := state.NewAttributes()
	p := []geom.V3{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 2, Y: 0, Z: 0}}
	c, err := NewCurves(attrs, LinearCurve, []int{3}, false, p, nil, 0.2, nil)
	if err != nil {
		t.Fatalf("NewCurves: %v", err)
	}
	g := c.Dice()
	if g.UDim != 8 || g.VDim != 2 {
		t.Fatalf("grid dims = %dx%d, want 8x2", g.UDim, g.VDim)
	}
}

func TestCurvesTransform(t *testing.T) {
	attrs := state.NewAttributes()
	p := []geom.V3{{X: 0}, {X: 1}}
	c, err := NewCurves(attrs, LinearCurve, []int{2}, false, p, nil, 0.1, nil)
	if err != nil {
		t.Fatalf("NewCurves: %v", err)
	}
	var m geom.M4
	m.TranslateTM(5, 0, 0)
	var mInvT geom.M4
	mInvT.Identity()
	c.Transform(&m, &mInvT, 0)
	if !geom.Aeq(c.P[0].X, 5) {
		t.Fatalf("P[0].X = %v, want 5", c.P[0].X)
	}
}
