// Copyright © 2024 Aqsis-core contributors.
// Use is governed by a BSD-style license found in the LICENSE file.

package prim

import (
	"math"
	"testing"

	"github.com/aqsisrender/core/math/geom"
	"github.com/aqsisrender/core/state"
)

// TestSphereDiceOnRadius dices a full unit sphere and checks every grid
// vertex lies exactly on the radius, with unit normals.
func TestSphereDiceOnRadius(t *testing.T) {
	attrs := state.NewAttributes()
	sph := NewSphere(attrs, 1, -1, 1, 360, nil)
	g := sph.Dice()
	if g.UDim < 2 || g.VDim < 2 {
		t.Fatalf("grid dims = %dx%d, want at least 2x2", g.UDim, g.VDim)
	}
	for i, p := range g.P {
		r2 := p.X*p.X + p.Y*p.Y + p.Z*p.Z
		if math.Abs(r2-1) > 1e-9 {
			t.Fatalf("P[%d] = %+v has |P|^2 = %v, want 1", i, p, r2)
		}
		if g.S[i] < 0 || g.S[i] > 1 || g.T[i] < 0 || g.T[i] > 1 {
			t.Fatalf("parametric coords (%v, %v) outside [0,1]", g.S[i], g.T[i])
		}
	}
}

// TestDiskDiceFlat checks a disk dices into its z = height plane with
// radius never exceeded.
func TestDiskDiceFlat(t *testing.T) {
	attrs := state.NewAttributes()
	disk := NewDisk(attrs, 2, 1, 360, nil)
	for i, p := range disk.Dice().P {
		if p.Z != 2 {
			t.Fatalf("P[%d].Z = %v, want height 2", i, p.Z)
		}
		if math.Hypot(p.X, p.Y) > 1+1e-9 {
			t.Fatalf("P[%d] = %+v outside radius 1", i, p)
		}
	}
}

func TestCylinderBound(t *testing.T) {
	attrs := state.NewAttributes()
	cyl := NewCylinder(attrs, 1, 0, 3, 360, nil)
	b := cyl.Bound(0)
	want := geom.Bound{Min: geom.V3{X: -1, Y: -1, Z: 0}, Max: geom.V3{X: 1, Y: 1, Z: 3}}
	for _, pair := range [][2]float64{
		{b.Min.X, want.Min.X}, {b.Min.Y, want.Min.Y}, {b.Min.Z, want.Min.Z},
		{b.Max.X, want.Max.X}, {b.Max.Y, want.Max.Y}, {b.Max.Z, want.Max.Z},
	} {
		if math.Abs(pair[0]-pair[1]) > 1e-9 {
			t.Fatalf("bound = %+v, want %+v", b, want)
		}
	}
}

// TestQuadricSplitStaysInParentBound quarters a sphere's domain and
// checks each child's bound stays inside the parent's.
func TestQuadricSplitStaysInParentBound(t *testing.T) {
	attrs := state.NewAttributes()
	sph := NewSphere(attrs, 1, -1, 1, 360, nil)
	children, err := sph.Split()
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(children) != 4 {
		t.Fatalf("Split produced %d children, want 4", len(children))
	}
	parent := sph.Bound(0)
	const eps = 1e-9
	for i, c := range children {
		b := c.Bound(0)
		if b.Min.X < parent.Min.X-eps || b.Max.X > parent.Max.X+eps ||
			b.Min.Y < parent.Min.Y-eps || b.Max.Y > parent.Max.Y+eps ||
			b.Min.Z < parent.Min.Z-eps || b.Max.Z > parent.Max.Z+eps {
			t.Fatalf("child %d bound %+v escapes parent %+v", i, b, parent)
		}
	}
}

// TestTorusDiceTubeDistance checks every diced torus vertex sits exactly
// minor-radius away from the major-radius circle.
func TestTorusDiceTubeDistance(t *testing.T) {
	attrs := state.NewAttributes()
	tor := NewTorus(attrs, 2, 0.5, 0, 360, 360, nil)
	for i, p := range tor.Dice().P {
		ringDist := math.Hypot(p.X, p.Y) - 2
		d := math.Hypot(ringDist, p.Z)
		if math.Abs(d-0.5) > 1e-9 {
			t.Fatalf("P[%d] = %+v is %v from the ring, want 0.5", i, p, d)
		}
	}
}
