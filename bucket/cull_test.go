// Copyright © 2024 Aqsis-core contributors.
// Use is governed by a BSD-style license found in the LICENSE file.

package bucket

import (
	"testing"

	"github.com/aqsisrender/core/math/geom"
)

func TestHitherYonCull(t *testing.T) {
	cases := []struct {
		b          geom.Bound
		near, far  float64
		wantDiscard bool
	}{
		{geom.Bound{Min: geom.V3{Z: -5}, Max: geom.V3{Z: -1}}, 0.1, 100, true},  // entirely behind near.
		{geom.Bound{Min: geom.V3{Z: 200}, Max: geom.V3{Z: 300}}, 0.1, 100, true}, // entirely beyond far.
		{geom.Bound{Min: geom.V3{Z: 1}, Max: geom.V3{Z: 50}}, 0.1, 100, false},   // fully visible.
	}
	for i, c := range cases {
		if got := HitherYonCull(c.b, c.near, c.far); got != c.wantDiscard {
			t.Fatalf("case %d: HitherYonCull = %v, want %v", i, got, c.wantDiscard)
		}
	}
}

func TestEpsilonSpan(t *testing.T) {
	near := 1.0
	if !EpsilonSpan(geom.Bound{Min: geom.V3{Z: 0.5}, Max: geom.V3{Z: 1.5}}, near) {
		t.Fatalf("bound straddling the near plane should epsilon-span")
	}
	if EpsilonSpan(geom.Bound{Min: geom.V3{Z: 10}, Max: geom.V3{Z: 20}}, near) {
		t.Fatalf("bound entirely past the near plane should not epsilon-span")
	}
}

func TestRasterCull(t *testing.T) {
	frame := func(raster geom.Bound) bool {
		return RasterCull(raster, 1, 1, 0, 0, 100, 100)
	}
	if frame(geom.Bound{Min: geom.V3{X: 10, Y: 10}, Max: geom.V3{X: 20, Y: 20}}) {
		t.Fatalf("bound inside the frame should not be culled")
	}
	if !frame(geom.Bound{Min: geom.V3{X: -50, Y: -50}, Max: geom.V3{X: -20, Y: -20}}) {
		t.Fatalf("bound entirely outside the frame should be culled")
	}
	// A bound just outside the frame but within the filter-width margin
	// must survive.
	if frame(geom.Bound{Min: geom.V3{X: -1, Y: 50}, Max: geom.V3{X: -0.5, Y: 60}}) {
		t.Fatalf("bound within the filter-width margin should not be culled")
	}
}

func TestCullCombinesSteps(t *testing.T) {
	near, far := 0.1, 100.0
	if got := Cull(geom.Bound{Min: geom.V3{Z: -10}, Max: geom.V3{Z: -5}}, near, far); got != Discard {
		t.Fatalf("Cull behind near plane = %v, want Discard", got)
	}
	if got := Cull(geom.Bound{Min: geom.V3{Z: 0.05}, Max: geom.V3{Z: 0.2}}, near, far); got != ForceSplit {
		t.Fatalf("Cull spanning near plane = %v, want ForceSplit", got)
	}
	if got := Cull(geom.Bound{Min: geom.V3{Z: 5}, Max: geom.V3{Z: 10}}, near, far); got != Keep {
		t.Fatalf("Cull fully visible = %v, want Keep", got)
	}
}
