// Copyright © 2024 Aqsis-core contributors.
// Use is governed by a BSD-style license found in the LICENSE file.

package bucket

import "testing"

func TestOcclusionDefaultsUnoccluded(t *testing.T) {
	o := NewOcclusion(4, 4)
	if o.Culls(0, 0, -1000) {
		t.Fatalf("fresh occlusion grid should never cull")
	}
}

func TestOcclusionUpdateKeepsNearest(t *testing.T) {
	o := NewOcclusion(2, 2)
	o.Update(0, 0, 10)
	o.Update(0, 0, 5)
	o.Update(0, 0, 20) // farther: must not overwrite the nearer occluder.
	if got := o.MaxZ(0, 0); got != 5 {
		t.Fatalf("MaxZ = %v, want 5 (nearest occluder recorded)", got)
	}
}

func TestOcclusionCullsFartherPrimitives(t *testing.T) {
	o := NewOcclusion(1, 1)
	o.Update(0, 0, 5)
	if !o.Culls(0, 0, 10) {
		t.Fatalf("primitive behind a guaranteed occluder should be culled")
	}
	if o.Culls(0, 0, 3) {
		t.Fatalf("primitive nearer than the occluder should not be culled")
	}
}

func TestOcclusionOutOfRangeIsNoop(t *testing.T) {
	o := NewOcclusion(2, 2)
	o.Update(5, 5, 1) // out of range: must not panic.
	if got := o.MaxZ(5, 5); got != posInf {
		t.Fatalf("out-of-range MaxZ = %v, want posInf", got)
	}
}
