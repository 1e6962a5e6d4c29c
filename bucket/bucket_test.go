// Copyright © 2024 Aqsis-core contributors.
// Use is governed by a BSD-style license found in the LICENSE file.

package bucket

import (
	"testing"

	"github.com/aqsisrender/core/math/geom"
)

func TestPrimQueuePopsDescendingMaxZ(t *testing.T) {
	b := NewBucket(0, 0, 0, 0, 16, 16, 1, 1, 0, 1)
	b.AddPrimitive(nil, geom.Bound{Max: geom.V3{Z: 5}})
	b.AddPrimitive(nil, geom.Bound{Max: geom.V3{Z: 20}})
	b.AddPrimitive(nil, geom.Bound{Max: geom.V3{Z: 10}})

	want := []float64{20, 10, 5}
	for _, w := range want {
		job, ok := b.NextPrimitive()
		if !ok {
			t.Fatalf("queue emptied early, expected max-z %v next", w)
		}
		if job.Bound.Max.Z != w {
			t.Fatalf("got max-z %v, want %v (descending order)", job.Bound.Max.Z, w)
		}
	}
	if b.PrimitivesPending() {
		t.Fatalf("queue should be empty after draining all primitives")
	}
}

func TestNewBucketAllocatesPixelGrid(t *testing.T) {
	b := NewBucket(1, 2, 16, 32, 32, 48, 2, 2, 0, 1)
	if b.Width() != 16 || b.Height() != 16 {
		t.Fatalf("bucket dims = %dx%d, want 16x16", b.Width(), b.Height())
	}
	px := b.PixelAt(16, 32)
	if px == nil {
		t.Fatalf("PixelAt(16,32) should return the bucket's first pixel")
	}
	if b.PixelAt(15, 32) != nil {
		t.Fatalf("PixelAt outside the bucket's raster range should return nil")
	}
	if b.PixelAt(32, 48) != nil {
		t.Fatalf("PixelAt at the half-open upper bound should return nil")
	}
}

func TestGridBucketFor(t *testing.T) {
	g := NewGrid(0, 0, 100, 100, 16, 16)
	if g.BucketsX != 7 || g.BucketsY != 7 {
		t.Fatalf("BucketsX/Y = %d/%d, want 7/7 (ceil(100/16))", g.BucketsX, g.BucketsY)
	}
	bx, by := g.BucketFor(20, 20)
	if bx != 1 || by != 1 {
		t.Fatalf("BucketFor(20,20) = (%d,%d), want (1,1)", bx, by)
	}
	// Negative coordinates clamp to bucket 0.
	bx, by = g.BucketFor(-5, -5)
	if bx != 0 || by != 0 {
		t.Fatalf("BucketFor(-5,-5) = (%d,%d), want (0,0) clamped", bx, by)
	}
}

func TestGridOrderIsRasterScan(t *testing.T) {
	g := NewGrid(0, 0, 32, 32, 16, 16)
	order := g.Order()
	if len(order) != 4 {
		t.Fatalf("got %d buckets, want 4", len(order))
	}
	want := [][2]int{{0, 0}, {1, 0}, {0, 1}, {1, 1}}
	for i, w := range want {
		if order[i] != w {
			t.Fatalf("order[%d] = %v, want %v", i, order[i], w)
		}
	}
}
