// Copyright © 2024 Aqsis-core contributors.
// Use is governed by a BSD-style license found in the LICENSE file.

package bucket

import (
	"container/heap"
	"sync"

	"github.com/aqsisrender/core/grid"
	"github.com/aqsisrender/core/math/geom"
	"github.com/aqsisrender/core/prim"
	"github.com/aqsisrender/core/state"
)

// PrimitiveJob is a primitive queued against a bucket, ordered by
// descending max-z so the nearest-to-camera primitives surface last for
// occlusion-friendly splitting.
type PrimitiveJob struct {
	Prim    prim.Primitive
	Bound   geom.Bound
	CSGNode string // non-empty inside a Solid scope; propagated to every child split and the MicroJobs it dices into.

	// MotionDeltas carries one relative camera-space transform per extra
	// motion key beyond the shutter-open key already baked into Prim by
	// Transform: diceAndShade
	// reuses the shutter-open dice/shade pass and just re-transforms its
	// already-shaded positions by each delta to populate MotionP, rather
	// than re-dicing per key. Propagated through Split like CSGNode.
	MotionDeltas []geom.M4
}

// GridJob is a diced grid waiting to be shaded and sampled.
type GridJob struct {
	Grid  *grid.MicroGrid
	Attrs *state.Attributes
}

type primQueue []PrimitiveJob

func (q primQueue) Len() int            { return len(q) }
func (q primQueue) Less(i, j int) bool   { return q[i].Bound.Max.Z > q[j].Bound.Max.Z }
func (q primQueue) Swap(i, j int)        { q[i], q[j] = q[j], q[i] }
func (q *primQueue) Push(x interface{})  { *q = append(*q, x.(PrimitiveJob)) }
func (q *primQueue) Pop() interface{} {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// Bucket is a rectangular pixel region and its three waiting queues plus
// its pixel grid.
type Bucket struct {
	BX, BY          int // bucket grid coordinates.
	X0, Y0, X1, Y1  int // raster-space pixel bounds, [X0,X1) x [Y0,Y1).

	// mu guards primQ and Micros: workers processing neighbouring
	// buckets push split children and edge-crossing micropolygons here
	// concurrently with this bucket's own drain.
	mu     sync.Mutex
	primQ  primQueue
	Grids  []GridJob
	Micros []MicroJob

	Pixels [][]*Pixel // [row][col], row-major over Y1-Y0 rows, X1-X0 cols.
}

// MicroJob is a micropolygon queued for sampling, alongside the motion
// key times its grid carries (needed by Micropolygon.AtTime) and the
// shaded color/opacity it inherits from its owning grid.
type MicroJob struct {
	MP        grid.Micropolygon
	KeyTimes  []float64
	Matte     bool
	CSGNode   string
}

// NewBucket allocates a bucket covering the half-open pixel rect
// [x0,x1)x[y0,y1), with xs*ys samples per pixel.
func NewBucket(bx, by, x0, y0, x1, y1, xs, ys int, shutterOpen, shutterClose float64) *Bucket {
	b := &Bucket{BX: bx, BY: by, X0: x0, Y0: y0, X1: x1, Y1: y1}
	rows := y1 - y0
	cols := x1 - x0
	b.Pixels = make([][]*Pixel, rows)
	for r := 0; r < rows; r++ {
		b.Pixels[r] = make([]*Pixel, cols)
		for c := 0; c < cols; c++ {
			b.Pixels[r][c] = NewPixel(bx, by, x0+c, y0+r, xs, ys, shutterOpen, shutterClose)
		}
	}
	heap.Init(&b.primQ)
	return b
}

// AddPrimitive queues p, keyed by its camera-space bound's max z.
func (b *Bucket) AddPrimitive(p prim.Primitive, bound geom.Bound) {
	b.AddPrimitiveJob(PrimitiveJob{Prim: p, Bound: bound})
}

// AddPrimitiveCSG is AddPrimitive for a primitive inside a Solid scope,
// tagging it with the CSG leaf name its Solid tree resolves samples by.
func (b *Bucket) AddPrimitiveCSG(p prim.Primitive, bound geom.Bound, csgNode string) {
	b.AddPrimitiveJob(PrimitiveJob{Prim: p, Bound: bound, CSGNode: csgNode})
}

// AddPrimitiveJob queues a fully-populated PrimitiveJob directly, for
// callers (the runtime scheduler) that need to set MotionDeltas alongside
// CSGNode.
func (b *Bucket) AddPrimitiveJob(job PrimitiveJob) {
	b.mu.Lock()
	heap.Push(&b.primQ, job)
	b.mu.Unlock()
}

// NextPrimitive pops the primitive with the largest max-z, or ok=false
// if the queue is empty.
func (b *Bucket) NextPrimitive() (PrimitiveJob, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.primQ.Len() == 0 {
		return PrimitiveJob{}, false
	}
	return heap.Pop(&b.primQ).(PrimitiveJob), true
}

// PrimitivesPending reports whether the primitive queue still has work.
func (b *Bucket) PrimitivesPending() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.primQ.Len() > 0
}

// AddGrid queues a diced grid for shading.
func (b *Bucket) AddGrid(g *grid.MicroGrid, attrs *state.Attributes) {
	b.Grids = append(b.Grids, GridJob{Grid: g, Attrs: attrs})
}

// AddMicropolygon queues a shaded micropolygon for sampling.
func (b *Bucket) AddMicropolygon(job MicroJob) {
	b.mu.Lock()
	b.Micros = append(b.Micros, job)
	b.mu.Unlock()
}

// NextMicro pops a queued micropolygon, or ok=false when none remain.
func (b *Bucket) NextMicro() (MicroJob, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := len(b.Micros)
	if n == 0 {
		return MicroJob{}, false
	}
	job := b.Micros[n-1]
	b.Micros = b.Micros[:n-1]
	return job, true
}

// PendingWork reports whether the bucket still has primitives or
// micropolygons queued.
func (b *Bucket) PendingWork() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.primQ.Len() > 0 || len(b.Micros) > 0
}

// Width, Height return the bucket's pixel dimensions.
func (b *Bucket) Width() int  { return b.X1 - b.X0 }
func (b *Bucket) Height() int { return b.Y1 - b.Y0 }

// PixelAt returns the Pixel at raster coordinate (x, y), or nil if out of
// the bucket's range.
func (b *Bucket) PixelAt(x, y int) *Pixel {
	if x < b.X0 || x >= b.X1 || y < b.Y0 || y >= b.Y1 {
		return nil
	}
	return b.Pixels[y-b.Y0][x-b.X0]
}

// Grid partitions a frame's raster area into buckets of the configured
// size, in raster scan
// order.
type Grid struct {
	BucketsX, BucketsY int
	SizeX, SizeY       int
	X0, Y0, X1, Y1     int // the cropped frame's pixel bounds.
}

// NewGrid computes the bucket layout covering [x0,x1)x[y0,y1) with
// buckets of size (sizeX, sizeY).
func NewGrid(x0, y0, x1, y1, sizeX, sizeY int) *Grid {
	w, h := x1-x0, y1-y0
	bx := (w + sizeX - 1) / sizeX
	by := (h + sizeY - 1) / sizeY
	if bx < 1 {
		bx = 1
	}
	if by < 1 {
		by = 1
	}
	return &Grid{BucketsX: bx, BucketsY: by, SizeX: sizeX, SizeY: sizeY, X0: x0, Y0: y0, X1: x1, Y1: y1}
}

// Bounds returns the pixel rect owned by bucket (bx, by).
func (g *Grid) Bounds(bx, by int) (x0, y0, x1, y1 int) {
	x0 = g.X0 + bx*g.SizeX
	y0 = g.Y0 + by*g.SizeY
	x1 = x0 + g.SizeX
	y1 = y0 + g.SizeY
	if x1 > g.X1 {
		x1 = g.X1
	}
	if y1 > g.Y1 {
		y1 = g.Y1
	}
	return
}

// BucketFor returns the (bx, by) bucket coordinate containing raster
// point (x, y), clamped to the grid's range.
func (g *Grid) BucketFor(x, y float64) (bx, by int) {
	px := int(x) - g.X0
	py := int(y) - g.Y0
	if px < 0 {
		px = 0
	}
	if py < 0 {
		py = 0
	}
	bx = px / g.SizeX
	by = py / g.SizeY
	if bx >= g.BucketsX {
		bx = g.BucketsX - 1
	}
	if by >= g.BucketsY {
		by = g.BucketsY - 1
	}
	return
}

// Order returns every (bx, by) pair in raster scan order.
func (g *Grid) Order() [][2]int {
	out := make([][2]int, 0, g.BucketsX*g.BucketsY)
	for by := 0; by < g.BucketsY; by++ {
		for bx := 0; bx < g.BucketsX; bx++ {
			out = append(out, [2]int{bx, by})
		}
	}
	return out
}
