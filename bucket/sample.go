// Copyright © 2024 Aqsis-core contributors.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package bucket implements the REYES bucket engine: the per-bucket
// primitive/grid/micropolygon queues, the stratified sub-pixel sample
// sets, visibility compositing, and the pixel-filter/exposure/
// quantization chain that turns samples into final pixel values.
package bucket

import (
	"hash/fnv"
	"math"
	"math/rand"
	"sort"

	"github.com/aqsisrender/core/math/geom"
)

// SampleFlag is a bitmask of per-sample state.
type SampleFlag int

const (
	FlagValid SampleFlag = 1 << iota
	FlagMatte
	FlagOccludes
	FlagProcessed
)

// SampleEntry is one z-ordered hit recorded against a SampleData.
type SampleEntry struct {
	Z       float64
	Color   geom.Color
	Opacity geom.Color
	Flags   SampleFlag
	// CSGNode, when non-empty, names the CSG leaf primitive this entry
	// belongs to, for ResolveCSG's tree-walk.
	CSGNode string
	// Enter reports whether this hit is a front-facing (entering) or
	// back-facing (exiting) crossing of CSGNode's solid boundary; only
	// meaningful when CSGNode != "".
	Enter bool
}

// SampleData is one stratified sub-pixel sample.
type SampleData struct {
	// SX, SY are the sample's absolute position in raster space (pixel
	// index plus the canonical-multi-jittered sub-pixel offset).
	SX, SY float64
	// Time is the sample's shutter time, normalized to [0,1] across
	// [ShutterOpen, ShutterClose].
	Time float64
	// DoFOffset is the sample's offset within the unit lens disk.
	DoFOffset geom.V2
	// DoFIndex groups samples that share a DoF offset, so a
	// micropolygon's DoF-aware test can batch by index.
	DoFIndex int

	// Opaque is the nearest fully-opaque hit recorded so far (the "opaque
	// fast path"); entries farther than Opaque's Z are discarded when it
	// is promoted, and Insert rejects later hits farther than it.
	Opaque SampleEntry
	HasOpaque bool

	Entries []SampleEntry
}

// Insert records a hit at z with the given color/opacity into d's ordered
// entry list, merging with an existing entry at the exact same z.
func (d *SampleData) Insert(e SampleEntry) {
	if d.HasOpaque && e.Z > d.Opaque.Z {
		return
	}
	for i := range d.Entries {
		if d.Entries[i].Z == e.Z {
			d.Entries[i].Color = avg2(d.Entries[i].Color, e.Color)
			d.Entries[i].Opacity = avg2(d.Entries[i].Opacity, e.Opacity)
			return
		}
	}
	d.Entries = append(d.Entries, e)
	sort.Slice(d.Entries, func(i, j int) bool { return d.Entries[i].Z < d.Entries[j].Z })
}

func avg2(a, b geom.Color) geom.Color {
	return geom.Color{R: (a.R + b.R) / 2, G: (a.G + b.G) / 2, B: (a.B + b.B) / 2}
}

// PromoteOpaque checks the nearest entries for full opacity (every
// channel >= zthreshold) and, if found, moves that entry into Opaque,
// keeping nearer entries in Entries and discarding farther ones — the
// opaque fast path.
func (d *SampleData) PromoteOpaque(zthreshold [3]float64) {
	for i := range d.Entries {
		e := d.Entries[i]
		if e.CSGNode != "" {
			// A CSG leaf's crossing can't be promoted on its own: whether
			// it actually occludes everything behind it depends on the
			// tree's resolved topology (a leaf's "entering" surface is not
			// opaque from the solid's point of view until its matching
			// exit has been seen), which only ResolveCSG can determine.
			// Leaving it as a plain entry keeps it and everything behind
			// it alive for that resolution.
			continue
		}
		if e.Opacity.R >= zthreshold[0] && e.Opacity.G >= zthreshold[1] && e.Opacity.B >= zthreshold[2] {
			d.Opaque = e
			d.HasOpaque = true
			d.Entries = d.Entries[:i]
			return
		}
	}
}

// AllEntries returns every recorded hit in ascending-z order, including
// the promoted opaque hit if any, for compositing.
func (d *SampleData) AllEntries() []SampleEntry {
	out := append([]SampleEntry(nil), d.Entries...)
	if d.HasOpaque {
		out = append(out, d.Opaque)
	}
	return out
}

// Pixel is an Xs x Ys grid of SampleData.
type Pixel struct {
	Xs, Ys  int
	Samples []SampleData
}

// NewPixel builds a Pixel's sample set at (pixelX, pixelY) using the
// canonical multi-jitter layout, a shared per-pixel time jitter, and a
// shuffled DoF-offset assignment, all driven by the deterministic
// per-pixel PRNG.
func NewPixel(bucketX, bucketY, pixelX, pixelY, xs, ys int, shutterOpen, shutterClose float64) *Pixel {
	rng := PixelRand(bucketX, bucketY, pixelX, pixelY)
	p := &Pixel{Xs: xs, Ys: ys, Samples: make([]SampleData, xs*ys)}

	offsets := canonicalMultiJitter(xs, ys, rng)
	timeOffset := rng.Float64()
	dofOffsets := shuffledDiskOffsets(xs*ys, rng)

	for row := 0; row < ys; row++ {
		for col := 0; col < xs; col++ {
			idx := row*xs + col
			ox, oy := offsets[idx][0], offsets[idx][1]
			d := &p.Samples[idx]
			d.SX = float64(pixelX) + ox
			d.SY = float64(pixelY) + oy
			t := (float64(idx) + timeOffset) / float64(xs*ys)
			if t >= 1 {
				t -= 1
			}
			d.Time = shutterOpen + t*(shutterClose-shutterOpen)
			d.DoFIndex = idx
			d.DoFOffset = dofOffsets[idx]
		}
	}
	return p
}

// PixelRand returns the deterministic per-pixel PRNG every random
// stream (jitter, time offset, DoF shuffle) draws from: seeded by an
// FNV hash of the bucket and pixel coordinates, so a frame rendered
// twice (any worker count) produces bit-identical sample placement.
func PixelRand(bucketX, bucketY, pixelX, pixelY int) *rand.Rand {
	h := fnv.New64a()
	var buf [16]byte
	putInt32(buf[0:4], bucketX)
	putInt32(buf[4:8], bucketY)
	putInt32(buf[8:12], pixelX)
	putInt32(buf[12:16], pixelY)
	h.Write(buf[:])
	return rand.New(rand.NewSource(int64(h.Sum64())))
}

func putInt32(b []byte, v int) {
	u := uint32(v)
	b[0] = byte(u)
	b[1] = byte(u >> 8)
	b[2] = byte(u >> 16)
	b[3] = byte(u >> 24)
}

// canonicalMultiJitter partitions the unit pixel into xs*ys sub-cells,
// places one sample per sub-cell, then shuffles y-coordinates within each
// row of cells and x-coordinates within each column, preserving
// stratification on both axes at once.
func canonicalMultiJitter(xs, ys int, rng *rand.Rand) [][2]float64 {
	n := xs * ys
	pts := make([][2]float64, n)
	for row := 0; row < ys; row++ {
		for col := 0; col < xs; col++ {
			idx := row*xs + col
			cellW, cellH := 1/float64(xs), 1/float64(ys)
			jx := (float64(col) + rng.Float64()) * cellW
			jy := (float64(row) + rng.Float64()) * cellH
			pts[idx] = [2]float64{jx, jy}
		}
	}
	// Shuffle x within each column of cells, y within each row, the
	// standard Chiu/Shirley decorrelation pass.
	for row := 0; row < ys; row++ {
		perm := rng.Perm(xs)
		tmp := make([]float64, xs)
		for col := 0; col < xs; col++ {
			tmp[col] = pts[row*xs+col][1]
		}
		for col := 0; col < xs; col++ {
			pts[row*xs+col][1] = tmp[perm[col]]
		}
	}
	for col := 0; col < xs; col++ {
		perm := rng.Perm(ys)
		tmp := make([]float64, ys)
		for row := 0; row < ys; row++ {
			tmp[row] = pts[row*xs+col][0]
		}
		for row := 0; row < ys; row++ {
			pts[row*xs+col][0] = tmp[perm[row]]
		}
	}
	return pts
}

// shuffledDiskOffsets distributes n DoF offsets on a regular grid within
// the unit square, projects each to the unit disk (concentric mapping,
// so disc coverage stays uniform), and shuffles the assignment once per
// pixel.
func shuffledDiskOffsets(n int, rng *rand.Rand) []geom.V2 {
	side := int(math.Ceil(math.Sqrt(float64(n))))
	grid := make([]geom.V2, 0, side*side)
	for row := 0; row < side; row++ {
		for col := 0; col < side; col++ {
			u := (float64(col) + rng.Float64()) / float64(side)
			v := (float64(row) + rng.Float64()) / float64(side)
			grid = append(grid, concentricDisk(u, v))
		}
	}
	perm := rng.Perm(len(grid))
	out := make([]geom.V2, n)
	for i := 0; i < n; i++ {
		out[i] = grid[perm[i%len(grid)]]
	}
	return out
}

// concentricDisk maps a point (u,v) in [0,1)^2 to the unit disk via
// Shirley's concentric mapping, avoiding the area distortion a naive
// polar mapping introduces.
func concentricDisk(u, v float64) geom.V2 {
	ox, oy := 2*u-1, 2*v-1
	if ox == 0 && oy == 0 {
		return geom.V2{}
	}
	var r, theta float64
	if math.Abs(ox) > math.Abs(oy) {
		r = ox
		theta = math.Pi / 4 * (oy / ox)
	} else {
		r = oy
		theta = math.Pi/2 - math.Pi/4*(ox/oy)
	}
	return geom.V2{X: r * math.Cos(theta), Y: r * math.Sin(theta)}
}

// CircleOfConfusion returns the lens CoC diameter in camera-space units
// at depth z, given the camera's f-stop, focal length, and focal
// distance. It returns 0 for a non-positive f-stop, for z == 0, and for z
// at the focal distance.
func CircleOfConfusion(fstop, focalLength, focalDistance, z float64) float64 {
	if fstop <= 0 || z == 0 || focalDistance == z {
		return 0
	}
	return math.Abs(focalLength * focalLength / (fstop * (focalDistance - z)))
}
