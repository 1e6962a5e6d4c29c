// Copyright © 2024 Aqsis-core contributors.
// Use is governed by a BSD-style license found in the LICENSE file.

package display

import "github.com/aqsisrender/core/math/geom"

// MemoryDriver accumulates a frame into an in-process buffer; it never
// touches a file or network socket. Used by runtime's integration tests to
// drive the full RI surface against a fake display driver, and as the
// "framebuffer" display type a caller embedding this engine can read pixels
// back from directly.
type MemoryDriver struct {
	Info   FrameInfo
	Pixels []Sample // row-major over [Info.X0,Info.X1)x[Info.Y0,Info.Y1), once Open has run.
	closed bool
}

// NewMemoryDriver returns an unopened MemoryDriver.
func NewMemoryDriver() *MemoryDriver { return &MemoryDriver{} }

// Open implements Driver, allocating the pixel buffer.
func (d *MemoryDriver) Open(info FrameInfo) error {
	d.Info = info
	w := info.X1 - info.X0
	h := info.Y1 - info.Y0
	d.Pixels = make([]Sample, w*h)
	return nil
}

// WriteBucket implements Driver, copying b's samples into the frame
// buffer at their raster position.
func (d *MemoryDriver) WriteBucket(b Bucket) error {
	w := d.Info.X1 - d.Info.X0
	for y := b.Y0; y < b.Y1; y++ {
		for x := b.X0; x < b.X1; x++ {
			d.Pixels[(y-d.Info.Y0)*w+(x-d.Info.X0)] = b.At(x, y)
		}
	}
	return nil
}

// Close implements Driver; MemoryDriver needs no teardown.
func (d *MemoryDriver) Close() error {
	d.closed = true
	return nil
}

// At returns the finished sample at raster coordinate (x, y).
func (d *MemoryDriver) At(x, y int) Sample {
	w := d.Info.X1 - d.Info.X0
	return d.Pixels[(y-d.Info.Y0)*w+(x-d.Info.X0)]
}

// Color returns a plain geom.Color image row-major over the frame,
// dropping alpha/z, for tests that just want to eyeball RGB.
func (d *MemoryDriver) Color() []geom.Color {
	out := make([]geom.Color, len(d.Pixels))
	for i, s := range d.Pixels {
		out[i] = s.Color
	}
	return out
}
