// Copyright © 2024 Aqsis-core contributors.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package display implements the display manager a frame's finished
// pixels are handed to: one Driver per output target, opened with the
// frame's resolution/mode/quantization, fed one completed bucket at a
// time in whatever order the runtime's worker pool finishes them (not
// necessarily raster order), and closed once every bucket has been
// written. Drivers register by name and are resolved by name, the same
// factory discipline the shader package uses.
package display

import (
	"fmt"

	"github.com/aqsisrender/core/math/geom"
	"github.com/aqsisrender/core/state"
)

// Sample is one output pixel's final, already-filtered/exposed/quantized
// value.
type Sample struct {
	Color, Alpha geom.Color
	Z            float64
	HasZ         bool
}

// Bucket is one rectangular region of finished pixels, in row-major
// order over [X0,X1)x[Y0,Y1), handed to a Driver exactly once.
type Bucket struct {
	X0, Y0, X1, Y1 int
	Pixels         []Sample // len (X1-X0)*(Y1-Y0).
}

// At returns the sample at raster coordinate (x, y) within b.
func (b Bucket) At(x, y int) Sample {
	w := b.X1 - b.X0
	return b.Pixels[(y-b.Y0)*w + (x - b.X0)]
}

// FrameInfo is everything a Driver needs at Open time: the resolution
// it should expect buckets to tile, which channels are present, and the
// quantization already applied to every Sample (so a driver that writes
// integer formats knows whether to round or scale).
type FrameInfo struct {
	Name                         string
	XRes, YRes                   int
	X0, Y0, X1, Y1               int // cropped pixel bounds; buckets only ever cover this sub-rect.
	Mode                         state.OutputMode
	ColorQuantize, DepthQuantize state.Quantize
}

// Driver is one output target's write path: a file writer, an
// in-memory test buffer, or an external display plug-in. Open/
// WriteBucket/Close mirror the RenderMan display driver API's
// DspyImageOpen/DspyImageData/DspyImageClose triad.
type Driver interface {
	Open(info FrameInfo) error
	WriteBucket(b Bucket) error
	Close() error
}

// Factory constructs a Driver for a Display call's output name (e.g. a
// file path); registered per display "type".
type Factory func(name string) (Driver, error)

// Registry resolves a display type name to its Factory, the same
// register-by-name/load-by-name shape shader.Registry already uses for
// shader sources.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

// Register associates kind (e.g. "file", "framebuffer") with factory.
func (r *Registry) Register(kind string, factory Factory) {
	r.factories[kind] = factory
}

// Open resolves kind and constructs a Driver for name, erroring on an
// unregistered kind rather than silently substituting one (the caller
// decides whether an unknown display type degrades to an in-memory
// driver or aborts the frame).
func (r *Registry) Open(kind, name string) (Driver, error) {
	f, ok := r.factories[kind]
	if !ok {
		return nil, fmt.Errorf("display: unknown driver kind %q", kind)
	}
	return f(name)
}
