// Copyright © 2024 Aqsis-core contributors.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package state holds the graphics-state stack the RI boundary mutates:
// Options (process/frame-wide settings), Attributes (ref-counted,
// copy-on-write shading+geometric state), Transform (ref-counted,
// motion-sampled matrix stack), the scope Context stack, and the named
// coordinate-system registry.
package state

import "github.com/aqsisrender/core/param"

// Projection selects the camera projection RiProjection configures.
type Projection int

const (
	Orthographic Projection = iota
	Perspective
	UserProjection
)

// Hider selects the visibility algorithm.
type Hider int

const (
	HiddenHider Hider = iota // z-buffered sample compositing.
	ShadowHider              // depth-only, for shadow-map rendering.
)

// OutputMode is a bitmask of the channels a display writes.
type OutputMode int

const (
	ModeRGB OutputMode = 1 << iota
	ModeA
	ModeZ
)

// Quantize holds a one/min/max/dither quadruple, used independently for
// color and depth quantization.
type Quantize struct {
	One, Min, Max, Dither float64
}

// DefaultColorQuantize matches the RenderMan default for 8-bit output.
var DefaultColorQuantize = Quantize{One: 255, Min: 0, Max: 255, Dither: 0.5}

// Options is the process-wide snapshot owned by the topmost scope;
// FrameBegin/End may override a subset for the duration of the frame.
// Stored by value and copied into a new Frame scope; RI calls that
// mutate it are only legal before WorldBegin or inside FrameBegin/End
//
type Options struct {
	// Format.
	XRes, YRes   int
	PixelAspect  float64
	CropWindow   [4]float64 // left, right, bottom, top as fractions of resolution.
	FrameAspect  float64

	// Screen/camera.
	ScreenWindow           [4]float64 // left, right, bottom, top.
	Projection             Projection
	FOV                    float64
	Near, Far              float64
	FStop, FocalLength     float64
	FocalDistance          float64
	ShutterOpen, ShutterClose float64

	// Sampling.
	PixelSamples  [2]int
	PixelFilter   string
	FilterWidth   [2]float64
	ColorSamples  int

	// Exposure / quantization.
	ExposureGain, ExposureGamma float64
	ImagerShader                string
	ColorQuantize, DepthQuantize Quantize

	// Display.
	DisplayType, DisplayName string
	DisplayMode              OutputMode
	Hider                    Hider
	DepthFilter              string // "min", "midpoint", "max", "average".

	RelativeDetail float64

	// Search paths: name -> colon-separated path, "&" expands to the
	// previous value.
	SearchPaths map[string]string

	// Limits: bucketsize, eyesplits, gridsize, texturememory, zthreshold.
	BucketSize      [2]int
	EyeSplits       int
	GridSize        int
	TextureMemory   int
	ZThreshold      [3]float64

	// UserOptions is the open-ended (name -> parameter list) extension
	// point for options the core does not know by name.
	UserOptions map[string]*param.List
}

// NewOptions returns Options populated with the RenderMan default values.
func NewOptions() *Options {
	o := &Options{
		XRes: 640, YRes: 480,
		PixelAspect: 1,
		CropWindow:  [4]float64{0, 1, 0, 1},
		FrameAspect: 4.0 / 3.0,
		ScreenWindow: [4]float64{-1, 1, -1, 1},
		Projection:  Orthographic,
		FOV:         90,
		Near:        0.01 /* hither */, Far: 1e38, /* yon */
		FStop: 1e38, FocalLength: 1, FocalDistance: 1e38,
		ShutterOpen: 0, ShutterClose: 0,
		PixelSamples: [2]int{2, 2},
		PixelFilter:  "box",
		FilterWidth:  [2]float64{2, 2},
		ColorSamples: 3,
		ExposureGain: 1, ExposureGamma: 1,
		ColorQuantize: DefaultColorQuantize,
		DepthQuantize: Quantize{}, // zero one -> floating point depth, no quantization.
		DisplayType:   "file", DisplayName: "aqsis.tif",
		DisplayMode: ModeRGB | ModeA,
		Hider:       HiddenHider,
		DepthFilter: "min",
		RelativeDetail: 1,
		SearchPaths: map[string]string{},
		BucketSize:  [2]int{16, 16},
		EyeSplits:   10,
		GridSize:    256,
		TextureMemory: 128 * 1024 * 1024,
		ZThreshold:  [3]float64{1, 1, 1},
		UserOptions: map[string]*param.List{},
	}
	return o
}

// Clone returns a value copy of o, deep-copying the maps so that a Frame
// scope can mutate search paths/user options without affecting the
// parent Options (Options has no ref-counting; it is always cheap to
// copy since it holds no per-primitive data).
func (o *Options) Clone() *Options {
	c := *o
	c.SearchPaths = make(map[string]string, len(o.SearchPaths))
	for k, v := range o.SearchPaths {
		c.SearchPaths[k] = v
	}
	c.UserOptions = make(map[string]*param.List, len(o.UserOptions))
	for k, v := range o.UserOptions {
		c.UserOptions[k] = v
	}
	return &c
}

// CropPixels converts the fractional CropWindow into inclusive-exclusive
// pixel bounds (x0, x1, y0, y1) against the current resolution.
func (o *Options) CropPixels() (x0, x1, y0, y1 int) {
	x0 = int(o.CropWindow[0] * float64(o.XRes))
	x1 = int(o.CropWindow[1] * float64(o.XRes))
	y0 = int(o.CropWindow[2] * float64(o.YRes))
	y1 = int(o.CropWindow[3] * float64(o.YRes))
	return
}

// ExpandSearchPath resolves name's search path, expanding a leading "&"
// token to prior
func (o *Options) ExpandSearchPath(name, prior string) string {
	path, ok := o.SearchPaths[name]
	if !ok {
		return prior
	}
	const ampersand = "&"
	if path == ampersand {
		return prior
	}
	if idx := indexPath(path, ampersand); idx >= 0 {
		return path[:idx] + prior + path[idx+len(ampersand):]
	}
	return path
}

func indexPath(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
