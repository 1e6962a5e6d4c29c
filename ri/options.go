// Copyright © 2024 Aqsis-core contributors.
// Use is governed by a BSD-style license found in the LICENSE file.

package ri

import (
	"github.com/aqsisrender/core/bucket"
	"github.com/aqsisrender/core/math/geom"
	"github.com/aqsisrender/core/param"
	"github.com/aqsisrender/core/shader"
	"github.com/aqsisrender/core/state"
	"github.com/aqsisrender/core/stats"
)

// requireOptionScope rejects an option mutator called inside a World
// block example of
// scope-gated option/attribute/transform mutators.
func (c *Context) requireOptionScope(call string) error {
	top := c.Stack.Top()
	if top == nil || top.Kind == state.Main || top.Kind == state.Frame {
		return nil
	}
	return c.reportf(stats.InvalidNesting, stats.Error, "ri: %s is not legal inside a %s scope", call, top.Kind)
}

// Format sets the resolution and pixel aspect ratio.
func (c *Context) Format(xres, yres int, pixelAspect float64) error {
	if err := c.requireOptionScope("Format"); err != nil {
		return err
	}
	c.options.XRes, c.options.YRes, c.options.PixelAspect = xres, yres, pixelAspect
	return nil
}

// FrameAspectRatio overrides the frame aspect ratio otherwise derived
// from Format's resolution.
func (c *Context) FrameAspectRatio(aspect float64) error {
	if err := c.requireOptionScope("FrameAspectRatio"); err != nil {
		return err
	}
	c.options.FrameAspect = aspect
	return nil
}

// ScreenWindow sets the screen-space window (left, right, bottom, top).
func (c *Context) ScreenWindow(left, right, bottom, top float64) error {
	if err := c.requireOptionScope("ScreenWindow"); err != nil {
		return err
	}
	c.options.ScreenWindow = [4]float64{left, right, bottom, top}
	return nil
}

// CropWindow restricts rendering to the given fractional sub-rectangle
// of the frame.
func (c *Context) CropWindow(left, right, bottom, top float64) error {
	if err := c.requireOptionScope("CropWindow"); err != nil {
		return err
	}
	c.options.CropWindow = [4]float64{left, right, bottom, top}
	return nil
}

// Projection selects the camera projection; name is "orthographic",
// "perspective", or any other string for a user projection (which this
// core renders as orthographic, since user projection shaders are an
// out-of-scope shading-language concern).
func (c *Context) Projection(name string, params *param.List) error {
	if err := c.requireOptionScope("Projection"); err != nil {
		return err
	}
	switch name {
	case "perspective":
		c.options.Projection = state.Perspective
		if fov := params.Find("fov"); fov != nil {
			c.options.FOV = paramFloat1(params, "fov", c.options.FOV)
		}
	case "orthographic":
		c.options.Projection = state.Orthographic
	default:
		c.options.Projection = state.UserProjection
	}
	return nil
}

// Clipping sets the near/far (hither/yon) clipping planes.
func (c *Context) Clipping(near, far float64) error {
	if err := c.requireOptionScope("Clipping"); err != nil {
		return err
	}
	c.options.Near, c.options.Far = near, far
	return nil
}

// DepthOfField configures the lens model fstop/focallength/focaldistance
// the bucket pipeline's circle-of-confusion formula uses.
func (c *Context) DepthOfField(fstop, focalLength, focalDistance float64) error {
	if err := c.requireOptionScope("DepthOfField"); err != nil {
		return err
	}
	if fstop == 0 {
		c.reportf(stats.InvalidData, stats.Warning, "ri: DepthOfField: fstop=0 is degenerate, DoF disabled")
		fstop = 1e38
	}
	if focalDistance <= c.options.Near {
		c.reportf(stats.InvalidData, stats.Warning, "ri: DepthOfField: focaldistance <= near clip is degenerate")
	}
	c.options.FStop, c.options.FocalLength, c.options.FocalDistance = fstop, focalLength, focalDistance
	return nil
}

// Shutter sets the shutter open/close times motion-blur sampling
// distributes over.
func (c *Context) Shutter(open, close float64) error {
	if err := c.requireOptionScope("Shutter"); err != nil {
		return err
	}
	c.options.ShutterOpen, c.options.ShutterClose = open, close
	return nil
}

// PixelSamples sets the per-pixel stratified sample grid (Xs, Ys).
func (c *Context) PixelSamples(xs, ys int) error {
	if err := c.requireOptionScope("PixelSamples"); err != nil {
		return err
	}
	c.options.PixelSamples = [2]int{xs, ys}
	return nil
}

// PixelFilter selects the named reconstruction filter and its width.
func (c *Context) PixelFilter(name string, xwidth, ywidth float64) error {
	if err := c.requireOptionScope("PixelFilter"); err != nil {
		return err
	}
	if _, ok := geom.NamedFilter(name); !ok {
		c.reportf(stats.UnknownSymbol, stats.Warning, "ri: PixelFilter: unknown filter %q, using box", name)
		name = "box"
	}
	c.options.PixelFilter = name
	c.options.FilterWidth = [2]float64{xwidth, ywidth}
	return nil
}

// Exposure sets the post-filter gain/gamma curve.
func (c *Context) Exposure(gain, gamma float64) error {
	if err := c.requireOptionScope("Exposure"); err != nil {
		return err
	}
	c.options.ExposureGain, c.options.ExposureGamma = gain, gamma
	return nil
}

// Imager binds the imager shader run once per output pixel after
// filtering. name == "" or "null" clears it.
func (c *Context) Imager(name string, params *param.List) error {
	if err := c.requireOptionScope("Imager"); err != nil {
		return err
	}
	c.options.ImagerShader = name
	c.imager = nil
	if name == "" || name == "null" || c.Factory == nil {
		return nil
	}
	sh, err := c.Factory.Load(shader.Imager, name, params)
	if err != nil {
		return c.reportf(stats.UnknownSymbol, stats.Error, "ri: Imager %q: %v", name, err)
	}
	c.imager = sh
	return nil
}

// Quantize sets one of the color/depth quantization quadruples; which is "rgba" or "z".
func (c *Context) Quantize(which string, one, min, max, ditherAmplitude float64) error {
	if err := c.requireOptionScope("Quantize"); err != nil {
		return err
	}
	q := state.Quantize{One: one, Min: min, Max: max, Dither: ditherAmplitude}
	switch which {
	case "z", "depth":
		c.options.DepthQuantize = q
	default:
		c.options.ColorQuantize = q
	}
	return nil
}

// Display sets the output target's type, name, and channel-mode mask.
func (c *Context) Display(name, kind, mode string, params *param.List) error {
	if err := c.requireOptionScope("Display"); err != nil {
		return err
	}
	c.options.DisplayName = name
	c.options.DisplayType = kind
	c.options.DisplayMode = parseOutputMode(mode)
	return nil
}

func parseOutputMode(mode string) state.OutputMode {
	var m state.OutputMode
	for _, tok := range splitModeTokens(mode) {
		switch tok {
		case "rgb", "rgba":
			m |= state.ModeRGB
			if tok == "rgba" {
				m |= state.ModeA
			}
		case "a", "alpha":
			m |= state.ModeA
		case "z", "depth":
			m |= state.ModeZ
		}
	}
	if m == 0 {
		m = state.ModeRGB | state.ModeA
	}
	return m
}

func splitModeTokens(mode string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(mode); i++ {
		if i == len(mode) || mode[i] == ',' || mode[i] == ' ' {
			if i > start {
				out = append(out, lower(mode[start:i]))
			}
			start = i + 1
		}
	}
	return out
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 32
		}
	}
	return string(b)
}

// Hider selects the visibility algorithm: "hidden" (z-buffered sample
// compositing) or "shadow" (depth-only).
func (c *Context) Hider(name string, params *param.List) error {
	if err := c.requireOptionScope("Hider"); err != nil {
		return err
	}
	if name == "shadow" {
		c.options.Hider = state.ShadowHider
	} else {
		c.options.Hider = state.HiddenHider
	}
	df := paramString(params, "depthfilter", c.options.DepthFilter)
	if _, ok := bucket.DepthFilterByName(df); !ok {
		c.reportf(stats.InvalidData, stats.Warning, "unknown depthfilter %q, keeping %q", df, c.options.DepthFilter)
	} else {
		c.options.DepthFilter = df
	}
	return nil
}

// ColorSamples sets the number of color channels samples carry.
func (c *Context) ColorSamples(n int) error {
	if err := c.requireOptionScope("ColorSamples"); err != nil {
		return err
	}
	c.options.ColorSamples = n
	return nil
}

// RelativeDetail scales every primitive's effective shading rate.
func (c *Context) RelativeDetail(x float64) error {
	if err := c.requireOptionScope("RelativeDetail"); err != nil {
		return err
	}
	c.options.RelativeDetail = x
	return nil
}

// Option sets a searchpath/limits entry or, for any other name, stores
// params verbatim under the open-ended user-options map.
func (c *Context) Option(name string, params *param.List) error {
	switch name {
	case "searchpath":
		c.applySearchPath(params)
	case "limits":
		c.applyLimits(params)
	default:
		c.options.UserOptions[name] = params
	}
	return nil
}

func (c *Context) applySearchPath(params *param.List) {
	if params == nil {
		return
	}
	for _, p := range params.Params {
		if len(p.Strings) == 0 {
			continue
		}
		prior := c.options.SearchPaths[p.Name]
		c.options.SearchPaths[p.Name] = p.Strings[0]
		c.options.SearchPaths[p.Name] = c.options.ExpandSearchPath(p.Name, prior)
	}
}

func (c *Context) applyLimits(params *param.List) {
	if params == nil {
		return
	}
	if p := params.Find("bucketsize"); p != nil && len(p.Floats) >= 2 {
		c.options.BucketSize = [2]int{int(p.Floats[0]), int(p.Floats[1])}
	}
	if p := params.Find("eyesplits"); p != nil && len(p.Floats) >= 1 {
		c.options.EyeSplits = int(p.Floats[0])
	}
	if p := params.Find("gridsize"); p != nil && len(p.Floats) >= 1 {
		c.options.GridSize = int(p.Floats[0])
	}
	if p := params.Find("texturememory"); p != nil && len(p.Floats) >= 1 {
		c.options.TextureMemory = int(p.Floats[0])
	}
	if p := params.Find("zthreshold"); p != nil && len(p.Floats) >= 3 {
		c.options.ZThreshold = [3]float64{p.Floats[0], p.Floats[1], p.Floats[2]}
	}
}

// ErrorHandler selects the process-wide error-handling policy.
func (c *Context) ErrorHandler(mode string) error {
	switch mode {
	case "ignore":
		c.Stats.SetMode(stats.Ignore)
	case "abort":
		c.Stats.SetMode(stats.Abort)
	default:
		c.Stats.SetMode(stats.Print)
	}
	return nil
}

// Declare registers name's storage class/type/array-length shape so that
// later bare-token references in parameter lists resolve it.
func (c *Context) Declare(name, declaration string) (param.Declared, error) {
	d, err := param.Declare(c.Declared, name, declaration)
	if err != nil {
		return param.Declared{}, c.reportf(stats.BadToken, stats.Error, "ri: Declare %q: %v", name, err)
	}
	return d, nil
}

// NewParamList returns an empty parameter list sharing this Context's
// Declare registry, for callers building up a primitive's parameter list
// before an emitter call.
func (c *Context) NewParamList() *param.List { return param.NewList(c.Declared) }
