// Copyright © 2024 Aqsis-core contributors.
// Use is governed by a BSD-style license found in the LICENSE file.

package bucket

import (
	"math"
	"math/rand"

	"github.com/aqsisrender/core/math/geom"
	"github.com/aqsisrender/core/state"
)

// FilteredPixel is one output pixel's final pre-quantization value.
type FilteredPixel struct {
	Color geom.Color
	Alpha geom.Color
	Z     float64
	HasZ  bool
}

// FilterPixel convolves every sub-pixel sample within (xFilterWidth,
// yFilterWidth) of the output pixel centered at (px, py) — its own
// samples and those of neighbouring pixels the kernel's support reaches
// — with the named kernel, normalizing by the sum of weights actually
// applied so crop edges do not darken. pixelAt
// looks up a bucket-local or cross-bucket Pixel by raster coordinate; it
// returns ok=false for a pixel outside the renderable frame, whose
// samples are simply skipped (the normalization denominator already
// excludes them, so crop edges are not darkened).
func FilterPixel(px, py int, filter geom.FilterFunc, xw, yw float64, depthFilter DepthFilter, zthreshold [3]float64,
	csgTrees []*CSGNode, pixelAt func(x, y int) (*Pixel, bool)) FilteredPixel {

	var sumC, sumA geom.Color
	var sumZ, zWeight, weightSum float64
	hw, hh := int(math.Ceil(xw/2))+1, int(math.Ceil(yw/2))+1

	for dy := -hh; dy <= hh; dy++ {
		for dx := -hw; dx <= hw; dx++ {
			neighbor, ok := pixelAt(px+dx, py+dy)
			if !ok {
				continue
			}
			for i := range neighbor.Samples {
				s := &neighbor.Samples[i]
				ox := s.SX - (float64(px) + 0.5)
				oy := s.SY - (float64(py) + 0.5)
				w := filter(ox, oy, xw, yw)
				if w == 0 {
					continue
				}
				res := CompositeSamples(ResolveCSGForest(s.AllEntries(), csgTrees), depthFilter, zthreshold)
				sumC.R += res.Color.R * w
				sumC.G += res.Color.G * w
				sumC.B += res.Color.B * w
				sumA.R += res.Alpha.R * w
				sumA.G += res.Alpha.G * w
				sumA.B += res.Alpha.B * w
				if res.HasZ {
					sumZ += res.Z * w
					zWeight += w
				}
				weightSum += w
			}
		}
	}
	out := FilteredPixel{}
	if weightSum > 0 {
		out.Color = geom.Color{R: sumC.R / weightSum, G: sumC.G / weightSum, B: sumC.B / weightSum}
		out.Alpha = geom.Color{R: sumA.R / weightSum, G: sumA.G / weightSum, B: sumA.B / weightSum}
	}
	if zWeight > 0 {
		out.Z = sumZ / zWeight
		out.HasZ = true
	}
	return out
}

// Expose applies gain and gamma per-channel.
func Expose(c geom.Color, gain, gamma float64) geom.Color {
	exp := func(v float64) float64 {
		v *= gain
		if gamma != 1 && v > 0 {
			v = math.Pow(v, 1/gamma)
		}
		return v
	}
	return geom.Color{R: exp(c.R), G: exp(c.G), B: exp(c.B)}
}

// Quantize implements: per channel, computes
// one*C + ditherAmplitude*r - 0.5, floors, and clamps to [min, max]. r is
// drawn independently per channel from rng. If q.Dither == 0, dithering
// is skipped.
func Quantize(c geom.Color, q state.Quantize, rng *rand.Rand) geom.Color {
	if q.One == 0 {
		// A zero `one` means floating point output: no quantization.
		return c
	}
	quant := func(v float64) float64 {
		r := 0.0
		if q.Dither != 0 {
			r = rng.Float64()
		}
		val := math.Floor(q.One*v + q.Dither*r - 0.5)
		if val < q.Min {
			val = q.Min
		}
		if val > q.Max {
			val = q.Max
		}
		return val
	}
	return geom.Color{R: quant(c.R), G: quant(c.G), B: quant(c.B)}
}
