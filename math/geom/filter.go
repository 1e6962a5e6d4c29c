// Copyright © 2024 Aqsis-core contributors.
// Use is governed by a BSD-style license found in the LICENSE file.

package geom

import "math"

// FilterFunc evaluates a separable pixel filter kernel at an offset
// (x, y) from the pixel center, given the filter's configured
// full widths (xw, yw); the kernel's support is |x| <= xw/2, |y| <= yw/2. Named filters are resolved by string name;
// external callers never see the function value, only the name.
type FilterFunc func(x, y, xw, yw float64) float64

// namedFilters maps the RI filter names to their kernel implementations.
var namedFilters = map[string]FilterFunc{
	"box":          BoxFilter,
	"triangle":     TriangleFilter,
	"catmull-rom":  CatmullRomFilter,
	"mitchell":     MitchellFilter,
	"gaussian":     GaussianFilter,
	"sinc":         SincFilter,
	"disk":         DiskFilter,
	"bessel":       BesselFilter,
}

// NamedFilter resolves a pixel filter by name, returning ok=false for an
// unrecognized name.
func NamedFilter(name string) (FilterFunc, bool) {
	f, ok := namedFilters[name]
	return f, ok
}

// BoxFilter is a uniform filter over [-xw/2, xw/2] x [-yw/2, yw/2].
func BoxFilter(x, y, xw, yw float64) float64 {
	if math.Abs(x) <= xw/2 && math.Abs(y) <= yw/2 {
		return 1
	}
	return 0
}

// TriangleFilter is a bilinear tent filter.
func TriangleFilter(x, y, xw, yw float64) float64 {
	fx := triangle1D(x, xw/2)
	fy := triangle1D(y, yw/2)
	return fx * fy
}

func triangle1D(x, half float64) float64 {
	if half <= 0 {
		return 0
	}
	a := math.Abs(x)
	if a >= half {
		return 0
	}
	return (half - a) / half
}

// GaussianFilter is a Gaussian kernel truncated at the configured width.
func GaussianFilter(x, y, xw, yw float64) float64 {
	return gaussian1D(x, xw/2) * gaussian1D(y, yw/2)
}

func gaussian1D(x, half float64) float64 {
	if half <= 0 {
		return 0
	}
	if math.Abs(x) > half {
		return 0
	}
	alpha := 2.0
	return math.Exp(-alpha*x*x) - math.Exp(-alpha*half*half)
}

// SincFilter is the windowed sinc filter (Lanczos window).
func SincFilter(x, y, xw, yw float64) float64 {
	return sinc1D(x, xw/2) * sinc1D(y, yw/2)
}

func sinc1D(x, half float64) float64 {
	if half <= 0 {
		return 0
	}
	a := math.Abs(x)
	if a > half {
		return 0
	}
	if a < 1e-6 {
		return 1
	}
	px := math.Pi * a
	sincVal := math.Sin(px) / px
	window := math.Sin(math.Pi*a/half) / (math.Pi * a / half)
	return sincVal * window
}

// DiskFilter is a circular uniform filter of radius min(xw, yw)/2.
func DiskFilter(x, y, xw, yw float64) float64 {
	r := math.Min(xw, yw) / 2
	if r <= 0 {
		return 0
	}
	if x*x+y*y <= r*r {
		return 1
	}
	return 0
}

// BesselFilter approximates the Airy-disk-derived Bessel filter with a
// jinc kernel clipped to the configured width.
func BesselFilter(x, y, xw, yw float64) float64 {
	r := math.Hypot(x, y)
	half := math.Min(xw, yw) / 2
	if half <= 0 || r > half {
		return 0
	}
	if r < 1e-6 {
		return 1
	}
	// jinc(r) = 2*J1(pi*r)/(pi*r); approximate J1 with its low-order
	// polynomial expansion, sufficient for a pixel-scale kernel.
	t := math.Pi * r
	j1 := t/2 - t*t*t/16 + t*t*t*t*t/384
	return 2 * j1 / t
}

// CatmullRomFilter evaluates the Catmull-Rom reconstruction filter
// separably in x and y.
func CatmullRomFilter(x, y, xw, yw float64) float64 {
	return catmullRom1D(x, xw/2) * catmullRom1D(y, yw/2)
}

func catmullRom1D(x, half float64) float64 {
	if half <= 0 {
		return 0
	}
	a := math.Abs(x) / half * 2
	if a > 2 {
		return 0
	}
	if a < 1 {
		return 1.5*a*a*a - 2.5*a*a + 1
	}
	return -0.5*a*a*a + 2.5*a*a - 4*a + 2
}

// MitchellFilter evaluates the Mitchell-Netravali reconstruction filter
// (B=C=1/3, the standard RenderMan default) separably in x and y.
func MitchellFilter(x, y, xw, yw float64) float64 {
	return mitchell1D(x, xw/2) * mitchell1D(y, yw/2)
}

func mitchell1D(x, half float64) float64 {
	if half <= 0 {
		return 0
	}
	const b, c = 1.0 / 3, 1.0 / 3
	a := math.Abs(x) / half * 2
	var v float64
	switch {
	case a < 1:
		v = ((12-9*b-6*c)*a*a*a + (-18+12*b+6*c)*a*a + (6 - 2*b)) / 6
	case a < 2:
		v = ((-b-6*c)*a*a*a + (6*b+30*c)*a*a + (-12*b-48*c)*a + (8*b + 24*c)) / 6
	default:
		v = 0
	}
	return v
}
