// Copyright © 2024 Aqsis-core contributors.
// Use is governed by a BSD-style license found in the LICENSE file.

package texture

import (
	"image"
	"io"

	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"

	"github.com/aqsisrender/core/math/geom"
)

// decodeTIFF decodes one TIFF directory (one mip level, or one cube
// face) into the cache's internal color/opacity representation.
func decodeTIFF(r io.Reader) (image.Image, error) {
	return tiff.Decode(r)
}

// encodeTIFF writes img as a deflate-compressed TIFF directory.
func encodeTIFF(w io.Writer, img image.Image) error {
	return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
}

// buildMipChain derives progressively half-sized levels from base until
// both dimensions reach 1 texel, used when a texture file is opened as a
// plain (non-mipmapped) TIFF and needs its mip levels generated on first
// open. Downsampling uses golang.org/x/image/draw's bilinear scaler as
// the box-filter stand-in: x/image/draw ships no literal box kernel,
// and BiLinear's 2x2-tap footprint is the closest equivalent the
// library provides for a half-resolution reduction.
func buildMipChain(base image.Image) []image.Image {
	levels := []image.Image{base}
	b := base.Bounds()
	w, h := b.Dx(), b.Dy()
	cur := base
	for w > 1 || h > 1 {
		nw, nh := w/2, h/2
		if nw < 1 {
			nw = 1
		}
		if nh < 1 {
			nh = 1
		}
		dst := image.NewNRGBA64(image.Rect(0, 0, nw, nh))
		draw.BiLinear.Scale(dst, dst.Bounds(), cur, cur.Bounds(), draw.Src, nil)
		levels = append(levels, dst)
		cur, w, h = dst, nw, nh
	}
	return levels
}

// colorAt converts one texel of img to a linear Color plus its opacity
// (alpha), the representation the rest of the package operates on.
func colorAt(img image.Image, x, y int) (geom.Color, float64) {
	r, g, b, a := img.At(x, y).RGBA()
	const max = float64(0xffff)
	return geom.Color{R: float64(r) / max, G: float64(g) / max, B: float64(b) / max}, float64(a) / max
}

// sliceTile extracts one tile of img into a segment, clamping at the
// image edges for partial tiles.
func sliceTile(img image.Image, level, tileSize, tx, ty int) *segment {
	b := img.Bounds()
	x0, y0 := tx*tileSize, ty*tileSize
	w := tileSize
	if x0+w > b.Dx() {
		w = b.Dx() - x0
	}
	h := tileSize
	if y0+h > b.Dy() {
		h = b.Dy() - y0
	}
	if w <= 0 || h <= 0 {
		w, h = 1, 1
	}
	seg := &segment{w: w, h: h, pix: make([]geom.Color, w*h), opac: make([]float64, w*h)}
	for j := 0; j < h; j++ {
		for i := 0; i < w; i++ {
			c, a := colorAt(img, b.Min.X+x0+i, b.Min.Y+y0+j)
			seg.pix[j*w+i] = c
			seg.opac[j*w+i] = a
		}
	}
	seg.bytes = int64(w*h) * (3*8 + 8)
	return seg
}
