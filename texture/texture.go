// Copyright © 2024 Aqsis-core contributors.
// Use is governed by a BSD-style license found in the LICENSE file.

package texture

import (
	"bytes"
	"fmt"
	"image"
	"math"
	"os"

	"github.com/aqsisrender/core/math/geom"
	"github.com/aqsisrender/core/stats"
)

// WrapMode is a texture's per-axis out-of-[0,1] sampling behavior.
type WrapMode int

const (
	Black WrapMode = iota
	Periodic
	Clamp
)

// Meta carries a color texture's Pixar-style TIFF metadata
// (TEXTUREFORMAT, WRAPMODES, MATRIX_WORLDTOCAMERA, MATRIX_WORLDTOSCREEN).
// golang.org/x/image/tiff has no API for private IFD tags, so color maps
// carry no embedded tags; the struct has yaml field tags, but nothing in
// this package reads or writes a sidecar file. (Depth maps embed the
// real private tags; see shadowtiff.go.)
type Meta struct {
	Format        string     `yaml:"format"`
	WrapS         string     `yaml:"wraps"`
	WrapT         string     `yaml:"wrapt"`
	Filter        string     `yaml:"filter"`
	SWidth        float64    `yaml:"swidth"`
	TWidth        float64    `yaml:"twidth"`
	WorldToCamera [16]float64 `yaml:"world_to_camera"`
	WorldToScreen [16]float64 `yaml:"world_to_screen"`
}

// Texture is an open plain texture map: a mip chain of tiled segments
// read through the shared Cache, plus the wrap/filter attributes its
// sampleMap calls default to when the RI shading call omits them.
//
// The wrap-mode/filter vocabulary and the SampleMap signature follow
// the RenderMan shading-language texture() surface.
type Texture struct {
	Path     string
	cache    *Cache
	levels   []image.Image
	tileSize int

	WrapS, WrapT WrapMode
	Filter       string // one of the names math/geom/filter.go resolves.
	Meta         Meta
}

// Open decodes path's base TIFF directory (building a mip chain if the
// file is not already one) and returns a Texture bound to cache. Actual
// pixel data is loaded lazily, tile by tile, through the cache on first
// sampleMap call that touches it.
func Open(cache *Cache, path string, wrapS, wrapT WrapMode, filter string) (*Texture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, stats.Diagnostic{Kind: stats.FileNotFound, Severity: stats.Error, Message: fmt.Sprintf("texture: %v", err)}
	}
	defer f.Close()

	base, err := decodeTIFF(f)
	if err != nil {
		return nil, stats.Diagnostic{Kind: stats.InvalidData, Severity: stats.Error, Message: fmt.Sprintf("texture: %s: %v", path, err)}
	}
	return &Texture{
		Path:     path,
		cache:    cache,
		levels:   buildMipChain(base),
		tileSize: DefaultTileSize,
		WrapS:    wrapS,
		WrapT:    wrapT,
		Filter:   filter,
	}, nil
}

// level returns the decoded image for a (clamped) mip level index.
func (t *Texture) level(l int) image.Image {
	if l < 0 {
		l = 0
	}
	if l >= len(t.levels) {
		l = len(t.levels) - 1
	}
	return t.levels[l]
}

func (t *Texture) tileAt(level, tx, ty int) (*segment, error) {
	key := segmentKey{Path: t.Path, Level: level, TileX: tx, TileY: ty}
	return t.cache.fetch(key, func() (*segment, error) {
		return sliceTile(t.level(level), level, t.tileSize, tx, ty), nil
	})
}

// texel reads one wrapped texel of the given mip level.
func (t *Texture) texel(level, x, y int) (geom.Color, float64) {
	img := t.level(level)
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return geom.Color{}, 0
	}
	x, okX := wrap(x, w, t.WrapS)
	y, okY := wrap(y, h, t.WrapT)
	if !okX || !okY {
		return geom.Color{}, 0
	}
	tx, ty := x/t.tileSize, y/t.tileSize
	seg, err := t.tileAt(level, tx, ty)
	if err != nil || seg == nil {
		return geom.Color{}, 0
	}
	lx, ly := x-tx*t.tileSize, y-ty*t.tileSize
	if lx >= seg.w || ly >= seg.h {
		return geom.Color{}, 0
	}
	idx := ly*seg.w + lx
	return seg.pix[idx], seg.opac[idx]
}

// wrap maps a texel coordinate into [0,n) per mode, reporting ok=false
// for Black mode coordinates that fall outside the image (those texels
// contribute nothing, per  "black" wrap mode).
func wrap(x, n int, mode WrapMode) (int, bool) {
	if n <= 0 {
		return 0, false
	}
	switch mode {
	case Periodic:
		x %= n
		if x < 0 {
			x += n
		}
		return x, true
	case Clamp:
		if x < 0 {
			return 0, true
		}
		if x >= n {
			return n - 1, true
		}
		return x, true
	default: // Black
		if x < 0 || x >= n {
			return 0, false
		}
		return x, true
	}
}

// SampleMap implements Texture.sampleMap(s, t, swidth,
// twidth, sblur, tblur): it picks the mip level matching the requested
// filter footprint (swidth/twidth, inflated by sblur/tblur), bilinearly
// samples the four surrounding texels of that level (blending with the
// next level by the fractional level), and returns the resulting color
// and opacity. The Filter field is not consulted.
func (t *Texture) SampleMap(s, tc, swidth, twidth, sblur, tblur float64) (geom.Color, float64) {
	swidth += sblur
	twidth += tblur
	if swidth <= 0 {
		swidth = 1.0 / 256
	}
	if twidth <= 0 {
		twidth = 1.0 / 256
	}

	level0 := t.level(0).Bounds()
	w0, h0 := float64(level0.Dx()), float64(level0.Dy())
	footprint := swidth * w0
	if twidth*h0 > footprint {
		footprint = twidth * h0
	}
	lod := 0.0
	if footprint > 1 {
		lod = math.Log2(footprint)
	}
	l0 := int(lod)
	frac := lod - float64(l0)

	c0, a0 := t.bilinear(l0, s, tc)
	if frac <= 0 || l0+1 >= len(t.levels) {
		return c0, a0
	}
	c1, a1 := t.bilinear(l0+1, s, tc)
	var c geom.Color
	c.Lerp(&c0, &c1, frac)
	return c, a0 + (a1-a0)*frac
}

func (t *Texture) bilinear(level int, s, tc float64) (geom.Color, float64) {
	img := t.level(level)
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	fx := s*float64(w) - 0.5
	fy := tc*float64(h) - 0.5
	x0, y0 := int(math.Floor(fx)), int(math.Floor(fy))
	dx, dy := fx-float64(x0), fy-float64(y0)

	c00, a00 := t.texel(level, x0, y0)
	c10, a10 := t.texel(level, x0+1, y0)
	c01, a01 := t.texel(level, x0, y0+1)
	c11, a11 := t.texel(level, x0+1, y0+1)

	var top, bot, c geom.Color
	top.Lerp(&c00, &c10, dx)
	bot.Lerp(&c01, &c11, dx)
	c.Lerp(&top, &bot, dy)
	a := lerp1(lerp1(a00, a10, dx), lerp1(a01, a11, dx), dy)
	return c, a
}

func lerp1(a, b, t float64) float64 { return a + (b-a)*t }

// encode returns the texture's base level as an in-memory TIFF stream.
// It writes no file and no Meta sidecar.
func (t *Texture) encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeTIFF(&buf, t.level(0)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
