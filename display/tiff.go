// Copyright © 2024 Aqsis-core contributors.
// Use is governed by a BSD-style license found in the LICENSE file.

package display

import (
	"fmt"
	"image"
	"image/color"
	"os"

	"golang.org/x/image/tiff"
)

// TIFFDriver writes a frame to a deflate-compressed TIFF file, the
// "file" display type. Pixels accumulate into an in-memory image and
// are only encoded on Close, since TIFF has no streaming-scanline
// container worth hand-rolling here.
type TIFFDriver struct {
	path string
	info FrameInfo
	img  *image.NRGBA64
}

// NewTIFFDriver returns a Driver that writes to path on Close.
func NewTIFFDriver(path string) (Driver, error) {
	return &TIFFDriver{path: path}, nil
}

// Open implements Driver, allocating the backing image.
func (d *TIFFDriver) Open(info FrameInfo) error {
	d.info = info
	d.img = image.NewNRGBA64(image.Rect(0, 0, info.X1-info.X0, info.Y1-info.Y0))
	return nil
}

// WriteBucket implements Driver, converting each already-quantized
// Sample to 16-bit NRGBA. A floating-point frame (ColorQuantize.One==0)
// is assumed to carry values in [0,1] and is scaled by 65535; an
// already-quantized frame (the common 8-bit default) is assumed to
// carry values in [0,ColorQuantize.Max] and rescaled to the 16-bit range
// TIFF's NRGBA64 model expects.
func (d *TIFFDriver) WriteBucket(b Bucket) error {
	scale := 65535.0
	if d.info.ColorQuantize.One != 0 && d.info.ColorQuantize.Max != 0 {
		scale = 65535.0 / d.info.ColorQuantize.Max
	}
	chan16 := func(v float64) uint16 {
		v *= scale
		if v < 0 {
			return 0
		}
		if v > 65535 {
			return 65535
		}
		return uint16(v)
	}
	for y := b.Y0; y < b.Y1; y++ {
		for x := b.X0; x < b.X1; x++ {
			s := b.At(x, y)
			d.img.SetNRGBA64(x-d.info.X0, y-d.info.Y0, color.NRGBA64{
				R: chan16(s.Color.R), G: chan16(s.Color.G), B: chan16(s.Color.B), A: chan16(s.Alpha.R),
			})
		}
	}
	return nil
}

// Close implements Driver, encoding the accumulated image to d.path.
func (d *TIFFDriver) Close() error {
	f, err := os.Create(d.path)
	if err != nil {
		return fmt.Errorf("display: creating %s: %w", d.path, err)
	}
	defer f.Close()
	if err := tiff.Encode(f, d.img, &tiff.Options{Compression: tiff.Deflate, Predictor: true}); err != nil {
		return fmt.Errorf("display: encoding %s: %w", d.path, err)
	}
	return nil
}
