// Copyright © 2024 Aqsis-core contributors.
// Use is governed by a BSD-style license found in the LICENSE file.

package texture

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/aqsisrender/core/math/geom"
)

// zfileMagic is the legacy shadow-map container's fixed header prefix
// specifies: "Aqsis ZFile <version>".
const zfileMagic = "Aqsis ZFile "

// zfileVersion is the version token this package writes; it reads any
// version it encounters.
const zfileVersion = "2.0"

// ZFile is the legacy binary shadow-depth container: a fixed header,
// the two matrices a shadow map needs to transform world-space points
// into its light's raster space, and a flat xres*yres depth buffer.
//
// No ecosystem library implements this format — it is a renderer-
// specific legacy container, not a general-purpose one — so it is read
// and written directly over encoding/binary, the idiomatic tool for a
// small fixed-layout binary format.
type ZFile struct {
	XRes, YRes    int
	WorldToCamera geom.M4
	WorldToScreen geom.M4
	Depths        []float32 // row-major, length XRes*YRes.
}

// WriteZFile serializes z in the legacy format.
func WriteZFile(w io.Writer, z *ZFile) error {
	if _, err := io.WriteString(w, zfileMagic+zfileVersion+"\n"); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, int32(z.XRes)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, int32(z.YRes)); err != nil {
		return err
	}
	if err := writeMatrix(w, &z.WorldToCamera); err != nil {
		return err
	}
	if err := writeMatrix(w, &z.WorldToScreen); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, z.Depths)
}

func writeMatrix(w io.Writer, m *geom.M4) error {
	vals := [16]float32{
		float32(m.Xx), float32(m.Xy), float32(m.Xz), float32(m.Xw),
		float32(m.Yx), float32(m.Yy), float32(m.Yz), float32(m.Yw),
		float32(m.Zx), float32(m.Zy), float32(m.Zz), float32(m.Zw),
		float32(m.Wx), float32(m.Wy), float32(m.Wz), float32(m.Ww),
	}
	return binary.Write(w, binary.LittleEndian, vals)
}

func readMatrix(r io.Reader) (geom.M4, error) {
	var vals [16]float32
	if err := binary.Read(r, binary.LittleEndian, &vals); err != nil {
		return geom.M4{}, err
	}
	return geom.M4{
		Xx: float64(vals[0]), Xy: float64(vals[1]), Xz: float64(vals[2]), Xw: float64(vals[3]),
		Yx: float64(vals[4]), Yy: float64(vals[5]), Yz: float64(vals[6]), Yw: float64(vals[7]),
		Zx: float64(vals[8]), Zy: float64(vals[9]), Zz: float64(vals[10]), Zw: float64(vals[11]),
		Wx: float64(vals[12]), Wy: float64(vals[13]), Wz: float64(vals[14]), Ww: float64(vals[15]),
	}, nil
}

// ReadZFile parses the legacy format, validating the magic header.
func ReadZFile(r io.Reader) (*ZFile, error) {
	header := make([]byte, len(zfileMagic))
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("texture: zfile: %w", err)
	}
	if string(header) != zfileMagic {
		return nil, fmt.Errorf("texture: zfile: bad magic %q", header)
	}
	if err := skipLine(r); err != nil {
		return nil, fmt.Errorf("texture: zfile: %w", err)
	}

	var xres, yres int32
	if err := binary.Read(r, binary.LittleEndian, &xres); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &yres); err != nil {
		return nil, err
	}
	wc, err := readMatrix(r)
	if err != nil {
		return nil, err
	}
	ws, err := readMatrix(r)
	if err != nil {
		return nil, err
	}
	depths := make([]float32, int(xres)*int(yres))
	if err := binary.Read(r, binary.LittleEndian, depths); err != nil {
		return nil, err
	}
	return &ZFile{XRes: int(xres), YRes: int(yres), WorldToCamera: wc, WorldToScreen: ws, Depths: depths}, nil
}

func skipLine(r io.Reader) error {
	buf := make([]byte, 1)
	for {
		if _, err := r.Read(buf); err != nil {
			return err
		}
		if buf[0] == '\n' {
			return nil
		}
	}
}
