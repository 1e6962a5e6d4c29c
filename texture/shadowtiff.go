// Copyright © 2024 Aqsis-core contributors.
// Use is governed by a BSD-style license found in the LICENSE file.

package texture

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/aqsisrender/core/math/geom"
)

// Shadow maps travel as tiled 32-bit-float TIFF files carrying the
// light's matrices in Pixar's private tags. The
// golang.org/x/image/tiff codec the rest of this package uses for color
// textures can neither encode IEEE-float samples nor read or write
// private tags, so this one format is serialized directly: a TIFF file
// with one directory is a fixed-layout binary container, the same
// encoding/binary territory zfile.go already occupies.
const (
	tagImageWidth      = 256
	tagImageLength     = 257
	tagBitsPerSample   = 258
	tagCompression     = 259
	tagPhotometric     = 262
	tagSamplesPerPixel = 277
	tagTileWidth       = 322
	tagTileLength      = 323
	tagTileOffsets     = 324
	tagTileByteCounts  = 325
	tagSampleFormat    = 339

	// Pixar private tags.
	tagTextureFormat       = 33302
	tagMatrixWorldToScreen = 33305
	tagMatrixWorldToCamera = 33306
)

const (
	typeShort = 3
	typeLong  = 4
	typeASCII = 2
	typeFloat = 11
)

// TextureFormatShadow is the TEXTUREFORMAT tag value marking a depth
// map; the other defined values are "Plain Texture", "CubeFace
// Environment", and "LatLong Environment".
const TextureFormatShadow = "Shadow"

// shadowTileSize is the tile edge written by WriteShadowTIFF. TIFF
// requires tile dimensions to be multiples of 16.
const shadowTileSize = 64

type ifdEntry struct {
	tag, typ uint16
	count    uint32
	value    []byte // raw value bytes, inlined or spilled by writeIFD.
}

func shortEntry(tag uint16, v uint16) ifdEntry {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return ifdEntry{tag: tag, typ: typeShort, count: 1, value: b}
}

func longEntry(tag uint16, v uint32) ifdEntry {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return ifdEntry{tag: tag, typ: typeLong, count: 1, value: b}
}

func longsEntry(tag uint16, vs []uint32) ifdEntry {
	b := make([]byte, 4*len(vs))
	for i, v := range vs {
		binary.LittleEndian.PutUint32(b[4*i:], v)
	}
	return ifdEntry{tag: tag, typ: typeLong, count: uint32(len(vs)), value: b}
}

func asciiEntry(tag uint16, s string) ifdEntry {
	return ifdEntry{tag: tag, typ: typeASCII, count: uint32(len(s) + 1), value: append([]byte(s), 0)}
}

func matrixEntry(tag uint16, m *geom.M4) ifdEntry {
	vals := [16]float64{
		m.Xx, m.Xy, m.Xz, m.Xw,
		m.Yx, m.Yy, m.Yz, m.Yw,
		m.Zx, m.Zy, m.Zz, m.Zw,
		m.Wx, m.Wy, m.Wz, m.Ww,
	}
	b := make([]byte, 4*16)
	for i, v := range vals {
		binary.LittleEndian.PutUint32(b[4*i:], math.Float32bits(float32(v)))
	}
	return ifdEntry{tag: tag, typ: typeFloat, count: 16, value: b}
}

// WriteShadowTIFF serializes s as a single-directory little-endian TIFF:
// tiled, one 32-bit IEEE-float sample per pixel, with TEXTUREFORMAT and
// the two world matrices in the Pixar tags.
func WriteShadowTIFF(w io.Writer, s *ShadowMap) error {
	tilesX := (s.XRes + shadowTileSize - 1) / shadowTileSize
	tilesY := (s.YRes + shadowTileSize - 1) / shadowTileSize
	nTiles := tilesX * tilesY
	tileBytes := shadowTileSize * shadowTileSize * 4

	// Tile data sits immediately after the 8-byte header; edge tiles are
	// padded to the full tile size as TIFF requires.
	tileData := make([]byte, nTiles*tileBytes)
	offsets := make([]uint32, nTiles)
	counts := make([]uint32, nTiles)
	for ty := 0; ty < tilesY; ty++ {
		for tx := 0; tx < tilesX; tx++ {
			ti := ty*tilesX + tx
			base := ti * tileBytes
			offsets[ti] = uint32(8 + base)
			counts[ti] = uint32(tileBytes)
			for j := 0; j < shadowTileSize; j++ {
				y := ty*shadowTileSize + j
				if y >= s.YRes {
					break
				}
				for i := 0; i < shadowTileSize; i++ {
					x := tx*shadowTileSize + i
					if x >= s.XRes {
						break
					}
					bits := math.Float32bits(s.Depths[y*s.XRes+x])
					binary.LittleEndian.PutUint32(tileData[base+(j*shadowTileSize+i)*4:], bits)
				}
			}
		}
	}

	entries := []ifdEntry{
		longEntry(tagImageWidth, uint32(s.XRes)),
		longEntry(tagImageLength, uint32(s.YRes)),
		shortEntry(tagBitsPerSample, 32),
		shortEntry(tagCompression, 1),
		shortEntry(tagPhotometric, 1),
		shortEntry(tagSamplesPerPixel, 1),
		longEntry(tagTileWidth, shadowTileSize),
		longEntry(tagTileLength, shadowTileSize),
		longsEntry(tagTileOffsets, offsets),
		longsEntry(tagTileByteCounts, counts),
		shortEntry(tagSampleFormat, 3),
		asciiEntry(tagTextureFormat, TextureFormatShadow),
		matrixEntry(tagMatrixWorldToScreen, &s.WorldToScreen),
		matrixEntry(tagMatrixWorldToCamera, &s.WorldToCamera),
	}

	ifdStart := 8 + len(tileData)
	ifdLen := 2 + len(entries)*12 + 4
	tailStart := ifdStart + ifdLen

	var ifd, tail bytes.Buffer
	var cnt [2]byte
	binary.LittleEndian.PutUint16(cnt[:], uint16(len(entries)))
	ifd.Write(cnt[:])
	for _, e := range entries {
		var rec [12]byte
		binary.LittleEndian.PutUint16(rec[0:], e.tag)
		binary.LittleEndian.PutUint16(rec[2:], e.typ)
		binary.LittleEndian.PutUint32(rec[4:], e.count)
		if len(e.value) <= 4 {
			copy(rec[8:], e.value)
		} else {
			binary.LittleEndian.PutUint32(rec[8:], uint32(tailStart+tail.Len()))
			tail.Write(e.value)
			if tail.Len()%2 == 1 {
				tail.WriteByte(0) // keep values word-aligned.
			}
		}
		ifd.Write(rec[:])
	}
	ifd.Write([]byte{0, 0, 0, 0}) // no next directory.

	header := make([]byte, 8)
	header[0], header[1] = 'I', 'I'
	binary.LittleEndian.PutUint16(header[2:], 42)
	binary.LittleEndian.PutUint32(header[4:], uint32(ifdStart))

	for _, chunk := range [][]byte{header, tileData, ifd.Bytes(), tail.Bytes()} {
		if _, err := w.Write(chunk); err != nil {
			return fmt.Errorf("texture: writing shadow tiff: %w", err)
		}
	}
	return nil
}

type rawEntry struct {
	typ   uint16
	count uint32
	value []byte
}

func (e *rawEntry) long(i int) uint32 {
	if e.typ == typeShort {
		return uint32(binary.LittleEndian.Uint16(e.value[2*i:]))
	}
	return binary.LittleEndian.Uint32(e.value[4*i:])
}

// ReadShadowTIFF parses a shadow map written by WriteShadowTIFF (or any
// compatible uncompressed tiled float TIFF carrying the Pixar tags).
func ReadShadowTIFF(r io.Reader) (*ShadowMap, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("texture: shadow tiff: %w", err)
	}
	if len(data) < 8 || data[0] != 'I' || data[1] != 'I' || binary.LittleEndian.Uint16(data[2:]) != 42 {
		return nil, fmt.Errorf("texture: shadow tiff: not a little-endian TIFF")
	}
	ifdStart := int(binary.LittleEndian.Uint32(data[4:]))
	if ifdStart+2 > len(data) {
		return nil, fmt.Errorf("texture: shadow tiff: truncated directory")
	}
	n := int(binary.LittleEndian.Uint16(data[ifdStart:]))
	if ifdStart+2+n*12+4 > len(data) {
		return nil, fmt.Errorf("texture: shadow tiff: truncated directory")
	}
	entries := map[uint16]*rawEntry{}
	for i := 0; i < n; i++ {
		rec := data[ifdStart+2+i*12:]
		tag := binary.LittleEndian.Uint16(rec[0:])
		e := &rawEntry{typ: binary.LittleEndian.Uint16(rec[2:]), count: binary.LittleEndian.Uint32(rec[4:])}
		size := typeSize(e.typ) * int(e.count)
		if size <= 4 {
			e.value = rec[8:12]
		} else {
			off := int(binary.LittleEndian.Uint32(rec[8:]))
			if off+size > len(data) {
				return nil, fmt.Errorf("texture: shadow tiff: tag %d value out of range", tag)
			}
			e.value = data[off : off+size]
		}
		entries[tag] = e
	}

	format, ok := entries[tagTextureFormat]
	if !ok || string(bytes.TrimRight(format.value[:format.count], "\x00")) != TextureFormatShadow {
		return nil, fmt.Errorf("texture: shadow tiff: TEXTUREFORMAT is not %q", TextureFormatShadow)
	}
	for tag, want := range map[uint16]uint32{tagBitsPerSample: 32, tagSampleFormat: 3, tagCompression: 1} {
		e, ok := entries[tag]
		if !ok || e.long(0) != want {
			return nil, fmt.Errorf("texture: shadow tiff: tag %d: want %d", tag, want)
		}
	}
	required := []uint16{tagImageWidth, tagImageLength, tagTileWidth, tagTileLength, tagTileOffsets, tagTileByteCounts, tagMatrixWorldToCamera, tagMatrixWorldToScreen}
	for _, tag := range required {
		if _, ok := entries[tag]; !ok {
			return nil, fmt.Errorf("texture: shadow tiff: missing tag %d", tag)
		}
	}

	xres := int(entries[tagImageWidth].long(0))
	yres := int(entries[tagImageLength].long(0))
	tileW := int(entries[tagTileWidth].long(0))
	tileH := int(entries[tagTileLength].long(0))
	if xres <= 0 || yres <= 0 || tileW <= 0 || tileH <= 0 {
		return nil, fmt.Errorf("texture: shadow tiff: bad dimensions %dx%d tile %dx%d", xres, yres, tileW, tileH)
	}
	tilesX := (xres + tileW - 1) / tileW
	tilesY := (yres + tileH - 1) / tileH
	offs := entries[tagTileOffsets]
	if int(offs.count) != tilesX*tilesY {
		return nil, fmt.Errorf("texture: shadow tiff: %d tile offsets, want %d", offs.count, tilesX*tilesY)
	}

	depths := make([]float32, xres*yres)
	for ty := 0; ty < tilesY; ty++ {
		for tx := 0; tx < tilesX; tx++ {
			off := int(offs.long(ty*tilesX + tx))
			if off+tileW*tileH*4 > len(data) {
				return nil, fmt.Errorf("texture: shadow tiff: tile (%d,%d) out of range", tx, ty)
			}
			for j := 0; j < tileH; j++ {
				y := ty*tileH + j
				if y >= yres {
					break
				}
				for i := 0; i < tileW; i++ {
					x := tx*tileW + i
					if x >= xres {
						break
					}
					bits := binary.LittleEndian.Uint32(data[off+(j*tileW+i)*4:])
					depths[y*xres+x] = math.Float32frombits(bits)
				}
			}
		}
	}

	readM4 := func(tag uint16) geom.M4 {
		e := entries[tag]
		var vals [16]float64
		for i := range vals {
			vals[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(e.value[4*i:])))
		}
		return geom.M4{
			Xx: vals[0], Xy: vals[1], Xz: vals[2], Xw: vals[3],
			Yx: vals[4], Yy: vals[5], Yz: vals[6], Yw: vals[7],
			Zx: vals[8], Zy: vals[9], Zz: vals[10], Zw: vals[11],
			Wx: vals[12], Wy: vals[13], Wz: vals[14], Ww: vals[15],
		}
	}
	return NewShadowMap(xres, yres, readM4(tagMatrixWorldToCamera), readM4(tagMatrixWorldToScreen), depths), nil
}

func typeSize(typ uint16) int {
	switch typ {
	case typeASCII:
		return 1
	case typeShort:
		return 2
	default:
		return 4
	}
}

// ReadShadow loads a shadow map from either container: the tiled float
// TIFF WriteShadowTIFF produces or the legacy ZFile, distinguished by
// their magic bytes.
func ReadShadow(r io.Reader) (*ShadowMap, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("texture: shadow: %w", err)
	}
	switch {
	case bytes.HasPrefix(data, []byte(zfileMagic)):
		z, err := ReadZFile(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		return FromZFile(z), nil
	case bytes.HasPrefix(data, []byte{'I', 'I'}):
		return ReadShadowTIFF(bytes.NewReader(data))
	}
	return nil, fmt.Errorf("texture: shadow: unrecognized container")
}
