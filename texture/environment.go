// Copyright © 2024 Aqsis-core contributors.
// Use is governed by a BSD-style license found in the LICENSE file.

package texture

import (
	"math"

	"github.com/aqsisrender/core/math/geom"
)

// EnvKind distinguishes the two environment map layouts
// names.
type EnvKind int

const (
	CubeFace EnvKind = iota
	LatLong
)

// EnvironmentMap samples reflection/refraction directions against
// either six cube faces or one latlong panorama. The per-face storage
// reuses this package's own tiled-mip Texture type, so an environment
// map is layered on top of Texture rather than reimplementing
// sampling.
type EnvironmentMap struct {
	Kind  EnvKind
	Faces [6]*Texture // +X,-X,+Y,-Y,+Z,-Z; only Faces[0] used for LatLong.
}

// faceOrder matches RenderMan's environment-map face naming: px, nx,
// py, ny, pz, nz.
const (
	facePX = iota
	faceNX
	facePY
	faceNY
	facePZ
	faceNZ
)

// faceUV projects direction d onto the cube face it points into,
// returning the face index and (u,v) in [0,1].
func faceUV(d geom.V3) (int, float64, float64) {
	ax, ay, az := math.Abs(d.X), math.Abs(d.Y), math.Abs(d.Z)
	switch {
	case ax >= ay && ax >= az:
		if d.X > 0 {
			return facePX, 0.5 * (-d.Z/ax + 1), 0.5 * (-d.Y/ax + 1)
		}
		return faceNX, 0.5*(d.Z/ax+1), 0.5*(-d.Y/ax+1)
	case ay >= ax && ay >= az:
		if d.Y > 0 {
			return facePY, 0.5 * (d.X/ay + 1), 0.5 * (d.Z/ay + 1)
		}
		return faceNY, 0.5*(d.X/ay+1), 0.5*(-d.Z/ay+1)
	default:
		if d.Z > 0 {
			return facePZ, 0.5 * (d.X/az + 1), 0.5 * (-d.Y/az + 1)
		}
		return faceNZ, 0.5*(-d.X/az+1), 0.5*(-d.Y/az+1)
	}
}

// latLongUV projects direction d onto a latlong panorama's (u,v).
func latLongUV(d geom.V3) (float64, float64) {
	n := d.Unit()
	u := 0.5 + math.Atan2(n.X, -n.Z)/(2*math.Pi)
	v := 0.5 - math.Asin(clamp(n.Y, -1, 1))/math.Pi
	return u, v
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// Sample implements the swept-quad environment lookup: the reflection
// vector R and the two edge vectors (sw, tw) define the sampled solid
// angle's corners (R, R+sw, R+tw, R+sw+tw). Each corner is projected
// independently; for a LatLong map all four land on the same panorama
// and are filtered by SampleMap's own footprint blending. For a
// CubeFace map, corners that land on different faces are sampled from
// each face they touch and combined with equal weight per corner, an
// approximation of the exact sub-area-weighted split.
func (e *EnvironmentMap) Sample(r, sw, tw geom.V3, blur float64) geom.Color {
	corners := [4]geom.V3{r, add(r, sw), add(r, tw), add(r, add(sw, tw))}

	var sum geom.Color
	for _, c := range corners {
		sum.Add(&sum, e.sampleDirection(c, blur))
	}
	sum.Scale(&sum, 0.25)
	return sum
}

func add(a, b geom.V3) geom.V3 { return geom.V3{X: a.X + b.X, Y: a.Y + b.Y, Z: a.Z + b.Z} }

func (e *EnvironmentMap) sampleDirection(d geom.V3, blur float64) *geom.Color {
	switch e.Kind {
	case LatLong:
		u, v := latLongUV(d)
		c, _ := e.Faces[0].SampleMap(u, v, blur, blur, 0, 0)
		return &c
	default:
		f, u, v := faceUV(d)
		tex := e.Faces[f]
		if tex == nil {
			return &geom.Color{}
		}
		c, _ := tex.SampleMap(u, v, blur, blur, 0, 0)
		return &c
	}
}
