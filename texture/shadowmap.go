// Copyright © 2024 Aqsis-core contributors.
// Use is governed by a BSD-style license found in the LICENSE file.

package texture

import (
	"math/rand"

	"github.com/aqsisrender/core/math/geom"
)

// ShadowMap stores one light's rendered depth buffer plus the matrices
// needed to transform a world-space shading point into that light's
// raster space, and answers occlusion queries for it: a software
// jittered-PCF footprint sampler with configurable receiver bias and an
// optional average-depth output.
type ShadowMap struct {
	XRes, YRes    int
	WorldToCamera geom.M4
	WorldToScreen geom.M4
	Depths        []float32 // row-major XRes*YRes, light-space z.
}

// NewShadowMap wraps a rendered or loaded depth buffer. Receiver bias
// is applied at sample time as a plain depth offset (see Sample), not
// folded into the matrices.
func NewShadowMap(xres, yres int, worldToCamera, worldToScreen geom.M4, depths []float32) *ShadowMap {
	return &ShadowMap{
		XRes: xres, YRes: yres,
		WorldToCamera: worldToCamera, WorldToScreen: worldToScreen,
		Depths: depths,
	}
}

// FromZFile builds a ShadowMap from a decoded legacy ZFile container.
func FromZFile(z *ZFile) *ShadowMap {
	return NewShadowMap(z.XRes, z.YRes, z.WorldToCamera, z.WorldToScreen, z.Depths)
}

// ToZFile serializes the map back into the legacy container format.
func (s *ShadowMap) ToZFile() *ZFile {
	return &ZFile{XRes: s.XRes, YRes: s.YRes, WorldToCamera: s.WorldToCamera, WorldToScreen: s.WorldToScreen, Depths: s.Depths}
}

func (s *ShadowMap) depthAt(x, y int) (float32, bool) {
	if x < 0 || x >= s.XRes || y < 0 || y >= s.YRes {
		return 0, false
	}
	return s.Depths[y*s.XRes+x], true
}

// Sample implements jittered-PCF shadow lookup: it
// transforms P into the light's raster space, computes the sampling
// footprint inflated by blur, takes n*m jittered taps inside the
// footprint (n,m <= 16), compares each tap's stored depth against P's
// light-space z minus a per-sample bias (drawn uniformly from
// [bias0,bias1] when either is nonzero, else the fixed bias), and returns
// the fraction of taps found unoccluded, plus the average stored depth
// across the same taps.
func (s *ShadowMap) Sample(P geom.V3, swidth, twidth, sblur, tblur float64, bias, bias0, bias1 float64, rng *rand.Rand) (lit float64, avgDepth float64) {
	cam := geom.MultPoint(&P, &s.WorldToCamera)
	lightZ := cam.Z

	screen := geom.MultPoint(&P, &s.WorldToScreen)
	ndc, ok := geom.Project(screen)
	if !ok {
		return 1, 0
	}
	// NDC [-1,1] -> raster [0,XRes]x[0,YRes], +Y down.
	rx := (ndc.X*0.5 + 0.5) * float64(s.XRes)
	ry := (1 - (ndc.Y*0.5 + 0.5)) * float64(s.YRes)

	sw := (swidth + sblur) * float64(s.XRes)
	tw := (twidth + tblur) * float64(s.YRes)
	if sw < 1 {
		sw = 1
	}
	if tw < 1 {
		tw = 1
	}

	n, m := tapCount(sw), tapCount(tw)
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}

	var litCount int
	var depthSum float64
	var taps int
	for j := 0; j < m; j++ {
		for i := 0; i < n; i++ {
			jx := (float64(i)+rng.Float64())/float64(n) - 0.5
			jy := (float64(j)+rng.Float64())/float64(m) - 0.5
			tx := int(rx + jx*sw)
			ty := int(ry + jy*tw)
			d, ok := s.depthAt(tx, ty)
			if !ok {
				continue
			}
			taps++
			depthSum += float64(d)

			b := bias
			if bias0 != 0 || bias1 != 0 {
				b = bias0 + rng.Float64()*(bias1-bias0)
			}
			if lightZ-b <= float64(d) {
				litCount++
			}
		}
	}
	if taps == 0 {
		return 1, 0
	}
	return float64(litCount) / float64(taps), depthSum / float64(taps)
}

// tapCount clamps the per-axis jittered-sample count to [1,16] and
// scales roughly with footprint size, per  "n,m <= 16".
func tapCount(footprintTexels float64) int {
	n := int(footprintTexels)
	if n < 1 {
		n = 1
	}
	if n > 16 {
		n = 16
	}
	return n
}
