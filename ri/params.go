// Copyright © 2024 Aqsis-core contributors.
// Use is governed by a BSD-style license found in the LICENSE file.

package ri

import (
	"github.com/aqsisrender/core/math/geom"
	"github.com/aqsisrender/core/param"
)

// The RIB parser's (token, pointer) argument-list grammar is an
// out-of-scope collaborator; by the time a parameter list
// reaches this package it is already a *param.List, built either by that
// parser or directly by a caller driving the RI surface from Go. These
// helpers pull the conventional named values (P, N, width, Cs, ...) a
// primitive emitter needs out of that list.

// paramPoints3 returns the flattened Point3 values of the parameter
// named name, or nil if absent.
func paramPoints3(params *param.List, name string) []geom.V3 {
	if params == nil {
		return nil
	}
	p := params.Find(name)
	if p == nil {
		return nil
	}
	out := make([]geom.V3, p.NFields())
	for i := range out {
		out[i] = p.Point3(i)
	}
	return out
}

// paramFloats returns the flattened float values of the parameter named
// name (one per NFields, for Float/Int-typed params), or nil if absent.
func paramFloats(params *param.List, name string) []float64 {
	if params == nil {
		return nil
	}
	p := params.Find(name)
	if p == nil {
		return nil
	}
	n := p.NFields()
	if n > len(p.Floats) {
		n = len(p.Floats)
	}
	return append([]float64(nil), p.Floats[:n]...)
}

// paramFloat1 returns the single float value of the parameter named
// name, or def if absent.
func paramFloat1(params *param.List, name string, def float64) float64 {
	fs := paramFloats(params, name)
	if len(fs) == 0 {
		return def
	}
	return fs[0]
}

// paramString returns the first string value of the parameter named
// name, or def if absent.
func paramString(params *param.List, name, def string) string {
	if params == nil {
		return def
	}
	p := params.Find(name)
	if p == nil || len(p.Strings) == 0 {
		return def
	}
	return p.Strings[0]
}

// paramInts returns the flattened values of the parameter named name as
// ints (nverts/vertIdx/nloops are always declared Integer but stored in
// the same flat Floats slice every other numeric type uses).
func paramInts(params *param.List, name string) []int {
	fs := paramFloats(params, name)
	if fs == nil {
		return nil
	}
	out := make([]int, len(fs))
	for i, f := range fs {
		out[i] = int(f)
	}
	return out
}

// paramHPoints returns the rational control points of the "Pw" parameter
// (4 floats per vertex: x, y, z, w), or nil if absent.
func paramHPoints(params *param.List, name string) []geom.HPoint {
	if params == nil {
		return nil
	}
	p := params.Find(name)
	if p == nil {
		return nil
	}
	n := len(p.Floats) / 4
	out := make([]geom.HPoint, n)
	for i := range out {
		off := i * 4
		out[i] = geom.HPoint{X: p.Floats[off], Y: p.Floats[off+1], Z: p.Floats[off+2], W: p.Floats[off+3]}
	}
	return out
}
