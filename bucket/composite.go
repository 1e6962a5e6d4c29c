// Copyright © 2024 Aqsis-core contributors.
// Use is governed by a BSD-style license found in the LICENSE file.

package bucket

import (
	"sort"

	"github.com/aqsisrender/core/math/geom"
)

// CSGOp selects how a CSGNode combines its children.
type CSGOp int

const (
	CSGPrimitive CSGOp = iota
	CSGUnion
	CSGIntersection
	CSGDifference
)

// CSGNode is one node of a solid's operation tree: either a leaf
// naming a primitive's CSG tag, or an internal node combining its
// children by Op. Difference subtracts every child after the first from
// the first.
type CSGNode struct {
	Op       CSGOp
	Leaf     string
	Children []*CSGNode
}

// evalInside evaluates whether point is inside the solid tree given the
// current per-leaf inside/outside classification.
func evalInside(n *CSGNode, inside map[string]bool) bool {
	switch n.Op {
	case CSGPrimitive:
		return inside[n.Leaf]
	case CSGUnion:
		for _, c := range n.Children {
			if evalInside(c, inside) {
				return true
			}
		}
		return false
	case CSGIntersection:
		for _, c := range n.Children {
			if !evalInside(c, inside) {
				return false
			}
		}
		return len(n.Children) > 0
	case CSGDifference:
		if len(n.Children) == 0 {
			return false
		}
		if !evalInside(n.Children[0], inside) {
			return false
		}
		for _, c := range n.Children[1:] {
			if evalInside(c, inside) {
				return false
			}
		}
		return true
	}
	return false
}

// ResolveCSG implements: walk the z-ordered entries
// (already sorted ascending), classifying each leaf's inside/outside
// state as its entries toggle it, and keep only the entries where the
// combined solid's membership actually changes — these are the surface
// crossings of the resolved solid, ready for the normal back-to-front
// composite in CompositeSamples. Entries with no CSGNode pass through
// unchanged.
func ResolveCSG(entries []SampleEntry, tree *CSGNode) []SampleEntry {
	if tree == nil {
		return entries
	}
	inside := map[string]bool{}
	out := make([]SampleEntry, 0, len(entries))
	for _, e := range entries {
		if e.CSGNode == "" {
			out = append(out, e)
			continue
		}
		before := evalInside(tree, inside)
		inside[e.CSGNode] = e.Enter
		after := evalInside(tree, inside)
		if before != after {
			out = append(out, e)
		}
	}
	return out
}

// collectLeaves returns every leaf name reachable from n.
func collectLeaves(n *CSGNode) []string {
	if n == nil {
		return nil
	}
	if n.Op == CSGPrimitive {
		return []string{n.Leaf}
	}
	var out []string
	for _, c := range n.Children {
		out = append(out, collectLeaves(c)...)
	}
	return out
}

// ResolveCSGForest applies ResolveCSG independently per tree in trees, so
// unrelated Solid groups sharing a pixel don't corrupt each other's leaf
// classification. Entries whose CSGNode tag names no known leaf pass
// through unchanged, same as ResolveCSG. The result is
// re-sorted ascending by Z, since CompositeSamples expects that order.
func ResolveCSGForest(entries []SampleEntry, trees []*CSGNode) []SampleEntry {
	if len(trees) == 0 {
		return entries
	}
	leafTree := map[string]int{}
	for ti, t := range trees {
		for _, leaf := range collectLeaves(t) {
			leafTree[leaf] = ti
		}
	}

	var passthrough []SampleEntry
	buckets := make([][]SampleEntry, len(trees))
	for _, e := range entries {
		ti, ok := leafTree[e.CSGNode]
		if e.CSGNode == "" || !ok {
			passthrough = append(passthrough, e)
			continue
		}
		buckets[ti] = append(buckets[ti], e)
	}

	out := append([]SampleEntry{}, passthrough...)
	for ti, b := range buckets {
		out = append(out, ResolveCSG(b, trees[ti])...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Z < out[j].Z })
	return out
}

// DepthFilter selects how the final per-sample z is assembled from the
// qualifying entries.
type DepthFilter int

const (
	DepthMin DepthFilter = iota
	DepthMidpoint
	DepthMax
	DepthAverage
)

// DepthFilterByName resolves the hider's "depthfilter" option value
// to its DepthFilter, reporting ok=false for an unknown name.
func DepthFilterByName(name string) (DepthFilter, bool) {
	switch name {
	case "", "min":
		return DepthMin, true
	case "midpoint":
		return DepthMidpoint, true
	case "max":
		return DepthMax, true
	case "average":
		return DepthAverage, true
	}
	return DepthMin, false
}

// CompositeResult is the final (C, alpha, z) assembled for one sample.
type CompositeResult struct {
	Color   geom.Color
	Alpha   geom.Color
	Z       float64
	HasZ    bool
}

// CompositeSamples implements steps 2-3: walks entries back
// to front (entries must already be sorted ascending by z; iteration
// proceeds from the end), applying matte/normal compositing, then
// assembles the final depth from the entries whose opacity reaches
// zthreshold using the configured DepthFilter.
func CompositeSamples(entries []SampleEntry, depthFilter DepthFilter, zthreshold [3]float64) CompositeResult {
	var c, a geom.Color
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		switch {
		case e.Flags&FlagMatte != 0 && e.Flags&FlagOccludes != 0:
			c, a = geom.Black, geom.Black
		case e.Flags&FlagMatte != 0:
			// Matte, non-occluding: attenuate by (1 - entry.opacity) with a
			// black source.
			c = geom.Color{R: c.R * oneMinus(e.Opacity.R), G: c.G * oneMinus(e.Opacity.G), B: c.B * oneMinus(e.Opacity.B)}
			a = geom.Color{R: a.R * oneMinus(e.Opacity.R), G: a.G * oneMinus(e.Opacity.G), B: a.B * oneMinus(e.Opacity.B)}
		default:
			// Normal over: C = C·(1−α) + Cs; α = α·(1−α) + αs,
			// both sides reading the pre-update accumulator.
			c = geom.Color{R: c.R*oneMinus(a.R) + e.Color.R, G: c.G*oneMinus(a.G) + e.Color.G, B: c.B*oneMinus(a.B) + e.Color.B}
			a = geom.Color{R: a.R*oneMinus(a.R) + e.Opacity.R, G: a.G*oneMinus(a.G) + e.Opacity.G, B: a.B*oneMinus(a.B) + e.Opacity.B}
		}
	}

	var qualifying []SampleEntry
	for _, e := range entries {
		if e.Opacity.R >= zthreshold[0] && e.Opacity.G >= zthreshold[1] && e.Opacity.B >= zthreshold[2] {
			qualifying = append(qualifying, e)
		}
	}
	res := CompositeResult{Color: c, Alpha: a}
	if len(qualifying) == 0 {
		return res
	}
	res.HasZ = true
	switch depthFilter {
	case DepthMin:
		res.Z = qualifying[0].Z
	case DepthMax:
		res.Z = qualifying[len(qualifying)-1].Z
	case DepthMidpoint:
		if len(qualifying) == 1 {
			res.Z = qualifying[0].Z
		} else {
			res.Z = (qualifying[0].Z + qualifying[1].Z) / 2
		}
	case DepthAverage:
		var sum float64
		for _, e := range qualifying {
			sum += e.Z
		}
		res.Z = sum / float64(len(qualifying))
	}
	return res
}

func oneMinus(a float64) float64 { return 1 - a }
