// Copyright © 2024 Aqsis-core contributors.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package stats collects renderer-wide counters and carries the error/
// diagnostic reporting channel (kind, severity, message, dedup). The
// counters are a plain struct, zeroed per frame, with a snapshot taken
// for reporting rather than read live while workers mutate it.
package stats

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// Counters holds the atomic, worker-safe counters incremented during a
// frame's render: primitives split/diced, grids shaded, micropolygons
// sampled, texture cache hits/misses.
type Counters struct {
	PrimitivesQueued    atomic.Int64
	PrimitivesCulled    atomic.Int64
	PrimitivesSplit     atomic.Int64
	PrimitivesDiced     atomic.Int64
	GridsShaded         atomic.Int64
	MicropolygonsMade   atomic.Int64
	SamplesTested       atomic.Int64
	SamplesHit          atomic.Int64
	EyeSplits           atomic.Int64
	TextureCacheHits    atomic.Int64
	TextureCacheMisses  atomic.Int64
	BucketsRendered     atomic.Int64
	Elapsed             time.Duration // wall-clock set by the caller at frame end.
}

// Snapshot is a frozen, non-atomic copy of Counters taken at frame
// end; reporting reads this rather than the live counters workers are
// still incrementing.
type Snapshot struct {
	PrimitivesQueued                                   int64
	PrimitivesCulled, PrimitivesSplit, PrimitivesDiced int64
	GridsShaded, MicropolygonsMade                     int64
	SamplesTested, SamplesHit                          int64
	EyeSplits                                          int64
	TextureCacheHits, TextureCacheMisses               int64
	BucketsRendered                                    int64
	Elapsed                                            time.Duration
}

// Snapshot freezes the current counter values.
func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		PrimitivesQueued:   c.PrimitivesQueued.Load(),
		PrimitivesCulled:   c.PrimitivesCulled.Load(),
		PrimitivesSplit:    c.PrimitivesSplit.Load(),
		PrimitivesDiced:    c.PrimitivesDiced.Load(),
		GridsShaded:        c.GridsShaded.Load(),
		MicropolygonsMade:  c.MicropolygonsMade.Load(),
		SamplesTested:      c.SamplesTested.Load(),
		SamplesHit:         c.SamplesHit.Load(),
		EyeSplits:          c.EyeSplits.Load(),
		TextureCacheHits:   c.TextureCacheHits.Load(),
		TextureCacheMisses: c.TextureCacheMisses.Load(),
		BucketsRendered:    c.BucketsRendered.Load(),
		Elapsed:            c.Elapsed,
	}
}

// Zero resets every counter, called by the runtime after each frame's
// statistics have been reported — mirrors Profile.Zero.
func (c *Counters) Zero() {
	c.PrimitivesQueued.Store(0)
	c.PrimitivesCulled.Store(0)
	c.PrimitivesSplit.Store(0)
	c.PrimitivesDiced.Store(0)
	c.GridsShaded.Store(0)
	c.MicropolygonsMade.Store(0)
	c.SamplesTested.Store(0)
	c.SamplesHit.Store(0)
	c.EyeSplits.Store(0)
	c.TextureCacheHits.Store(0)
	c.TextureCacheMisses.Store(0)
	c.BucketsRendered.Store(0)
	c.Elapsed = 0
}

// Dump logs the snapshot via slog at Info level, mirroring Profile.Dump's
// development-debugging intent but using structured fields instead of a
// raw Printf line.
func (s Snapshot) Dump(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("frame stats",
		slog.Int64("split", s.PrimitivesSplit),
		slog.Int64("diced", s.PrimitivesDiced),
		slog.Int64("grids", s.GridsShaded),
		slog.Int64("micropolygons", s.MicropolygonsMade),
		slog.Int64("samples", s.SamplesTested),
		slog.Int64("eyesplits", s.EyeSplits),
		slog.Int64("tex_hits", s.TextureCacheHits),
		slog.Int64("tex_misses", s.TextureCacheMisses),
		slog.Duration("elapsed", s.Elapsed),
	)
}

// String renders a one-line human summary, used by tests and by the
// `print` error handler's "once per frame" resource report.
func (s Snapshot) String() string {
	return fmt.Sprintf("split=%d diced=%d grids=%d mp=%d samples=%d/%d eyesplits=%d tex=%d/%d buckets=%d",
		s.PrimitivesSplit, s.PrimitivesDiced, s.GridsShaded, s.MicropolygonsMade,
		s.SamplesHit, s.SamplesTested, s.EyeSplits,
		s.TextureCacheHits, s.TextureCacheMisses, s.BucketsRendered)
}
