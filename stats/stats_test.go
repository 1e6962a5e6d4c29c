// Copyright © 2024 Aqsis-core contributors.
// Use is governed by a BSD-style license found in the LICENSE file.

package stats

import "testing"

func TestCountersSnapshotAndZero(t *testing.T) {
	var c Counters
	c.GridsShaded.Add(3)
	c.SamplesHit.Add(10)
	snap := c.Snapshot()
	if snap.GridsShaded != 3 || snap.SamplesHit != 10 {
		t.Fatalf("got %+v", snap)
	}
	c.Zero()
	if c.GridsShaded.Load() != 0 {
		t.Fatal("Zero did not reset GridsShaded")
	}
}

func TestHandlerDedup(t *testing.T) {
	h := NewHandler(Print)
	count := 0
	h.Sink = func(Diagnostic) { count++ }
	d := Diagnostic{Kind: MaxEyeSplits, Severity: Warning, Message: "too many splits", OncePer: true}
	h.Report(d)
	h.Report(d)
	if count != 1 {
		t.Fatalf("expected dedup to suppress repeat, got %d reports", count)
	}
}

func TestHandlerAbortOnFatal(t *testing.T) {
	h := NewHandler(Abort)
	abort := h.Report(Diagnostic{Kind: InternalBug, Severity: Fatal, Message: "boom"})
	if !abort {
		t.Fatal("fatal diagnostic in Abort mode should report abort=true")
	}
}

func TestHandlerIgnoreSuppressesSink(t *testing.T) {
	h := NewHandler(Ignore)
	called := false
	h.Sink = func(Diagnostic) { called = true }
	h.Report(Diagnostic{Kind: BadToken, Severity: Error, Message: "x"})
	if called {
		t.Fatal("Ignore mode should never invoke Sink")
	}
}
