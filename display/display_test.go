// Copyright © 2024 Aqsis-core contributors.
// Use is governed by a BSD-style license found in the LICENSE file.

package display

import (
	"testing"

	"github.com/aqsisrender/core/math/geom"
	"github.com/aqsisrender/core/state"
)

func testInfo() FrameInfo {
	return FrameInfo{
		Name: "test", XRes: 4, YRes: 4,
		X0: 0, Y0: 0, X1: 4, Y1: 4,
		Mode:          state.ModeRGB | state.ModeA,
		ColorQuantize: state.DefaultColorQuantize,
	}
}

func TestMemoryDriverWritesBuckets(t *testing.T) {
	d := NewMemoryDriver()
	if err := d.Open(testInfo()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	want := geom.Color{R: 1, G: 2, B: 3}
	b := Bucket{X0: 0, Y0: 0, X1: 2, Y1: 2, Pixels: make([]Sample, 4)}
	for i := range b.Pixels {
		b.Pixels[i] = Sample{Color: want}
	}
	if err := d.WriteBucket(b); err != nil {
		t.Fatalf("WriteBucket: %v", err)
	}
	if got := d.At(1, 1).Color; got != want {
		t.Fatalf("At(1,1) = %+v, want %+v", got, want)
	}
	if got := d.At(3, 3).Color; got != (geom.Color{}) {
		t.Fatalf("At(3,3) = %+v, want zero value (bucket not yet written)", got)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestManagerSignalsCompleteOnce(t *testing.T) {
	d := NewMemoryDriver()
	m := NewManager(d)
	if err := m.Open(testInfo(), 2); err != nil {
		t.Fatalf("Open: %v", err)
	}
	var fired int
	m.OnComplete(func() { fired++ })

	b1 := Bucket{X0: 0, Y0: 0, X1: 2, Y1: 4, Pixels: make([]Sample, 8)}
	b2 := Bucket{X0: 2, Y0: 0, X1: 4, Y1: 4, Pixels: make([]Sample, 8)}
	if err := m.WriteBucket(b1); err != nil {
		t.Fatalf("WriteBucket b1: %v", err)
	}
	if fired != 0 {
		t.Fatalf("OnComplete fired after %d/2 buckets", 1)
	}
	if err := m.WriteBucket(b2); err != nil {
		t.Fatalf("WriteBucket b2: %v", err)
	}
	if fired != 1 {
		t.Fatalf("OnComplete fired %d times, want 1", fired)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestRegistryUnknownKindErrors(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Open("file", "out.tif"); err == nil {
		t.Fatal("Open of unregistered kind should error")
	}
	r.Register("file", func(name string) (Driver, error) { return NewTIFFDriver(name) })
	if _, err := r.Open("file", "out.tif"); err != nil {
		t.Fatalf("Open after Register: %v", err)
	}
}
