// Copyright © 2024 Aqsis-core contributors.
// Use is governed by a BSD-style license found in the LICENSE file.

package texture

import (
	"bytes"
	"testing"

	"github.com/aqsisrender/core/math/geom"
)

func TestZFileRoundTrip(t *testing.T) {
	var wc, ws geom.M4
	wc.Identity()
	ws.Identity()
	ws.TranslateTM(1, 2, 3)

	z := &ZFile{
		XRes: 2, YRes: 2,
		WorldToCamera: wc, WorldToScreen: ws,
		Depths: []float32{1, 2, 3, 4},
	}

	var buf bytes.Buffer
	if err := WriteZFile(&buf, z); err != nil {
		t.Fatalf("WriteZFile: %v", err)
	}

	got, err := ReadZFile(&buf)
	if err != nil {
		t.Fatalf("ReadZFile: %v", err)
	}
	if got.XRes != z.XRes || got.YRes != z.YRes {
		t.Fatalf("dims = %dx%d, want %dx%d", got.XRes, got.YRes, z.XRes, z.YRes)
	}
	for i, d := range got.Depths {
		if d != z.Depths[i] {
			t.Fatalf("depth[%d] = %v, want %v", i, d, z.Depths[i])
		}
	}
	if got.WorldToScreen.Wx != 1 || got.WorldToScreen.Wy != 2 || got.WorldToScreen.Wz != 3 {
		t.Fatalf("WorldToScreen translation not preserved: %+v", got.WorldToScreen)
	}
}

func TestReadZFileRejectsBadMagic(t *testing.T) {
	r := bytes.NewReader([]byte("not a zfile at all........."))
	if _, err := ReadZFile(r); err == nil {
		t.Fatalf("ReadZFile should reject a non-ZFile header")
	}
}
