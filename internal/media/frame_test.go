/* SPDX-License-Identifier: GPL-3.0-or-later
 *
 * VortexCut
 * Copyright (C) 2025 LittleDevMars
 *
 * This file is part of VortexCut.
 *
 * VortexCut is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * VortexCut is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with VortexCut.  If not, see <https://www.gnu.org/licenses/>.
 */
package media

import (
	"bytes"
	"testing"
)

func TestPixelFormatBufferSize(t *testing.T) {
	if n := PixelFormatRGBA.BufferSize(960, 540); n != 960*540*4 {
		t.Fatalf("rgba size = %d", n)
	}
	if n := PixelFormatYUV420P.BufferSize(960, 540); n != 960*540+2*(480*270) {
		t.Fatalf("yuv size = %d", n)
	}
}

func TestBlackFrameRGBAIsZero(t *testing.T) {
	f := BlackFrame(4, 4, PixelFormatRGBA, 42)
	if len(f.Data) != 64 {
		t.Fatalf("len = %d", len(f.Data))
	}
	for _, b := range f.Data {
		if b != 0 {
			t.Fatal("rgba black must be all-zero")
		}
	}
	if f.TimestampMs != 42 {
		t.Fatalf("timestamp = %d", f.TimestampMs)
	}
}

func TestBlackFrameYUVPlanes(t *testing.T) {
	f := BlackFrame(4, 4, PixelFormatYUV420P, 0)
	if len(f.Data) != 16+2*4 {
		t.Fatalf("len = %d", len(f.Data))
	}
	for i := 0; i < 16; i++ {
		if f.Data[i] != 16 {
			t.Fatal("luma black must be 16")
		}
	}
	for i := 16; i < len(f.Data); i++ {
		if f.Data[i] != 128 {
			t.Fatal("chroma black must be neutral")
		}
	}
}

func TestFrameCloneIsDeep(t *testing.T) {
	f := &Frame{Width: 1, Height: 1, Format: PixelFormatRGBA, Data: []byte{1, 2, 3, 4}}
	c := f.Clone()
	c.Data[0] = 99
	if f.Data[0] != 1 {
		t.Fatal("clone aliases the source buffer")
	}
}

func TestPackRGBAStripsStride(t *testing.T) {
	// 2x2 image with an 12-byte stride over 8-byte rows
	src := []byte{
		1, 2, 3, 4, 5, 6, 7, 8, 0xaa, 0xaa, 0xaa, 0xaa,
		9, 10, 11, 12, 13, 14, 15, 16, 0xbb, 0xbb, 0xbb, 0xbb,
	}
	out, err := packRGBA(src, 12, 2, 2)
	if err != nil {
		t.Fatalf("packRGBA: %v", err)
	}
	want := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	if !bytes.Equal(out, want) {
		t.Fatalf("out = %v", out)
	}
}

func TestPackRGBARejectsBadStride(t *testing.T) {
	if _, err := packRGBA(make([]byte, 64), 4, 2, 2); err == nil {
		t.Fatal("stride below row size must fail")
	}
}

func TestPackRGBARejectsShortBuffer(t *testing.T) {
	if _, err := packRGBA(make([]byte, 10), 8, 2, 2); err == nil {
		t.Fatal("short source must fail")
	}
}
