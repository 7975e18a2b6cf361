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
package subtitle

import (
	"bytes"
	"testing"
)

func solidFrame(w, h int, r, g, b, a byte) []byte {
	data := make([]byte, w*h*4)
	for i := 0; i < w*h; i++ {
		data[i*4] = r
		data[i*4+1] = g
		data[i*4+2] = b
		data[i*4+3] = a
	}
	return data
}

func solidOverlay(w, h uint32, r, g, b, a byte) *Overlay {
	o := &Overlay{StartMs: 0, EndMs: 1000, Width: w, Height: h}
	o.RGBA = solidFrame(int(w), int(h), r, g, b, a)
	return o
}

func TestActiveAtWindow(t *testing.T) {
	l := NewOverlayList()
	l.Add(Overlay{StartMs: 1000, EndMs: 2000})
	l.Add(Overlay{StartMs: 3000, EndMs: 4000})

	if l.ActiveAt(999) != nil {
		t.Fatal("before the window")
	}
	if l.ActiveAt(1000) == nil {
		t.Fatal("start is inclusive")
	}
	if l.ActiveAt(2000) != nil {
		t.Fatal("end is exclusive")
	}
	if o := l.ActiveAt(3500); o == nil || o.StartMs != 3000 {
		t.Fatal("second overlay not found")
	}

	var nilList *OverlayList
	if nilList.ActiveAt(0) != nil {
		t.Fatal("nil list must be inert")
	}
}

func TestBlendTransparentIsNoop(t *testing.T) {
	frame := solidFrame(2, 2, 10, 20, 30, 255)
	orig := make([]byte, len(frame))
	copy(orig, frame)

	BlendRGBA(frame, 2, 2, solidOverlay(2, 2, 200, 200, 200, 0))
	if !bytes.Equal(frame, orig) {
		t.Fatal("alpha 0 must not touch the frame")
	}
}

func TestBlendOpaqueCopies(t *testing.T) {
	frame := solidFrame(2, 2, 10, 20, 30, 255)
	BlendRGBA(frame, 2, 2, solidOverlay(2, 2, 200, 100, 50, 255))

	if frame[0] != 200 || frame[1] != 100 || frame[2] != 50 || frame[3] != 255 {
		t.Fatalf("pixel = %v", frame[:4])
	}
}

func TestBlendHalfAlphaAverages(t *testing.T) {
	frame := solidFrame(1, 1, 100, 100, 100, 255)
	BlendRGBA(frame, 1, 1, solidOverlay(1, 1, 200, 200, 200, 128))

	// (200*128 + 100*127)/255 ≈ 150 ± 1
	for c := 0; c < 3; c++ {
		if frame[c] < 149 || frame[c] > 151 {
			t.Fatalf("channel %d = %d", c, frame[c])
		}
	}
}

func TestBlendClipsOutsideFrame(t *testing.T) {
	frame := solidFrame(4, 4, 0, 0, 0, 255)
	o := solidOverlay(4, 4, 255, 255, 255, 255)
	o.X = -2
	o.Y = -2

	BlendRGBA(frame, 4, 4, o)

	// only the overlay's lower-right 2x2 lands on the frame's upper-left
	if frame[0] != 255 {
		t.Fatal("overlapping pixel not painted")
	}
	// frame pixel (3,3) is beyond the shifted overlay
	idx := (3*4 + 3) * 4
	if frame[idx] != 0 {
		t.Fatal("non-overlapping pixel painted")
	}
}

func TestBlendOffsetPlacement(t *testing.T) {
	frame := solidFrame(4, 4, 0, 0, 0, 255)
	o := solidOverlay(1, 1, 255, 0, 0, 255)
	o.X = 2
	o.Y = 1

	BlendRGBA(frame, 4, 4, o)

	idx := (1*4 + 2) * 4
	if frame[idx] != 255 {
		t.Fatal("overlay not placed at (2,1)")
	}
	if frame[0] != 0 {
		t.Fatal("origin pixel must stay black")
	}
}
