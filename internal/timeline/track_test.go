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
package timeline

import "testing"

func TestVideoTrackAddClipSorts(t *testing.T) {
	tr := NewVideoTrack(1, 0)

	tr.AddClip(NewVideoClip(2, "b.mp4", 5000, 3000))
	tr.AddClip(NewVideoClip(1, "a.mp4", 0, 5000))

	if len(tr.Clips) != 2 {
		t.Fatalf("clips = %d", len(tr.Clips))
	}
	if tr.Clips[0].ID != 1 || tr.Clips[1].ID != 2 {
		t.Fatal("clips not sorted by start time")
	}
}

func TestVideoTrackRemoveClip(t *testing.T) {
	tr := NewVideoTrack(1, 0)
	tr.AddClip(NewVideoClip(1, "a.mp4", 0, 5000))

	if !tr.RemoveClip(1) {
		t.Fatal("remove failed")
	}
	if len(tr.Clips) != 0 {
		t.Fatal("clip still there")
	}
	if tr.RemoveClip(999) {
		t.Fatal("unknown id must fail")
	}
}

func TestVideoTrackClipAt(t *testing.T) {
	tr := NewVideoTrack(1, 0)
	tr.AddClip(NewVideoClip(1, "a.mp4", 0, 5000))
	tr.AddClip(NewVideoClip(2, "b.mp4", 5000, 3000))

	if c := tr.ClipAt(2000); c == nil || c.ID != 1 {
		t.Fatal("t=2000 should hit clip 1")
	}
	if c := tr.ClipAt(6000); c == nil || c.ID != 2 {
		t.Fatal("t=6000 should hit clip 2")
	}
	if tr.ClipAt(9000) != nil {
		t.Fatal("t=9000 should miss")
	}
}

func TestVideoTrackDisabled(t *testing.T) {
	tr := NewVideoTrack(1, 0)
	tr.AddClip(NewVideoClip(1, "a.mp4", 0, 5000))
	tr.Enabled = false

	if tr.ClipAt(2000) != nil {
		t.Fatal("disabled track must not match")
	}
}

func TestAudioTrackClipsAt(t *testing.T) {
	tr := NewAudioTrack(1, 0)
	tr.AddClip(NewAudioClip(1, "a.mp3", 0, 5000))
	tr.AddClip(NewAudioClip(2, "b.mp3", 4000, 3000))

	if got := len(tr.ClipsAt(4500)); got != 2 {
		t.Fatalf("overlapping audio clips = %d", got)
	}

	tr.Muted = true
	if got := len(tr.ClipsAt(4500)); got != 0 {
		t.Fatal("muted track must return nothing")
	}
}
