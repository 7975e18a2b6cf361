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

func TestTimelineCreation(t *testing.T) {
	tl := New(1920, 1080, 30.0)
	if tl.Width != 1920 || tl.Height != 1080 || tl.FPS != 30.0 {
		t.Fatalf("geometry = %dx%d@%f", tl.Width, tl.Height, tl.FPS)
	}
	if len(tl.VideoTracks) != 0 || len(tl.AudioTracks) != 0 {
		t.Fatal("new timeline should be empty")
	}
}

func TestAddTracks(t *testing.T) {
	tl := New(1920, 1080, 30.0)

	vid := tl.AddVideoTrack()
	aid := tl.AddAudioTrack()

	if len(tl.VideoTracks) != 1 || len(tl.AudioTracks) != 1 {
		t.Fatal("track counts wrong")
	}
	if tl.VideoTracks[0].ID != vid || tl.AudioTracks[0].ID != aid {
		t.Fatal("track ids wrong")
	}
	if vid == aid {
		t.Fatal("track ids must be unique")
	}
}

func TestAddVideoClip(t *testing.T) {
	tl := New(1920, 1080, 30.0)
	trackID := tl.AddVideoTrack()

	clipID, ok := tl.AddVideoClip(trackID, "test.mp4", 0, 5000)
	if !ok {
		t.Fatal("add failed")
	}
	if len(tl.VideoTracks[0].Clips) != 1 || tl.VideoTracks[0].Clips[0].ID != clipID {
		t.Fatal("clip not on track")
	}

	if _, ok := tl.AddVideoClip(999, "x.mp4", 0, 1000); ok {
		t.Fatal("unknown track must fail")
	}
}

func TestRemoveVideoClip(t *testing.T) {
	tl := New(1920, 1080, 30.0)
	trackID := tl.AddVideoTrack()
	clipID, _ := tl.AddVideoClip(trackID, "test.mp4", 0, 5000)

	if !tl.RemoveVideoClip(trackID, clipID) {
		t.Fatal("remove failed")
	}
	if len(tl.VideoTracks[0].Clips) != 0 {
		t.Fatal("clip still present")
	}
	if tl.RemoveVideoClip(trackID, 999) {
		t.Fatal("unknown clip must fail")
	}
}

func TestTimelineDuration(t *testing.T) {
	tl := New(1920, 1080, 30.0)

	vt := tl.AddVideoTrack()
	at := tl.AddAudioTrack()

	tl.AddVideoClip(vt, "v1.mp4", 0, 5000)
	tl.AddVideoClip(vt, "v2.mp4", 5000, 3000)
	tl.AddAudioClip(at, "a1.mp3", 0, 10000)

	if d := tl.DurationMs(); d != 10000 {
		t.Fatalf("duration = %d", d)
	}
}

func TestVideoClipAtPicksTopmost(t *testing.T) {
	tl := New(1920, 1080, 30.0)

	bottom := tl.AddVideoTrack()
	top := tl.AddVideoTrack()

	tl.AddVideoClip(bottom, "v1.mp4", 0, 5000)
	topClip, _ := tl.AddVideoClip(top, "v2.mp4", 2000, 3000)

	c, ok := tl.VideoClipAt(3000)
	if !ok || c.ID != topClip {
		t.Fatalf("expected topmost clip, got id=%d ok=%v", c.ID, ok)
	}

	// Only the bottom track covers 1000.
	c, ok = tl.VideoClipAt(1000)
	if !ok || c.FilePath != "v1.mp4" {
		t.Fatalf("expected bottom clip, got %q ok=%v", c.FilePath, ok)
	}

	if _, ok := tl.VideoClipAt(6000); ok {
		t.Fatal("nothing covers 6000")
	}
}

func TestVideoClipAtSkipsDisabledTrack(t *testing.T) {
	tl := New(1920, 1080, 30.0)
	bottom := tl.AddVideoTrack()
	top := tl.AddVideoTrack()
	tl.AddVideoClip(bottom, "v1.mp4", 0, 5000)
	tl.AddVideoClip(top, "v2.mp4", 0, 5000)

	tl.VideoTracks[1].Enabled = false

	c, ok := tl.VideoClipAt(1000)
	if !ok || c.FilePath != "v1.mp4" {
		t.Fatalf("disabled track must be skipped, got %q", c.FilePath)
	}
}

func TestAudioClipsAt(t *testing.T) {
	tl := New(1920, 1080, 30.0)
	a1 := tl.AddAudioTrack()
	a2 := tl.AddAudioTrack()
	tl.AddAudioClip(a1, "a1.mp3", 0, 4000)
	tl.AddAudioClip(a2, "a2.mp3", 2000, 4000)

	if got := len(tl.AudioClipsAt(3000)); got != 2 {
		t.Fatalf("clips at 3000 = %d", got)
	}

	tl.AudioTracks[1].Muted = true
	if got := len(tl.AudioClipsAt(3000)); got != 1 {
		t.Fatalf("muted track still mixed, clips = %d", got)
	}
}

func TestSharedSnapshots(t *testing.T) {
	tl := New(960, 540, 25.0)
	vt := tl.AddVideoTrack()
	tl.AddVideoClip(vt, "v.mp4", 0, 1000)
	sh := NewShared(tl)

	if d := sh.DurationMs(); d != 1000 {
		t.Fatalf("duration = %d", d)
	}
	if _, ok := sh.VideoClipAt(500); !ok {
		t.Fatal("snapshot missed clip")
	}
	w, h, fps := sh.Geometry()
	if w != 960 || h != 540 || fps != 25.0 {
		t.Fatalf("geometry = %dx%d@%f", w, h, fps)
	}
}
