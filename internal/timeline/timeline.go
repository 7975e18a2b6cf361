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

import "sort"

// Timeline is the project: output geometry, frame rate, and the track stack.
// It is not internally locked; callers share it through Shared.
type Timeline struct {
	Width       uint32
	Height      uint32
	FPS         float64
	VideoTracks []*VideoTrack
	AudioTracks []*AudioTrack

	nextClipID  uint64
	nextTrackID uint64
}

func New(width, height uint32, fps float64) *Timeline {
	return &Timeline{
		Width:       width,
		Height:      height,
		FPS:         fps,
		nextClipID:  1,
		nextTrackID: 1,
	}
}

func (tl *Timeline) AddVideoTrack() uint64 {
	id := tl.nextTrackID
	tl.nextTrackID++
	tl.VideoTracks = append(tl.VideoTracks, NewVideoTrack(id, len(tl.VideoTracks)))
	return id
}

func (tl *Timeline) AddAudioTrack() uint64 {
	id := tl.nextTrackID
	tl.nextTrackID++
	tl.AudioTracks = append(tl.AudioTracks, NewAudioTrack(id, len(tl.AudioTracks)))
	return id
}

// AddVideoClip places a clip on the given track. Returns the clip id, or
// false when the track does not exist.
func (tl *Timeline) AddVideoClip(trackID uint64, filePath string, startTimeMs, durationMs int64) (uint64, bool) {
	for _, t := range tl.VideoTracks {
		if t.ID == trackID {
			id := tl.nextClipID
			tl.nextClipID++
			t.AddClip(NewVideoClip(id, filePath, startTimeMs, durationMs))
			return id, true
		}
	}
	return 0, false
}

func (tl *Timeline) AddAudioClip(trackID uint64, filePath string, startTimeMs, durationMs int64) (uint64, bool) {
	for _, t := range tl.AudioTracks {
		if t.ID == trackID {
			id := tl.nextClipID
			tl.nextClipID++
			t.AddClip(NewAudioClip(id, filePath, startTimeMs, durationMs))
			return id, true
		}
	}
	return 0, false
}

func (tl *Timeline) RemoveVideoClip(trackID, clipID uint64) bool {
	for _, t := range tl.VideoTracks {
		if t.ID == trackID {
			return t.RemoveClip(clipID)
		}
	}
	return false
}

func (tl *Timeline) RemoveAudioClip(trackID, clipID uint64) bool {
	for _, t := range tl.AudioTracks {
		if t.ID == trackID {
			return t.RemoveClip(clipID)
		}
	}
	return false
}

// DurationMs is the end of the last clip over all tracks.
func (tl *Timeline) DurationMs() int64 {
	var max int64
	for _, t := range tl.VideoTracks {
		for i := range t.Clips {
			if e := t.Clips[i].EndTimeMs(); e > max {
				max = e
			}
		}
	}
	for _, t := range tl.AudioTracks {
		for i := range t.Clips {
			if e := t.Clips[i].EndTimeMs(); e > max {
				max = e
			}
		}
	}
	return max
}

// VideoClipAt resolves the clip the renderer should draw at timeMs: the
// topmost enabled track with coverage wins. Returns a copy.
func (tl *Timeline) VideoClipAt(timeMs int64) (VideoClip, bool) {
	var (
		found bool
		best  VideoClip
		bestI = -1
	)
	for _, t := range tl.VideoTracks {
		if c := t.ClipAt(timeMs); c != nil && t.Index > bestI {
			best = *c
			bestI = t.Index
			found = true
		}
	}
	return best, found
}

// VideoClipsAt returns the covering clip of every enabled track, sorted
// bottom-up by track index.
func (tl *Timeline) VideoClipsAt(timeMs int64) []VideoClip {
	type hit struct {
		index int
		clip  VideoClip
	}
	var hits []hit
	for _, t := range tl.VideoTracks {
		if c := t.ClipAt(timeMs); c != nil {
			hits = append(hits, hit{t.Index, *c})
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].index < hits[j].index })
	out := make([]VideoClip, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.clip)
	}
	return out
}

// AudioClipsAt returns copies of every audible clip at timeMs.
func (tl *Timeline) AudioClipsAt(timeMs int64) []AudioClip {
	var out []AudioClip
	for _, t := range tl.AudioTracks {
		out = append(out, t.ClipsAt(timeMs)...)
	}
	return out
}

func (tl *Timeline) VideoTrackCount() int { return len(tl.VideoTracks) }
func (tl *Timeline) AudioTrackCount() int { return len(tl.AudioTracks) }
