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

// VideoTrack is an ordered layer of non-overlapping clips. Index 0 is the
// bottom of the stack; clips stay sorted by start time.
type VideoTrack struct {
	ID      uint64
	Index   int
	Clips   []VideoClip
	Enabled bool
}

func NewVideoTrack(id uint64, index int) *VideoTrack {
	return &VideoTrack{ID: id, Index: index, Enabled: true}
}

func (t *VideoTrack) AddClip(c VideoClip) {
	t.Clips = append(t.Clips, c)
	sort.SliceStable(t.Clips, func(i, j int) bool {
		return t.Clips[i].StartTimeMs < t.Clips[j].StartTimeMs
	})
}

func (t *VideoTrack) RemoveClip(clipID uint64) bool {
	for i := range t.Clips {
		if t.Clips[i].ID == clipID {
			t.Clips = append(t.Clips[:i], t.Clips[i+1:]...)
			return true
		}
	}
	return false
}

// ClipAt returns the clip covering timeMs, or nil. Disabled tracks never
// match.
func (t *VideoTrack) ClipAt(timeMs int64) *VideoClip {
	if !t.Enabled {
		return nil
	}
	for i := range t.Clips {
		if t.Clips[i].ContainsTime(timeMs) {
			return &t.Clips[i]
		}
	}
	return nil
}

func (t *VideoTrack) ClipByID(clipID uint64) *VideoClip {
	for i := range t.Clips {
		if t.Clips[i].ID == clipID {
			return &t.Clips[i]
		}
	}
	return nil
}

// AudioTrack holds audio clips; unlike video, several clips of one track may
// be audible at once.
type AudioTrack struct {
	ID      uint64
	Index   int
	Clips   []AudioClip
	Enabled bool
	Muted   bool
}

func NewAudioTrack(id uint64, index int) *AudioTrack {
	return &AudioTrack{ID: id, Index: index, Enabled: true}
}

func (t *AudioTrack) AddClip(c AudioClip) {
	t.Clips = append(t.Clips, c)
	sort.SliceStable(t.Clips, func(i, j int) bool {
		return t.Clips[i].StartTimeMs < t.Clips[j].StartTimeMs
	})
}

func (t *AudioTrack) RemoveClip(clipID uint64) bool {
	for i := range t.Clips {
		if t.Clips[i].ID == clipID {
			t.Clips = append(t.Clips[:i], t.Clips[i+1:]...)
			return true
		}
	}
	return false
}

// ClipsAt returns every clip audible at timeMs. Muted or disabled tracks
// return nothing.
func (t *AudioTrack) ClipsAt(timeMs int64) []AudioClip {
	if !t.Enabled || t.Muted {
		return nil
	}
	var out []AudioClip
	for i := range t.Clips {
		if t.Clips[i].ContainsTime(timeMs) {
			out = append(out, t.Clips[i])
		}
	}
	return out
}
