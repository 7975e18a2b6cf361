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

// VideoClip is a time-bounded reference to a source file placed on a track.
// Trim offsets are relative to the source file, start/duration to the
// timeline.
type VideoClip struct {
	ID          uint64
	FilePath    string
	StartTimeMs int64
	DurationMs  int64
	TrimStartMs int64
	TrimEndMs   int64
}

func NewVideoClip(id uint64, filePath string, startTimeMs, durationMs int64) VideoClip {
	return VideoClip{
		ID:          id,
		FilePath:    filePath,
		StartTimeMs: startTimeMs,
		DurationMs:  durationMs,
		TrimStartMs: 0,
		TrimEndMs:   durationMs,
	}
}

func (c *VideoClip) EndTimeMs() int64 {
	return c.StartTimeMs + c.DurationMs
}

// ContainsTime reports whether timeMs falls inside the clip. The end is
// exclusive.
func (c *VideoClip) ContainsTime(timeMs int64) bool {
	return timeMs >= c.StartTimeMs && timeMs < c.EndTimeMs()
}

// TimelineToSourceTime maps a timeline time to the corresponding time inside
// the source file. Defined exactly on ContainsTime.
func (c *VideoClip) TimelineToSourceTime(timelineMs int64) (int64, bool) {
	if !c.ContainsTime(timelineMs) {
		return 0, false
	}
	return c.TrimStartMs + (timelineMs - c.StartTimeMs), true
}

// AudioClip is a VideoClip with a gain applied at mix time.
type AudioClip struct {
	ID          uint64
	FilePath    string
	StartTimeMs int64
	DurationMs  int64
	TrimStartMs int64
	TrimEndMs   int64
	Volume      float32 // 0.0 .. 1.0
}

func NewAudioClip(id uint64, filePath string, startTimeMs, durationMs int64) AudioClip {
	return AudioClip{
		ID:          id,
		FilePath:    filePath,
		StartTimeMs: startTimeMs,
		DurationMs:  durationMs,
		TrimStartMs: 0,
		TrimEndMs:   durationMs,
		Volume:      1.0,
	}
}

func (c *AudioClip) EndTimeMs() int64 {
	return c.StartTimeMs + c.DurationMs
}

func (c *AudioClip) ContainsTime(timeMs int64) bool {
	return timeMs >= c.StartTimeMs && timeMs < c.EndTimeMs()
}

func (c *AudioClip) TimelineToSourceTime(timelineMs int64) (int64, bool) {
	if !c.ContainsTime(timelineMs) {
		return 0, false
	}
	return c.TrimStartMs + (timelineMs - c.StartTimeMs), true
}
