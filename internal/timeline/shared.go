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

import "sync"

// Shared wraps one Timeline behind the engine's single mutex. Preview and
// export both read through it; callers snapshot what they need and release
// before touching a decoder or encoder.
type Shared struct {
	mu sync.Mutex
	tl *Timeline
}

func NewShared(tl *Timeline) *Shared {
	return &Shared{tl: tl}
}

// WithLock runs fn with exclusive access to the timeline. fn must not call
// into decoders or encoders.
func (s *Shared) WithLock(fn func(tl *Timeline)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.tl)
}

func (s *Shared) DurationMs() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tl.DurationMs()
}

func (s *Shared) Geometry() (width, height uint32, fps float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tl.Width, s.tl.Height, s.tl.FPS
}

// VideoClipAt snapshots the active video clip at timeMs (clips are small and
// cloned out).
func (s *Shared) VideoClipAt(timeMs int64) (VideoClip, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tl.VideoClipAt(timeMs)
}

// AudioClipsAt snapshots the audible clips at timeMs.
func (s *Shared) AudioClipsAt(timeMs int64) []AudioClip {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tl.AudioClipsAt(timeMs)
}
