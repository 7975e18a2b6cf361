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
package audio

import (
	"log"
	"math"

	"github.com/littledevmars/vortexcut/internal/timeline"
)

// The mix bus is fixed: 48 kHz stereo interleaved S16, matching the AAC
// stream the encoder writes.
const (
	MixSampleRate = 48000
	MixChannels   = 2
)

// sampleSource serves interleaved stereo samples from one open audio file.
// The astiav session implements it; tests script their own.
type sampleSource interface {
	// read returns up to frames stereo frames starting at fromMs, padded
	// with silence past the end of the file.
	read(fromMs int64, frames int) []int16
	close()
}

// Mixer sums the audible clips of a time window into one interleaved PCM
// batch. One decode session is kept per source path, like the renderer's
// decoder pool.
type Mixer struct {
	sessions map[string]sampleSource
	open     func(path string) (sampleSource, error)
}

func NewMixer() *Mixer {
	return &Mixer{
		sessions: make(map[string]sampleSource),
		open:     openSession,
	}
}

// WindowFrames converts a window length to a stereo frame count.
func WindowFrames(windowMs float64) int {
	return int(math.Round(windowMs * MixSampleRate / 1000.0))
}

// MixRange mixes every clip audible at startMs over the window and returns
// interleaved stereo S16. Uncovered ranges are silence.
func (m *Mixer) MixRange(clips []timeline.AudioClip, startMs int64, windowMs float64) []int16 {
	frames := WindowFrames(windowMs)
	out := make([]int16, frames*MixChannels)

	for i := range clips {
		clip := &clips[i]
		sourceMs, ok := clip.TimelineToSourceTime(startMs)
		if !ok {
			continue
		}
		src := m.sessionFor(clip.FilePath)
		if src == nil {
			continue
		}
		samples := src.read(sourceMs, frames)
		mixInto(out, samples, clip.Volume)
	}
	return out
}

func (m *Mixer) sessionFor(path string) sampleSource {
	if s, ok := m.sessions[path]; ok {
		return s
	}
	s, err := m.open(path)
	if err != nil {
		log.Printf("[mixer] open %s: %v", path, err)
		m.sessions[path] = nil // remember the failure, stay silent
		return nil
	}
	m.sessions[path] = s
	return s
}

// Close releases every decode session.
func (m *Mixer) Close() {
	for path, s := range m.sessions {
		if s != nil {
			s.close()
		}
		delete(m.sessions, path)
	}
}

// mixInto adds src scaled by vol into dst with int16 saturation.
func mixInto(dst, src []int16, vol float32) {
	n := len(dst)
	if len(src) < n {
		n = len(src)
	}
	for i := 0; i < n; i++ {
		acc := int32(dst[i]) + int32(float32(src[i])*vol)
		if acc > math.MaxInt16 {
			acc = math.MaxInt16
		} else if acc < math.MinInt16 {
			acc = math.MinInt16
		}
		dst[i] = int16(acc)
	}
}
