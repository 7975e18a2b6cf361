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

// ThumbnailSession keeps one decoder open at thumbnail resolution so a strip
// of thumbnails costs one file open instead of N. The scaler outputs the
// thumbnail size directly; there is no intermediate full-size decode.
type ThumbnailSession struct {
	dec *Decoder
}

// thumbnailForwardThresholdMs is generous because thumbnail strips are
// generated in time order; forward decode beats in-GOP seeks there.
const thumbnailForwardThresholdMs = 10000

func OpenThumbnailSession(path string, thumbWidth, thumbHeight uint32) (*ThumbnailSession, error) {
	dec, err := Open(path, int(thumbWidth), int(thumbHeight), PixelFormatRGBA, ScalerFastBilinear)
	if err != nil {
		return nil, err
	}
	dec.SetForwardThreshold(thumbnailForwardThresholdMs)
	return &ThumbnailSession{dec: dec}, nil
}

func (s *ThumbnailSession) DurationMs() int64 { return s.dec.DurationMs() }
func (s *ThumbnailSession) FPS() float64      { return s.dec.FPS() }

// Generate returns the thumbnail at timestampMs, or nil when the position
// could not be decoded; callers skip empty slots.
func (s *ThumbnailSession) Generate(timestampMs int64) *Frame {
	res := s.dec.DecodeFrame(timestampMs)
	switch res.Outcome {
	case OutcomeFrame, OutcomeEndOfStream:
		return res.Frame
	default:
		return nil
	}
}

func (s *ThumbnailSession) Close() error {
	return s.dec.Close()
}

// GenerateThumbnail is the one-shot variant: open, decode one frame, close.
func GenerateThumbnail(path string, timestampMs int64, thumbWidth, thumbHeight uint32) (*Frame, error) {
	s, err := OpenThumbnailSession(path, thumbWidth, thumbHeight)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	return s.Generate(timestampMs), nil
}
