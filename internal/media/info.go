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
	"errors"
	"fmt"

	astiav "github.com/asticode/go-astiav"
	"github.com/asticode/go-astikit"
)

// VideoInfo is the probe result the host shows before a file lands on the
// timeline.
type VideoInfo struct {
	DurationMs int64
	Width      uint32
	Height     uint32
	FPS        float64
}

// ProbeVideoInfo opens the container just long enough to read the video
// stream's geometry, duration and frame rate. No codec is opened.
func ProbeVideoInfo(path string) (VideoInfo, error) {
	var info VideoInfo

	c := astikit.NewCloser()
	defer c.Close()

	fc := astiav.AllocFormatContext()
	if fc == nil {
		return info, errors.New("AllocFormatContext")
	}
	c.Add(fc.Free)

	if err := fc.OpenInput(path, nil, nil); err != nil {
		return info, fmt.Errorf("OpenInput(%s): %w", path, err)
	}
	c.Add(fc.CloseInput)

	if err := fc.FindStreamInfo(nil); err != nil {
		return info, fmt.Errorf("FindStreamInfo: %w", err)
	}

	var vst *astiav.Stream
	for _, s := range fc.Streams() {
		if s.CodecParameters().MediaType() == astiav.MediaTypeVideo {
			vst = s
			break
		}
	}
	if vst == nil {
		return info, errors.New("no video stream")
	}

	par := vst.CodecParameters()
	info.Width = uint32(par.Width())
	info.Height = uint32(par.Height())

	tb := vst.TimeBase()
	if d := vst.Duration(); d > 0 && tb.Den() > 0 {
		info.DurationMs = d * int64(tb.Num()) * 1000 / int64(tb.Den())
	} else if d := fc.Duration(); d > 0 {
		info.DurationMs = d / 1000
	}

	if r := vst.AvgFrameRate(); r.Num() > 0 && r.Den() > 0 {
		info.FPS = float64(r.Num()) / float64(r.Den())
	}

	return info, nil
}
