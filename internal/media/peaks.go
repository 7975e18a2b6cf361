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
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"runtime"

	astiav "github.com/asticode/go-astiav"
	"github.com/asticode/go-astikit"
)

// AudioPeaks is the waveform summary the host draws on audio clips: one
// peak (max absolute sample, 0..1) per samplesPerPeak source samples, mixed
// down over all channels.
type AudioPeaks struct {
	Peaks      []float32
	Channels   uint32
	SampleRate uint32
	DurationMs int64
}

// ExtractAudioPeaks decodes the file's first audio stream once and reduces
// it to peak blocks.
func ExtractAudioPeaks(path string, samplesPerPeak uint32) (*AudioPeaks, error) {
	if samplesPerPeak == 0 {
		return nil, errors.New("samplesPerPeak must be positive")
	}

	c := astikit.NewCloser()
	defer c.Close()

	fc := astiav.AllocFormatContext()
	if fc == nil {
		return nil, errors.New("AllocFormatContext")
	}
	c.Add(fc.Free)

	if err := fc.OpenInput(path, nil, nil); err != nil {
		return nil, fmt.Errorf("OpenInput(%s): %w", path, err)
	}
	c.Add(fc.CloseInput)

	if err := fc.FindStreamInfo(nil); err != nil {
		return nil, fmt.Errorf("FindStreamInfo: %w", err)
	}

	var (
		ast       *astiav.Stream
		streamIdx = -1
	)
	for i, s := range fc.Streams() {
		if s.CodecParameters().MediaType() == astiav.MediaTypeAudio {
			ast = s
			streamIdx = i
			break
		}
	}
	if ast == nil {
		return nil, errors.New("no audio stream")
	}

	tb := ast.TimeBase()
	var durationMs int64
	if d := ast.Duration(); d > 0 && tb.Den() > 0 {
		durationMs = d * int64(tb.Num()) * 1000 / int64(tb.Den())
	} else if d := fc.Duration(); d > 0 {
		durationMs = d / 1000
	}

	apar := ast.CodecParameters()
	adec := astiav.FindDecoder(apar.CodecID())
	if adec == nil {
		return nil, errors.New("FindDecoder(audio) nil")
	}
	cc := astiav.AllocCodecContext(adec)
	if cc == nil {
		return nil, errors.New("AllocCodecContext(audio) nil")
	}
	c.Add(cc.Free)

	if err := apar.ToCodecContext(cc); err != nil {
		return nil, fmt.Errorf("ToCodecContext(audio): %w", err)
	}
	cc.SetThreadCount(runtime.NumCPU())
	if err := cc.Open(adec, nil); err != nil {
		return nil, fmt.Errorf("open audio: %w", err)
	}

	swr := astiav.AllocSoftwareResampleContext()
	if swr == nil {
		return nil, errors.New("AllocSoftwareResampleContext")
	}
	c.Add(swr.Free)

	pkt := astiav.AllocPacket()
	c.Add(pkt.Free)
	srcFrame := astiav.AllocFrame()
	c.Add(srcFrame.Free)
	dstFrame := astiav.AllocFrame()
	c.Add(dstFrame.Free)

	channels := uint32(cc.ChannelLayout().Channels())
	if channels == 0 {
		channels = 1
	}

	var (
		peaks      []float32
		blockMax   float32
		blockCount uint32
	)

	for {
		pkt.Unref()
		if err := fc.ReadFrame(pkt); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, astiav.ErrEof) {
				break
			}
			continue
		}
		if pkt.StreamIndex() != streamIdx {
			continue
		}
		if err := cc.SendPacket(pkt); err != nil {
			continue
		}

		for {
			if err := cc.ReceiveFrame(srcFrame); err != nil {
				break
			}

			// resample to packed f32, same rate and layout
			dstFrame.Unref()
			dstFrame.SetSampleFormat(astiav.SampleFormatFlt)
			dstFrame.SetChannelLayout(cc.ChannelLayout())
			dstFrame.SetSampleRate(cc.SampleRate())
			if err := swr.ConvertFrame(srcFrame, dstFrame); err != nil {
				srcFrame.Unref()
				continue
			}

			raw, err := dstFrame.Data().Bytes(0)
			if err != nil {
				srcFrame.Unref()
				continue
			}

			frames := dstFrame.NbSamples()
			need := frames * int(channels) * 4
			if need > len(raw) {
				need = len(raw) / 4 * 4
			}

			for off := 0; off+int(channels)*4 <= need; off += int(channels) * 4 {
				// mono mixdown: max |sample| over the channels
				var sampleAbs float32
				for ch := 0; ch < int(channels); ch++ {
					bits := binary.LittleEndian.Uint32(raw[off+ch*4:])
					v := math.Float32frombits(bits)
					if v < 0 {
						v = -v
					}
					if v > sampleAbs {
						sampleAbs = v
					}
				}

				if sampleAbs > blockMax {
					blockMax = sampleAbs
				}
				blockCount++
				if blockCount >= samplesPerPeak {
					peaks = append(peaks, minf32(blockMax, 1.0))
					blockMax = 0
					blockCount = 0
				}
			}
			srcFrame.Unref()
		}
	}

	if blockCount > 0 {
		peaks = append(peaks, minf32(blockMax, 1.0))
	}

	return &AudioPeaks{
		Peaks:      peaks,
		Channels:   channels,
		SampleRate: uint32(cc.SampleRate()),
		DurationMs: durationMs,
	}, nil
}

func minf32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}
