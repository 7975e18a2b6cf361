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
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log"

	astiav "github.com/asticode/go-astiav"
	"github.com/asticode/go-astikit"
)

// session decodes one file's first audio stream and resamples it to the mix
// bus format. It keeps a sliding sample buffer so the per-frame windows of
// an export read sequentially without re-seeking.
type session struct {
	fc        *astiav.FormatContext
	cc        *astiav.CodecContext
	swr       *astiav.SoftwareResampleContext
	streamIdx int
	tb        astiav.Rational

	pkt      *astiav.Packet
	srcFrame *astiav.Frame
	dstFrame *astiav.Frame

	buf        []int16 // interleaved stereo pending samples
	bufStart   int64   // absolute stereo frame index of buf[0] at 48 kHz
	positioned bool
	eof        bool

	closer *astikit.Closer
}

// resync tolerance before forcing a seek, in ms
const resyncSlackMs = 60

func openSession(path string) (sampleSource, error) {
	s := &session{streamIdx: -1, closer: astikit.NewCloser()}

	ok := false
	defer func() {
		if !ok {
			_ = s.closer.Close()
		}
	}()

	s.fc = astiav.AllocFormatContext()
	if s.fc == nil {
		return nil, errors.New("AllocFormatContext")
	}
	s.closer.Add(s.fc.Free)

	if err := s.fc.OpenInput(path, nil, nil); err != nil {
		return nil, fmt.Errorf("OpenInput(%s): %w", path, err)
	}
	s.closer.Add(s.fc.CloseInput)

	if err := s.fc.FindStreamInfo(nil); err != nil {
		return nil, fmt.Errorf("FindStreamInfo: %w", err)
	}

	var ast *astiav.Stream
	for i, st := range s.fc.Streams() {
		if st.CodecParameters().MediaType() == astiav.MediaTypeAudio {
			s.streamIdx = i
			ast = st
			break
		}
	}
	if ast == nil {
		return nil, errors.New("no audio stream")
	}
	s.tb = ast.TimeBase()

	apar := ast.CodecParameters()
	adec := astiav.FindDecoder(apar.CodecID())
	if adec == nil {
		return nil, errors.New("FindDecoder(audio) nil")
	}
	s.cc = astiav.AllocCodecContext(adec)
	if s.cc == nil {
		return nil, errors.New("AllocCodecContext(audio) nil")
	}
	s.closer.Add(s.cc.Free)

	if err := apar.ToCodecContext(s.cc); err != nil {
		return nil, fmt.Errorf("ToCodecContext(audio): %w", err)
	}
	if err := s.cc.Open(adec, nil); err != nil {
		return nil, fmt.Errorf("open audio: %w", err)
	}

	s.swr = astiav.AllocSoftwareResampleContext()
	if s.swr == nil {
		return nil, errors.New("AllocSoftwareResampleContext")
	}
	s.closer.Add(s.swr.Free)

	s.pkt = astiav.AllocPacket()
	s.closer.Add(s.pkt.Free)
	s.srcFrame = astiav.AllocFrame()
	s.closer.Add(s.srcFrame.Free)
	s.dstFrame = astiav.AllocFrame()
	s.closer.Add(s.dstFrame.Free)

	log.Printf("[mixer] opened %s: stream=%d rate=%d", path, s.streamIdx, s.cc.SampleRate())

	ok = true
	return s, nil
}

func (s *session) read(fromMs int64, frames int) []int16 {
	fromSample := fromMs * MixSampleRate / 1000

	if !s.positioned ||
		fromSample < s.bufStart ||
		fromSample > s.bufEnd()+resyncSlackMs*MixSampleRate/1000 {
		s.reposition(fromMs, fromSample)
	}

	for s.bufEnd() < fromSample+int64(frames) && !s.eof {
		s.decodeMore()
	}

	out := make([]int16, frames*MixChannels)
	skip := fromSample - s.bufStart
	if skip < 0 {
		skip = 0
	}
	avail := int64(len(s.buf)/MixChannels) - skip
	if avail > 0 {
		n := avail
		if n > int64(frames) {
			n = int64(frames)
		}
		copy(out, s.buf[skip*MixChannels:(skip+n)*MixChannels])
	}

	// slide the buffer past the consumed window
	consumed := skip + int64(frames)
	if consumed > int64(len(s.buf)/MixChannels) {
		consumed = int64(len(s.buf) / MixChannels)
	}
	s.buf = s.buf[consumed*MixChannels:]
	s.bufStart += consumed

	return out
}

func (s *session) bufEnd() int64 {
	return s.bufStart + int64(len(s.buf)/MixChannels)
}

func (s *session) reposition(fromMs, fromSample int64) {
	if s.tb.Num() > 0 {
		ts := fromMs * int64(s.tb.Den()) / (int64(s.tb.Num()) * 1000)
		if err := s.fc.SeekFrame(s.streamIdx, ts, astiav.NewSeekFlags(astiav.SeekFlagBackward)); err != nil {
			log.Printf("[mixer] seek to %dms: %v", fromMs, err)
		}
	}
	s.cc.FlushBuffers()
	s.buf = s.buf[:0]
	s.bufStart = fromSample
	s.positioned = false
	s.eof = false

	// decode one chunk so the buffer start can snap to the stream's actual
	// position
	s.decodeMore()
	if !s.positioned {
		s.positioned = true
	}
}

// decodeMore pulls packets until the resampler emits at least one chunk or
// the file ends.
func (s *session) decodeMore() {
	for {
		s.pkt.Unref()
		if err := s.fc.ReadFrame(s.pkt); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, astiav.ErrEof) {
				s.eof = true
				return
			}
			continue
		}
		if s.pkt.StreamIndex() != s.streamIdx {
			continue
		}
		if err := s.cc.SendPacket(s.pkt); err != nil {
			continue
		}

		produced := false
		for {
			if err := s.cc.ReceiveFrame(s.srcFrame); err != nil {
				break
			}
			if s.appendResampled() {
				produced = true
			}
			s.srcFrame.Unref()
		}
		if produced {
			return
		}
	}
}

// appendResampled converts the current source frame to the bus format and
// appends it to the sample buffer.
func (s *session) appendResampled() bool {
	s.dstFrame.Unref()
	s.dstFrame.SetSampleFormat(astiav.SampleFormatS16)
	s.dstFrame.SetChannelLayout(astiav.ChannelLayoutStereo)
	s.dstFrame.SetSampleRate(MixSampleRate)

	if err := s.swr.ConvertFrame(s.srcFrame, s.dstFrame); err != nil {
		log.Printf("[mixer] swr ConvertFrame: %v", err)
		return false
	}

	nb := s.dstFrame.NbSamples()
	if nb <= 0 {
		return false
	}

	raw, err := s.dstFrame.Data().Bytes(0)
	if err != nil {
		return false
	}
	need := nb * MixChannels * 2
	if need > len(raw) {
		need = len(raw)
	}

	if !s.positioned {
		// snap the buffer origin to the first decoded frame's timestamp
		if p := s.srcFrame.Pts(); p != astiav.NoPtsValue && s.tb.Den() > 0 {
			ptsMs := p * int64(s.tb.Num()) * 1000 / int64(s.tb.Den())
			start := ptsMs * MixSampleRate / 1000
			if start < s.bufStart {
				// stream landed before the request: drop the lead-in
				drop := (s.bufStart - start) * MixChannels
				if drop < int64(need/2) {
					raw = raw[drop*2:]
					need -= int(drop * 2)
				} else {
					need = 0
				}
			} else {
				s.bufStart = start
			}
		}
		s.positioned = true
	}

	for i := 0; i+1 < need; i += 2 {
		s.buf = append(s.buf, int16(binary.LittleEndian.Uint16(raw[i:])))
	}
	return true
}

func (s *session) close() {
	_ = s.closer.Close()
}
