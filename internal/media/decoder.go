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
	"io"
	"log"
	"math"
)

// DecodeOutcome tags the variants of a DecodeFrame call. Recoverable
// conditions (skips, end of stream) are outcomes, not errors.
type DecodeOutcome int

const (
	OutcomeFrame DecodeOutcome = iota
	OutcomeFrameSkipped
	OutcomeEndOfStream
	OutcomeEndOfStreamEmpty
)

// DecodeResult is the tagged result of one decode request. Frame is set for
// OutcomeFrame and OutcomeEndOfStream.
type DecodeResult struct {
	Outcome DecodeOutcome
	Frame   *Frame
}

type decoderState int

const (
	stateReady decoderState = iota
	stateEndOfStream
	stateError
)

const (
	// maxPacketsPerDecode bounds a worst-case GOP scan; hitting it converts
	// "stuck" into FrameSkipped.
	maxPacketsPerDecode = 3000

	noPTS = math.MinInt64

	// DefaultForwardThresholdMs separates forward-decode from random access
	// for scrub-style callers.
	DefaultForwardThresholdMs = 100
)

// unseen makes the first request take the random-access path regardless of
// its timestamp.
const unseen = math.MinInt64 / 2

// ptsTarget is the acceptance window for forward and random access.
type ptsTarget struct {
	ptsMs int64
	tolMs int64
}

// Decoder produces one scaled frame per requested timestamp over a single
// open source file. Methods assume exclusive access.
type Decoder struct {
	src  container
	path string

	width  int
	height int
	pixFmt PixelFormat

	fps        float64
	durationMs int64

	forwardThresholdMs int64
	lastTimestampMs    int64
	state              decoderState
	lastFrame          *Frame
	eofTimestampMs     int64 // -1 = unset

	seekCount   int64
	packetReads int64
}

// Open opens path and fixes the output geometry, pixel format and scaler
// kernel for the decoder's lifetime.
func Open(path string, targetW, targetH int, pixFmt PixelFormat, quality ScalerQuality) (*Decoder, error) {
	src, err := openAVContainer(path, targetW, targetH, pixFmt, quality)
	if err != nil {
		return nil, err
	}
	d := newDecoder(src, path, targetW, targetH, pixFmt)
	d.fps = src.fps
	d.durationMs = src.durationMs
	return d, nil
}

// newDecoder wires the state machine over any container; tests feed it
// scripted ones.
func newDecoder(src container, path string, w, h int, pixFmt PixelFormat) *Decoder {
	return &Decoder{
		src:                src,
		path:               path,
		width:              w,
		height:             h,
		pixFmt:             pixFmt,
		forwardThresholdMs: DefaultForwardThresholdMs,
		lastTimestampMs:    unseen,
		eofTimestampMs:     -1,
	}
}

func (d *Decoder) Path() string       { return d.path }
func (d *Decoder) Width() int         { return d.width }
func (d *Decoder) Height() int        { return d.height }
func (d *Decoder) FPS() float64       { return d.fps }
func (d *Decoder) DurationMs() int64  { return d.durationMs }
func (d *Decoder) SeekCount() int64   { return d.seekCount }
func (d *Decoder) PacketReads() int64 { return d.packetReads }

// Failed reports the terminal error state; the renderer evicts failed
// decoders and reopens.
func (d *Decoder) Failed() bool { return d.state == stateError }

// SetForwardThreshold sets the largest forward gap (ms) served by draining
// packets instead of seeking.
func (d *Decoder) SetForwardThreshold(ms int64) {
	d.forwardThresholdMs = ms
}

// frameDurationMs is one frame period, rounded up and never below 1 ms.
func (d *Decoder) frameDurationMs() int64 {
	if d.fps <= 0 {
		return 33
	}
	fd := int64(math.Ceil(1000.0 / d.fps))
	if fd < 1 {
		fd = 1
	}
	return fd
}

// retained answers without touching the container: the last good frame, or
// the empty end-of-stream marker.
func (d *Decoder) retained() DecodeResult {
	if d.lastFrame != nil {
		return DecodeResult{Outcome: OutcomeEndOfStream, Frame: d.lastFrame}
	}
	return DecodeResult{Outcome: OutcomeEndOfStreamEmpty}
}

// DecodeFrame returns the frame at the nearest presentation time >= tMs.
// The access path is chosen from the gap to the previous request: immediate
// (take the next frame), forward (drain to a PTS target) or random (seek
// then drain).
func (d *Decoder) DecodeFrame(tMs int64) DecodeResult {
	if d.state == stateError {
		return d.retained()
	}
	if d.eofTimestampMs >= 0 && tMs >= d.eofTimestampMs {
		return d.retained()
	}

	fd := d.frameDurationMs()
	gap := tMs - d.lastTimestampMs

	var target *ptsTarget
	switch {
	case d.state == stateReady && gap >= 0 && gap <= 2*fd:
		// next frame is the answer
	case d.state == stateReady && gap > 2*fd && gap <= d.forwardThresholdMs:
		target = &ptsTarget{ptsMs: tMs, tolMs: fd}
	default:
		if err := d.seek(tMs); err != nil {
			log.Printf("[decoder] %s: seek to %dms failed twice: %v", d.path, tMs, err)
			return d.retained()
		}
		target = &ptsTarget{ptsMs: tMs, tolMs: fd}
	}

	res := d.readToTarget(tMs, target)
	d.lastTimestampMs = tMs
	return res
}

// Seek positions the source at tMs and resets the state machine. A failure
// is retried once after a codec flush; the second failure is terminal.
func (d *Decoder) Seek(tMs int64) error {
	return d.seek(tMs)
}

func (d *Decoder) seek(tMs int64) error {
	d.seekCount++
	if err := d.src.Seek(tMs); err != nil {
		d.src.FlushBuffers()
		if err2 := d.src.Seek(tMs); err2 != nil {
			d.state = stateError
			return err2
		}
	}
	d.state = stateReady
	d.eofTimestampMs = -1
	return nil
}

// accept applies the PTS acceptance rule: no target means take the first
// frame; otherwise the frame must land inside the tolerance window, and
// frames without a PTS are trusted.
func accept(ptsMs int64, target *ptsTarget) bool {
	if target == nil || ptsMs == noPTS {
		return true
	}
	return ptsMs >= target.ptsMs-target.tolMs
}

// readToTarget drains packets and frames until an acceptable frame appears,
// the stream ends, or the packet cap trips.
func (d *Decoder) readToTarget(reqMs int64, target *ptsTarget) DecodeResult {
	for reads := 0; reads < maxPacketsPerDecode; reads++ {
		video, err := d.src.ReadPacket()
		d.packetReads++
		if errors.Is(err, io.EOF) {
			if f := d.drainFlush(reqMs, target); f != nil {
				d.lastFrame = f
				return DecodeResult{Outcome: OutcomeFrame, Frame: f}
			}
			d.state = stateEndOfStream
			d.eofTimestampMs = reqMs
			return d.retained()
		}
		if err != nil {
			// transient read hiccup, keep going
			continue
		}
		if !video {
			continue
		}
		if err := d.src.SendPacket(); err != nil {
			// corrupted packet: skip, do not escalate
			continue
		}
		if f := d.drainFrames(reqMs, target); f != nil {
			d.lastFrame = f
			return DecodeResult{Outcome: OutcomeFrame, Frame: f}
		}
	}
	log.Printf("[decoder] %s: packet cap hit at %dms, skipping frame", d.path, reqMs)
	return DecodeResult{Outcome: OutcomeFrameSkipped}
}

// drainFrames pulls every frame the codec has ready and returns the first
// acceptable one.
func (d *Decoder) drainFrames(reqMs int64, target *ptsTarget) *Frame {
	for {
		f, ptsMs, err := d.src.ReceiveFrame()
		if errors.Is(err, errAgain) {
			return nil
		}
		if err != nil {
			// decode error on one frame: drop it, keep draining packets
			return nil
		}
		if accept(ptsMs, target) {
			if ptsMs == noPTS {
				f.TimestampMs = reqMs
			}
			return f
		}
		// frame before the target window: discard and continue
	}
}

// drainFlush flushes the codec at end of file and scans the tail for an
// acceptable frame.
func (d *Decoder) drainFlush(reqMs int64, target *ptsTarget) *Frame {
	if err := d.src.SendFlushPacket(); err != nil {
		return nil
	}
	return d.drainFrames(reqMs, target)
}

func (d *Decoder) Close() error {
	if d.src == nil {
		return nil
	}
	err := d.src.Close()
	d.src = nil
	return err
}
