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
	"testing"
)

// fakeContainer scripts a healthy stream of frameCount frames spaced fdMs
// apart, with packet-read and seek counters the state-machine tests assert
// on.
type fakeContainer struct {
	frameCount int64
	fdMs       int64

	pos     int64 // next frame index handed out
	pending bool  // a video packet was sent, its frame not yet received

	reads     int64
	seeks     []int64
	failSeeks int  // fail this many upcoming seeks
	starve    bool // codec never produces frames
	closed    bool
}

func (f *fakeContainer) ReadPacket() (bool, error) {
	f.reads++
	if f.pos >= f.frameCount {
		return false, io.EOF
	}
	return true, nil
}

func (f *fakeContainer) SendPacket() error {
	f.pending = true
	return nil
}

func (f *fakeContainer) SendFlushPacket() error { return nil }

func (f *fakeContainer) ReceiveFrame() (*Frame, int64, error) {
	if f.starve || !f.pending {
		return nil, 0, errAgain
	}
	f.pending = false
	pts := f.pos * f.fdMs
	f.pos++
	return &Frame{
		Width:       4,
		Height:      4,
		Format:      PixelFormatRGBA,
		Data:        make([]byte, 64),
		TimestampMs: pts,
	}, pts, nil
}

func (f *fakeContainer) FlushBuffers() { f.pending = false }

func (f *fakeContainer) Seek(ms int64) error {
	if f.failSeeks > 0 {
		f.failSeeks--
		return errors.New("scripted seek failure")
	}
	f.seeks = append(f.seeks, ms)
	f.pos = ms / f.fdMs
	f.pending = false
	return nil
}

func (f *fakeContainer) Close() error {
	f.closed = true
	return nil
}

func newTestDecoder(src *fakeContainer) *Decoder {
	d := newDecoder(src, "fake.mp4", 4, 4, PixelFormatRGBA)
	d.fps = 30.0
	d.durationMs = src.frameCount * src.fdMs
	return d
}

func TestImmediatePathAvoidsSeek(t *testing.T) {
	src := &fakeContainer{frameCount: 1000, fdMs: 33}
	d := newTestDecoder(src)

	if res := d.DecodeFrame(0); res.Outcome != OutcomeFrame {
		t.Fatalf("first decode outcome = %d", res.Outcome)
	}
	seeksAfterFirst := d.SeekCount()

	if res := d.DecodeFrame(33); res.Outcome != OutcomeFrame {
		t.Fatalf("second decode outcome = %d", res.Outcome)
	}
	if d.SeekCount() != seeksAfterFirst {
		t.Fatalf("immediate path seeked: %d -> %d", seeksAfterFirst, d.SeekCount())
	}
}

func TestForwardPathAvoidsSeek(t *testing.T) {
	src := &fakeContainer{frameCount: 1000, fdMs: 33}
	d := newTestDecoder(src)
	d.SetForwardThreshold(5000)

	d.DecodeFrame(0)
	base := d.SeekCount()

	// Gap of 500 ms is beyond 2 frame periods but inside the threshold.
	res := d.DecodeFrame(500)
	if res.Outcome != OutcomeFrame {
		t.Fatalf("forward decode outcome = %d", res.Outcome)
	}
	if d.SeekCount() != base {
		t.Fatal("forward path must not seek")
	}
	// The accepted frame must be at or past the target window.
	if res.Frame.TimestampMs < 500-34 {
		t.Fatalf("frame pts %d before target window", res.Frame.TimestampMs)
	}
}

func TestRandomPathSeeksOnce(t *testing.T) {
	src := &fakeContainer{frameCount: 1000, fdMs: 33}
	d := newTestDecoder(src)
	d.SetForwardThreshold(100)

	d.DecodeFrame(0)
	base := d.SeekCount()

	if res := d.DecodeFrame(10000); res.Outcome != OutcomeFrame {
		t.Fatalf("random decode outcome = %d", res.Outcome)
	}
	if d.SeekCount() != base+1 {
		t.Fatalf("random path seeks = %d, want %d", d.SeekCount(), base+1)
	}
}

func TestBackwardRequestSeeks(t *testing.T) {
	src := &fakeContainer{frameCount: 1000, fdMs: 33}
	d := newTestDecoder(src)

	d.DecodeFrame(5000)
	base := d.SeekCount()

	if res := d.DecodeFrame(1000); res.Outcome != OutcomeFrame {
		t.Fatalf("backward decode outcome = %d", res.Outcome)
	}
	if d.SeekCount() != base+1 {
		t.Fatal("backward request must seek")
	}
}

func TestEOFMemoisation(t *testing.T) {
	src := &fakeContainer{frameCount: 10, fdMs: 33} // ~330 ms of media
	d := newTestDecoder(src)
	d.durationMs = 330

	res := d.DecodeFrame(1000)
	if res.Outcome != OutcomeEndOfStreamEmpty {
		t.Fatalf("past-the-end outcome = %d", res.Outcome)
	}

	// Subsequent requests past the memoised EOF must not read packets.
	reads := src.reads
	if res := d.DecodeFrame(1500); res.Outcome != OutcomeEndOfStreamEmpty {
		t.Fatalf("memoised outcome = %d", res.Outcome)
	}
	if src.reads != reads {
		t.Fatalf("memoised EOF read packets: %d -> %d", reads, src.reads)
	}
}

func TestReverseSeekClearsEOF(t *testing.T) {
	src := &fakeContainer{frameCount: 10, fdMs: 33}
	d := newTestDecoder(src)
	d.durationMs = 330

	d.DecodeFrame(1000) // memoise EOF

	res := d.DecodeFrame(100)
	if res.Outcome != OutcomeFrame {
		t.Fatalf("reverse decode outcome = %d", res.Outcome)
	}

	// EOF must be re-detected, not served from the stale marker.
	res = d.DecodeFrame(2000)
	if res.Outcome != OutcomeEndOfStream {
		t.Fatalf("re-detected EOF outcome = %d", res.Outcome)
	}
	if res.Frame == nil {
		t.Fatal("EndOfStream should carry the last good frame")
	}
}

func TestEndOfStreamKeepsLastGoodFrame(t *testing.T) {
	src := &fakeContainer{frameCount: 10, fdMs: 33}
	d := newTestDecoder(src)
	d.durationMs = 330

	first := d.DecodeFrame(0)
	if first.Outcome != OutcomeFrame {
		t.Fatalf("healthy decode outcome = %d", first.Outcome)
	}

	res := d.DecodeFrame(5000)
	if res.Outcome != OutcomeEndOfStream || res.Frame == nil {
		t.Fatalf("tail outcome = %d frame=%v", res.Outcome, res.Frame != nil)
	}
}

func TestPacketCapSkipsFrame(t *testing.T) {
	src := &fakeContainer{frameCount: 1 << 40, fdMs: 33, starve: true}
	d := newTestDecoder(src)

	res := d.DecodeFrame(0)
	if res.Outcome != OutcomeFrameSkipped {
		t.Fatalf("starved outcome = %d", res.Outcome)
	}
	if src.reads > maxPacketsPerDecode {
		t.Fatalf("read %d packets past the cap", src.reads)
	}
}

func TestDoubleSeekFailureIsTerminal(t *testing.T) {
	src := &fakeContainer{frameCount: 1000, fdMs: 33}
	d := newTestDecoder(src)

	d.DecodeFrame(0) // establish a last good frame

	src.failSeeks = 2
	res := d.DecodeFrame(10000)
	if res.Outcome != OutcomeEndOfStream || res.Frame == nil {
		t.Fatalf("failed-seek outcome = %d", res.Outcome)
	}
	if !d.Failed() {
		t.Fatal("decoder should be in the error state")
	}

	// Error state answers without touching the container.
	reads := src.reads
	if res := d.DecodeFrame(0); res.Outcome != OutcomeEndOfStream {
		t.Fatalf("error-state outcome = %d", res.Outcome)
	}
	if src.reads != reads {
		t.Fatal("error state must not read packets")
	}
}

func TestSeekFailureWithRetrySucceeds(t *testing.T) {
	src := &fakeContainer{frameCount: 1000, fdMs: 33}
	d := newTestDecoder(src)

	src.failSeeks = 1
	res := d.DecodeFrame(5000)
	if res.Outcome != OutcomeFrame {
		t.Fatalf("retried seek outcome = %d", res.Outcome)
	}
	if d.Failed() {
		t.Fatal("one failed seek must not be terminal")
	}
}

func TestMonotonicScanReturnsFramesUntilEOF(t *testing.T) {
	src := &fakeContainer{frameCount: 30, fdMs: 33}
	d := newTestDecoder(src)
	d.durationMs = 990

	var sawEOF bool
	for t64 := int64(0); t64 < 1200; t64 += 33 {
		res := d.DecodeFrame(t64)
		switch res.Outcome {
		case OutcomeFrame:
			if sawEOF {
				t.Fatalf("frame after EOF at %dms", t64)
			}
		case OutcomeEndOfStream, OutcomeEndOfStreamEmpty:
			sawEOF = true
		case OutcomeFrameSkipped:
			t.Fatalf("unexpected skip at %dms", t64)
		}
	}
	if !sawEOF {
		t.Fatal("monotonic scan never reached EOF")
	}
}
