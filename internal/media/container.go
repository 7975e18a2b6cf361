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
	"io"
	"log"
	"runtime"

	astiav "github.com/asticode/go-astiav"
	"github.com/asticode/go-astikit"
)

// ScalerQuality selects the swscale kernel: fast bilinear for interactive
// preview, Lanczos for export.
type ScalerQuality int

const (
	ScalerFastBilinear ScalerQuality = iota
	ScalerLanczos
)

// container is the demux+decode+scale pipeline for one open file. The state
// machine in decoder.go drives it; avContainer is the astiav implementation
// and the tests script their own.
type container interface {
	// ReadPacket reads the next packet and reports whether it belongs to the
	// selected video stream. io.EOF once the file is drained.
	ReadPacket() (video bool, err error)
	// SendPacket feeds the current packet to the codec.
	SendPacket() error
	// SendFlushPacket enters codec drain mode.
	SendFlushPacket() error
	// ReceiveFrame returns the next decoded frame scaled to the output
	// geometry, plus its presentation time in ms (noPTS when absent).
	// errAgain when the codec wants more input.
	ReceiveFrame() (*Frame, int64, error)
	// FlushBuffers discards the codec's internal state.
	FlushBuffers()
	// Seek positions the demuxer at the keyframe at or before ms.
	Seek(ms int64) error
	Close() error
}

// errAgain is the codec's "feed me more packets" signal, normalised so fakes
// do not need astiav.
var errAgain = errors.New("decoder needs more input")

// avContainer wraps one FFmpeg input: format context, video codec context
// and a scaler to the fixed output geometry.
type avContainer struct {
	fc        *astiav.FormatContext
	cc        *astiav.CodecContext
	streamIdx int
	tb        astiav.Rational

	pkt      *astiav.Packet
	srcFrame *astiav.Frame

	// scaler state, (re)built when the source geometry changes
	ssc        *astiav.SoftwareScaleContext
	dstFrame   *astiav.Frame
	scalerSrcW int
	scalerSrcH int
	scalerPix  astiav.PixelFormat

	dstW    int
	dstH    int
	dstPix  PixelFormat
	quality ScalerQuality

	durationMs int64
	fps        float64

	closer *astikit.Closer
}

func (p PixelFormat) av() astiav.PixelFormat {
	if p == PixelFormatYUV420P {
		return astiav.PixelFormatYuv420P
	}
	return astiav.PixelFormatRgba
}

func (q ScalerQuality) flags() astiav.SoftwareScaleContextFlags {
	if q == ScalerLanczos {
		return astiav.NewSoftwareScaleContextFlags(astiav.SoftwareScaleContextFlagLanczos)
	}
	return astiav.NewSoftwareScaleContextFlags(astiav.SoftwareScaleContextFlagFastBilinear)
}

// openAVContainer opens path, selects the first video stream and prepares a
// codec context decoding at the host's parallelism.
func openAVContainer(path string, dstW, dstH int, dstPix PixelFormat, quality ScalerQuality) (*avContainer, error) {
	c := &avContainer{
		streamIdx: -1,
		dstW:      dstW,
		dstH:      dstH,
		dstPix:    dstPix,
		quality:   quality,
		closer:    astikit.NewCloser(),
	}

	ok := false
	defer func() {
		if !ok {
			_ = c.closer.Close()
		}
	}()

	c.fc = astiav.AllocFormatContext()
	if c.fc == nil {
		return nil, errors.New("AllocFormatContext")
	}
	c.closer.Add(c.fc.Free)

	if err := c.fc.OpenInput(path, nil, nil); err != nil {
		return nil, fmt.Errorf("OpenInput(%s): %w", path, err)
	}
	c.closer.Add(c.fc.CloseInput)

	if err := c.fc.FindStreamInfo(nil); err != nil {
		return nil, fmt.Errorf("FindStreamInfo: %w", err)
	}

	var vst *astiav.Stream
	for i, s := range c.fc.Streams() {
		if s.CodecParameters().MediaType() == astiav.MediaTypeVideo {
			c.streamIdx = i
			vst = s
			break
		}
	}
	if vst == nil {
		return nil, errors.New("no video stream")
	}
	c.tb = vst.TimeBase()

	vpar := vst.CodecParameters()
	vdec := astiav.FindDecoder(vpar.CodecID())
	if vdec == nil {
		return nil, errors.New("FindDecoder(video) nil")
	}
	c.cc = astiav.AllocCodecContext(vdec)
	if c.cc == nil {
		return nil, errors.New("AllocCodecContext(video) nil")
	}
	c.closer.Add(c.cc.Free)

	if err := vpar.ToCodecContext(c.cc); err != nil {
		return nil, fmt.Errorf("ToCodecContext(video): %w", err)
	}
	c.cc.SetThreadCount(runtime.NumCPU())

	if err := c.cc.Open(vdec, nil); err != nil {
		return nil, fmt.Errorf("open video: %w", err)
	}

	// Stream duration in its timebase, falling back to container µs.
	if d := vst.Duration(); d > 0 && c.tb.Den() > 0 {
		c.durationMs = d * int64(c.tb.Num()) * 1000 / int64(c.tb.Den())
	} else if d := c.fc.Duration(); d > 0 {
		c.durationMs = d / 1000
	}

	r := vst.AvgFrameRate()
	if r.Num() <= 0 || r.Den() <= 0 {
		r = c.cc.Framerate() // fallback
	}
	if r.Num() > 0 && r.Den() > 0 {
		c.fps = float64(r.Num()) / float64(r.Den())
	}

	c.pkt = astiav.AllocPacket()
	c.closer.Add(c.pkt.Free)
	c.srcFrame = astiav.AllocFrame()
	c.closer.Add(c.srcFrame.Free)

	log.Printf("[decoder] opened %s: stream=%d dur=%dms fps=%.3f out=%dx%d %s",
		path, c.streamIdx, c.durationMs, c.fps, dstW, dstH, dstPix)

	ok = true
	return c, nil
}

// ensureScaler (re)creates the swscale context when the source geometry
// changes. The destination is fixed for the container's lifetime.
func (c *avContainer) ensureScaler(src *astiav.Frame) error {
	sw, sh, sp := src.Width(), src.Height(), src.PixelFormat()
	if c.ssc != nil && sw == c.scalerSrcW && sh == c.scalerSrcH && sp == c.scalerPix {
		return nil
	}

	if c.dstFrame != nil {
		c.dstFrame.Free()
		c.dstFrame = nil
	}
	if c.ssc != nil {
		c.ssc.Free()
		c.ssc = nil
	}

	ssc, err := astiav.CreateSoftwareScaleContext(
		sw, sh, sp,
		c.dstW, c.dstH, c.dstPix.av(),
		c.quality.flags(),
	)
	if err != nil {
		return fmt.Errorf("CreateSoftwareScaleContext(%dx%d %s -> %dx%d %s): %w",
			sw, sh, sp, c.dstW, c.dstH, c.dstPix, err)
	}

	dst := astiav.AllocFrame()
	dst.SetWidth(c.dstW)
	dst.SetHeight(c.dstH)
	dst.SetPixelFormat(c.dstPix.av())
	if err := dst.AllocBuffer(1); err != nil {
		dst.Free()
		ssc.Free()
		return fmt.Errorf("dst.AllocBuffer: %w", err)
	}

	c.ssc = ssc
	c.dstFrame = dst
	c.scalerSrcW, c.scalerSrcH, c.scalerPix = sw, sh, sp
	return nil
}

func (c *avContainer) ReadPacket() (bool, error) {
	c.pkt.Unref()
	if err := c.fc.ReadFrame(c.pkt); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, astiav.ErrEof) {
			return false, io.EOF
		}
		return false, err
	}
	return c.pkt.StreamIndex() == c.streamIdx, nil
}

func (c *avContainer) SendPacket() error {
	return c.cc.SendPacket(c.pkt)
}

func (c *avContainer) SendFlushPacket() error {
	return c.cc.SendPacket(nil)
}

func (c *avContainer) ReceiveFrame() (*Frame, int64, error) {
	if err := c.cc.ReceiveFrame(c.srcFrame); err != nil {
		if errors.Is(err, astiav.ErrEagain) || errors.Is(err, astiav.ErrEof) {
			return nil, 0, errAgain
		}
		return nil, 0, fmt.Errorf("ReceiveFrame: %w", err)
	}
	defer c.srcFrame.Unref()

	pts := noPTS
	if p := c.srcFrame.Pts(); p != astiav.NoPtsValue && c.tb.Den() > 0 {
		pts = p * int64(c.tb.Num()) * 1000 / int64(c.tb.Den())
	}

	if err := c.ensureScaler(c.srcFrame); err != nil {
		return nil, 0, err
	}
	if err := c.ssc.ScaleFrame(c.srcFrame, c.dstFrame); err != nil {
		return nil, 0, fmt.Errorf("ScaleFrame: %w", err)
	}

	data, err := c.packDst()
	if err != nil {
		return nil, 0, err
	}

	return &Frame{
		Width:       uint32(c.dstW),
		Height:      uint32(c.dstH),
		Format:      c.dstPix,
		Data:        data,
		TimestampMs: pts,
	}, pts, nil
}

// packDst copies the scaled frame into a tightly packed Go slice. RGBA goes
// through the validated row copy; planar YUV uses the image buffer helpers.
func (c *avContainer) packDst() ([]byte, error) {
	if c.dstPix == PixelFormatRGBA {
		src, err := c.dstFrame.Data().Bytes(1)
		if err != nil {
			return nil, fmt.Errorf("frame data: %w", err)
		}
		return packRGBA(src, c.dstFrame.Linesize()[0], c.dstW, c.dstH)
	}

	n, err := c.dstFrame.ImageBufferSize(1)
	if err != nil {
		return nil, fmt.Errorf("ImageBufferSize: %w", err)
	}
	if want := c.dstPix.BufferSize(c.dstW, c.dstH); n < want {
		return nil, fmt.Errorf("yuv buffer %d bytes, need %d", n, want)
	}
	out := make([]byte, n)
	if _, err := c.dstFrame.ImageCopyToBuffer(out, 1); err != nil {
		return nil, fmt.Errorf("ImageCopyToBuffer: %w", err)
	}
	return out[:c.dstPix.BufferSize(c.dstW, c.dstH)], nil
}

func (c *avContainer) FlushBuffers() {
	c.cc.FlushBuffers()
}

func (c *avContainer) Seek(ms int64) error {
	if c.tb.Num() <= 0 {
		return errors.New("invalid timebase")
	}
	ts := ms * int64(c.tb.Den()) / (int64(c.tb.Num()) * 1000)
	if err := c.fc.SeekFrame(c.streamIdx, ts, astiav.NewSeekFlags(astiav.SeekFlagBackward)); err != nil {
		return fmt.Errorf("SeekFrame(%dms): %w", ms, err)
	}
	c.cc.FlushBuffers()
	return nil
}

func (c *avContainer) Close() error {
	if c.dstFrame != nil {
		c.dstFrame.Free()
		c.dstFrame = nil
	}
	if c.ssc != nil {
		c.ssc.Free()
		c.ssc = nil
	}
	return c.closer.Close()
}
