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
package encode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	astiav "github.com/asticode/go-astiav"
	"github.com/asticode/go-astikit"
)

// videoTimeBase is the MPEG clock the H.264 stream runs on.
const videoTimeBase = 90000

// VideoEncoder writes one muxed output file: H.264 video under CRF rate
// control plus an optional AAC-LC audio stream. Frames are accepted as
// packed RGBA (scaled in) or YUV420P (copied straight into the codec
// frame); audio as interleaved S16 PCM.
type VideoEncoder struct {
	oc *astiav.FormatContext
	pb *astiav.IOContext

	vcc *astiav.CodecContext
	vst *astiav.Stream

	acc *astiav.CodecContext
	ast *astiav.Stream
	swr *astiav.SoftwareResampleContext

	vFrame    *astiav.Frame
	rgbaFrame *astiav.Frame
	rgbaSsc   *astiav.SoftwareScaleContext
	aSrcFrame *astiav.Frame
	aDstFrame *astiav.Frame
	pkt       *astiav.Packet

	width      uint32
	height     uint32
	fps        float64
	frameIndex int64
	audioPts   int64
	pcm        []int16 // pending samples until a full codec frame

	closer *astikit.Closer
}

// formatNameForPath picks the muxer from the extension; MP4 is canonical.
func formatNameForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mov":
		return "mov"
	case ".mkv":
		return "matroska"
	case ".webm":
		return "webm"
	default:
		return "mp4"
	}
}

// NewVideoEncoder opens the output container and the H.264 stream.
func NewVideoEncoder(path string, width, height uint32, fps float64, crf uint32) (*VideoEncoder, error) {
	if width == 0 || height == 0 || fps <= 0 {
		return nil, fmt.Errorf("invalid encoder geometry %dx%d@%f", width, height, fps)
	}

	e := &VideoEncoder{
		width:  width,
		height: height,
		fps:    fps,
		closer: astikit.NewCloser(),
	}

	ok := false
	defer func() {
		if !ok {
			_ = e.closer.Close()
		}
	}()

	oc, err := astiav.AllocOutputFormatContext(nil, formatNameForPath(path), path)
	if err != nil || oc == nil {
		return nil, fmt.Errorf("AllocOutputFormatContext: %w", err)
	}
	e.oc = oc
	e.closer.Add(oc.Free)

	pb, err := astiav.OpenIOContext(path, astiav.NewIOContextFlags(astiav.IOContextFlagWrite), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("OpenIOContext(%s): %w", path, err)
	}
	e.pb = pb
	oc.SetPb(pb)

	venc := astiav.FindEncoder(astiav.CodecIDH264)
	if venc == nil {
		return nil, errors.New("H.264 encoder not found")
	}

	vcc := astiav.AllocCodecContext(venc)
	if vcc == nil {
		return nil, errors.New("AllocCodecContext(h264) nil")
	}
	e.vcc = vcc
	e.closer.Add(vcc.Free)

	vcc.SetWidth(int(width))
	vcc.SetHeight(int(height))
	vcc.SetPixelFormat(astiav.PixelFormatYuv420P)
	vcc.SetTimeBase(astiav.NewRational(1, videoTimeBase))
	vcc.SetFramerate(astiav.NewRational(int(math.Round(fps*1000)), 1000))
	if oc.OutputFormat().Flags().Has(astiav.IOFormatFlagGlobalheader) {
		vcc.SetFlags(vcc.Flags().Add(astiav.CodecContextFlagGlobalHeader))
	}

	vopts := astiav.NewDictionary()
	defer vopts.Free()
	_ = vopts.Set("crf", strconv.FormatUint(uint64(crf), 10), 0)
	_ = vopts.Set("preset", "medium", 0)

	log.Printf("[encoder] h264 options: %s", JoinDict(vopts))

	if err := vcc.Open(venc, vopts); err != nil {
		return nil, fmt.Errorf("open h264: %w", err)
	}

	vst := oc.NewStream(venc)
	if vst == nil {
		return nil, errors.New("NewStream(video) nil")
	}
	if err := vcc.ToCodecParameters(vst.CodecParameters()); err != nil {
		return nil, fmt.Errorf("ToCodecParameters(video): %w", err)
	}
	vst.SetTimeBase(vcc.TimeBase())
	e.vst = vst

	e.vFrame = astiav.AllocFrame()
	e.closer.Add(e.vFrame.Free)
	e.vFrame.SetWidth(int(width))
	e.vFrame.SetHeight(int(height))
	e.vFrame.SetPixelFormat(astiav.PixelFormatYuv420P)
	if err := e.vFrame.AllocBuffer(1); err != nil {
		return nil, fmt.Errorf("video frame AllocBuffer: %w", err)
	}

	e.pkt = astiav.AllocPacket()
	e.closer.Add(e.pkt.Free)

	ok = true
	return e, nil
}

func (e *VideoEncoder) Width() uint32  { return e.width }
func (e *VideoEncoder) Height() uint32 { return e.height }

// InitAudio adds the AAC stream. Callers treat failure as "video-only
// export", not as fatal.
func (e *VideoEncoder) InitAudio(sampleRate, channels, bitRate int) error {
	aenc := astiav.FindEncoder(astiav.CodecIDAac)
	if aenc == nil {
		return errors.New("AAC encoder not found")
	}

	acc := astiav.AllocCodecContext(aenc)
	if acc == nil {
		return errors.New("AllocCodecContext(aac) nil")
	}

	acc.SetChannelLayout(astiav.ChannelLayoutStereo)
	acc.SetSampleRate(sampleRate)
	if sfs := aenc.SampleFormats(); len(sfs) > 0 {
		acc.SetSampleFormat(sfs[0])
	}
	acc.SetTimeBase(astiav.NewRational(1, sampleRate))
	acc.SetBitRate(int64(bitRate))
	acc.SetStrictStdCompliance(astiav.StrictStdComplianceExperimental)
	if e.oc.OutputFormat().Flags().Has(astiav.IOFormatFlagGlobalheader) {
		acc.SetFlags(acc.Flags().Add(astiav.CodecContextFlagGlobalHeader))
	}

	if err := acc.Open(aenc, nil); err != nil {
		acc.Free()
		return fmt.Errorf("open aac: %w", err)
	}

	ast := e.oc.NewStream(aenc)
	if ast == nil {
		acc.Free()
		return errors.New("NewStream(audio) nil")
	}
	if err := acc.ToCodecParameters(ast.CodecParameters()); err != nil {
		acc.Free()
		return fmt.Errorf("ToCodecParameters(audio): %w", err)
	}
	ast.SetTimeBase(acc.TimeBase())

	swr := astiav.AllocSoftwareResampleContext()
	if swr == nil {
		acc.Free()
		return errors.New("AllocSoftwareResampleContext")
	}

	e.acc = acc
	e.closer.Add(acc.Free)
	e.ast = ast
	e.swr = swr
	e.closer.Add(swr.Free)
	e.aSrcFrame = astiav.AllocFrame()
	e.closer.Add(e.aSrcFrame.Free)
	e.aDstFrame = astiav.AllocFrame()
	e.closer.Add(e.aDstFrame.Free)

	return nil
}

func (e *VideoEncoder) WriteHeader() error {
	if err := e.oc.WriteHeader(nil); err != nil {
		return fmt.Errorf("WriteHeader: %w", err)
	}
	return nil
}

func (e *VideoEncoder) videoPts() int64 {
	return int64(math.Round(float64(e.frameIndex) * videoTimeBase / e.fps))
}

// EncodeFrameYUV pushes one tightly packed YUV420P frame.
func (e *VideoEncoder) EncodeFrameYUV(data []byte, width, height uint32) error {
	if width != e.width || height != e.height {
		return fmt.Errorf("yuv frame %dx%d, encoder %dx%d", width, height, e.width, e.height)
	}
	want := int(width)*int(height) + 2*((int(width)/2)*(int(height)/2))
	if len(data) < want {
		return fmt.Errorf("yuv frame %d bytes, need %d", len(data), want)
	}

	if err := e.vFrame.MakeWritable(); err != nil {
		return fmt.Errorf("MakeWritable: %w", err)
	}
	if err := e.vFrame.Data().SetBytes(data, 1); err != nil {
		return fmt.Errorf("frame SetBytes: %w", err)
	}
	e.vFrame.SetPts(e.videoPts())
	e.frameIndex++

	return e.encodeVideo(e.vFrame)
}

// EncodeFrameRGBA converts a packed RGBA frame through swscale and pushes
// it.
func (e *VideoEncoder) EncodeFrameRGBA(data []byte, width, height uint32) error {
	if width != e.width || height != e.height {
		return fmt.Errorf("rgba frame %dx%d, encoder %dx%d", width, height, e.width, e.height)
	}
	if len(data) < int(width)*int(height)*4 {
		return fmt.Errorf("rgba frame %d bytes, need %d", len(data), int(width)*int(height)*4)
	}

	if e.rgbaSsc == nil {
		ssc, err := astiav.CreateSoftwareScaleContext(
			int(width), int(height), astiav.PixelFormatRgba,
			int(width), int(height), astiav.PixelFormatYuv420P,
			astiav.NewSoftwareScaleContextFlags(astiav.SoftwareScaleContextFlagLanczos),
		)
		if err != nil {
			return fmt.Errorf("rgba->yuv scaler: %w", err)
		}
		e.rgbaSsc = ssc
		e.closer.Add(ssc.Free)

		e.rgbaFrame = astiav.AllocFrame()
		e.closer.Add(e.rgbaFrame.Free)
		e.rgbaFrame.SetWidth(int(width))
		e.rgbaFrame.SetHeight(int(height))
		e.rgbaFrame.SetPixelFormat(astiav.PixelFormatRgba)
		if err := e.rgbaFrame.AllocBuffer(1); err != nil {
			return fmt.Errorf("rgba frame AllocBuffer: %w", err)
		}
	}

	if err := e.rgbaFrame.MakeWritable(); err != nil {
		return fmt.Errorf("MakeWritable: %w", err)
	}
	if err := e.rgbaFrame.Data().SetBytes(data, 1); err != nil {
		return fmt.Errorf("rgba SetBytes: %w", err)
	}
	if err := e.vFrame.MakeWritable(); err != nil {
		return fmt.Errorf("MakeWritable: %w", err)
	}
	if err := e.rgbaSsc.ScaleFrame(e.rgbaFrame, e.vFrame); err != nil {
		return fmt.Errorf("ScaleFrame: %w", err)
	}
	e.vFrame.SetPts(e.videoPts())
	e.frameIndex++

	return e.encodeVideo(e.vFrame)
}

func (e *VideoEncoder) encodeVideo(f *astiav.Frame) error {
	if err := e.vcc.SendFrame(f); err != nil && !errors.Is(err, astiav.ErrEagain) {
		return fmt.Errorf("video SendFrame: %w", err)
	}
	return e.drain(e.vcc, e.vst)
}

// EncodeAudio buffers interleaved S16 PCM and pushes full codec frames.
// Without an audio stream this is a no-op.
func (e *VideoEncoder) EncodeAudio(samples []int16) error {
	if e.acc == nil || len(samples) == 0 {
		return nil
	}
	e.pcm = append(e.pcm, samples...)

	frameSize := e.acc.FrameSize()
	if frameSize <= 0 {
		frameSize = 1024
	}
	chunk := frameSize * 2 // stereo

	for len(e.pcm) >= chunk {
		if err := e.encodeAudioChunk(e.pcm[:chunk], frameSize); err != nil {
			return err
		}
		e.pcm = e.pcm[chunk:]
	}
	return nil
}

func (e *VideoEncoder) encodeAudioChunk(samples []int16, frameSize int) error {
	raw := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(raw[i*2:], uint16(s))
	}

	e.aSrcFrame.Unref()
	e.aSrcFrame.SetSampleFormat(astiav.SampleFormatS16)
	e.aSrcFrame.SetChannelLayout(astiav.ChannelLayoutStereo)
	e.aSrcFrame.SetSampleRate(e.acc.SampleRate())
	e.aSrcFrame.SetNbSamples(frameSize)
	if err := e.aSrcFrame.AllocBuffer(0); err != nil {
		return fmt.Errorf("audio src AllocBuffer: %w", err)
	}
	if err := e.aSrcFrame.Data().SetBytes(raw, 0); err != nil {
		return fmt.Errorf("audio src SetBytes: %w", err)
	}

	e.aDstFrame.Unref()
	e.aDstFrame.SetSampleFormat(e.acc.SampleFormat())
	e.aDstFrame.SetChannelLayout(e.acc.ChannelLayout())
	e.aDstFrame.SetSampleRate(e.acc.SampleRate())
	e.aDstFrame.SetNbSamples(frameSize)
	if err := e.aDstFrame.AllocBuffer(0); err != nil {
		return fmt.Errorf("audio dst AllocBuffer: %w", err)
	}

	if err := e.swr.ConvertFrame(e.aSrcFrame, e.aDstFrame); err != nil {
		return fmt.Errorf("swr ConvertFrame: %w", err)
	}

	e.aDstFrame.SetPts(e.audioPts)
	e.audioPts += int64(frameSize)

	if err := e.acc.SendFrame(e.aDstFrame); err != nil && !errors.Is(err, astiav.ErrEagain) {
		return fmt.Errorf("audio SendFrame: %w", err)
	}
	return e.drain(e.acc, e.ast)
}

// drain moves every ready packet from the codec into the muxer with
// rescaled timestamps.
func (e *VideoEncoder) drain(cc *astiav.CodecContext, st *astiav.Stream) error {
	for {
		e.pkt.Unref()
		if err := cc.ReceivePacket(e.pkt); err != nil {
			if errors.Is(err, astiav.ErrEagain) || errors.Is(err, astiav.ErrEof) {
				return nil
			}
			return fmt.Errorf("ReceivePacket: %w", err)
		}
		e.pkt.SetStreamIndex(st.Index())
		e.pkt.RescaleTs(cc.TimeBase(), st.TimeBase())
		if err := e.oc.WriteInterleavedFrame(e.pkt); err != nil {
			return fmt.Errorf("WriteInterleavedFrame: %w", err)
		}
	}
}

// Finish flushes both codecs and writes the trailer.
func (e *VideoEncoder) Finish() error {
	if err := e.vcc.SendFrame(nil); err != nil && !errors.Is(err, astiav.ErrEof) {
		return fmt.Errorf("video flush: %w", err)
	}
	if err := e.drain(e.vcc, e.vst); err != nil {
		return err
	}

	if e.acc != nil {
		// push the ragged tail padded with silence, then flush
		if rest := len(e.pcm); rest > 0 {
			frameSize := e.acc.FrameSize()
			if frameSize <= 0 {
				frameSize = 1024
			}
			padded := make([]int16, frameSize*2)
			copy(padded, e.pcm)
			e.pcm = e.pcm[:0]
			if err := e.encodeAudioChunk(padded, frameSize); err != nil {
				return err
			}
		}
		if err := e.acc.SendFrame(nil); err != nil && !errors.Is(err, astiav.ErrEof) {
			return fmt.Errorf("audio flush: %w", err)
		}
		if err := e.drain(e.acc, e.ast); err != nil {
			return err
		}
	}

	if err := e.oc.WriteTrailer(); err != nil {
		return fmt.Errorf("WriteTrailer: %w", err)
	}
	return nil
}

// Close releases every FFmpeg resource. Safe after Finish and after errors.
func (e *VideoEncoder) Close() {
	if e.pb != nil {
		_ = e.pb.Close()
		e.pb.Free()
		e.pb = nil
	}
	_ = e.closer.Close()
}
