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
package render

import (
	"log"

	"github.com/littledevmars/vortexcut/internal/media"
	"github.com/littledevmars/vortexcut/internal/timeline"
)

// Mode selects the preview or export rendition of one render loop; the loop
// itself is shared.
type Mode int

const (
	ModePreview Mode = iota
	ModeExport
)

// Calibrated defaults. Preview serves scrub/replay so the cache is large;
// export is sequential and barely rewinds.
const (
	PreviewWidth  = 960
	PreviewHeight = 540

	PreviewCacheEntries = 60
	PreviewCacheBytes   = 200 << 20
	ExportCacheEntries  = 5
	ExportCacheBytes    = 50 << 20

	ScrubForwardThresholdMs    = 100
	PlaybackForwardThresholdMs = 5000
	ExportForwardThresholdMs   = 5000
)

// RenderedFrame is what the host (or the export loop) receives for one
// timeline tick.
type RenderedFrame struct {
	Width       uint32
	Height      uint32
	Data        []byte
	IsYUV       bool
	TimestampMs int64
}

// frameDecoder is the pooled per-file decoder as the renderer sees it;
// media.Decoder implements it and tests inject scripted ones.
type frameDecoder interface {
	DecodeFrame(tMs int64) media.DecodeResult
	SetForwardThreshold(ms int64)
	Failed() bool
	Close() error
}

// Options fixes a renderer's output geometry, pixel path and tuning at
// construction.
type Options struct {
	Mode               Mode
	Width              uint32
	Height             uint32
	CacheEntries       int
	CacheBytes         int64
	ForwardThresholdMs int64
}

// PreviewOptions is the scrub/playback configuration: fixed 960×540 RGBA.
func PreviewOptions() Options {
	return Options{
		Mode:               ModePreview,
		Width:              PreviewWidth,
		Height:             PreviewHeight,
		CacheEntries:       PreviewCacheEntries,
		CacheBytes:         PreviewCacheBytes,
		ForwardThresholdMs: ScrubForwardThresholdMs,
	}
}

// ExportOptions is the sequential high-quality configuration: caller
// geometry, YUV420P, small cache.
func ExportOptions(w, h uint32) Options {
	return Options{
		Mode:               ModeExport,
		Width:              w,
		Height:             h,
		CacheEntries:       ExportCacheEntries,
		CacheBytes:         ExportCacheBytes,
		ForwardThresholdMs: ExportForwardThresholdMs,
	}
}

// Renderer maps timeline time to a composed frame: active clip resolution,
// cache lookup, pooled decode, colour effects. All methods assume exclusive
// access; the embedding layer provides the mutex.
type Renderer struct {
	tl   *timeline.Shared
	opts Options

	cache       *FrameCache
	pool        map[string]frameDecoder
	openDecoder func(path string) (frameDecoder, error)

	effects   map[uint64]EffectParams
	lastFrame *media.Frame
	playback  bool
}

// New builds a preview renderer over the shared timeline.
func New(tl *timeline.Shared) *Renderer {
	return NewWithOptions(tl, PreviewOptions())
}

// NewForExport builds the export renderer used by the export worker.
func NewForExport(tl *timeline.Shared, w, h uint32) *Renderer {
	return NewWithOptions(tl, ExportOptions(w, h))
}

func NewWithOptions(tl *timeline.Shared, opts Options) *Renderer {
	r := &Renderer{
		tl:      tl,
		opts:    opts,
		cache:   NewFrameCache(opts.CacheEntries, opts.CacheBytes),
		pool:    make(map[string]frameDecoder),
		effects: make(map[uint64]EffectParams),
	}
	r.openDecoder = func(path string) (frameDecoder, error) {
		pixFmt := media.PixelFormatRGBA
		quality := media.ScalerFastBilinear
		if opts.Mode == ModeExport {
			pixFmt = media.PixelFormatYUV420P
			quality = media.ScalerLanczos
		}
		return media.Open(path, int(opts.Width), int(opts.Height), pixFmt, quality)
	}
	return r
}

func (r *Renderer) pixelFormat() media.PixelFormat {
	if r.opts.Mode == ModeExport {
		return media.PixelFormatYUV420P
	}
	return media.PixelFormatRGBA
}

func (r *Renderer) forwardThresholdMs() int64 {
	if r.opts.Mode == ModePreview && r.playback {
		return PlaybackForwardThresholdMs
	}
	return r.opts.ForwardThresholdMs
}

// SetPlaybackMode retunes the preview pool: playback favours forward decode
// over precise seeks, and failed decoders are evicted so playback can retry
// from a fresh open.
func (r *Renderer) SetPlaybackMode(on bool) {
	if r.opts.Mode != ModePreview {
		return
	}
	r.playback = on
	threshold := r.forwardThresholdMs()
	for path, dec := range r.pool {
		if on && dec.Failed() {
			_ = dec.Close()
			delete(r.pool, path)
			continue
		}
		dec.SetForwardThreshold(threshold)
	}
}

// SetClipEffects installs colour parameters for one clip. Cached frames have
// the old pass baked in, so the cache is dropped.
func (r *Renderer) SetClipEffects(clipID uint64, p EffectParams) {
	r.effects[clipID] = p
	r.cache.Clear()
}

func (r *Renderer) ClearClipEffects(clipID uint64) {
	delete(r.effects, clipID)
	r.cache.Clear()
}

func (r *Renderer) ClearCache() { r.cache.Clear() }

func (r *Renderer) CacheStats() CacheStats { return r.cache.Stats() }

func (r *Renderer) rendered(f *media.Frame, tMs int64) RenderedFrame {
	return RenderedFrame{
		Width:       f.Width,
		Height:      f.Height,
		Data:        f.Data,
		IsYUV:       f.Format == media.PixelFormatYUV420P,
		TimestampMs: tMs,
	}
}

func (r *Renderer) blackFrame(tMs int64) RenderedFrame {
	return r.rendered(media.BlackFrame(r.opts.Width, r.opts.Height, r.pixelFormat(), tMs), tMs)
}

// fallback is the never-fail answer: the last rendered frame if any, else
// black. Playback must not stall.
func (r *Renderer) fallback(tMs int64) RenderedFrame {
	if r.lastFrame != nil {
		return r.rendered(r.lastFrame, tMs)
	}
	return r.blackFrame(tMs)
}

// ensureDecoder returns the pooled decoder for path, dropping a failed one
// and opening fresh when needed.
func (r *Renderer) ensureDecoder(path string) (frameDecoder, error) {
	if dec, ok := r.pool[path]; ok {
		if !dec.Failed() {
			return dec, nil
		}
		_ = dec.Close()
		delete(r.pool, path)
	}
	dec, err := r.openDecoder(path)
	if err != nil {
		return nil, err
	}
	dec.SetForwardThreshold(r.forwardThresholdMs())
	r.pool[path] = dec
	return dec, nil
}

// RenderFrame is total over a valid timeline: it always returns a frame.
// Resolution order: no active clip -> black; cache hit -> retimed cached
// frame; decode -> effects -> cache -> return.
func (r *Renderer) RenderFrame(tMs int64) RenderedFrame {
	clip, ok := r.tl.VideoClipAt(tMs)
	if !ok {
		return r.blackFrame(tMs)
	}
	sourceMs, ok := clip.TimelineToSourceTime(tMs)
	if !ok {
		return r.blackFrame(tMs)
	}

	if f := r.cache.Get(clip.FilePath, sourceMs); f != nil {
		return r.rendered(f, tMs)
	}

	dec, err := r.ensureDecoder(clip.FilePath)
	if err != nil {
		log.Printf("[render] open %s: %v", clip.FilePath, err)
		return r.fallback(tMs)
	}

	res := dec.DecodeFrame(sourceMs)
	if dec.Failed() {
		// one reopen, then give up for this tick
		_ = dec.Close()
		delete(r.pool, clip.FilePath)
		if dec, err = r.ensureDecoder(clip.FilePath); err == nil {
			res = dec.DecodeFrame(sourceMs)
		} else {
			log.Printf("[render] reopen %s: %v", clip.FilePath, err)
			return r.fallback(tMs)
		}
	}

	switch res.Outcome {
	case media.OutcomeFrame:
		f := res.Frame
		if r.opts.Mode == ModePreview {
			if p, ok := r.effects[clip.ID]; ok && !p.IsDefault() {
				ApplyEffects(f.Data, f.Width, f.Height, p)
			}
		}
		r.cache.Put(clip.FilePath, sourceMs, f)
		r.lastFrame = f
		return r.rendered(f, tMs)
	case media.OutcomeFrameSkipped:
		return r.fallback(tMs)
	case media.OutcomeEndOfStream:
		r.lastFrame = res.Frame
		return r.rendered(res.Frame, tMs)
	default: // OutcomeEndOfStreamEmpty
		return r.fallback(tMs)
	}
}

// Close releases every pooled decoder.
func (r *Renderer) Close() {
	for path, dec := range r.pool {
		_ = dec.Close()
		delete(r.pool, path)
	}
}
