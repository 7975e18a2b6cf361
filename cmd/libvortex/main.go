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

// The C ABI the editor host embeds. Build with:
//
//	go build -buildmode=c-shared -o libvortex.so ./cmd/libvortex
//
// Handles are opaque integers; status codes follow the codes below; every
// buffer or string the library returns is freed by the host through the
// matching *_free call. Output parameters are written on success only.
//
// Preview rendering is fixed at 960x540 RGBA; larger hosts upscale on
// their side.
package main

/*
#include <stdint.h>
#include <stdlib.h>
*/
import "C"

import (
	"runtime/cgo"
	"sync"
	"unsafe"

	"github.com/littledevmars/vortexcut/internal/app"
	"github.com/littledevmars/vortexcut/internal/encode"
	"github.com/littledevmars/vortexcut/internal/media"
	"github.com/littledevmars/vortexcut/internal/render"
	"github.com/littledevmars/vortexcut/internal/subtitle"
	"github.com/littledevmars/vortexcut/internal/timeline"
)

const (
	statusSuccess      = 0
	statusNullPointer  = 1
	statusInvalidParam = 2
	statusFfmpeg       = 3
	statusIO           = 4
	statusUnknown      = 99
)

var initOnce sync.Once

func engineInit() {
	initOnce.Do(func() {
		app.InitLogging()
	})
}

// rendererHandle guards the preview renderer. The render entry point uses
// TryLock: a contended tick returns a zero-sized skip sentinel instead of
// blocking the UI.
type rendererHandle struct {
	mu sync.Mutex
	r  *render.Renderer
}

func timelineFrom(h C.uintptr_t) *timeline.Shared {
	v, ok := cgo.Handle(h).Value().(*timeline.Shared)
	if !ok {
		return nil
	}
	return v
}

func cBytes(b []byte) (*C.uint8_t, C.size_t) {
	if len(b) == 0 {
		return nil, 0
	}
	return (*C.uint8_t)(C.CBytes(b)), C.size_t(len(b))
}

// ---- timeline ----

//export timeline_create
func timeline_create(width, height C.uint32_t, fps C.double, outTimeline *C.uintptr_t) C.int32_t {
	if outTimeline == nil {
		return statusNullPointer
	}
	if width == 0 || height == 0 || fps <= 0 {
		return statusInvalidParam
	}
	engineInit()

	tl := timeline.NewShared(timeline.New(uint32(width), uint32(height), float64(fps)))
	*outTimeline = C.uintptr_t(cgo.NewHandle(tl))
	return statusSuccess
}

//export timeline_destroy
func timeline_destroy(h C.uintptr_t) C.int32_t {
	if h == 0 {
		return statusNullPointer
	}
	cgo.Handle(h).Delete()
	return statusSuccess
}

//export timeline_add_video_track
func timeline_add_video_track(h C.uintptr_t, outTrackID *C.uint64_t) C.int32_t {
	if h == 0 || outTrackID == nil {
		return statusNullPointer
	}
	tl := timelineFrom(h)
	if tl == nil {
		return statusInvalidParam
	}
	var id uint64
	tl.WithLock(func(t *timeline.Timeline) { id = t.AddVideoTrack() })
	*outTrackID = C.uint64_t(id)
	return statusSuccess
}

//export timeline_add_audio_track
func timeline_add_audio_track(h C.uintptr_t, outTrackID *C.uint64_t) C.int32_t {
	if h == 0 || outTrackID == nil {
		return statusNullPointer
	}
	tl := timelineFrom(h)
	if tl == nil {
		return statusInvalidParam
	}
	var id uint64
	tl.WithLock(func(t *timeline.Timeline) { id = t.AddAudioTrack() })
	*outTrackID = C.uint64_t(id)
	return statusSuccess
}

//export timeline_add_video_clip
func timeline_add_video_clip(h C.uintptr_t, trackID C.uint64_t, filePath *C.char,
	startTimeMs, durationMs C.int64_t, outClipID *C.uint64_t) C.int32_t {
	if h == 0 || filePath == nil || outClipID == nil {
		return statusNullPointer
	}
	if durationMs <= 0 {
		return statusInvalidParam
	}
	tl := timelineFrom(h)
	if tl == nil {
		return statusInvalidParam
	}

	var (
		id uint64
		ok bool
	)
	path := C.GoString(filePath)
	tl.WithLock(func(t *timeline.Timeline) {
		id, ok = t.AddVideoClip(uint64(trackID), path, int64(startTimeMs), int64(durationMs))
	})
	if !ok {
		return statusInvalidParam
	}
	*outClipID = C.uint64_t(id)
	return statusSuccess
}

//export timeline_add_audio_clip
func timeline_add_audio_clip(h C.uintptr_t, trackID C.uint64_t, filePath *C.char,
	startTimeMs, durationMs C.int64_t, outClipID *C.uint64_t) C.int32_t {
	if h == 0 || filePath == nil || outClipID == nil {
		return statusNullPointer
	}
	if durationMs <= 0 {
		return statusInvalidParam
	}
	tl := timelineFrom(h)
	if tl == nil {
		return statusInvalidParam
	}

	var (
		id uint64
		ok bool
	)
	path := C.GoString(filePath)
	tl.WithLock(func(t *timeline.Timeline) {
		id, ok = t.AddAudioClip(uint64(trackID), path, int64(startTimeMs), int64(durationMs))
	})
	if !ok {
		return statusInvalidParam
	}
	*outClipID = C.uint64_t(id)
	return statusSuccess
}

//export timeline_remove_video_clip
func timeline_remove_video_clip(h C.uintptr_t, trackID, clipID C.uint64_t) C.int32_t {
	if h == 0 {
		return statusNullPointer
	}
	tl := timelineFrom(h)
	if tl == nil {
		return statusInvalidParam
	}
	var ok bool
	tl.WithLock(func(t *timeline.Timeline) {
		ok = t.RemoveVideoClip(uint64(trackID), uint64(clipID))
	})
	if !ok {
		return statusInvalidParam
	}
	return statusSuccess
}

//export timeline_remove_audio_clip
func timeline_remove_audio_clip(h C.uintptr_t, trackID, clipID C.uint64_t) C.int32_t {
	if h == 0 {
		return statusNullPointer
	}
	tl := timelineFrom(h)
	if tl == nil {
		return statusInvalidParam
	}
	var ok bool
	tl.WithLock(func(t *timeline.Timeline) {
		ok = t.RemoveAudioClip(uint64(trackID), uint64(clipID))
	})
	if !ok {
		return statusInvalidParam
	}
	return statusSuccess
}

//export timeline_get_duration
func timeline_get_duration(h C.uintptr_t, outDurationMs *C.int64_t) C.int32_t {
	if h == 0 || outDurationMs == nil {
		return statusNullPointer
	}
	tl := timelineFrom(h)
	if tl == nil {
		return statusInvalidParam
	}
	*outDurationMs = C.int64_t(tl.DurationMs())
	return statusSuccess
}

//export timeline_get_video_track_count
func timeline_get_video_track_count(h C.uintptr_t, outCount *C.size_t) C.int32_t {
	if h == 0 || outCount == nil {
		return statusNullPointer
	}
	tl := timelineFrom(h)
	if tl == nil {
		return statusInvalidParam
	}
	var n int
	tl.WithLock(func(t *timeline.Timeline) { n = t.VideoTrackCount() })
	*outCount = C.size_t(n)
	return statusSuccess
}

//export timeline_get_audio_track_count
func timeline_get_audio_track_count(h C.uintptr_t, outCount *C.size_t) C.int32_t {
	if h == 0 || outCount == nil {
		return statusNullPointer
	}
	tl := timelineFrom(h)
	if tl == nil {
		return statusInvalidParam
	}
	var n int
	tl.WithLock(func(t *timeline.Timeline) { n = t.AudioTrackCount() })
	*outCount = C.size_t(n)
	return statusSuccess
}

// ---- renderer ----

//export renderer_create
func renderer_create(timelineH C.uintptr_t, outRenderer *C.uintptr_t) C.int32_t {
	if timelineH == 0 || outRenderer == nil {
		return statusNullPointer
	}
	tl := timelineFrom(timelineH)
	if tl == nil {
		return statusInvalidParam
	}
	engineInit()

	cfg := app.LoadConfig()
	opts := render.PreviewOptions()
	opts.CacheEntries = cfg.PreviewCacheEntries
	opts.CacheBytes = cfg.PreviewCacheBytes
	opts.ForwardThresholdMs = cfg.ScrubForwardThresholdMs

	rh := &rendererHandle{r: render.NewWithOptions(tl, opts)}
	*outRenderer = C.uintptr_t(cgo.NewHandle(rh))
	return statusSuccess
}

//export renderer_destroy
func renderer_destroy(h C.uintptr_t) C.int32_t {
	if h == 0 {
		return statusNullPointer
	}
	rh, ok := cgo.Handle(h).Value().(*rendererHandle)
	if !ok {
		return statusInvalidParam
	}
	rh.mu.Lock()
	rh.r.Close()
	rh.mu.Unlock()
	cgo.Handle(h).Delete()
	return statusSuccess
}

//export renderer_render_frame
func renderer_render_frame(h C.uintptr_t, timestampMs C.int64_t,
	outWidth, outHeight *C.uint32_t, outData **C.uint8_t, outDataSize *C.size_t) C.int32_t {
	if h == 0 || outWidth == nil || outHeight == nil || outData == nil || outDataSize == nil {
		return statusNullPointer
	}
	rh, ok := cgo.Handle(h).Value().(*rendererHandle)
	if !ok {
		return statusInvalidParam
	}

	// A slow decode on one tick must not stall the next: contended calls
	// report a skipped frame (zero-sized) instead of blocking.
	if !rh.mu.TryLock() {
		*outWidth = 0
		*outHeight = 0
		*outData = nil
		*outDataSize = 0
		return statusSuccess
	}
	frame := rh.r.RenderFrame(int64(timestampMs))
	rh.mu.Unlock()

	data, size := cBytes(frame.Data)
	*outWidth = C.uint32_t(frame.Width)
	*outHeight = C.uint32_t(frame.Height)
	*outData = data
	*outDataSize = size
	return statusSuccess
}

//export renderer_set_playback_mode
func renderer_set_playback_mode(h C.uintptr_t, playback C.int32_t) C.int32_t {
	if h == 0 {
		return statusNullPointer
	}
	rh, ok := cgo.Handle(h).Value().(*rendererHandle)
	if !ok {
		return statusInvalidParam
	}
	rh.mu.Lock()
	rh.r.SetPlaybackMode(playback != 0)
	rh.mu.Unlock()
	return statusSuccess
}

//export renderer_set_clip_effects
func renderer_set_clip_effects(h C.uintptr_t, clipID C.uint64_t,
	brightness, contrast, saturation, temperature C.float) C.int32_t {
	if h == 0 {
		return statusNullPointer
	}
	rh, ok := cgo.Handle(h).Value().(*rendererHandle)
	if !ok {
		return statusInvalidParam
	}
	rh.mu.Lock()
	rh.r.SetClipEffects(uint64(clipID), render.EffectParams{
		Brightness:  float32(brightness),
		Contrast:    float32(contrast),
		Saturation:  float32(saturation),
		Temperature: float32(temperature),
	})
	rh.mu.Unlock()
	return statusSuccess
}

//export renderer_clear_clip_effects
func renderer_clear_clip_effects(h C.uintptr_t, clipID C.uint64_t) C.int32_t {
	if h == 0 {
		return statusNullPointer
	}
	rh, ok := cgo.Handle(h).Value().(*rendererHandle)
	if !ok {
		return statusInvalidParam
	}
	rh.mu.Lock()
	rh.r.ClearClipEffects(uint64(clipID))
	rh.mu.Unlock()
	return statusSuccess
}

//export renderer_clear_cache
func renderer_clear_cache(h C.uintptr_t) C.int32_t {
	if h == 0 {
		return statusNullPointer
	}
	rh, ok := cgo.Handle(h).Value().(*rendererHandle)
	if !ok {
		return statusInvalidParam
	}
	rh.mu.Lock()
	rh.r.ClearCache()
	rh.mu.Unlock()
	return statusSuccess
}

//export renderer_cache_stats
func renderer_cache_stats(h C.uintptr_t, outEntries *C.size_t, outBytes *C.int64_t,
	outHits, outMisses *C.uint64_t) C.int32_t {
	if h == 0 || outEntries == nil || outBytes == nil || outHits == nil || outMisses == nil {
		return statusNullPointer
	}
	rh, ok := cgo.Handle(h).Value().(*rendererHandle)
	if !ok {
		return statusInvalidParam
	}
	rh.mu.Lock()
	s := rh.r.CacheStats()
	rh.mu.Unlock()

	*outEntries = C.size_t(s.Entries)
	*outBytes = C.int64_t(s.Bytes)
	*outHits = C.uint64_t(s.Hits)
	*outMisses = C.uint64_t(s.Misses)
	return statusSuccess
}

//export renderer_free_frame_data
func renderer_free_frame_data(data *C.uint8_t, size C.size_t) C.int32_t {
	if data == nil {
		return statusNullPointer
	}
	C.free(unsafe.Pointer(data))
	return statusSuccess
}

// ---- subtitle overlays ----

//export subtitle_list_create
func subtitle_list_create(outList *C.uintptr_t) C.int32_t {
	if outList == nil {
		return statusNullPointer
	}
	*outList = C.uintptr_t(cgo.NewHandle(subtitle.NewOverlayList()))
	return statusSuccess
}

//export subtitle_list_add
func subtitle_list_add(h C.uintptr_t, startMs, endMs C.int64_t, x, y C.int32_t,
	width, height C.uint32_t, rgba *C.uint8_t, rgbaLen C.size_t) C.int32_t {
	if h == 0 || rgba == nil {
		return statusNullPointer
	}
	list, ok := cgo.Handle(h).Value().(*subtitle.OverlayList)
	if !ok {
		return statusInvalidParam
	}
	need := int(width) * int(height) * 4
	if need == 0 || int(rgbaLen) < need {
		return statusInvalidParam
	}
	list.Add(subtitle.Overlay{
		StartMs: int64(startMs),
		EndMs:   int64(endMs),
		X:       int32(x),
		Y:       int32(y),
		Width:   uint32(width),
		Height:  uint32(height),
		RGBA:    C.GoBytes(unsafe.Pointer(rgba), C.int(need)),
	})
	return statusSuccess
}

//export subtitle_list_free
func subtitle_list_free(h C.uintptr_t) C.int32_t {
	if h == 0 {
		return statusNullPointer
	}
	cgo.Handle(h).Delete()
	return statusSuccess
}

// ---- export ----

//export exporter_start
func exporter_start(timelineH C.uintptr_t, outputPath *C.char,
	width, height C.uint32_t, fps C.double, crf C.uint32_t, outJob *C.uintptr_t) C.int32_t {
	return exporterStart(timelineH, outputPath, width, height, fps, crf, 0, outJob)
}

//export exporter_start_with_subtitles
func exporter_start_with_subtitles(timelineH C.uintptr_t, outputPath *C.char,
	width, height C.uint32_t, fps C.double, crf C.uint32_t,
	subtitlesH C.uintptr_t, outJob *C.uintptr_t) C.int32_t {
	return exporterStart(timelineH, outputPath, width, height, fps, crf, subtitlesH, outJob)
}

func exporterStart(timelineH C.uintptr_t, outputPath *C.char,
	width, height C.uint32_t, fps C.double, crf C.uint32_t,
	subtitlesH C.uintptr_t, outJob *C.uintptr_t) C.int32_t {
	if timelineH == 0 || outputPath == nil || outJob == nil {
		return statusNullPointer
	}
	if width == 0 || height == 0 || fps <= 0 {
		return statusInvalidParam
	}
	tl := timelineFrom(timelineH)
	if tl == nil {
		return statusInvalidParam
	}
	engineInit()

	var subs *subtitle.OverlayList
	if subtitlesH != 0 {
		s, ok := cgo.Handle(subtitlesH).Value().(*subtitle.OverlayList)
		if !ok {
			return statusInvalidParam
		}
		subs = s
	}

	job := encode.Start(tl, encode.Config{
		OutputPath: C.GoString(outputPath),
		Width:      uint32(width),
		Height:     uint32(height),
		FPS:        float64(fps),
		CRF:        uint32(crf),
	}, subs)

	*outJob = C.uintptr_t(cgo.NewHandle(job))
	return statusSuccess
}

//export exporter_get_progress
func exporter_get_progress(h C.uintptr_t) C.uint32_t {
	if h == 0 {
		return 0
	}
	job, ok := cgo.Handle(h).Value().(*encode.Job)
	if !ok {
		return 0
	}
	return C.uint32_t(job.Progress())
}

//export exporter_is_finished
func exporter_is_finished(h C.uintptr_t) C.int32_t {
	if h == 0 {
		return 1 // a missing job counts as done
	}
	job, ok := cgo.Handle(h).Value().(*encode.Job)
	if !ok {
		return 1
	}
	if job.IsFinished() {
		return 1
	}
	return 0
}

//export exporter_get_error
func exporter_get_error(h C.uintptr_t, outError **C.char) C.int32_t {
	if h == 0 || outError == nil {
		return statusNullPointer
	}
	job, ok := cgo.Handle(h).Value().(*encode.Job)
	if !ok {
		return statusInvalidParam
	}
	if msg := job.Err(); msg != "" {
		*outError = C.CString(msg)
	} else {
		*outError = nil
	}
	return statusSuccess
}

//export exporter_cancel
func exporter_cancel(h C.uintptr_t) C.int32_t {
	if h == 0 {
		return statusNullPointer
	}
	job, ok := cgo.Handle(h).Value().(*encode.Job)
	if !ok {
		return statusInvalidParam
	}
	job.Cancel()
	return statusSuccess
}

//export exporter_destroy
func exporter_destroy(h C.uintptr_t) C.int32_t {
	if h == 0 {
		return statusNullPointer
	}
	cgo.Handle(h).Delete()
	return statusSuccess
}

// ---- media probes ----

//export get_video_info
func get_video_info(filePath *C.char, outDurationMs *C.int64_t,
	outWidth, outHeight *C.uint32_t, outFps *C.double) C.int32_t {
	if filePath == nil || outDurationMs == nil || outWidth == nil || outHeight == nil || outFps == nil {
		return statusNullPointer
	}
	engineInit()

	info, err := media.ProbeVideoInfo(C.GoString(filePath))
	if err != nil {
		return statusFfmpeg
	}
	*outDurationMs = C.int64_t(info.DurationMs)
	*outWidth = C.uint32_t(info.Width)
	*outHeight = C.uint32_t(info.Height)
	*outFps = C.double(info.FPS)
	return statusSuccess
}

//export generate_video_thumbnail
func generate_video_thumbnail(filePath *C.char, timestampMs C.int64_t,
	thumbWidth, thumbHeight C.uint32_t,
	outWidth, outHeight *C.uint32_t, outData **C.uint8_t, outDataSize *C.size_t) C.int32_t {
	if filePath == nil || outWidth == nil || outHeight == nil || outData == nil || outDataSize == nil {
		return statusNullPointer
	}
	if thumbWidth == 0 || thumbHeight == 0 {
		return statusInvalidParam
	}
	engineInit()

	frame, err := media.GenerateThumbnail(C.GoString(filePath), int64(timestampMs),
		uint32(thumbWidth), uint32(thumbHeight))
	if err != nil {
		return statusFfmpeg
	}
	writeThumbFrame(frame, outWidth, outHeight, outData, outDataSize)
	return statusSuccess
}

//export thumbnail_session_create
func thumbnail_session_create(filePath *C.char, thumbWidth, thumbHeight C.uint32_t,
	outSession *C.uintptr_t, outDurationMs *C.int64_t, outFps *C.double) C.int32_t {
	if filePath == nil || outSession == nil || outDurationMs == nil || outFps == nil {
		return statusNullPointer
	}
	if thumbWidth == 0 || thumbHeight == 0 {
		return statusInvalidParam
	}
	engineInit()

	s, err := media.OpenThumbnailSession(C.GoString(filePath), uint32(thumbWidth), uint32(thumbHeight))
	if err != nil {
		return statusFfmpeg
	}
	*outSession = C.uintptr_t(cgo.NewHandle(s))
	*outDurationMs = C.int64_t(s.DurationMs())
	*outFps = C.double(s.FPS())
	return statusSuccess
}

//export thumbnail_session_generate
func thumbnail_session_generate(h C.uintptr_t, timestampMs C.int64_t,
	outWidth, outHeight *C.uint32_t, outData **C.uint8_t, outDataSize *C.size_t) C.int32_t {
	if h == 0 || outWidth == nil || outHeight == nil || outData == nil || outDataSize == nil {
		return statusNullPointer
	}
	s, ok := cgo.Handle(h).Value().(*media.ThumbnailSession)
	if !ok {
		return statusInvalidParam
	}
	writeThumbFrame(s.Generate(int64(timestampMs)), outWidth, outHeight, outData, outDataSize)
	return statusSuccess
}

// writeThumbFrame fills the thumbnail out-params; a nil frame becomes the
// zero-sized "skip this slot" result.
func writeThumbFrame(frame *media.Frame,
	outWidth, outHeight *C.uint32_t, outData **C.uint8_t, outDataSize *C.size_t) {
	if frame == nil {
		*outWidth = 0
		*outHeight = 0
		*outData = nil
		*outDataSize = 0
		return
	}
	data, size := cBytes(frame.Data)
	*outWidth = C.uint32_t(frame.Width)
	*outHeight = C.uint32_t(frame.Height)
	*outData = data
	*outDataSize = size
}

//export thumbnail_session_destroy
func thumbnail_session_destroy(h C.uintptr_t) C.int32_t {
	if h == 0 {
		return statusNullPointer
	}
	s, ok := cgo.Handle(h).Value().(*media.ThumbnailSession)
	if ok {
		_ = s.Close()
	}
	cgo.Handle(h).Delete()
	return statusSuccess
}

//export extract_audio_peaks
func extract_audio_peaks(filePath *C.char, samplesPerPeak C.uint32_t,
	outPeaks **C.float, outPeakCount, outChannels, outSampleRate *C.uint32_t,
	outDurationMs *C.int64_t) C.int32_t {
	if filePath == nil || outPeaks == nil || outPeakCount == nil ||
		outChannels == nil || outSampleRate == nil || outDurationMs == nil {
		return statusNullPointer
	}
	if samplesPerPeak == 0 {
		return statusInvalidParam
	}
	engineInit()

	res, err := media.ExtractAudioPeaks(C.GoString(filePath), uint32(samplesPerPeak))
	if err != nil {
		return statusFfmpeg
	}

	var peaks *C.float
	if n := len(res.Peaks); n > 0 {
		peaks = (*C.float)(C.malloc(C.size_t(n * 4)))
		dst := unsafe.Slice((*float32)(unsafe.Pointer(peaks)), n)
		copy(dst, res.Peaks)
	}

	*outPeaks = peaks
	*outPeakCount = C.uint32_t(len(res.Peaks))
	*outChannels = C.uint32_t(res.Channels)
	*outSampleRate = C.uint32_t(res.SampleRate)
	*outDurationMs = C.int64_t(res.DurationMs)
	return statusSuccess
}

//export free_audio_peaks
func free_audio_peaks(peaks *C.float, count C.uint32_t) C.int32_t {
	if peaks == nil {
		return statusNullPointer
	}
	C.free(unsafe.Pointer(peaks))
	return statusSuccess
}

//export string_free
func string_free(s *C.char) {
	if s != nil {
		C.free(unsafe.Pointer(s))
	}
}

func main() {}
