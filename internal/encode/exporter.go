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
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/littledevmars/vortexcut/internal/audio"
	"github.com/littledevmars/vortexcut/internal/render"
	"github.com/littledevmars/vortexcut/internal/subtitle"
	"github.com/littledevmars/vortexcut/internal/timeline"
)

// Config is the export request.
type Config struct {
	OutputPath string
	Width      uint32
	Height     uint32
	FPS        float64
	CRF        uint32
}

// Narrow seams around the worker's collaborators so the loop is testable
// without FFmpeg.

type frameRenderer interface {
	RenderFrame(tMs int64) render.RenderedFrame
	Close()
}

type audioMixer interface {
	MixRange(clips []timeline.AudioClip, startMs int64, windowMs float64) []int16
	Close()
}

type frameSink interface {
	InitAudio(sampleRate, channels, bitRate int) error
	WriteHeader() error
	EncodeFrameRGBA(data []byte, width, height uint32) error
	EncodeFrameYUV(data []byte, width, height uint32) error
	EncodeAudio(samples []int16) error
	Finish() error
	Close()
}

type deps struct {
	newRenderer func(tl *timeline.Shared, w, h uint32) frameRenderer
	newMixer    func() audioMixer
	openEncoder func(path string, w, h uint32, fps float64, crf uint32) (frameSink, error)
	safePath    func(outputPath string) (string, bool)
	moveFile    func(src, dst string) error
	removeFile  func(path string) error
}

func defaultDeps() deps {
	return deps{
		newRenderer: func(tl *timeline.Shared, w, h uint32) frameRenderer {
			return render.NewForExport(tl, w, h)
		},
		newMixer: func() audioMixer { return audio.NewMixer() },
		openEncoder: func(path string, w, h uint32, fps float64, crf uint32) (frameSink, error) {
			return NewVideoEncoder(path, w, h, fps, crf)
		},
		safePath:   safeEncoderPath,
		moveFile:   moveFile,
		removeFile: os.Remove,
	}
}

// errCancelled marks the cooperative termination path; it reaches the host
// as the job's error string but is a normal way for an export to end.
var errCancelled = errors.New("cancelled")

// Job is one background export. The host polls progress and flags; all
// fields are safe to read while the worker runs.
type Job struct {
	id string

	progress  atomic.Uint32
	cancelled atomic.Bool
	finished  atomic.Bool

	errMu  sync.Mutex
	errMsg string
}

// Start spawns the export worker.
func Start(tl *timeline.Shared, cfg Config, subs *subtitle.OverlayList) *Job {
	return startWithDeps(tl, cfg, subs, defaultDeps())
}

func startWithDeps(tl *timeline.Shared, cfg Config, subs *subtitle.OverlayList, d deps) *Job {
	j := &Job{id: uuid.NewString()}
	go j.run(tl, cfg, subs, d)
	return j
}

func (j *Job) run(tl *timeline.Shared, cfg Config, subs *subtitle.OverlayList, d deps) {
	if err := j.export(tl, cfg, subs, d); err != nil {
		j.errMu.Lock()
		j.errMsg = err.Error()
		j.errMu.Unlock()
		log.Printf("[EXPORT %.8s] failed: %v", j.id, err)
	} else {
		j.progress.Store(100)
		log.Printf("[EXPORT %.8s] done: %s", j.id, cfg.OutputPath)
	}
	j.finished.Store(true)
}

func (j *Job) export(tl *timeline.Shared, cfg Config, subs *subtitle.OverlayList, d deps) error {
	log.Printf("[EXPORT %.8s] start: %dx%d @ %.3ffps, CRF=%d, out=%s",
		j.id, cfg.Width, cfg.Height, cfg.FPS, cfg.CRF, cfg.OutputPath)

	if cfg.Width == 0 || cfg.Height == 0 || cfg.FPS <= 0 {
		return fmt.Errorf("invalid export geometry %dx%d@%f", cfg.Width, cfg.Height, cfg.FPS)
	}

	durationMs := tl.DurationMs()
	if durationMs <= 0 {
		return errors.New("timeline is empty")
	}

	renderer := d.newRenderer(tl, cfg.Width, cfg.Height)
	defer renderer.Close()
	mixer := d.newMixer()
	defer mixer.Close()

	encoderPath, needsMove := d.safePath(cfg.OutputPath)

	enc, err := d.openEncoder(encoderPath, cfg.Width, cfg.Height, cfg.FPS, cfg.CRF)
	if err != nil && needsMove {
		// the safe path may sit on a full or missing volume; the original
		// destination gets one more chance
		log.Printf("[EXPORT %.8s] safe path failed (%v), retrying destination", j.id, err)
		enc, err = d.openEncoder(cfg.OutputPath, cfg.Width, cfg.Height, cfg.FPS, cfg.CRF)
		encoderPath, needsMove = cfg.OutputPath, false
	}
	if err != nil {
		return fmt.Errorf("encoder open: %w", err)
	}
	defer enc.Close()

	if err := enc.InitAudio(audio.MixSampleRate, audio.MixChannels, 192000); err != nil {
		log.Printf("[EXPORT %.8s] audio init failed, video-only export: %v", j.id, err)
	}

	if err := enc.WriteHeader(); err != nil {
		return err
	}

	frameDurationMs := 1000.0 / cfg.FPS
	totalFrames := int64(math.Ceil(float64(durationMs) / frameDurationMs))
	log.Printf("[EXPORT %.8s] duration=%dms frames=%d", j.id, durationMs, totalFrames)

	for frameIndex := int64(0); ; frameIndex++ {
		if j.cancelled.Load() {
			log.Printf("[EXPORT %.8s] cancelled at frame %d/%d", j.id, frameIndex, totalFrames)
			_ = enc.Finish()
			_ = d.removeFile(encoderPath)
			return errCancelled
		}

		timestampMs := int64(float64(frameIndex) * frameDurationMs)
		if timestampMs >= durationMs {
			break
		}

		frame := renderer.RenderFrame(timestampMs)

		if overlay := subs.ActiveAt(timestampMs); overlay != nil {
			// subtitle frames take the RGBA round trip; clean frames keep
			// the lossless YUV path
			var rgba []byte
			if frame.IsYUV {
				rgba = subtitle.YUV420PToRGBA(frame.Data, frame.Width, frame.Height)
			} else {
				rgba = make([]byte, len(frame.Data))
				copy(rgba, frame.Data)
			}
			subtitle.BlendRGBA(rgba, frame.Width, frame.Height, overlay)
			yuv := subtitle.RGBAToYUV420P(rgba, frame.Width, frame.Height)
			if err := enc.EncodeFrameYUV(yuv, frame.Width, frame.Height); err != nil {
				return err
			}
		} else if frame.IsYUV {
			if err := enc.EncodeFrameYUV(frame.Data, frame.Width, frame.Height); err != nil {
				return err
			}
		} else {
			if err := enc.EncodeFrameRGBA(frame.Data, frame.Width, frame.Height); err != nil {
				return err
			}
		}

		clips := tl.AudioClipsAt(timestampMs)
		samples := mixer.MixRange(clips, timestampMs, frameDurationMs)
		if err := enc.EncodeAudio(samples); err != nil {
			return err
		}

		pct := (frameIndex + 1) * 100 / totalFrames
		if pct > 99 {
			pct = 99
		}
		j.progress.Store(uint32(pct))

		if (frameIndex+1)%300 == 0 {
			log.Printf("[EXPORT %.8s] progress %d/%d (%d%%)", j.id, frameIndex+1, totalFrames, pct)
		}
	}

	if err := enc.Finish(); err != nil {
		return err
	}

	if needsMove {
		log.Printf("[EXPORT %.8s] moving %s -> %s", j.id, encoderPath, cfg.OutputPath)
		if err := d.moveFile(encoderPath, cfg.OutputPath); err != nil {
			return err
		}
	}
	return nil
}

// Progress is 0..100.
func (j *Job) Progress() uint32 { return j.progress.Load() }

// Cancel requests cooperative termination; the loop observes it at the next
// frame boundary.
func (j *Job) Cancel() { j.cancelled.Store(true) }

func (j *Job) IsFinished() bool { return j.finished.Load() }

// Err returns the failure message, empty while running or after success.
func (j *Job) Err() string {
	j.errMu.Lock()
	defer j.errMu.Unlock()
	return j.errMsg
}
