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
package preview

import (
	"encoding/binary"
	"io"
	"log"
	"sync"

	"github.com/hajimehoshi/oto/v2"
)

// Preview audio monitoring: the host pushes the mixer's interleaved PCM
// windows here while scrubbing or playing, and they go out through one
// shared Oto context.

var (
	globalCtx  *oto.Context
	globalMu   sync.Mutex
	globalRate int
	globalCh   int
)

// InitAudio initializes the global Oto context once. The first
// configuration wins; Oto mixes every player internally.
func InitAudio(sampleRate, channels int) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalCtx != nil {
		if globalRate != sampleRate || globalCh != channels {
			log.Printf("[preview] keeping existing audio context %d Hz/%d ch (requested %d/%d)",
				globalRate, globalCh, sampleRate, channels)
		}
		return nil
	}

	ctx, ready, err := oto.NewContext(sampleRate, channels, oto.FormatSignedInt16LE)
	if err != nil {
		return err
	}

	// Consume readiness asynchronously (required on some platforms).
	go func() {
		<-ready
		log.Printf("[preview] audio context ready")
	}()

	globalCtx = ctx
	globalRate = sampleRate
	globalCh = channels
	log.Printf("[preview] audio context initialized %d Hz/%d ch", globalRate, globalCh)
	return nil
}

// Player feeds PCM into the shared context through a pipe, so pushes are
// fire-and-forget from the render path.
type Player struct {
	player oto.Player
	pipeW  *io.PipeWriter
}

// NewPlayer starts a player on the shared context. InitAudio must have run.
func NewPlayer() *Player {
	globalMu.Lock()
	ctx := globalCtx
	globalMu.Unlock()
	if ctx == nil {
		log.Printf("[preview] NewPlayer before InitAudio")
		return nil
	}

	pr, pw := io.Pipe()
	p := ctx.NewPlayer(pr)
	if p == nil {
		_ = pw.Close()
		return nil
	}
	p.Play()
	return &Player{player: p, pipeW: pw}
}

// Push queues one interleaved S16 window. If the pipe back-pressures a bit,
// that's fine.
func (p *Player) Push(samples []int16) {
	if p == nil || p.pipeW == nil {
		return
	}
	raw := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(raw[i*2:], uint16(s))
	}
	_, _ = p.pipeW.Write(raw)
}

func (p *Player) Close() {
	if p == nil {
		return
	}
	if p.pipeW != nil {
		_ = p.pipeW.Close()
		p.pipeW = nil
	}
	if p.player != nil {
		_ = p.player.Close()
		p.player = nil
	}
}
