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
package app

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	astiav "github.com/asticode/go-astiav"
)

var logOnce sync.Once

// InitLogging points the standard logger at ~/.config/vortexcut/debug.log
// and routes FFmpeg's own log stream into it. VORTEX_DEBUG=true mirrors
// everything to stdout.
func InitLogging() {
	logOnce.Do(initLogging)
}

func initLogging() {
	debug := os.Getenv("VORTEX_DEBUG") == "true"

	dir := ConfigDir()
	if dir != "" {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			_ = os.MkdirAll(dir, 0o755)
		}
		file, err := os.OpenFile(filepath.Join(dir, "debug.log"),
			os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o666)
		if err == nil {
			if debug {
				log.SetOutput(io.MultiWriter(file, os.Stdout))
			} else {
				log.SetOutput(file)
			}
		}
	}
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// FFmpeg logs go through the same sink. Warnings and up unless the host
	// asked for everything.
	if debug {
		astiav.SetLogLevel(astiav.LogLevelDebug)
	} else {
		astiav.SetLogLevel(astiav.LogLevelWarning)
	}
	astiav.SetLogCallback(func(c astiav.Classer, l astiav.LogLevel, fmt, msg string) {
		log.Printf("ffmpeg: %s (level %d)", strings.TrimSpace(msg), l)
	})
}
