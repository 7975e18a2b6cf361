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
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// The muxer's path handling chokes on some non-ASCII destinations, so
// exports write to a safe intermediate file and move it into place at the
// end.

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7f {
			return false
		}
	}
	return true
}

// tempExportName builds the intermediate file name from the pid and the
// destination's extension.
func tempExportName(outputPath string) string {
	ext := strings.TrimPrefix(filepath.Ext(outputPath), ".")
	if ext == "" {
		ext = "mp4"
	}
	return fmt.Sprintf("vortex_export_%d.%s", os.Getpid(), ext)
}

// safeEncoderPath returns the path the encoder should write to and whether
// the result must be moved to outputPath afterwards. ASCII destinations are
// used directly; otherwise the temp dir, then the drive root, then the
// original as a last resort.
func safeEncoderPath(outputPath string) (string, bool) {
	if isASCII(outputPath) {
		return outputPath, false
	}

	name := tempExportName(outputPath)
	tempPath := filepath.Join(os.TempDir(), name)
	if isASCII(tempPath) {
		log.Printf("[EXPORT] non-ASCII destination, writing to %s", tempPath)
		return tempPath, true
	}

	// Windows-style drive root fallback when TEMP itself is non-ASCII.
	if len(outputPath) >= 2 && outputPath[1] == ':' {
		rootTemp := fmt.Sprintf("%c:\\%s", outputPath[0], name)
		log.Printf("[EXPORT] TEMP is non-ASCII too, writing to %s", rootTemp)
		return rootTemp, true
	}

	return outputPath, false
}

// moveFile relocates the finished export: rename within a drive, copy plus
// delete across drives. Parent directories are created on demand.
func moveFile(src, dst string) error {
	if parent := filepath.Dir(dst); parent != "" && parent != "." {
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open intermediate file: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return fmt.Errorf("copy output file: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close output file: %w", err)
	}
	_ = os.Remove(src)
	return nil
}
