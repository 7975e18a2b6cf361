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
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestIsASCII(t *testing.T) {
	if !isASCII("C:\\videos\\out.mp4") {
		t.Fatal("plain path misdetected")
	}
	if isASCII("C:\\비디오\\out.mp4") {
		t.Fatal("korean path misdetected")
	}
}

func TestSafeEncoderPathASCIIPassesThrough(t *testing.T) {
	path, needsMove := safeEncoderPath("/tmp/out.mp4")
	if path != "/tmp/out.mp4" || needsMove {
		t.Fatalf("path=%q needsMove=%v", path, needsMove)
	}
}

func TestSafeEncoderPathNonASCIIUsesTemp(t *testing.T) {
	if !isASCII(os.TempDir()) {
		t.Skip("temp dir is not ASCII on this host")
	}

	path, needsMove := safeEncoderPath("C:\\비디오\\out.mp4")
	if !needsMove {
		t.Fatal("non-ASCII destination must be redirected")
	}
	if !strings.HasPrefix(filepath.Base(path), "vortex_export_") {
		t.Fatalf("temp name = %q", filepath.Base(path))
	}
	if !strings.HasSuffix(path, ".mp4") {
		t.Fatalf("extension lost: %q", path)
	}
	if !isASCII(path) {
		t.Fatalf("redirected path still non-ASCII: %q", path)
	}
}

func TestTempExportNameKeepsExtension(t *testing.T) {
	name := tempExportName("D:\\영상\\clip.mkv")
	want := fmt.Sprintf("vortex_export_%d.mkv", os.Getpid())
	if name != want {
		t.Fatalf("name = %q, want %q", name, want)
	}
	if got := tempExportName("out"); !strings.HasSuffix(got, ".mp4") {
		t.Fatalf("default extension = %q", got)
	}
}

func TestMoveFileRename(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.mp4")
	dst := filepath.Join(dir, "nested", "dir", "dst.mp4")

	if err := os.WriteFile(src, []byte("payload"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := moveFile(src, dst); err != nil {
		t.Fatalf("moveFile: %v", err)
	}

	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatal("source still exists")
	}
	got, err := os.ReadFile(dst)
	if err != nil || string(got) != "payload" {
		t.Fatalf("dst content = %q err=%v", got, err)
	}
}

func TestFormatNameForPath(t *testing.T) {
	cases := map[string]string{
		"a.mp4":  "mp4",
		"a.MOV":  "mov",
		"a.mkv":  "matroska",
		"a.webm": "webm",
		"a.avi":  "mp4",
		"a":      "mp4",
	}
	for path, want := range cases {
		if got := formatNameForPath(path); got != want {
			t.Fatalf("%s -> %s, want %s", path, got, want)
		}
	}
}
