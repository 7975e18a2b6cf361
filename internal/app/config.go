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
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v2"
)

const appName = "vortexcut"

var configMu sync.Mutex

// Config carries the engine's tuning knobs. Hosts rarely touch these; the
// zero-value file (or no file at all) yields the calibrated defaults.
type Config struct {
	PreviewCacheEntries int   `yaml:"preview_cache_entries,omitempty"`
	PreviewCacheBytes   int64 `yaml:"preview_cache_bytes,omitempty"`
	ExportCacheEntries  int   `yaml:"export_cache_entries,omitempty"`
	ExportCacheBytes    int64 `yaml:"export_cache_bytes,omitempty"`

	ScrubForwardThresholdMs    int64 `yaml:"scrub_forward_threshold_ms,omitempty"`
	PlaybackForwardThresholdMs int64 `yaml:"playback_forward_threshold_ms,omitempty"`
	ExportForwardThresholdMs   int64 `yaml:"export_forward_threshold_ms,omitempty"`

	Debug bool `yaml:"debug,omitempty"`
}

// DefaultConfig returns the calibrated engine defaults.
func DefaultConfig() Config {
	return Config{
		PreviewCacheEntries:        60,
		PreviewCacheBytes:          200 << 20,
		ExportCacheEntries:         5,
		ExportCacheBytes:           50 << 20,
		ScrubForwardThresholdMs:    100,
		PlaybackForwardThresholdMs: 5000,
		ExportForwardThresholdMs:   5000,
	}
}

// fillDefaults patches zero fields so a partial file keeps the calibrated
// values for everything it omits.
func (c *Config) fillDefaults() {
	d := DefaultConfig()
	if c.PreviewCacheEntries <= 0 {
		c.PreviewCacheEntries = d.PreviewCacheEntries
	}
	if c.PreviewCacheBytes <= 0 {
		c.PreviewCacheBytes = d.PreviewCacheBytes
	}
	if c.ExportCacheEntries <= 0 {
		c.ExportCacheEntries = d.ExportCacheEntries
	}
	if c.ExportCacheBytes <= 0 {
		c.ExportCacheBytes = d.ExportCacheBytes
	}
	if c.ScrubForwardThresholdMs <= 0 {
		c.ScrubForwardThresholdMs = d.ScrubForwardThresholdMs
	}
	if c.PlaybackForwardThresholdMs <= 0 {
		c.PlaybackForwardThresholdMs = d.PlaybackForwardThresholdMs
	}
	if c.ExportForwardThresholdMs <= 0 {
		c.ExportForwardThresholdMs = d.ExportForwardThresholdMs
	}
}

// ConfigDir is ~/.config/vortexcut.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", appName)
}

func configFile() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "engine.yml")
}

// LoadConfig reads the engine config file, falling back to defaults when it
// is absent or unreadable.
func LoadConfig() Config {
	cfg := DefaultConfig()
	path := configFile()
	if path == "" {
		return cfg
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}
	var loaded Config
	if err := yaml.Unmarshal(b, &loaded); err != nil {
		return cfg
	}
	loaded.fillDefaults()
	return loaded
}

// SaveConfig persists the config atomically: write to tmp then rename.
func SaveConfig(cfg Config) error {
	configMu.Lock()
	defer configMu.Unlock()

	dir := ConfigDir()
	if dir == "" {
		return os.ErrNotExist
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	path := configFile()
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(f)

	if err := enc.Encode(&cfg); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
