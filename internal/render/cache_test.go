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
	"bytes"
	"fmt"
	"testing"

	"github.com/littledevmars/vortexcut/internal/media"
)

func testFrame(fill byte, size int) *media.Frame {
	data := make([]byte, size)
	for i := range data {
		data[i] = fill
	}
	return &media.Frame{Width: 2, Height: 2, Format: media.PixelFormatRGBA, Data: data}
}

func TestCachePutGetRoundTrip(t *testing.T) {
	c := NewFrameCache(8, 1<<20)

	c.Put("a.mp4", 1000, testFrame(0x7f, 16))
	got := c.Get("a.mp4", 1000)
	if got == nil {
		t.Fatal("miss on just-inserted key")
	}
	if !bytes.Equal(got.Data, testFrame(0x7f, 16).Data) {
		t.Fatal("bytes differ")
	}

	c.Clear()
	if c.Get("a.mp4", 1000) != nil {
		t.Fatal("hit after clear")
	}
	if s := c.Stats(); s.Entries != 0 || s.Bytes != 0 {
		t.Fatalf("stats after clear: %+v", s)
	}
}

func TestCacheExactKeyOnly(t *testing.T) {
	c := NewFrameCache(8, 1<<20)
	c.Put("a.mp4", 1000, testFrame(1, 16))

	if c.Get("a.mp4", 1001) != nil {
		t.Fatal("nearest-neighbour hit must not happen")
	}
	if c.Get("b.mp4", 1000) != nil {
		t.Fatal("path is part of the key")
	}
}

func TestCacheEntryCapEvictsLRU(t *testing.T) {
	const cap = 4
	c := NewFrameCache(cap, 1<<20)

	for i := 0; i <= cap; i++ {
		c.Put("a.mp4", int64(i), testFrame(byte(i), 16))
	}

	if c.Get("a.mp4", 0) != nil {
		t.Fatal("oldest key must be evicted")
	}
	for i := 1; i <= cap; i++ {
		if c.Get("a.mp4", int64(i)) == nil {
			t.Fatalf("key %d missing", i)
		}
	}
}

func TestCacheByteBudgetEvicts(t *testing.T) {
	c := NewFrameCache(100, 64)

	c.Put("a.mp4", 0, testFrame(0, 32))
	c.Put("a.mp4", 1, testFrame(1, 32))
	c.Put("a.mp4", 2, testFrame(2, 32)) // budget forces out key 0

	if c.Get("a.mp4", 0) != nil {
		t.Fatal("byte budget did not evict")
	}
	if s := c.Stats(); s.Bytes > 64 {
		t.Fatalf("bytes %d over budget", s.Bytes)
	}
}

func TestCachePromoteOnGet(t *testing.T) {
	c := NewFrameCache(2, 1<<20)
	c.Put("a.mp4", 0, testFrame(0, 16))
	c.Put("a.mp4", 1, testFrame(1, 16))

	c.Get("a.mp4", 0)                   // 0 becomes MRU
	c.Put("a.mp4", 2, testFrame(2, 16)) // evicts 1, not 0

	if c.Get("a.mp4", 0) == nil {
		t.Fatal("promoted entry was evicted")
	}
	if c.Get("a.mp4", 1) != nil {
		t.Fatal("LRU entry survived")
	}
}

func TestCacheReplaceSameKey(t *testing.T) {
	c := NewFrameCache(4, 1<<20)
	c.Put("a.mp4", 0, testFrame(1, 16))
	c.Put("a.mp4", 0, testFrame(2, 32))

	got := c.Get("a.mp4", 0)
	if got == nil || got.Data[0] != 2 {
		t.Fatal("replace did not take")
	}
	if s := c.Stats(); s.Entries != 1 || s.Bytes != 32 {
		t.Fatalf("stats after replace: %+v", s)
	}
}

func TestCacheHitMissCounters(t *testing.T) {
	c := NewFrameCache(4, 1<<20)
	c.Put("a.mp4", 0, testFrame(0, 16))

	c.Get("a.mp4", 0)
	c.Get("a.mp4", 0)
	c.Get("a.mp4", 99)

	s := c.Stats()
	if s.Hits != 2 || s.Misses != 1 {
		t.Fatalf("hits=%d misses=%d", s.Hits, s.Misses)
	}
}

func TestCacheManyDistinctPaths(t *testing.T) {
	c := NewFrameCache(16, 1<<20)
	for i := 0; i < 16; i++ {
		c.Put(fmt.Sprintf("clip%02d.mp4", i), 0, testFrame(byte(i), 16))
	}
	for i := 0; i < 16; i++ {
		if c.Get(fmt.Sprintf("clip%02d.mp4", i), 0) == nil {
			t.Fatalf("path %d missing", i)
		}
	}
}
