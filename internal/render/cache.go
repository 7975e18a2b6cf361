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
	"container/list"

	"github.com/littledevmars/vortexcut/internal/media"
)

// cacheKey is an exact (source path, source time) pair; there are no
// nearest-neighbour lookups.
type cacheKey struct {
	path     string
	sourceMs int64
}

type cacheEntry struct {
	key   cacheKey
	frame *media.Frame
}

// CacheStats is a snapshot of the cache counters.
type CacheStats struct {
	Entries  int
	Bytes    int64
	Hits     uint64
	Misses   uint64
	MaxBytes int64
}

// FrameCache is an LRU over decoded frames bounded by both entry count and
// byte budget. Oldest entries sit at the front of the list, the most
// recently used at the back. It is private to one Renderer and not locked.
type FrameCache struct {
	ll         *list.List
	items      map[cacheKey]*list.Element
	maxEntries int
	maxBytes   int64
	totalBytes int64
	hits       uint64
	misses     uint64
}

func NewFrameCache(maxEntries int, maxBytes int64) *FrameCache {
	return &FrameCache{
		ll:         list.New(),
		items:      make(map[cacheKey]*list.Element),
		maxEntries: maxEntries,
		maxBytes:   maxBytes,
	}
}

// Get returns the cached frame for the key and promotes it to MRU.
func (c *FrameCache) Get(path string, sourceMs int64) *media.Frame {
	el, ok := c.items[cacheKey{path, sourceMs}]
	if !ok {
		c.misses++
		return nil
	}
	c.hits++
	c.ll.MoveToBack(el)
	return el.Value.(*cacheEntry).frame
}

// Put inserts (or replaces) the frame as MRU, evicting LRU entries until
// both budgets hold.
func (c *FrameCache) Put(path string, sourceMs int64, frame *media.Frame) {
	key := cacheKey{path, sourceMs}
	if el, ok := c.items[key]; ok {
		c.totalBytes -= int64(el.Value.(*cacheEntry).frame.ByteSize())
		c.ll.Remove(el)
		delete(c.items, key)
	}

	size := int64(frame.ByteSize())
	for c.ll.Len() > 0 && (c.ll.Len()+1 > c.maxEntries || c.totalBytes+size > c.maxBytes) {
		c.evictOldest()
	}

	el := c.ll.PushBack(&cacheEntry{key: key, frame: frame})
	c.items[key] = el
	c.totalBytes += size
}

func (c *FrameCache) evictOldest() {
	el := c.ll.Front()
	if el == nil {
		return
	}
	e := el.Value.(*cacheEntry)
	c.totalBytes -= int64(e.frame.ByteSize())
	c.ll.Remove(el)
	delete(c.items, e.key)
}

func (c *FrameCache) Clear() {
	c.ll.Init()
	c.items = make(map[cacheKey]*list.Element)
	c.totalBytes = 0
}

func (c *FrameCache) Stats() CacheStats {
	return CacheStats{
		Entries:  c.ll.Len(),
		Bytes:    c.totalBytes,
		Hits:     c.hits,
		Misses:   c.misses,
		MaxBytes: c.maxBytes,
	}
}
