// Copyright 2025 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package readahead

import (
	"context"
	"sync"
)

// Fetcher retrieves size bytes starting at offset on fd from the
// translator below read-ahead in the graph. fd identifies which open
// file to read from downstream, since one Cache serves every fd open
// through a given read-ahead Translator. tests substitute an in-memory
// fetcher.
type Fetcher func(ctx context.Context, fd uintptr, offset int64, size int) ([]byte, error)

type pageKey struct {
	fd     uintptr
	offset int64
}

// fdState tracks the per-fd bookkeeping read-ahead needs: sequential
// access detection and the O_DIRECT/write-only bypass flag.
type fdState struct {
	mu         sync.Mutex
	lastOffset int64
	lastEnd    int64
	pageCount  int // consecutive sequential pages observed, grows/resets
	bypass     bool
}

// sequentialThreshold is the consecutive-page count after which the cache
// starts issuing speculative prefetches, grounded on the access-pattern
// heuristics spec.md describes ("sequential-access detection (page_count
// growth/reset)").
const sequentialThreshold = 2

// Cache is the read-ahead page cache: pages keyed by (fd, page-aligned
// offset), a Fetcher used to populate misses, and per-fd access-pattern
// state driving prefetch decisions.
type Cache struct {
	fetch Fetcher

	mu    sync.Mutex
	pages map[pageKey]*Page
	fds   map[uintptr]*fdState
}

// NewCache builds a cache that uses fetch to populate misses.
func NewCache(fetch Fetcher) *Cache {
	return &Cache{
		fetch: fetch,
		pages: make(map[pageKey]*Page),
		fds:   make(map[uintptr]*fdState),
	}
}

// SetBypass marks fd as O_DIRECT or write-only: reads against it skip the
// cache entirely, per spec.md's per-fd bypass rule.
func (c *Cache) SetBypass(fd uintptr, bypass bool) {
	c.state(fd).mu.Lock()
	c.state(fd).bypass = bypass
	c.state(fd).mu.Unlock()
}

func (c *Cache) state(fd uintptr) *fdState {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.fds[fd]
	if !ok {
		s = &fdState{}
		c.fds[fd] = s
	}
	return s
}

func alignDown(offset int64) int64 {
	return offset - offset%PageSize
}

// Read satisfies a user read of size bytes at offset on fd. On a cache
// miss it creates and fetches the page (dirty=false, since a user is
// waiting); if the access looks sequential it also kicks off a prefetch
// of the next page (dirty=true, nobody waits on it yet).
func (c *Cache) Read(ctx context.Context, fd uintptr, offset int64, size int) ([]byte, error) {
	st := c.state(fd)

	st.mu.Lock()
	bypass := st.bypass
	sequential := offset == st.lastEnd
	if sequential {
		st.pageCount++
	} else {
		st.pageCount = 0
	}
	st.lastOffset = offset
	st.lastEnd = offset + int64(size)
	prefetch := st.pageCount >= sequentialThreshold
	st.mu.Unlock()

	if bypass {
		return c.fetch(ctx, fd, offset, size)
	}

	aligned := alignDown(offset)
	page := c.fetchPage(ctx, fd, aligned, false)
	data, err := page.Wait()
	if err != nil {
		return nil, err
	}

	if prefetch {
		next := aligned + PageSize
		c.prefetchAsync(ctx, fd, next)
	}

	lo := int(offset - aligned)
	hi := lo + size
	if hi > len(data) {
		hi = len(data)
	}
	if lo > len(data) {
		lo = len(data)
	}
	return data[lo:hi], nil
}

// fetchPage returns the page for (fd, offset), creating and fetching it
// if absent. asPrefetch marks a newly created page dirty.
func (c *Cache) fetchPage(ctx context.Context, fd uintptr, offset int64, asPrefetch bool) *Page {
	key := pageKey{fd, offset}

	c.mu.Lock()
	page, exists := c.pages[key]
	if exists && page.Poisoned() {
		// A poisoned page is never reused; evict and fall through to
		// recreate it.
		delete(c.pages, key)
		exists = false
	}
	if !exists {
		page = newPage(offset)
		if asPrefetch {
			page.setDirty()
		}
		c.pages[key] = page
	}
	c.mu.Unlock()

	if !exists {
		go func() {
			data, err := c.fetch(ctx, fd, offset, PageSize)
			page.complete(data, err)
		}()
	}
	return page
}

func (c *Cache) prefetchAsync(ctx context.Context, fd uintptr, offset int64) {
	key := pageKey{fd, offset}
	c.mu.Lock()
	_, exists := c.pages[key]
	c.mu.Unlock()
	if !exists {
		c.fetchPage(ctx, fd, offset, true)
	}
}

// Invalidate poisons every cached page for fd overlapping [offset,
// offset+size), the write/truncate flush path: a concurrent write must
// never let a stale read-ahead page answer a later read.
func (c *Cache) Invalidate(fd uintptr, offset int64, size int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	end := offset + size
	for key, page := range c.pages {
		if key.fd != fd {
			continue
		}
		pageEnd := page.Offset + PageSize
		if page.Offset < end && pageEnd > offset {
			page.Poison(errCancelled)
			delete(c.pages, key)
		}
	}
}

// Forget drops every page cached for fd, called on release.
func (c *Cache) Forget(fd uintptr) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.pages {
		if key.fd == fd {
			delete(c.pages, key)
		}
	}
	delete(c.fds, fd)
}
