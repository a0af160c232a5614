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

// Package readahead implements the read-ahead page cache translator: a
// page lifecycle with in-flight fault waitqueues, write-invalidation
// ("poisoning"), and sequential-access detection driving prefetch.
package readahead

import "sync"

// PageSize is the fixed, page-aligned unit the cache fetches and stores.
const PageSize = 128 * 1024

// Page is a fixed-size cached region of a file.
type Page struct {
	mu sync.Mutex

	Offset int64 // page-aligned
	ready  bool
	dirty  bool // prefetched, no user waiting
	poison bool // superseded by a concurrent write

	data []byte
	err  error

	waiters []chan struct{}
}

// newPage allocates a page at offset, not yet ready.
func newPage(offset int64) *Page {
	return &Page{Offset: offset}
}

// Wait blocks until the page becomes ready or poisoned, then returns its
// data (nil if poisoned) and error. Multiple waiters may block on the same
// page; all are woken in the order they called Wait once the fetch
// completes, a plain FIFO waitqueue.
func (p *Page) Wait() ([]byte, error) {
	p.mu.Lock()
	if p.ready || p.poison {
		data, err := p.data, p.err
		p.mu.Unlock()
		return data, err
	}
	ch := make(chan struct{})
	p.waiters = append(p.waiters, ch)
	p.mu.Unlock()

	<-ch

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.data, p.err
}

// complete marks the page ready with data/err and wakes every waiter in
// FIFO arrival order. If the page was poisoned while its fetch was still
// in flight, the fetch lost the race: its data is discarded and waiters
// see errCancelled instead, so a write that invalidated this page can
// never be shadowed by a late-arriving stale read.
func (p *Page) complete(data []byte, err error) {
	p.mu.Lock()
	p.ready = true
	if p.poison {
		p.data = nil
		p.err = errCancelled
	} else {
		p.data = data
		p.err = err
	}
	waiters := p.waiters
	p.waiters = nil
	p.mu.Unlock()

	for _, ch := range waiters {
		close(ch)
	}
}

// Poison marks the page superseded by a concurrent write: any waiter
// blocked on it wakes with ECANCELED (via the err already set by the
// fetch, or a synthesized one if the fetch hadn't completed), and it is
// evicted from the cache rather than trusted again. A page already ready
// is poisoned in place so concurrent readers that already have its data
// are not retroactively affected — only future lookups miss.
func (p *Page) Poison(err error) {
	p.mu.Lock()
	p.poison = true
	if !p.ready {
		p.ready = true
		p.err = err
		waiters := p.waiters
		p.waiters = nil
		p.mu.Unlock()
		for _, ch := range waiters {
			close(ch)
		}
		return
	}
	p.mu.Unlock()
}

// Poisoned reports whether the page has been superseded by a concurrent
// write.
func (p *Page) Poisoned() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.poison
}

// Dirty reports whether the page was prefetched speculatively with no
// reader waiting at creation time.
func (p *Page) Dirty() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dirty
}

// setDirty marks the page as a speculative prefetch.
func (p *Page) setDirty() {
	p.mu.Lock()
	p.dirty = true
	p.mu.Unlock()
}

// Ready reports whether the page has completed fetching (successfully or
// not).
func (p *Page) Ready() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ready
}
