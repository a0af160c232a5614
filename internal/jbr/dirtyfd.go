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

package jbr

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gluster-go/glusterfsd/internal/brickd"
)

// FlushInterval is how often the background thread fsyncs dirty fds, per
// JBR_FLUSH_INTERVAL in the original C translator.
const FlushInterval = 5 * time.Second

// DirtyFds tracks brick-store fd handles written since their last fsync.
// Lock ordering is always the global list lock first, then (inside Sync)
// the store's own per-fd bookkeeping lock, matching jbr_dirty_list_t's
// "list lock protects membership, fd lock protects the fsync call" split.
type DirtyFds struct {
	store *brickd.Store
	log   *slog.Logger

	mu      sync.Mutex
	handles map[int64]struct{}

	stop chan struct{}
	done chan struct{}
}

// NewDirtyFds builds a tracker over store, not yet running its background
// thread.
func NewDirtyFds(store *brickd.Store, log *slog.Logger) *DirtyFds {
	return &DirtyFds{
		store:   store,
		log:     log,
		handles: make(map[int64]struct{}),
	}
}

// Mark records handle as dirty, to be fsynced on the next flush.
func (d *DirtyFds) Mark(handle int64) {
	d.mu.Lock()
	d.handles[handle] = struct{}{}
	d.mu.Unlock()
}

// FlushOnce fsyncs every currently dirty handle and clears their dirty bit,
// regardless of whether the sync succeeds — a handle that fails to sync
// this round is logged, not retried forever, matching jbr_fsync's
// fire-and-forget treatment of a single fd's fsync failure.
func (d *DirtyFds) FlushOnce() {
	d.mu.Lock()
	batch := make([]int64, 0, len(d.handles))
	for h := range d.handles {
		batch = append(batch, h)
	}
	d.handles = make(map[int64]struct{})
	d.mu.Unlock()

	for _, h := range batch {
		if err := d.store.Sync(h); err != nil && d.log != nil {
			d.log.Warn("jbr: dirty fd fsync failed", "handle", h, "err", err)
		}
	}
}

// Start launches the background flush thread, ticking every FlushInterval
// until Stop is called.
func (d *DirtyFds) Start() {
	d.stop = make(chan struct{})
	d.done = make(chan struct{})
	go func() {
		defer close(d.done)
		t := time.NewTicker(FlushInterval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				d.FlushOnce()
			case <-d.stop:
				return
			}
		}
	}()
}

// Stop halts the background flush thread and waits for it to exit,
// fsyncing whatever is still outstanding first.
func (d *DirtyFds) Stop() {
	if d.stop == nil {
		return
	}
	close(d.stop)
	<-d.done
	d.FlushOnce()
}
