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

package fscache

import (
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"
)

// admissionInterval is the statvfs poll period; evictionEvery expresses
// "every ~10 cycles" from spec.md as a cycle count.
const (
	admissionInterval = 15 * time.Second
	evictionEvery     = 10
)

// Admission runs the background free-space check and idle-inode eviction
// loop for one cache directory.
type Admission struct {
	dir          string
	reservePct   float64
	idleTimeout  time.Duration
	full         atomic.Bool
	cycles       int

	mu    sync.Mutex
	idle  map[string]time.Time // backing path -> last-touched time
	evict func(path string)    // closes and frees a backing fd
}

// NewAdmission builds an admission controller over dir, rejecting new
// cache insertions once free space falls below reservePct percent, and
// evicting backing files idle longer than idleTimeout.
func NewAdmission(dir string, reservePct float64, idleTimeout time.Duration, evict func(path string)) *Admission {
	return &Admission{
		dir:         dir,
		reservePct:  reservePct,
		idleTimeout: idleTimeout,
		idle:        make(map[string]time.Time),
		evict:       evict,
	}
}

// Full reports whether the cache is currently refusing new insertions.
func (a *Admission) Full() bool { return a.full.Load() }

// Touch records that path was accessed, resetting its idle clock.
func (a *Admission) Touch(path string) {
	a.mu.Lock()
	a.idle[path] = time.Now()
	a.mu.Unlock()
}

// Forget drops path from idle tracking, e.g. once its inode is disposed
// through the ordinary inode lifecycle.
func (a *Admission) Forget(path string) {
	a.mu.Lock()
	delete(a.idle, path)
	a.mu.Unlock()
}

// Run executes the admission loop until stop is closed. It is meant to be
// launched once per cache instance as a background goroutine.
func (a *Admission) Run(stop <-chan struct{}) {
	ticker := time.NewTicker(admissionInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			a.tick()
		}
	}
}

func (a *Admission) tick() {
	free, err := freeSpacePercent(a.dir)
	if err == nil {
		a.full.Store(free < a.reservePct)
	}

	a.cycles++
	if a.cycles < evictionEvery {
		return
	}
	a.cycles = 0
	a.evictIdle()
}

func (a *Admission) evictIdle() {
	cutoff := time.Now().Add(-a.idleTimeout)

	a.mu.Lock()
	var stale []string
	for path, last := range a.idle {
		if last.Before(cutoff) {
			stale = append(stale, path)
		}
	}
	for _, path := range stale {
		delete(a.idle, path)
	}
	a.mu.Unlock()

	for _, path := range stale {
		a.evict(path)
	}
}

// freeSpacePercent reports the percentage of free space on the
// filesystem backing dir, via statvfs.
func freeSpacePercent(dir string) (float64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(dir, &st); err != nil {
		return 0, err
	}
	if st.Blocks == 0 {
		return 0, nil
	}
	return 100 * float64(st.Bfree) / float64(st.Blocks), nil
}

// Filter restricts which paths are eligible for caching to up to three
// semicolon-separated glob patterns; an empty filter caches everything.
type Filter struct {
	patterns []string
}

// NewFilter parses a semicolon-separated glob list, per spec.md's
// "filter" rule (up to three patterns; empty means cache everything).
func NewFilter(spec string) *Filter {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return &Filter{}
	}
	parts := strings.Split(spec, ";")
	if len(parts) > 3 {
		parts = parts[:3]
	}
	return &Filter{patterns: parts}
}

// Allows reports whether path is eligible for caching.
func (f *Filter) Allows(path string) bool {
	if len(f.patterns) == 0 {
		return true
	}
	for _, p := range f.patterns {
		if ok, _ := filepath.Match(p, path); ok {
			return true
		}
	}
	return false
}
