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

package fusebridge

import (
	"sync"
	"time"
)

// GroupResolver looks up the supplementary group list for a uid. It is
// supplied by the embedder (typically backed by /etc/group or NSS) so
// this package never shells out itself.
type GroupResolver func(uid uint32) ([]uint32, error)

type gidEntry struct {
	groups  []uint32
	expires time.Time
}

// GidCache caches the supplementary-group resolution for a uid so a
// busy client doesn't re-resolve it on every single fop. Resolution can
// be switched off entirely (Bypass), in which case Resolve always
// reports the single gid carried on the request, matching the
// "server.manage-gids off" behavior.
type GidCache struct {
	mu      sync.Mutex
	entries map[uint32]gidEntry
	ttl     time.Duration
	resolve GroupResolver
	bypass  bool
}

// NewGidCache builds a cache with the given TTL and resolver. A nil
// resolver forces Bypass semantics regardless of the bypass argument.
func NewGidCache(ttl time.Duration, resolve GroupResolver, bypass bool) *GidCache {
	return &GidCache{
		entries: make(map[uint32]gidEntry),
		ttl:     ttl,
		resolve: resolve,
		bypass:  bypass || resolve == nil,
	}
}

// Resolve returns the full group list for uid, given the single gid the
// kernel request already carries. In bypass mode it returns just that
// gid, unresolved.
func (c *GidCache) Resolve(uid, gid uint32) ([]uint32, error) {
	if c.bypass {
		return []uint32{gid}, nil
	}

	c.mu.Lock()
	if e, ok := c.entries[uid]; ok && time.Now().Before(e.expires) {
		c.mu.Unlock()
		return e.groups, nil
	}
	c.mu.Unlock()

	groups, err := c.resolve(uid)
	if err != nil {
		return nil, err
	}
	found := false
	for _, g := range groups {
		if g == gid {
			found = true
			break
		}
	}
	if !found {
		groups = append(groups, gid)
	}

	c.mu.Lock()
	c.entries[uid] = gidEntry{groups: groups, expires: time.Now().Add(c.ttl)}
	c.mu.Unlock()
	return groups, nil
}

// Invalidate drops any cached resolution for uid, e.g. in response to an
// admin-triggered group membership change.
func (c *GidCache) Invalidate(uid uint32) {
	c.mu.Lock()
	delete(c.entries, uid)
	c.mu.Unlock()
}
