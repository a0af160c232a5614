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
	"math/bits"
	"sync"
)

// ChildState tracks which of n children are currently up as a bitmap, per
// spec's "state per child is tracked as a bitmap; CHILD_UP/CHILD_DOWN
// events update the bit only if it actually changes". It has no notion of
// quorum itself — callers combine CountUp with QuorumMet to decide
// whether to propagate CHILD_UP/CHILD_DOWN upward.
type ChildState struct {
	mu     sync.Mutex
	bitmap uint64
	n      int
}

// NewChildState builds state for n children, all initially down.
func NewChildState(n int) *ChildState {
	return &ChildState{n: n}
}

// Up records child idx as reachable. Returns false (no-op) if the bit was
// already set, filtering the spurious duplicate notifications spec.md
// calls out.
func (c *ChildState) Up(idx int) (changed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	mask := uint64(1) << uint(idx)
	if c.bitmap&mask != 0 {
		return false
	}
	c.bitmap |= mask
	return true
}

// Down records child idx as unreachable. Returns false if it was already
// down.
func (c *ChildState) Down(idx int) (changed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	mask := uint64(1) << uint(idx)
	if c.bitmap&mask == 0 {
		return false
	}
	c.bitmap &^= mask
	return true
}

// IsUp reports whether child idx is currently marked up.
func (c *ChildState) IsUp(idx int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bitmap&(uint64(1)<<uint(idx)) != 0
}

// CountUp returns the number of children currently marked up.
func (c *ChildState) CountUp() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return bits.OnesCount64(c.bitmap)
}
