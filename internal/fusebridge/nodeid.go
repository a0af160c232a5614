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

// Package fusebridge implements the FUSE bridge translator: it translates
// kernel FUSE protocol messages (via github.com/jacobsa/fuse/fuseops) into
// translator-runtime operations, and manages the nodeid<->inode identity
// mapping, resolve state machine, reverse invalidation, gid-resolution
// cache, and xattr namespace remapping spec.md describes.
package fusebridge

import (
	"sync"

	"github.com/jacobsa/fuse/fuseops"

	"github.com/gluster-go/glusterfsd/internal/inode"
)

// NodeTable maps kernel nodeids to gfids and back, and counts each
// inode's outstanding kernel lookup references (nlookup).
//
// The root object is always fuseops.RootInodeID. Other nodeids are handed
// out as a monotonic counter that never reuses a value still in use,
// matching the "(nodeid, generation) unique for the filesystem lifetime"
// rule — this implementation never reuses a retired id at all, so the
// generation is always 0.
type NodeTable struct {
	mu sync.Mutex

	byNode map[fuseops.InodeID]inode.Gfid
	byGfid map[inode.Gfid]fuseops.InodeID
	lookup map[fuseops.InodeID]uint64

	next fuseops.InodeID
}

// NewNodeTable builds a table seeded with the root mapping.
func NewNodeTable() *NodeTable {
	nt := &NodeTable{
		byNode: make(map[fuseops.InodeID]inode.Gfid),
		byGfid: make(map[inode.Gfid]fuseops.InodeID),
		lookup: make(map[fuseops.InodeID]uint64),
		next:   fuseops.RootInodeID + 1,
	}
	nt.byNode[fuseops.RootInodeID] = inode.RootGfid
	nt.byGfid[inode.RootGfid] = fuseops.RootInodeID
	return nt
}

// NodeFor returns the nodeid for gfid, minting a fresh one (and an
// initial nlookup of 0 — the caller bumps it via IncLookup once the
// LOOKUP/CREATE/MKDIR reply it's servicing actually hands the id to the
// kernel) if this is the first time gfid has been named.
func (nt *NodeTable) NodeFor(gfid inode.Gfid) fuseops.InodeID {
	nt.mu.Lock()
	defer nt.mu.Unlock()

	if id, ok := nt.byGfid[gfid]; ok {
		return id
	}
	id := nt.next
	nt.next++
	nt.byGfid[gfid] = id
	nt.byNode[id] = gfid
	return id
}

// Gfid returns the gfid for a kernel nodeid, if known.
func (nt *NodeTable) Gfid(id fuseops.InodeID) (inode.Gfid, bool) {
	nt.mu.Lock()
	defer nt.mu.Unlock()
	g, ok := nt.byNode[id]
	return g, ok
}

// IncLookup increments nodeid's outstanding kernel lookup count by n,
// called once per LOOKUP/MKDIR/CREATE/SYMLINK/LINK reply that hands the
// id to the kernel.
func (nt *NodeTable) IncLookup(id fuseops.InodeID, n uint64) {
	nt.mu.Lock()
	nt.lookup[id] += n
	nt.mu.Unlock()
}

// Forget decrements nodeid's lookup count by n and reports whether the
// inode should now be disposed (count reached zero). It tolerates the
// kernel reporting more forgets than lookups — the count clamps at zero
// instead of underflowing, per spec.md's pathological-FORGET rule.
func (nt *NodeTable) Forget(id fuseops.InodeID, n uint64) (dispose bool) {
	nt.mu.Lock()
	defer nt.mu.Unlock()

	if id == fuseops.RootInodeID {
		// The root's table entry is never disposed, but we still clamp
		// its counter so it can't go negative either.
		if n > nt.lookup[id] {
			nt.lookup[id] = 0
		} else {
			nt.lookup[id] -= n
		}
		return false
	}

	if n >= nt.lookup[id] {
		nt.lookup[id] = 0
	} else {
		nt.lookup[id] -= n
	}
	if nt.lookup[id] != 0 {
		return false
	}

	gfid := nt.byNode[id]
	delete(nt.byNode, id)
	delete(nt.byGfid, gfid)
	delete(nt.lookup, id)
	return true
}

// LookupCount reports the current outstanding kernel lookup count for
// nodeid, for tests and statedump.
func (nt *NodeTable) LookupCount(id fuseops.InodeID) uint64 {
	nt.mu.Lock()
	defer nt.mu.Unlock()
	return nt.lookup[id]
}
