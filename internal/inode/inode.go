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

package inode

import (
	"os"
	"sync"
	"time"
)

// Attr is the cached attribute snapshot an Inode carries, refreshed by
// lookup/getattr replies.
type Attr struct {
	Size  uint64
	Mode  os.FileMode
	Nlink uint32
	UID   uint32
	GID   uint32
	Atime time.Time
	Mtime time.Time
	Ctime time.Time
}

// Inode is the in-memory identity of a filesystem object, shared by every
// translator that needs to hang per-translator state off it.
//
// Lock ordering: callers that also hold a Table lock must acquire it
// before Inode.mu (inode-table < inode), and must release Inode.mu before
// acquiring any Fd belonging to this inode (inode < fd).
type Inode struct {
	mu sync.Mutex

	gfid Gfid
	refs int

	// parents is the set of (parent gfid, name) pairs currently naming
	// this inode, used to reconstruct a path when one is needed (e.g. for
	// a reverse invalidation upcall). An inode with no entry in a dentry
	// table may still have parents listed here transiently between
	// dentry removal and the matching Forget.
	parents map[parentKey]struct{}

	attr Attr

	// ctx holds opaque per-translator context, keyed by translator name.
	// Each translator owns exactly its own slot and must release whatever
	// it stores there when the inode's ref count reaches zero.
	ctx map[string]any
}

type parentKey struct {
	parent Gfid
	name   string
}

// New allocates an inode identified by gfid with an initial reference
// count of 1 (the reference the caller — typically a fresh dentry link —
// is about to take).
func New(gfid Gfid, attr Attr) *Inode {
	return &Inode{
		gfid:    gfid,
		refs:    1,
		attr:    attr,
		parents: make(map[parentKey]struct{}),
		ctx:     make(map[string]any),
	}
}

// Gfid returns the inode's immutable identifier.
func (in *Inode) Gfid() Gfid { return in.gfid }

// Ref increments the reference count.
func (in *Inode) Ref() {
	in.mu.Lock()
	in.refs++
	in.mu.Unlock()
}

// Unref decrements the reference count and reports whether it reached
// zero. The caller (the Table, under its own lock) is responsible for
// removing the inode from the table and disposing of per-translator
// context only once both the ref count is zero and no dentry still names
// it, per the invariant in the data model.
func (in *Inode) Unref() (zero bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.refs--
	if in.refs < 0 {
		// The kernel may report more forgets than lookups (FUSE's
		// documented pathological case); clamp rather than go negative.
		in.refs = 0
	}
	return in.refs == 0
}

// Refs reports the current reference count.
func (in *Inode) Refs() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.refs
}

// AddParent records that (parent, name) names this inode.
func (in *Inode) AddParent(parent Gfid, name string) {
	in.mu.Lock()
	in.parents[parentKey{parent, name}] = struct{}{}
	in.mu.Unlock()
}

// RemoveParent removes the (parent, name) link, e.g. on unlink or rename.
func (in *Inode) RemoveParent(parent Gfid, name string) {
	in.mu.Lock()
	delete(in.parents, parentKey{parent, name})
	in.mu.Unlock()
}

// HasParents reports whether any dentry still names this inode.
func (in *Inode) HasParents() bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	return len(in.parents) > 0
}

// Attr returns a copy of the cached attribute snapshot.
func (in *Inode) Attr() Attr {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.attr
}

// SetAttr replaces the cached attribute snapshot, e.g. after a getattr or
// setattr reply.
func (in *Inode) SetAttr(a Attr) {
	in.mu.Lock()
	in.attr = a
	in.mu.Unlock()
}

// Context returns the per-translator opaque context stored under name,
// and whether one was set.
func (in *Inode) Context(name string) (any, bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	v, ok := in.ctx[name]
	return v, ok
}

// SetContext stores opaque per-translator context under name. A
// translator must call SetContext(name, nil) (or otherwise release
// whatever resource the context holds) when it receives Forget for this
// inode.
func (in *Inode) SetContext(name string, v any) {
	in.mu.Lock()
	in.ctx[name] = v
	in.mu.Unlock()
}
