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

import "sync"

// dentryKey is a (parent gfid, name) pair; the dentry table is indexed by
// it so a name lookup within a parent is O(1) average, per the data
// model's requirement.
type dentryKey struct {
	parent Gfid
	name   string
}

// Table is the inode table plus its co-located dentry table: the top of
// the inode/fd lock order (inode-table < inode < fd < translator-private).
// One Table is shared by every translator in a graph instance.
type Table struct {
	mu       sync.Mutex
	inodes   map[Gfid]*Inode
	dentries map[dentryKey]Gfid
}

// NewTable builds an empty table and seeds it with the volume root inode.
func NewTable() *Table {
	t := &Table{
		inodes:   make(map[Gfid]*Inode),
		dentries: make(map[dentryKey]Gfid),
	}
	root := New(RootGfid, Attr{})
	t.inodes[RootGfid] = root
	return t
}

// Root returns the volume root inode.
func (t *Table) Root() *Inode {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inodes[RootGfid]
}

// Lookup returns the inode for gfid, if present.
func (t *Table) Lookup(gfid Gfid) (*Inode, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	in, ok := t.inodes[gfid]
	return in, ok
}

// LookupByName returns the child inode named name under parent, the
// fast-path dentry lookup. Callers fall back to the resolver's slow paths
// when this returns false.
func (t *Table) LookupByName(parent Gfid, name string) (*Inode, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	gfid, ok := t.dentries[dentryKey{parent, name}]
	if !ok {
		return nil, false
	}
	in, ok := t.inodes[gfid]
	return in, ok
}

// Link inserts (or, if the inode already exists, references) the inode
// for gfid and names it (parent, name). It is the single entry point that
// establishes a dentry, used by lookup/create/mkdir/mkdir/symlink/link/
// rename-target handling.
func (t *Table) Link(gfid Gfid, attr Attr, parent Gfid, name string) *Inode {
	t.mu.Lock()
	defer t.mu.Unlock()

	in, exists := t.inodes[gfid]
	if !exists {
		in = New(gfid, attr)
		t.inodes[gfid] = in
	} else {
		in.Ref()
		in.SetAttr(attr)
	}
	t.dentries[dentryKey{parent, name}] = gfid
	in.AddParent(parent, name)
	return in
}

// Unlink removes the (parent, name) dentry. If this was the last dentry
// naming the inode and its reference count has already reached zero (via
// a prior Forget), the inode is removed from the table.
func (t *Table) Unlink(parent Gfid, name string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := dentryKey{parent, name}
	gfid, ok := t.dentries[key]
	if !ok {
		return
	}
	delete(t.dentries, key)

	in, ok := t.inodes[gfid]
	if !ok {
		return
	}
	in.RemoveParent(parent, name)
	t.maybeDisposeLocked(in)
}

// Rename atomically retargets a dentry from (oldParent, oldName) to
// (newParent, newName), displacing whatever previously occupied the
// destination name (matching POSIX rename semantics: the old target, if
// any, is unlinked as part of the same operation).
func (t *Table) Rename(oldParent Gfid, oldName string, newParent Gfid, newName string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	oldKey := dentryKey{oldParent, oldName}
	gfid, ok := t.dentries[oldKey]
	if !ok {
		return
	}
	delete(t.dentries, oldKey)

	newKey := dentryKey{newParent, newName}
	if displaced, ok := t.dentries[newKey]; ok {
		if dispIn, ok := t.inodes[displaced]; ok {
			dispIn.RemoveParent(newParent, newName)
			t.maybeDisposeLocked(dispIn)
		}
	}
	t.dentries[newKey] = gfid

	if in, ok := t.inodes[gfid]; ok {
		in.RemoveParent(oldParent, oldName)
		in.AddParent(newParent, newName)
	}
}

// Forget decrements the inode's reference count by n (clamped at zero,
// per FUSE's documented over-forget case) and disposes of it if the count
// reaches zero and no dentry still names it.
func (t *Table) Forget(gfid Gfid, n int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	in, ok := t.inodes[gfid]
	if !ok {
		return
	}
	for i := 0; i < n; i++ {
		if in.Unref() {
			break
		}
	}
	t.maybeDisposeLocked(in)
}

// maybeDisposeLocked removes in from the table if it has no references
// and no dentry names it. Callers must hold t.mu.
func (t *Table) maybeDisposeLocked(in *Inode) {
	if in.gfid == RootGfid {
		return
	}
	if in.Refs() == 0 && !in.HasParents() {
		delete(t.inodes, in.gfid)
	}
}

// Size reports the number of live inodes, for tests and statedump.
func (t *Table) Size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inodes)
}
