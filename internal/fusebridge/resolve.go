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
	"github.com/jacobsa/fuse/fuseops"

	"github.com/gluster-go/glusterfsd/internal/inode"
	"github.com/gluster-go/glusterfsd/internal/xlator"
)

// resolvePath is the outcome of walking the node table and the name
// cache for a kernel-given (parent nodeid, name) pair down to a gfid the
// graph root can operate on.
type resolvePath struct {
	gfid     inode.Gfid
	resolved bool
}

// resolver implements the three-tier lookup the design calls the resolve
// state machine:
//
//   - fast path: both the parent nodeid and the child name are already
//     known to the in-memory inode table, so resolution is a pure map
//     lookup with no wind down the graph.
//   - slow path 1 (missing entry): the parent is known but the child
//     name has never been seen (or was evicted); a LOOKUP fop is wound
//     down the graph to resolve it, and the result is linked into the
//     table for next time.
//   - slow path 2 (missing parent): even the parent nodeid is stale
//     (e.g. the kernel cached a nodeid across a remount); resolution
//     fails outright with ESTALE, forcing the kernel to re-lookup from
//     the root.
type resolver struct {
	nodes *NodeTable
	table *inode.Table
}

func newResolver(nodes *NodeTable, table *inode.Table) *resolver {
	return &resolver{nodes: nodes, table: table}
}

// Resolve attempts the fast path and slow-path-2 cases purely from local
// state; it returns ok=false when the caller must fall back to winding a
// LOOKUP fop down the graph (slow path 1).
func (r *resolver) Resolve(parent fuseops.InodeID, name string) (gfid inode.Gfid, ok bool, errno xlator.Errno) {
	parentGfid, known := r.nodes.Gfid(parent)
	if !known {
		// Slow path 2: the parent nodeid itself doesn't resolve locally.
		return inode.Gfid{}, false, xlator.ESTALE
	}

	if child, ok := r.table.LookupByName(parentGfid, name); ok {
		// Fast path.
		return child.Gfid(), true, 0
	}

	// Slow path 1: the caller must wind a LOOKUP fop for (parentGfid, name)
	// and then call LinkResult with what comes back.
	return parentGfid, false, 0
}

// LinkResult records a successful out-of-band LOOKUP (slow path 1) into
// both the inode table and the node table, and returns the nodeid to
// hand back to the kernel.
func (r *resolver) LinkResult(parent inode.Gfid, name string, gfid inode.Gfid, attr inode.Attr) fuseops.InodeID {
	r.table.Link(gfid, attr, parent, name)
	return r.nodes.NodeFor(gfid)
}
