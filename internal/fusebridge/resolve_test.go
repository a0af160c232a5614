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
	"testing"

	"github.com/google/uuid"
	"github.com/jacobsa/fuse/fuseops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gluster-go/glusterfsd/internal/inode"
	"github.com/gluster-go/glusterfsd/internal/xlator"
)

func TestResolveFastPathHitsLocalDentry(t *testing.T) {
	nodes := NewNodeTable()
	table := inode.NewTable()
	r := newResolver(nodes, table)

	child := uuid.New()
	table.Link(child, inode.Attr{Size: 1}, inode.RootGfid, "a.txt")

	gfid, ok, errno := r.Resolve(fuseops.RootInodeID, "a.txt")
	require.Equal(t, xlator.Errno(0), errno)
	assert.True(t, ok)
	assert.Equal(t, child, gfid)
}

func TestResolveSlowPath1ReportsMissOnUnknownName(t *testing.T) {
	nodes := NewNodeTable()
	table := inode.NewTable()
	r := newResolver(nodes, table)

	parentGfid, ok, errno := r.Resolve(fuseops.RootInodeID, "never-seen")
	require.Equal(t, xlator.Errno(0), errno)
	assert.False(t, ok)
	assert.Equal(t, inode.RootGfid, parentGfid)
}

func TestResolveSlowPath2FailsOnStaleParentNodeid(t *testing.T) {
	nodes := NewNodeTable()
	table := inode.NewTable()
	r := newResolver(nodes, table)

	_, ok, errno := r.Resolve(fuseops.InodeID(99999), "whatever")
	assert.False(t, ok)
	assert.Equal(t, xlator.ESTALE, errno)
}

func TestLinkResultMintsNodeidAndLinksDentry(t *testing.T) {
	nodes := NewNodeTable()
	table := inode.NewTable()
	r := newResolver(nodes, table)

	child := uuid.New()
	id := r.LinkResult(inode.RootGfid, "b.txt", child, inode.Attr{Size: 2})

	gfid, ok := nodes.Gfid(id)
	require.True(t, ok)
	assert.Equal(t, child, gfid)

	got, ok := table.LookupByName(inode.RootGfid, "b.txt")
	require.True(t, ok)
	assert.Equal(t, child, got.Gfid())
}
