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
)

func TestNodeForIsStableForSameGfid(t *testing.T) {
	nt := NewNodeTable()
	g := uuid.New()

	id1 := nt.NodeFor(g)
	id2 := nt.NodeFor(g)
	assert.Equal(t, id1, id2)

	got, ok := nt.Gfid(id1)
	require.True(t, ok)
	assert.Equal(t, g, got)
}

func TestRootNodeIsPreseeded(t *testing.T) {
	nt := NewNodeTable()
	g, ok := nt.Gfid(fuseops.RootInodeID)
	require.True(t, ok)
	assert.Equal(t, uuid.Nil, g)
}

func TestForgetDisposesOnlyWhenCountReachesZero(t *testing.T) {
	nt := NewNodeTable()
	id := nt.NodeFor(uuid.New())
	nt.IncLookup(id, 3)

	assert.False(t, nt.Forget(id, 2))
	assert.Equal(t, uint64(1), nt.LookupCount(id))
	assert.True(t, nt.Forget(id, 1))

	_, ok := nt.Gfid(id)
	assert.False(t, ok)
}

func TestForgetClampsOnOverForget(t *testing.T) {
	nt := NewNodeTable()
	id := nt.NodeFor(uuid.New())
	nt.IncLookup(id, 1)

	assert.True(t, nt.Forget(id, 50))
}

func TestRootIsNeverDisposedByForget(t *testing.T) {
	nt := NewNodeTable()
	assert.False(t, nt.Forget(fuseops.RootInodeID, 100))
	_, ok := nt.Gfid(fuseops.RootInodeID)
	assert.True(t, ok)
}
