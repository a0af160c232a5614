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
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gluster-go/glusterfsd/internal/brickd"
	"github.com/gluster-go/glusterfsd/internal/inode"
	"github.com/gluster-go/glusterfsd/internal/stack"
	"github.com/gluster-go/glusterfsd/internal/xlator"
)

func TestFopDispatchCoversLockWriteAndIpc(t *testing.T) {
	tr := newTestJBR(t, true, 0.5, nil)

	assert.NotNil(t, tr.Fop(xlator.FopLk))
	assert.NotNil(t, tr.Fop(xlator.FopInodelk))
	assert.NotNil(t, tr.Fop(xlator.FopEntrylk))
	assert.NotNil(t, tr.Fop(xlator.FopWrite))
	assert.NotNil(t, tr.Fop(xlator.FopIpc))
	assert.Nil(t, tr.Fop(xlator.FopRead), "read has no override; it passes through via Children()")
}

func TestChildrenReturnsOnlyLocalStorageChild(t *testing.T) {
	peers := []xlator.Translator{stubLockChild{name: "peer0"}}
	tr := newTestJBR(t, true, 0.5, peers)
	assert.Len(t, tr.Children(), 1, "peers are not part of Children(); only the local storage child is")
}

func TestNotifyChildDownTriggersTakeoverForNonConfigLeader(t *testing.T) {
	peers := []xlator.Translator{stubLockChild{name: "peer0"}}
	tr := newTestJBR(t, false, 0.5, peers)

	require.NoError(t, tr.Notify(xlator.ChildUp, 0))
	assert.False(t, tr.role.IsLeader(), "peer reachable: this replica stays a follower")

	require.NoError(t, tr.Notify(xlator.ChildDown, 0))
	assert.True(t, tr.role.IsLeader(), "peer unreachable in an n=2 set: this replica takes over")
}

func TestWriteMarksHandleDirtyAndPassesThrough(t *testing.T) {
	store, err := brickd.NewStore(t.TempDir())
	require.NoError(t, err)

	g := inode.NewGfid()
	require.NoError(t, store.Create(g))
	handle, err := store.Open(g, 0o2)
	require.NoError(t, err)

	tr := New("jbr-write-test", passThroughChild{result: 0}, nil, store, true, 0.5, nil)

	root := stack.NewRootFrame(context.Background(), tr, stack.Creds{})
	done := make(chan *stack.Frame, 1)
	stack.Wind(root, func(child *stack.Frame) { done <- child }, tr, xlator.FopWrite,
		WriteArgs{Handle: handle, Offset: 0, Data: []byte("x")})
	reply := <-done
	require.Equal(t, xlator.Errno(0), reply.Errno)

	tr.dirty.mu.Lock()
	_, dirty := tr.dirty.handles[handle]
	tr.dirty.mu.Unlock()
	assert.True(t, dirty, "FopWrite must mark its handle dirty before passing through")
}

func TestIpcTermRangeOpenTermNextEntryRoundTrip(t *testing.T) {
	store, err := brickd.NewStore(t.TempDir())
	require.NoError(t, err)

	tl := NewTermLog(store)
	require.NoError(t, tl.Append(2, []byte("entry-a")))
	require.NoError(t, tl.Append(2, []byte("entry-b")))

	local := stubLockChild{name: "local"}
	tr := New("jbr-ipc-test", local, nil, store, true, 0.5, nil)

	ipc := func(a IpcArgs) *stack.Frame {
		root := stack.NewRootFrame(context.Background(), tr, stack.Creds{})
		done := make(chan *stack.Frame, 1)
		stack.Wind(root, func(child *stack.Frame) { done <- child }, tr, xlator.FopIpc, a)
		return <-done
	}

	rangeReply := ipc(IpcArgs{Op: IpcTermRange})
	require.Equal(t, xlator.Errno(0), rangeReply.Errno)
	rep := rangeReply.Reply.(IpcReply)
	assert.True(t, rep.HasRange)
	assert.Equal(t, uint32(2), rep.FirstTerm)
	assert.Equal(t, uint32(2), rep.LastTerm)

	openReply := ipc(IpcArgs{Op: IpcOpenTerm, Term: 2})
	assert.Equal(t, xlator.Errno(0), openReply.Errno)

	e1 := ipc(IpcArgs{Op: IpcNextEntry})
	require.Equal(t, xlator.Errno(0), e1.Errno)
	assert.Equal(t, "entry-a", string(trimNulls(e1.Reply.(IpcReply).Entry.Payload())))

	e2 := ipc(IpcArgs{Op: IpcNextEntry})
	assert.Equal(t, "entry-b", string(trimNulls(e2.Reply.(IpcReply).Entry.Payload())))

	e3 := ipc(IpcArgs{Op: IpcNextEntry})
	assert.Equal(t, xlator.ENODATA, e3.Errno, "reading past the end returns the distinguished no-more error")
}

// passThroughChild grants every fop unconditionally, used where the test
// only cares about JBR's own side effects (dirty tracking, term log) and
// not about the local child's locking semantics.
type passThroughChild struct {
	result xlator.Errno
}

func (c passThroughChild) Name() string                  { return "passthrough" }
func (c passThroughChild) Init() error                   { return nil }
func (c passThroughChild) Fini() error                   { return nil }
func (c passThroughChild) Notify(xlator.NotifyEvent, any) error { return nil }
func (c passThroughChild) Children() []xlator.Translator { return nil }
func (c passThroughChild) Options() *xlator.Options      { return nil }
func (c passThroughChild) Fop(op xlator.Fop) xlator.FopFunc {
	return func(frame any, args any) {
		stack.Unwind(frame.(*stack.Frame), c.result, nil)
	}
}

func TestInitResumesPastLastCommittedTerm(t *testing.T) {
	store, err := brickd.NewStore(t.TempDir())
	require.NoError(t, err)

	tl := NewTermLog(store)
	require.NoError(t, tl.Append(4, []byte("x")))

	local := stubLockChild{name: "local"}
	tr := New("jbr-init-test", local, nil, store, true, 0.5, nil)

	require.NoError(t, tr.Init())
	assert.Equal(t, uint32(5), tr.currentTerm())
	require.NoError(t, tr.Fini())
}
