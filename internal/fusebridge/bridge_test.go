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
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/jacobsa/fuse/fuseops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gluster-go/glusterfsd/internal/inode"
	"github.com/gluster-go/glusterfsd/internal/stack"
	"github.com/gluster-go/glusterfsd/internal/xlator"
)

// stubRoot answers FopLookup directly, standing in for the translator
// graph below the bridge.
type stubRoot struct {
	childGfid uuid.UUID
	attr      inode.Attr
	errno     xlator.Errno
}

func (s *stubRoot) Name() string                             { return "stub-root" }
func (s *stubRoot) Init() error                               { return nil }
func (s *stubRoot) Fini() error                               { return nil }
func (s *stubRoot) Notify(xlator.NotifyEvent, any) error      { return nil }
func (s *stubRoot) Children() []xlator.Translator             { return nil }
func (s *stubRoot) Options() *xlator.Options                  { return nil }

func (s *stubRoot) Fop(op xlator.Fop) xlator.FopFunc {
	if op != xlator.FopLookup {
		return nil
	}
	return func(frame any, args any) {
		f := frame.(*stack.Frame)
		if s.errno != 0 {
			stack.Unwind(f, s.errno, nil)
			return
		}
		stack.Unwind(f, 0, lookupReply{Gfid: s.childGfid, Attr: s.attr})
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLookUpInodeFastPathSkipsWind(t *testing.T) {
	table := inode.NewTable()
	child := uuid.New()
	table.Link(child, inode.Attr{Size: 7}, inode.RootGfid, "cached")

	root := &stubRoot{errno: xlator.ENOENT} // would fail if wind were reached
	b := New("fusebridge", Config{Root: root, Inodes: table, BypassGids: true, Log: testLogger()})

	op := &fuseops.LookUpInodeOp{Parent: fuseops.RootInodeID, Name: "cached"}
	err := b.LookUpInode(op)
	require.NoError(t, err)
	assert.EqualValues(t, 7, op.Entry.Attributes.Size)
}

func TestLookUpInodeSlowPathWindsAndLinksResult(t *testing.T) {
	table := inode.NewTable()
	child := uuid.New()
	root := &stubRoot{childGfid: child, attr: inode.Attr{Size: 42}}
	b := New("fusebridge", Config{Root: root, Inodes: table, BypassGids: true, Log: testLogger()})

	op := &fuseops.LookUpInodeOp{Parent: fuseops.RootInodeID, Name: "fresh"}
	err := b.LookUpInode(op)
	require.NoError(t, err)
	assert.EqualValues(t, 42, op.Entry.Attributes.Size)

	got, ok := table.LookupByName(inode.RootGfid, "fresh")
	require.True(t, ok)
	assert.Equal(t, child, got.Gfid())
}

func TestLookUpInodeOnUnknownParentIsStale(t *testing.T) {
	table := inode.NewTable()
	root := &stubRoot{}
	b := New("fusebridge", Config{Root: root, Inodes: table, BypassGids: true, Log: testLogger()})

	op := &fuseops.LookUpInodeOp{Parent: fuseops.InodeID(987654), Name: "x"}
	err := b.LookUpInode(op)
	require.Error(t, err)
}

func TestForgetInodeDisposesAfterLookupCountReachesZero(t *testing.T) {
	table := inode.NewTable()
	child := uuid.New()
	root := &stubRoot{childGfid: child, attr: inode.Attr{}}
	b := New("fusebridge", Config{Root: root, Inodes: table, BypassGids: true, Log: testLogger()})

	op := &fuseops.LookUpInodeOp{Parent: fuseops.RootInodeID, Name: "f"}
	require.NoError(t, b.LookUpInode(op))

	err := b.ForgetInode(&fuseops.ForgetInodeOp{ID: op.Entry.Child, N: 1})
	require.NoError(t, err)

	_, ok := table.LookupByName(inode.RootGfid, "f")
	assert.False(t, ok)
}
