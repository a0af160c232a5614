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

// stubLockChild always grants (or denies) FopLk immediately, recording
// every request it was wound for.
type stubLockChild struct {
	name   string
	result xlator.Errno
	seen   *[]LockArgs
}

func (c stubLockChild) Name() string                 { return c.name }
func (c stubLockChild) Init() error                  { return nil }
func (c stubLockChild) Fini() error                  { return nil }
func (c stubLockChild) Notify(xlator.NotifyEvent, any) error { return nil }
func (c stubLockChild) Children() []xlator.Translator { return nil }
func (c stubLockChild) Options() *xlator.Options      { return nil }
func (c stubLockChild) Fop(op xlator.Fop) xlator.FopFunc {
	if op != xlator.FopLk {
		return nil
	}
	return func(frame any, args any) {
		f := frame.(*stack.Frame)
		if c.seen != nil {
			*c.seen = append(*c.seen, args.(LockArgs))
		}
		stack.Unwind(f, c.result, nil)
	}
}

func newTestJBR(t *testing.T, configLeader bool, quorumPct float64, peers []xlator.Translator) *Translator {
	t.Helper()
	store, err := brickd.NewStore(t.TempDir())
	require.NoError(t, err)
	local := stubLockChild{name: "local", result: 0}
	return New("jbr-test", local, peers, store, configLeader, quorumPct, nil)
}

func doLock(tr *Translator, a LockArgs) *stack.Frame {
	root := stack.NewRootFrame(context.Background(), tr, stack.Creds{})
	done := make(chan *stack.Frame, 1)
	stack.Wind(root, func(child *stack.Frame) { done <- child }, tr, xlator.FopLk, a)
	return <-done
}

func TestNonLeaderRejectsDirectClientLock(t *testing.T) {
	tr := newTestJBR(t, false, 0.5, nil)
	reply := doLock(tr, LockArgs{Gfid: inode.NewGfid(), Lock: inode.Lock{Type: inode.LockWrite}})
	assert.Equal(t, errElsewhere, reply.Errno)
}

func TestLeaderWithNoPeersGrantsLocally(t *testing.T) {
	tr := newTestJBR(t, true, 0.5, nil)
	reply := doLock(tr, LockArgs{Gfid: inode.NewGfid(), Lock: inode.Lock{Type: inode.LockWrite}})
	assert.Equal(t, xlator.Errno(0), reply.Errno)
}

func TestLeaderGrantsOnlyAfterQuorumOfPeersAck(t *testing.T) {
	peers := []xlator.Translator{
		stubLockChild{name: "peer0", result: 0},
		stubLockChild{name: "peer1", result: 0},
	}
	tr := newTestJBR(t, true, 0.5, peers)
	reply := doLock(tr, LockArgs{Gfid: inode.NewGfid(), Lock: inode.Lock{Type: inode.LockWrite}})
	assert.Equal(t, xlator.Errno(0), reply.Errno)
}

func TestLeaderRollsBackAndReturnsEROFSOnQuorumLoss(t *testing.T) {
	// spec scenario 5: 3 replicas, quorum_pct=50 -> 2 peers excluding self;
	// one peer acks the unlock, the other is unreachable -> quorum (strictly
	// more than 1 of 2) is not met.
	var rollbackSeen []LockArgs
	peers := []xlator.Translator{
		stubLockChild{name: "peer-ok", result: 0, seen: &rollbackSeen},
		stubLockChild{name: "peer-down", result: xlator.ENOTCONN},
	}
	tr := newTestJBR(t, true, 0.5, peers)

	reply := doLock(tr, LockArgs{Gfid: inode.NewGfid(), Lock: inode.Lock{Type: inode.LockUnlock}})
	assert.Equal(t, xlator.EROFS, reply.Errno)
}

func TestConflictingLocksOnSameInodeSerialize(t *testing.T) {
	tr := newTestJBR(t, true, 0.5, nil)
	gfid := inode.NewGfid()

	root := stack.NewRootFrame(context.Background(), tr, stack.Creds{})
	done1 := make(chan *stack.Frame, 1)
	done2 := make(chan *stack.Frame, 1)

	stack.Wind(root, func(child *stack.Frame) { done1 <- child }, tr, xlator.FopLk,
		LockArgs{Gfid: gfid, Lock: inode.Lock{Type: inode.LockWrite}})
	stack.Wind(root, func(child *stack.Frame) { done2 <- child }, tr, xlator.FopLk,
		LockArgs{Gfid: gfid, Lock: inode.Lock{Type: inode.LockWrite}})

	r1 := <-done1
	r2 := <-done2
	assert.Equal(t, xlator.Errno(0), r1.Errno)
	assert.Equal(t, xlator.Errno(0), r2.Errno)
}
