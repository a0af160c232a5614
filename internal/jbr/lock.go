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
	"bytes"
	"context"
	"encoding/gob"
	"sync"

	"github.com/gluster-go/glusterfsd/internal/inode"
	"github.com/gluster-go/glusterfsd/internal/stack"
	"github.com/gluster-go/glusterfsd/internal/xlator"
)

// LockArgs is the argument struct JBR registers for FopInodelk, FopEntrylk
// and FopLk alike: the three fops differ only in what they lock, not in
// the two-phase acquire/release protocol, so one struct and one pair of
// handlers cover all three.
type LockArgs struct {
	Gfid inode.Gfid
	Lock inode.Lock

	// Reconciled marks a request as already leader- or reconciler-stamped:
	// the fan-out dispatch to followers stamps its peer calls this way so
	// a follower applies them without re-checking role, and a reconciler
	// replaying the term log after a partition does the same.
	Reconciled bool
}

// lk is the FopLk (and, identically, FopInodelk/FopEntrylk) entry point.
func (t *Translator) lk(frame any, args any) {
	f := frame.(*stack.Frame)
	a := args.(LockArgs)

	if !a.Reconciled && !t.role.IsLeader() {
		stack.Unwind(f, errElsewhere, nil)
		return
	}

	q := t.queues.get(a.Gfid)
	if !q.tryAcquire() {
		q.enqueue(stack.NewStub(f, f.Op, args, func(frame *stack.Frame, args any) {
			t.lk(frame, args)
		}))
		return
	}
	t.beginLock(f, a, q)
}

// beginLock winds the lock attempt to the local storage child first, per
// "leader attempts the lock locally, then dispatches to followers".
func (t *Translator) beginLock(f *stack.Frame, a LockArgs, q *inodeQueue) {
	isUnlock := a.Lock.Type == inode.LockUnlock
	if isUnlock {
		// "Lock release: leader dispatches unlock to followers first, then
		// releases locally when quorum confirms."
		t.fanOutLock(f, a, q)
		return
	}

	stack.Wind(f, func(local *stack.Frame) {
		if local.Errno != 0 {
			t.finishLock(f, q, local.Errno, nil)
			return
		}
		t.fanOutLock(f, a, q)
	}, t.local, f.Op, a)
}

// fanOutLock dispatches a to every peer, stamped Reconciled so the peer
// applies it unconditionally, and decides the outcome once every peer has
// replied.
func (t *Translator) fanOutLock(f *stack.Frame, a LockArgs, q *inodeQueue) {
	peers := t.peers
	isUnlock := a.Lock.Type == inode.LockUnlock

	if len(peers) == 0 {
		if isUnlock {
			t.applyLocalUnlock(f, a, q)
			return
		}
		t.commitLock(a)
		t.finishLock(f, q, 0, nil)
		return
	}

	peerArgs := a
	peerArgs.Reconciled = true

	fo := stack.NewFanOut(f, len(peers))
	var mu sync.Mutex
	// errnos is indexed the same as peers, not by arrival order, so
	// rollbackLock can tell exactly which peer actually applied a.
	errnos := make([]xlator.Errno, len(peers))

	for i, peer := range peers {
		stack.Wind(f, func(child *stack.Frame) {
			mu.Lock()
			errnos[i] = child.Errno
			mu.Unlock()

			if !fo.Done() {
				return
			}

			reachable := 0
			for _, e := range errnos {
				if e == 0 {
					reachable++
				}
			}
			if !QuorumMet(len(peers), t.quorumPct, reachable) {
				t.rollbackLock(a, peers, errnos)
				t.finishLock(f, q, xlator.EROFS, nil)
				return
			}

			if isUnlock {
				t.applyLocalUnlock(f, a, q)
				return
			}
			t.commitLock(a)
			t.finishLock(f, q, 0, nil)
		}, peer, f.Op, peerArgs)
	}
}

// applyLocalUnlock releases the lock on the local child once quorum of
// followers has confirmed the unlock, then commits the release to the
// term log.
func (t *Translator) applyLocalUnlock(f *stack.Frame, a LockArgs, q *inodeQueue) {
	stack.Wind(f, func(local *stack.Frame) {
		if local.Errno != 0 {
			t.finishLock(f, q, local.Errno, nil)
			return
		}
		t.commitLock(a)
		t.finishLock(f, q, 0, nil)
	}, t.local, f.Op, a)
}

// rollbackLock is best-effort: it re-dispatches the inverse of a so any
// peer that actually applied it undoes it, matching "lack of quorum on
// release causes rollback of both follower and leader state". Rollback
// errors are not retried; the caller already returns EROFS regardless.
func (t *Translator) rollbackLock(a LockArgs, peers []xlator.Translator, errnos []xlator.Errno) {
	inverse := a
	inverse.Reconciled = true
	if a.Lock.Type == inode.LockUnlock {
		inverse.Lock.Type = inode.LockWrite // re-grant what the unlock had released
	} else {
		inverse.Lock.Type = inode.LockUnlock
	}

	root := stack.NewRootFrame(context.Background(), t, stack.Creds{})
	for i, peer := range peers {
		if i >= len(errnos) || errnos[i] != 0 {
			continue // this peer never actually applied the operation
		}
		stack.Wind(root, func(*stack.Frame) {}, peer, xlator.FopLk, inverse)
	}
}

// finishLock unwinds f with errno/reply and resumes exactly the next
// queued stub for this inode, outside the queue's own lock.
func (t *Translator) finishLock(f *stack.Frame, q *inodeQueue, errno xlator.Errno, reply any) {
	stack.Unwind(f, errno, reply)
	if next := q.release(); next != nil {
		next.Resume()
	}
}

// commitLock appends a to the current term, matching "successful commit in
// term T implies a corresponding 128-byte record in TERM.T".
func (t *Translator) commitLock(a LockArgs) {
	if t.term == nil {
		return
	}
	payload, err := encodeLockRecord(a)
	if err != nil {
		return
	}
	_ = t.term.Append(t.currentTerm(), payload)
}

func encodeLockRecord(a LockArgs) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(a); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
