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

package clientxl

import (
	"sync"

	"github.com/gluster-go/glusterfsd/internal/inode"
)

// fdState is the per-fd context this translator keeps, matching the
// fields spec.md's fd-state paragraph names: the server-assigned remote
// fd, the open flags, a released flag, the gfid for rebinding, the locks
// granted through this handle, and a slot for a post-reopen callback.
type fdState struct {
	mu sync.Mutex

	gfid     inode.Gfid
	flags    uint32
	remoteFd int64
	released bool

	// poisoned is set when strict-locks mode determines this fd's locks
	// could not be safely recovered after a reconnect; every subsequent
	// op on it fails fast instead of silently operating lock-free.
	poisoned bool

	locks []LockRequest

	// postReopen, if non-nil, runs once immediately after this fd's
	// reopen completes (successfully or not) and is then cleared. It
	// lets a caller queue "resume this stub once my fd is usable again"
	// without polling.
	postReopen func(err error)
}

func newFdState(gfid inode.Gfid, flags uint32, remoteFd int64) *fdState {
	return &fdState{gfid: gfid, flags: flags, remoteFd: remoteFd}
}

func (s *fdState) snapshotLocks() []LockRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]LockRequest, len(s.locks))
	copy(out, s.locks)
	return out
}

func (s *fdState) addLock(l LockRequest) {
	s.mu.Lock()
	s.locks = append(s.locks, l)
	s.mu.Unlock()
}

func (s *fdState) removeLock(l LockRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, have := range s.locks {
		if have == l {
			s.locks = append(s.locks[:i], s.locks[i+1:]...)
			return
		}
	}
}

func (s *fdState) isPoisoned() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.poisoned
}

func (s *fdState) poison() {
	s.mu.Lock()
	s.poisoned = true
	s.mu.Unlock()
}

// fdTable is the registry of live fdStates, keyed by the local handle id
// that add mints and open returns to the caller as OpenReply.Fd.
type fdTable struct {
	mu   sync.Mutex
	next uint64
	byID map[uint64]*fdState
}

func newFdTable() *fdTable {
	return &fdTable{byID: make(map[uint64]*fdState), next: 1}
}

func (t *fdTable) add(s *fdState) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.next
	t.next++
	t.byID[id] = s
	return id
}

func (t *fdTable) get(id uint64) (*fdState, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.byID[id]
	return s, ok
}

func (t *fdTable) remove(id uint64) {
	t.mu.Lock()
	delete(t.byID, id)
	t.mu.Unlock()
}

// all returns a snapshot of every live fdState, used by the reopen walk.
func (t *fdTable) all() map[uint64]*fdState {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[uint64]*fdState, len(t.byID))
	for k, v := range t.byID {
		out[k] = v
	}
	return out
}
