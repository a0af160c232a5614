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

package brickd

import (
	"sync"

	"github.com/gluster-go/glusterfsd/internal/inode"
)

// lockTable tracks posix locks granted per remote fd, so a client's
// reopen-after-reconnect lock recovery has something authoritative to
// reconcile against (a real brick would also check for conflicts across
// fds on the same gfid; this single-client-per-brick test harness only
// needs per-fd bookkeeping).
type lockTable struct {
	mu    sync.Mutex
	byFd  map[int64][]inode.Lock
}

func newLockTable() *lockTable {
	return &lockTable{byFd: make(map[int64][]inode.Lock)}
}

func (t *lockTable) grant(fd int64, l inode.Lock) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byFd[fd] = append(t.byFd[fd], l)
}

func (t *lockTable) release(fd int64, owner inode.LockOwner, start, end uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	locks := t.byFd[fd]
	out := locks[:0]
	for _, l := range locks {
		if l.Owner == owner && l.Start == start && l.End == end {
			continue
		}
		out = append(out, l)
	}
	t.byFd[fd] = out
}

func (t *lockTable) forget(fd int64) {
	t.mu.Lock()
	delete(t.byFd, fd)
	t.mu.Unlock()
}
