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
	"context"
	"sync"
)

// reopenCoordinator enforces the ordering guarantee spec.md's reopen
// protocol names: no user operation on an fd may complete against a new
// connection until that fd's reopen has finished. Write and lock first
// call wait for their fd id; read, which tolerates statelessness, calls
// peek and takes the anonymous fd while a reopen is in flight. The reopen
// walk calls begin/finish around each fd's Reopen call.
type reopenCoordinator struct {
	mu      sync.Mutex
	pending map[uint64]chan struct{}
}

func newReopenCoordinator() *reopenCoordinator {
	return &reopenCoordinator{pending: make(map[uint64]chan struct{})}
}

// begin records id as having an in-flight reopen and returns the gate
// that wait blocks on. Calling begin twice for the same id without an
// intervening finish returns the existing gate.
func (c *reopenCoordinator) begin(id uint64) chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ch, ok := c.pending[id]; ok {
		return ch
	}
	ch := make(chan struct{})
	c.pending[id] = ch
	return ch
}

// finish closes id's gate, releasing every fop blocked in wait.
func (c *reopenCoordinator) finish(id uint64) {
	c.mu.Lock()
	ch, ok := c.pending[id]
	delete(c.pending, id)
	c.mu.Unlock()
	if ok {
		close(ch)
	}
}

// peek reports whether id currently has an in-flight reopen, without
// creating one. Callers that can tolerate racing ahead on an anonymous
// fd use this instead of wait.
func (c *reopenCoordinator) peek(id uint64) (gate chan struct{}, inFlight bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, ok := c.pending[id]
	return ch, ok
}

// wait blocks until id has no in-flight reopen, or ctx is cancelled.
func (c *reopenCoordinator) wait(ctx context.Context, id uint64) error {
	c.mu.Lock()
	ch, ok := c.pending[id]
	c.mu.Unlock()
	if !ok {
		return nil
	}
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// reopenOne reopens a single fd and recovers its locks. On any failure in
// strict-locks mode the fd is poisoned rather than left half-recovered.
// Even on success, strict-locks mode poisons any fd that held a posix lock
// at disconnect: recoverLocks re-issues those locks against the new remote
// fd rather than proving the reopened server explicitly re-granted them,
// and spec treats that as unproven until told otherwise.
func (t *Translator) reopenOne(ctx context.Context, id uint64, s *fdState) {
	t.reopen.begin(id)
	defer t.reopen.finish(id)

	hadLocks := len(s.snapshotLocks()) > 0

	remoteFd, err := t.remote.Reopen(ctx, s.gfid, s.flags)
	if err != nil {
		if t.strictLocks {
			s.poison()
		}
		t.runPostReopen(s, err)
		return
	}

	s.mu.Lock()
	s.remoteFd = remoteFd
	s.released = false
	s.mu.Unlock()

	if err := t.recoverLocks(ctx, s, remoteFd); err != nil {
		if t.strictLocks {
			s.poison()
		}
		t.runPostReopen(s, err)
		return
	}

	if t.strictLocks && hadLocks {
		s.poison()
	}

	t.runPostReopen(s, nil)
}

func (t *Translator) runPostReopen(s *fdState, err error) {
	s.mu.Lock()
	cb := s.postReopen
	s.postReopen = nil
	s.mu.Unlock()
	if cb != nil {
		cb(err)
	}
}

// ReopenAll walks every live fd and reopens it against the current
// connection. Called once per reconnect, after Ping has confirmed the
// new connection is usable.
func (t *Translator) ReopenAll(ctx context.Context) {
	fds := t.fds.all()
	var wg sync.WaitGroup
	for id, s := range fds {
		wg.Add(1)
		go func(id uint64, s *fdState) {
			defer wg.Done()
			t.reopenOne(ctx, id, s)
		}(id, s)
	}
	wg.Wait()
}
