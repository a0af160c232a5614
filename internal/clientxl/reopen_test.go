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
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func newTestTranslator(remote Remote, strictLocks bool) *Translator {
	return New("clientxl", remote, strictLocks, PingConfig{
		Interval: time.Hour, MissedAllowed: 2, ReconnectLimit: rate.Inf,
	}, nil)
}

// A strict-locks fd that held a posix lock at disconnect is poisoned once
// its reopen completes, even though lock recovery itself succeeded: the
// reopened server has re-applied the lock, but that's not the same as
// proving it was explicitly re-granted, so the fd still fails closed.
func TestReopenAllRecoversLocksAndClearsGate(t *testing.T) {
	remote := newFakeRemote()
	tr := newTestTranslator(remote, true)

	gfid := uuid.New()
	remoteFd, err := remote.Open(context.Background(), gfid, 0)
	require.NoError(t, err)
	s := newFdState(gfid, 0, remoteFd)
	id := tr.fds.add(s)
	s.addLock(LockRequest{Start: 0, End: 10})

	tr.ReopenAll(context.Background())

	assert.True(t, s.isPoisoned())
	assert.Equal(t, 1, remote.reopenCalls)
	assert.Equal(t, 1, remote.lockCalls)

	_, inFlight := tr.reopen.peek(id)
	assert.False(t, inFlight)
}

// An fd with no locks held at disconnect reopens cleanly and is never
// poisoned, even in strict-locks mode.
func TestReopenAllDoesNotPoisonLocklessFdInStrictMode(t *testing.T) {
	remote := newFakeRemote()
	tr := newTestTranslator(remote, true)

	gfid := uuid.New()
	remoteFd, err := remote.Open(context.Background(), gfid, 0)
	require.NoError(t, err)
	s := newFdState(gfid, 0, remoteFd)
	tr.fds.add(s)

	tr.ReopenAll(context.Background())

	assert.False(t, s.isPoisoned())
}

// With strict-locks disabled, a recovered fd is never poisoned even though
// it held locks at disconnect.
func TestReopenAllDoesNotPoisonLockedFdWhenStrictLocksDisabled(t *testing.T) {
	remote := newFakeRemote()
	tr := newTestTranslator(remote, false)

	gfid := uuid.New()
	remoteFd, err := remote.Open(context.Background(), gfid, 0)
	require.NoError(t, err)
	s := newFdState(gfid, 0, remoteFd)
	tr.fds.add(s)
	s.addLock(LockRequest{Start: 0, End: 10})

	tr.ReopenAll(context.Background())

	assert.False(t, s.isPoisoned())
}

func TestReopenAllPoisonsFdOnReopenFailureInStrictMode(t *testing.T) {
	remote := newFakeRemote()
	gfid := uuid.New()
	remote.failReopen[gfid] = true

	tr := newTestTranslator(remote, true)
	s := newFdState(gfid, 0, 1)
	tr.fds.add(s)

	tr.ReopenAll(context.Background())
	assert.True(t, s.isPoisoned())
}

func TestReopenAllDoesNotPoisonWhenStrictLocksDisabled(t *testing.T) {
	remote := newFakeRemote()
	gfid := uuid.New()
	remote.failReopen[gfid] = true

	tr := newTestTranslator(remote, false)
	s := newFdState(gfid, 0, 1)
	tr.fds.add(s)

	tr.ReopenAll(context.Background())
	assert.False(t, s.isPoisoned())
}

func TestWaitBlocksUntilReopenFinishes(t *testing.T) {
	c := newReopenCoordinator()
	c.begin(42)

	done := make(chan error, 1)
	go func() {
		done <- c.wait(context.Background(), 42)
	}()

	select {
	case <-done:
		t.Fatal("wait returned before finish was called")
	case <-time.After(20 * time.Millisecond):
	}

	c.finish(42)
	require.NoError(t, <-done)
}
