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

	"github.com/gluster-go/glusterfsd/internal/inode"
)

// fakeRemote is an in-memory Remote used by tests; it can be told to
// fail Reopen for a given gfid to exercise recovery failure paths. Lock
// does not consult failLock.
type fakeRemote struct {
	mu sync.Mutex

	nextFd      int64
	failReopen  map[inode.Gfid]bool
	failLock    map[inode.Gfid]bool
	reopenCalls int
	lockCalls   int
	pingErr     error
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		failReopen: make(map[inode.Gfid]bool),
		failLock:   make(map[inode.Gfid]bool),
	}
}

func (r *fakeRemote) Open(ctx context.Context, gfid inode.Gfid, flags uint32) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextFd++
	return r.nextFd, nil
}

func (r *fakeRemote) Reopen(ctx context.Context, gfid inode.Gfid, flags uint32) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reopenCalls++
	if r.failReopen[gfid] {
		return 0, errReopenFailed
	}
	r.nextFd++
	return r.nextFd, nil
}

func (r *fakeRemote) Close(ctx context.Context, remoteFd int64) error { return nil }

func (r *fakeRemote) Read(ctx context.Context, remoteFd int64, offset int64, size int) ([]byte, error) {
	return make([]byte, size), nil
}

func (r *fakeRemote) Write(ctx context.Context, remoteFd int64, offset int64, data []byte) error {
	return nil
}

func (r *fakeRemote) Lock(ctx context.Context, remoteFd int64, req LockRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lockCalls++
	return nil
}

func (r *fakeRemote) Unlock(ctx context.Context, remoteFd int64, req LockRequest) error { return nil }

func (r *fakeRemote) Ping(ctx context.Context) error { return r.pingErr }

var errReopenFailed = fakeErr("reopen failed")

type fakeErr string

func (e fakeErr) Error() string { return string(e) }
