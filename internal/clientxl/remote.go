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

// Package clientxl implements the client-side RPC translator: it turns
// local fops into calls against a brick daemon, tracks per-fd remote
// state, and reestablishes both fds and locks after the underlying
// transport reconnects.
package clientxl

import (
	"context"

	"github.com/gluster-go/glusterfsd/internal/inode"
	"github.com/gluster-go/glusterfsd/internal/xlator"
)

// AnonymousFd is the sentinel remote-fd value meaning "no real server fd
// is bound; address this gfid statelessly." Used for fops that arrive on
// an fd whose reopen hasn't finished yet, when the fop type tolerates it.
const AnonymousFd int64 = -1

// LockRequest mirrors internal/inode.Lock but travels over the wire
// rather than guarding local state.
type LockRequest struct {
	Start, End int64
	Type       inode.LockType
	Owner      inode.LockOwner
}

// Remote is the transport-facing surface clientxl drives. internal/brickd
// provides the concrete implementation; tests substitute a fake.
type Remote interface {
	// Open opens gfid on the server and returns a remote fd handle.
	Open(ctx context.Context, gfid inode.Gfid, flags uint32) (remoteFd int64, err error)
	// Reopen re-establishes a previously granted remote fd against a (new)
	// connection, e.g. after a reconnect.
	Reopen(ctx context.Context, gfid inode.Gfid, flags uint32) (remoteFd int64, err error)
	Close(ctx context.Context, remoteFd int64) error

	Read(ctx context.Context, remoteFd int64, offset int64, size int) ([]byte, error)
	Write(ctx context.Context, remoteFd int64, offset int64, data []byte) error

	Lock(ctx context.Context, remoteFd int64, req LockRequest) error
	Unlock(ctx context.Context, remoteFd int64, req LockRequest) error

	// Ping round-trips a liveness probe over the current connection.
	Ping(ctx context.Context) error
}

func toErrno(e xlator.Errno) error {
	if e == 0 {
		return nil
	}
	return e
}
