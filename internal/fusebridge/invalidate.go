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
	"context"
	"log/slog"

	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseops"
)

// fuse.Notifier is the connection-independent handle the mount layer
// hands out for pushing reverse invalidations to the kernel; see
// fuse.NewNotifier in mount.go.

// invalEntryReq and invalInodeReq describe a pending reverse invalidation
// (the server telling the kernel its cache is stale), queued by whichever
// fop noticed the staleness and drained by a dedicated goroutine so the
// request thread that noticed never blocks on the kernel's invalidation
// channel.
type invalEntryReq struct {
	parent fuseops.InodeID
	name   string
}

type invalInodeReq struct {
	inode fuseops.InodeID
}

// invalidator owns the channel-backed queue and the goroutine draining
// it against a *fuse.Notifier (once mounted).
type invalidator struct {
	entries chan invalEntryReq
	inodes  chan invalInodeReq
	log     *slog.Logger
}

func newInvalidator(log *slog.Logger) *invalidator {
	return &invalidator{
		entries: make(chan invalEntryReq, 256),
		inodes:  make(chan invalInodeReq, 256),
		log:     log,
	}
}

// InvalidateEntry queues FUSE_NOTIFY_INVAL_ENTRY for (parent, name). It
// never blocks the caller: a full queue drops the oldest notification
// rather than stalling a fop thread, since a dropped invalidation just
// costs the kernel one extra round trip on next access, not correctness.
func (v *invalidator) InvalidateEntry(parent fuseops.InodeID, name string) {
	select {
	case v.entries <- invalEntryReq{parent, name}:
	default:
		select {
		case <-v.entries:
		default:
		}
		v.entries <- invalEntryReq{parent, name}
	}
}

// InvalidateInode queues FUSE_NOTIFY_INVAL_INODE for inode, same
// non-blocking discipline as InvalidateEntry.
func (v *invalidator) InvalidateInode(id fuseops.InodeID) {
	select {
	case v.inodes <- invalInodeReq{id}:
	default:
		select {
		case <-v.inodes:
		default:
		}
		v.inodes <- invalInodeReq{id}
	}
}

// Run drains both queues against notifier until ctx is cancelled. It is
// started once per mounted file system.
func (v *invalidator) Run(ctx context.Context, notifier *fuse.Notifier) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-v.entries:
			if err := notifier.InvalidateEntry(req.parent, req.name); err != nil {
				v.log.Warn("invalidate entry failed", "parent", req.parent, "name", req.name, "err", err)
			}
		case req := <-v.inodes:
			if err := notifier.InvalidateInode(req.inode, 0, 0); err != nil {
				v.log.Warn("invalidate inode failed", "inode", req.inode, "err", err)
			}
		}
	}
}
