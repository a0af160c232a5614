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
	"os"
	"syscall"
	"time"

	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseops"

	"github.com/gluster-go/glusterfsd/internal/inode"
	"github.com/gluster-go/glusterfsd/internal/metrics"
	"github.com/gluster-go/glusterfsd/internal/stack"
	"github.com/gluster-go/glusterfsd/internal/xlator"
)

// Bridge is both the translator-graph entry point (it has no Fop
// override of its own and exists only as the thing that winds the first
// frame of each request) and the github.com/jacobsa/fuse/fuseutil
// FileSystem implementation the kernel driver talks to. It owns the
// nodeid table, gid cache, xattr policy, and reverse-invalidation queue
// that bridge the kernel's identity and permission model onto the
// graph's gfid-keyed one.
type Bridge struct {
	name string
	root xlator.Translator // the first real translator below the bridge

	nodes    *NodeTable
	inodes   *inode.Table
	resolver *resolver
	gids     *GidCache
	xattrs   *XattrPolicy
	inval    *invalidator

	log *slog.Logger
}

// Config bundles the bridge's construction-time dependencies.
type Config struct {
	Root        xlator.Translator
	Inodes      *inode.Table
	GidTTL      time.Duration
	Groups      GroupResolver
	BypassGids  bool
	TrustedPids []uint32
	Log         *slog.Logger
}

// New builds a Bridge ready to be handed to fuse.Mount via
// fuseutil.NewFileSystemServer.
func New(name string, cfg Config) *Bridge {
	nodes := NewNodeTable()
	return &Bridge{
		name:     name,
		root:     cfg.Root,
		nodes:    nodes,
		inodes:   cfg.Inodes,
		resolver: newResolver(nodes, cfg.Inodes),
		gids:     NewGidCache(cfg.GidTTL, cfg.Groups, cfg.BypassGids),
		xattrs:   NewXattrPolicy(cfg.TrustedPids),
		inval:    newInvalidator(cfg.Log),
		log:      cfg.Log,
	}
}

// Invalidator exposes the reverse-invalidation queue so other
// translators (fscache on an external purge, jbr on a replica takeover)
// can ask the kernel to drop stale cache entries without going through
// a fop reply.
func (b *Bridge) Invalidator() *invalidator { return b.inval }

// RunInvalidator starts draining the reverse-invalidation queue against
// notifier. It must be called once the file system has been mounted, and
// its goroutine is the only thing that ever calls into the notifier, so
// a slow or wedged kernel channel never blocks a fop request thread.
func (b *Bridge) RunInvalidator(ctx context.Context, notifier *fuse.Notifier) {
	go b.inval.Run(ctx, notifier)
}

func (b *Bridge) creds(ctx context.Context, uid, gid, pid uint32) stack.Creds {
	groups, err := b.gids.Resolve(uid, gid)
	if err != nil {
		b.log.Warn("gid resolution failed, falling back to ungrouped", "uid", uid, "err", err)
		groups = []uint32{gid}
	}
	return stack.Creds{UID: uid, GID: gid, PID: pid, Groups: groups}
}

// callSync winds op down the graph from a fresh root frame and blocks
// until the fop's Unwind fires, returning the terminal frame. Every
// fuseutil.FileSystem method below is a thin wrapper around this.
func (b *Bridge) callSync(ctx context.Context, creds stack.Creds, op xlator.Fop, args any) *stack.Frame {
	start := time.Now()
	root := stack.NewRootFrame(ctx, b.root, creds)
	done := make(chan *stack.Frame, 1)
	stack.Wind(root, func(child *stack.Frame) { done <- child }, b.root, op, args)
	result := <-done

	taxonomy := ""
	if result.Errno != 0 {
		taxonomy = xlator.Classify(result.Errno).String()
	}
	metrics.RecordFop(ctx, b.name, op.String(), time.Since(start).Seconds(), taxonomy, result.Errno != 0)
	return result
}

func toErrno(e xlator.Errno) error {
	if e == 0 {
		return nil
	}
	return syscall.Errno(e)
}

// gfidFor resolves a FUSE nodeid to a gfid, returning ESTALE if the
// kernel handed us an id we no longer recognize (e.g. across a daemon
// restart that lost its in-memory node table).
func (b *Bridge) gfidFor(id fuseops.InodeID) (inode.Gfid, error) {
	g, ok := b.nodes.Gfid(id)
	if !ok {
		return inode.Gfid{}, syscall.Errno(xlator.ESTALE)
	}
	return g, nil
}

func attrToFuse(a inode.Attr) fuseops.InodeAttributes {
	return fuseops.InodeAttributes{
		Size:  a.Size,
		Nlink: a.Nlink,
		Mode:  os.FileMode(a.Mode),
		Uid:   a.UID,
		Gid:   a.GID,
		Atime: a.Atime,
		Mtime: a.Mtime,
		Ctime: a.Ctime,
	}
}
