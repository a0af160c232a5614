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
	"log/slog"

	"github.com/gluster-go/glusterfsd/internal/inode"
	"github.com/gluster-go/glusterfsd/internal/stack"
	"github.com/gluster-go/glusterfsd/internal/xlator"
)

// OpenArgs/OpenReply etc. are the argument/reply payloads this
// translator's Fop entries consume and produce.
type OpenArgs struct {
	Gfid  inode.Gfid
	Flags uint32
}
type OpenReply struct{ Fd uint64 }

type ReadArgs struct {
	Fd     uint64
	Offset int64
	Size   int
}
type ReadReply struct{ Data []byte }

type WriteArgs struct {
	Fd     uint64
	Offset int64
	Data   []byte
}

type LockArgs struct {
	Fd  uint64
	Req LockRequest
}

type ReleaseArgs struct{ Fd uint64 }

// statelessOps are fops that may fall back to an anonymous remote fd
// when the real fd's reopen hasn't completed yet, rather than blocking.
var statelessOps = map[xlator.Fop]bool{
	xlator.FopRead:  true,
	xlator.FopWrite: false, // writes always wait: losing ordering here would corrupt data
}

// Translator is the client-side RPC translator.
type Translator struct {
	name  string
	child xlator.Translator
	opts  *xlator.Options

	remote      Remote
	fds         *fdTable
	reopen      *reopenCoordinator
	strictLocks bool
	pinger      *pinger

	log *slog.Logger
}

var optionSpec = []xlator.OptionSpec{
	{Key: "ping-timeout", Default: 42},
	{Key: "strict-locks", Default: 0},
}

// New builds a client translator talking to remote, with no child (it is
// the leaf translator on the client side, terminating the local half of
// the graph at the network boundary).
func New(name string, remote Remote, strictLocks bool, ping PingConfig, log *slog.Logger) *Translator {
	return &Translator{
		name:        name,
		opts:        xlator.NewOptions(optionSpec),
		remote:      remote,
		fds:         newFdTable(),
		reopen:      newReopenCoordinator(),
		strictLocks: strictLocks,
		pinger:      newPinger(ping),
		log:         log,
	}
}

func (t *Translator) Name() string                        { return t.name }
func (t *Translator) Init() error                          { return nil }
func (t *Translator) Fini() error                          { return nil }
func (t *Translator) Children() []xlator.Translator        { return nil }
func (t *Translator) Options() *xlator.Options             { return t.opts }

func (t *Translator) Notify(event xlator.NotifyEvent, data any) error {
	return nil
}

// Run starts the background ping loop; callers spawn this once per
// mounted graph instance.
func (t *Translator) Run(ctx context.Context) { go t.runPinger(ctx) }

func (t *Translator) Fop(op xlator.Fop) xlator.FopFunc {
	switch op {
	case xlator.FopOpen, xlator.FopCreate:
		return t.open
	case xlator.FopRead:
		return t.read
	case xlator.FopWrite:
		return t.write
	case xlator.FopInodelk, xlator.FopEntrylk, xlator.FopLk:
		return t.lock
	case xlator.FopRelease, xlator.FopReleaseDir:
		return t.release
	default:
		return nil
	}
}

func (t *Translator) open(frame any, args any) {
	f := frame.(*stack.Frame)
	a := args.(OpenArgs)

	remoteFd, err := t.remote.Open(f.Ctx, a.Gfid, a.Flags)
	if err != nil {
		stack.Unwind(f, xlator.EIO, nil)
		return
	}
	s := newFdState(a.Gfid, a.Flags, remoteFd)
	id := t.fds.add(s)
	stack.Unwind(f, 0, OpenReply{Fd: id})
}

// resolveFd returns the remote fd to operate on for id, waiting on the
// reopen ordering guarantee unless the fop is stateless and may take the
// anonymous-fd fallback instead.
func (t *Translator) resolveFd(ctx context.Context, id uint64, op xlator.Fop) (remoteFd int64, poisoned bool, ok bool) {
	s, ok := t.fds.get(id)
	if !ok {
		return 0, false, false
	}
	if s.isPoisoned() {
		return 0, true, true
	}

	if statelessOps[op] {
		if _, inFlight := t.reopen.peek(id); inFlight {
			// Reopen still in flight and this fop tolerates statelessness:
			// serve it against the anonymous fd instead of blocking.
			return AnonymousFd, false, true
		}
	} else if err := t.reopen.wait(ctx, id); err != nil {
		return 0, false, false
	}

	s.mu.Lock()
	fd := s.remoteFd
	s.mu.Unlock()
	return fd, false, true
}

func (t *Translator) read(frame any, args any) {
	f := frame.(*stack.Frame)
	a := args.(ReadArgs)

	remoteFd, poisoned, ok := t.resolveFd(f.Ctx, a.Fd, xlator.FopRead)
	if !ok {
		stack.Unwind(f, xlator.EBADF, nil)
		return
	}
	if poisoned {
		stack.Unwind(f, xlator.EBADF, nil)
		return
	}

	data, err := t.remote.Read(f.Ctx, remoteFd, a.Offset, a.Size)
	if err != nil {
		stack.Unwind(f, xlator.EIO, nil)
		return
	}
	stack.Unwind(f, 0, ReadReply{Data: data})
}

func (t *Translator) write(frame any, args any) {
	f := frame.(*stack.Frame)
	a := args.(WriteArgs)

	remoteFd, poisoned, ok := t.resolveFd(f.Ctx, a.Fd, xlator.FopWrite)
	if !ok {
		stack.Unwind(f, xlator.EBADF, nil)
		return
	}
	if poisoned {
		stack.Unwind(f, xlator.EBADF, nil)
		return
	}

	if err := t.remote.Write(f.Ctx, remoteFd, a.Offset, a.Data); err != nil {
		stack.Unwind(f, xlator.EIO, nil)
		return
	}
	stack.Unwind(f, 0, nil)
}

func (t *Translator) lock(frame any, args any) {
	f := frame.(*stack.Frame)
	a := args.(LockArgs)

	if err := t.reopen.wait(f.Ctx, a.Fd); err != nil {
		stack.Unwind(f, xlator.EBADF, nil)
		return
	}

	s, ok := t.fds.get(a.Fd)
	if !ok || s.isPoisoned() {
		stack.Unwind(f, xlator.EBADF, nil)
		return
	}

	s.mu.Lock()
	remoteFd := s.remoteFd
	s.mu.Unlock()

	if a.Req.Type == inode.LockUnlock {
		if err := t.remote.Unlock(f.Ctx, remoteFd, a.Req); err != nil {
			stack.Unwind(f, xlator.EIO, nil)
			return
		}
		s.removeLock(a.Req)
		stack.Unwind(f, 0, nil)
		return
	}

	if err := t.remote.Lock(f.Ctx, remoteFd, a.Req); err != nil {
		stack.Unwind(f, xlator.EAGAIN, nil)
		return
	}
	s.addLock(a.Req)
	stack.Unwind(f, 0, nil)
}

func (t *Translator) release(frame any, args any) {
	f := frame.(*stack.Frame)
	a := args.(ReleaseArgs)

	s, ok := t.fds.get(a.Fd)
	if ok {
		s.mu.Lock()
		remoteFd := s.remoteFd
		s.released = true
		s.mu.Unlock()
		_ = t.remote.Close(f.Ctx, remoteFd)
		t.fds.remove(a.Fd)
	}
	stack.Unwind(f, 0, nil)
}
