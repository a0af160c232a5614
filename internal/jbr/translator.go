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
	"log/slog"
	"sync/atomic"

	"github.com/gluster-go/glusterfsd/internal/brickd"
	"github.com/gluster-go/glusterfsd/internal/stack"
	"github.com/gluster-go/glusterfsd/internal/xlator"
)

// errElsewhere is the distinguished error a non-leader returns for a
// mutating fop that arrives directly from a client rather than via
// fan-out or reconciliation. No dedicated errno exists in the taxonomy for
// "ask the leader instead"; ENOTCONN is already classified transient/retry
// in internal/xlator/errno.go, which matches a client that should
// reconnect to the actual leader rather than treat this as a hard failure.
var errElsewhere = xlator.ENOTCONN

// WriteArgs is JBR's FopWrite argument struct: Handle is the brickd.Store
// handle the local child's posix layer opened this fd against, used only
// to mark it dirty before the write is wound through unchanged.
type WriteArgs struct {
	Handle int64
	Offset int64
	Data   []byte
}

// IpcOp is one of the three reconciliation operation codes JBR reserves on
// FopIpc.
type IpcOp int

const (
	IpcTermRange IpcOp = iota
	IpcOpenTerm
	IpcNextEntry
)

// IpcArgs is the argument struct for FopIpc.
type IpcArgs struct {
	Op   IpcOp
	Term uint32
}

// IpcReply is the reply payload for FopIpc.
type IpcReply struct {
	FirstTerm, LastTerm uint32
	HasRange            bool
	Entry               Entry
}

var optionSpec = []xlator.OptionSpec{
	{Key: "config-leader", Default: false},
	{Key: "quorum-pct", Default: 0.5, Min: 0, Max: 1},
	{Key: "replica-count", Default: int64(2), Min: 1, Max: 32},
}

// Translator is the JBR server-side translator: single-leader replication
// with quorum-gated writes, per-inode operation ordering, and a term log
// for post-partition reconciliation.
type Translator struct {
	name string
	opts *xlator.Options

	local xlator.Translator   // the local storage child; exactly what Children() reports
	peers []xlator.Translator // other replicas' translators, fanned out to by lock.go; not part of Children()

	role       *Role
	childState *ChildState
	queues     *InodeQueues
	dirty      *DirtyFds
	term       *TermLog

	quorumPct float64
	term32    uint32 // current term number; written only from Init/leader takeover

	log *slog.Logger
}

// New builds a JBR translator fronting local (the storage child) and
// replicating writes/locks to peers. store backs both dirty-fd tracking
// and the term log, sharing the brick's on-disk root.
func New(name string, local xlator.Translator, peers []xlator.Translator, store *brickd.Store, configLeader bool, quorumPct float64, log *slog.Logger) *Translator {
	return &Translator{
		name:       name,
		opts:       xlator.NewOptions(optionSpec),
		local:      local,
		peers:      peers,
		role:       NewRole(configLeader),
		childState: NewChildState(len(peers)),
		queues:     NewInodeQueues(),
		dirty:      NewDirtyFds(store, log),
		term:       NewTermLog(store),
		quorumPct:  quorumPct,
		log:        log,
	}
}

func (t *Translator) Name() string                  { return t.name }
func (t *Translator) Children() []xlator.Translator  { return []xlator.Translator{t.local} }
func (t *Translator) Options() *xlator.Options       { return t.opts }

// Init discovers the term range already on disk and starts the next term
// fresh, matching jbr_leader_checks_and_init's "resume past the last
// committed term" behavior. A brick with no prior history starts at term 0.
func (t *Translator) Init() error {
	_, last, ok, err := t.term.TermRange()
	if err != nil {
		return err
	}
	if ok {
		atomic.StoreUint32(&t.term32, last+1)
	}
	t.dirty.Start()
	return nil
}

// Fini stops the background flush thread, fsyncing whatever is still
// outstanding.
func (t *Translator) Fini() error {
	t.dirty.Stop()
	return nil
}

func (t *Translator) currentTerm() uint32 {
	return atomic.LoadUint32(&t.term32)
}

// Notify handles child up/down events against the quorum-gated bitmap and
// this replica's n=2 leader-takeover logic. Propagating CHILD_UP/CHILD_DOWN
// to this translator's own parent is the graph assembly's responsibility
// once quorum state actually changes; Notify itself only updates the
// bitmap and role so CountUp/IsLeader reflect the new state immediately.
func (t *Translator) Notify(event xlator.NotifyEvent, data any) error {
	idx, _ := data.(int)

	switch event {
	case xlator.ChildUp:
		if !t.childState.Up(idx) {
			return nil // duplicate notification, filtered
		}
	case xlator.ChildDown:
		if !t.childState.Down(idx) {
			return nil
		}
	default:
		return nil
	}

	peerUp := t.childState.CountUp() > 0
	t.role.NotePeerReachability(len(t.peers)+1, peerUp)
	return nil
}

func (t *Translator) Fop(op xlator.Fop) xlator.FopFunc {
	switch op {
	case xlator.FopInodelk, xlator.FopEntrylk, xlator.FopLk:
		return t.lk
	case xlator.FopWrite:
		return t.write
	case xlator.FopIpc:
		return t.ipc
	default:
		return nil
	}
}

// write marks the local fd handle dirty, then passes the write straight
// through to the local child unchanged: replication of the write's bytes
// to peers happens through the lock/term-log machinery that already
// guards the inode, not by re-sending the payload here.
func (t *Translator) write(frame any, args any) {
	f := frame.(*stack.Frame)
	a := args.(WriteArgs)

	t.dirty.Mark(a.Handle)

	stack.Wind(f, func(child *stack.Frame) {
		stack.Unwind(f, child.Errno, child.Reply)
	}, t.local, xlator.FopWrite, a)
}

// ipc serves the three reconciliation operation codes over FopIpc.
func (t *Translator) ipc(frame any, args any) {
	f := frame.(*stack.Frame)
	a := args.(IpcArgs)

	switch a.Op {
	case IpcTermRange:
		first, last, ok, err := t.term.TermRange()
		if err != nil {
			stack.Unwind(f, xlator.EIO, nil)
			return
		}
		stack.Unwind(f, 0, IpcReply{FirstTerm: first, LastTerm: last, HasRange: ok})

	case IpcOpenTerm:
		if err := t.term.OpenTerm(a.Term); err != nil {
			stack.Unwind(f, xlator.EIO, nil)
			return
		}
		stack.Unwind(f, 0, nil)

	case IpcNextEntry:
		entry, err := t.term.NextEntry()
		if err == ErrNoMore {
			stack.Unwind(f, xlator.ENODATA, nil)
			return
		}
		if err != nil {
			stack.Unwind(f, xlator.EIO, nil)
			return
		}
		stack.Unwind(f, 0, IpcReply{Entry: entry})

	default:
		stack.Unwind(f, xlator.EINVAL, nil)
	}
}
