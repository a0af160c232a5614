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

// Package stack implements the translator call-stack runtime: frame
// creation, wind/unwind, fan-out, and the stub/resume pattern. It is the
// one place in the graph where a call crosses from one translator to the
// next, so every translator's Fop implementation is written against this
// package instead of calling a neighbor directly.
package stack

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/gluster-go/glusterfsd/internal/xlator"
)

// Creds carries the caller identity a frame root copies onto every
// descendant frame: uid/gid/pid plus the supplementary-group list the
// FUSE bridge resolved for this request.
type Creds struct {
	UID    uint32
	GID    uint32
	PID    uint32
	Groups []uint32
}

// UnwindFunc is the callback a frame records when it winds a call: it
// receives the completing child Frame itself so the callback can read
// whatever reply data the child fop stashed in Frame.Reply, matching the
// real runtime's STACK_UNWIND semantics of handing the callback the frame,
// not a bare value tuple.
type UnwindFunc func(child *Frame)

// Frame is a node in a stack recording one translator's participation in
// one operation.
type Frame struct {
	mu sync.Mutex

	Parent      *Frame
	Root        *Frame // the frame that owns Creds/RequestID for this call chain
	Translator  xlator.Translator
	RequestID   uuid.UUID
	Creds       Creds
	LockOwner   [16]byte
	Cbk         UnwindFunc
	Local       any // opaque per-translator local state, owned by Translator between Wind and its matching Unwind
	Ctx         context.Context
	Op          xlator.Fop
	Ret         int
	Errno       xlator.Errno
	Reply       any // op-specific reply payload, set by the fop before Unwind
	unwound     bool
}

// Lock acquires the frame's mutex. Translators touching Local across
// goroutine boundaries (e.g. a fan-out decrementing call_count) must hold
// this for the duration of the read-modify-write.
func (f *Frame) Lock() { f.mu.Lock() }

// Unlock releases the frame's mutex.
func (f *Frame) Unlock() { f.mu.Unlock() }

// CreateFrame allocates a fresh frame under parent: it copies credentials
// and the request id from parent.Root, and initializes its own mutex.
// The new frame shares no mutable state with parent beyond Creds/RequestID.
func CreateFrame(ctx context.Context, parent *Frame, t xlator.Translator) *Frame {
	root := parent
	if root.Root != nil {
		root = root.Root
	}
	return &Frame{
		Parent:     parent,
		Root:       root,
		Translator: t,
		RequestID:  root.RequestID,
		Creds:      root.Creds,
		Ctx:        ctx,
	}
}

// CopyFrame returns a new root frame that inherits src's credentials and
// request id but has independent state: used to issue a background
// operation (e.g. a readahead prefetch, a JBR flush) whose completion must
// not unwind the caller that triggered it.
func CopyFrame(src *Frame) *Frame {
	root := src
	if src.Root != nil {
		root = src.Root
	}
	f := &Frame{
		Translator: root.Translator,
		RequestID:  uuid.New(),
		Creds:      root.Creds,
		Ctx:        root.Ctx,
	}
	f.Root = f
	return f
}

// NewRootFrame creates the initial frame for a request entering the graph
// at the FUSE bridge (or brickd's RPC handler). It has no parent.
func NewRootFrame(ctx context.Context, t xlator.Translator, creds Creds) *Frame {
	f := &Frame{
		Translator: t,
		RequestID:  uuid.New(),
		Creds:      creds,
		Ctx:        ctx,
	}
	f.Root = f
	return f
}
