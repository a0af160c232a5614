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

package stack

import "github.com/gluster-go/glusterfsd/internal/xlator"

// Stub captures everything needed to resume a deferred operation: the
// frame it arrived on, the fop, its arguments, and the function that
// performs the actual work once resumed. Stubs are how a translator queues
// an operation (in this repository, JBR's per-inode pending list) without
// losing the caller's frame/credentials.
type Stub struct {
	Frame *Frame
	Op    xlator.Fop
	Args  any
	Fn    func(frame *Frame, args any)
}

// NewStub captures a deferred call. The caller has not wound anything yet;
// frame is whatever frame the deferring translator was handed (often one
// it already owns partway through its own Fop), and fn is the closure that
// will actually wind/unwind when eventually resumed.
func NewStub(frame *Frame, op xlator.Fop, args any, fn func(frame *Frame, args any)) *Stub {
	return &Stub{Frame: frame, Op: op, Args: args, Fn: fn}
}

// Resume invokes the stub's captured function with its captured frame and
// arguments. It is call_resume: the translator that queued the stub calls
// Resume once whatever it was waiting on (a lock, a reconnect, a prior op
// on the same inode) has been satisfied.
func (s *Stub) Resume() {
	s.Fn(s.Frame, s.Args)
}

// Queue is an ordered list of pending stubs for one serialization point
// (e.g. one inode's JBR pending list, one fd's replay queue after
// reconnect). It is not safe for concurrent use; callers hold whatever
// lock guards the serialization point (the inode lock, the fd lock) around
// Push/PopAll.
type Queue struct {
	stubs []*Stub
}

// Push appends a stub to the queue.
func (q *Queue) Push(s *Stub) {
	q.stubs = append(q.stubs, s)
}

// Len reports the number of queued stubs.
func (q *Queue) Len() int {
	return len(q.stubs)
}

// PopAll drains and returns every queued stub in FIFO order, leaving the
// queue empty. Typical use: resume every stub after a lock release or a
// successful reopen, then let normal ordering serialize their effects.
func (q *Queue) PopAll() []*Stub {
	out := q.stubs
	q.stubs = nil
	return out
}
