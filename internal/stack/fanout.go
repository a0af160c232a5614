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

// FanOut tracks a call_count = N aggregate for a translator that winds one
// call to each of N children and must unwind exactly once, when the last
// child replies. The zero value is not usable; build one with NewFanOut.
type FanOut struct {
	frame     *Frame
	remaining int
}

// NewFanOut allocates a fan-out aggregate of n outstanding child calls,
// attached to frame (whose Local a translator typically also uses to hold
// per-child result slots, set up by the caller before the first Wind).
func NewFanOut(frame *Frame, n int) *FanOut {
	return &FanOut{frame: frame, remaining: n}
}

// Done records that one child call has completed; it decrements the
// remaining count under the frame lock and reports whether the calling
// goroutine is the one that brought it to zero. The thread for which Done
// returns true is responsible for performing the single upward Unwind;
// every other caller must not unwind.
func (fo *FanOut) Done() (isLast bool) {
	fo.frame.Lock()
	defer fo.frame.Unlock()
	fo.remaining--
	return fo.remaining == 0
}

// Remaining reports the outstanding call count. Callers hold frame.Lock
// themselves if they need a consistent read alongside other Local state;
// Remaining alone is not safe to act on without the lock since another
// goroutine may be concurrently calling Done.
func (fo *FanOut) Remaining() int {
	return fo.remaining
}

// AggregateErrno folds per-child errnos recorded during a fan-out into one
// reply errno: success only if every child succeeded, otherwise the first
// non-zero errno encountered, matching the "partial failure recorded into
// the local's aggregate state" rule children of a fan-out must honor.
func AggregateErrno(errnos []xlator.Errno) xlator.Errno {
	for _, e := range errnos {
		if e != 0 {
			return e
		}
	}
	return 0
}
