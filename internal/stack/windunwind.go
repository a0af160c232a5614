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

import (
	"fmt"

	"github.com/gluster-go/glusterfsd/internal/xlator"
)

// defaultDispatcher is used by Wind when the caller has no reason to use a
// dedicated pool. Translators performing high-fanout background work (e.g.
// JBR's per-child replication) may build their own Dispatcher instead.
var defaultDispatcher = NewDispatcher(0)

// Wind enqueues a downward call: it creates a new child frame attached to
// parent, records cbk as the frame's reply callback, and invokes target's
// entry for op on the dispatch pool. Wind guarantees exactly one Unwind per
// Wind — target's Fop implementation is responsible for calling Unwind
// itself exactly once for the frame Wind created, on every code path.
func Wind(parent *Frame, cbk UnwindFunc, target xlator.Translator, op xlator.Fop, args any) {
	child := CreateFrame(parent.Ctx, parent, target)
	child.Cbk = cbk
	child.Op = op

	fn := target.Fop(op)
	if fn == nil {
		// No override: pass straight through to the translator's only
		// child, carrying the same frame so lock/credential state is
		// unchanged. A translator with more than one child must
		// override every fop it wants to reach past itself.
		children := target.Children()
		if len(children) != 1 {
			Unwind(child, xlator.EINVAL, fmt.Sprintf("%s: no fop override and not exactly one child", target.Name()))
			return
		}
		Wind(parent, cbk, children[0], op, args)
		return
	}

	defaultDispatcher.Go(func() {
		fn(child, args)
	})
}

// Unwind delivers a reply upward: it pops one stack level by invoking
// frame.Parent's recorded callback synchronously on the current goroutine,
// then marks frame as consumed. errno of zero means success. reply, if
// non-nil, is stashed on frame.Reply for the callback to read.
func Unwind(frame *Frame, errno xlator.Errno, reply any) {
	frame.Lock()
	if frame.unwound {
		frame.Unlock()
		panic(fmt.Sprintf("%s: double unwind on op %s", frame.Translator.Name(), frame.Op))
	}
	frame.unwound = true
	frame.Errno = errno
	frame.Reply = reply
	if errno == 0 {
		frame.Ret = 0
	} else {
		frame.Ret = -1
	}
	cbk := frame.Cbk
	frame.Unlock()

	if cbk != nil {
		cbk(frame)
	}
}
