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

package readahead

import (
	"github.com/gluster-go/glusterfsd/internal/stack"
	"github.com/gluster-go/glusterfsd/internal/xlator"
)

// errCancelled is the errno a poisoned page's waiters wake up to, per the
// cache-hazard taxonomy entry (ECANCELED).
var errCancelled = xlator.ECANCELED

// ReadArgs is the argument struct for FopRead.
type ReadArgs struct {
	FD     uintptr
	Offset int64
	Size   int
}

// ReadReply is the reply payload unwound for a successful read.
type ReadReply struct {
	Data []byte
}

// WriteArgs is the argument struct for FopWrite; Translator invalidates
// any cached page the write overlaps before winding the write downward.
type WriteArgs struct {
	FD     uintptr
	Offset int64
	Data   []byte
}

// Translator is the read-ahead page-cache xlator.Translator. It overrides
// FopRead to serve from Cache, and FopWrite/FopTruncate/FopRelease to
// invalidate or drop cached pages, passing every other fop straight
// through to its single child.
type Translator struct {
	name  string
	child xlator.Translator
	opts  *xlator.Options
	cache *Cache
}

var optionSpec = []xlator.OptionSpec{
	{Key: "page-count", Default: 16, Min: 1, Max: 256},
	{Key: "force-atime-update", Default: false},
}

// New builds a read-ahead translator sitting in front of child. fetch
// performs the actual downward read once a page must be populated.
func New(name string, child xlator.Translator, fetch Fetcher) *Translator {
	return &Translator{
		name:  name,
		child: child,
		opts:  xlator.NewOptions(optionSpec),
		cache: NewCache(fetch),
	}
}

func (t *Translator) Name() string                       { return t.name }
func (t *Translator) Init() error                         { return nil }
func (t *Translator) Fini() error                         { return nil }
func (t *Translator) Children() []xlator.Translator       { return []xlator.Translator{t.child} }
func (t *Translator) Options() *xlator.Options            { return t.opts }

func (t *Translator) Notify(event xlator.NotifyEvent, data any) error {
	return nil
}

func (t *Translator) Fop(op xlator.Fop) xlator.FopFunc {
	switch op {
	case xlator.FopRead:
		return t.read
	case xlator.FopWrite:
		return t.write
	case xlator.FopTruncate:
		return t.truncate
	case xlator.FopRelease:
		return t.release
	default:
		return nil
	}
}

func (t *Translator) read(frame any, args any) {
	f := frame.(*stack.Frame)
	a := args.(ReadArgs)

	data, err := t.cache.Read(f.Ctx, a.FD, a.Offset, a.Size)
	if err != nil {
		stack.Unwind(f, toErrno(err), nil)
		return
	}
	stack.Unwind(f, 0, ReadReply{Data: data})
}

func (t *Translator) write(frame any, args any) {
	f := frame.(*stack.Frame)
	a := args.(WriteArgs)

	t.cache.Invalidate(a.FD, a.Offset, int64(len(a.Data)))

	stack.Wind(f, func(child *stack.Frame) {
		stack.Unwind(f, child.Errno, child.Reply)
	}, t.child, xlator.FopWrite, args)
}

func (t *Translator) truncate(frame any, args any) {
	f := frame.(*stack.Frame)
	a := args.(WriteArgs) // reuses WriteArgs: FD + Offset is the new size, Data unused

	t.cache.Invalidate(a.FD, a.Offset, 1<<62)

	stack.Wind(f, func(child *stack.Frame) {
		stack.Unwind(f, child.Errno, child.Reply)
	}, t.child, xlator.FopTruncate, args)
}

func (t *Translator) release(frame any, args any) {
	f := frame.(*stack.Frame)
	fd := args.(uintptr)
	t.cache.Forget(fd)
	stack.Unwind(f, 0, nil)
}

func toErrno(err error) xlator.Errno {
	if e, ok := err.(xlator.Errno); ok {
		return e
	}
	return xlator.EIO
}
