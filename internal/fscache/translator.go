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

package fscache

import (
	"os"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/gluster-go/glusterfsd/internal/stack"
	"github.com/gluster-go/glusterfsd/internal/xlator"
)

// fileCache is the per-gfid backing state: its local mirror fd and extent
// map.
type fileCache struct {
	mu      sync.Mutex
	backing *os.File
	extents *ExtentMap
	direct  bool
}

// ReadArgs/ReadReply are fs-cache's own FopRead payloads. They differ from
// internal/readahead's (which name the file by fd): ReadArgs names it by
// gfid and backing directory.
type ReadArgs struct {
	Gfid       string
	BackingDir string
	Offset     int64
	Size       int
}

type ReadReply struct {
	Data []byte
}

// Translator is the fs-cache disk-mirroring xlator.Translator.
type Translator struct {
	name      string
	child     xlator.Translator
	opts      *xlator.Options
	filter    *Filter
	admission *Admission

	mu     sync.Mutex
	caches map[string]*fileCache
}

var optionSpec = []xlator.OptionSpec{
	{Key: "cache-reserve-percent", Default: 1, Min: 0, Max: 100},
	{Key: "path-filter", Default: ""},
}

// New builds an fs-cache translator backed by files under cacheDir.
func New(name string, child xlator.Translator, cacheDir string) *Translator {
	t := &Translator{
		name:   name,
		child:  child,
		opts:   xlator.NewOptions(optionSpec),
		filter: NewFilter(""),
		caches: make(map[string]*fileCache),
	}
	t.admission = NewAdmission(cacheDir, float64(t.opts.Int("cache-reserve-percent")), 0, func(string) {})
	return t
}

func (t *Translator) Name() string                 { return t.name }
func (t *Translator) Init() error                  { return nil }
func (t *Translator) Fini() error                  { return nil }
func (t *Translator) Children() []xlator.Translator { return []xlator.Translator{t.child} }
func (t *Translator) Options() *xlator.Options     { return t.opts }
func (t *Translator) Notify(xlator.NotifyEvent, any) error { return nil }

func (t *Translator) Fop(op xlator.Fop) xlator.FopFunc {
	if op == xlator.FopRead {
		return t.read
	}
	return nil
}

func (t *Translator) fileFor(gfid string) *fileCache {
	t.mu.Lock()
	defer t.mu.Unlock()
	fc, ok := t.caches[gfid]
	if !ok {
		fc = &fileCache{extents: NewExtentMap()}
		t.caches[gfid] = fc
	}
	return fc
}

func (t *Translator) read(frame any, args any) {
	f := frame.(*stack.Frame)
	a := args.(ReadArgs)

	if !t.filter.Allows(a.Gfid) || t.admission.Full() {
		t.missThenStore(f, a, nil)
		return
	}

	fc := t.fileFor(a.Gfid)
	fc.mu.Lock()
	cached := fc.extents.IsCached(a.Offset, int64(a.Size))
	fc.mu.Unlock()

	if cached && fc.backing != nil {
		buf := make([]byte, a.Size)
		n, err := fc.backing.ReadAt(buf, a.Offset)
		if err != nil && n == 0 {
			stack.Unwind(f, xlator.EIO, nil)
			return
		}
		stack.Unwind(f, 0, ReadReply{Data: buf[:n]})
		return
	}

	t.missThenStore(f, a, fc)
}

// missThenStore winds the read to the child translator and, on success,
// mirrors the returned bytes into the backing file and records the new
// extent. fc may be nil when the filter/admission rejected caching this
// read outright.
func (t *Translator) missThenStore(f *stack.Frame, a ReadArgs, fc *fileCache) {
	stack.Wind(f, func(child *stack.Frame) {
		if !child.Errno.OK() {
			stack.Unwind(f, child.Errno, nil)
			return
		}
		reply, _ := child.Reply.(ReadReply)

		if fc != nil {
			t.storeLocally(a, fc, reply.Data)
		}
		stack.Unwind(f, 0, reply)
	}, t.child, xlator.FopRead, a)
}

func (t *Translator) storeLocally(a ReadArgs, fc *fileCache, data []byte) {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	if fc.backing == nil {
		path := a.BackingDir + "/" + a.Gfid
		f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
		if err != nil {
			return
		}
		fc.backing = f
		if restored, err := RestoreExtents(int(f.Fd())); err == nil {
			fc.extents = restored
		}
	}

	if _, err := fc.backing.WriteAt(data, a.Offset); err != nil {
		return
	}
	fc.extents.Add(a.Offset, int64(len(data)))
	_ = PersistExtents(int(fc.backing.Fd()), fc.extents)

	if !fc.direct && fc.extents.FullyCached() {
		// The whole file is now mirrored locally: drop it from the page
		// cache so future reads go straight to the already-cached extent
		// map instead of double-buffering through the kernel.
		fc.direct = true
		_ = unix.Fadvise(int(fc.backing.Fd()), 0, 0, unix.FADV_DONTNEED)
	}
}
