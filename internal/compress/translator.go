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

package compress

import (
	"github.com/gluster-go/glusterfsd/internal/stack"
	"github.com/gluster-go/glusterfsd/internal/xlator"
)

// WriteArgs carries the uncompressed scatter-gather vectors a client-side
// write compresses before winding downward; ReadReply carries what a
// client-side read decompresses after it winds back up.
type WriteArgs struct {
	Vectors [][]byte
}

type WriteReply struct {
	Framed []byte
	Dict   SideDict
}

type ReadArgs struct{}

type ReadReply struct {
	Framed []byte
	Dict   SideDict
}

// Translator is the compression xlator.Translator. Role determines which
// direction compresses and which decompresses: on the client, writes
// compress and reads decompress; on the server, the reverse.
type Translator struct {
	name  string
	child xlator.Translator
	opts  *xlator.Options

	algo      Algorithm
	level     int
	minSize   int
	isClient  bool
}

var optionSpec = []xlator.OptionSpec{
	{Key: "level", Default: LevelDefault, Min: -1, Max: 9},
	{Key: "min-size", Default: 0, Min: 0, Max: 1 << 30},
	{Key: "algorithm", Default: "deflate", Validate: func(v any) error {
		s, _ := v.(string)
		if s != "deflate" && s != "zstd" {
			return errUnknownAlgorithm(s)
		}
		return nil
	}},
}

type errUnknownAlgorithm string

func (e errUnknownAlgorithm) Error() string { return "compress: unknown algorithm " + string(e) }

// New builds a compression translator. isClient selects which direction
// compresses vs. decompresses, per spec.md's client/server role split.
func New(name string, child xlator.Translator, isClient bool) *Translator {
	opts := xlator.NewOptions(optionSpec)
	return &Translator{
		name:     name,
		child:    child,
		opts:     opts,
		algo:     Deflate,
		level:    LevelDefault,
		isClient: isClient,
	}
}

func (t *Translator) Name() string                         { return t.name }
func (t *Translator) Init() error                           { return nil }
func (t *Translator) Fini() error                           { return nil }
func (t *Translator) Children() []xlator.Translator         { return []xlator.Translator{t.child} }
func (t *Translator) Options() *xlator.Options              { return t.opts }
func (t *Translator) Notify(xlator.NotifyEvent, any) error  { return nil }

// SetAlgorithm selects the codec. New starts every translator on deflate
// and neither Init nor the "algorithm" option changes that, so the mount
// code calls this when zstd is configured.
func (t *Translator) SetAlgorithm(algo Algorithm) { t.algo = algo }

func (t *Translator) Fop(op xlator.Fop) xlator.FopFunc {
	switch op {
	case xlator.FopWrite:
		return t.write
	case xlator.FopRead:
		return t.read
	default:
		return nil
	}
}

func (t *Translator) write(frame any, args any) {
	f := frame.(*stack.Frame)
	minSize := t.minSize
	if t.isClient {
		a := args.(WriteArgs)
		framed, dict, err := Compress(t.algo, t.level, a.Vectors, minSize)
		if err != nil {
			stack.Unwind(f, xlator.EIO, nil)
			return
		}
		stack.Wind(f, func(child *stack.Frame) {
			stack.Unwind(f, child.Errno, child.Reply)
		}, t.child, xlator.FopWrite, WriteReply{Framed: framed, Dict: dict})
		return
	}

	// Server side: the caller already handed us compressed bytes to
	// decompress before the real write happens downstream.
	wr := args.(WriteReply)
	data, err := Decompress(t.algo, wr.Framed, wr.Dict)
	if err != nil {
		stack.Unwind(f, xlator.EIO, nil)
		return
	}
	stack.Wind(f, func(child *stack.Frame) {
		stack.Unwind(f, child.Errno, child.Reply)
	}, t.child, xlator.FopWrite, WriteArgs{Vectors: [][]byte{data}})
}

func (t *Translator) read(frame any, args any) {
	f := frame.(*stack.Frame)

	stack.Wind(f, func(child *stack.Frame) {
		if !child.Errno.OK() {
			stack.Unwind(f, child.Errno, nil)
			return
		}

		if t.isClient {
			reply := child.Reply.(ReadReply)
			data, err := Decompress(t.algo, reply.Framed, reply.Dict)
			if err != nil {
				stack.Unwind(f, xlator.EIO, nil)
				return
			}
			stack.Unwind(f, 0, data)
			return
		}

		data := child.Reply.([]byte)
		framed, dict, err := Compress(t.algo, t.level, [][]byte{data}, t.minSize)
		if err != nil {
			stack.Unwind(f, xlator.EIO, nil)
			return
		}
		stack.Unwind(f, 0, ReadReply{Framed: framed, Dict: dict})
	}, t.child, xlator.FopRead, args)
}
