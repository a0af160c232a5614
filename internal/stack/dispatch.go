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
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Dispatcher is the fixed pool of event-loop goroutines operations are
// wound onto. A frame resumed by Unwind may run on a different goroutine
// than the one that issued the matching Wind; translators must not assume
// goroutine-local state survives a wind/unwind round trip.
type Dispatcher struct {
	sem chan struct{}
}

// NewDispatcher builds a pool sized to workers, or to GOMAXPROCS*2 (the
// same "a couple of handlers per core" heuristic the teacher applies when
// sizing its temp-dir fd budget in ChooseTempDirLimitNumFiles) when workers
// is zero.
func NewDispatcher(workers int) *Dispatcher {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0) * 2
	}
	return &Dispatcher{sem: make(chan struct{}, workers)}
}

// Go runs fn on the dispatch pool, blocking until a slot is free. It is the
// substrate Wind uses to invoke a translator's Fop; callers doing fan-out
// over many children call Go directly for each child's wind.
func (d *Dispatcher) Go(fn func()) {
	d.sem <- struct{}{}
	go func() {
		defer func() { <-d.sem }()
		fn()
	}()
}

// Barrier runs a batch of independent winds to completion, collecting the
// first error among them, for a translator that needs every child call to
// finish before proceeding. FanOut does not use it: FanOut's "unwind as
// soon as the last one completes" pattern is driven by its own call-count
// decrement.
func Barrier(fns ...func() error) error {
	var g errgroup.Group
	for _, fn := range fns {
		fn := fn
		g.Go(fn)
	}
	return g.Wait()
}
