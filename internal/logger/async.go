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

// Package logger provides the structured logging backend every
// translator instance uses: one log/slog logger per translator, writing
// through a bounded async buffer onto a rotating lumberjack file so a
// slow disk never blocks a fop's hot path.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// AsyncLogger buffers writes to an underlying io.Writer on a background
// goroutine so callers on the fop path never block on disk I/O. If the
// buffer fills (the writer can't keep up), new writes are dropped with a
// warning to stderr rather than blocking the caller.
type AsyncLogger struct {
	w       io.Writer
	ch      chan []byte
	done    chan struct{}
	wg      sync.WaitGroup
	closeMu sync.Mutex
	closed  bool
}

// NewAsyncLogger starts a background writer goroutine draining a channel
// of size bufferSize into w.
func NewAsyncLogger(w io.Writer, bufferSize int) *AsyncLogger {
	a := &AsyncLogger{
		w:    w,
		ch:   make(chan []byte, bufferSize),
		done: make(chan struct{}),
	}
	a.wg.Add(1)
	go a.run()
	return a
}

func (a *AsyncLogger) run() {
	defer a.wg.Done()
	for {
		select {
		case b, ok := <-a.ch:
			if !ok {
				return
			}
			_, _ = a.w.Write(b)
		case <-a.done:
			// Drain whatever is already queued before exiting.
			for {
				select {
				case b := <-a.ch:
					_, _ = a.w.Write(b)
				default:
					return
				}
			}
		}
	}
}

// Write queues p for the background writer. The slice is copied since the
// caller may reuse its buffer immediately after Write returns.
func (a *AsyncLogger) Write(p []byte) (int, error) {
	cp := make([]byte, len(p))
	copy(cp, p)

	select {
	case a.ch <- cp:
		return len(p), nil
	default:
		fmt.Fprintln(os.Stderr, "asynclogger: log buffer is full, dropping message.")
		return len(p), nil
	}
}

// Close signals the background writer to drain and stop, then waits for
// it to finish. It also closes w if it implements io.Closer.
func (a *AsyncLogger) Close() error {
	a.closeMu.Lock()
	if a.closed {
		a.closeMu.Unlock()
		return nil
	}
	a.closed = true
	a.closeMu.Unlock()

	close(a.done)
	a.wg.Wait()

	if c, ok := a.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
