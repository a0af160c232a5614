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

package errorgen

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gluster-go/glusterfsd/internal/stack"
	"github.com/gluster-go/glusterfsd/internal/xlator"
)

type okChild struct{}

func (okChild) Name() string                        { return "child" }
func (okChild) Init() error                          { return nil }
func (okChild) Fini() error                          { return nil }
func (okChild) Notify(xlator.NotifyEvent, any) error { return nil }
func (okChild) Children() []xlator.Translator        { return nil }
func (okChild) Options() *xlator.Options             { return nil }
func (okChild) Fop(op xlator.Fop) xlator.FopFunc {
	return func(frame any, args any) { stack.Unwind(frame.(*stack.Frame), 0, "real-reply") }
}

func TestInjectsConfiguredErrnoWhenProbabilityFires(t *testing.T) {
	child := okChild{}
	tr := New("errgen", child, map[xlator.Fop]Rule{xlator.FopRead: {Errno: xlator.EIO, Probability: 100}})
	require.NoError(t, tr.Options().Set("enable", true))
	tr.rand = func() int { return 0 } // always below any positive probability

	root := stack.NewRootFrame(context.Background(), tr, stack.Creds{})
	done := make(chan *stack.Frame, 1)
	stack.Wind(root, func(f *stack.Frame) { done <- f }, tr, xlator.FopRead, nil)

	select {
	case f := <-done:
		assert.Equal(t, xlator.EIO, f.Errno)
	case <-time.After(time.Second):
		t.Fatal("unwind never arrived")
	}
}

func TestPassesThroughWhenDisabled(t *testing.T) {
	child := okChild{}
	tr := New("errgen", child, map[xlator.Fop]Rule{xlator.FopRead: {Errno: xlator.EIO, Probability: 100}})
	// enable left at its default false.

	root := stack.NewRootFrame(context.Background(), tr, stack.Creds{})
	done := make(chan *stack.Frame, 1)
	stack.Wind(root, func(f *stack.Frame) { done <- f }, tr, xlator.FopRead, nil)

	select {
	case f := <-done:
		assert.True(t, f.Errno.OK())
		assert.Equal(t, "real-reply", f.Reply)
	case <-time.After(time.Second):
		t.Fatal("unwind never arrived")
	}
}
