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

package clientxl

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gluster-go/glusterfsd/internal/stack"
	"github.com/gluster-go/glusterfsd/internal/xlator"
)

func callAndWait(tr *Translator, op xlator.Fop, args any) *stack.Frame {
	root := stack.NewRootFrame(context.Background(), tr, stack.Creds{})
	done := make(chan *stack.Frame, 1)
	stack.Wind(root, func(child *stack.Frame) { done <- child }, tr, op, args)
	return <-done
}

func TestOpenThenReadRoundTrips(t *testing.T) {
	remote := newFakeRemote()
	tr := newTestTranslator(remote, false)

	openFrame := callAndWait(tr, xlator.FopOpen, OpenArgs{Gfid: uuid.New(), Flags: 0})
	require.Equal(t, xlator.Errno(0), openFrame.Errno)
	fd := openFrame.Reply.(OpenReply).Fd

	readFrame := callAndWait(tr, xlator.FopRead, ReadArgs{Fd: fd, Offset: 0, Size: 16})
	require.Equal(t, xlator.Errno(0), readFrame.Errno)
	assert.Len(t, readFrame.Reply.(ReadReply).Data, 16)
}

func TestReadFallsBackToAnonymousFdDuringReopen(t *testing.T) {
	remote := newFakeRemote()
	tr := newTestTranslator(remote, false)

	openFrame := callAndWait(tr, xlator.FopOpen, OpenArgs{Gfid: uuid.New(), Flags: 0})
	fd := openFrame.Reply.(OpenReply).Fd

	tr.reopen.begin(fd) // simulate an in-flight reopen without finishing it

	readFrame := callAndWait(tr, xlator.FopRead, ReadArgs{Fd: fd, Offset: 0, Size: 4})
	assert.Equal(t, xlator.Errno(0), readFrame.Errno)
}

func TestWriteOnPoisonedFdFailsWithEBADF(t *testing.T) {
	remote := newFakeRemote()
	tr := newTestTranslator(remote, true)

	openFrame := callAndWait(tr, xlator.FopOpen, OpenArgs{Gfid: uuid.New(), Flags: 0})
	fd := openFrame.Reply.(OpenReply).Fd

	s, _ := tr.fds.get(fd)
	s.poison()

	writeFrame := callAndWait(tr, xlator.FopWrite, WriteArgs{Fd: fd, Offset: 0, Data: []byte("x")})
	assert.Equal(t, xlator.EBADF, writeFrame.Errno)
}

func TestReleaseRemovesFdFromTable(t *testing.T) {
	remote := newFakeRemote()
	tr := newTestTranslator(remote, false)

	openFrame := callAndWait(tr, xlator.FopOpen, OpenArgs{Gfid: uuid.New(), Flags: 0})
	fd := openFrame.Reply.(OpenReply).Fd

	callAndWait(tr, xlator.FopRelease, ReleaseArgs{Fd: fd})
	_, ok := tr.fds.get(fd)
	assert.False(t, ok)
}
