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

package jbr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gluster-go/glusterfsd/internal/brickd"
)

func newTestTermLog(t *testing.T) *TermLog {
	t.Helper()
	store, err := brickd.NewStore(t.TempDir())
	require.NoError(t, err)
	return NewTermLog(store)
}

func TestTermLogAppendAndSequentialRead(t *testing.T) {
	tl := newTestTermLog(t)

	require.NoError(t, tl.Append(3, []byte("first")))
	require.NoError(t, tl.Append(3, []byte("second")))

	require.NoError(t, tl.OpenTerm(3))

	e1, err := tl.NextEntry()
	require.NoError(t, err)
	assert.True(t, e1.Committed())
	assert.Equal(t, "first", string(trimNulls(e1.Payload())))

	e2, err := tl.NextEntry()
	require.NoError(t, err)
	assert.Equal(t, "second", string(trimNulls(e2.Payload())))

	_, err = tl.NextEntry()
	assert.ErrorIs(t, err, ErrNoMore)
}

func TestTermLogRangeFindsContiguousRun(t *testing.T) {
	tl := newTestTermLog(t)

	require.NoError(t, tl.Append(5, []byte("a")))
	require.NoError(t, tl.Append(6, []byte("b")))
	require.NoError(t, tl.Append(7, []byte("c")))
	// A gap at 8: term 9 exists but is not contiguous with 5-7.
	require.NoError(t, tl.Append(9, []byte("d")))

	first, last, ok, err := tl.TermRange()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint32(5), first)
	assert.Equal(t, uint32(7), last)
}

func TestTermLogRangeEmptyStore(t *testing.T) {
	tl := newTestTermLog(t)
	_, _, ok, err := tl.TermRange()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCommittedCountBinarySearchesBoundary(t *testing.T) {
	tl := newTestTermLog(t)

	require.NoError(t, tl.Append(1, []byte("committed-1")))
	require.NoError(t, tl.Append(1, []byte("committed-2")))

	n, err := tl.CommittedCount(1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n, "every appended record is committed in this implementation")
}

func trimNulls(b []byte) []byte {
	i := 0
	for i < len(b) && b[i] != 0 {
		i++
	}
	return b[:i]
}
