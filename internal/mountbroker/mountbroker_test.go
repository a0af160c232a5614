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

package mountbroker

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsGroupWritableRootWithoutStickyBit(t *testing.T) {
	if os.Getuid() != 0 {
		t.Skip("requires root to exercise ownership checks meaningfully")
	}
	dir := t.TempDir()
	require.NoError(t, os.Chmod(dir, 0775))

	_, err := New(dir)
	assert.Error(t, err)
}

func TestGrantCreatesCookieSymlinkAtomically(t *testing.T) {
	if os.Getuid() != 0 {
		t.Skip("requires root to satisfy the root-owned ancestor chain invariant")
	}
	dir := t.TempDir()
	require.NoError(t, os.Chmod(dir, 0700))

	b, err := New(dir)
	require.NoError(t, err)

	require.NoError(t, b.Grant(1000, "cookie-a", "/mnt/vol"))

	target, err := b.Resolve("cookie-a")
	require.NoError(t, err)
	assert.Equal(t, "/mnt/vol", target)
}
