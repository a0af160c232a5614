// Copyright 2024 Google LLC
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

package cmd

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveMountPointResolvesRelativeAgainstCwd(t *testing.T) {
	p, err := resolveMountPoint("somewhere")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(string(p)))
}

func TestResolveMountPointPassesAbsoluteThrough(t *testing.T) {
	p, err := resolveMountPoint("/mnt/vol")
	require.NoError(t, err)
	assert.Equal(t, "/mnt/vol", string(p))
}
