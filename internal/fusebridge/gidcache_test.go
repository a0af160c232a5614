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

package fusebridge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGidCacheBypassReturnsOnlyRequestGid(t *testing.T) {
	c := NewGidCache(time.Minute, nil, true)
	groups, err := c.Resolve(100, 200)
	require.NoError(t, err)
	assert.Equal(t, []uint32{200}, groups)
}

func TestGidCacheResolvesAndCaches(t *testing.T) {
	calls := 0
	resolver := func(uid uint32) ([]uint32, error) {
		calls++
		return []uint32{10, 20}, nil
	}
	c := NewGidCache(time.Minute, resolver, false)

	g1, err := c.Resolve(1, 30)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint32{10, 20, 30}, g1)

	_, err = c.Resolve(1, 30)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestGidCacheInvalidateForcesReResolve(t *testing.T) {
	calls := 0
	resolver := func(uid uint32) ([]uint32, error) {
		calls++
		return []uint32{5}, nil
	}
	c := NewGidCache(time.Minute, resolver, false)

	_, _ = c.Resolve(1, 5)
	c.Invalidate(1)
	_, _ = c.Resolve(1, 5)
	assert.Equal(t, 2, calls)
}
