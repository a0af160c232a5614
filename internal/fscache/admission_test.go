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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmptyFilterAllowsEverything(t *testing.T) {
	f := NewFilter("")
	assert.True(t, f.Allows("/any/path.txt"))
}

func TestFilterMatchesAnyOfUpToThreePatterns(t *testing.T) {
	f := NewFilter("*.mp4;*.mov")
	assert.True(t, f.Allows("movie.mp4"))
	assert.True(t, f.Allows("clip.mov"))
	assert.False(t, f.Allows("notes.txt"))
}

func TestFilterCapsAtThreePatterns(t *testing.T) {
	f := NewFilter("*.a;*.b;*.c;*.d")
	assert.Len(t, f.patterns, 3)
	assert.False(t, f.Allows("file.d"), "a fourth pattern must be ignored")
}

func TestAdmissionEvictsImmediatelyWithZeroIdleTimeout(t *testing.T) {
	evicted := make(chan string, 1)
	a := NewAdmission(t.TempDir(), 1, 0, func(path string) { evicted <- path })
	a.Touch("/cache/obj1")

	a.evictIdle()
	select {
	case p := <-evicted:
		assert.Equal(t, "/cache/obj1", p)
	default:
		t.Fatal("expected immediate eviction with a zero idle timeout")
	}
}
