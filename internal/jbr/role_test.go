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
)

func TestConfigLeaderAlwaysLeader(t *testing.T) {
	r := NewRole(true)
	assert.True(t, r.IsLeader())
	assert.True(t, r.IsConfigLeader())

	r.NotePeerReachability(2, false)
	assert.True(t, r.IsLeader(), "config-leader never steps down for peer reachability")
}

func TestNonConfigLeaderTakesOverWhenPeerDownInTwoReplicaSet(t *testing.T) {
	r := NewRole(false)
	assert.False(t, r.IsLeader())

	r.NotePeerReachability(2, false) // peer unreachable
	assert.True(t, r.IsLeader())

	r.NotePeerReachability(2, true) // peer back
	assert.False(t, r.IsLeader())
}

func TestNonConfigLeaderNeverTakesOverBeyondTwoReplicas(t *testing.T) {
	r := NewRole(false)
	r.NotePeerReachability(3, false)
	assert.False(t, r.IsLeader(), "the n=2 hack must not fire for replica_count != 2")
}
