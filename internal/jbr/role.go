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

// Package jbr implements the JBR (journaled-based replication) server
// translator: single-leader replication with quorum-gated writes,
// per-inode operation ordering, and a term log for post-partition
// reconciliation.
package jbr

import "sync"

// Role tracks whether this replica is the effective leader. configLeader
// is fixed at startup (from the "config-leader" option); leader is the
// value fop handling actually consults, and only diverges from
// configLeader for a non-config-leader in a two-replica deployment, which
// takes over when its peer goes unreachable. This mirrors the original
// jbr_private_t's "leader is a hack that only works for n=2" comment
// exactly: there is no real leader election.
type Role struct {
	mu           sync.Mutex
	configLeader bool
	leader       bool
}

// NewRole builds a Role for a replica configured as leader (configLeader)
// or not.
func NewRole(configLeader bool) *Role {
	return &Role{configLeader: configLeader, leader: configLeader}
}

// IsLeader reports whether this replica currently accepts direct client
// writes.
func (r *Role) IsLeader() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leader
}

// IsConfigLeader reports the static configuration, independent of peer
// reachability.
func (r *Role) IsConfigLeader() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.configLeader
}

// NotePeerReachability updates the effective leader bit for the n=2
// takeover case: a non-config-leader becomes leader exactly when its one
// peer is down, and steps back down the moment the peer returns. A
// config-leader's leader bit never changes here — it always wins.
func (r *Role) NotePeerReachability(nChildren int, peerUp bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.configLeader || nChildren != 2 {
		return
	}
	r.leader = !peerUp
}
