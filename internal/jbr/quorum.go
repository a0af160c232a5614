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

// QuorumMet reports whether reachable peers out of peerCount (excluding
// self) strictly exceed quorumPct of peerCount, per spec's "strictly more
// than quorum_pct% of (replica_count − 1) peers (excluding self)"
// definition. quorumPct is a 0–1 fraction. 100% (quorumPct >= 1.0) is the
// one boundary spec §4.6 defines as inclusive — "100% = all peers" — so it
// is satisfied by reachable == peerCount rather than being permanently
// unsatisfiable under a strict ">"; every other percentage still requires
// strictly more than its share. peerCount of zero (a single-replica
// deployment) always meets quorum, mirroring fop_quorum_check's early
// return when n_children-1 is zero.
func QuorumMet(peerCount int, quorumPct float64, reachable int) bool {
	if peerCount <= 0 {
		return true
	}
	if quorumPct >= 1.0 {
		return reachable >= peerCount
	}
	required := float64(peerCount) * quorumPct
	return float64(reachable) > required
}
