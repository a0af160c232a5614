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

import "strings"

// XattrPolicy remaps the "system.*" extended-attribute names a FUSE
// client uses onto the "trusted.*" names the translator graph actually
// stores, and decides which remote pids may address the internal
// namespace at all. Other names (e.g. "user.*") pass through unchanged.
//
// Only trusted pids may address "system.glusterfs.*" (stored as the
// "trusted.glusterfs." internal bookkeeping attributes: gfid, extent
// maps, quota state) or "trusted.*" directly. Unmap does not filter
// names; it only reverses the prefix translation.
type XattrPolicy struct {
	trustedPids map[uint32]bool
}

// NewXattrPolicy builds a policy that exposes the trusted.* namespace
// only to the given set of special client pids (mount helpers,
// self-heal daemons, and the like).
func NewXattrPolicy(trustedPids []uint32) *XattrPolicy {
	m := make(map[uint32]bool, len(trustedPids))
	for _, p := range trustedPids {
		m[p] = true
	}
	return &XattrPolicy{trustedPids: m}
}

const (
	systemPrefix  = "system."
	trustedPrefix = "trusted."
	internalGroup = "glusterfs."
)

// Remap translates a kernel-visible xattr name into the name the
// translator graph should use to store or fetch it, and reports whether
// the request is allowed at all for the given requesting pid.
func (p *XattrPolicy) Remap(pid uint32, name string) (remapped string, allowed bool) {
	switch {
	case strings.HasPrefix(name, systemPrefix):
		rest := strings.TrimPrefix(name, systemPrefix)
		if strings.HasPrefix(rest, internalGroup) && !p.trustedPids[pid] {
			return "", false
		}
		return trustedPrefix + rest, true
	case strings.HasPrefix(name, trustedPrefix):
		// Clients never address trusted.* directly; only the remap above
		// produces it. Reject anyone who tries to bypass system.*.
		return "", p.trustedPids[pid]
	default:
		return name, true
	}
}

// Unmap is the inverse of Remap's prefix translation, used when listing
// xattrs back to the kernel (trusted.glusterfs.foo -> system.glusterfs.foo).
func (p *XattrPolicy) Unmap(name string) string {
	if strings.HasPrefix(name, trustedPrefix) {
		return systemPrefix + strings.TrimPrefix(name, trustedPrefix)
	}
	return name
}
