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

package cfg

// IsReplicated reports whether the mount's JBR translator has any peers
// to replicate to, i.e. whether the two-phase lock fan-out and term log
// are actually exercised for this mount.
func IsReplicated(c *Config) bool {
	return c.Jbr.ReplicaCount > 1
}

// IsCompressionEnabled reports whether the compression translator should
// be spliced into the client-side graph at all.
func IsCompressionEnabled(c *Config) bool {
	return c.Compression.Algorithm != ""
}
