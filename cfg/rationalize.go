// Copyright 2024 Google Inc. All Rights Reserved.
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

// Rationalize updates the config fields based on the values of other
// fields, after flags/file/env have all been merged and before
// ValidateConfig runs.
func Rationalize(c *Config) error {
	// A debug flag implies verbose logging even if the user left
	// logging.severity at its default.
	if c.Debug.ExitOnInvariantViolation || c.Debug.LogMutex {
		c.Logging.Severity = TraceLogSeverity
	}

	// A JBR replica set of one is degenerate: there is nothing to reach
	// quorum against, so the sole replica is always its own leader
	// regardless of the configured quorum percentage.
	if c.Jbr.ReplicaCount <= 1 {
		c.Jbr.ConfigLeader = true
	}

	return nil
}
