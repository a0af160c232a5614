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

const (
	// Logging-level constants

	TRACE   string = "TRACE"
	DEBUG   string = "DEBUG"
	INFO    string = "INFO"
	WARNING string = "WARNING"
	ERROR   string = "ERROR"
	OFF     string = "OFF"
)

// Defaults mirror the xlator.OptionSpec default each translator declares
// for itself; cfg repeats them so BindFlags and --help stay in sync with
// what a translator falls back to when a volfile key is never set.
const (
	DefaultReadAheadPageCount      = 16
	DefaultFsCacheReservePercent   = 1
	DefaultCompressionLevel        = -1 // compress.LevelDefault
	DefaultCompressionMinSizeBytes = 0
	DefaultCompressionAlgorithm    = "deflate"
	DefaultClientPingTimeoutSecs   = 42
	DefaultClientStrictLocks       = false
	DefaultJbrQuorumPct            = 50.0
	DefaultJbrReplicaCount         = 2
	DefaultLogRotateBackupCount    = 10
	DefaultLogRotateMaxFileSizeMB  = 512
)

const (
	DefaultFileMode Octal = 0644
	DefaultDirMode  Octal = 0755
)
