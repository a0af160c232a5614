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

import "fmt"

const (
	JbrQuorumPctInvalidValueError     = "the value of jbr.quorum-pct must be between 0 and 100"
	JbrReplicaCountInvalidValueError  = "the value of jbr.replica-count must be at least 1"
	CompressionLevelInvalidValueError = "the value of compression.level must be one of -1, 0, 1, 9"
)

func isValidLogRotateConfig(config *LogRotateLoggingConfig) error {
	if config.MaxFileSizeMb <= 0 {
		return fmt.Errorf("max-file-size-mb should be atleast 1")
	}
	if config.BackupFileCount < 0 {
		return fmt.Errorf("backup-file-count should be 0 (to retain all backup files) or a positive value")
	}
	return nil
}

func isValidJbrConfig(c *JbrConfig) error {
	if c.QuorumPct < 0 || c.QuorumPct > 100 {
		return fmt.Errorf(JbrQuorumPctInvalidValueError)
	}
	if c.ReplicaCount < 1 {
		return fmt.Errorf(JbrReplicaCountInvalidValueError)
	}
	return nil
}

func isValidCompressionConfig(c *CompressionConfig) error {
	switch c.Level {
	case -1, 0, 1, 9:
		return nil
	default:
		return fmt.Errorf(CompressionLevelInvalidValueError)
	}
}

// ValidateConfig returns a non-nil error if the config is invalid.
func ValidateConfig(config *Config) error {
	if err := isValidLogRotateConfig(&config.Logging.LogRotate); err != nil {
		return fmt.Errorf("error parsing log-rotate config: %w", err)
	}
	if err := isValidJbrConfig(&config.Jbr); err != nil {
		return fmt.Errorf("error parsing jbr config: %w", err)
	}
	if err := isValidCompressionConfig(&config.Compression); err != nil {
		return fmt.Errorf("error parsing compression config: %w", err)
	}
	return nil
}
