// Copyright 2025 Google LLC
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

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRationalizeBumpsSeverityOnDebugFlag(t *testing.T) {
	c := &Config{Debug: DebugConfig{LogMutex: true}, Logging: LoggingConfig{Severity: InfoLogSeverity}}
	require.NoError(t, Rationalize(c))
	assert.Equal(t, TraceLogSeverity, c.Logging.Severity)
}

func TestRationalizeLeavesOtherSeverityAlone(t *testing.T) {
	c := &Config{Logging: LoggingConfig{Severity: WarningLogSeverity}}
	require.NoError(t, Rationalize(c))
	assert.Equal(t, WarningLogSeverity, c.Logging.Severity)
}

func TestRationalizeSingleReplicaIsAlwaysConfigLeader(t *testing.T) {
	c := &Config{Jbr: JbrConfig{ReplicaCount: 1, ConfigLeader: false}}
	require.NoError(t, Rationalize(c))
	assert.True(t, c.Jbr.ConfigLeader)
}
