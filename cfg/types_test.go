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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOctalUnmarshalText(t *testing.T) {
	var o Octal
	require.NoError(t, o.UnmarshalText([]byte("644")))
	assert.Equal(t, Octal(0o644), o)
}

func TestOctalRoundTripsThroughMarshalText(t *testing.T) {
	o := Octal(0o755)
	text, err := o.MarshalText()
	require.NoError(t, err)

	var back Octal
	require.NoError(t, back.UnmarshalText(text))
	assert.Equal(t, o, back)
}

func TestLogSeverityRank(t *testing.T) {
	assert.Less(t, TraceLogSeverity.Rank(), DebugLogSeverity.Rank())
	assert.Less(t, ErrorLogSeverity.Rank(), OffLogSeverity.Rank())
	assert.Equal(t, -1, LogSeverity("bogus").Rank())
}

func TestLogSeverityUnmarshalTextRejectsUnknown(t *testing.T) {
	var l LogSeverity
	assert.Error(t, l.UnmarshalText([]byte("VERY_LOUD")))
}

func TestLogSeverityUnmarshalTextUppercases(t *testing.T) {
	var l LogSeverity
	require.NoError(t, l.UnmarshalText([]byte("debug")))
	assert.Equal(t, DebugLogSeverity, l)
}

func TestResolvedPathKeepsAbsolutePath(t *testing.T) {
	var p ResolvedPath
	require.NoError(t, p.UnmarshalText([]byte("/mnt/gv0")))
	assert.Equal(t, ResolvedPath("/mnt/gv0"), p)
}

func TestResolvedPathResolvesRelativeToWorkingDirectory(t *testing.T) {
	var p ResolvedPath
	require.NoError(t, p.UnmarshalText([]byte("relative/dir")))
	assert.True(t, filepath.IsAbs(string(p)))
}
