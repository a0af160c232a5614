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

package brickd

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameConnRoundTripsEnvelope(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	fa := newFrameConn(a)
	fb := newFrameConn(b)

	sent := envelope{ID: 7, Program: ProgramFops, Method: "Read", Payload: []byte("abc")}
	go func() { require.NoError(t, fa.writeEnvelope(sent)) }()

	got, err := fb.readEnvelope()
	require.NoError(t, err)
	assert.Equal(t, sent.ID, got.ID)
	assert.Equal(t, sent.Program, got.Program)
	assert.Equal(t, sent.Method, got.Method)
	assert.Equal(t, sent.Payload, got.Payload)
}

func TestEncodeDecodePayloadRoundTrips(t *testing.T) {
	type inner struct {
		A int
		B string
	}
	b := encodePayload(inner{A: 1, B: "x"})

	var out inner
	require.NoError(t, decodePayload(b, &out))
	assert.Equal(t, inner{A: 1, B: "x"}, out)
}

func TestProgramStringCoversAllValues(t *testing.T) {
	assert.Equal(t, "fops", ProgramFops.String())
	assert.Equal(t, "handshake", ProgramHandshake.String())
	assert.Equal(t, "callback", ProgramCallback.String())
}
