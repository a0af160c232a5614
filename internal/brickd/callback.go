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
	"sync"

	"github.com/gluster-go/glusterfsd/internal/inode"
)

// invalidateMsg is the callback program's payload for an unsolicited
// server->client invalidation push (spec.md §6's "callback program
// (fetchspec, invalidation)").
type invalidateMsg struct {
	Gfid inode.Gfid
}

// CallbackHandler is invoked on the client for every unsolicited message
// arriving on the callback program, keyed by method name ("Invalidate",
// "FetchSpec").
type CallbackHandler func(method string, payload []byte)

// OnCallback registers h to receive callback-program pushes. Only one
// handler is supported per client connection.
func (c *Client) OnCallback(h CallbackHandler) {
	c.mu.Lock()
	c.callback = h
	c.mu.Unlock()
}

// broadcaster tracks live server-side connections so the brick can push
// invalidation callbacks without waiting for the client to ask first.
type broadcaster struct {
	mu    sync.Mutex
	conns map[*frameConn]struct{}
}

func newBroadcaster() *broadcaster {
	return &broadcaster{conns: make(map[*frameConn]struct{})}
}

func (b *broadcaster) add(fc *frameConn) {
	b.mu.Lock()
	b.conns[fc] = struct{}{}
	b.mu.Unlock()
}

func (b *broadcaster) remove(fc *frameConn) {
	b.mu.Lock()
	delete(b.conns, fc)
	b.mu.Unlock()
}

// Invalidate pushes an unsolicited Invalidate callback for gfid to every
// connected client, e.g. when a JBR reconcile changes an inode another
// client has cached.
func (s *Server) Invalidate(gfid inode.Gfid) {
	env := envelope{
		Program: ProgramCallback,
		Method:  "Invalidate",
		Payload: encodePayload(invalidateMsg{Gfid: gfid}),
	}
	s.callbacks.mu.Lock()
	defer s.callbacks.mu.Unlock()
	for fc := range s.callbacks.conns {
		_ = fc.writeEnvelope(env)
	}
}
