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
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/gluster-go/glusterfsd/internal/clientxl"
	"github.com/gluster-go/glusterfsd/internal/inode"
	"github.com/gluster-go/glusterfsd/internal/xlator"
)

// Client is the concrete clientxl.Remote: it dials a brick over TCP (or
// any net.Conn-producing transport) and multiplexes fop calls over one
// length-prefixed gob connection, matching replies to callers by the
// envelope's ID field the way net/rpc's client matches sequence numbers.
type Client struct {
	fc *frameConn

	nextID uint64

	mu       sync.Mutex
	pending  map[uint64]chan envelope
	closed   bool
	callback CallbackHandler
}

var _ clientxl.Remote = (*Client)(nil)

// Dial connects to a brick daemon listening at addr and starts the
// background reply-reading loop.
func Dial(ctx context.Context, addr string) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return NewClient(conn), nil
}

// NewClient wraps an already-established connection (e.g. one produced by
// a non-TCP transport in tests, such as net.Pipe).
func NewClient(conn net.Conn) *Client {
	c := &Client{
		fc:      newFrameConn(conn),
		pending: make(map[uint64]chan envelope),
	}
	go c.readLoop()
	return c
}

func (c *Client) readLoop() {
	for {
		env, err := c.fc.readEnvelope()
		if err != nil {
			c.abortPending(err)
			return
		}
		if env.Program == ProgramCallback {
			c.mu.Lock()
			h := c.callback
			c.mu.Unlock()
			if h != nil {
				h(env.Method, env.Payload)
			}
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[env.ID]
		delete(c.pending, env.ID)
		c.mu.Unlock()
		if ok {
			ch <- env
		}
	}
}

func (c *Client) abortPending(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
}

func (c *Client) call(ctx context.Context, program Program, method string, args any) (envelope, error) {
	id := atomic.AddUint64(&c.nextID, 1)
	ch := make(chan envelope, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return envelope{}, fmt.Errorf("brickd: client connection closed")
	}
	c.pending[id] = ch
	c.mu.Unlock()

	req := envelope{ID: id, Program: program, Method: method}
	if args != nil {
		req.Payload = encodePayload(args)
	}
	if err := c.fc.writeEnvelope(req); err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return envelope{}, err
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return envelope{}, fmt.Errorf("brickd: connection closed while waiting for %s", method)
		}
		return resp, nil
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return envelope{}, ctx.Err()
	}
}

func replyErr(env envelope) error {
	if env.Errno == 0 {
		return nil
	}
	return xlator.Errno(env.Errno)
}

func (c *Client) Open(ctx context.Context, gfid inode.Gfid, flags uint32) (int64, error) {
	return c.openOrReopen(ctx, "Open", gfid, flags)
}

func (c *Client) Reopen(ctx context.Context, gfid inode.Gfid, flags uint32) (int64, error) {
	return c.openOrReopen(ctx, "Reopen", gfid, flags)
}

func (c *Client) openOrReopen(ctx context.Context, method string, gfid inode.Gfid, flags uint32) (int64, error) {
	env, err := c.call(ctx, ProgramFops, method, openReq{Gfid: gfid, Flags: flags})
	if err != nil {
		return 0, err
	}
	if err := replyErr(env); err != nil {
		return 0, err
	}
	var resp openResp
	if err := decodePayload(env.Payload, &resp); err != nil {
		return 0, err
	}
	return resp.Fd, nil
}

func (c *Client) Close(ctx context.Context, remoteFd int64) error {
	env, err := c.call(ctx, ProgramFops, "Close", closeReq{Fd: remoteFd})
	if err != nil {
		return err
	}
	return replyErr(env)
}

func (c *Client) Read(ctx context.Context, remoteFd int64, offset int64, size int) ([]byte, error) {
	env, err := c.call(ctx, ProgramFops, "Read", readReq{Fd: remoteFd, Offset: offset, Size: size})
	if err != nil {
		return nil, err
	}
	if err := replyErr(env); err != nil {
		return nil, err
	}
	var resp readResp
	if err := decodePayload(env.Payload, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *Client) Write(ctx context.Context, remoteFd int64, offset int64, data []byte) error {
	env, err := c.call(ctx, ProgramFops, "Write", writeReq{Fd: remoteFd, Offset: offset, Data: data})
	if err != nil {
		return err
	}
	return replyErr(env)
}

func (c *Client) Lock(ctx context.Context, remoteFd int64, req clientxl.LockRequest) error {
	env, err := c.call(ctx, ProgramFops, "Lock", lockReq{Fd: remoteFd, Req: req})
	if err != nil {
		return err
	}
	return replyErr(env)
}

func (c *Client) Unlock(ctx context.Context, remoteFd int64, req clientxl.LockRequest) error {
	env, err := c.call(ctx, ProgramFops, "Unlock", lockReq{Fd: remoteFd, Req: req})
	if err != nil {
		return err
	}
	return replyErr(env)
}

func (c *Client) Ping(ctx context.Context) error {
	env, err := c.call(ctx, ProgramFops, "Ping", nil)
	if err != nil {
		return err
	}
	return replyErr(env)
}

// SetVolume performs the handshake program's mount-time negotiation.
func (c *Client) SetVolume(ctx context.Context, volumeName string, options map[string]string) (bool, error) {
	env, err := c.call(ctx, ProgramHandshake, "SetVolume", setVolumeReq{VolumeName: volumeName, Options: options})
	if err != nil {
		return false, err
	}
	if err := replyErr(env); err != nil {
		return false, err
	}
	var resp setVolumeResp
	if err := decodePayload(env.Payload, &resp); err != nil {
		return false, err
	}
	return resp.Accepted, nil
}

// GetSpec fetches the volfile text the brick holds for volumeName.
func (c *Client) GetSpec(ctx context.Context, volumeName string) (string, error) {
	env, err := c.call(ctx, ProgramHandshake, "GetSpec", getSpecReq{VolumeName: volumeName})
	if err != nil {
		return "", err
	}
	if err := replyErr(env); err != nil {
		return "", err
	}
	var resp getSpecResp
	if err := decodePayload(env.Payload, &resp); err != nil {
		return "", err
	}
	return resp.Spec, nil
}

// CloseConn shuts down the underlying connection.
func (c *Client) CloseConn() error {
	return c.fc.Close()
}
