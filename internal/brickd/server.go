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
	"log/slog"
	"net"
	"os"
	"sync"

	"github.com/gluster-go/glusterfsd/internal/clientxl"
	"github.com/gluster-go/glusterfsd/internal/inode"
	"github.com/gluster-go/glusterfsd/internal/xlator"
)

// wire request/reply payloads for the fops program. Every one of these is
// gob-encoded into an envelope's Payload field.
type (
	openReq struct {
		Gfid  inode.Gfid
		Flags uint32
	}
	openResp struct{ Fd int64 }

	closeReq struct{ Fd int64 }

	readReq struct {
		Fd     int64
		Offset int64
		Size   int
	}
	readResp struct{ Data []byte }

	writeReq struct {
		Fd     int64
		Offset int64
		Data   []byte
	}

	lockReq struct {
		Fd  int64
		Req clientxl.LockRequest
	}
)

// handshake program payloads: setvolume negotiates the volume/options a
// client is allowed to mount, getspec returns the (opaque) volfile text a
// client should apply. Both are stubs in the sense that this port has no
// volfile compiler; GetSpec returns whatever SetVolume last recorded.
type (
	setVolumeReq struct {
		VolumeName string
		Options    map[string]string
	}
	setVolumeResp struct{ Accepted bool }

	getSpecReq struct{ VolumeName string }
	getSpecResp struct{ Spec string }
)

// Server is the brick daemon's RPC endpoint: it accepts connections,
// frames envelopes, and dispatches them against a Store and a lockTable.
type Server struct {
	store     *Store
	locks     *lockTable
	callbacks *broadcaster
	log       *slog.Logger

	mu       sync.Mutex
	specs    map[string]string
	listener net.Listener
}

// NewServer builds a brick server persisting objects under dataDir.
func NewServer(dataDir string, log *slog.Logger) (*Server, error) {
	store, err := NewStore(dataDir)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		store:     store,
		locks:     newLockTable(),
		callbacks: newBroadcaster(),
		log:       log,
		specs:     make(map[string]string),
	}, nil
}

// Serve accepts connections on ln until it returns an error (including
// when ln is closed by the caller).
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go s.serveConn(conn)
	}
}

func (s *Server) serveConn(conn net.Conn) {
	defer conn.Close()
	fc := newFrameConn(conn)
	s.callbacks.add(fc)
	defer s.callbacks.remove(fc)
	for {
		env, err := fc.readEnvelope()
		if err != nil {
			return
		}
		go s.dispatch(fc, env)
	}
}

func (s *Server) dispatch(fc *frameConn, env envelope) {
	reply, errno := s.handle(env)
	out := envelope{
		ID:      env.ID,
		Program: env.Program,
		Method:  env.Method,
		Errno:   int32(errno),
	}
	if reply != nil {
		out.Payload = encodePayload(reply)
	}
	if err := fc.writeEnvelope(out); err != nil {
		s.log.Warn("brickd: failed to write reply", "method", env.Method, "err", err)
	}
}

func (s *Server) handle(env envelope) (reply any, errno int) {
	switch env.Program {
	case ProgramFops:
		return s.handleFop(env)
	case ProgramHandshake:
		return s.handleHandshake(env)
	default:
		return nil, int(xlator.EINVAL)
	}
}

func (s *Server) handleFop(env envelope) (any, int) {
	switch env.Method {
	case "Open", "Reopen":
		var req openReq
		if err := decodePayload(env.Payload, &req); err != nil {
			return nil, int(xlator.EINVAL)
		}
		if env.Method == "Open" {
			_ = s.store.Create(req.Gfid) // idempotent-ish: ignore EEXIST
		}
		fd, err := s.store.Open(req.Gfid, int(req.Flags)|os.O_RDWR)
		if err != nil {
			return nil, int(xlator.EIO)
		}
		return openResp{Fd: fd}, 0

	case "Close":
		var req closeReq
		if err := decodePayload(env.Payload, &req); err != nil {
			return nil, int(xlator.EINVAL)
		}
		s.locks.forget(req.Fd)
		_ = s.store.Close(req.Fd)
		return nil, 0

	case "Read":
		var req readReq
		if err := decodePayload(env.Payload, &req); err != nil {
			return nil, int(xlator.EINVAL)
		}
		data, err := s.store.ReadAt(req.Fd, req.Offset, req.Size)
		if err != nil {
			return nil, int(xlator.EIO)
		}
		return readResp{Data: data}, 0

	case "Write":
		var req writeReq
		if err := decodePayload(env.Payload, &req); err != nil {
			return nil, int(xlator.EINVAL)
		}
		if err := s.store.WriteAt(req.Fd, req.Offset, req.Data); err != nil {
			return nil, int(xlator.EIO)
		}
		return nil, 0

	case "Lock":
		var req lockReq
		if err := decodePayload(env.Payload, &req); err != nil {
			return nil, int(xlator.EINVAL)
		}
		s.locks.grant(req.Fd, inode.Lock{
			Start: uint64(req.Req.Start), End: uint64(req.Req.End),
			Type: req.Req.Type, Owner: req.Req.Owner,
		})
		return nil, 0

	case "Unlock":
		var req lockReq
		if err := decodePayload(env.Payload, &req); err != nil {
			return nil, int(xlator.EINVAL)
		}
		s.locks.release(req.Fd, req.Req.Owner, uint64(req.Req.Start), uint64(req.Req.End))
		return nil, 0

	case "Ping":
		return nil, 0

	default:
		return nil, int(xlator.EINVAL)
	}
}

func (s *Server) handleHandshake(env envelope) (any, int) {
	switch env.Method {
	case "SetVolume":
		var req setVolumeReq
		if err := decodePayload(env.Payload, &req); err != nil {
			return nil, int(xlator.EINVAL)
		}
		s.mu.Lock()
		s.specs[req.VolumeName] = encodeOptions(req.Options)
		s.mu.Unlock()
		return setVolumeResp{Accepted: true}, 0

	case "GetSpec":
		var req getSpecReq
		if err := decodePayload(env.Payload, &req); err != nil {
			return nil, int(xlator.EINVAL)
		}
		s.mu.Lock()
		spec := s.specs[req.VolumeName]
		s.mu.Unlock()
		return getSpecResp{Spec: spec}, 0

	default:
		return nil, int(xlator.EINVAL)
	}
}

func encodeOptions(opts map[string]string) string {
	var out string
	for k, v := range opts {
		out += k + "=" + v + "\n"
	}
	return out
}
