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
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gluster-go/glusterfsd/internal/inode"
)

// Store is the brick's on-disk object store: every gfid maps to one
// regular file under root, fanned out two levels deep by the gfid's text
// form so a brick with millions of objects never puts them all in one
// directory.
//
// Store intentionally exposes nothing about the XDR fop wire format: the
// spec treats that encoding as opaque, so the store only needs to satisfy
// the same read/write/truncate/stat surface any posix brick would.
type Store struct {
	root string

	mu     sync.Mutex
	nextFd int64
	fds    map[int64]*os.File
}

// NewStore opens (creating if necessary) a store rooted at dir.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Store{root: dir, fds: make(map[int64]*os.File)}, nil
}

func (s *Store) path(gfid inode.Gfid) string {
	text := gfid.String()
	return filepath.Join(s.root, text[0:2], text[2:4], text)
}

// Create allocates the backing file for gfid, failing if it already
// exists.
func (s *Store) Create(gfid inode.Gfid) error {
	p := s.path(gfid)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o644)
	if err != nil {
		return err
	}
	return f.Close()
}

// Open returns a remote fd handle (an opaque integer the client carries
// in its fd state) for gfid, opening the backing file with the given
// posix flags. The returned handle stays valid until Close.
func (s *Store) Open(gfid inode.Gfid, flags int) (int64, error) {
	p := s.path(gfid)
	f, err := os.OpenFile(p, flags, 0o644)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextFd++
	handle := s.nextFd
	s.fds[handle] = f
	return handle, nil
}

func (s *Store) file(handle int64) (*os.File, error) {
	s.mu.Lock()
	f, ok := s.fds[handle]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("brickd: unknown remote fd %d", handle)
	}
	return f, nil
}

// ReadAt reads size bytes at offset from the file behind handle.
func (s *Store) ReadAt(handle int64, offset int64, size int) ([]byte, error) {
	f, err := s.file(handle)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, size)
	n, err := f.ReadAt(buf, offset)
	if err != nil && n == 0 {
		return nil, err
	}
	return buf[:n], nil
}

// WriteAt writes data at offset into the file behind handle.
func (s *Store) WriteAt(handle int64, offset int64, data []byte) error {
	f, err := s.file(handle)
	if err != nil {
		return err
	}
	_, err = f.WriteAt(data, offset)
	return err
}

// Truncate resizes the file behind handle.
func (s *Store) Truncate(handle int64, size int64) error {
	f, err := s.file(handle)
	if err != nil {
		return err
	}
	return f.Truncate(size)
}

// Sync fsyncs the file behind handle.
func (s *Store) Sync(handle int64) error {
	f, err := s.file(handle)
	if err != nil {
		return err
	}
	return f.Sync()
}

// Close releases handle's backing *os.File.
func (s *Store) Close(handle int64) error {
	s.mu.Lock()
	f, ok := s.fds[handle]
	delete(s.fds, handle)
	s.mu.Unlock()
	if !ok {
		return nil
	}
	return f.Close()
}

// Remove deletes gfid's backing file entirely (unlink).
func (s *Store) Remove(gfid inode.Gfid) error {
	return os.Remove(s.path(gfid))
}

// Stat reports the backing file's current size.
func (s *Store) Stat(gfid inode.Gfid) (size int64, err error) {
	fi, err := os.Stat(s.path(gfid))
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

// Root returns the store's backing directory, so a co-located component
// (internal/jbr's term log) can share the same on-disk root instead of
// inventing a second storage path.
func (s *Store) Root() string { return s.root }
