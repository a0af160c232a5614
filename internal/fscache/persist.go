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

package fscache

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/sys/unix"
)

// extentMapXattr is the extended attribute the extent map is persisted
// under on the local backing file, restored on open.
const extentMapXattr = "trusted.glusterfs.fscache.extents"

// EncodeExtents serializes extents as a flat array of big-endian
// (start,end) int64 pairs, the on-disk xattr payload.
func EncodeExtents(extents []Extent) []byte {
	buf := make([]byte, 16*len(extents))
	for i, e := range extents {
		binary.BigEndian.PutUint64(buf[i*16:], uint64(e.Start))
		binary.BigEndian.PutUint64(buf[i*16+8:], uint64(e.End))
	}
	return buf
}

// DecodeExtents parses the xattr payload written by EncodeExtents.
func DecodeExtents(buf []byte) ([]Extent, error) {
	if len(buf)%16 != 0 {
		return nil, fmt.Errorf("fscache: corrupt extent map xattr, length %d not a multiple of 16", len(buf))
	}
	extents := make([]Extent, len(buf)/16)
	for i := range extents {
		extents[i].Start = int64(binary.BigEndian.Uint64(buf[i*16:]))
		extents[i].End = int64(binary.BigEndian.Uint64(buf[i*16+8:]))
	}
	return extents, nil
}

// PersistExtents writes m's extent list to the backing file's xattr.
func PersistExtents(fd int, m *ExtentMap) error {
	buf := EncodeExtents(m.Extents())
	if len(buf) == 0 {
		return unix.Fremovexattr(fd, extentMapXattr)
	}
	return unix.Fsetxattr(fd, extentMapXattr, buf, 0)
}

// RestoreExtents reads the extent map xattr from the backing file into a
// fresh ExtentMap. A missing xattr (fresh backing file) yields an empty
// map, not an error.
func RestoreExtents(fd int) (*ExtentMap, error) {
	m := NewExtentMap()

	size, err := unix.Fgetxattr(fd, extentMapXattr, nil)
	if err != nil {
		if err == unix.ENODATA {
			return m, nil
		}
		return nil, err
	}
	buf := make([]byte, size)
	if _, err := unix.Fgetxattr(fd, extentMapXattr, buf); err != nil {
		return nil, err
	}
	extents, err := DecodeExtents(buf)
	if err != nil {
		return nil, err
	}
	m.extents = extents
	m.normalize()
	return m, nil
}
