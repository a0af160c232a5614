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

// Package fscache implements the full-file disk cache translator: block
// extent tracking of cached regions, disk-reserve admission control, and
// a one-time POSIX_FADV_DONTNEED on the backing file once a file is
// entirely cached locally. The backing fd is never switched to O_DIRECT.
package fscache

import "sort"

// Extent is a half-open byte range [Start, End) already mirrored to local
// disk. Extents for one file are kept non-overlapping and sorted by Start.
type Extent struct {
	Start, End int64
}

func (e Extent) empty() bool { return e.Start == 0 && e.End == 0 }

// ExtentMap tracks the cached byte ranges of one file. Build one with
// NewExtentMap: the zero value has a known eof of 0, so IsCached reports
// every range as cached.
type ExtentMap struct {
	extents []Extent
	// eof is the known end-of-file, or -1 if unknown. IsCached treats a
	// request extending past eof as satisfied once the tail up to eof is
	// cached, per spec.md's is-cached rule.
	eof int64
}

// NewExtentMap builds an empty map with eof unknown.
func NewExtentMap() *ExtentMap {
	return &ExtentMap{eof: -1}
}

// SetEOF records the known file size.
func (m *ExtentMap) SetEOF(size int64) { m.eof = size }

// IsCached reports whether [offset, offset+length) is entirely covered by
// a single existing extent, or — when the request runs past eof — whether
// the cached region reaches all the way to eof.
func (m *ExtentMap) IsCached(offset, length int64) bool {
	end := offset + length
	if m.eof >= 0 && end > m.eof {
		end = m.eof
	}
	if end <= offset {
		return true
	}
	for _, e := range m.extents {
		if e.Start <= offset && e.End >= end {
			return true
		}
	}
	return false
}

// Add records that [offset, offset+length) is now cached, extending an
// adjacent extent or bridging (and transitively merging) existing ones
// rather than inserting an overlapping duplicate.
func (m *ExtentMap) Add(offset, length int64) {
	if length <= 0 {
		return
	}
	newExt := Extent{Start: offset, End: offset + length}
	m.extents = append(m.extents, newExt)
	m.normalize()
}

// normalize sorts extents by Start and merges any that touch or overlap,
// walking left-to-right until no further merge is possible (the
// "left-merge then right-merge walk" spec.md describes is just this
// single sorted sweep, since merging is transitive either direction).
func (m *ExtentMap) normalize() {
	sort.Slice(m.extents, func(i, j int) bool { return m.extents[i].Start < m.extents[j].Start })

	out := m.extents[:0]
	for _, e := range m.extents {
		if e.empty() {
			continue
		}
		if n := len(out); n > 0 && e.Start <= out[n-1].End {
			if e.End > out[n-1].End {
				out[n-1].End = e.End
			}
			continue
		}
		out = append(out, e)
	}
	m.extents = out
}

// Remove marks [offset, offset+length) as no longer cached: it may trim
// an endpoint, split one extent into two, or delete one entirely.
// Idempotent — removing an already-uncached range is a no-op.
func (m *ExtentMap) Remove(offset, length int64) {
	if length <= 0 {
		return
	}
	removeStart, removeEnd := offset, offset+length

	var out []Extent
	for _, e := range m.extents {
		switch {
		case e.End <= removeStart || e.Start >= removeEnd:
			// No overlap.
			out = append(out, e)
		case e.Start >= removeStart && e.End <= removeEnd:
			// Entirely removed.
		case e.Start < removeStart && e.End > removeEnd:
			// Split into two.
			out = append(out, Extent{e.Start, removeStart}, Extent{removeEnd, e.End})
		case e.Start < removeStart:
			// Trim the right end.
			out = append(out, Extent{e.Start, removeStart})
		default:
			// Trim the left end.
			out = append(out, Extent{removeEnd, e.End})
		}
	}
	m.extents = out
}

// Extents returns a copy of the current extent list, sorted by Start, for
// persistence onto the backing file's xattr.
func (m *ExtentMap) Extents() []Extent {
	out := make([]Extent, len(m.extents))
	copy(out, m.extents)
	return out
}

// FullyCached reports whether the entire file (0 through the known eof)
// is cached, the trigger for the one-time FADV_DONTNEED on the backing fd.
func (m *ExtentMap) FullyCached() bool {
	if m.eof < 0 {
		return false
	}
	return m.IsCached(0, m.eof)
}
