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

package jbr

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/gluster-go/glusterfsd/internal/brickd"
)

// EntrySize is the fixed record size of a term-log entry.
const EntrySize = 128

// committedPrefix marks a record as committed; its absence marks the
// first record the reconciler must still apply.
var committedPrefix = [2]byte{'_', 'P'}

// ErrNoMore is returned by NextEntry once the open term's sequential
// cursor has consumed every record.
var ErrNoMore = errors.New("jbr: no more entries in term")

// Entry is one fixed-size term-log record.
type Entry [EntrySize]byte

// NewEntry builds a committed entry wrapping payload, which must fit in
// EntrySize-2 bytes.
func NewEntry(payload []byte) (Entry, error) {
	var e Entry
	if len(payload) > EntrySize-2 {
		return e, fmt.Errorf("jbr: entry payload of %d bytes exceeds %d", len(payload), EntrySize-2)
	}
	e[0], e[1] = committedPrefix[0], committedPrefix[1]
	copy(e[2:], payload)
	return e, nil
}

// Committed reports whether e carries the committed-record prefix.
func (e Entry) Committed() bool {
	return e[0] == committedPrefix[0] && e[1] == committedPrefix[1]
}

// Payload returns the bytes after the committed-marker prefix.
func (e Entry) Payload() []byte {
	return e[2:]
}

// TermLog is the append-only per-term record store, sharing its on-disk
// root with internal/brickd's object store rather than inventing a
// second storage path.
type TermLog struct {
	store *brickd.Store

	mu      sync.Mutex
	openF   *os.File
	curTerm uint32
	total   int64
	read    int64
}

// NewTermLog builds a term log rooted at store's directory.
func NewTermLog(store *brickd.Store) *TermLog {
	return &TermLog{store: store}
}

func (t *TermLog) path(term uint32) string {
	return filepath.Join(t.store.Root(), fmt.Sprintf("TERM.%d", term))
}

// Append writes one committed entry to TERM.<term>, creating the file on
// first use.
func (t *TermLog) Append(term uint32, payload []byte) error {
	entry, err := NewEntry(payload)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(t.path(term), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(entry[:])
	return err
}

// TermRange scans the store's root for TERM.<n> files and returns the
// first, last term numbers of the contiguous run starting at the lowest
// term present. A brick that has never committed anything returns
// first == last == 0, ok == false.
func (t *TermLog) TermRange() (first, last uint32, ok bool, err error) {
	entries, err := os.ReadDir(t.store.Root())
	if err != nil {
		return 0, 0, false, err
	}

	var terms []uint32
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, "TERM.") {
			continue
		}
		n, convErr := strconv.ParseUint(strings.TrimPrefix(name, "TERM."), 10, 32)
		if convErr != nil {
			continue
		}
		terms = append(terms, uint32(n))
	}
	if len(terms) == 0 {
		return 0, 0, false, nil
	}
	sort.Slice(terms, func(i, j int) bool { return terms[i] < terms[j] })

	first = terms[0]
	last = first
	for _, term := range terms[1:] {
		if term != last+1 {
			break
		}
		last = term
	}
	return first, last, true, nil
}

// OpenTerm opens term for sequential reading via NextEntry, replacing any
// previously open term.
func (t *TermLog) OpenTerm(term uint32) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.openF != nil {
		t.openF.Close()
		t.openF = nil
	}

	f, err := os.Open(t.path(term))
	if err != nil {
		return err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}

	t.openF = f
	t.curTerm = term
	t.total = fi.Size() / EntrySize
	t.read = 0
	return nil
}

// NextEntry returns the next sequential record from the currently open
// term, or ErrNoMore once exhausted.
func (t *TermLog) NextEntry() (Entry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var e Entry
	if t.openF == nil {
		return e, fmt.Errorf("jbr: no term open")
	}
	if t.read >= t.total {
		return e, ErrNoMore
	}
	if _, err := t.openF.ReadAt(e[:], t.read*EntrySize); err != nil {
		return e, err
	}
	t.read++
	return e, nil
}

// CommittedCount binary-searches term for the number of leading committed
// entries, determining the committed prefix length without a separate
// index: the first entry whose prefix is not "_P" marks the boundary.
func (t *TermLog) CommittedCount(term uint32) (int64, error) {
	f, err := os.Open(t.path(term))
	if err != nil {
		return 0, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return 0, err
	}
	n := fi.Size() / EntrySize

	var buf [EntrySize]byte
	isCommitted := func(idx int64) (bool, error) {
		if _, err := f.ReadAt(buf[:2], idx*EntrySize); err != nil {
			return false, err
		}
		return buf[0] == committedPrefix[0] && buf[1] == committedPrefix[1], nil
	}

	lo, hi := int64(0), n // invariant: [0, lo) all committed, [hi, n) status unknown/not committed
	for lo < hi {
		mid := lo + (hi-lo)/2
		committed, err := isCommitted(mid)
		if err != nil {
			return 0, err
		}
		if committed {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo, nil
}
