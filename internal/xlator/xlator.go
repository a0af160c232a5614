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

// Package xlator defines the ABI that every translator in a GlusterFS-Go
// graph implements: a typed fop dispatch surface, lifecycle hooks, and a
// validated options table. It replaces the macro-driven fop plumbing and
// dict_t-keyed option parsing of the C implementation with ordinary Go
// interfaces and a typed options table.
package xlator

import "fmt"

// Fop identifies one filesystem operation that can traverse the graph.
type Fop int

const (
	FopLookup Fop = iota
	FopGetAttr
	FopSetAttr
	FopOpen
	FopCreate
	FopRead
	FopWrite
	FopTruncate
	FopStatfs
	FopReadDir
	FopRename
	FopUnlink
	FopLink
	FopSymlink
	FopReadlink
	FopMknod
	FopMkdir
	FopRmdir
	FopFsync
	FopFlush
	FopSetxattr
	FopGetxattr
	FopRemovexattr
	FopInodelk
	FopEntrylk
	FopLk
	FopXattrop
	FopFallocate
	FopDiscard
	FopZerofill
	FopIpc
	FopLease
	FopSeek
	FopForget
	FopRelease
	FopReleaseDir
)

//go:generate stringer -type=Fop

func (f Fop) String() string {
	names := [...]string{
		"lookup", "getattr", "setattr", "open", "create", "read", "write",
		"truncate", "statfs", "readdir", "rename", "unlink", "link", "symlink",
		"readlink", "mknod", "mkdir", "rmdir", "fsync", "flush", "setxattr",
		"getxattr", "removexattr", "inodelk", "entrylk", "lk", "xattrop",
		"fallocate", "discard", "zerofill", "ipc", "lease", "seek", "forget",
		"release", "releasedir",
	}
	if int(f) < 0 || int(f) >= len(names) {
		return fmt.Sprintf("fop(%d)", int(f))
	}
	return names[f]
}

// NotifyEvent enumerates translator lifecycle events delivered via Notify.
type NotifyEvent int

const (
	ChildUp NotifyEvent = iota
	ChildDown
	ParentUp
	ParentDown
	ParentCleanup
	TransportCleanup
)

// Errno is the translator-boundary error code. A nil Errno (value 0) means
// success; any other value is a positive errno travelling with a negative
// op_ret, per spec.md §7's "negative op_ret with positive op_errno"
// convention. We fold the pair into one type because Go already gives us
// the zero-value-means-ok idiom; FUSE-facing code unfolds it back into the
// two-value shape at the kernel boundary (see internal/fusebridge).
type Errno int

func (e Errno) Error() string {
	if e == 0 {
		return "success"
	}
	return errnoText(e)
}

// OK reports whether e represents a successful operation.
func (e Errno) OK() bool { return e == 0 }

// FopFunc is the entry point a translator registers for one fop. frame is
// the call frame created for this hop by Wind; args is the fop-specific,
// already-typed argument struct.
type FopFunc func(frame any, args any)

// CbkFunc is the entry point for a forget/release/releasedir callback,
// which unlike a fop has no reply to unwind.
type CbkFunc func(ctx any)

// Translator is the ABI every node in the call-stack graph implements.
type Translator interface {
	// Name returns the translator's identity, used for logging, the
	// per-translator inode/fd context slot key, and statedump registration.
	Name() string

	// Init is called once before the translator receives its first fop.
	Init() error

	// Fini is called once during teardown, after all children have been
	// torn down.
	Fini() error

	// Notify delivers a lifecycle event, optionally carrying event-specific
	// data (e.g. the child index for ChildUp/ChildDown).
	Notify(event NotifyEvent, data any) error

	// Fop returns the entry function for the given operation, or nil if
	// this translator passes it straight through to its only child (the
	// common case: most translators only override a handful of fops).
	Fop(op Fop) FopFunc

	// Children returns this translator's ordered child list. Most
	// translators have exactly one child; fan-out translators (replication,
	// JBR) have several.
	Children() []Translator

	// Options returns the validated option table this translator was
	// configured with.
	Options() *Options
}

// Reconfigurable is implemented by translators that support live
// reconfiguration of their options (volfile reload equivalent).
type Reconfigurable interface {
	Reconfigure(*Options) error
}

// Cbks groups the three upcall-style callbacks a translator may implement
// in place of a fop entry, since they have no reply to unwind: they fire
// when the kernel (or a fan-out parent) is done with a resource.
type Cbks interface {
	Forget(inodeCtx any)
	Release(fdCtx any)
	ReleaseDir(fdCtx any)
}
