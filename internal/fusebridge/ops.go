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

package fusebridge

import (
	"syscall"
	"time"

	"github.com/jacobsa/fuse/fuseops"

	"github.com/gluster-go/glusterfsd/internal/inode"
	"github.com/gluster-go/glusterfsd/internal/xlator"
)

// lookupArgs/lookupReply etc. are the per-fop argument/reply payloads
// Wind/Unwind carry through Frame.Local and Frame.Reply. They are plain
// structs, not wire types: only the fops that actually run in-process
// (everything below the bridge, until brickd's RPC boundary) ever see
// them.
type lookupArgs struct {
	Parent inode.Gfid
	Name   string
}
type lookupReply struct {
	Gfid inode.Gfid
	Attr inode.Attr
}

type getattrArgs struct{ Gfid inode.Gfid }
type getattrReply struct{ Attr inode.Attr }

type setattrArgs struct {
	Gfid  inode.Gfid
	Size  *uint64
	Mode  *uint32
	Atime *time.Time
	Mtime *time.Time
}
type setattrReply struct{ Attr inode.Attr }

type mkdirArgs struct {
	Parent inode.Gfid
	Name   string
	Mode   uint32
}
type createArgs struct {
	Parent inode.Gfid
	Name   string
	Mode   uint32
	Flags  uint32
}
type createReply struct {
	Gfid inode.Gfid
	Attr inode.Attr
	Fd   uint64
}

type unlinkArgs struct {
	Parent inode.Gfid
	Name   string
}

type opendirArgs struct{ Gfid inode.Gfid }
type opendirReply struct{ Fd uint64 }

type readdirArgs struct {
	Fd     uint64
	Offset uint64
	Size   int
}
type readdirReply struct{ Data []byte }

type releasedirArgs struct{ Fd uint64 }

type openArgs struct {
	Gfid  inode.Gfid
	Flags uint32
}
type openReply struct{ Fd uint64 }

type readArgs struct {
	Fd     uint64
	Offset int64
	Size   int
}
type readReply struct{ Data []byte }

type writeArgs struct {
	Fd     uint64
	Offset int64
	Data   []byte
}

type fsyncArgs struct{ Fd uint64 }
type flushArgs struct{ Fd uint64 }
type releaseArgs struct{ Fd uint64 }

// Init is a no-op: the graph below the bridge is already constructed and
// had its Init lifecycle hook called by the time fuse.Mount hands control
// here.
func (b *Bridge) Init(op *fuseops.InitOp) error { return nil }

// Destroy flushes any in-flight work and stops background workers. The
// real flush/stop logic lives on the translators themselves (readahead's
// dispatcher, JBR's fsync thread); the bridge has nothing of its own to
// drain.
func (b *Bridge) Destroy() {}

func (b *Bridge) LookUpInode(op *fuseops.LookUpInodeOp) error {
	ctx := op.Context()
	creds := b.creds(ctx, op.Header.Uid, op.Header.Gid, op.Header.Pid)

	parentGfid, ok, errno := b.resolver.Resolve(op.Parent, op.Name)
	if errno != 0 {
		return toErrno(errno)
	}
	if ok {
		in, _ := b.inodes.Lookup(parentGfid)
		nodeID := b.nodes.NodeFor(parentGfid)
		b.nodes.IncLookup(nodeID, 1)
		op.Entry.Child = nodeID
		op.Entry.Attributes = attrToFuse(in.Attr())
		return nil
	}

	frame := b.callSync(ctx, creds, xlator.FopLookup, lookupArgs{Parent: parentGfid, Name: op.Name})
	if frame.Errno != 0 {
		return toErrno(frame.Errno)
	}
	reply := frame.Reply.(lookupReply)
	nodeID := b.resolver.LinkResult(parentGfid, op.Name, reply.Gfid, reply.Attr)
	b.nodes.IncLookup(nodeID, 1)

	op.Entry.Child = nodeID
	op.Entry.Attributes = attrToFuse(reply.Attr)
	return nil
}

func (b *Bridge) GetInodeAttributes(op *fuseops.GetInodeAttributesOp) error {
	ctx := op.Context()
	creds := b.creds(ctx, op.Header.Uid, op.Header.Gid, op.Header.Pid)
	gfid, err := b.gfidFor(op.Inode)
	if err != nil {
		return err
	}
	frame := b.callSync(ctx, creds, xlator.FopGetAttr, getattrArgs{Gfid: gfid})
	if frame.Errno != 0 {
		return toErrno(frame.Errno)
	}
	op.Attributes = attrToFuse(frame.Reply.(getattrReply).Attr)
	return nil
}

func (b *Bridge) SetInodeAttributes(op *fuseops.SetInodeAttributesOp) error {
	ctx := op.Context()
	creds := b.creds(ctx, op.Header.Uid, op.Header.Gid, op.Header.Pid)
	gfid, err := b.gfidFor(op.Inode)
	if err != nil {
		return err
	}

	args := setattrArgs{Gfid: gfid, Atime: op.Atime, Mtime: op.Mtime}
	if op.Size != nil {
		args.Size = op.Size
	}
	if op.Mode != nil {
		m := uint32(*op.Mode)
		args.Mode = &m
	}

	frame := b.callSync(ctx, creds, xlator.FopSetAttr, args)
	if frame.Errno != 0 {
		return toErrno(frame.Errno)
	}
	op.Attributes = attrToFuse(frame.Reply.(setattrReply).Attr)
	return nil
}

func (b *Bridge) ForgetInode(op *fuseops.ForgetInodeOp) error {
	if b.nodes.Forget(op.ID, op.N) {
		if gfid, ok := b.nodes.Gfid(op.ID); ok {
			b.inodes.Forget(gfid, 0)
		}
	}
	return nil
}

func (b *Bridge) MkDir(op *fuseops.MkDirOp) error {
	ctx := op.Context()
	creds := b.creds(ctx, op.Header.Uid, op.Header.Gid, op.Header.Pid)
	parentGfid, err := b.gfidFor(op.Parent)
	if err != nil {
		return err
	}
	frame := b.callSync(ctx, creds, xlator.FopMkdir, mkdirArgs{Parent: parentGfid, Name: op.Name, Mode: uint32(op.Mode)})
	if frame.Errno != 0 {
		return toErrno(frame.Errno)
	}
	reply := frame.Reply.(lookupReply)
	nodeID := b.resolver.LinkResult(parentGfid, op.Name, reply.Gfid, reply.Attr)
	b.nodes.IncLookup(nodeID, 1)
	op.Entry.Child = nodeID
	op.Entry.Attributes = attrToFuse(reply.Attr)
	return nil
}

func (b *Bridge) CreateFile(op *fuseops.CreateFileOp) error {
	ctx := op.Context()
	creds := b.creds(ctx, op.Header.Uid, op.Header.Gid, op.Header.Pid)
	parentGfid, err := b.gfidFor(op.Parent)
	if err != nil {
		return err
	}
	frame := b.callSync(ctx, creds, xlator.FopCreate, createArgs{
		Parent: parentGfid, Name: op.Name, Mode: uint32(op.Mode), Flags: uint32(op.Flags),
	})
	if frame.Errno != 0 {
		return toErrno(frame.Errno)
	}
	reply := frame.Reply.(createReply)
	nodeID := b.resolver.LinkResult(parentGfid, op.Name, reply.Gfid, reply.Attr)
	b.nodes.IncLookup(nodeID, 1)
	op.Entry.Child = nodeID
	op.Entry.Attributes = attrToFuse(reply.Attr)
	op.Handle = fuseops.HandleID(reply.Fd)
	return nil
}

func (b *Bridge) RmDir(op *fuseops.RmDirOp) error {
	ctx := op.Context()
	creds := b.creds(ctx, op.Header.Uid, op.Header.Gid, op.Header.Pid)
	parentGfid, err := b.gfidFor(op.Parent)
	if err != nil {
		return err
	}
	frame := b.callSync(ctx, creds, xlator.FopRmdir, unlinkArgs{Parent: parentGfid, Name: op.Name})
	if frame.Errno != 0 {
		return toErrno(frame.Errno)
	}
	b.inodes.Unlink(parentGfid, op.Name)
	return nil
}

func (b *Bridge) Unlink(op *fuseops.UnlinkOp) error {
	ctx := op.Context()
	creds := b.creds(ctx, op.Header.Uid, op.Header.Gid, op.Header.Pid)
	parentGfid, err := b.gfidFor(op.Parent)
	if err != nil {
		return err
	}
	frame := b.callSync(ctx, creds, xlator.FopUnlink, unlinkArgs{Parent: parentGfid, Name: op.Name})
	if frame.Errno != 0 {
		return toErrno(frame.Errno)
	}
	b.inodes.Unlink(parentGfid, op.Name)
	return nil
}

func (b *Bridge) OpenDir(op *fuseops.OpenDirOp) error {
	ctx := op.Context()
	creds := b.creds(ctx, op.Header.Uid, op.Header.Gid, op.Header.Pid)
	gfid, err := b.gfidFor(op.Inode)
	if err != nil {
		return err
	}
	frame := b.callSync(ctx, creds, xlator.FopOpen, opendirArgs{Gfid: gfid})
	if frame.Errno != 0 {
		return toErrno(frame.Errno)
	}
	op.Handle = fuseops.HandleID(frame.Reply.(opendirReply).Fd)
	return nil
}

func (b *Bridge) ReadDir(op *fuseops.ReadDirOp) error {
	ctx := op.Context()
	creds := b.creds(ctx, op.Header.Uid, op.Header.Gid, op.Header.Pid)
	frame := b.callSync(ctx, creds, xlator.FopReadDir, readdirArgs{
		Fd: uint64(op.Handle), Offset: uint64(op.Offset), Size: op.Size,
	})
	if frame.Errno != 0 {
		return toErrno(frame.Errno)
	}
	op.Data = frame.Reply.(readdirReply).Data
	return nil
}

func (b *Bridge) ReleaseDirHandle(op *fuseops.ReleaseDirHandleOp) error {
	ctx := op.Context()
	creds := b.creds(ctx, 0, 0, 0)
	frame := b.callSync(ctx, creds, xlator.FopReleaseDir, releasedirArgs{Fd: uint64(op.Handle)})
	return toErrno(frame.Errno)
}

func (b *Bridge) OpenFile(op *fuseops.OpenFileOp) error {
	ctx := op.Context()
	creds := b.creds(ctx, op.Header.Uid, op.Header.Gid, op.Header.Pid)
	gfid, err := b.gfidFor(op.Inode)
	if err != nil {
		return err
	}
	frame := b.callSync(ctx, creds, xlator.FopOpen, openArgs{Gfid: gfid, Flags: uint32(op.Flags)})
	if frame.Errno != 0 {
		return toErrno(frame.Errno)
	}
	op.Handle = fuseops.HandleID(frame.Reply.(openReply).Fd)
	return nil
}

func (b *Bridge) ReadFile(op *fuseops.ReadFileOp) error {
	ctx := op.Context()
	creds := b.creds(ctx, op.Header.Uid, op.Header.Gid, op.Header.Pid)
	frame := b.callSync(ctx, creds, xlator.FopRead, readArgs{
		Fd: uint64(op.Handle), Offset: op.Offset, Size: op.Size,
	})
	if frame.Errno != 0 {
		if frame.Errno == xlator.ECANCELED {
			// A cache hazard: the kernel sees this as a transient read
			// failure and will retry, not treat it as file corruption.
			return syscall.EINTR
		}
		return toErrno(frame.Errno)
	}
	op.Data = frame.Reply.(readReply).Data
	return nil
}

func (b *Bridge) WriteFile(op *fuseops.WriteFileOp) error {
	ctx := op.Context()
	creds := b.creds(ctx, op.Header.Uid, op.Header.Gid, op.Header.Pid)
	frame := b.callSync(ctx, creds, xlator.FopWrite, writeArgs{
		Fd: uint64(op.Handle), Offset: op.Offset, Data: op.Data,
	})
	return toErrno(frame.Errno)
}

func (b *Bridge) SyncFile(op *fuseops.SyncFileOp) error {
	ctx := op.Context()
	creds := b.creds(ctx, 0, 0, 0)
	frame := b.callSync(ctx, creds, xlator.FopFsync, fsyncArgs{Fd: uint64(op.Handle)})
	return toErrno(frame.Errno)
}

func (b *Bridge) FlushFile(op *fuseops.FlushFileOp) error {
	ctx := op.Context()
	creds := b.creds(ctx, 0, 0, 0)
	frame := b.callSync(ctx, creds, xlator.FopFlush, flushArgs{Fd: uint64(op.Handle)})
	return toErrno(frame.Errno)
}

func (b *Bridge) ReleaseFileHandle(op *fuseops.ReleaseFileHandleOp) error {
	ctx := op.Context()
	creds := b.creds(ctx, 0, 0, 0)
	frame := b.callSync(ctx, creds, xlator.FopRelease, releaseArgs{Fd: uint64(op.Handle)})
	return toErrno(frame.Errno)
}
