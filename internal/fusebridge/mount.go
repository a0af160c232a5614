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
	"context"
	"fmt"

	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseutil"
)

// MountOptions configures the kernel mount itself, independent of the
// translator graph below the bridge.
type MountOptions struct {
	MountPoint string
	VolumeName string
	ReadOnly   bool
	Options    map[string]string
}

// Mount mounts b at opts.MountPoint and starts its reverse-invalidation
// drain goroutine. The returned MountedFileSystem's Join method blocks
// until the kernel tears the mount down (via fusermount -u or a crash).
func Mount(ctx context.Context, b *Bridge, opts MountOptions) (*fuse.MountedFileSystem, error) {
	server := fuseutil.NewFileSystemServer(b)
	notifier := fuse.NewNotifier()

	cfg := &fuse.MountConfig{
		FSName:     "glusterfs",
		Subtype:    "glusterfs",
		VolumeName: opts.VolumeName,
		ReadOnly:   opts.ReadOnly,
		Options:    opts.Options,
		Notifier:   notifier,
		// LOOKUP/GETATTR only ever take the inode table's own mutex for
		// the duration of a map read, so letting the kernel issue them
		// concurrently with an in-flight directory op is safe and, for a
		// busy mount, considerably faster.
		EnableParallelDirOps: true,
	}

	mfs, err := fuse.Mount(opts.MountPoint, server, cfg)
	if err != nil {
		return nil, fmt.Errorf("mount %s: %w", opts.MountPoint, err)
	}

	b.RunInvalidator(ctx, notifier)
	return mfs, nil
}
