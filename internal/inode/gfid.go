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

// Package inode implements the in-memory identity layer every translator
// shares: the inode table, the dentry table, the fd table, and the 128-bit
// gfid that names a filesystem object independent of any path.
package inode

import "github.com/google/uuid"

// Gfid is the 128-bit identifier of a filesystem object. It is immutable
// once assigned to an Inode.
type Gfid = uuid.UUID

// RootGfid is the fixed identifier of the volume root, the nil UUID.
var RootGfid = uuid.Nil

// NewGfid mints a random gfid for a newly created object.
func NewGfid() Gfid {
	return uuid.New()
}
