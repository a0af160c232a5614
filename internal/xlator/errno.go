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

package xlator

import "golang.org/x/sys/unix"

// The errno values a translator is expected to return are POSIX errno
// numbers, not a bespoke enumeration: this keeps fusebridge's translation
// back to the kernel a direct pass-through instead of a lookup table.
const (
	EPERM     = Errno(unix.EPERM)
	ENOENT    = Errno(unix.ENOENT)
	EIO       = Errno(unix.EIO)
	EAGAIN    = Errno(unix.EAGAIN)
	ENOMEM    = Errno(unix.ENOMEM)
	EACCES    = Errno(unix.EACCES)
	EEXIST    = Errno(unix.EEXIST)
	ENOTDIR   = Errno(unix.ENOTDIR)
	EISDIR    = Errno(unix.EISDIR)
	EINVAL    = Errno(unix.EINVAL)
	ENOSPC    = Errno(unix.ENOSPC)
	EROFS     = Errno(unix.EROFS)
	EBADF     = Errno(unix.EBADF)
	ENOTEMPTY = Errno(unix.ENOTEMPTY)
	ESTALE    = Errno(unix.ESTALE)
	ECANCELED = Errno(unix.ECANCELED)
	ENOTCONN  = Errno(unix.ENOTCONN)
	ETIMEDOUT = Errno(unix.ETIMEDOUT)
	ENOTSUP   = Errno(unix.ENOTSUP)
	ENODATA   = Errno(unix.ENODATA)
)

func errnoText(e Errno) string {
	return unix.Errno(e).Error()
}

// Taxonomy classifies an Errno into one of the six propagation
// categories below, used by callers deciding whether to retry, log,
// or escalate.
type Taxonomy int

const (
	// TaxonomyTransient covers errors worth retrying unwind (ENOTCONN,
	// ETIMEDOUT, EAGAIN): the operation never reached stable state.
	TaxonomyTransient Taxonomy = iota
	// TaxonomySemantic covers ordinary POSIX failures that are a correct
	// reply, not a fault (ENOENT, EEXIST, ENOTDIR, ...).
	TaxonomySemantic
	// TaxonomyReplicationViolation is surfaced as EROFS: a replica lost
	// quorum and must stop accepting writes.
	TaxonomyReplicationViolation
	// TaxonomyConsistencyViolation is surfaced as EBADF: an fd's
	// remote state no longer matches what the server expects of it.
	TaxonomyConsistencyViolation
	// TaxonomyCacheHazard is surfaced as ECANCELED: a cached read raced
	// a concurrent write and must not be trusted.
	TaxonomyCacheHazard
	// TaxonomyFatal means the translator graph cannot continue; callers
	// should abort the process rather than unwind an error reply.
	TaxonomyFatal
)

// Classify maps an Errno to its taxonomy bucket. Unrecognized errnos are
// treated as semantic, the least disruptive default.
func Classify(e Errno) Taxonomy {
	switch e {
	case ENOTCONN, ETIMEDOUT, EAGAIN:
		return TaxonomyTransient
	case EROFS:
		return TaxonomyReplicationViolation
	case EBADF:
		return TaxonomyConsistencyViolation
	case ECANCELED:
		return TaxonomyCacheHazard
	default:
		return TaxonomySemantic
	}
}

func (t Taxonomy) String() string {
	switch t {
	case TaxonomyTransient:
		return "transient"
	case TaxonomySemantic:
		return "semantic"
	case TaxonomyReplicationViolation:
		return "replication-violation"
	case TaxonomyConsistencyViolation:
		return "consistency-violation"
	case TaxonomyCacheHazard:
		return "cache-hazard"
	case TaxonomyFatal:
		return "fatal"
	default:
		return "unknown"
	}
}
