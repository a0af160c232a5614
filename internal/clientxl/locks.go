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

package clientxl

import (
	"context"
	"fmt"
)

// recoverLocks re-issues every lock granted through s before the
// disconnect, against the newly reopened remoteFd. Partial failure
// aborts recovery for this fd rather than leaving some locks silently
// dropped: the caller (reopenOne) decides whether that means poisoning
// the fd, per strict-locks mode.
func (t *Translator) recoverLocks(ctx context.Context, s *fdState, remoteFd int64) error {
	locks := s.snapshotLocks()
	for i, l := range locks {
		if err := t.remote.Lock(ctx, remoteFd, l); err != nil {
			return fmt.Errorf("recover lock %d/%d: %w", i+1, len(locks), err)
		}
	}
	return nil
}
