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

package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecordFopDoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordFop(context.Background(), "fusebridge", "lookup", 0.001, "", false)
		RecordFop(context.Background(), "clientxl", "write", 0.002, "transient", true)
	})
}

func TestSetForCachesAttributeSetPerKey(t *testing.T) {
	a := setFor("jbr", "lock")
	b := setFor("jbr", "lock")
	assert.Equal(t, a, b)
}
