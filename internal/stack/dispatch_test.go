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

package stack

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDispatcherBoundsConcurrency(t *testing.T) {
	d := NewDispatcher(2)
	var inFlight, maxSeen int32

	done := make(chan struct{}, 6)
	for i := 0; i < 6; i++ {
		d.Go(func() {
			n := atomic.AddInt32(&inFlight, 1)
			for {
				cur := atomic.LoadInt32(&maxSeen)
				if n <= cur || atomic.CompareAndSwapInt32(&maxSeen, cur, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt32(&inFlight, -1)
			done <- struct{}{}
		})
	}
	for i := 0; i < 6; i++ {
		<-done
	}
	assert.LessOrEqual(t, int(maxSeen), 2)
}

func TestBarrierReturnsFirstError(t *testing.T) {
	boom := errors.New("boom")
	err := Barrier(
		func() error { return nil },
		func() error { return boom },
		func() error { return nil },
	)
	assert.ErrorIs(t, err, boom)
}
