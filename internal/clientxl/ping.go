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
	"log/slog"
	"time"

	"github.com/jpillora/backoff"
	"golang.org/x/time/rate"
)

// PingConfig controls the idle-connection keepalive and reconnect pacing
// spec.md's ping-timeout paragraph describes.
type PingConfig struct {
	Interval       time.Duration
	MissedAllowed  int
	ReconnectLimit rate.Limit // reconnect attempts per second
	Log            *slog.Logger
}

// pinger sends a liveness probe on an idle connection at Interval,
// declares the connection broken after MissedAllowed consecutive
// failures, and rate-limits how often ReopenAll is allowed to fire so a
// flapping link doesn't spin the reopen walk.
type pinger struct {
	cfg     PingConfig
	limiter *rate.Limiter
	backoff *backoff.Backoff
}

func newPinger(cfg PingConfig) *pinger {
	if cfg.ReconnectLimit == 0 {
		cfg.ReconnectLimit = rate.Every(time.Second)
	}
	if cfg.MissedAllowed == 0 {
		cfg.MissedAllowed = 2
	}
	return &pinger{
		cfg:     cfg,
		limiter: rate.NewLimiter(cfg.ReconnectLimit, 1),
		backoff: &backoff.Backoff{Min: 100 * time.Millisecond, Max: 30 * time.Second, Factor: 2, Jitter: true},
	}
}

// runPinger pings t.remote every cfg.Interval until ctx is cancelled. On
// declaring the connection broken it waits for the rate limiter before
// triggering ReopenAll, and backs off further reconnect attempts that
// themselves fail to restore a working ping.
func (t *Translator) runPinger(ctx context.Context) {
	p := t.pinger
	missed := 0
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := t.remote.Ping(ctx); err != nil {
				missed++
				if missed < p.cfg.MissedAllowed {
					continue
				}
			} else {
				missed = 0
				p.backoff.Reset()
				continue
			}

			if err := p.limiter.Wait(ctx); err != nil {
				return
			}
			if p.cfg.Log != nil {
				p.cfg.Log.Warn("connection declared broken, reopening", "missed", missed)
			}
			t.ReopenAll(ctx)
			missed = 0

			select {
			case <-time.After(p.backoff.Duration()):
			case <-ctx.Done():
				return
			}
		}
	}
}
