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

package logger

import (
	"log/slog"
	"os"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config describes where and how the log file rotates, bound from cfg.Config.
type Config struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
	BufferSize int
	Level      slog.Level
}

var (
	mu       sync.Mutex
	registry = map[string]*slog.Logger{}
	closers  []func() error
)

// For translates each translator's name into a slog.Logger attached to a
// shared rotating file, creating it on first use. Every translator
// instance logs through its own named logger so statedump/log grep can
// filter by translator.
func For(name string, cfg Config) *slog.Logger {
	mu.Lock()
	defer mu.Unlock()

	if l, ok := registry[name]; ok {
		return l
	}

	var w = os.Stderr
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: cfg.Level})
	if cfg.Path != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.Path,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		bufSize := cfg.BufferSize
		if bufSize <= 0 {
			bufSize = 4096
		}
		async := NewAsyncLogger(lj, bufSize)
		closers = append(closers, async.Close)
		handler = slog.NewJSONHandler(async, &slog.HandlerOptions{Level: cfg.Level})
	}

	l := slog.New(handler).With("translator", name)
	registry[name] = l
	return l
}

// CloseAll flushes and closes every async logger created through For and
// empties the registry. No code in this repository calls it.
func CloseAll() error {
	mu.Lock()
	defer mu.Unlock()
	var firstErr error
	for _, c := range closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	closers = nil
	registry = map[string]*slog.Logger{}
	return firstErr
}
