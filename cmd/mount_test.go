// Copyright 2024 Google LLC
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

package cmd

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gluster-go/glusterfsd/cfg"
	"github.com/gluster-go/glusterfsd/internal/clientxl"
	"github.com/gluster-go/glusterfsd/internal/stack"
	"github.com/gluster-go/glusterfsd/internal/xlator"
)

func TestSeverityToLevelMapsEveryRank(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, severityToLevel(cfg.TraceLogSeverity))
	assert.Equal(t, slog.LevelDebug, severityToLevel(cfg.DebugLogSeverity))
	assert.Equal(t, slog.LevelInfo, severityToLevel(cfg.InfoLogSeverity))
	assert.Equal(t, slog.LevelWarn, severityToLevel(cfg.WarningLogSeverity))
	assert.Equal(t, slog.LevelError, severityToLevel(cfg.ErrorLogSeverity))
	assert.Equal(t, slog.LevelError, severityToLevel(cfg.OffLogSeverity))
}

func TestBuildClientGraphRequiresServerAddr(t *testing.T) {
	var c cfg.Config
	_, err := buildClientGraph(context.Background(), &c, slog.Default())
	assert.Error(t, err)
}

// fakeReadChild answers every FopRead with size bytes seeded from offset,
// the same fixture shape internal/readahead's own tests use for a Fetcher.
type fakeReadChild struct{}

func (fakeReadChild) Name() string                                  { return "fake" }
func (fakeReadChild) Init() error                                   { return nil }
func (fakeReadChild) Fini() error                                   { return nil }
func (fakeReadChild) Notify(xlator.NotifyEvent, any) error          { return nil }
func (fakeReadChild) Children() []xlator.Translator                 { return nil }
func (fakeReadChild) Options() *xlator.Options                      { return nil }
func (c fakeReadChild) Fop(op xlator.Fop) xlator.FopFunc {
	if op != xlator.FopRead {
		return nil
	}
	return func(frame any, args any) {
		f := frame.(*stack.Frame)
		a := args.(clientxl.ReadArgs)
		buf := make([]byte, a.Size)
		for i := range buf {
			buf[i] = byte(a.Offset + int64(i))
		}
		stack.Unwind(f, 0, clientxl.ReadReply{Data: buf})
	}
}

func TestFopReadFetcherRoundTrips(t *testing.T) {
	fetch := fopReadFetcher(fakeReadChild{})
	data, err := fetch(context.Background(), 1, 10, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{10, 11, 12, 13}, data)
}
