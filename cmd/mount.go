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
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"os/user"
	"strconv"
	"syscall"

	"github.com/gluster-go/glusterfsd/cfg"
	"github.com/gluster-go/glusterfsd/internal/brickd"
	"github.com/gluster-go/glusterfsd/internal/clientxl"
	"github.com/gluster-go/glusterfsd/internal/compress"
	"github.com/gluster-go/glusterfsd/internal/fusebridge"
	"github.com/gluster-go/glusterfsd/internal/inode"
	"github.com/gluster-go/glusterfsd/internal/logger"
	"github.com/gluster-go/glusterfsd/internal/readahead"
	"github.com/gluster-go/glusterfsd/internal/stack"
	"github.com/gluster-go/glusterfsd/internal/xlator"
	"github.com/jacobsa/fuse"
)

func severityToLevel(s cfg.LogSeverity) slog.Level {
	switch s {
	case cfg.TraceLogSeverity, cfg.DebugLogSeverity:
		return slog.LevelDebug
	case cfg.WarningLogSeverity:
		return slog.LevelWarn
	case cfg.ErrorLogSeverity, cfg.OffLogSeverity:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func loggerConfig(c *cfg.Config) logger.Config {
	return logger.Config{
		Path:       string(c.Logging.LogFile),
		MaxSizeMB:  c.Logging.LogRotate.MaxFileSizeMb,
		MaxBackups: c.Logging.LogRotate.BackupFileCount,
		Compress:   c.Logging.LogRotate.Compress,
		Level:      severityToLevel(c.Logging.Severity),
		BufferSize: 256,
	}
}

// resolveGroups looks up a uid's supplementary group ids via the OS user
// database, the gid cache's fallback path for mounts that don't bypass
// group resolution. There is no ecosystem library in this repo's stack
// for OS group lookups; os/user is the standard mechanism for it.
func resolveGroups(uid uint32) ([]uint32, error) {
	u, err := user.LookupId(strconv.FormatUint(uint64(uid), 10))
	if err != nil {
		return nil, err
	}
	ids, err := u.GroupIds()
	if err != nil {
		return nil, err
	}
	gids := make([]uint32, 0, len(ids))
	for _, s := range ids {
		n, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			continue
		}
		gids = append(gids, uint32(n))
	}
	return gids, nil
}

// buildClientGraph assembles the client-side translator stack below the
// FUSE bridge: clientxl talking to the brick server, wrapped by
// read-ahead, wrapped by compression when enabled. Order matches
// spec.md's "FUSE bridge -> read-ahead -> ... -> client RPC" layering.
func buildClientGraph(ctx context.Context, c *cfg.Config, log *slog.Logger) (xlator.Translator, error) {
	if c.Client.ServerAddr == "" {
		return nil, fmt.Errorf("client.server-addr is required to mount a volume")
	}
	conn, err := brickd.Dial(ctx, c.Client.ServerAddr)
	if err != nil {
		return nil, fmt.Errorf("dialing brick server %s: %w", c.Client.ServerAddr, err)
	}

	ping := clientxl.PingConfig{Interval: c.Client.PingTimeout, Log: log}
	client := clientxl.New("client", conn, c.Client.StrictLocks, ping, log)

	var graph xlator.Translator = client
	graph = readahead.New("read-ahead", graph, fopReadFetcher(client))

	if cfg.IsCompressionEnabled(c) {
		ct := compress.New("compress", graph, true)
		if c.Compression.Algorithm == "zstd" {
			ct.SetAlgorithm(compress.Zstd)
		}
		graph = ct
	}

	return graph, nil
}

// fopReadFetcher adapts a translator's FopRead entry to readahead.Fetcher's
// direct-call shape: winding a one-off frame down to target and waiting for
// its reply, the same round-trip fusebridge itself drives for every fop.
func fopReadFetcher(target xlator.Translator) readahead.Fetcher {
	return func(ctx context.Context, fd uintptr, offset int64, size int) ([]byte, error) {
		root := stack.NewRootFrame(ctx, target, stack.Creds{})
		done := make(chan *stack.Frame, 1)
		stack.Wind(root, func(child *stack.Frame) { done <- child }, target, xlator.FopRead, clientxl.ReadArgs{
			Fd:     uint64(fd),
			Offset: offset,
			Size:   size,
		})
		child := <-done
		if child.Errno != 0 {
			return nil, child.Errno
		}
		return child.Reply.(clientxl.ReadReply).Data, nil
	}
}

func runMount(ctx context.Context, c *cfg.Config) error {
	log := logger.For("fusebridge", loggerConfig(c))

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	graph, err := buildClientGraph(ctx, c, log)
	if err != nil {
		return err
	}

	bridge := fusebridge.New("fuse-bridge", fusebridge.Config{
		Root:       graph,
		Inodes:     inode.NewTable(),
		GidTTL:     0,
		Groups:     resolveGroups,
		BypassGids: false,
		Log:        log,
	})

	mfs, err := fusebridge.Mount(ctx, bridge, fusebridge.MountOptions{
		MountPoint: string(c.MountPoint),
		VolumeName: c.VolumeName,
	})
	if err != nil {
		return fmt.Errorf("mounting at %s: %w", c.MountPoint, err)
	}

	log.Info("mounted", "mount_point", c.MountPoint, "server", c.Client.ServerAddr)

	go func() {
		<-ctx.Done()
		_ = fuse.Unmount(string(c.MountPoint))
	}()

	return mfs.Join(context.Background())
}
