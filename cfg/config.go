// Copyright 2024 Google Inc. All Rights Reserved.
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

package cfg

import (
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the fully parsed, validated mount configuration: one
// translator-shaped section per translator whose behavior spec.md leaves
// configurable, plus the ambient debug/logging sections every mount
// carries regardless of which translators are spliced into its graph.
// Unlike the volfile grammar it stands in for (out of scope per spec.md
// §1), Config is flat and typed: one bound flag or config-file key per
// field, no nested dict_t.
type Config struct {
	MountPoint ResolvedPath `yaml:"mount-point"`
	VolumeName string       `yaml:"volume-name"`

	Debug   DebugConfig   `yaml:"debug"`
	Logging LoggingConfig `yaml:"logging"`

	ReadAhead   ReadAheadConfig   `yaml:"read-ahead"`
	FsCache     FsCacheConfig     `yaml:"fs-cache"`
	Compression CompressionConfig `yaml:"compression"`
	Client      ClientConfig      `yaml:"client"`
	Jbr         JbrConfig         `yaml:"jbr"`
	MountBroker MountBrokerConfig `yaml:"mount-broker"`
}

type DebugConfig struct {
	ExitOnInvariantViolation bool `yaml:"exit-on-invariant-violation"`
	LogMutex                 bool `yaml:"log-mutex"`
}

// LoggingConfig mirrors internal/logger's backend: one severity threshold
// and the lumberjack rotation policy for its file sink.
type LoggingConfig struct {
	Severity  LogSeverity            `yaml:"severity"`
	LogFile   ResolvedPath           `yaml:"log-file"`
	Format    string                 `yaml:"format"`
	LogRotate LogRotateLoggingConfig `yaml:"log-rotate"`
}

type LogRotateLoggingConfig struct {
	MaxFileSizeMb   int  `yaml:"max-file-size-mb"`
	BackupFileCount int  `yaml:"backup-file-count"`
	Compress        bool `yaml:"compress"`
}

// ReadAheadConfig binds internal/readahead's option spec: page-count and
// force-atime-update.
type ReadAheadConfig struct {
	PageCount        int  `yaml:"page-count"`
	ForceAtimeUpdate bool `yaml:"force-atime-update"`
}

// FsCacheConfig binds internal/fscache's option spec: cache-reserve-percent
// and path-filter.
type FsCacheConfig struct {
	CacheDir            ResolvedPath `yaml:"cache-dir"`
	CacheReservePercent int          `yaml:"cache-reserve-percent"`
	PathFilter          string       `yaml:"path-filter"`
}

// CompressionConfig binds internal/compress's option spec: algorithm,
// level and min-size.
type CompressionConfig struct {
	Algorithm string `yaml:"algorithm"`
	Level     int    `yaml:"level"`
	MinSizeMb int    `yaml:"min-size-mb"`
}

// ClientConfig binds internal/clientxl's option spec: ping-timeout and
// strict-locks, plus the server address clientxl.Remote dials.
type ClientConfig struct {
	ServerAddr   string        `yaml:"server-addr"`
	PingTimeout  time.Duration `yaml:"ping-timeout"`
	StrictLocks  bool          `yaml:"strict-locks"`
}

// JbrConfig binds internal/jbr's option spec: config-leader, quorum-pct
// and replica-count, plus the peer addresses the server-side translator
// fans lock operations out to.
type JbrConfig struct {
	ConfigLeader bool     `yaml:"config-leader"`
	QuorumPct    float64  `yaml:"quorum-pct"`
	ReplicaCount int      `yaml:"replica-count"`
	PeerAddrs    []string `yaml:"peer-addrs"`
}

// MountBrokerConfig binds internal/mountbroker's root directory option.
type MountBrokerConfig struct {
	Root ResolvedPath `yaml:"root"`
}

// BindFlags registers every config key as a pflag and binds it into
// viper, so a value can come from the command line, a config file, or an
// environment variable with equal precedence rules.
func BindFlags(flagSet *pflag.FlagSet) error {
	var err error

	flagSet.StringP("mount-point", "", "", "Directory to mount the volume at.")
	if err = viper.BindPFlag("mount-point", flagSet.Lookup("mount-point")); err != nil {
		return err
	}

	flagSet.StringP("volume-name", "", "glusterfs", "Volume name reported to the kernel.")
	if err = viper.BindPFlag("volume-name", flagSet.Lookup("volume-name")); err != nil {
		return err
	}

	flagSet.BoolP("debug_invariants", "", false, "Exit when internal invariants are violated.")
	if err = viper.BindPFlag("debug.exit-on-invariant-violation", flagSet.Lookup("debug_invariants")); err != nil {
		return err
	}

	flagSet.BoolP("debug_mutex", "", false, "Print debug messages when a mutex is held too long.")
	if err = viper.BindPFlag("debug.log-mutex", flagSet.Lookup("debug_mutex")); err != nil {
		return err
	}

	flagSet.StringP("log-severity", "", string(InfoLogSeverity), "Logging severity: TRACE, DEBUG, INFO, WARNING, ERROR, OFF.")
	if err = viper.BindPFlag("logging.severity", flagSet.Lookup("log-severity")); err != nil {
		return err
	}

	flagSet.StringP("log-file", "", "", "Path to the log file. Empty means log to stderr.")
	if err = viper.BindPFlag("logging.log-file", flagSet.Lookup("log-file")); err != nil {
		return err
	}

	flagSet.StringP("log-format", "", "text", "Log line format: text or json.")
	if err = viper.BindPFlag("logging.format", flagSet.Lookup("log-format")); err != nil {
		return err
	}

	flagSet.IntP("log-rotate-max-file-size-mb", "", DefaultLogRotateMaxFileSizeMB, "Max size in MiB a log file can grow before it's rotated.")
	if err = viper.BindPFlag("logging.log-rotate.max-file-size-mb", flagSet.Lookup("log-rotate-max-file-size-mb")); err != nil {
		return err
	}

	flagSet.IntP("log-rotate-backup-file-count", "", DefaultLogRotateBackupCount, "Number of rotated log files to retain; 0 retains all.")
	if err = viper.BindPFlag("logging.log-rotate.backup-file-count", flagSet.Lookup("log-rotate-backup-file-count")); err != nil {
		return err
	}

	flagSet.BoolP("log-rotate-compress", "", true, "Gzip-compress rotated log files.")
	if err = viper.BindPFlag("logging.log-rotate.compress", flagSet.Lookup("log-rotate-compress")); err != nil {
		return err
	}

	flagSet.IntP("read-ahead-page-count", "", DefaultReadAheadPageCount, "Max number of pages read-ahead will prefetch per sequential-access run.")
	if err = viper.BindPFlag("read-ahead.page-count", flagSet.Lookup("read-ahead-page-count")); err != nil {
		return err
	}

	flagSet.BoolP("read-ahead-force-atime-update", "", false, "Update atime on a read-ahead-served read even if the mount would otherwise skip it.")
	if err = viper.BindPFlag("read-ahead.force-atime-update", flagSet.Lookup("read-ahead-force-atime-update")); err != nil {
		return err
	}

	flagSet.StringP("fs-cache-dir", "", "", "Backing directory for the fs-cache translator's cached extents.")
	if err = viper.BindPFlag("fs-cache.cache-dir", flagSet.Lookup("fs-cache-dir")); err != nil {
		return err
	}

	flagSet.IntP("fs-cache-reserve-percent", "", DefaultFsCacheReservePercent, "Free-space percentage below which the cache directory is marked full.")
	if err = viper.BindPFlag("fs-cache.cache-reserve-percent", flagSet.Lookup("fs-cache-reserve-percent")); err != nil {
		return err
	}

	flagSet.StringP("fs-cache-path-filter", "", "", "Glob restricting which paths fs-cache will cache; empty caches everything.")
	if err = viper.BindPFlag("fs-cache.path-filter", flagSet.Lookup("fs-cache-path-filter")); err != nil {
		return err
	}

	flagSet.StringP("compression-algorithm", "", DefaultCompressionAlgorithm, "Compression codec: deflate or zstd. Empty disables compression.")
	if err = viper.BindPFlag("compression.algorithm", flagSet.Lookup("compression-algorithm")); err != nil {
		return err
	}

	flagSet.IntP("compression-level", "", DefaultCompressionLevel, "Deflate compression level: -1, 0, 1 or 9. Validated only; the mounted compress translator always uses the default level.")
	if err = viper.BindPFlag("compression.level", flagSet.Lookup("compression-level")); err != nil {
		return err
	}

	flagSet.IntP("compression-min-size-mb", "", DefaultCompressionMinSizeBytes, "Minimum payload size in MiB for compression. Validated only; the mounted compress translator compresses payloads of every size.")
	if err = viper.BindPFlag("compression.min-size-mb", flagSet.Lookup("compression-min-size-mb")); err != nil {
		return err
	}

	flagSet.StringP("server-addr", "", "", "Address of the brick server this client connects to.")
	if err = viper.BindPFlag("client.server-addr", flagSet.Lookup("server-addr")); err != nil {
		return err
	}

	flagSet.DurationP("ping-timeout", "", DefaultClientPingTimeoutSecs*time.Second, "Idle-connection ping interval; two missed replies declare the connection broken.")
	if err = viper.BindPFlag("client.ping-timeout", flagSet.Lookup("ping-timeout")); err != nil {
		return err
	}

	flagSet.BoolP("strict-locks", "", DefaultClientStrictLocks, "After a reconnect, fail reads/writes on an fd that held a posix lock at disconnect or whose reopen failed, instead of serving them anyway.")
	if err = viper.BindPFlag("client.strict-locks", flagSet.Lookup("strict-locks")); err != nil {
		return err
	}

	flagSet.BoolP("jbr-config-leader", "", false, "This replica is the statically configured JBR leader.")
	if err = viper.BindPFlag("jbr.config-leader", flagSet.Lookup("jbr-config-leader")); err != nil {
		return err
	}

	flagSet.Float64P("jbr-quorum-pct", "", DefaultJbrQuorumPct, "Percentage of peer replicas (excluding self) that must ack a lock operation for quorum.")
	if err = viper.BindPFlag("jbr.quorum-pct", flagSet.Lookup("jbr-quorum-pct")); err != nil {
		return err
	}

	flagSet.IntP("jbr-replica-count", "", DefaultJbrReplicaCount, "Total number of replicas in this JBR set, including this one.")
	if err = viper.BindPFlag("jbr.replica-count", flagSet.Lookup("jbr-replica-count")); err != nil {
		return err
	}

	flagSet.StringSliceP("jbr-peer-addrs", "", nil, "Addresses of the other JBR replicas this one fans lock operations out to.")
	if err = viper.BindPFlag("jbr.peer-addrs", flagSet.Lookup("jbr-peer-addrs")); err != nil {
		return err
	}

	flagSet.StringP("mount-broker-root", "", "", "Root directory of the mount-broker's hive/user/cookie tree.")
	if err = viper.BindPFlag("mount-broker.root", flagSet.Lookup("mount-broker-root")); err != nil {
		return err
	}

	return nil
}
