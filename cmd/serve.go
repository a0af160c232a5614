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
	"fmt"
	"net"

	"github.com/spf13/cobra"

	"github.com/gluster-go/glusterfsd/cfg"
	"github.com/gluster-go/glusterfsd/internal/brickd"
	"github.com/gluster-go/glusterfsd/internal/logger"
	"github.com/gluster-go/glusterfsd/internal/mountbroker"
)

var serveCmd = &cobra.Command{
	Use:   "serve data-dir",
	Short: "Run a brick daemon: serve one local volume's data over brickd's RPC protocol",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if bindErr != nil {
			return bindErr
		}
		if configFileErr != nil {
			return configFileErr
		}
		if unmarshalErr != nil {
			return unmarshalErr
		}
		if err := cfg.Rationalize(&MountConfig); err != nil {
			return fmt.Errorf("rationalizing config: %w", err)
		}
		if err := cfg.ValidateConfig(&MountConfig); err != nil {
			return err
		}
		return runServe(&MountConfig, args[0])
	},
}

// runServe starts a brickd.Server over dataDir, listening on
// c.Client.ServerAddr (the same address a client's --server-addr dials).
// When c.MountBroker.Root is configured, the mountbroker-root ownership
// chain is validated up front so a misconfigured root fails at startup
// rather than on the first grant request.
func runServe(c *cfg.Config, dataDir string) error {
	log := logger.For("brickd", loggerConfig(c))

	if c.MountBroker.Root != "" {
		if _, err := mountbroker.New(string(c.MountBroker.Root)); err != nil {
			return fmt.Errorf("mount-broker root %s: %w", c.MountBroker.Root, err)
		}
		log.Info("mount-broker root validated", "root", c.MountBroker.Root)
	}

	srv, err := brickd.NewServer(dataDir, log)
	if err != nil {
		return fmt.Errorf("opening brick store at %s: %w", dataDir, err)
	}

	addr := c.Client.ServerAddr
	if addr == "" {
		addr = ":24007"
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	defer ln.Close()

	log.Info("serving", "data_dir", dataDir, "addr", addr, "replica_count", c.Jbr.ReplicaCount)
	return srv.Serve(ln)
}
