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

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gluster-go/glusterfsd/cfg"
)

var (
	cfgFile       string
	bindErr       error
	configFileErr error
	unmarshalErr  error
	MountConfig   cfg.Config
)

var rootCmd = &cobra.Command{
	Use:   "glusterfsd [flags] mount_point",
	Short: "Mount a GlusterFS volume, or serve one as a brick daemon",
	Long: `glusterfsd assembles the translator graph described by spec.md: a
FUSE bridge over a client RPC translator by default (mount a volume), or
a brick RPC server over local storage with the serve subcommand.`,
	Args: cobra.ExactArgs(1),
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
		var err error
		MountConfig.MountPoint, err = resolveMountPoint(args[0])
		if err != nil {
			return err
		}
		return runMount(cmd.Context(), &MountConfig)
	},
}

func resolveMountPoint(arg string) (cfg.ResolvedPath, error) {
	var p cfg.ResolvedPath
	if err := p.UnmarshalText([]byte(arg)); err != nil {
		return "", fmt.Errorf("resolving mount point: %w", err)
	}
	return p, nil
}

// Execute runs the root command, the sole entry point cmd/glusterfsd's
// main calls into.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config-file", "", "Path to the config file")
	bindErr = cfg.BindFlags(rootCmd.PersistentFlags())
}

func initConfig() {
	if cfgFile == "" {
		unmarshalErr = viper.Unmarshal(&MountConfig, viper.DecodeHook(cfg.DecodeHook()))
		return
	}
	var resolved cfg.ResolvedPath
	if err := resolved.UnmarshalText([]byte(cfgFile)); err != nil {
		configFileErr = fmt.Errorf("error while resolving config file path: %w", err)
		return
	}
	viper.SetConfigFile(string(resolved))
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		configFileErr = fmt.Errorf("error while reading config file: %w", err)
		return
	}
	unmarshalErr = viper.Unmarshal(&MountConfig, viper.DecodeHook(cfg.DecodeHook()))
}
