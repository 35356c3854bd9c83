// Copyright 2021-2023
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/penny-vault/pv-dashboard/common"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/pv-dashboard/config.toml)")

	// Logging configuration
	bindPersistent("log.level", "PVDASH_LOG_LEVEL", "log-level", "warning", "Logging level")
	bindPersistentBool("log.report_caller", "PVDASH_LOG_REPORT_CALLER", "log-report-caller", false, "Log function name that called log statement")
	bindPersistent("log.output", "PVDASH_LOG_OUTPUT", "log-output", "stdout", "Write logs to specified output one of: file path, `stdout`, or `stderr`")
	bindPersistentBool("log.pretty", "PVDASH_LOG_PRETTY", "log-pretty", true, "Pretty print log messages")

	// Data
	bindPersistent("data.dir", "PVDASH_DATA_DIR", "data-dir", "data", "Directory holding the return table, asset catalog and user profiles")
	bindPersistent("data.source", "PVDASH_DATA_SOURCE", "data-source", "csv", "Where to load the return table from, one of: `csv` or `database`")
	bindPersistent("data.returns_file", "PVDASH_RETURNS_FILE", "returns-file", "assets_close_returns.csv", "Return table CSV (relative to data-dir)")
	bindPersistent("data.catalog_file", "PVDASH_CATALOG_FILE", "catalog-file", "assets.json", "Asset catalog JSON (relative to data-dir)")

	// Database
	bindPersistent("database.url", "DATABASE_URL", "database-url", "", "PostgreSQL connection string")

	// Market data
	bindPersistent("tiingo.token", "TIINGO_TOKEN", "tiingo-token", "", "Tiingo API token")
	bindPersistent("tiingo.url", "TIINGO_URL", "tiingo-url", "https://api.tiingo.com", "Tiingo API base URL")

	// Tracing
	bindPersistent("otlp.endpoint", "OTLP_ENDPOINT", "otlp-endpoint", "", "OpenTelemetry collector endpoint; tracing is disabled when blank")
	bindPersistentBool("otlp.http", "OTLP_HTTP", "otlp-http", false, "Use HTTP(s) rather than gRPC to connect to the collector")
}

var rootCmd = &cobra.Command{
	Use:     "pvdash",
	Version: common.CurrentVersion.String(),
	Short:   "Personal finance dashboard backend",
	Long: `Reconstruct the daily value of a portfolio from its current holdings and historical
asset returns, and compare it against the S&P 500 and bitcoin.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		common.SetupLogging()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func bindPersistent(key, env, flag, value, usage string) {
	if err := viper.BindEnv(key, env); err != nil {
		log.Panic().Err(err).Str("Key", key).Msg("could not bind environment variable")
	}
	rootCmd.PersistentFlags().String(flag, value, usage)
	if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
		log.Panic().Err(err).Str("Key", key).Msg("could not bind flag")
	}
}

func bindPersistentBool(key, env, flag string, value bool, usage string) {
	if err := viper.BindEnv(key, env); err != nil {
		log.Panic().Err(err).Str("Key", key).Msg("could not bind environment variable")
	}
	rootCmd.PersistentFlags().Bool(flag, value, usage)
	if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
		log.Panic().Err(err).Str("Key", key).Msg("could not bind flag")
	}
}

// initConfig reads in config file and ENV variables if set. A missing config file is not an
// error; every setting has a default.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("toml")
		viper.AddConfigPath("/etc/pv-dashboard/")
		viper.AddConfigPath("$HOME/.config/pv-dashboard")
		viper.AddConfigPath(".")
	}

	err := viper.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	switch {
	case err == nil:
		log.Debug().Str("ConfigFile", viper.ConfigFileUsed()).Msg("loaded config file")
	case errors.As(err, &notFound):
		log.Debug().Msg("no config file found; using defaults")
	default:
		log.Fatal().Err(err).Msg("could not read config file")
	}
}
