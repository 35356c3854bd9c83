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
	"fmt"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var configShowSecrets bool

var secretKeys = []string{"tiingo.token", "database.url", "cache.redis_url"}

func init() {
	configCmd.Flags().BoolVar(&configShowSecrets, "show-secrets", false, "print credentials instead of masking them")
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as TOML",
	RunE: func(cmd *cobra.Command, args []string) error {
		settings := viper.AllSettings()
		if !configShowSecrets {
			for _, key := range secretKeys {
				maskSetting(settings, key)
			}
		}

		out, err := toml.Marshal(settings)
		if err != nil {
			return err
		}

		if used := viper.ConfigFileUsed(); used != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "# loaded from %s\n", used)
		}
		fmt.Fprint(cmd.OutOrStdout(), string(out))
		return nil
	},
}

// maskSetting replaces a non-empty dotted key in settings with asterisks
func maskSetting(settings map[string]interface{}, key string) {
	section, name, found := strings.Cut(key, ".")
	if !found {
		return
	}
	sub, ok := settings[section].(map[string]interface{})
	if !ok {
		return
	}
	if val, ok := sub[name].(string); ok && val != "" {
		sub[name] = "********"
	}
}
