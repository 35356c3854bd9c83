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
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/penny-vault/pv-dashboard/data"
	"github.com/penny-vault/pv-dashboard/data/database"
	"github.com/penny-vault/pv-dashboard/profile"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// newTableStore creates a table store using the configured loader and loads the table once
func newTableStore(ctx context.Context) (*data.TableStore, error) {
	if viper.GetString("data.source") == "database" && !database.Connected() {
		if err := database.Connect(ctx); err != nil {
			return nil, err
		}
	}

	loader, err := data.NewLoaderFromConfig()
	if err != nil {
		return nil, err
	}

	store := data.NewTableStore(loader)
	if err := store.Reload(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

func loadCatalog() (*profile.Catalog, error) {
	return profile.LoadCatalog(data.CatalogFilePath())
}

func profileStore() *profile.Store {
	return profile.NewStore(viper.GetString("data.dir"))
}

// parseHoldings parses a comma separated list of ASSET=VALUE pairs
func parseHoldings(raw string) (*profile.CustomPortfolioRequest, error) {
	req := &profile.CustomPortfolioRequest{
		Holdings: []profile.CustomHolding{},
	}

	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			log.Error().Str("Holding", part).Msg("holding must be formatted as ASSET=VALUE")
			return nil, fmt.Errorf("%w: %q must be formatted as ASSET=VALUE", profile.ErrInvalidHolding, part)
		}

		val, err := strconv.ParseFloat(strings.TrimSpace(kv[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %s", profile.ErrInvalidHolding, part, err)
		}

		req.Holdings = append(req.Holdings, profile.CustomHolding{
			AssetID:  strings.TrimSpace(kv[0]),
			ValueUSD: val,
		})
	}

	return req, req.Validate()
}
