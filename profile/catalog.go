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

package profile

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

// Catalog is the list of assets a user may hold
type Catalog struct {
	assets []*Asset
	byID   map[string]*Asset
}

// NewCatalog indexes assets by id. When an id repeats, the first entry wins.
func NewCatalog(assets []*Asset) *Catalog {
	catalog := &Catalog{
		assets: assets,
		byID:   make(map[string]*Asset, len(assets)),
	}

	for _, asset := range assets {
		if _, ok := catalog.byID[asset.AssetID]; ok {
			log.Warn().Str("AssetID", asset.AssetID).Msg("duplicate asset in catalog")
			continue
		}
		catalog.byID[asset.AssetID] = asset
	}

	return catalog
}

// LoadCatalog reads a JSON array of assets from fn
func LoadCatalog(fn string) (*Catalog, error) {
	raw, err := os.ReadFile(fn)
	if err != nil {
		log.Error().Err(err).Str("FileName", fn).Msg("could not read asset catalog")
		return nil, err
	}

	assets := make([]*Asset, 0)
	if err := json.Unmarshal(raw, &assets); err != nil {
		log.Error().Err(err).Str("FileName", fn).Msg("could not parse asset catalog")
		return nil, fmt.Errorf("parse %s: %w", fn, err)
	}

	log.Debug().Str("FileName", fn).Int("NumAssets", len(assets)).Msg("loaded asset catalog")
	return NewCatalog(assets), nil
}

// Assets returns every asset in catalog order
func (catalog *Catalog) Assets() []*Asset {
	return catalog.assets
}

// Lookup finds an asset by id
func (catalog *Catalog) Lookup(assetID string) (*Asset, bool) {
	asset, ok := catalog.byID[assetID]
	return asset, ok
}

func (catalog *Catalog) Len() int {
	return len(catalog.assets)
}
