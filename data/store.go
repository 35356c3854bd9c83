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

package data

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Loader produces a complete ReturnTable from persistent storage
type Loader interface {
	Load(ctx context.Context) (*ReturnTable, error)
}

// TableStore holds the process wide ReturnTable. Reload builds a new table and swaps it in so
// readers always see a complete table.
type TableStore struct {
	loader Loader
	table  *ReturnTable
	lock   sync.RWMutex
}

// NewTableStore creates a store backed by loader. The table is not loaded until Reload is called.
func NewTableStore(loader Loader) *TableStore {
	return &TableStore{
		loader: loader,
	}
}

// NewTableStoreWithTable creates a store pre-populated with table
func NewTableStoreWithTable(table *ReturnTable) *TableStore {
	return &TableStore{
		table: table,
	}
}

// NewLoaderFromConfig selects a loader based on `data.source`
func NewLoaderFromConfig() (Loader, error) {
	source := viper.GetString("data.source")
	switch source {
	case "", "csv":
		return NewCSVLoader(ReturnsFilePath()), nil
	case "database":
		return NewDBLoader(), nil
	default:
		log.Error().Str("Source", source).Msg("unknown data source")
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, source)
	}
}

// ReturnsFilePath resolves `data.returns_file` relative to `data.dir`
func ReturnsFilePath() string {
	return resolvePath(viper.GetString("data.returns_file"))
}

// CatalogFilePath resolves `data.catalog_file` relative to `data.dir`
func CatalogFilePath() string {
	return resolvePath(viper.GetString("data.catalog_file"))
}

func resolvePath(fn string) string {
	if filepath.IsAbs(fn) {
		return fn
	}
	return filepath.Join(viper.GetString("data.dir"), fn)
}

// Table returns the current table, or nil if nothing has been loaded
func (store *TableStore) Table() *ReturnTable {
	store.lock.RLock()
	defer store.lock.RUnlock()
	return store.table
}

// Reload loads a fresh table and swaps it in. On error the previous table is kept.
func (store *TableStore) Reload(ctx context.Context) error {
	if store.loader == nil {
		return nil
	}

	table, err := store.loader.Load(ctx)
	if err != nil {
		log.Error().Err(err).Msg("could not reload return table; keeping previous version")
		return err
	}

	store.lock.Lock()
	previous := store.table
	store.table = table
	store.lock.Unlock()

	if previous == nil || previous.Version() != table.Version() {
		log.Info().Str("Version", table.Version()).Int("NumRows", table.Len()).Time("End", table.End()).Msg("return table loaded")
	}

	return nil
}
