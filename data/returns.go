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
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/penny-vault/pv-dashboard/common"
	"github.com/penny-vault/pv-dashboard/dataframe"
	"github.com/rs/zerolog/log"
)

// ReturnTable is a read-only, date indexed view of per-asset daily closes and returns. Rows are
// trading days in ascending order with no duplicates. Columns are named `{assetId}_return` and
// `{assetId}_close`; benchmark series are ordinary return columns under conventional names.
type ReturnTable struct {
	df      *dataframe.DataFrame
	version string
}

// NewReturnTable validates df and wraps it in a ReturnTable. Column names are canonicalized,
// rows are sorted by date and ErrDuplicateDate is returned if two rows share a date. df must not
// be modified by the caller afterwards.
func NewReturnTable(df *dataframe.DataFrame) (*ReturnTable, error) {
	for idx, colName := range df.ColNames {
		df.ColNames[idx] = canonicalColumn(colName)
	}

	if !sort.SliceIsSorted(df.Dates, func(i, j int) bool { return df.Dates[i].Before(df.Dates[j]) }) {
		sortRows(df)
	}

	for idx := 1; idx < len(df.Dates); idx++ {
		if df.Dates[idx].Equal(df.Dates[idx-1]) {
			log.Error().Time("Date", df.Dates[idx]).Msg("return table has duplicate rows")
			return nil, fmt.Errorf("%w: %s", ErrDuplicateDate, df.Dates[idx].Format(common.DateFormat))
		}
	}

	return &ReturnTable{
		df:      df,
		version: hashFrame(df),
	}, nil
}

// sortRows re-orders every column of df to match an ascending date index
func sortRows(df *dataframe.DataFrame) {
	order := make([]int, len(df.Dates))
	for idx := range order {
		order[idx] = idx
	}
	sort.SliceStable(order, func(i, j int) bool { return df.Dates[order[i]].Before(df.Dates[order[j]]) })

	dates := make([]time.Time, len(order))
	for newIdx, oldIdx := range order {
		dates[newIdx] = df.Dates[oldIdx]
	}
	df.Dates = dates

	for colIdx, col := range df.Vals {
		sorted := make([]float64, len(col))
		for newIdx, oldIdx := range order {
			sorted[newIdx] = col[oldIdx]
		}
		df.Vals[colIdx] = sorted
	}
}

func hashFrame(df *dataframe.DataFrame) string {
	buf := make([]byte, 8)
	parts := make([][]byte, 0, 2+len(df.Vals))
	parts = append(parts, []byte(strings.Join(df.ColNames, ",")))

	dates := make([]byte, 0, 8*len(df.Dates))
	for _, dt := range df.Dates {
		binary.LittleEndian.PutUint64(buf, uint64(dt.Unix()))
		dates = append(dates, buf...)
	}
	parts = append(parts, dates)

	for _, col := range df.Vals {
		colBytes := make([]byte, 0, 8*len(col))
		for _, val := range col {
			binary.LittleEndian.PutUint64(buf, math.Float64bits(val))
			colBytes = append(colBytes, buf...)
		}
		parts = append(parts, colBytes)
	}

	return common.Hash(parts...)
}

// Frame returns the underlying dataframe; callers must treat it as read-only
func (table *ReturnTable) Frame() *dataframe.DataFrame {
	return table.df
}

// Version is a content digest that changes whenever the table data changes
func (table *ReturnTable) Version() string {
	return table.version
}

// Len returns the number of trading days in the table
func (table *ReturnTable) Len() int {
	return table.df.Len()
}

// Start returns the first date in the table
func (table *ReturnTable) Start() time.Time {
	return table.df.Start()
}

// End returns the last date in the table
func (table *ReturnTable) End() time.Time {
	return table.df.End()
}

// Returns returns all `*_return` columns
func (table *ReturnTable) Returns() *dataframe.DataFrame {
	returns, _ := table.df.Split(func(colName string) bool {
		return strings.HasSuffix(colName, ReturnSuffix)
	})
	return returns
}

// Closes returns all `*_close` columns
func (table *ReturnTable) Closes() *dataframe.DataFrame {
	closes, _ := table.df.Split(func(colName string) bool {
		return strings.HasSuffix(colName, CloseSuffix)
	})
	return closes
}

// BenchmarkReturns returns a single column dataframe holding the named benchmark's daily
// returns. ok is false when the benchmark is unknown or not present in the table.
func (table *ReturnTable) BenchmarkReturns(name string) (series *dataframe.DataFrame, ok bool) {
	for _, colName := range benchmarkColumns[name] {
		if table.df.ColIndex(colName) == -1 {
			continue
		}

		sel, err := table.df.Select(colName)
		if err != nil {
			return nil, false
		}
		return sel, true
	}

	return nil, false
}

// HasReturns reports whether the table carries a return series for assetID
func (table *ReturnTable) HasReturns(assetID string) bool {
	return table.df.ColIndex(ReturnColumn(assetID)) != -1
}

// AssetIDs lists every asset with a close or return column, sorted
func (table *ReturnTable) AssetIDs() []string {
	seen := make(map[string]bool)
	ids := make([]string, 0, len(table.df.ColNames)/2)
	for _, colName := range table.df.ColNames {
		assetID, ok := assetIDFromColumn(colName)
		if !ok || seen[assetID] {
			continue
		}
		seen[assetID] = true
		ids = append(ids, assetID)
	}

	sort.Strings(ids)
	return ids
}

// AssetData returns the close and return columns of a single asset. An *AssetNotFoundError is
// returned if the table has neither column.
func (table *ReturnTable) AssetData(assetID string) (*dataframe.DataFrame, error) {
	cols := make([]string, 0, 2)
	for _, colName := range []string{CloseColumn(assetID), ReturnColumn(assetID)} {
		if table.df.ColIndex(colName) != -1 {
			cols = append(cols, colName)
		}
	}

	if len(cols) == 0 {
		log.Warn().Str("AssetID", assetID).Msg("asset not found in return table")
		return nil, &AssetNotFoundError{
			ID:        assetID,
			Available: table.AssetIDs(),
		}
	}

	return table.df.Select(cols...)
}
