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

package dataframe

import (
	"math"
	"sort"
	"time"
)

type Map map[string]*DataFrame

// Keys returns the map keys in sorted order
func (dfMap Map) Keys() []string {
	keys := make([]string, 0, len(dfMap))
	for k := range dfMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// DataFrame outer joins every dataframe in the map on date. The resulting date index is the
// sorted union of all dates; cells with no source value are NaN. Columns are ordered by map
// key and then by their order within each dataframe.
func (dfMap Map) DataFrame() *DataFrame {
	keys := dfMap.Keys()

	// build the union of all dates
	seen := make(map[int64]time.Time)
	for _, k := range keys {
		for _, dt := range dfMap[k].Dates {
			seen[dt.UnixNano()] = dt
		}
	}

	dates := make([]time.Time, 0, len(seen))
	for _, dt := range seen {
		dates = append(dates, dt)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	df := &DataFrame{
		Dates:    dates,
		ColNames: []string{},
		Vals:     [][]float64{},
	}

	for _, k := range keys {
		reindexed := dfMap[k].Reindex(dates, math.NaN())
		df.ColNames = append(df.ColNames, reindexed.ColNames...)
		df.Vals = append(df.Vals, reindexed.Vals...)
	}

	return df
}
