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

import "strings"

const (
	ReturnSuffix = "_return"
	CloseSuffix  = "_close"

	DateColumn = "Date"

	BenchmarkSP500   = "sp500"
	BenchmarkBitcoin = "bitcoin"
)

// BenchmarkNames lists the recognized benchmarks in output order
var BenchmarkNames = []string{BenchmarkSP500, BenchmarkBitcoin}

// benchmarkColumns maps a benchmark name to the return columns that may hold it. The first
// column present in the table wins.
var benchmarkColumns = map[string][]string{
	BenchmarkSP500:   {"GSPC_return", "SP500_return"},
	BenchmarkBitcoin: {"BTC_return", "BTC-USD_return"},
}

// ReturnColumn returns the name of the daily return column for assetID
func ReturnColumn(assetID string) string {
	return assetID + ReturnSuffix
}

// CloseColumn returns the name of the close price column for assetID
func CloseColumn(assetID string) string {
	return assetID + CloseSuffix
}

// canonicalColumn normalizes legacy column spellings, e.g. `VTI_Close` becomes `VTI_close`
func canonicalColumn(colName string) string {
	if strings.HasSuffix(colName, "_Close") {
		return strings.TrimSuffix(colName, "_Close") + CloseSuffix
	}
	return colName
}

// assetIDFromColumn splits a column name into its asset identifier; ok is false when the column
// is neither a close nor a return column
func assetIDFromColumn(colName string) (assetID string, ok bool) {
	switch {
	case strings.HasSuffix(colName, ReturnSuffix):
		return strings.TrimSuffix(colName, ReturnSuffix), true
	case strings.HasSuffix(colName, CloseSuffix):
		return strings.TrimSuffix(colName, CloseSuffix), true
	default:
		return "", false
	}
}
