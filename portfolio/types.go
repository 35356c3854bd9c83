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

package portfolio

import (
	"errors"
	"time"

	"github.com/penny-vault/pv-dashboard/dataframe"
)

type AssetClass string

const (
	AssetClassCash   AssetClass = "cash"
	AssetClassStocks AssetClass = "stocks"
	AssetClassBonds  AssetClass = "bonds"
	AssetClassCrypto AssetClass = "crypto"
)

var (
	ErrColumnOrder      = errors.New("aligned matrix columns do not match weight order")
	ErrDegenerateGrowth = errors.New("cumulative growth reaches zero; series cannot be anchored")
)

// Holding is a position in a single asset. Only AssetID and ValueUSD take part in valuation;
// the remaining fields are display metadata.
type Holding struct {
	AssetID    string     `json:"assetId"`
	Name       string     `json:"name"`
	AssetClass AssetClass `json:"assetClass"`
	Ticker     *string    `json:"ticker"`
	ValueUSD   float64    `json:"valueUSD"`
}

// Snapshot is an ordered set of holdings and the portfolio's current total value. The total is
// trusted as given rather than re-summed from the holdings.
type Snapshot struct {
	Holdings      []Holding
	TotalValueUSD float64
}

// WeightMap maps asset identifiers to portfolio weights. Assets holds the identifiers in a
// deterministic order that both the aligned return matrix and the weight vector follow.
type WeightMap struct {
	Assets  []string
	Weights map[string]float64
}

// Len returns the number of weighted assets
func (weights *WeightMap) Len() int {
	return len(weights.Assets)
}

// Vector returns the weights in Assets order
func (weights *WeightMap) Vector() []float64 {
	vec := make([]float64, len(weights.Assets))
	for idx, assetID := range weights.Assets {
		vec[idx] = weights.Weights[assetID]
	}
	return vec
}

// PricePoint is the portfolio value on one calendar day, rounded to cents
type PricePoint struct {
	Date     string  `json:"date"`
	ValueUSD float64 `json:"valueUSD"`
}

// Trajectory is a date ordered series of price points
type Trajectory []PricePoint

// PriceHistory is the valuation of a portfolio over time plus optional benchmark overlays. A
// benchmark key is absent when the return table has no series for it.
type PriceHistory struct {
	Data       Trajectory            `json:"data"`
	Benchmarks map[string]Trajectory `json:"benchmarks"`
}

// ReturnSource is the read interface the engine needs from the return table
type ReturnSource interface {
	Returns() *dataframe.DataFrame
	HasReturns(assetID string) bool
	BenchmarkReturns(name string) (*dataframe.DataFrame, bool)
}

// Series is a value per date, e.g. an unrounded trajectory
type Series struct {
	Dates  []time.Time
	Values []float64
}

// Len returns the number of observations in the series
func (s *Series) Len() int {
	return len(s.Values)
}
