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
	"time"

	"github.com/penny-vault/pv-dashboard/portfolio"
	"github.com/shopspring/decimal"
)

const allocationPlaces = 4

// BuildCustomProfile turns a custom portfolio request into a user profile. Holdings are
// decorated with catalog metadata; assets missing from the catalog keep their id as name and
// have no asset class. The total is the sum of the supplied values.
func BuildCustomProfile(req *CustomPortfolioRequest, catalog *Catalog, asOf time.Time) (*UserProfile, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	holdings := make([]portfolio.Holding, 0, len(req.Holdings))
	total := decimal.Zero
	for _, custom := range req.Holdings {
		holding := portfolio.Holding{
			AssetID:  custom.AssetID,
			Name:     custom.AssetID,
			ValueUSD: custom.ValueUSD,
		}

		if asset, ok := catalog.Lookup(custom.AssetID); ok {
			holding.Name = asset.Name
			holding.AssetClass = asset.AssetClass
			holding.Ticker = asset.Ticker
		}

		holdings = append(holdings, holding)
		total = total.Add(decimal.NewFromFloat(custom.ValueUSD))
	}

	totalValue := total.InexactFloat64()

	return &UserProfile{
		UserID:       CustomUserID,
		Name:         CustomName,
		AsOf:         Date{Time: asOf},
		BaseCurrency: DefaultBaseCurrency,
		NetWorthUSD:  totalValue,
		Portfolio: Portfolio{
			Name:             CustomName,
			Holdings:         holdings,
			Totals:           Totals{TotalValueUSD: totalValue},
			AllocationApprox: Allocation(holdings, total),
		},
	}, nil
}

// Allocation computes the share of total held in each asset class. A zero total allocates
// nothing.
func Allocation(holdings []portfolio.Holding, total decimal.Decimal) AllocationApprox {
	alloc := AllocationApprox{}
	if !total.IsPositive() {
		return alloc
	}

	byClass := make(map[portfolio.AssetClass]decimal.Decimal)
	for _, holding := range holdings {
		byClass[holding.AssetClass] = byClass[holding.AssetClass].Add(decimal.NewFromFloat(holding.ValueUSD))
	}

	share := func(class portfolio.AssetClass) float64 {
		return byClass[class].Div(total).Round(allocationPlaces).InexactFloat64()
	}

	alloc.Cash = share(portfolio.AssetClassCash)
	alloc.Stocks = share(portfolio.AssetClassStocks)
	alloc.Bonds = share(portfolio.AssetClassBonds)
	alloc.Crypto = share(portfolio.AssetClassCrypto)

	return alloc
}
