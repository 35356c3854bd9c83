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
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/penny-vault/pv-dashboard/common"
	"github.com/penny-vault/pv-dashboard/data"
	"github.com/penny-vault/pv-dashboard/portfolio"
)

const (
	DefaultBaseCurrency = "USD"
	FallbackUserID      = "test_user"
	CustomUserID        = "custom"
	CustomName          = "Custom Portfolio"
)

var (
	ErrInvalidHolding  = errors.New("invalid holding")
	ErrProfileNotFound = errors.New("profile not found")
	ErrInvalidUserID   = errors.New("invalid user id")
)

// Asset is an entry of the asset catalog
type Asset struct {
	AssetID    string               `json:"assetId"`
	Name       string               `json:"name"`
	AssetClass portfolio.AssetClass `json:"assetClass"`
	Ticker     *string              `json:"ticker,omitempty"`
}

// Crypto reports whether the asset trades as a cryptocurrency
func (asset *Asset) Crypto() bool {
	return asset.AssetClass == portfolio.AssetClassCrypto
}

type Totals struct {
	TotalValueUSD float64 `json:"totalValueUSD"`
}

// AllocationApprox is the fraction of the portfolio held in each asset class
type AllocationApprox struct {
	Cash   float64 `json:"cash"`
	Stocks float64 `json:"stocks"`
	Bonds  float64 `json:"bonds"`
	Crypto float64 `json:"crypto"`
}

type Portfolio struct {
	Name             string              `json:"name"`
	Notes            string              `json:"notes"`
	Holdings         []portfolio.Holding `json:"holdings"`
	Totals           Totals              `json:"totals"`
	AllocationApprox AllocationApprox    `json:"allocationApprox"`
}

// Date is a calendar day serialized as YYYY-MM-DD
type Date struct {
	time.Time
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", d.Format(common.DateFormat))), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		return nil
	}

	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("date must be a string: %s", s)
	}

	t, err := time.Parse(common.DateFormat, s[1:len(s)-1])
	if err != nil {
		return err
	}

	d.Time = t
	return nil
}

// UserProfile is a user, their net worth and their portfolio. NetWorthUSD is always derived from
// the portfolio's total value.
type UserProfile struct {
	UserID       string    `json:"userId"`
	Name         string    `json:"name"`
	AsOf         Date      `json:"asOf"`
	BaseCurrency string    `json:"baseCurrency"`
	NetWorthUSD  float64   `json:"netWorthUSD"`
	Portfolio    Portfolio `json:"portfolio"`
}

// Snapshot returns the holdings and total that the valuation engine consumes
func (profile *UserProfile) Snapshot() *portfolio.Snapshot {
	return &portfolio.Snapshot{
		Holdings:      profile.Portfolio.Holdings,
		TotalValueUSD: profile.Portfolio.Totals.TotalValueUSD,
	}
}

// CustomHolding is a single position in a custom portfolio request
type CustomHolding struct {
	AssetID  string  `json:"assetId"`
	ValueUSD float64 `json:"valueUSD"`
}

// CustomPortfolioRequest describes an ad hoc portfolio by asset id and value
type CustomPortfolioRequest struct {
	Holdings []CustomHolding `json:"holdings"`
}

// Validate checks that every holding names an asset and has a non-negative value
func (req *CustomPortfolioRequest) Validate() error {
	for idx, holding := range req.Holdings {
		if holding.AssetID == "" {
			return fmt.Errorf("%w: holding %d has no assetId", ErrInvalidHolding, idx)
		}
		if holding.ValueUSD < 0 || math.IsNaN(holding.ValueUSD) {
			return fmt.Errorf("%w: %s has value %f", ErrInvalidHolding, holding.AssetID, holding.ValueUSD)
		}
	}
	return nil
}

// IngestAssets lists the catalog assets that have market data to fetch. Cash and assets without
// a ticker are skipped.
func IngestAssets(assets []*Asset) []data.IngestAsset {
	res := make([]data.IngestAsset, 0, len(assets))
	for _, asset := range assets {
		if asset.AssetClass == portfolio.AssetClassCash || asset.Ticker == nil || *asset.Ticker == "" {
			continue
		}
		res = append(res, data.IngestAsset{
			AssetID: asset.AssetID,
			Ticker:  *asset.Ticker,
			Crypto:  asset.Crypto(),
		})
	}
	return res
}
