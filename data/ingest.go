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
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/penny-vault/pv-dashboard/dataframe"
	"github.com/rs/zerolog/log"
)

const (
	SP500AssetID = "GSPC"
)

var (
	ErrInvalidPeriod = errors.New("invalid period")
)

// tickerMap holds provider symbols for assets whose catalog ticker is not directly usable
var tickerMap = map[string]string{
	"BRK.B": "BRK-B",
}

// IngestAsset is an instrument to fetch. Assets without a ticker (e.g. cash) are skipped.
type IngestAsset struct {
	AssetID string
	Ticker  string
	Crypto  bool
}

// IngestResult summarizes an ingestion run
type IngestResult struct {
	Fetched []string
	Failed  []string
	Frame   *dataframe.DataFrame
}

// Ingestor downloads close prices for a set of assets, derives daily returns and merges them
// into a single return table
type Ingestor struct {
	provider    PriceProvider
	workers     int
	sp500Ticker string
}

type fetchResult struct {
	asset IngestAsset
	df    *dataframe.DataFrame
	err   error
}

// NewIngestor creates an ingestor running at most workers concurrent fetches
func NewIngestor(provider PriceProvider, workers int, sp500Ticker string) *Ingestor {
	if workers < 1 {
		workers = 1
	}
	if sp500Ticker == "" {
		sp500Ticker = "SPY"
	}

	return &Ingestor{
		provider:    provider,
		workers:     workers,
		sp500Ticker: sp500Ticker,
	}
}

// ParsePeriod converts a look-back period such as `1y`, `6mo`, `30d` or `max` into a start date
// relative to now
func ParsePeriod(period string, now time.Time) (time.Time, error) {
	period = strings.ToLower(strings.TrimSpace(period))
	if period == "max" {
		return time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC), nil
	}

	var unit string
	for _, suffix := range []string{"mo", "y", "d"} {
		if strings.HasSuffix(period, suffix) {
			unit = suffix
			break
		}
	}

	if unit == "" {
		return time.Time{}, fmt.Errorf("%w: %s", ErrInvalidPeriod, period)
	}

	n, err := strconv.Atoi(strings.TrimSuffix(period, unit))
	if err != nil || n <= 0 {
		return time.Time{}, fmt.Errorf("%w: %s", ErrInvalidPeriod, period)
	}

	switch unit {
	case "y":
		return now.AddDate(-n, 0, 0), nil
	case "mo":
		return now.AddDate(0, -n, 0), nil
	default:
		return now.AddDate(0, 0, -n), nil
	}
}

// Fetch downloads every asset plus the sp500 benchmark (unless skip contains it) and merges
// them into a single gap-filled dataframe. Assets listed in skip are not fetched. Failed
// downloads are logged and left out of the result.
func (ing *Ingestor) Fetch(ctx context.Context, assets []IngestAsset, begin time.Time, skip map[string]bool) *IngestResult {
	jobs := make([]IngestAsset, 0, len(assets)+1)
	for _, asset := range assets {
		if asset.Ticker == "" || skip[asset.AssetID] {
			continue
		}
		if mapped, ok := tickerMap[asset.Ticker]; ok {
			asset.Ticker = mapped
		}
		jobs = append(jobs, asset)
	}

	if !skip[SP500AssetID] {
		jobs = append(jobs, IngestAsset{AssetID: SP500AssetID, Ticker: ing.sp500Ticker})
	}

	log.Info().Int("NumAssets", len(jobs)).Int("Workers", ing.workers).Time("Begin", begin).Msg("fetching market data")

	result := &IngestResult{
		Fetched: []string{},
		Failed:  []string{},
	}

	frames := make(dataframe.Map)
	for res := range ing.run(ctx, jobs, begin) {
		if res.err != nil {
			log.Warn().Err(res.err).Str("AssetID", res.asset.AssetID).Str("Ticker", res.asset.Ticker).Msg("cannot download asset data")
			result.Failed = append(result.Failed, res.asset.AssetID)
			continue
		}
		frames[res.asset.AssetID] = res.df
		result.Fetched = append(result.Fetched, res.asset.AssetID)
	}

	sort.Strings(result.Fetched)
	sort.Strings(result.Failed)

	if len(frames) > 0 {
		result.Frame = frames.DataFrame()
	}

	return result
}

// run fans jobs out over the worker pool; the returned channel is closed once every job has
// reported
func (ing *Ingestor) run(ctx context.Context, jobs []IngestAsset, begin time.Time) <-chan fetchResult {
	jobCh := make(chan IngestAsset)
	resultCh := make(chan fetchResult)

	wg := sync.WaitGroup{}
	for ii := 0; ii < ing.workers; ii++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for asset := range jobCh {
				df, err := ing.fetchAsset(ctx, asset, begin)
				resultCh <- fetchResult{asset: asset, df: df, err: err}
			}
		}()
	}

	go func() {
		for _, job := range jobs {
			jobCh <- job
		}
		close(jobCh)
		wg.Wait()
		close(resultCh)
	}()

	return resultCh
}

// fetchAsset returns `{id}_close` and `{id}_return` columns. The first row, which has no
// return, is dropped.
func (ing *Ingestor) fetchAsset(ctx context.Context, asset IngestAsset, begin time.Time) (*dataframe.DataFrame, error) {
	closes, err := ing.provider.DailyCloses(ctx, asset.Ticker, asset.Crypto, begin)
	if err != nil {
		return nil, err
	}

	returns := closes.PctChange()

	df := &dataframe.DataFrame{
		Dates:    closes.Dates,
		ColNames: []string{CloseColumn(asset.AssetID), ReturnColumn(asset.AssetID)},
		Vals:     [][]float64{closes.Vals[0], returns.Vals[0]},
	}

	return df.Drop(math.NaN()), nil
}

// FillGaps resolves the holes an outer join leaves behind: closes are carried forward, returns
// on days an asset did not trade are 0, and leading rows that still have no close are dropped
func FillGaps(df *dataframe.DataFrame) *dataframe.DataFrame {
	closeCols := make([]string, 0, len(df.ColNames))
	for _, colName := range df.ColNames {
		if strings.HasSuffix(colName, CloseSuffix) {
			closeCols = append(closeCols, colName)
		}
	}

	filled := df.ForwardFill(closeCols...)
	for colIdx, colName := range filled.ColNames {
		if !strings.HasSuffix(colName, ReturnSuffix) {
			continue
		}
		for rowIdx, val := range filled.Vals[colIdx] {
			if math.IsNaN(val) {
				filled.Vals[colIdx][rowIdx] = 0
			}
		}
	}

	return filled.Drop(math.NaN())
}

// Update fetches market data and atomically replaces the CSV return table at fn. In append mode
// only assets missing from the existing file are fetched and their columns are merged into it.
func (ing *Ingestor) Update(ctx context.Context, assets []IngestAsset, begin time.Time, fn string, appendMode bool) (*IngestResult, error) {
	subLog := log.With().Str("FileName", fn).Bool("Append", appendMode).Logger()

	var existing *dataframe.DataFrame
	skip := make(map[string]bool)
	if appendMode {
		df, err := ReadCSVFile(fn)
		switch {
		case err == nil:
			existing = df
			for _, colName := range df.ColNames {
				if assetID, ok := assetIDFromColumn(colName); ok {
					skip[assetID] = true
				}
			}
			subLog.Info().Int("NumExisting", len(skip)).Msg("appending to existing return table")
		case errors.Is(err, os.ErrNotExist):
			subLog.Info().Msg("no existing return table; fetching everything")
		default:
			return nil, err
		}
	}

	result := ing.Fetch(ctx, assets, begin, skip)
	if result.Frame == nil {
		if existing != nil {
			subLog.Info().Msg("no new assets to fetch; return table is up to date")
			result.Frame = existing
			return result, nil
		}
		subLog.Error().Strs("Failed", result.Failed).Msg("no asset data could be fetched")
		return result, ErrNoData
	}

	merged := dataframe.Map{"": result.Frame}
	if existing != nil {
		// existing columns come first
		merged = dataframe.Map{"0": existing, "1": result.Frame}
	}

	result.Frame = FillGaps(merged.DataFrame())
	if err := WriteCSVFile(fn, result.Frame); err != nil {
		return result, err
	}

	subLog.Info().Strs("Fetched", result.Fetched).Strs("Failed", result.Failed).Msg("return table updated")
	return result, nil
}
