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
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

const (
	tradingDaysPerYear = 252
)

// DrawDown is a fall from a previous peak
type DrawDown struct {
	Begin       time.Time
	End         time.Time
	LossPercent float64
}

// Summary holds headline statistics of a value series
type Summary struct {
	Begin       time.Time
	End         time.Time
	StartValue  float64
	EndValue    float64
	TotalReturn float64
	Volatility  float64
	MaxDrawDown *DrawDown
}

// Summarize computes headline statistics. Volatility is the annualized standard deviation of
// daily changes and is NaN when there are fewer than 3 observations.
func Summarize(series *Series) *Summary {
	summary := &Summary{
		TotalReturn: math.NaN(),
		Volatility:  math.NaN(),
	}

	n := series.Len()
	if n == 0 {
		return summary
	}

	summary.Begin = series.Dates[0]
	summary.End = series.Dates[n-1]
	summary.StartValue = series.Values[0]
	summary.EndValue = series.Values[n-1]

	if summary.StartValue != 0 {
		summary.TotalReturn = summary.EndValue/summary.StartValue - 1
	}

	if n > 2 {
		changes := make([]float64, 0, n-1)
		for idx := 1; idx < n; idx++ {
			if series.Values[idx-1] == 0 {
				continue
			}
			changes = append(changes, series.Values[idx]/series.Values[idx-1]-1)
		}
		summary.Volatility = stat.StdDev(changes, nil) * math.Sqrt(tradingDaysPerYear)
	}

	summary.MaxDrawDown = MaxDrawDown(series)
	return summary
}

// MaxDrawDown returns the largest peak-to-trough loss in series, or nil if the series never
// falls below a previous peak
func MaxDrawDown(series *Series) *DrawDown {
	var (
		worst   *DrawDown
		peak    = math.Inf(-1)
		peakIdx int
	)

	for idx, val := range series.Values {
		if val > peak {
			peak = val
			peakIdx = idx
			continue
		}

		if peak <= 0 {
			continue
		}

		loss := val/peak - 1
		if loss < 0 && (worst == nil || loss < worst.LossPercent) {
			worst = &DrawDown{
				Begin:       series.Dates[peakIdx],
				End:         series.Dates[idx],
				LossPercent: loss,
			}
		}
	}

	return worst
}
