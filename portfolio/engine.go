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
	"fmt"

	"github.com/penny-vault/pv-dashboard/data"
)

// Engine values portfolios against a return table. It holds no mutable state, so a single
// engine may serve concurrent requests as long as the source is read-only.
type Engine struct {
	source     ReturnSource
	benchmarks []string
}

// Valuation is the unrounded result of valuing a portfolio
type Valuation struct {
	Portfolio  *Series
	Weights    *WeightMap
	Benchmarks map[string]*Series
}

// NewEngine creates an engine reading from source. When no benchmark names are given the
// sp500 and bitcoin benchmarks are overlaid.
func NewEngine(source ReturnSource, benchmarks ...string) *Engine {
	if len(benchmarks) == 0 {
		benchmarks = data.BenchmarkNames
	}

	return &Engine{
		source:     source,
		benchmarks: benchmarks,
	}
}

// Valuate reconstructs the daily value of the portfolio anchored so its last point equals the
// snapshot's total value, and simulates investing the portfolio's first value into each
// benchmark. A snapshot with no priced holdings or a zero total yields an empty valuation. A
// series whose growth reaches zero (a -100% day) cannot be anchored and fails with
// ErrDegenerateGrowth.
func (engine *Engine) Valuate(snapshot *Snapshot) (*Valuation, error) {
	valuation := &Valuation{
		Portfolio:  &Series{},
		Benchmarks: make(map[string]*Series),
	}

	valuation.Weights = ResolveWeights(snapshot.Holdings, snapshot.TotalValueUSD, engine.source.HasReturns)
	if valuation.Weights.Len() == 0 {
		return valuation, nil
	}

	aligned, err := AlignReturns(engine.source.Returns(), valuation.Weights)
	if err != nil {
		return nil, err
	}

	if aligned.Len() == 0 {
		return valuation, nil
	}

	blended, err := BlendReturns(aligned, valuation.Weights)
	if err != nil {
		return nil, err
	}

	values := AnchorAtEnd(blended, snapshot.TotalValueUSD)
	if !finite(values) {
		return nil, fmt.Errorf("%w: portfolio", ErrDegenerateGrowth)
	}

	valuation.Portfolio = &Series{
		Dates:  aligned.Dates,
		Values: values,
	}

	initial := valuation.Portfolio.Values[0]
	for _, name := range engine.benchmarks {
		series, ok := engine.source.BenchmarkReturns(name)
		if !ok {
			continue
		}

		benchmark := NormalizeBenchmark(aligned.Dates, series, initial)
		if !finite(benchmark) {
			return nil, fmt.Errorf("%w: benchmark %s", ErrDegenerateGrowth, name)
		}

		valuation.Benchmarks[name] = &Series{
			Dates:  aligned.Dates,
			Values: benchmark,
		}
	}

	return valuation, nil
}

// PriceHistory values the snapshot and rounds every point to cents
func (engine *Engine) PriceHistory(snapshot *Snapshot) (*PriceHistory, error) {
	valuation, err := engine.Valuate(snapshot)
	if err != nil {
		return nil, err
	}

	return valuation.PriceHistory(), nil
}

// PriceHistory rounds the valuation into its output form
func (valuation *Valuation) PriceHistory() *PriceHistory {
	history := &PriceHistory{
		Data:       NewTrajectory(valuation.Portfolio.Dates, valuation.Portfolio.Values),
		Benchmarks: make(map[string]Trajectory, len(valuation.Benchmarks)),
	}

	for name, series := range valuation.Benchmarks {
		history.Benchmarks[name] = NewTrajectory(series.Dates, series.Values)
	}

	return history
}
