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

package portfolio_test

import (
	"errors"
	"math"
	"sort"
	"time"

	"github.com/goccy/go-json"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/penny-vault/pv-dashboard/data"
	"github.com/penny-vault/pv-dashboard/dataframe"
	"github.com/penny-vault/pv-dashboard/portfolio"
)

func returnTable(dates []time.Time, cols map[string][]float64) *data.ReturnTable {
	df := &dataframe.DataFrame{
		Dates: dates,
	}
	colNames := make([]string, 0, len(cols))
	for colName := range cols {
		colNames = append(colNames, colName)
	}
	sort.Strings(colNames)
	for _, colName := range colNames {
		df.ColNames = append(df.ColNames, colName)
		df.Vals = append(df.Vals, cols[colName])
	}
	table, err := data.NewReturnTable(df)
	Expect(err).To(BeNil())
	return table
}

var _ = Describe("Engine", func() {
	var (
		table  *data.ReturnTable
		engine *portfolio.Engine
	)

	Context("with two assets and an sp500 benchmark", func() {
		BeforeEach(func() {
			table = returnTable([]time.Time{day(2), day(3)}, map[string][]float64{
				"A_return":    {0.0, 0.10},
				"B_return":    {0.0, -0.05},
				"GSPC_return": {0.0, 0.10},
			})
			engine = portfolio.NewEngine(table)
		})

		It("anchors the final value at the snapshot total", func() {
			history, err := engine.PriceHistory(&portfolio.Snapshot{
				Holdings: []portfolio.Holding{
					{AssetID: "A", ValueUSD: 500},
					{AssetID: "B", ValueUSD: 500},
				},
				TotalValueUSD: 1000,
			})
			Expect(err).To(BeNil())
			Expect(history.Data).To(Equal(portfolio.Trajectory{
				{Date: "2024-01-02", ValueUSD: 975.61},
				{Date: "2024-01-03", ValueUSD: 1000.00},
			}))
		})

		It("invests the first portfolio value into the benchmark", func() {
			history, err := engine.PriceHistory(&portfolio.Snapshot{
				Holdings: []portfolio.Holding{
					{AssetID: "A", ValueUSD: 500},
					{AssetID: "B", ValueUSD: 500},
				},
				TotalValueUSD: 1000,
			})
			Expect(err).To(BeNil())
			Expect(history.Benchmarks).To(HaveKey("sp500"))
			Expect(history.Benchmarks).ToNot(HaveKey("bitcoin"))
			Expect(history.Benchmarks["sp500"]).To(Equal(portfolio.Trajectory{
				{Date: "2024-01-02", ValueUSD: 975.61},
				{Date: "2024-01-03", ValueUSD: 1073.17},
			}))
		})

		It("produces identical output for identical input", func() {
			snapshot := &portfolio.Snapshot{
				Holdings: []portfolio.Holding{
					{AssetID: "B", ValueUSD: 300},
					{AssetID: "A", ValueUSD: 700},
				},
				TotalValueUSD: 1000,
			}

			first, err := engine.PriceHistory(snapshot)
			Expect(err).To(BeNil())
			second, err := engine.PriceHistory(snapshot)
			Expect(err).To(BeNil())
			Expect(second).To(Equal(first))
		})

		It("values excluded holdings at zero without re-normalizing", func() {
			valuation, err := engine.Valuate(&portfolio.Snapshot{
				Holdings: []portfolio.Holding{
					{AssetID: "CASH_USD", ValueUSD: 500},
					{AssetID: "A", ValueUSD: 500},
				},
				TotalValueUSD: 1000,
			})
			Expect(err).To(BeNil())
			Expect(valuation.Weights.Assets).To(Equal([]string{"A"}))

			// blended return on the last day is 0.5 * 0.10
			Expect(valuation.Portfolio.Values[1]).To(BeNumerically("~", 1000, 1e-9))
			Expect(valuation.Portfolio.Values[0]).To(BeNumerically("~", 1000/1.05, 1e-9))
		})

		It("returns empty data and benchmarks for a zero total", func() {
			history, err := engine.PriceHistory(&portfolio.Snapshot{
				Holdings: []portfolio.Holding{
					{AssetID: "A", ValueUSD: 0},
				},
				TotalValueUSD: 0,
			})
			Expect(err).To(BeNil())
			Expect(history.Data).To(BeEmpty())
			Expect(history.Benchmarks).To(BeEmpty())
		})

		It("returns empty data when no holding is priced", func() {
			history, err := engine.PriceHistory(&portfolio.Snapshot{
				Holdings: []portfolio.Holding{
					{AssetID: "CASH_USD", ValueUSD: 1000},
				},
				TotalValueUSD: 1000,
			})
			Expect(err).To(BeNil())
			Expect(history.Data).To(BeEmpty())
			Expect(history.Benchmarks).To(BeEmpty())
		})

		It("serializes to data and benchmarks", func() {
			history, err := engine.PriceHistory(&portfolio.Snapshot{
				Holdings: []portfolio.Holding{
					{AssetID: "A", ValueUSD: 1000},
				},
				TotalValueUSD: 1000,
			})
			Expect(err).To(BeNil())

			body, err := json.Marshal(history)
			Expect(err).To(BeNil())

			var decoded map[string]any
			Expect(json.Unmarshal(body, &decoded)).To(Succeed())
			Expect(decoded).To(HaveKey("data"))
			Expect(decoded).To(HaveKey("benchmarks"))

			points := decoded["data"].([]any)
			Expect(points).To(HaveLen(2))
			Expect(points[1]).To(Equal(map[string]any{"date": "2024-01-03", "valueUSD": 1000.0}))
		})
	})

	Context("with gaps and a longer history", func() {
		BeforeEach(func() {
			table = returnTable([]time.Time{day(2), day(3), day(4), day(5), day(8)}, map[string][]float64{
				"VTI_return": {0.0, 0.012, math.NaN(), -0.004, 0.007},
				"BND_return": {0.0, -0.001, 0.002, 0.0005, math.NaN()},
				"BTC_return": {math.NaN(), 0.05, -0.02, 0.03, 0.01},
			})
			engine = portfolio.NewEngine(table)
		})

		It("keeps the last point within a cent of the total", func() {
			total := 15234.57
			history, err := engine.PriceHistory(&portfolio.Snapshot{
				Holdings: []portfolio.Holding{
					{AssetID: "VTI", ValueUSD: 7000},
					{AssetID: "BND", ValueUSD: 5000},
					{AssetID: "BTC", ValueUSD: 3234.57},
				},
				TotalValueUSD: total,
			})
			Expect(err).To(BeNil())
			Expect(history.Data).To(HaveLen(5))

			last, ok := history.Data.Last()
			Expect(ok).To(BeTrue())
			Expect(math.Abs(last.ValueUSD - total)).To(BeNumerically("<=", 0.01))
		})

		It("overlays bitcoin starting at the first portfolio value", func() {
			valuation, err := engine.Valuate(&portfolio.Snapshot{
				Holdings: []portfolio.Holding{
					{AssetID: "VTI", ValueUSD: 1000},
				},
				TotalValueUSD: 1000,
			})
			Expect(err).To(BeNil())
			Expect(valuation.Benchmarks).To(HaveKey("bitcoin"))
			Expect(valuation.Benchmarks).ToNot(HaveKey("sp500"))

			btc := valuation.Benchmarks["bitcoin"]
			Expect(btc.Values[0]).To(Equal(valuation.Portfolio.Values[0]))
			Expect(btc.Values[1]).To(BeNumerically("~", valuation.Portfolio.Values[0]*1.05, 1e-9))
		})

		It("only overlays the requested benchmarks", func() {
			engine = portfolio.NewEngine(table, data.BenchmarkSP500)
			valuation, err := engine.Valuate(&portfolio.Snapshot{
				Holdings: []portfolio.Holding{
					{AssetID: "VTI", ValueUSD: 1000},
				},
				TotalValueUSD: 1000,
			})
			Expect(err).To(BeNil())
			Expect(valuation.Benchmarks).To(BeEmpty())
		})

		It("summarizes the portfolio series", func() {
			valuation, err := engine.Valuate(&portfolio.Snapshot{
				Holdings: []portfolio.Holding{
					{AssetID: "VTI", ValueUSD: 1000},
				},
				TotalValueUSD: 1000,
			})
			Expect(err).To(BeNil())

			summary := portfolio.Summarize(valuation.Portfolio)
			Expect(summary.Begin).To(Equal(day(2)))
			Expect(summary.End).To(Equal(day(8)))
			Expect(summary.EndValue).To(BeNumerically("~", 1000, 1e-9))
			Expect(summary.TotalReturn).To(BeNumerically("~", 1.012*0.996*1.007-1, 1e-9))
		})
	})

	Context("with a day that wipes out an asset", func() {
		BeforeEach(func() {
			table = returnTable([]time.Time{day(2), day(3), day(4)}, map[string][]float64{
				"A_return": {0.0, -1.0, 0.0},
				"B_return": {0.0, 0.10, 0.0},
			})
			engine = portfolio.NewEngine(table)
		})

		It("fails when the whole portfolio is lost", func() {
			history, err := engine.PriceHistory(&portfolio.Snapshot{
				Holdings:      []portfolio.Holding{{AssetID: "A", ValueUSD: 100}},
				TotalValueUSD: 100,
			})
			Expect(errors.Is(err, portfolio.ErrDegenerateGrowth)).To(BeTrue())
			Expect(history).To(BeNil())
		})

		It("values a portfolio that only loses part of its holdings", func() {
			history, err := engine.PriceHistory(&portfolio.Snapshot{
				Holdings: []portfolio.Holding{
					{AssetID: "A", ValueUSD: 50},
					{AssetID: "B", ValueUSD: 50},
				},
				TotalValueUSD: 100,
			})
			Expect(err).To(BeNil())
			Expect(history.Data.Values()).To(Equal([]float64{181.82, 100.00, 100.00}))
		})

		It("fails when a benchmark is lost on the first day", func() {
			table = returnTable([]time.Time{day(2), day(3)}, map[string][]float64{
				"B_return":    {0.0, 0.10},
				"GSPC_return": {-1.0, 0.0},
			})
			_, err := portfolio.NewEngine(table).Valuate(&portfolio.Snapshot{
				Holdings:      []portfolio.Holding{{AssetID: "B", ValueUSD: 100}},
				TotalValueUSD: 100,
			})
			Expect(errors.Is(err, portfolio.ErrDegenerateGrowth)).To(BeTrue())
		})
	})
})
