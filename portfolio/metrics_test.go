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
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/penny-vault/pv-dashboard/portfolio"
)

var _ = Describe("Metrics", func() {
	var (
		series *portfolio.Series
	)

	BeforeEach(func() {
		series = &portfolio.Series{
			Dates:  []time.Time{day(2), day(3), day(4), day(5), day(8), day(9)},
			Values: []float64{100, 110, 99, 105, 88, 120},
		}
	})

	It("finds the largest draw down", func() {
		dd := portfolio.MaxDrawDown(series)
		Expect(dd).ToNot(BeNil())
		Expect(dd.Begin).To(Equal(day(3)))
		Expect(dd.End).To(Equal(day(8)))
		Expect(dd.LossPercent).To(BeNumerically("~", 88.0/110.0-1, 1e-12))
	})

	It("has no draw down for a rising series", func() {
		rising := &portfolio.Series{
			Dates:  []time.Time{day(2), day(3)},
			Values: []float64{100, 101},
		}
		Expect(portfolio.MaxDrawDown(rising)).To(BeNil())
	})

	It("summarizes a series", func() {
		summary := portfolio.Summarize(series)
		Expect(summary.Begin).To(Equal(day(2)))
		Expect(summary.End).To(Equal(day(9)))
		Expect(summary.StartValue).To(Equal(100.0))
		Expect(summary.EndValue).To(Equal(120.0))
		Expect(summary.TotalReturn).To(BeNumerically("~", 0.2, 1e-12))
		Expect(summary.Volatility).To(BeNumerically(">", 0))
		Expect(summary.MaxDrawDown).ToNot(BeNil())
	})

	It("leaves volatility undefined for short series", func() {
		short := &portfolio.Series{
			Dates:  []time.Time{day(2), day(3)},
			Values: []float64{100, 101},
		}
		summary := portfolio.Summarize(short)
		Expect(math.IsNaN(summary.Volatility)).To(BeTrue())
		Expect(summary.TotalReturn).To(BeNumerically("~", 0.01, 1e-12))
	})

	It("handles an empty series", func() {
		summary := portfolio.Summarize(&portfolio.Series{})
		Expect(math.IsNaN(summary.TotalReturn)).To(BeTrue())
		Expect(summary.MaxDrawDown).To(BeNil())
	})
})
