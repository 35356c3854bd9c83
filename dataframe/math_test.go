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

package dataframe_test

import (
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/penny-vault/pv-dashboard/dataframe"
)

var _ = Describe("When doing math on a dataframe", func() {
	Context("with 4 values", func() {
		var (
			df1 *dataframe.DataFrame
		)

		BeforeEach(func() {
			df1 = &dataframe.DataFrame{
				Dates: []time.Time{
					time.Date(2021, time.January, 4, 0, 0, 0, 0, time.UTC),
					time.Date(2021, time.January, 5, 0, 0, 0, 0, time.UTC),
					time.Date(2021, time.January, 6, 0, 0, 0, 0, time.UTC),
					time.Date(2021, time.January, 7, 0, 0, 0, 0, time.UTC),
				},
				Vals:     [][]float64{{100.0, 110.0, 99.0, 99.0}},
				ColNames: []string{"VTI_close"},
			}
		})

		It("computes the percent change between rows", func() {
			pct := df1.PctChange()
			Expect(pct.Len()).To(Equal(4))
			Expect(math.IsNaN(pct.Vals[0][0])).To(BeTrue())
			Expect(pct.Vals[0][1]).To(BeNumerically("~", 0.10, 1e-12))
			Expect(pct.Vals[0][2]).To(BeNumerically("~", -0.10, 1e-12))
			Expect(pct.Vals[0][3]).To(BeNumerically("~", 0.0, 1e-12))
		})

		It("adds a scalar without modifying the original", func() {
			res := df1.AddScalar(1)
			Expect(res.Vals[0]).To(Equal([]float64{101.0, 111.0, 100.0, 100.0}))
			Expect(df1.Vals[0][0]).To(Equal(100.0))
		})

		It("multiplies by a scalar", func() {
			res := df1.MulScalar(0.5)
			Expect(res.Vals[0]).To(Equal([]float64{50.0, 55.0, 49.5, 49.5}))
		})

		It("computes a cumulative product of growth factors", func() {
			growth := df1.PctChange().FillNaN(0).AddScalar(1).CumProd()
			Expect(growth.Vals[0][0]).To(BeNumerically("~", 1.0, 1e-12))
			Expect(growth.Vals[0][1]).To(BeNumerically("~", 1.1, 1e-12))
			Expect(growth.Vals[0][2]).To(BeNumerically("~", 0.99, 1e-12))
			Expect(growth.Vals[0][3]).To(BeNumerically("~", 0.99, 1e-12))
		})
	})

	Context("with no values", func() {
		It("returns an empty cumulative product", func() {
			df := &dataframe.DataFrame{
				Dates:    []time.Time{},
				ColNames: []string{"x"},
				Vals:     [][]float64{{}},
			}
			Expect(df.CumProd().Vals[0]).To(BeEmpty())
		})
	})
})
