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

package data_test

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/penny-vault/pv-dashboard/data"
)

var _ = Describe("CSV return tables", func() {
	Context("when reading", func() {
		It("parses the fixture file", func() {
			table, err := data.NewCSVLoader("../testdata/returns.csv").Load(context.Background())
			Expect(err).To(BeNil())
			Expect(table.Len()).To(Equal(4))
			Expect(table.Frame().ColNames).To(Equal([]string{"VTI_close", "VTI_return", "BND_close", "BND_return", "GSPC_close", "GSPC_return"}))
			Expect(table.Start()).To(Equal(day(2)))
			Expect(table.End()).To(Equal(day(5)))
		})

		It("turns empty cells into NaN", func() {
			df, err := data.ReadCSVFile("../testdata/returns.csv")
			Expect(err).To(BeNil())
			Expect(math.IsNaN(df.Vals[0][2])).To(BeTrue())
			Expect(math.IsNaN(df.Vals[1][2])).To(BeTrue())
			Expect(df.Vals[2][2]).To(Equal(73.4472))
		})

		It("accepts timestamps in the date column", func() {
			df, err := data.ReadCSV(strings.NewReader("Date,VTI_return\n2024-01-02 00:00:00,0.5\n"))
			Expect(err).To(BeNil())
			Expect(df.Dates[0]).To(Equal(day(2)))
			Expect(df.Vals[0]).To(Equal([]float64{0.5}))
		})

		It("requires the date column first", func() {
			_, err := data.ReadCSV(strings.NewReader("VTI_return,Date\n0.5,2024-01-02\n"))
			Expect(errors.Is(err, data.ErrMissingDateColumn)).To(BeTrue())
		})

		It("returns an empty frame for an empty file", func() {
			df, err := data.ReadCSV(strings.NewReader(""))
			Expect(err).To(BeNil())
			Expect(df.Len()).To(Equal(0))
		})

		It("fails for a missing file", func() {
			_, err := data.NewCSVLoader("../testdata/does-not-exist.csv").Load(context.Background())
			Expect(errors.Is(err, os.ErrNotExist)).To(BeTrue())
		})
	})

	Context("when writing", func() {
		var (
			dir string
		)

		BeforeEach(func() {
			var err error
			dir, err = os.MkdirTemp("", "pvdash-csv")
			Expect(err).To(BeNil())
			DeferCleanup(os.RemoveAll, dir)
		})

		It("writes NaN as an empty cell", func() {
			df, err := data.ReadCSVFile("../testdata/returns.csv")
			Expect(err).To(BeNil())

			buf := &bytes.Buffer{}
			Expect(data.WriteCSV(buf, df)).To(Succeed())
			lines := strings.Split(buf.String(), "\n")
			Expect(lines[0]).To(Equal("Date,VTI_close,VTI_return,BND_close,BND_return,GSPC_close,GSPC_return"))
			Expect(lines[3]).To(HavePrefix("2024-01-04,,,73.4472,0.01,"))
		})

		It("replaces the file without leaving temporary files behind", func() {
			df, err := data.ReadCSVFile("../testdata/returns.csv")
			Expect(err).To(BeNil())

			fn := filepath.Join(dir, "returns.csv")
			Expect(os.WriteFile(fn, []byte("old contents"), 0600)).To(Succeed())
			Expect(data.WriteCSVFile(fn, df)).To(Succeed())

			entries, err := os.ReadDir(dir)
			Expect(err).To(BeNil())
			Expect(entries).To(HaveLen(1))

			df2, err := data.ReadCSVFile(fn)
			Expect(err).To(BeNil())
			Expect(df2.ColNames).To(Equal(df.ColNames))
			Expect(df2.Dates).To(Equal(df.Dates))
			Expect(df2.Vals[1][:2]).To(Equal(df.Vals[1][:2]))
		})
	})
})
