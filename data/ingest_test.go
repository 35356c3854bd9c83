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
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/penny-vault/pv-dashboard/data"
	"github.com/penny-vault/pv-dashboard/dataframe"
)

type fakeProvider struct {
	closes    map[string]*dataframe.DataFrame
	requested []string
	lock      sync.Mutex
}

func (p *fakeProvider) DailyCloses(ctx context.Context, ticker string, crypto bool, begin time.Time) (*dataframe.DataFrame, error) {
	p.lock.Lock()
	p.requested = append(p.requested, fmt.Sprintf("%s:%v", ticker, crypto))
	p.lock.Unlock()

	df, ok := p.closes[ticker]
	if !ok {
		return nil, data.ErrNoData
	}
	return df.Copy(), nil
}

func closes(dates []time.Time, vals ...float64) *dataframe.DataFrame {
	return &dataframe.DataFrame{
		Dates:    dates,
		ColNames: []string{"close"},
		Vals:     [][]float64{vals},
	}
}

var _ = Describe("Ingestor", func() {
	var (
		provider *fakeProvider
		ingestor *data.Ingestor
		dir      string
		fn       string
		ctx      context.Context
		assets   []data.IngestAsset
	)

	BeforeEach(func() {
		provider = &fakeProvider{
			closes: map[string]*dataframe.DataFrame{
				// trades every day
				"btc": closes([]time.Time{day(1), day(2), day(3), day(4), day(5)}, 100, 110, 99, 99, 108.9),
				// no trade on the 3rd
				"VTI":   closes([]time.Time{day(1), day(2), day(4), day(5)}, 200, 202, 200, 210),
				"SPY":   closes([]time.Time{day(1), day(2), day(3), day(4), day(5)}, 400, 404, 404, 400, 400),
				"BRK-B": closes([]time.Time{day(2), day(3), day(4), day(5)}, 300, 303, 300, 300),
			},
		}
		ingestor = data.NewIngestor(provider, 2, "")
		ctx = context.Background()

		var err error
		dir, err = os.MkdirTemp("", "pvdash-ingest")
		Expect(err).To(BeNil())
		DeferCleanup(os.RemoveAll, dir)
		fn = filepath.Join(dir, "returns.csv")

		assets = []data.IngestAsset{
			{AssetID: "CASH_USD"},
			{AssetID: "VTI", Ticker: "VTI"},
			{AssetID: "BTC", Ticker: "btc", Crypto: true},
		}
	})

	It("skips assets without a ticker and adds the sp500 benchmark", func() {
		res, err := ingestor.Update(ctx, assets, day(1), fn, false)
		Expect(err).To(BeNil())
		Expect(res.Fetched).To(Equal([]string{"BTC", "GSPC", "VTI"}))
		Expect(res.Failed).To(BeEmpty())
		Expect(provider.requested).To(ConsistOf("VTI:false", "btc:true", "SPY:false"))
	})

	It("computes returns and fills gaps", func() {
		res, err := ingestor.Update(ctx, assets, day(1), fn, false)
		Expect(err).To(BeNil())

		df := res.Frame
		Expect(df.ColNames).To(Equal([]string{"BTC_close", "BTC_return", "GSPC_close", "GSPC_return", "VTI_close", "VTI_return"}))
		// the first day has no return and is dropped
		Expect(df.Dates).To(Equal([]time.Time{day(2), day(3), day(4), day(5)}))

		vtiClose := df.Vals[df.ColIndex("VTI_close")]
		vtiReturn := df.Vals[df.ColIndex("VTI_return")]
		Expect(vtiClose).To(Equal([]float64{202, 202, 200, 210}))
		Expect(vtiReturn[0]).To(BeNumerically("~", 0.01, 1e-12))
		Expect(vtiReturn[1]).To(Equal(0.0))
		Expect(vtiReturn[2]).To(BeNumerically("~", -0.00990099, 1e-8))
		Expect(vtiReturn[3]).To(BeNumerically("~", 0.05, 1e-12))

		btcReturn := df.Vals[df.ColIndex("BTC_return")]
		Expect(btcReturn[0]).To(BeNumerically("~", 0.1, 1e-12))
		Expect(btcReturn[1]).To(BeNumerically("~", -0.1, 1e-12))
	})

	It("writes a table the CSV loader can read", func() {
		_, err := ingestor.Update(ctx, assets, day(1), fn, false)
		Expect(err).To(BeNil())

		table, err := data.NewCSVLoader(fn).Load(ctx)
		Expect(err).To(BeNil())
		Expect(table.Len()).To(Equal(4))
		Expect(table.HasReturns("VTI")).To(BeTrue())

		_, ok := table.BenchmarkReturns(data.BenchmarkSP500)
		Expect(ok).To(BeTrue())
	})

	It("maps tickers the provider spells differently", func() {
		res, err := ingestor.Update(ctx, []data.IngestAsset{{AssetID: "BRK.B", Ticker: "BRK.B"}}, day(1), fn, false)
		Expect(err).To(BeNil())
		Expect(res.Fetched).To(ContainElement("BRK.B"))
		Expect(provider.requested).To(ContainElement("BRK-B:false"))
	})

	It("keeps going when a download fails", func() {
		assets = append(assets, data.IngestAsset{AssetID: "XYZ", Ticker: "XYZ"})
		res, err := ingestor.Update(ctx, assets, day(1), fn, false)
		Expect(err).To(BeNil())
		Expect(res.Failed).To(Equal([]string{"XYZ"}))
	})

	It("fails when nothing could be fetched", func() {
		provider.closes = map[string]*dataframe.DataFrame{}
		_, err := ingestor.Update(ctx, assets, day(1), fn, false)
		Expect(errors.Is(err, data.ErrNoData)).To(BeTrue())

		_, err = os.Stat(fn)
		Expect(errors.Is(err, os.ErrNotExist)).To(BeTrue())
	})

	Context("in append mode", func() {
		It("only fetches assets missing from the existing table", func() {
			_, err := ingestor.Update(ctx, assets[:2], day(1), fn, false)
			Expect(err).To(BeNil())

			provider.requested = nil
			res, err := ingestor.Update(ctx, assets, day(1), fn, true)
			Expect(err).To(BeNil())
			Expect(provider.requested).To(Equal([]string{"btc:true"}))
			Expect(res.Frame.ColNames).To(Equal([]string{"GSPC_close", "GSPC_return", "VTI_close", "VTI_return", "BTC_close", "BTC_return"}))
		})

		It("leaves an up to date table alone", func() {
			_, err := ingestor.Update(ctx, assets, day(1), fn, false)
			Expect(err).To(BeNil())

			provider.requested = nil
			res, err := ingestor.Update(ctx, assets, day(1), fn, true)
			Expect(err).To(BeNil())
			Expect(provider.requested).To(BeEmpty())
			Expect(res.Frame.Len()).To(Equal(4))
		})
	})

	DescribeTable("parsing look-back periods",
		func(period string, expected time.Time, valid bool) {
			now := time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC)
			begin, err := data.ParsePeriod(period, now)
			if !valid {
				Expect(errors.Is(err, data.ErrInvalidPeriod)).To(BeTrue())
				return
			}
			Expect(err).To(BeNil())
			Expect(begin).To(Equal(expected))
		},
		Entry("one year", "1y", time.Date(2023, time.June, 15, 0, 0, 0, 0, time.UTC), true),
		Entry("six months", "6mo", time.Date(2023, time.December, 15, 0, 0, 0, 0, time.UTC), true),
		Entry("thirty days", "30d", time.Date(2024, time.May, 16, 0, 0, 0, 0, time.UTC), true),
		Entry("max", "max", time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC), true),
		Entry("garbage", "forever", time.Time{}, false),
		Entry("zero", "0y", time.Time{}, false),
	)
})
