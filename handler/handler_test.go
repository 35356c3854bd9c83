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

package handler_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/penny-vault/pv-dashboard/common"
	"github.com/penny-vault/pv-dashboard/data"
	"github.com/penny-vault/pv-dashboard/dataframe"
	"github.com/penny-vault/pv-dashboard/handler"
	"github.com/penny-vault/pv-dashboard/portfolio"
	"github.com/penny-vault/pv-dashboard/profile"
	"github.com/penny-vault/pv-dashboard/router"
)

const (
	returnsFile = "../testdata/returns.csv"
	profileDir  = "../testdata/profiles"
)

func do(app *fiber.App, method, target string, body []byte) (int, []byte) {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}

	resp, err := app.Test(req, -1)
	Expect(err).To(BeNil())
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	Expect(err).To(BeNil())
	return resp.StatusCode, respBody
}

var _ = Describe("Handler", func() {
	var (
		app   *fiber.App
		cache *common.Cache
	)

	BeforeEach(func() {
		table, err := data.NewCSVLoader(returnsFile).Load(context.Background())
		Expect(err).To(BeNil())

		catalog, err := profile.LoadCatalog(filepath.Join(profileDir, "assets.json"))
		Expect(err).To(BeNil())

		cache, err = common.NewCache(16, "", 0)
		Expect(err).To(BeNil())

		h := handler.New(data.NewTableStoreWithTable(table), profile.NewStore(profileDir), catalog, cache)
		app = router.NewApp(h)
	})

	Context("health", func() {
		It("reports the loaded table", func() {
			code, body := do(app, http.MethodGet, "/health", nil)
			Expect(code).To(Equal(http.StatusOK))

			var resp map[string]any
			Expect(json.Unmarshal(body, &resp)).To(Succeed())
			Expect(resp["ok"]).To(Equal(true))
			Expect(resp["lastDate"]).To(Equal("2024-01-05"))
			Expect(resp["tableVersion"]).ToNot(BeEmpty())
			Expect(resp["version"]).To(Equal("v" + common.CurrentVersion.String()))
		})
	})

	Context("assets", func() {
		It("lists the catalog", func() {
			code, body := do(app, http.MethodGet, "/assets", nil)
			Expect(code).To(Equal(http.StatusOK))

			assets := make([]*profile.Asset, 0)
			Expect(json.Unmarshal(body, &assets)).To(Succeed())
			Expect(assets).To(HaveLen(5))
			Expect(assets[1].AssetID).To(Equal("VTI"))
		})

		It("returns the history of a single asset", func() {
			code, body := do(app, http.MethodGet, "/assets/VTI/history", nil)
			Expect(code).To(Equal(http.StatusOK))

			var rows []map[string]any
			Expect(json.Unmarshal(body, &rows)).To(Succeed())
			Expect(rows).To(HaveLen(4))
			Expect(rows[0]).To(Equal(map[string]any{"date": "2024-01-02", "close": 230.0, "return": 0.01}))
			Expect(rows[2]["close"]).To(BeNil())
			Expect(rows[2]["return"]).To(BeNil())
		})

		It("lists available assets when the asset is unknown", func() {
			code, body := do(app, http.MethodGet, "/assets/XYZ/history", nil)
			Expect(code).To(Equal(http.StatusNotFound))
			Expect(string(body)).To(ContainSubstring("XYZ"))
			Expect(string(body)).To(ContainSubstring("BND, GSPC, VTI"))
		})
	})

	Context("profiles", func() {
		It("returns a stored profile", func() {
			code, body := do(app, http.MethodGet, "/portfolio/user_001", nil)
			Expect(code).To(Equal(http.StatusOK))

			user := &profile.UserProfile{}
			Expect(json.Unmarshal(body, user)).To(Succeed())
			Expect(user.NetWorthUSD).To(Equal(10000.0))
			Expect(user.BaseCurrency).To(Equal("USD"))
		})

		It("rejects malformed user ids", func() {
			code, _ := do(app, http.MethodGet, "/portfolio/bad.id", nil)
			Expect(code).To(Equal(http.StatusBadRequest))
		})

		It("values a stored portfolio", func() {
			code, body := do(app, http.MethodGet, "/portfolio/user_001/price-history", nil)
			Expect(code).To(Equal(http.StatusOK))

			history := &portfolio.PriceHistory{}
			Expect(json.Unmarshal(body, history)).To(Succeed())
			Expect(history.Data).To(HaveLen(4))

			last, ok := history.Data.Last()
			Expect(ok).To(BeTrue())
			Expect(last).To(Equal(portfolio.PricePoint{Date: "2024-01-05", ValueUSD: 10000}))

			Expect(history.Benchmarks).To(HaveKey("sp500"))
			Expect(history.Benchmarks).ToNot(HaveKey("bitcoin"))
			Expect(history.Benchmarks["sp500"][0].ValueUSD).To(Equal(history.Data[0].ValueUSD))
		})

		It("caches price histories by table version and holdings", func() {
			code, first := do(app, http.MethodGet, "/portfolio/user_001/price-history", nil)
			Expect(code).To(Equal(http.StatusOK))
			Expect(cache.Len()).To(Equal(1))

			code, second := do(app, http.MethodGet, "/portfolio/user_001/price-history", nil)
			Expect(code).To(Equal(http.StatusOK))
			Expect(cache.Len()).To(Equal(1))
			Expect(second).To(Equal(first))

			code, _ = do(app, http.MethodGet, "/portfolio/test_user/price-history", nil)
			Expect(code).To(Equal(http.StatusOK))
			Expect(cache.Len()).To(Equal(2))
		})
	})

	Context("custom portfolios", func() {
		It("builds a profile from the request", func() {
			code, body := do(app, http.MethodPost, "/portfolio/custom", []byte(`{"holdings":[{"assetId":"VTI","valueUSD":750},{"assetId":"BND","valueUSD":250}]}`))
			Expect(code).To(Equal(http.StatusOK))

			user := &profile.UserProfile{}
			Expect(json.Unmarshal(body, user)).To(Succeed())
			Expect(user.UserID).To(Equal(profile.CustomUserID))
			Expect(user.NetWorthUSD).To(Equal(1000.0))
			Expect(user.AsOf.Format("2006-01-02")).To(Equal("2024-01-05"))
			Expect(user.Portfolio.AllocationApprox.Stocks).To(Equal(0.75))
			Expect(user.Portfolio.Holdings[1].Name).To(Equal("Vanguard Total Bond Market ETF"))
		})

		It("values the requested holdings", func() {
			code, body := do(app, http.MethodPost, "/portfolio/custom/price-history", []byte(`{"holdings":[{"assetId":"VTI","valueUSD":750},{"assetId":"CASH_USD","valueUSD":250}]}`))
			Expect(code).To(Equal(http.StatusOK))

			history := &portfolio.PriceHistory{}
			Expect(json.Unmarshal(body, history)).To(Succeed())

			last, ok := history.Data.Last()
			Expect(ok).To(BeTrue())
			Expect(last.ValueUSD).To(Equal(1000.0))
		})

		It("returns empty data when nothing can be priced", func() {
			code, body := do(app, http.MethodPost, "/portfolio/custom/price-history", []byte(`{"holdings":[{"assetId":"CASH_USD","valueUSD":0}]}`))
			Expect(code).To(Equal(http.StatusOK))
			Expect(string(body)).To(Equal(`{"data":[],"benchmarks":{}}`))
		})

		It("rejects negative values", func() {
			code, _ := do(app, http.MethodPost, "/portfolio/custom", []byte(`{"holdings":[{"assetId":"VTI","valueUSD":-1}]}`))
			Expect(code).To(Equal(http.StatusBadRequest))
		})

		It("rejects malformed requests", func() {
			code, _ := do(app, http.MethodPost, "/portfolio/custom/price-history", []byte(`{"holdings":`))
			Expect(code).To(Equal(http.StatusBadRequest))
		})
	})

	Context("before the table is loaded", func() {
		It("responds with service unavailable", func() {
			catalog := profile.NewCatalog(nil)
			h := handler.New(data.NewTableStore(nil), profile.NewStore(profileDir), catalog, nil)
			app = router.NewApp(h)

			code, _ := do(app, http.MethodGet, "/portfolio/user_001/price-history", nil)
			Expect(code).To(Equal(http.StatusServiceUnavailable))
		})
	})

	Context("when an asset is wiped out", func() {
		BeforeEach(func() {
			table, err := data.NewReturnTable(&dataframe.DataFrame{
				Dates: []time.Time{
					time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
					time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
					time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC),
				},
				ColNames: []string{"VTI_return"},
				Vals:     [][]float64{{0, -1.0, 0}},
			})
			Expect(err).To(BeNil())

			h := handler.New(data.NewTableStoreWithTable(table), profile.NewStore(profileDir), profile.NewCatalog(nil), nil)
			app = router.NewApp(h)
		})

		It("responds with unprocessable entity", func() {
			code, body := do(app, http.MethodPost, "/portfolio/custom/price-history", []byte(`{"holdings":[{"assetId":"VTI","valueUSD":100}]}`))
			Expect(code).To(Equal(http.StatusUnprocessableEntity))
			Expect(string(body)).To(ContainSubstring("cannot be anchored"))
		})
	})

	Context("when a handler panics", func() {
		It("recovers with an internal server error", func() {
			app.Get("/explode", func(c *fiber.Ctx) error {
				panic("explode")
			})

			code, _ := do(app, http.MethodGet, "/explode", nil)
			Expect(code).To(Equal(http.StatusInternalServerError))

			code, _ = do(app, http.MethodGet, "/health", nil)
			Expect(code).To(Equal(http.StatusOK))
		})
	})
})
