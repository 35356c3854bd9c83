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
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/penny-vault/pv-dashboard/common"
	"github.com/penny-vault/pv-dashboard/dataframe"
	"github.com/penny-vault/pv-dashboard/observability/opentelemetry"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	DefaultTiingoURL = "https://api.tiingo.com"
)

// PriceProvider fetches daily close prices for a single instrument
type PriceProvider interface {
	DailyCloses(ctx context.Context, ticker string, crypto bool, begin time.Time) (*dataframe.DataFrame, error)
}

type Tiingo struct {
	apikey  string
	baseURL string
	client  *http.Client
}

type tiingoEOD struct {
	Date     string  `json:"date"`
	Close    float64 `json:"close"`
	AdjClose float64 `json:"adjClose"`
}

type tiingoCryptoBar struct {
	Date  string  `json:"date"`
	Close float64 `json:"close"`
}

type tiingoCryptoResponse struct {
	Ticker    string            `json:"ticker"`
	PriceData []tiingoCryptoBar `json:"priceData"`
}

// NewTiingo creates a Tiingo data provider. An empty baseURL uses the public API.
func NewTiingo(key, baseURL string) *Tiingo {
	if baseURL == "" {
		baseURL = DefaultTiingoURL
	}

	return &Tiingo{
		apikey:  key,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  http.DefaultClient,
	}
}

// DailyCloses returns a single column dataframe named "close" with one row per trading day
// starting at begin. Equities use split and dividend adjusted closes; crypto assets are priced
// in USD from the crypto endpoint.
func (t *Tiingo) DailyCloses(ctx context.Context, ticker string, crypto bool, begin time.Time) (*dataframe.DataFrame, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "tiingo.DailyCloses")
	defer span.End()

	subLog := log.With().Str("Ticker", ticker).Bool("Crypto", crypto).Time("Begin", begin).Logger()

	params := url.Values{}
	params.Set("startDate", begin.Format(common.DateFormat))

	var endpoint string
	if crypto {
		endpoint = fmt.Sprintf("%s/tiingo/crypto/prices", t.baseURL)
		params.Set("tickers", strings.ToLower(ticker)+"usd")
		params.Set("resampleFreq", "1day")
	} else {
		endpoint = fmt.Sprintf("%s/tiingo/daily/%s/prices", t.baseURL, url.PathEscape(strings.ToUpper(ticker)))
	}

	span.SetAttributes(
		attribute.String("Url", endpoint+"?"+params.Encode()),
		attribute.String("Ticker", ticker),
	)

	params.Set("token", t.apikey)
	body, err := t.get(ctx, endpoint+"?"+params.Encode())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "tiingo request failed")
		subLog.Error().Err(err).Msg("tiingo request failed")
		return nil, err
	}

	var (
		dates  []string
		closes []float64
	)

	if crypto {
		resp := []tiingoCryptoResponse{}
		if err := json.Unmarshal(body, &resp); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "could not unmarshal json")
			subLog.Error().Err(err).Bytes("Body", body).Msg("could not unmarshal json")
			return nil, err
		}
		for _, series := range resp {
			for _, bar := range series.PriceData {
				dates = append(dates, bar.Date)
				closes = append(closes, bar.Close)
			}
		}
	} else {
		resp := []tiingoEOD{}
		if err := json.Unmarshal(body, &resp); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "could not unmarshal json")
			subLog.Error().Err(err).Bytes("Body", body).Msg("could not unmarshal json")
			return nil, err
		}
		for _, bar := range resp {
			dates = append(dates, bar.Date)
			closes = append(closes, bar.AdjClose)
		}
	}

	if len(dates) == 0 {
		span.SetStatus(codes.Error, "no results returned")
		subLog.Warn().Msg("no results returned")
		return nil, fmt.Errorf("%w: %s", ErrNoData, ticker)
	}

	df, err := closesFrame(dates, closes)
	if err != nil {
		span.RecordError(err)
		subLog.Error().Err(err).Msg("could not parse tiingo dates")
		return nil, err
	}

	span.SetAttributes(attribute.Int("NumRows", df.Len()))
	return df, nil
}

func (t *Tiingo) get(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		log.Warn().Int("HTTPResponseStatusCode", resp.StatusCode).Bytes("Body", body).Msg("tiingo returned invalid response code")
		return nil, fmt.Errorf("HTTP request returned invalid status code: %d", resp.StatusCode)
	}

	return body, nil
}

// closesFrame builds a date sorted single column dataframe; later duplicates of a date win
func closesFrame(dates []string, closes []float64) (*dataframe.DataFrame, error) {
	byDate := make(map[time.Time]float64, len(dates))
	for idx, dateStr := range dates {
		dt, err := parseDate(dateStr)
		if err != nil {
			return nil, err
		}
		byDate[dt] = closes[idx]
	}

	index := make([]time.Time, 0, len(byDate))
	for dt := range byDate {
		index = append(index, dt)
	}
	sort.Slice(index, func(i, j int) bool { return index[i].Before(index[j]) })

	vals := make([]float64, len(index))
	for idx, dt := range index {
		vals[idx] = byDate[dt]
	}

	return &dataframe.DataFrame{
		Dates:    index,
		ColNames: []string{"close"},
		Vals:     [][]float64{vals},
	}, nil
}
