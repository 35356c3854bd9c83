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
	"math"
	"sort"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/penny-vault/pv-dashboard/data/database"
	"github.com/penny-vault/pv-dashboard/dataframe"
	"github.com/penny-vault/pv-dashboard/observability/opentelemetry"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	returnsTable = "asset_returns"
)

// DBLoader reads the return table from the `asset_returns` table:
//
//	event_date   date
//	asset_id     text
//	close        double precision
//	daily_return double precision
//
// Rows are pivoted into `{assetId}_close` and `{assetId}_return` columns; NULL becomes NaN.
type DBLoader struct{}

// NewDBLoader creates a loader using the package level database pool
func NewDBLoader() *DBLoader {
	return &DBLoader{}
}

type dbObservation struct {
	close float64
	ret   float64
}

// Load reads every row of the returns table and builds a ReturnTable
func (loader *DBLoader) Load(ctx context.Context) (*ReturnTable, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "pvdb.Load")
	defer span.End()

	trx, err := database.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "could not begin transaction")
		return nil, err
	}

	sql := "SELECT event_date, asset_id, COALESCE(close, 'NaN'::float8) AS close, COALESCE(daily_return, 'NaN'::float8) AS daily_return FROM asset_returns ORDER BY event_date, asset_id"
	rows, err := trx.Query(ctx, sql)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		log.Error().Err(err).Str("Query", sql).Msg("could not query return table")
		if err := trx.Rollback(ctx); err != nil {
			log.Error().Err(err).Msg("could not rollback transaction")
		}
		return nil, err
	}

	observations := make(map[time.Time]map[string]*dbObservation)
	assets := make(map[string]bool)

	for rows.Next() {
		var (
			eventDate time.Time
			assetID   string
			closeVal  float64
			retVal    float64
		)

		if err := rows.Scan(&eventDate, &assetID, &closeVal, &retVal); err != nil {
			log.Error().Err(err).Str("Query", sql).Msg("could not scan row")
			rows.Close()
			if err := trx.Rollback(ctx); err != nil {
				log.Error().Err(err).Msg("could not rollback transaction")
			}
			return nil, err
		}

		eventDate = time.Date(eventDate.Year(), eventDate.Month(), eventDate.Day(), 0, 0, 0, 0, time.UTC)
		day, ok := observations[eventDate]
		if !ok {
			day = make(map[string]*dbObservation)
			observations[eventDate] = day
		}

		day[assetID] = &dbObservation{close: closeVal, ret: retVal}
		assets[assetID] = true
	}

	if err := rows.Err(); err != nil {
		span.RecordError(err)
		log.Error().Err(err).Str("Query", sql).Msg("reading rows failed")
		if err := trx.Rollback(ctx); err != nil {
			log.Error().Err(err).Msg("could not rollback transaction")
		}
		return nil, err
	}

	if err := trx.Commit(ctx); err != nil {
		log.Error().Err(err).Msg("could not commit transaction")
		return nil, err
	}

	df := pivotObservations(observations, assets)
	span.SetAttributes(
		attribute.Int("NumRows", df.Len()),
		attribute.Int("NumAssets", len(assets)),
	)

	log.Info().Int("NumRows", df.Len()).Int("NumAssets", len(assets)).Msg("loaded return table from database")
	return NewReturnTable(df)
}

func pivotObservations(observations map[time.Time]map[string]*dbObservation, assets map[string]bool) *dataframe.DataFrame {
	dates := make([]time.Time, 0, len(observations))
	for dt := range observations {
		dates = append(dates, dt)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	assetIDs := make([]string, 0, len(assets))
	for assetID := range assets {
		assetIDs = append(assetIDs, assetID)
	}
	sort.Strings(assetIDs)

	df := &dataframe.DataFrame{
		Dates:    dates,
		ColNames: make([]string, 0, 2*len(assetIDs)),
		Vals:     make([][]float64, 0, 2*len(assetIDs)),
	}

	for _, assetID := range assetIDs {
		closes := make([]float64, len(dates))
		returns := make([]float64, len(dates))
		for rowIdx, dt := range dates {
			obs, ok := observations[dt][assetID]
			if !ok {
				obs = &dbObservation{close: math.NaN(), ret: math.NaN()}
			}
			closes[rowIdx] = obs.close
			returns[rowIdx] = obs.ret
		}
		df.Insert(CloseColumn(assetID), closes)
		df.Insert(ReturnColumn(assetID), returns)
	}

	return df
}

// Save replaces the contents of the returns table with df inside a single transaction
func (loader *DBLoader) Save(ctx context.Context, df *dataframe.DataFrame) error {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "pvdb.Save")
	defer span.End()

	trx, err := database.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		return err
	}

	if _, err := trx.Exec(ctx, "DELETE FROM asset_returns"); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete failed")
		log.Error().Err(err).Msg("could not clear return table")
		if err := trx.Rollback(ctx); err != nil {
			log.Error().Err(err).Msg("could not rollback transaction")
		}
		return err
	}

	rows := tableRows(df)
	n, err := trx.CopyFrom(ctx, pgx.Identifier{returnsTable}, []string{"event_date", "asset_id", "close", "daily_return"}, pgx.CopyFromRows(rows))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "copy failed")
		log.Error().Err(err).Msg("could not copy rows into return table")
		if err := trx.Rollback(ctx); err != nil {
			log.Error().Err(err).Msg("could not rollback transaction")
		}
		return err
	}

	if err := trx.Commit(ctx); err != nil {
		log.Error().Err(err).Msg("could not commit transaction")
		return err
	}

	log.Info().Int64("NumRows", n).Msg("saved return table to database")
	return nil
}

// tableRows un-pivots df into (event_date, asset_id, close, daily_return) tuples. NaN values are
// stored as NULL.
func tableRows(df *dataframe.DataFrame) [][]interface{} {
	type pair struct {
		closeIdx  int
		returnIdx int
	}

	pairs := make(map[string]*pair)
	order := []string{}
	for colIdx, colName := range df.ColNames {
		assetID, ok := assetIDFromColumn(colName)
		if !ok {
			continue
		}
		p, ok := pairs[assetID]
		if !ok {
			p = &pair{closeIdx: -1, returnIdx: -1}
			pairs[assetID] = p
			order = append(order, assetID)
		}
		if colName == CloseColumn(assetID) {
			p.closeIdx = colIdx
		} else {
			p.returnIdx = colIdx
		}
	}

	nullable := func(colIdx, rowIdx int) interface{} {
		if colIdx == -1 || math.IsNaN(df.Vals[colIdx][rowIdx]) {
			return nil
		}
		return df.Vals[colIdx][rowIdx]
	}

	rows := make([][]interface{}, 0, df.Len()*len(order))
	for rowIdx, dt := range df.Dates {
		for _, assetID := range order {
			p := pairs[assetID]
			closeVal := nullable(p.closeIdx, rowIdx)
			retVal := nullable(p.returnIdx, rowIdx)
			if closeVal == nil && retVal == nil {
				continue
			}
			rows = append(rows, []interface{}{dt, assetID, closeVal, retVal})
		}
	}

	return rows
}
