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

package handler

import (
	"errors"
	"math"

	"github.com/gofiber/fiber/v2"
	"github.com/penny-vault/pv-dashboard/common"
	"github.com/penny-vault/pv-dashboard/data"
	"github.com/rs/zerolog/log"
)

type assetObservation struct {
	Date   string   `json:"date"`
	Close  *float64 `json:"close"`
	Return *float64 `json:"return"`
}

// ListAssets returns the asset catalog
func (h *Handler) ListAssets(c *fiber.Ctx) error {
	return c.JSON(h.catalog.Assets())
}

// AssetHistory returns the daily closes and returns of a single asset. Missing observations are
// serialized as null.
func (h *Handler) AssetHistory(c *fiber.Ctx) error {
	assetID := c.Params("id")
	subLog := log.With().Str("AssetID", assetID).Str("Endpoint", "AssetHistory").Logger()

	table, err := h.table()
	if err != nil {
		return err
	}

	df, err := table.AssetData(assetID)
	if err != nil {
		var notFound *data.AssetNotFoundError
		if errors.As(err, &notFound) {
			return fiber.NewError(fiber.StatusNotFound, notFound.Error())
		}
		subLog.Error().Err(err).Msg("could not select asset data")
		return fiber.ErrInternalServerError
	}

	closeIdx := df.ColIndex(data.CloseColumn(assetID))
	returnIdx := df.ColIndex(data.ReturnColumn(assetID))

	observations := make([]*assetObservation, df.Len())
	for row, dt := range df.Dates {
		obs := &assetObservation{
			Date: dt.Format(common.DateFormat),
		}
		if closeIdx != -1 {
			obs.Close = finite(df.Vals[closeIdx][row])
		}
		if returnIdx != -1 {
			obs.Return = finite(df.Vals[returnIdx][row])
		}
		observations[row] = obs
	}

	return c.JSON(observations)
}

func finite(val float64) *float64 {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return nil
	}
	return &val
}
