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
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/penny-vault/pv-dashboard/common"
	"github.com/penny-vault/pv-dashboard/data"
	"github.com/penny-vault/pv-dashboard/observability/opentelemetry"
	"github.com/penny-vault/pv-dashboard/portfolio"
	"github.com/penny-vault/pv-dashboard/profile"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// GetProfile returns a user's profile
func (h *Handler) GetProfile(c *fiber.Ctx) error {
	userID := c.Params("userId")
	subLog := log.With().Str("UserID", userID).Str("Endpoint", "GetProfile").Logger()

	user, err := h.loadProfile(userID, subLog)
	if err != nil {
		return err
	}

	return c.JSON(user)
}

// ProfilePriceHistory returns the valuation history of a user's portfolio
func (h *Handler) ProfilePriceHistory(c *fiber.Ctx) error {
	userID := c.Params("userId")
	subLog := log.With().Str("UserID", userID).Str("Endpoint", "ProfilePriceHistory").Logger()

	user, err := h.loadProfile(userID, subLog)
	if err != nil {
		return err
	}

	return h.priceHistory(c, user.Snapshot(), subLog)
}

// CustomProfile builds a profile from the holdings in the request body
func (h *Handler) CustomProfile(c *fiber.Ctx) error {
	subLog := log.With().Str("Endpoint", "CustomProfile").Logger()

	user, err := h.customProfile(c, subLog)
	if err != nil {
		return err
	}

	return c.JSON(user)
}

// CustomPriceHistory returns the valuation history of the holdings in the request body
func (h *Handler) CustomPriceHistory(c *fiber.Ctx) error {
	subLog := log.With().Str("Endpoint", "CustomPriceHistory").Logger()

	user, err := h.customProfile(c, subLog)
	if err != nil {
		return err
	}

	return h.priceHistory(c, user.Snapshot(), subLog)
}

func (h *Handler) loadProfile(userID string, subLog zerolog.Logger) (*profile.UserProfile, error) {
	user, err := h.profiles.Load(userID)
	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, profile.ErrInvalidUserID), errors.Is(err, profile.ErrInvalidHolding):
		return nil, fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, profile.ErrProfileNotFound):
		return nil, fiber.NewError(fiber.StatusNotFound, err.Error())
	default:
		subLog.Error().Err(err).Msg("could not load profile")
		return nil, fiber.ErrInternalServerError
	}
}

func (h *Handler) customProfile(c *fiber.Ctx, subLog zerolog.Logger) (*profile.UserProfile, error) {
	req := &profile.CustomPortfolioRequest{}
	if err := json.Unmarshal(c.Body(), req); err != nil {
		subLog.Warn().Err(err).Msg("could not parse custom portfolio request")
		return nil, fiber.NewError(fiber.StatusBadRequest, "malformed custom portfolio request")
	}

	asOf := time.Now().UTC()
	if table := h.tables.Table(); table != nil && table.Len() > 0 {
		asOf = table.End()
	}

	user, err := profile.BuildCustomProfile(req, h.catalog, asOf)
	if err != nil {
		subLog.Warn().Err(err).Msg("invalid custom portfolio")
		return nil, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	return user, nil
}

// priceHistory values snapshot against the current table. Responses are cached by table version
// and snapshot contents.
func (h *Handler) priceHistory(c *fiber.Ctx, snapshot *portfolio.Snapshot, subLog zerolog.Logger) error {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(c.UserContext(), "PriceHistory")
	defer span.End()

	span.SetAttributes(opentelemetry.SpanAttributesFromFiber(c)...)
	span.SetAttributes(
		attribute.Int("NumHoldings", len(snapshot.Holdings)),
		attribute.Float64("TotalValueUSD", snapshot.TotalValueUSD),
	)

	table, err := h.table()
	if err != nil {
		span.SetStatus(codes.Error, "return table not loaded")
		return err
	}

	key, err := cacheKey(table, snapshot)
	if err != nil {
		subLog.Error().Err(err).Msg("could not compute cache key")
		span.RecordError(err)
		return fiber.ErrInternalServerError
	}

	if body, ok := h.cached(ctx, key, subLog); ok {
		span.SetAttributes(attribute.Bool("CacheHit", true))
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Send(body)
	}
	span.SetAttributes(attribute.Bool("CacheHit", false))

	history, err := portfolio.NewEngine(table).PriceHistory(snapshot)
	if errors.Is(err, portfolio.ErrDegenerateGrowth) {
		subLog.Warn().Err(err).Str("TableVersion", table.Version()).Msg("portfolio cannot be valued")
		span.RecordError(err)
		span.SetStatus(codes.Error, "degenerate growth")
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	}
	if err != nil {
		subLog.Error().Err(err).Str("TableVersion", table.Version()).Msg("valuation failed")
		span.RecordError(err)
		span.SetStatus(codes.Error, "valuation failed")
		return fiber.ErrInternalServerError
	}

	body, err := json.Marshal(history)
	if err != nil {
		subLog.Error().Err(err).Msg("could not serialize price history")
		return fiber.ErrInternalServerError
	}

	if h.cache != nil {
		if err := h.cache.Set(ctx, key, body); err != nil {
			subLog.Warn().Err(err).Msg("could not cache price history")
		}
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(body)
}

func (h *Handler) cached(ctx context.Context, key string, subLog zerolog.Logger) ([]byte, bool) {
	if h.cache == nil {
		return nil, false
	}

	body, err := h.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, common.ErrCacheMiss) {
			subLog.Warn().Err(err).Msg("cache lookup failed")
		}
		return nil, false
	}

	return body, true
}

func cacheKey(table *data.ReturnTable, snapshot *portfolio.Snapshot) (string, error) {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return "", err
	}
	return common.Hash([]byte("price-history"), []byte(table.Version()), payload), nil
}
