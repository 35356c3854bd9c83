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
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/penny-vault/pv-dashboard/common"
	"github.com/penny-vault/pv-dashboard/data"
	"github.com/penny-vault/pv-dashboard/profile"
	"github.com/rs/zerolog/log"
)

// Handler serves the dashboard API. Every dependency is injected so tests can point it at
// fixture data.
type Handler struct {
	tables   *data.TableStore
	profiles *profile.Store
	catalog  *profile.Catalog
	cache    *common.Cache
}

// New creates a handler. cache may be nil in which case responses are computed on every call.
func New(tables *data.TableStore, profiles *profile.Store, catalog *profile.Catalog, cache *common.Cache) *Handler {
	return &Handler{
		tables:   tables,
		profiles: profiles,
		catalog:  catalog,
		cache:    cache,
	}
}

type healthResponse struct {
	OK           bool   `json:"ok"`
	Version      string `json:"version"`
	TableVersion string `json:"tableVersion,omitempty"`
	LastDate     string `json:"lastDate,omitempty"`
	Time         string `json:"time"`
}

// Health reports that the server is alive and which return table it is serving
func (h *Handler) Health(c *fiber.Ctx) error {
	response := healthResponse{
		OK:      true,
		Version: common.CurrentBuild().Version,
		Time:    time.Now().Format(time.RFC3339),
	}

	if table := h.tables.Table(); table != nil && table.Len() > 0 {
		response.TableVersion = table.Version()
		response.LastDate = table.End().Format(common.DateFormat)
	}

	return c.JSON(response)
}

// table returns the current return table or a 503 if none has been loaded yet
func (h *Handler) table() (*data.ReturnTable, error) {
	table := h.tables.Table()
	if table == nil {
		log.Warn().Msg("request received before return table was loaded")
		return nil, fiber.NewError(fiber.StatusServiceUnavailable, "return table not loaded")
	}
	return table, nil
}
