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

package router

import (
	"strings"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/penny-vault/pv-dashboard/handler"
	"github.com/penny-vault/pv-dashboard/middleware"
	"github.com/spf13/viper"
)

const DefaultCORSOrigins = "http://localhost:3000"

// NewApp creates a fiber app with panic recovery, CORS, request logging and every dashboard
// route installed
func NewApp(h *handler.Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "pvdash",
		DisableStartupMessage: true,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
	})

	app.Use(recover.New())

	app.Use(cors.New(cors.Config{
		AllowOrigins:     corsOrigins(),
		AllowHeaders:     "*",
		AllowMethods:     "GET,POST,HEAD,OPTIONS",
		AllowCredentials: true,
	}))

	app.Use(middleware.NewLogger())

	SetupRoutes(app, h)
	return app
}

// SetupRoutes setup router api
func SetupRoutes(app *fiber.App, h *handler.Handler) {
	app.Get("/health", h.Health)

	// Assets
	assets := app.Group("/assets")
	assets.Get("/", h.ListAssets)
	assets.Get("/:id/history", h.AssetHistory)

	// Portfolio
	portfolio := app.Group("/portfolio")
	portfolio.Post("/custom", h.CustomProfile)
	portfolio.Post("/custom/price-history", h.CustomPriceHistory)
	portfolio.Get("/:userId", h.GetProfile)
	portfolio.Get("/:userId/price-history", h.ProfilePriceHistory)
}

func corsOrigins() string {
	origins := viper.GetStringSlice("server.cors_origins")
	if len(origins) == 0 {
		return DefaultCORSOrigins
	}
	return strings.Join(origins, ", ")
}
