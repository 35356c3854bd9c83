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

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/penny-vault/pv-dashboard/common"
	"github.com/penny-vault/pv-dashboard/data/database"
	"github.com/penny-vault/pv-dashboard/handler"
	"github.com/penny-vault/pv-dashboard/observability/opentelemetry"
	"github.com/penny-vault/pv-dashboard/router"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	viper.BindEnv("server.port", "PORT")
	serveCmd.Flags().IntP("port", "p", 8000, "Port to run application server on")
	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))

	viper.BindEnv("server.cors_origins", "PVDASH_CORS_ORIGINS")
	serveCmd.Flags().StringSlice("cors-origins", []string{router.DefaultCORSOrigins}, "Origins allowed to call the API")
	viper.BindPFlag("server.cors_origins", serveCmd.Flags().Lookup("cors-origins"))

	viper.BindEnv("data.refresh", "PVDASH_DATA_REFRESH")
	serveCmd.Flags().Duration("refresh", 15*time.Minute, "How often to reload the return table; 0 disables reloading")
	viper.BindPFlag("data.refresh", serveCmd.Flags().Lookup("refresh"))

	viper.BindEnv("cache.local_size", "PVDASH_CACHE_LOCAL_SIZE")
	serveCmd.Flags().Int("cache-local-size", 256, "Number of responses kept in the in-process cache")
	viper.BindPFlag("cache.local_size", serveCmd.Flags().Lookup("cache-local-size"))

	viper.BindEnv("cache.redis", "PVDASH_CACHE_REDIS")
	serveCmd.Flags().Bool("cache-redis", false, "Share cached responses through redis")
	viper.BindPFlag("cache.redis", serveCmd.Flags().Lookup("cache-redis"))

	viper.BindEnv("cache.redis_url", "REDIS_URL")
	serveCmd.Flags().String("cache-redis-url", "redis://localhost:6379/0", "Redis connection URL")
	viper.BindPFlag("cache.redis_url", serveCmd.Flags().Lookup("cache-redis-url"))

	viper.BindEnv("cache.ttl", "PVDASH_CACHE_TTL")
	serveCmd.Flags().Duration("cache-ttl", 24*time.Hour, "How long redis keeps cached responses")
	viper.BindPFlag("cache.ttl", serveCmd.Flags().Lookup("cache-ttl"))

	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dashboard API server",
	Long:  `Run HTTP server that values user portfolios against the return table`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		shutdownTracing, err := opentelemetry.Setup()
		if err != nil {
			log.Fatal().Err(err).Msg("could not setup tracing")
		}
		defer func() {
			if err := shutdownTracing(ctx); err != nil {
				log.Error().Err(err).Msg("could not flush traces")
			}
		}()

		cache, err := common.NewCacheFromConfig()
		if err != nil {
			log.Fatal().Err(err).Msg("could not create response cache")
		}

		tables, err := newTableStore(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("could not load return table")
		}

		catalog, err := loadCatalog()
		if err != nil {
			log.Fatal().Err(err).Msg("could not load asset catalog")
		}

		app := router.NewApp(handler.New(tables, profileStore(), catalog, cache))

		// shutdown cleanly on interrupt
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt)
		go func() {
			sig := <-c // block until signal is read
			fmt.Printf("Received signal: '%s'; shutting down...\n", sig.String())
			if err := app.Shutdown(); err != nil {
				log.Fatal().Err(err).Msg("could not shutdown server")
			}
		}()

		// periodically pick up a refreshed return table
		refresh := viper.GetDuration("data.refresh")
		if refresh > 0 {
			scheduler := gocron.NewScheduler(time.UTC)
			if _, err := scheduler.Every(refresh).Do(func() {
				if err := tables.Reload(ctx); err != nil {
					log.Warn().Err(err).Msg("scheduled reload failed")
				}
			}); err != nil {
				log.Fatal().Err(err).Dur("Refresh", refresh).Msg("could not schedule table reload")
			}
			scheduler.StartAsync()
			defer scheduler.Stop()
		}

		if database.Connected() {
			defer database.LogOpenTransactions()
		}

		log.Info().Int("Port", viper.GetInt("server.port")).Str("TableVersion", tables.Table().Version()).Msg("starting server")
		if err := app.Listen(fmt.Sprintf(":%d", viper.GetInt("server.port"))); err != nil {
			log.Fatal().Err(err).Msg("server stopped")
		}
	},
}
