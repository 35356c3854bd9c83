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
	"strings"
	"time"

	"github.com/penny-vault/pv-dashboard/data"
	"github.com/penny-vault/pv-dashboard/data/database"
	"github.com/penny-vault/pv-dashboard/profile"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var updateAppend bool

func init() {
	viper.BindEnv("ingest.period", "PVDASH_INGEST_PERIOD")
	updateCmd.Flags().String("period", "5y", "How much history to fetch, e.g. 5y, 18mo, 90d or max")
	viper.BindPFlag("ingest.period", updateCmd.Flags().Lookup("period"))

	viper.BindEnv("ingest.workers", "PVDASH_INGEST_WORKERS")
	updateCmd.Flags().Int("workers", 6, "Number of assets to fetch concurrently")
	viper.BindPFlag("ingest.workers", updateCmd.Flags().Lookup("workers"))

	viper.BindEnv("ingest.sp500_ticker", "PVDASH_SP500_TICKER")
	updateCmd.Flags().String("sp500-ticker", "SPY", "Ticker used as the S&P 500 benchmark")
	viper.BindPFlag("ingest.sp500_ticker", updateCmd.Flags().Lookup("sp500-ticker"))

	updateCmd.Flags().BoolVar(&updateAppend, "append", false, "Only fetch assets missing from the existing return table")

	rootCmd.AddCommand(updateCmd)
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Refresh the return table from Tiingo",
	Long: `Download daily closes for every asset in the catalog, compute daily returns and replace
the return table. When data.source is database the table is also written to PostgreSQL.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		token := viper.GetString("tiingo.token")
		if token == "" {
			return fmt.Errorf("tiingo.token must be set to fetch market data")
		}

		begin, err := data.ParsePeriod(viper.GetString("ingest.period"), time.Now())
		if err != nil {
			return err
		}

		catalog, err := loadCatalog()
		if err != nil {
			return err
		}

		assets := profile.IngestAssets(catalog.Assets())
		log.Info().Int("NumAssets", len(assets)).Time("Begin", begin).Msg("fetching market data")

		tiingo := data.NewTiingo(token, viper.GetString("tiingo.url"))
		ingestor := data.NewIngestor(tiingo, viper.GetInt("ingest.workers"), viper.GetString("ingest.sp500_ticker"))

		result, err := ingestor.Update(ctx, assets, begin, data.ReturnsFilePath(), updateAppend)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "fetched: %s\n", strings.Join(result.Fetched, ", "))
		if len(result.Failed) > 0 {
			fmt.Fprintf(out, "failed: %s\n", strings.Join(result.Failed, ", "))
		}
		fmt.Fprintf(out, "wrote %d days to %s\n", result.Frame.Len(), data.ReturnsFilePath())

		if viper.GetString("data.source") == "database" {
			if err := database.Connect(ctx); err != nil {
				return err
			}
			if err := data.NewDBLoader().Save(ctx, result.Frame); err != nil {
				return err
			}
			fmt.Fprintln(out, "saved return table to database")
		}

		return nil
	},
}
