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
	"io"
	"math"
	"sort"

	"github.com/guptarohit/asciigraph"
	"github.com/olekukonko/tablewriter"
	"github.com/penny-vault/pv-dashboard/common"
	"github.com/penny-vault/pv-dashboard/dataframe"
	"github.com/penny-vault/pv-dashboard/portfolio"
	"github.com/penny-vault/pv-dashboard/profile"
	"github.com/spf13/cobra"
)

var (
	historyHoldings string
	historyChart    bool
	historyLast     int
)

func init() {
	historyCmd.Flags().StringVar(&historyHoldings, "holdings", "", "value a custom portfolio given as ASSET=VALUE,ASSET=VALUE instead of a stored profile")
	historyCmd.Flags().BoolVar(&historyChart, "chart", false, "plot the portfolio value in the terminal")
	historyCmd.Flags().IntVar(&historyLast, "last", 20, "number of trailing days to print; 0 prints everything")

	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history [userId]",
	Short: "Print the value history of a portfolio",
	Long: `Value a stored user profile (or the holdings given with --holdings) against the return
table and print the portfolio and benchmark values for each trading day.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		tables, err := newTableStore(ctx)
		if err != nil {
			return err
		}
		table := tables.Table()

		var user *profile.UserProfile
		switch {
		case historyHoldings != "":
			req, err := parseHoldings(historyHoldings)
			if err != nil {
				return err
			}
			catalog, err := loadCatalog()
			if err != nil {
				return err
			}
			user, err = profile.BuildCustomProfile(req, catalog, table.End())
			if err != nil {
				return err
			}
		case len(args) == 1:
			user, err = profileStore().Load(args[0])
			if err != nil {
				return err
			}
		default:
			return fmt.Errorf("specify a user id or --holdings")
		}

		valuation, err := portfolio.NewEngine(table).Valuate(user.Snapshot())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if valuation.Portfolio.Len() == 0 {
			fmt.Fprintln(out, "no priced holdings; nothing to value")
			return nil
		}

		df := valuationFrame(valuation)
		if historyLast > 0 && df.Len() > historyLast {
			df = df.Trim(df.Dates[df.Len()-historyLast], df.End())
		}
		fmt.Fprintf(out, "%s (%s) as of %s\n\n", user.Name, user.UserID, table.End().Format(common.DateFormat))
		fmt.Fprintln(out, df.Table())

		writeSummary(out, valuation)

		if historyChart {
			fmt.Fprintln(out)
			fmt.Fprintln(out, asciigraph.Plot(valuation.Portfolio.Values,
				asciigraph.Height(15),
				asciigraph.Width(80),
				asciigraph.Caption("portfolio value (USD)"),
			))
		}

		return nil
	},
}

// valuationFrame lays out the portfolio and each benchmark as columns of a dataframe
func valuationFrame(valuation *portfolio.Valuation) *dataframe.DataFrame {
	df := &dataframe.DataFrame{
		Dates:    valuation.Portfolio.Dates,
		ColNames: []string{"portfolio"},
		Vals:     [][]float64{valuation.Portfolio.Values},
	}

	for _, name := range benchmarkNames(valuation) {
		df.ColNames = append(df.ColNames, name)
		df.Vals = append(df.Vals, valuation.Benchmarks[name].Values)
	}

	return df
}

func benchmarkNames(valuation *portfolio.Valuation) []string {
	names := make([]string, 0, len(valuation.Benchmarks))
	for name := range valuation.Benchmarks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func writeSummary(out io.Writer, valuation *portfolio.Valuation) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Series", "Start", "End", "Total Return", "Volatility", "Max Draw Down"})
	table.SetBorder(false)

	addRow := func(name string, series *portfolio.Series) {
		summary := portfolio.Summarize(series)
		dd := "-"
		if summary.MaxDrawDown != nil {
			dd = fmt.Sprintf("%.2f%% (%s to %s)", summary.MaxDrawDown.LossPercent*100,
				summary.MaxDrawDown.Begin.Format(common.DateFormat), summary.MaxDrawDown.End.Format(common.DateFormat))
		}
		table.Append([]string{
			name,
			fmt.Sprintf("%.2f", portfolio.RoundCents(summary.StartValue)),
			fmt.Sprintf("%.2f", portfolio.RoundCents(summary.EndValue)),
			percent(summary.TotalReturn),
			percent(summary.Volatility),
			dd,
		})
	}

	addRow("portfolio", valuation.Portfolio)
	for _, name := range benchmarkNames(valuation) {
		addRow(name, valuation.Benchmarks[name])
	}

	table.Render()
}

func percent(val float64) string {
	if math.IsNaN(val) {
		return "-"
	}
	return fmt.Sprintf("%.2f%%", val*100)
}
