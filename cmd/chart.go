/*
Copyright © 2020 A. Jensen <jensen.aaro@gmail.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ajjensen13/cmafeed/internal/chart"
	"github.com/ajjensen13/cmafeed/internal/model"
	"github.com/ajjensen13/cmafeed/internal/util"
)

var (
	chartProduct string
	chartSource  string
	chartPeriod  string
)

var chartCmd = &cobra.Command{
	Use:   "chart",
	Short: "Select or inspect the chart the history ingestor keeps fresh",
}

var chartSelectCmd = &cobra.Command{
	Use:   "select SYMBOL",
	Short: "Make SYMBOL the active chart",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		lg, cleanup := logger()
		defer cleanup()

		ctx := util.WithLogger(context.Background(), lg)

		store, cleanupStore, err := coordStore(ctx, lg)
		if err != nil {
			panic(lg.ErrorErr(fmt.Errorf("failed to open coordination store: %w", err)))
		}
		defer cleanupStore()

		var cat model.Catalog
		if chartSource == "" && chartProduct != "" {
			cat, err = catalog(ctx)
			if err != nil {
				lg.Warningf("resolving source id without catalog: %v", err)
			}
		}

		sel := model.ChartSelection{
			Symbol:   args[0],
			SourceID: model.SourceID(chartSource),
			Product:  chartProduct,
			Period:   chartPeriod,
		}
		changed, err := chart.Select(ctx, store, cat, sel)
		if err != nil {
			panic(lg.ErrorErr(err))
		}
		if !changed {
			lg.Defaultf("%s is already the active chart", sel.Symbol)
		}
	},
}

var chartShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the active chart with the live quote applied",
	Run: func(cmd *cobra.Command, args []string) {
		lg, cleanup := logger()
		defer cleanup()

		ctx := util.WithLogger(context.Background(), lg)

		tz, err := timezone()
		if err != nil {
			panic(lg.ErrorErr(fmt.Errorf("failed to load timezone: %w", err)))
		}

		store, cleanupStore, err := coordStore(ctx, lg)
		if err != nil {
			panic(lg.ErrorErr(fmt.Errorf("failed to open coordination store: %w", err)))
		}
		defer cleanupStore()

		pool, cleanupPool, err := openPool(ctx)
		if err != nil {
			panic(lg.ErrorErr(fmt.Errorf("failed to open database: %w", err)))
		}
		defer cleanupPool()

		today := model.Day(time.Now().In(tz))
		sel := chart.Selected(ctx, store, today)

		v, err := chart.Show(ctx, marketStore(lg, pool), sel, today)
		if err != nil {
			panic(lg.ErrorErr(err))
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			panic(lg.ErrorErr(err))
		}
	},
}

func init() {
	chartSelectCmd.Flags().StringVar(&chartProduct, "product", "", "catalog product name of the symbol")
	chartSelectCmd.Flags().StringVar(&chartSource, "source", "", "gateway source id (looked up from --product when empty)")
	chartSelectCmd.Flags().StringVar(&chartPeriod, "period", "", "display period requested by the presentation layer")

	chartCmd.AddCommand(chartSelectCmd)
	chartCmd.AddCommand(chartShowCmd)
	rootCmd.AddCommand(chartCmd)
}
