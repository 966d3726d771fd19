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

	"github.com/ajjensen13/cmafeed/internal/model"
	"github.com/ajjensen13/cmafeed/internal/universe"
	"github.com/ajjensen13/cmafeed/internal/util"
)

var catalogUniverse bool

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Print the product catalog as the ingestors read it",
	Long: `Prints the configured product catalog with groups in document order. With
--universe it prints the contracts the quotes ingestor polls today instead.`,
	Run: func(cmd *cobra.Command, args []string) {
		lg, cleanup := logger()
		defer cleanup()

		ctx := util.WithLogger(context.Background(), lg)

		cat, err := catalog(ctx)
		if err != nil {
			panic(lg.ErrorErr(fmt.Errorf("failed to load catalog: %w", err)))
		}

		var out interface{} = cat
		if catalogUniverse {
			tz, err := timezone()
			if err != nil {
				panic(lg.ErrorErr(fmt.Errorf("failed to load timezone: %w", err)))
			}
			out = universeTargets(time.Now().In(tz), cat)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			panic(lg.ErrorErr(err))
		}
	},
}

type universeTarget struct {
	Symbol   string         `json:"symbol"`
	SourceID model.SourceID `json:"sourceId"`
	Group    string         `json:"group"`
	Product  string         `json:"product"`
	Maturity string         `json:"maturity"`
}

func universeTargets(today time.Time, cat model.Catalog) []universeTarget {
	targets := universe.Generate(today, cat)
	ret := make([]universeTarget, len(targets))
	for i, t := range targets {
		ret[i] = universeTarget{
			Symbol:   t.Symbol,
			SourceID: t.SourceID,
			Group:    t.Group,
			Product:  t.Product,
			Maturity: t.Maturity.Format("2006-01-02"),
		}
	}
	return ret
}

func init() {
	catalogCmd.Flags().BoolVar(&catalogUniverse, "universe", false, "print the generated contracts instead of the catalog")
	rootCmd.AddCommand(catalogCmd)
}
