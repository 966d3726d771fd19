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

// Package chart manages the shared chart selection and builds the reconciled
// view of the selected symbol.
package chart

import (
	"cloud.google.com/go/logging"
	"context"
	"fmt"
	"time"

	"github.com/ajjensen13/cmafeed/internal/coord"
	"github.com/ajjensen13/cmafeed/internal/model"
	"github.com/ajjensen13/cmafeed/internal/reconcile"
	"github.com/ajjensen13/cmafeed/internal/universe"
	"github.com/ajjensen13/cmafeed/internal/util"
)

// Select stores sel as the active chart. A missing source id is looked up in
// the catalog by product name and otherwise defaults to the reference feed.
// The store is only written when the symbol or source id changed; Select
// reports whether it was.
func Select(ctx context.Context, store coord.Store, catalog model.Catalog, sel model.ChartSelection) (bool, error) {
	if sel.Symbol == "" {
		return false, fmt.Errorf("chart selection without symbol")
	}

	if sel.SourceID == "" {
		if p, ok := catalog.Lookup(sel.Product); ok {
			sel.SourceID = p.Source
		} else {
			sel.SourceID = universe.ReferenceSource
		}
	}

	var current model.ChartSelection
	found, err := store.Get(ctx, coord.ChartKey, &current)
	if err != nil {
		util.Logf(ctx, logging.Warning, "overwriting unreadable chart selection: %v", err)
	}
	if found && current.Symbol == sel.Symbol && current.SourceID == sel.SourceID {
		return false, nil
	}

	if err := store.Set(ctx, coord.ChartKey, sel); err != nil {
		return false, fmt.Errorf("failed to store chart selection: %w", err)
	}
	util.Logf(ctx, logging.Info, "selected chart %s (%s)", sel.Symbol, sel.SourceID)
	return true, nil
}

// Selected returns the stored selection, or the reference contract traded on
// today when nothing usable is stored.
func Selected(ctx context.Context, store coord.Store, today time.Time) model.ChartSelection {
	var sel model.ChartSelection
	found, err := store.Get(ctx, coord.ChartKey, &sel)
	if err != nil {
		util.Logf(ctx, logging.Warning, "ignoring chart selection: %v", err)
	}
	if err != nil || !found || sel.Symbol == "" {
		ref := universe.Rollover(today, 0)
		return model.ChartSelection{Symbol: ref.Symbol, SourceID: ref.SourceID, Product: ref.Product}
	}
	if sel.SourceID == "" {
		sel.SourceID = universe.ReferenceSource
	}
	return sel
}

type Reader interface {
	History(ctx context.Context, symbol string) ([]model.HistoryCandle, error)
	Quote(ctx context.Context, symbol string) (model.QuoteRecord, bool, error)
}

type View struct {
	Symbol   string                `json:"symbol"`
	SourceID model.SourceID        `json:"sourceId"`
	Product  string                `json:"product,omitempty"`
	Live     *model.QuoteRecord    `json:"live,omitempty"`
	Series   []model.HistoryCandle `json:"series"`
	Trend    reconcile.Trend       `json:"trend"`
	Change   float64               `json:"change"`
}

// Show reads the stored series and live row of sel and merges them.
func Show(ctx context.Context, r Reader, sel model.ChartSelection, today time.Time) (View, error) {
	ctx = util.WithLoggerValue(ctx, "symbol", sel.Symbol)

	series, err := r.History(ctx, sel.Symbol)
	if err != nil {
		return View{}, fmt.Errorf("failed to read history of %s: %w", sel.Symbol, err)
	}

	live, found, err := r.Quote(ctx, sel.Symbol)
	if err != nil {
		return View{}, fmt.Errorf("failed to read quote of %s: %w", sel.Symbol, err)
	}

	v := View{Symbol: sel.Symbol, SourceID: sel.SourceID, Product: sel.Product, Series: series}
	if found {
		v.Live = &live
		v.Series = reconcile.Reconcile(series, live, today)
	}
	if v.Series == nil {
		v.Series = []model.HistoryCandle{}
	}
	v.Trend = reconcile.TrendOf(v.Series)
	v.Change = reconcile.Change(v.Series)
	return v, nil
}
