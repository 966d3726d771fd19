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

package db

import (
	"testing"
	"time"

	"github.com/jackc/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajjensen13/cmafeed/internal/model"
)

func TestTransformQuote(t *testing.T) {
	sp := time.FixedZone("BRT", -3*60*60)
	q := model.QuoteRecord{
		Timestamp:   time.Date(2024, 1, 10, 22, 30, 0, 0, sp),
		Group:       "BMF",
		Product:     "Dólar",
		Symbol:      "DOLG24",
		Description: "Dólar DOLG24",
		Last:        4920.5,
		Previous:    4900,
		Time:        "17:59",
		Maturity:    time.Date(2024, 2, 1, 0, 0, 0, 0, sp),
	}

	row := TransformQuote(q)
	assert.Equal(t, pgtype.Present, row.Symbol.Status)
	assert.Equal(t, pgtype.Present, row.Maturity.Status)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), row.Maturity.Time, "maturity keeps its calendar date")
	assert.Len(t, row.values(), len(snapshotColumns))

	back := row.Model()
	assert.Equal(t, q.Symbol, back.Symbol)
	assert.Equal(t, q.Last, back.Last)
	assert.Equal(t, q.Time, back.Time)
	assert.True(t, q.Timestamp.Equal(back.Timestamp))
}

func TestTransformCandle(t *testing.T) {
	c := model.HistoryCandle{Symbol: "DOLG24", Date: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), Open: 1, High: 3, Low: 0.5, Close: 2, Volume: 100}

	row := TransformCandle(c)
	assert.Equal(t, 3.0, row.Max.Float)
	assert.Equal(t, 0.5, row.Min.Float)
	assert.Len(t, row.values(), len(historyColumns))
	assert.Equal(t, c, row.Model())
}

func TestHistoryRowsRejectsForeignSymbols(t *testing.T) {
	day := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	rows, err := historyRows("DOLG24", []model.HistoryCandle{{Symbol: "DOLG24", Date: day}, {Symbol: "DOLG24", Date: day.AddDate(0, 0, 1)}})
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	_, err = historyRows("DOLG24", []model.HistoryCandle{{Symbol: "DOLH24", Date: day}})
	assert.Error(t, err)
}

func TestSnapshotRows(t *testing.T) {
	rows := snapshotRows([]model.QuoteRecord{{Symbol: "A"}, {Symbol: "B"}})
	require.Len(t, rows, 2)
	assert.Equal(t, "A", rows[0][3].(*pgtype.Text).String)
	assert.Equal(t, "B", rows[1][3].(*pgtype.Text).String)
}

func TestColumnList(t *testing.T) {
	assert.Equal(t, "symbol, date_ref, open, max, min, close, volume", columnList(historyColumns))
}
