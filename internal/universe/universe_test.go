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

package universe

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajjensen13/cmafeed/internal/model"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 10, 30, 0, 0, time.UTC)
}

func symbols(ts []model.SymbolTarget) []string {
	ret := make([]string, len(ts))
	for i, t := range ts {
		ret[i] = t.Symbol
	}
	return ret
}

func TestMonthCode(t *testing.T) {
	got := ""
	for m := time.January; m <= time.December; m++ {
		got += MonthCode(m)
	}
	assert.Equal(t, "FGHJKMNQUVXZ", got)
	assert.Panics(t, func() { MonthCode(13) })
}

func TestRollover(t *testing.T) {
	testCases := []struct {
		name   string
		today  time.Time
		offset int
		want   string
	}{
		{name: "day before cutoff advances one month", today: date(2024, 1, 10), want: "DOLG24"},
		{name: "cutoff day advances one month", today: date(2024, 1, 25), want: "DOLG24"},
		{name: "after cutoff skips expiring contract", today: date(2024, 1, 28), want: "DOLH24"},
		{name: "next contract", today: date(2024, 1, 10), offset: 1, want: "DOLH24"},
		{name: "december rolls into next year", today: date(2024, 12, 10), want: "DOLF25"},
		{name: "late december skips january", today: date(2024, 12, 28), want: "DOLG25"},
		{name: "late november lands on january", today: date(2024, 11, 30), want: "DOLF25"},
		{name: "end of month does not overflow", today: date(2024, 1, 31), want: "DOLH24"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Rollover(tc.today, tc.offset)
			assert.Equal(t, tc.want, got.Symbol)
			assert.Equal(t, ReferenceSource, got.SourceID)
		})
	}
}

func TestRolloverAdvanceForEveryDay(t *testing.T) {
	start := date(2023, 1, 1)
	for d := start; d.Before(date(2025, 1, 1)); d = d.AddDate(0, 0, 1) {
		want := 1
		if d.Day() > 25 {
			want = 2
		}
		expected := time.Date(d.Year(), d.Month()+time.Month(want), 1, 0, 0, 0, 0, time.UTC)
		got := Rollover(d, 0)

		require.Equal(t, expected, got.Maturity, d.Format("2006-01-02"))
		require.Equal(t, fmt.Sprintf("DOL%s%02d", MonthCode(expected.Month()), expected.Year()%100), got.Symbol, d.Format("2006-01-02"))
	}
}

func TestGenerate(t *testing.T) {
	catalog := model.Catalog{
		{Name: "BMF", Products: []model.ProductSpec{
			{Name: "Dólar", Root: "DOL", Source: "57", Months: "FGHJKMNQUVXZ"},
			{Name: "Ibovespa", Root: "IND", Source: "57", Months: "GJMQVZ"},
		}},
		{Name: "CBOT", Products: []model.ProductSpec{
			{Name: "Soja", Root: "ZS", Source: "30", Months: "FHKNQUX"},
		}},
		{Name: "FX", Products: []model.ProductSpec{
			{Name: "EUR/USD", Root: "EURUSD", Source: "1"},
			{Name: "Spot", Root: "USD", Symbol: "USDBRL", Source: "1"},
		}},
	}

	today := date(2024, 1, 10)
	got := Generate(today, catalog)

	dol := symbols(got[:14])
	assert.Equal(t, []string{
		"DOLF24", "DOLG24", "DOLH24", "DOLJ24", "DOLK24", "DOLM24", "DOLN24",
		"DOLQ24", "DOLU24", "DOLV24", "DOLX24", "DOLZ24", "DOLF25", "DOLG25",
	}, dol)

	ind := symbols(got[14:21])
	assert.Equal(t, []string{"INDG24", "INDJ24", "INDM24", "INDQ24", "INDV24", "INDZ24", "INDG25"}, ind)

	var zs []string
	for _, target := range got {
		if target.Product == "Soja" {
			zs = append(zs, target.Symbol)
			assert.Equal(t, "CBOT", target.Group)
		}
	}
	assert.Equal(t, []string{"ZSF4", "ZSH4", "ZSK4", "ZSN4", "ZSQ4", "ZSU4", "ZSX4", "ZSF5", "ZSH5", "ZSK5", "ZSN5", "ZSQ5", "ZSU5", "ZSX5"}, zs)

	tail := got[len(got)-2:]
	assert.Equal(t, "EURUSD", tail[0].Symbol)
	assert.Equal(t, "USDBRL", tail[1].Symbol)
	assert.Equal(t, model.Day(today), tail[0].Maturity)

	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), got[1].Maturity)
	assert.Equal(t, got, Generate(today, catalog), "generation must be deterministic")
}

func TestYearSuffix(t *testing.T) {
	assert.Equal(t, "05", YearSuffix(date(2005, 3, 1), "57"))
	assert.Equal(t, "5", YearSuffix(date(2005, 3, 1), CBOTSource))
	assert.Equal(t, "0", YearSuffix(date(2030, 3, 1), CBOTSource))
	assert.Equal(t, 24, Horizon(CBOTSource))
	assert.Equal(t, 14, Horizon("57"))
}
