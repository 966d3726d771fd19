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

package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajjensen13/cmafeed/internal/model"
)

var today = time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC)

func series() []model.HistoryCandle {
	return []model.HistoryCandle{
		{Symbol: "DOLG24", Date: today.AddDate(0, 0, -1), Open: 4.9, High: 5.0, Low: 4.85, Close: 4.95, Volume: 100},
		{Symbol: "DOLG24", Date: today, Open: 4.95, High: 5.05, Low: 4.92, Close: 5.0, Volume: 50},
	}
}

func TestReconcilePatchesToday(t *testing.T) {
	in := series()
	live := model.QuoteRecord{Symbol: "DOLG24", Last: 5.1234, High: 5.13, Low: 4.90, Open: 4.95, Volume: 80}

	got := Reconcile(in, live, today.Add(15*time.Hour))
	require.Len(t, got, 2)
	last := got[1]
	assert.Equal(t, 5.1234, last.Close)
	assert.Equal(t, 5.13, last.High)
	assert.Equal(t, 4.90, last.Low)
	assert.Equal(t, 4.95, last.Open)
	assert.Equal(t, 80.0, last.Volume)

	assert.Equal(t, 5.0, in[1].Close, "input is not modified")
	assert.Equal(t, Up, TrendOf(got))
}

func TestReconcileWidensWithLast(t *testing.T) {
	live := model.QuoteRecord{Symbol: "DOLG24", Last: 4.80}

	got := Reconcile(series(), live, today)
	last := got[1]
	assert.Equal(t, 4.80, last.Close)
	assert.Equal(t, 4.80, last.Low)
	assert.Equal(t, 5.05, last.High, "zero live high does not shrink the range")
	assert.Equal(t, Down, TrendOf(got))
}

func TestReconcileAppendsNewDay(t *testing.T) {
	in := series()[:1]
	live := model.QuoteRecord{Symbol: "DOLG24", Last: 5.1234, High: 5.2, Low: 5.0, Open: 5.01}

	got := Reconcile(in, live, today)
	require.Len(t, got, 2)
	assert.Len(t, in, 1)
	assert.Equal(t, model.HistoryCandle{Symbol: "DOLG24", Date: today, Open: 5.01, High: 5.2, Low: 5.0, Close: 5.1234}, got[1])
}

func TestReconcileOpenFallback(t *testing.T) {
	live := model.QuoteRecord{Symbol: "WINJ24", Last: 130000, High: 131000, Low: 129000}

	got := Reconcile(nil, live, today)
	require.Len(t, got, 1)
	assert.Equal(t, model.HistoryCandle{Symbol: "WINJ24", Date: today, Open: 130000, High: 130000, Low: 130000, Close: 130000}, got[0])
	assert.Equal(t, Up, TrendOf(got))
}

func TestReconcileWithoutLivePrice(t *testing.T) {
	in := series()
	got := Reconcile(in, model.QuoteRecord{Symbol: "DOLG24", Previous: 5.0}, today)
	assert.Equal(t, in, got)
}

func TestTrendOf(t *testing.T) {
	tests := []struct {
		name   string
		closes []float64
		want   Trend
	}{
		{"empty", nil, Up},
		{"single", []float64{5}, Up},
		{"rising", []float64{5, 5.1}, Up},
		{"flat", []float64{5, 5}, Up},
		{"falling", []float64{5, 4.9}, Down},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s []model.HistoryCandle
			for _, c := range tt.closes {
				s = append(s, model.HistoryCandle{Close: c})
			}
			assert.Equal(t, tt.want, TrendOf(s))
		})
	}
}

func TestChange(t *testing.T) {
	assert.InDelta(t, 0.05, Change(series()), 1e-9)
	assert.Zero(t, Change(nil))
}
