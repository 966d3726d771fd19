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

// Package reconcile merges the latest live quote into a daily candle series.
package reconcile

import (
	"time"

	"github.com/ajjensen13/cmafeed/internal/model"
)

type Trend int

const (
	Up Trend = iota
	Down
)

func (t Trend) String() string {
	if t == Down {
		return "down"
	}
	return "up"
}

func (t Trend) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Reconcile returns series with live applied to today's bar. When the last
// bar is dated today its close is replaced and its range widened; otherwise a
// bar for today is appended. The input slice is not modified. A live quote
// without a positive last price leaves the series as is.
func Reconcile(series []model.HistoryCandle, live model.QuoteRecord, today time.Time) []model.HistoryCandle {
	ret := make([]model.HistoryCandle, len(series), len(series)+1)
	copy(ret, series)

	if live.Last <= 0 {
		return ret
	}

	if n := len(ret); n > 0 && model.SameDay(ret[n-1].Date, today) {
		ret[n-1] = patch(ret[n-1], live)
		return ret
	}

	symbol := live.Symbol
	if symbol == "" && len(ret) > 0 {
		symbol = ret[len(ret)-1].Symbol
	}
	return append(ret, synthesize(symbol, live, today))
}

func patch(c model.HistoryCandle, live model.QuoteRecord) model.HistoryCandle {
	c.Close = live.Last
	for _, v := range []float64{live.High, live.Last} {
		if v > c.High {
			c.High = v
		}
	}
	for _, v := range []float64{live.Low, live.Last} {
		if v > 0 && (c.Low <= 0 || v < c.Low) {
			c.Low = v
		}
	}
	if live.Volume > c.Volume {
		c.Volume = live.Volume
	}
	return c
}

func synthesize(symbol string, live model.QuoteRecord, today time.Time) model.HistoryCandle {
	c := model.HistoryCandle{
		Symbol: symbol,
		Date:   model.Day(today),
		Open:   live.Last,
		High:   live.Last,
		Low:    live.Last,
		Close:  live.Last,
		Volume: live.Volume,
	}
	if live.Open <= 0 {
		return c
	}

	c.Open = live.Open
	return patch(c, live)
}

// TrendOf compares the last close with the one before it. Ties and series
// shorter than two bars are Up.
func TrendOf(series []model.HistoryCandle) Trend {
	n := len(series)
	if n < 2 || series[n-1].Close >= series[n-2].Close {
		return Up
	}
	return Down
}

// Change is the difference between the last close and the previous one.
func Change(series []model.HistoryCandle) float64 {
	n := len(series)
	if n < 2 {
		return 0
	}
	return series[n-1].Close - series[n-2].Close
}
