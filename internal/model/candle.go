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

package model

import (
	"time"
)

// HistoryCandle is one daily bar of the historical store.
type HistoryCandle struct {
	Symbol string    `yaml:"symbol,omitempty" json:"symbol,omitempty"`
	Date   time.Time `yaml:"date,omitempty" json:"date,omitempty"`
	Open   float64   `yaml:"open" json:"open"`
	High   float64   `yaml:"high" json:"high"`
	Low    float64   `yaml:"low" json:"low"`
	Close  float64   `yaml:"close" json:"close"`
	Volume float64   `yaml:"volume" json:"volume"`
}

// QuoteRecord is one row of the live snapshot.
type QuoteRecord struct {
	Timestamp   time.Time `json:"timestamp"`
	Group       string    `json:"group"`
	Product     string    `json:"product"`
	Symbol      string    `json:"symbol"`
	Description string    `json:"description"`
	Last        float64   `json:"last"`
	High        float64   `json:"high"`
	Low         float64   `json:"low"`
	Open        float64   `json:"open"`
	Change      float64   `json:"change"`
	PChange     float64   `json:"pchange"`
	Previous    float64   `json:"previous"`
	Volume      float64   `json:"volume"`
	Time        string    `json:"time"`
	Bid         float64   `json:"bid"`
	Ask         float64   `json:"ask"`
	Maturity    time.Time `json:"maturity"`
}

// Day truncates t to midnight in its own location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SameDay reports whether a and b fall on the same calendar date.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
