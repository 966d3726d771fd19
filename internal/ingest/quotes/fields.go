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

package quotes

import (
	"fmt"
	"time"

	"github.com/ajjensen13/cmafeed/internal/gateway"
	"github.com/ajjensen13/cmafeed/internal/model"
)

// FieldCodes are requested with every quotes batch.
var FieldCodes = []string{"24", "18", "16", "17", "13", "10", "26", "01", "14", "15", "1A"}

var fieldNames = map[string]string{
	"24": "Time",
	"18": "Open",
	"16": "High",
	"17": "Low",
	"13": "Volume",
	"10": "Last",
	"26": "Change",
	"01": "PChange",
	"14": "Bid",
	"15": "Ask",
	"1A": "Previous",
}

// Named maps gateway field codes to field names, dropping unknown codes.
func Named(fields map[string]interface{}) map[string]interface{} {
	ret := make(map[string]interface{}, len(fields))
	for code, v := range fields {
		if name, ok := fieldNames[code]; ok {
			ret[name] = v
		}
	}
	return ret
}

// DisplayPrice picks last, then previous close, then bid.
func DisplayPrice(last, previous, bid float64) float64 {
	switch {
	case last > 0:
		return last
	case previous > 0:
		return previous
	default:
		return bid
	}
}

// Record builds the snapshot row for a quote. It reports false when the
// symbol has no positive last, previous, bid or ask.
func Record(now time.Time, t model.SymbolTarget, fields map[string]interface{}) (model.QuoteRecord, bool) {
	vals := Named(fields)
	num := func(name string) float64 { return gateway.ParseFloat(vals[name]) }

	last, prev, bid, ask := num("Last"), num("Previous"), num("Bid"), num("Ask")
	if last <= 0 && prev <= 0 && bid <= 0 && ask <= 0 {
		return model.QuoteRecord{}, false
	}

	tm := "-"
	if v, ok := vals["Time"]; ok && v != nil {
		tm = fmt.Sprint(v)
	}

	return model.QuoteRecord{
		Timestamp:   now,
		Group:       t.Group,
		Product:     t.Product,
		Symbol:      t.Symbol,
		Description: t.Product + " " + t.Symbol,
		Last:        DisplayPrice(last, prev, bid),
		High:        num("High"),
		Low:         num("Low"),
		Open:        num("Open"),
		Change:      num("Change"),
		PChange:     num("PChange"),
		Previous:    prev,
		Volume:      num("Volume"),
		Time:        tm,
		Bid:         bid,
		Ask:         ask,
		Maturity:    t.Maturity,
	}, true
}
