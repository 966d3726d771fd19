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

// Package universe expands the product catalog into the concrete contracts
// that are polled on a given date.
package universe

import (
	"fmt"
	"strings"
	"time"

	"github.com/ajjensen13/cmafeed/internal/model"
)

const (
	// CBOTSource is the feed whose contracts use a one digit year and a
	// longer listing horizon.
	CBOTSource model.SourceID = "30"

	// ReferenceRoot and ReferenceSource identify the near-month reference
	// contract tracked by history ingestion.
	ReferenceRoot                    = "DOL"
	ReferenceSource   model.SourceID = "57"
	ReferenceGroup                   = "BMF"
	ReferenceProduct                 = "Dólar"
	rolloverCutoffDay                = 25

	cbotHorizon    = 24
	defaultHorizon = 14
)

var monthCodes = [...]string{"F", "G", "H", "J", "K", "M", "N", "Q", "U", "V", "X", "Z"}

// MonthCode maps a calendar month to its futures month letter.
func MonthCode(m time.Month) string {
	if m < time.January || m > time.December {
		panic(fmt.Sprintf("invalid month %d", m))
	}
	return monthCodes[m-1]
}

// Horizon is the number of months ahead searched for listed contracts.
func Horizon(source model.SourceID) int {
	if source == CBOTSource {
		return cbotHorizon
	}
	return defaultHorizon
}

// YearSuffix renders the contract year the way the feed expects it.
func YearSuffix(t time.Time, source model.SourceID) string {
	yy := fmt.Sprintf("%02d", t.Year()%100)
	if source == CBOTSource {
		return yy[1:]
	}
	return yy
}

// addMonths returns the first day of the month n months after t's month.
func addMonths(t time.Time, n int) time.Time {
	return time.Date(t.Year(), t.Month()+time.Month(n), 1, 0, 0, 0, 0, t.Location())
}

// Generate lists the targets for every product in the catalog, in catalog
// order. The result depends only on the date of today and the catalog.
func Generate(today time.Time, catalog model.Catalog) []model.SymbolTarget {
	var ret []model.SymbolTarget
	for _, group := range catalog {
		for _, p := range group.Products {
			ret = append(ret, Product(today, group.Name, p)...)
		}
	}
	return ret
}

// Product lists the targets of a single product.
func Product(today time.Time, group string, p model.ProductSpec) []model.SymbolTarget {
	if p.Months == "" {
		symbol := p.Root
		if p.Symbol != "" {
			symbol = p.Symbol
		}
		return []model.SymbolTarget{{
			Symbol:   symbol,
			SourceID: p.Source,
			Group:    group,
			Product:  p.Name,
			Maturity: model.Day(today),
		}}
	}

	var ret []model.SymbolTarget
	for i := 0; i < Horizon(p.Source); i++ {
		month := addMonths(today, i)
		code := MonthCode(month.Month())
		if !strings.Contains(p.Months, code) {
			continue
		}
		ret = append(ret, model.SymbolTarget{
			Symbol:   p.Root + code + YearSuffix(month, p.Source),
			SourceID: p.Source,
			Group:    group,
			Product:  p.Name,
			Maturity: month,
		})
	}
	return ret
}

// Rollover returns the reference contract that is actively traded on today,
// shifted by offset further months. After the cutoff day the contract about to
// expire is skipped.
func Rollover(today time.Time, offset int) model.SymbolTarget {
	advance := 1
	if today.Day() > rolloverCutoffDay {
		advance = 2
	}
	month := addMonths(today, advance+offset)
	return model.SymbolTarget{
		Symbol:   ReferenceRoot + MonthCode(month.Month()) + fmt.Sprintf("%02d", month.Year()%100),
		SourceID: ReferenceSource,
		Group:    ReferenceGroup,
		Product:  ReferenceProduct,
		Maturity: month,
	}
}
