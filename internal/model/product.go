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
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// SourceID identifies the exchange feed a symbol belongs to. Catalog files
// carry it either as a number or as a string.
type SourceID string

func (s *SourceID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*s = ""
	case len(b) > 0 && b[0] == '"':
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = SourceID(v)
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("invalid source id %s: %w", b, err)
		}
		*s = SourceID(n.String())
	}
	return nil
}

type ProductSpec struct {
	Group  string   `json:"-"`
	Name   string   `json:"name"`
	Root   string   `json:"root"`
	Source SourceID `json:"source"`
	Months string   `json:"months,omitempty"`
	// Symbol overrides Root for products without contract months.
	Symbol string `json:"symbol,omitempty"`
}

type ProductGroup struct {
	Name     string
	Products []ProductSpec
}

// Catalog is the configured product universe, grouped by exchange. Groups keep
// the order they have in the source document.
type Catalog []ProductGroup

func (c *Catalog) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("failed to read catalog: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("catalog must be a json object, got %v", tok)
	}

	var ret Catalog
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("failed to read catalog group: %w", err)
		}
		name := tok.(string)

		var products []ProductSpec
		if err := dec.Decode(&products); err != nil {
			return fmt.Errorf("failed to decode catalog group %q: %w", name, err)
		}
		for i := range products {
			products[i].Group = name
		}
		ret = append(ret, ProductGroup{Name: name, Products: products})
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("failed to close catalog: %w", err)
	}

	*c = ret
	return nil
}

func (c Catalog) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, g := range c {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Quote(g.Name))
		buf.WriteByte(':')
		products := g.Products
		if products == nil {
			products = []ProductSpec{}
		}
		b, err := json.Marshal(products)
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Lookup returns the first product with the given display name.
func (c Catalog) Lookup(name string) (ProductSpec, bool) {
	for _, g := range c {
		for _, p := range g.Products {
			if p.Name == name {
				return p, true
			}
		}
	}
	return ProductSpec{}, false
}

// SymbolTarget is a concrete contract to poll during one cycle.
type SymbolTarget struct {
	Symbol   string
	SourceID SourceID
	Group    string
	Product  string
	Maturity time.Time
}

// ChartSelection is the chart the presentation layer last asked for.
type ChartSelection struct {
	Symbol   string   `json:"symbol"`
	SourceID SourceID `json:"sourceId"`
	Product  string   `json:"product,omitempty"`
	Period   string   `json:"period,omitempty"`
}

// SessionToken is the record shared between ingestion processes.
type SessionToken struct {
	SessionID string    `json:"sessionId"`
	UpdatedAt time.Time `json:"updatedAt"`
}
