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
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const catalogJSON = `{
	"BMF": [
		{"name": "Dólar", "root": "DOL", "source": 57, "months": "FGHJKMNQUVXZ"},
		{"name": "Índice", "root": "IND", "source": "57", "months": "GJMQVZ"}
	],
	"CBOT": [
		{"name": "Soja", "root": "ZS", "source": 30, "months": "FHKNQUX"}
	],
	"FX": [
		{"name": "Euro", "root": "EURUSD", "source": "57"}
	]
}`

func TestCatalogKeepsDocumentOrder(t *testing.T) {
	var c Catalog
	require.NoError(t, json.Unmarshal([]byte(catalogJSON), &c))

	require.Len(t, c, 3)
	assert.Equal(t, "BMF", c[0].Name)
	assert.Equal(t, "CBOT", c[1].Name)
	assert.Equal(t, "FX", c[2].Name)

	assert.Equal(t, SourceID("57"), c[0].Products[0].Source)
	assert.Equal(t, SourceID("30"), c[1].Products[0].Source)
	assert.Equal(t, "CBOT", c[1].Products[0].Group)
	assert.Empty(t, c[2].Products[0].Months)

	b, err := json.Marshal(c)
	require.NoError(t, err)
	var again Catalog
	require.NoError(t, json.Unmarshal(b, &again))
	assert.Equal(t, c, again)
}

func TestCatalogMarshalKeepsGroupOrder(t *testing.T) {
	c := Catalog{
		{Name: "FX", Products: []ProductSpec{{Name: "Euro", Root: "EURUSD", Source: "57"}}},
		{Name: "BMF"},
	}

	b, err := json.Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t, `{"FX":[{"name":"Euro","root":"EURUSD","source":"57"}],"BMF":[]}`, string(b))
	assert.Less(t, strings.Index(string(b), `"FX"`), strings.Index(string(b), `"BMF"`))
}

func TestCatalogRejectsArrays(t *testing.T) {
	var c Catalog
	assert.Error(t, json.Unmarshal([]byte(`[{"name": "x"}]`), &c))
	assert.Error(t, json.Unmarshal([]byte(`{"BMF": [{"source": {}}]}`), &c))
}

func TestCatalogLookup(t *testing.T) {
	var c Catalog
	require.NoError(t, json.Unmarshal([]byte(catalogJSON), &c))

	p, ok := c.Lookup("Soja")
	require.True(t, ok)
	assert.Equal(t, "ZS", p.Root)

	_, ok = c.Lookup("Café")
	assert.False(t, ok)
}

func TestSourceID(t *testing.T) {
	tests := []struct {
		in   string
		want SourceID
	}{
		{`57`, "57"},
		{`"57"`, "57"},
		{`null`, ""},
		{`"1A"`, "1A"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var s SourceID
			require.NoError(t, json.Unmarshal([]byte(tt.in), &s))
			assert.Equal(t, tt.want, s)
		})
	}
}

func TestSameDay(t *testing.T) {
	loc := time.FixedZone("BRT", -3*60*60)
	a := time.Date(2024, time.January, 10, 0, 5, 0, 0, loc)
	b := time.Date(2024, time.January, 10, 23, 55, 0, 0, loc)

	assert.True(t, SameDay(a, b))
	assert.False(t, SameDay(a, b.AddDate(0, 0, 1)))
	assert.Equal(t, time.Date(2024, time.January, 10, 0, 0, 0, 0, loc), Day(b))
}
