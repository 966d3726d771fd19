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

package gateway

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/ajjensen13/cmafeed/internal/model"
)

const (
	LoginRequestName      = "LoginRequest"
	QuotesRequestName     = "QuotesRequest"
	DailyGraphRequestName = "DailyGraphRequest"

	dateLayout = "2006-01-02"
)

// Header is the envelope common to every request. Send fills ID and
// SessionID.
type Header struct {
	ID        uint64 `json:"id"`
	Name      string `json:"name"`
	SessionID string `json:"sessionId"`
	Type      string `json:"type"`
	Sync      bool   `json:"sync"`
}

func (h *Header) header() *Header { return h }

type Request interface {
	header() *Header
}

type OMS struct {
	IP       string `json:"ip"`
	Channel  string `json:"channel"`
	Language string `json:"language"`
}

type LoginRequest struct {
	Header
	User      string `json:"user"`
	Pass      string `json:"pass"`
	Service   string `json:"service"`
	Transport string `json:"transport"`
	Version   int    `json:"version"`
	OMS       OMS    `json:"oms"`
}

func NewLoginRequest(user, pass string) *LoginRequest {
	return &LoginRequest{
		Header:    Header{Name: LoginRequestName, Type: "s", Sync: true},
		User:      user,
		Pass:      pass,
		Service:   "m",
		Transport: "Polling",
		Version:   1,
		OMS:       OMS{IP: "0.0.0.0", Channel: "API", Language: "PT"},
	}
}

type SymbolID struct {
	Symbol   string         `json:"symbol"`
	SourceID model.SourceID `json:"sourceId"`
}

type QuotesRequest struct {
	Header
	Symbols []SymbolID `json:"symbols"`
	Fields  []string   `json:"fields"`
}

func NewQuotesRequest(symbols []SymbolID, fields []string) *QuotesRequest {
	return &QuotesRequest{
		Header:  Header{Name: QuotesRequestName, Type: "q", Sync: true},
		Symbols: symbols,
		Fields:  fields,
	}
}

type DailyGraphRequest struct {
	Header
	SymbolID SymbolID `json:"symbolId"`
	DateFrom string   `json:"dateFrom"`
	DateTo   string   `json:"dateTo"`
	Period   int      `json:"period"`
}

func NewDailyGraphRequest(symbol SymbolID, from, to time.Time, period int) *DailyGraphRequest {
	return &DailyGraphRequest{
		Header:   Header{Name: DailyGraphRequestName, Type: "c", Sync: true},
		SymbolID: symbol,
		DateFrom: from.Format(dateLayout),
		DateTo:   to.Format(dateLayout),
		Period:   period,
	}
}

type Response struct {
	Success       bool    `json:"success"`
	SessionID     string  `json:"sessionId"`
	Status        Number  `json:"status"`
	Code          Number  `json:"code"`
	Textual       string  `json:"textual"`
	Message       string  `json:"message"`
	Quotes        []Quote `json:"arrQuotes"`
	GraphicalBars []Bar   `json:"graphicalBars"`
	Bars          []Bar   `json:"bars"`
}

// Candles returns whichever bar list the gateway filled.
func (r *Response) Candles() []Bar {
	if len(r.GraphicalBars) > 0 {
		return r.GraphicalBars
	}
	return r.Bars
}

func (r *Response) reason() string {
	if r.Textual != "" {
		return r.Textual
	}
	return r.Message
}

type Quote struct {
	SymbolID SymbolID                 `json:"symbolId"`
	Values   []map[string]interface{} `json:"arrValues"`
}

// Fields flattens the code/value pairs. Codes are upper-cased.
func (q Quote) Fields() map[string]interface{} {
	ret := make(map[string]interface{}, len(q.Values))
	for _, item := range q.Values {
		for k, v := range item {
			ret[strings.ToUpper(k)] = v
		}
	}
	return ret
}

type Bar struct {
	Date   string `json:"date"`
	Open   Number `json:"open"`
	Max    Number `json:"max"`
	Min    Number `json:"min"`
	Close  Number `json:"close"`
	Volume Number `json:"volume"`
}

// Day parses the bar date; time components after the date are ignored.
func (b Bar) Day(loc *time.Location) (time.Time, error) {
	d := strings.TrimSpace(b.Date)
	if len(d) > len(dateLayout) {
		d = d[:len(dateLayout)]
	}
	return time.ParseInLocation(dateLayout, d, loc)
}

// Number decodes numbers that may arrive as json numbers, quoted strings or
// null. Anything unparseable decodes as zero.
type Number float64

func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			*n = 0
			return nil
		}
		b = []byte(s)
	}
	*n = Number(ParseFloat(string(b)))
	return nil
}

func (n Number) Float64() float64 { return float64(n) }

func (n Number) Int() int { return int(n) }

// ParseFloat parses loosely formatted gateway values, defaulting to zero.
func ParseFloat(v interface{}) float64 {
	switch t := v.(type) {
	case nil:
		return 0
	case float64:
		return t
	case json.Number:
		f, _ := t.Float64()
		return f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0
		}
		return f
	default:
		return 0
	}
}
