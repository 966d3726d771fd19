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
	"cloud.google.com/go/logging"
	"context"
	"fmt"
	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"strings"
	"time"

	"github.com/ajjensen13/cmafeed/internal/model"
	"github.com/ajjensen13/cmafeed/internal/util"
)

const (
	snapshotTable = "market_snapshot"
	historyTable  = "market_history"
)

var (
	snapshotColumns = []string{"timestamp", "group_name", "product_name", "symbol", "description", "last", "high", "low", "open", "change", "pchange", "previous", "volume", "time", "bid", "ask", "maturity"}
	historyColumns  = []string{"symbol", "date_ref", "open", "max", "min", "close", "volume"}
)

type Quote struct {
	Timestamp   pgtype.Timestamptz
	Group       pgtype.Text
	Product     pgtype.Text
	Symbol      pgtype.Text
	Description pgtype.Text
	Last        pgtype.Float8
	High        pgtype.Float8
	Low         pgtype.Float8
	Open        pgtype.Float8
	Change      pgtype.Float8
	PChange     pgtype.Float8
	Previous    pgtype.Float8
	Volume      pgtype.Float8
	Time        pgtype.Text
	Bid         pgtype.Float8
	Ask         pgtype.Float8
	Maturity    pgtype.Date
}

type Candle struct {
	Symbol pgtype.Text
	Date   pgtype.Date
	Open   pgtype.Float8
	Max    pgtype.Float8
	Min    pgtype.Float8
	Close  pgtype.Float8
	Volume pgtype.Float8
}

func TransformQuote(q model.QuoteRecord) (out Quote) {
	_ = out.Timestamp.Set(q.Timestamp)
	_ = out.Group.Set(q.Group)
	_ = out.Product.Set(q.Product)
	_ = out.Symbol.Set(q.Symbol)
	_ = out.Description.Set(q.Description)
	_ = out.Last.Set(q.Last)
	_ = out.High.Set(q.High)
	_ = out.Low.Set(q.Low)
	_ = out.Open.Set(q.Open)
	_ = out.Change.Set(q.Change)
	_ = out.PChange.Set(q.PChange)
	_ = out.Previous.Set(q.Previous)
	_ = out.Volume.Set(q.Volume)
	_ = out.Time.Set(q.Time)
	_ = out.Bid.Set(q.Bid)
	_ = out.Ask.Set(q.Ask)
	_ = out.Maturity.Set(dateOnly(q.Maturity))
	return
}

func (q *Quote) values() []interface{} {
	return []interface{}{&q.Timestamp, &q.Group, &q.Product, &q.Symbol, &q.Description, &q.Last, &q.High, &q.Low, &q.Open, &q.Change, &q.PChange, &q.Previous, &q.Volume, &q.Time, &q.Bid, &q.Ask, &q.Maturity}
}

func (q Quote) Model() model.QuoteRecord {
	return model.QuoteRecord{
		Timestamp:   q.Timestamp.Time,
		Group:       q.Group.String,
		Product:     q.Product.String,
		Symbol:      q.Symbol.String,
		Description: q.Description.String,
		Last:        q.Last.Float,
		High:        q.High.Float,
		Low:         q.Low.Float,
		Open:        q.Open.Float,
		Change:      q.Change.Float,
		PChange:     q.PChange.Float,
		Previous:    q.Previous.Float,
		Volume:      q.Volume.Float,
		Time:        q.Time.String,
		Bid:         q.Bid.Float,
		Ask:         q.Ask.Float,
		Maturity:    q.Maturity.Time,
	}
}

func TransformCandle(c model.HistoryCandle) (out Candle) {
	_ = out.Symbol.Set(c.Symbol)
	_ = out.Date.Set(dateOnly(c.Date))
	_ = out.Open.Set(c.Open)
	_ = out.Max.Set(c.High)
	_ = out.Min.Set(c.Low)
	_ = out.Close.Set(c.Close)
	_ = out.Volume.Set(c.Volume)
	return
}

func (c *Candle) values() []interface{} {
	return []interface{}{&c.Symbol, &c.Date, &c.Open, &c.Max, &c.Min, &c.Close, &c.Volume}
}

func (c Candle) Model() model.HistoryCandle {
	return model.HistoryCandle{
		Symbol: c.Symbol.String,
		Date:   c.Date.Time,
		Open:   c.Open.Float,
		High:   c.Max.Float,
		Low:    c.Min.Float,
		Close:  c.Close.Float,
		Volume: c.Volume.Float,
	}
}

// dateOnly keeps the calendar date of t as seen in its own location.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func snapshotRows(qs []model.QuoteRecord) [][]interface{} {
	rows := make([][]interface{}, len(qs))
	for i, q := range qs {
		row := TransformQuote(q)
		rows[i] = row.values()
	}
	return rows
}

func historyRows(symbol string, cs []model.HistoryCandle) ([][]interface{}, error) {
	rows := make([][]interface{}, len(cs))
	for i, c := range cs {
		if c.Symbol != symbol {
			return nil, fmt.Errorf("candle %d belongs to %q, not %q", i, c.Symbol, symbol)
		}
		row := TransformCandle(c)
		rows[i] = row.values()
	}
	return rows, nil
}

// Store is the Postgres backed snapshot and history store. Each replace runs
// inside one transaction, so readers see either the previous or the new rows.
type Store struct {
	pool *pgxpool.Pool
	bo   backoff.BackOff
	bon  backoff.Notify
}

func NewStore(pool *pgxpool.Pool, bo backoff.BackOff, bon backoff.Notify) *Store {
	return &Store{pool: pool, bo: bo, bon: bon}
}

// ReplaceSnapshot swaps the whole snapshot for qs.
func (s *Store) ReplaceSnapshot(ctx context.Context, qs []model.QuoteRecord) error {
	ctx = util.WithLoggerValue(ctx, "action", "load")
	rows := snapshotRows(qs)

	return backoff.RetryNotify(func() error {
		ctx, cancel := context.WithTimeout(ctx, util.ShortReqTimeout)
		defer cancel()

		return util.RunTx(ctx, s.pool, func(ctx context.Context, tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, `DELETE FROM `+snapshotTable); err != nil {
				return fmt.Errorf("failed to clear snapshot: %w", err)
			}

			n, err := tx.CopyFrom(ctx, pgx.Identifier{snapshotTable}, snapshotColumns, pgx.CopyFromRows(rows))
			if err != nil {
				return fmt.Errorf("failed to load snapshot: %w", err)
			}

			util.Logf(ctx, logging.Debug, "successfully replaced snapshot with %d quotes", n)
			return nil
		})
	}, s.bo, s.bon)
}

// ReplaceHistory swaps every stored candle of symbol for cs.
func (s *Store) ReplaceHistory(ctx context.Context, symbol string, cs []model.HistoryCandle) error {
	ctx = util.WithLoggerValue(ctx, "action", "load")
	ctx = util.WithLoggerValue(ctx, "symbol", symbol)

	rows, err := historyRows(symbol, cs)
	if err != nil {
		return err
	}

	return backoff.RetryNotify(func() error {
		ctx, cancel := context.WithTimeout(ctx, util.ShortReqTimeout)
		defer cancel()

		return util.RunTx(ctx, s.pool, func(ctx context.Context, tx pgx.Tx) error {
			r, err := tx.Exec(ctx, `DELETE FROM `+historyTable+` WHERE symbol = $1`, symbol)
			if err != nil {
				return fmt.Errorf("failed to clear history of %q: %w", symbol, err)
			}

			n, err := tx.CopyFrom(ctx, pgx.Identifier{historyTable}, historyColumns, pgx.CopyFromRows(rows))
			if err != nil {
				return fmt.Errorf("failed to load history of %q: %w", symbol, err)
			}

			util.Logf(ctx, logging.Debug, "successfully replaced %d candles with %d candles", r.RowsAffected(), n)
			return nil
		})
	}, s.bo, s.bon)
}

func (s *Store) Snapshot(ctx context.Context) ([]model.QuoteRecord, error) {
	var ret []model.QuoteRecord
	err := s.query(ctx, `SELECT `+columnList(snapshotColumns)+` FROM `+snapshotTable+` ORDER BY group_name, product_name, maturity, symbol`, nil, func(rows pgx.Rows) error {
		var qs []model.QuoteRecord
		for rows.Next() {
			var q Quote
			if err := rows.Scan(q.values()...); err != nil {
				return fmt.Errorf("failed to scan snapshot: %w", err)
			}
			qs = append(qs, q.Model())
		}
		ret = qs
		return nil
	})
	return ret, err
}

// Quote returns the live row of symbol.
func (s *Store) Quote(ctx context.Context, symbol string) (model.QuoteRecord, bool, error) {
	var ret model.QuoteRecord
	var found bool
	err := s.query(ctx, `SELECT `+columnList(snapshotColumns)+` FROM `+snapshotTable+` WHERE symbol = $1 LIMIT 1`, []interface{}{symbol}, func(rows pgx.Rows) error {
		if !rows.Next() {
			return nil
		}
		var q Quote
		if err := rows.Scan(q.values()...); err != nil {
			return fmt.Errorf("failed to scan quote %q: %w", symbol, err)
		}
		ret, found = q.Model(), true
		return nil
	})
	return ret, found, err
}

// History returns the stored candles of symbol in date order.
func (s *Store) History(ctx context.Context, symbol string) ([]model.HistoryCandle, error) {
	var ret []model.HistoryCandle
	err := s.query(ctx, `SELECT `+columnList(historyColumns)+` FROM `+historyTable+` WHERE symbol = $1 ORDER BY date_ref ASC`, []interface{}{symbol}, func(rows pgx.Rows) error {
		var cs []model.HistoryCandle
		for rows.Next() {
			var c Candle
			if err := rows.Scan(c.values()...); err != nil {
				return fmt.Errorf("failed to scan candle of %q: %w", symbol, err)
			}
			cs = append(cs, c.Model())
		}
		ret = cs
		return nil
	})
	return ret, err
}

// query retries transient failures; errors returned by collect are final.
func (s *Store) query(ctx context.Context, sql string, args []interface{}, collect func(pgx.Rows) error) error {
	ctx = util.WithLoggerValue(ctx, "action", "read")

	return backoff.RetryNotify(func() error {
		ctx, cancel := context.WithTimeout(ctx, util.ShortReqTimeout)
		defer cancel()

		rows, err := s.pool.Query(ctx, sql, args...)
		if err != nil {
			return fmt.Errorf("failed to query store: %w", err)
		}
		defer rows.Close()

		if err := collect(rows); err != nil {
			return backoff.Permanent(err)
		}
		return rows.Err()
	}, s.bo, s.bon)
}

func columnList(cols []string) string {
	return strings.Join(cols, ", ")
}
