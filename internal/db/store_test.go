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
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajjensen13/cmafeed/internal/model"
)

// testStore connects to the database named by CMAFEED_TEST_DSN and migrates it
// up. The snapshot table is rewritten, so point it at a scratch database.
func testStore(t *testing.T) *Store {
	dsn := os.Getenv("CMAFEED_TEST_DSN")
	if dsn == "" {
		t.Skip("CMAFEED_TEST_DSN not set")
	}

	m, err := migrate.New("file://../../migrations", dsn)
	require.NoError(t, err)
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		require.NoError(t, err)
	}
	srcErr, dbErr := m.Close()
	require.NoError(t, srcErr)
	require.NoError(t, dbErr)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pool, err := pgxpool.Connect(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return NewStore(pool, backoff.WithMaxRetries(backoff.NewConstantBackOff(50*time.Millisecond), 2), nil)
}

func candles(symbol string, start time.Time, n int, base float64) []model.HistoryCandle {
	ret := make([]model.HistoryCandle, n)
	for i := range ret {
		ret[i] = model.HistoryCandle{
			Symbol: symbol,
			Date:   start.AddDate(0, 0, i),
			Open:   base,
			High:   base + 0.1,
			Low:    base - 0.1,
			Close:  base + float64(i)/100,
			Volume: float64(1000 + i),
		}
	}
	return ret
}

func TestStoreReplaceHistory(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	symbol := fmt.Sprintf("TEST%d", time.Now().UnixNano())
	t.Cleanup(func() { _ = s.ReplaceHistory(ctx, symbol, nil) })

	require.NoError(t, s.ReplaceHistory(ctx, symbol, candles(symbol, time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC), 10, 4.9)))
	got, err := s.History(ctx, symbol)
	require.NoError(t, err)
	require.Len(t, got, 10)

	fresh := candles(symbol, time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC), 12, 5.0)
	require.NoError(t, s.ReplaceHistory(ctx, symbol, fresh))

	got, err = s.History(ctx, symbol)
	require.NoError(t, err)
	require.Len(t, got, 12, "no rows of the previous fetch remain")
	for i, c := range got {
		assert.Equal(t, fresh[i].Date.Format("2006-01-02"), c.Date.Format("2006-01-02"))
		assert.Equal(t, fresh[i].Close, c.Close)
		assert.Equal(t, fresh[i].High, c.High)
	}

	require.NoError(t, s.ReplaceHistory(ctx, symbol, nil))
	got, err = s.History(ctx, symbol)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStoreReplaceSnapshotIsIdempotent(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	ts := time.Date(2024, 1, 10, 14, 30, 0, 0, time.UTC)
	maturity := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	rows := []model.QuoteRecord{
		{Timestamp: ts, Group: "BMF", Product: "Dólar", Symbol: "DOLG24", Description: "Dólar DOLG24", Last: 4.92, Previous: 4.9, Bid: 4.91, Ask: 4.93, Time: "14:29", Maturity: maturity},
		{Timestamp: ts, Group: "BMF", Product: "Dólar", Symbol: "DOLH24", Description: "Dólar DOLH24", Last: 4.95, Previous: 4.94, Time: "-", Maturity: maturity.AddDate(0, 1, 0)},
	}

	require.NoError(t, s.ReplaceSnapshot(ctx, rows))
	first, err := s.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, first, 2)

	require.NoError(t, s.ReplaceSnapshot(ctx, rows))
	second, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	assert.True(t, ts.Equal(second[0].Timestamp))
	assert.Equal(t, "DOLG24", second[0].Symbol)
	assert.Equal(t, 4.92, second[0].Last)

	q, found, err := s.Quote(ctx, "DOLH24")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "-", q.Time)

	require.NoError(t, s.ReplaceSnapshot(ctx, rows[:1]))
	third, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, third, 1, "rows missing from the new set are gone")
}
