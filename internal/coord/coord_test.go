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

package coord

import (
	"context"
	"io/ioutil"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajjensen13/cmafeed/internal/model"
)

func stores(t *testing.T) map[string]Store {
	fs, err := NewFileStore(filepath.Join(t.TempDir(), "coord"))
	require.NoError(t, err)

	ss, err := OpenSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "coord.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	return map[string]Store{"file": fs, "sqlite": ss}
}

func TestStore(t *testing.T) {
	ctx := context.Background()

	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			var tok model.SessionToken
			ok, err := s.Get(ctx, SessionKey, &tok)
			require.NoError(t, err)
			assert.False(t, ok, "empty store has no session")

			require.NoError(t, s.Clear(ctx, SessionKey), "clearing an empty key")

			now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
			require.NoError(t, s.Set(ctx, SessionKey, model.SessionToken{SessionID: "abc", UpdatedAt: now}))
			require.NoError(t, s.Set(ctx, SessionKey, model.SessionToken{SessionID: "def", UpdatedAt: now}))

			ok, err = s.Get(ctx, SessionKey, &tok)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, "def", tok.SessionID)
			assert.True(t, now.Equal(tok.UpdatedAt))

			require.NoError(t, s.Clear(ctx, SessionKey))
			ok, err = s.Get(ctx, SessionKey, &model.SessionToken{})
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestFileStoreReadsForeignRecords(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, ChartKey+".json"), []byte(`{"symbol":"DOLH24","sourceId":57}`), 0o644))

	s, err := NewFileStore(dir)
	require.NoError(t, err)

	var sel model.ChartSelection
	ok, err := s.Get(context.Background(), ChartKey, &sel)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "DOLH24", sel.Symbol)
	assert.Equal(t, model.SourceID("57"), sel.SourceID)
}

func TestFileStoreRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, ChartKey+".json"), []byte(`{"symbol":`), 0o644))

	s, err := NewFileStore(dir)
	require.NoError(t, err)

	ok, err := s.Get(context.Background(), ChartKey, &model.ChartSelection{})
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestSQLiteStorePragmasOnEveryConnection(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "coord.db")

	s, err := OpenSQLiteStore(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	for i := 0; i < 3; i++ {
		conn, err := s.DB.Conn(ctx)
		require.NoError(t, err)
		t.Cleanup(func() { _ = conn.Close() })

		var timeout int
		require.NoError(t, conn.QueryRowContext(ctx, `PRAGMA busy_timeout`).Scan(&timeout))
		assert.Equal(t, 2000, timeout, "connection %d", i)

		var mode string
		require.NoError(t, conn.QueryRowContext(ctx, `PRAGMA journal_mode`).Scan(&mode))
		assert.Equal(t, "wal", mode, "connection %d", i)
	}

	other, err := OpenSQLiteStore(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = other.Close() })

	require.NoError(t, s.Set(ctx, ChartKey, model.ChartSelection{Symbol: "DOLG24", SourceID: "57"}))
	var sel model.ChartSelection
	ok, err := other.Get(ctx, ChartKey, &sel)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "DOLG24", sel.Symbol)
}
