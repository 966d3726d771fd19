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

// Package quotes keeps the live snapshot store in sync with the gateway.
package quotes

import (
	"cloud.google.com/go/logging"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/ajjensen13/cmafeed/internal/gateway"
	"github.com/ajjensen13/cmafeed/internal/model"
	"github.com/ajjensen13/cmafeed/internal/session"
	"github.com/ajjensen13/cmafeed/internal/universe"
	"github.com/ajjensen13/cmafeed/internal/util"
)

// ErrRestartRequired is returned by Run once consecutive failures exceed the
// configured threshold. The process is expected to exit and be restarted.
var ErrRestartRequired = errors.New("quotes: too many consecutive errors, restart required")

type Config struct {
	Interval   time.Duration
	BatchSize  int
	MaxErrors  int
	LoginRetry time.Duration
	// Location decides which calendar day contract months are counted from.
	Location *time.Location
}

func DefaultConfig() Config {
	return Config{
		Interval:   500 * time.Millisecond,
		BatchSize:  100,
		MaxErrors:  15,
		LoginRetry: 5 * time.Second,
		Location:   time.Local,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Interval <= 0 {
		c.Interval = def.Interval
	}
	if c.BatchSize <= 0 {
		c.BatchSize = def.BatchSize
	}
	if c.MaxErrors <= 0 {
		c.MaxErrors = def.MaxErrors
	}
	if c.LoginRetry <= 0 {
		c.LoginRetry = def.LoginRetry
	}
	if c.Location == nil {
		c.Location = def.Location
	}
	return c
}

type Sessions interface {
	Acquire(ctx context.Context) (string, error)
	Invalidate(ctx context.Context) error
}

type Gateway interface {
	Quotes(ctx context.Context, sessionID string, symbols []gateway.SymbolID, fields []string) ([]gateway.Quote, error)
}

type CatalogSource interface {
	Catalog(ctx context.Context) (model.Catalog, error)
}

type CatalogFunc func(ctx context.Context) (model.Catalog, error)

func (f CatalogFunc) Catalog(ctx context.Context) (model.Catalog, error) { return f(ctx) }

type SnapshotStore interface {
	ReplaceSnapshot(ctx context.Context, rows []model.QuoteRecord) error
}

type Ingestor struct {
	cfg      Config
	sessions Sessions
	gw       Gateway
	catalog  CatalogSource
	store    SnapshotStore
	now      func() time.Time

	errors  int
	loginBo *backoff.ExponentialBackOff
}

func New(cfg Config, sessions Sessions, gw Gateway, catalog CatalogSource, store SnapshotStore, now func() time.Time) *Ingestor {
	cfg = cfg.withDefaults()
	if now == nil {
		now = time.Now
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = cfg.LoginRetry
	bo.MaxInterval = 12 * cfg.LoginRetry
	bo.MaxElapsedTime = 0
	bo.Reset()

	return &Ingestor{cfg: cfg, sessions: sessions, gw: gw, catalog: catalog, store: store, now: now, loginBo: bo}
}

// Errors is the number of consecutive failed operations.
func (in *Ingestor) Errors() int { return in.errors }

type CycleResult struct {
	Targets int
	Batches int
	Quoted  int
}

// Cycle polls every target once and replaces the snapshot with the result.
// A session-invalid rejection invalidates the session and abandons the cycle
// without touching the store.
func (in *Ingestor) Cycle(ctx context.Context) (res CycleResult, err error) {
	ctx = util.WithLoggerValue(ctx, "action", "quotes")

	id, err := in.sessions.Acquire(ctx)
	if err != nil {
		in.errors++
		return res, err
	}

	catalog, err := in.catalog.Catalog(ctx)
	if err != nil {
		in.errors++
		return res, fmt.Errorf("failed to load catalog: %w", err)
	}

	targets := universe.Generate(in.now().In(in.cfg.Location), catalog)
	meta := make(map[string]model.SymbolTarget, len(targets))
	for _, t := range targets {
		meta[t.Symbol] = t
	}

	batches := Batches(targets, in.cfg.BatchSize)
	res = CycleResult{Targets: len(targets), Batches: len(batches)}

	rows := make([]model.QuoteRecord, 0, len(targets))
	answered, failed := 0, 0
	for i, batch := range batches {
		ctx := util.WithLoggerValue(ctx, "batch", i)

		quotes, err := in.gw.Quotes(ctx, id, symbolIDs(batch), FieldCodes)
		var rej *gateway.RejectedError
		switch {
		case errors.Is(err, gateway.ErrSessionInvalid):
			in.errors++
			if err := in.sessions.Invalidate(ctx); err != nil {
				util.Logf(ctx, logging.Warning, "%v", err)
			}
			return res, fmt.Errorf("quotes batch %d of %d: %w", i+1, len(batches), err)
		case errors.As(err, &rej):
			util.Logf(ctx, logging.Warning, "quotes batch %d of %d rejected, keeping %d quotes: %v", i+1, len(batches), len(quotes), rej)
		case err != nil:
			in.errors++
			failed++
			util.Logf(ctx, logging.Warning, "quotes batch %d of %d failed: %v", i+1, len(batches), err)
			continue
		}

		answered++
		now := in.now()
		for _, q := range quotes {
			t, ok := meta[q.SymbolID.Symbol]
			if !ok {
				continue
			}
			if rec, ok := Record(now, t, q.Fields()); ok {
				rows = append(rows, rec)
			}
		}
	}

	if len(batches) > 0 && answered == 0 {
		return res, fmt.Errorf("none of %d quotes batches answered: %w", len(batches), gateway.ErrTransport)
	}

	if err := in.store.ReplaceSnapshot(ctx, rows); err != nil {
		in.errors++
		return res, fmt.Errorf("failed to replace snapshot: %w", err)
	}

	res.Quoted = len(rows)
	if failed == 0 {
		in.errors = 0
	}
	util.Logf(ctx, logging.Debug, "quotes: %d / %d symbols quoted", res.Quoted, res.Targets)
	return res, nil
}

// Run repeats Cycle until ctx is done or the error threshold is exceeded.
func (in *Ingestor) Run(ctx context.Context) error {
	util.Logf(ctx, logging.Info, "quotes ingestor started")
	for {
		if in.errors > in.cfg.MaxErrors {
			util.Logf(ctx, logging.Error, "quotes ingestor giving up after %d consecutive errors", in.errors)
			if err := in.sessions.Invalidate(ctx); err != nil {
				util.Logf(ctx, logging.Warning, "%v", err)
			}
			return ErrRestartRequired
		}

		wait := in.cfg.Interval
		_, err := in.Cycle(ctx)
		switch {
		case err == nil:
			in.loginBo.Reset()
		case errors.Is(err, session.ErrNoSession):
			wait = in.loginBo.NextBackOff()
			util.Logf(ctx, logging.Warning, "%v (retrying in %v)", err, wait)
		default:
			util.Logf(ctx, logging.Warning, "quotes cycle failed: %v", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// Batches splits targets into consecutive groups of at most size.
func Batches(targets []model.SymbolTarget, size int) [][]model.SymbolTarget {
	var ret [][]model.SymbolTarget
	for len(targets) > 0 {
		n := size
		if n > len(targets) {
			n = len(targets)
		}
		ret = append(ret, targets[:n])
		targets = targets[n:]
	}
	return ret
}

func symbolIDs(ts []model.SymbolTarget) []gateway.SymbolID {
	ret := make([]gateway.SymbolID, len(ts))
	for i, t := range ts {
		ret[i] = gateway.SymbolID{Symbol: t.Symbol, SourceID: t.SourceID}
	}
	return ret
}
