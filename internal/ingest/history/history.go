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

// Package history keeps the daily candle store filled for the reference
// contracts and the chart currently selected by the presentation layer.
package history

import (
	"cloud.google.com/go/logging"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/ajjensen13/cmafeed/internal/cache"
	"github.com/ajjensen13/cmafeed/internal/coord"
	"github.com/ajjensen13/cmafeed/internal/gateway"
	"github.com/ajjensen13/cmafeed/internal/model"
	"github.com/ajjensen13/cmafeed/internal/session"
	"github.com/ajjensen13/cmafeed/internal/universe"
	"github.com/ajjensen13/cmafeed/internal/util"
)

// ErrRestartRequired is returned by Run once consecutive failures exceed the
// configured threshold.
var ErrRestartRequired = errors.New("history: too many consecutive errors, restart required")

type Config struct {
	Interval      time.Duration
	Lookback      time.Duration
	BackgroundTTL time.Duration
	SelectedTTL   time.Duration
	MaxErrors     int
	Period        int
	LoginRetry    time.Duration
	Location      *time.Location
}

func DefaultConfig() Config {
	return Config{
		Interval:      time.Second,
		Lookback:      365 * 24 * time.Hour,
		BackgroundTTL: 60 * time.Second,
		SelectedTTL:   5 * time.Second,
		MaxErrors:     10,
		Period:        1,
		LoginRetry:    10 * time.Second,
		Location:      time.Local,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Interval <= 0 {
		c.Interval = def.Interval
	}
	if c.Lookback <= 0 {
		c.Lookback = def.Lookback
	}
	if c.BackgroundTTL <= 0 {
		c.BackgroundTTL = def.BackgroundTTL
	}
	if c.SelectedTTL <= 0 {
		c.SelectedTTL = def.SelectedTTL
	}
	if c.MaxErrors <= 0 {
		c.MaxErrors = def.MaxErrors
	}
	if c.Period <= 0 {
		c.Period = def.Period
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
	DailyGraph(ctx context.Context, sessionID string, symbol gateway.SymbolID, from, to time.Time, period int) ([]gateway.Bar, error)
}

// Selections reads the shared chart selection. coord.Store satisfies it.
type Selections interface {
	Get(ctx context.Context, key string, v interface{}) (bool, error)
}

type HistoryStore interface {
	ReplaceHistory(ctx context.Context, symbol string, cs []model.HistoryCandle) error
}

// Target is a symbol to keep fresh and how often to refresh it.
type Target struct {
	model.SymbolTarget
	TTL      time.Duration
	Selected bool
}

type Ingestor struct {
	cfg        Config
	sessions   Sessions
	gw         Gateway
	selections Selections
	store      HistoryStore
	cache      *cache.TTL
	now        func() time.Time

	errors  int
	loginBo *backoff.ExponentialBackOff
}

func New(cfg Config, sessions Sessions, gw Gateway, selections Selections, store HistoryStore, now func() time.Time) *Ingestor {
	cfg = cfg.withDefaults()
	if now == nil {
		now = time.Now
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = cfg.LoginRetry
	bo.MaxInterval = 6 * cfg.LoginRetry
	bo.MaxElapsedTime = 0
	bo.Reset()

	return &Ingestor{
		cfg:        cfg,
		sessions:   sessions,
		gw:         gw,
		selections: selections,
		store:      store,
		cache:      cache.NewTTL(now),
		now:        now,
		loginBo:    bo,
	}
}

func (in *Ingestor) Errors() int { return in.errors }

func (in *Ingestor) today() time.Time {
	return model.Day(in.now().In(in.cfg.Location))
}

// Targets returns the current and next reference contracts plus the selected
// chart, if any. A selection that is already a background target is upgraded
// to the short refresh interval instead of being listed twice.
func (in *Ingestor) Targets(ctx context.Context) []Target {
	today := in.today()
	ret := []Target{
		{SymbolTarget: universe.Rollover(today, 0), TTL: in.cfg.BackgroundTTL},
		{SymbolTarget: universe.Rollover(today, 1), TTL: in.cfg.BackgroundTTL},
	}

	if in.selections == nil {
		return ret
	}

	var sel model.ChartSelection
	found, err := in.selections.Get(ctx, coord.ChartKey, &sel)
	if err != nil {
		util.Logf(ctx, logging.Warning, "ignoring chart selection: %v", err)
		return ret
	}
	if !found || sel.Symbol == "" {
		return ret
	}

	for i := range ret {
		if ret[i].Symbol == sel.Symbol {
			ret[i].TTL = in.cfg.SelectedTTL
			ret[i].Selected = true
			return ret
		}
	}

	source := sel.SourceID
	if source == "" {
		source = universe.ReferenceSource
	}
	return append(ret, Target{
		SymbolTarget: model.SymbolTarget{Symbol: sel.Symbol, SourceID: source, Product: sel.Product},
		TTL:          in.cfg.SelectedTTL,
		Selected:     true,
	})
}

type CycleResult struct {
	Targets   int
	Refreshed int
	Skipped   int
}

// Cycle refreshes every target whose cached series is older than its TTL.
func (in *Ingestor) Cycle(ctx context.Context) (res CycleResult, err error) {
	ctx = util.WithLoggerValue(ctx, "action", "history")

	id, err := in.sessions.Acquire(ctx)
	if err != nil {
		in.errors++
		return res, err
	}

	targets := in.Targets(ctx)
	res.Targets = len(targets)

	failed := 0
	for _, t := range targets {
		ctx := util.WithLoggerValue(ctx, "symbol", t.Symbol)

		ran, err := in.cache.GetOrRefresh(t.Symbol, t.TTL, func() error {
			return in.refresh(ctx, id, t)
		})
		switch {
		case errors.Is(err, gateway.ErrSessionInvalid):
			in.errors++
			if err := in.sessions.Invalidate(ctx); err != nil {
				util.Logf(ctx, logging.Warning, "%v", err)
			}
			return res, fmt.Errorf("history of %s: %w", t.Symbol, err)
		case err != nil:
			in.errors++
			failed++
			util.Logf(ctx, logging.Warning, "history of %s failed: %v", t.Symbol, err)
		case ran:
			res.Refreshed++
		default:
			res.Skipped++
		}
	}

	if failed == 0 {
		in.errors = 0
	}
	return res, nil
}

// refresh fetches and stores one series. Business rejections and empty
// payloads return nil so that the symbol waits a full TTL before the next
// attempt.
func (in *Ingestor) refresh(ctx context.Context, id string, t Target) error {
	to := in.today()
	from := to.AddDate(0, 0, -int(in.cfg.Lookback/(24*time.Hour)))

	bars, err := in.gw.DailyGraph(ctx, id, gateway.SymbolID{Symbol: t.Symbol, SourceID: t.SourceID}, from, to, in.cfg.Period)
	var rej *gateway.RejectedError
	switch {
	case errors.Is(err, gateway.ErrSessionInvalid):
		return err
	case errors.As(err, &rej):
		util.Logf(ctx, logging.Warning, "%v", rej)
		return nil
	case err != nil:
		return err
	}

	candles := Candles(ctx, t.Symbol, bars, in.cfg.Location)
	if len(candles) == 0 {
		util.Logf(ctx, logging.Info, "no candles for %s", t.Symbol)
		return nil
	}

	if err := in.store.ReplaceHistory(ctx, t.Symbol, candles); err != nil {
		return fmt.Errorf("failed to replace history of %s: %w", t.Symbol, err)
	}
	util.Logf(ctx, logging.Debug, "stored %d candles for %s", len(candles), t.Symbol)
	return nil
}

// Candles converts gateway bars, dropping bars with unparseable dates.
func Candles(ctx context.Context, symbol string, bars []gateway.Bar, loc *time.Location) []model.HistoryCandle {
	ret := make([]model.HistoryCandle, 0, len(bars))
	for _, b := range bars {
		d, err := b.Day(loc)
		if err != nil {
			util.Logf(ctx, logging.Warning, "dropping bar of %s: %v", symbol, err)
			continue
		}
		ret = append(ret, model.HistoryCandle{
			Symbol: symbol,
			Date:   d,
			Open:   b.Open.Float64(),
			High:   b.Max.Float64(),
			Low:    b.Min.Float64(),
			Close:  b.Close.Float64(),
			Volume: b.Volume.Float64(),
		})
	}
	return ret
}

// Run repeats Cycle until ctx is done or the error threshold is exceeded.
func (in *Ingestor) Run(ctx context.Context) error {
	util.Logf(ctx, logging.Info, "history ingestor started")
	for {
		if in.errors > in.cfg.MaxErrors {
			util.Logf(ctx, logging.Error, "history ingestor giving up after %d consecutive errors", in.errors)
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
			util.Logf(ctx, logging.Warning, "history cycle failed: %v", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}
