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

package cmd

import (
	"context"
	"errors"
	"fmt"
	"github.com/ajjensen13/gke"
	"github.com/jackc/pgx/v4/pgxpool"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ajjensen13/cmafeed/internal/coord"
	"github.com/ajjensen13/cmafeed/internal/gateway"
	"github.com/ajjensen13/cmafeed/internal/session"
	"github.com/ajjensen13/cmafeed/internal/util"
)

// ingestEnv is what every ingestion loop needs. One environment shares a
// single session between the loops it serves.
type ingestEnv struct {
	pool     *pgxpool.Pool
	store    coord.Store
	client   *gateway.Client
	sessions *session.Coordinator
}

func setupIngest(ctx context.Context, lg gke.Logger) (env ingestEnv, cleanup func(), err error) {
	var cleanups []func()
	cleanup = func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	pool, cleanupPool, err := openPool(ctx)
	if err != nil {
		return env, cleanup, fmt.Errorf("failed to open database: %w", err)
	}
	cleanups = append(cleanups, cleanupPool)

	store, cleanupStore, err := coordStore(ctx, lg)
	if err != nil {
		return env, cleanup, fmt.Errorf("failed to open coordination store: %w", err)
	}
	cleanups = append(cleanups, cleanupStore)

	client, err := gatewayClient()
	if err != nil {
		return env, cleanup, fmt.Errorf("failed to configure gateway client: %w", err)
	}

	return ingestEnv{
		pool:     pool,
		store:    store,
		client:   client,
		sessions: sessionCoordinator(store, client),
	}, cleanup, nil
}

func signalContext(lg gke.Logger) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return util.WithLogger(ctx, lg), stop
}

// finish panics on anything but a requested stop, so that the supervisor
// sees a failed process and restarts it.
func finish(lg gke.Logger, name string, err error) {
	if err == nil || errors.Is(err, context.Canceled) {
		lg.Defaultf("%s stopped", name)
		return
	}
	panic(lg.ErrorErr(fmt.Errorf("%s: %w", name, err)))
}

var quotesCmd = &cobra.Command{
	Use:   "quotes",
	Short: "Continuously replace the live snapshot with fresh quotes",
	Run: func(cmd *cobra.Command, args []string) {
		lg, cleanup := logger()
		defer cleanup()

		ctx, stop := signalContext(lg)
		defer stop()

		env, cleanupEnv, err := setupIngest(ctx, lg)
		defer cleanupEnv()
		if err != nil {
			panic(lg.ErrorErr(err))
		}

		in, err := quotesIngestor(lg, env.sessions, env.client, env.pool)
		if err != nil {
			panic(lg.ErrorErr(fmt.Errorf("failed to setup quotes ingestor: %w", err)))
		}

		finish(lg, "quotes ingestor", in.Run(ctx))
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Continuously refresh daily candles of the reference contracts and the selected chart",
	Run: func(cmd *cobra.Command, args []string) {
		lg, cleanup := logger()
		defer cleanup()

		ctx, stop := signalContext(lg)
		defer stop()

		env, cleanupEnv, err := setupIngest(ctx, lg)
		defer cleanupEnv()
		if err != nil {
			panic(lg.ErrorErr(err))
		}

		in, err := historyIngestor(lg, env.sessions, env.client, env.store, env.pool)
		if err != nil {
			panic(lg.ErrorErr(fmt.Errorf("failed to setup history ingestor: %w", err)))
		}

		finish(lg, "history ingestor", in.Run(ctx))
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the quotes and history ingestors in one process",
	Run: func(cmd *cobra.Command, args []string) {
		lg, cleanup := logger()
		defer cleanup()

		ctx, stop := signalContext(lg)
		defer stop()

		env, cleanupEnv, err := setupIngest(ctx, lg)
		defer cleanupEnv()
		if err != nil {
			panic(lg.ErrorErr(err))
		}

		qi, err := quotesIngestor(lg, env.sessions, env.client, env.pool)
		if err != nil {
			panic(lg.ErrorErr(fmt.Errorf("failed to setup quotes ingestor: %w", err)))
		}

		hi, err := historyIngestor(lg, env.sessions, env.client, env.store, env.pool)
		if err != nil {
			panic(lg.ErrorErr(fmt.Errorf("failed to setup history ingestor: %w", err)))
		}

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error { return qi.Run(util.WithLoggerValue(ctx, "loop", "quotes")) })
		g.Go(func() error { return hi.Run(util.WithLoggerValue(ctx, "loop", "history")) })

		finish(lg, "ingestors", g.Wait())
	},
}

func init() {
	rootCmd.AddCommand(quotesCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(runCmd)
}
