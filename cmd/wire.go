//go:build wireinject
// +build wireinject

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
	"github.com/ajjensen13/gke"
	"github.com/golang-migrate/migrate/v4"
	"github.com/google/wire"
	"github.com/jackc/pgx/v4/pgxpool"
	"net/url"
	"time"

	"github.com/ajjensen13/cmafeed/internal/coord"
	"github.com/ajjensen13/cmafeed/internal/db"
	"github.com/ajjensen13/cmafeed/internal/gateway"
	"github.com/ajjensen13/cmafeed/internal/ingest/history"
	"github.com/ajjensen13/cmafeed/internal/ingest/quotes"
	"github.com/ajjensen13/cmafeed/internal/model"
	"github.com/ajjensen13/cmafeed/internal/session"
)

func timezone() (tz *time.Location, err error) {
	panic(wire.Build(provideTimezone, provideAppConfig))
}

func catalog(ctx context.Context) (c model.Catalog, err error) {
	panic(wire.Build(provideCatalog, provideCatalogSource, provideAppConfig))
}

func gatewayClient() (c *gateway.Client, err error) {
	panic(wire.Build(gateway.NewClient, provideGatewayConfig, provideHttpClient, provideAppConfig, provideAppSecrets))
}

func coordStore(ctx context.Context, lg gke.Logger) (s coord.Store, cleanup func(), err error) {
	panic(wire.Build(provideCoordStore, provideAppConfig))
}

func sessionCoordinator(store coord.Store, client *gateway.Client) *session.Coordinator {
	panic(wire.Build(provideSessionCoordinator))
}

func quotesIngestor(lg gke.Logger, sessions *session.Coordinator, client *gateway.Client, pool *pgxpool.Pool) (in *quotes.Ingestor, err error) {
	panic(wire.Build(provideQuotesIngestor, provideQuotesConfig, provideTimezone, provideCatalogSource, provideAppConfig, db.NewStore, provideSnapshotBackoff, provideBackoffNotifier))
}

func historyIngestor(lg gke.Logger, sessions *session.Coordinator, client *gateway.Client, selections coord.Store, pool *pgxpool.Pool) (in *history.Ingestor, err error) {
	panic(wire.Build(provideHistoryIngestor, provideHistoryConfig, provideTimezone, provideAppConfig, db.NewStore, provideHistoryBackoff, provideBackoffNotifier))
}

func marketStore(lg gke.Logger, pool *pgxpool.Pool) *db.Store {
	panic(wire.Build(db.NewStore, provideReadBackoff, provideBackoffNotifier))
}

func dataSourceName() (dsn *url.URL, err error) {
	panic(wire.Build(provideDataSourceName, provideDbSecrets, provideAppConfig))
}

func openPool(ctx context.Context) (*pgxpool.Pool, func(), error) {
	panic(wire.Build(provideDbConnPool, provideDataSourceName, provideAppConfig, provideDbSecrets))
}

func migrationSourceURL() (uri string, err error) {
	panic(wire.Build(provideMigrationSourceURL, provideAppConfig))
}

func logger() (lg gke.Logger, cleanup func()) {
	panic(wire.Build(provideLogger))
}

func migrator(lg gke.Logger) (m *migrate.Migrate, err error) {
	panic(wire.Build(provideMigrator, migrationSourceURL, dataSourceName))
}
