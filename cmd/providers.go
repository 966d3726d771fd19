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
	"github.com/ajjensen13/config"
	"github.com/ajjensen13/gke"
	"github.com/cenkalti/backoff/v4"
	"github.com/golang-migrate/migrate/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"net/http"
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

func provideTimezone(appConfig *appConfig) (*time.Location, error) {
	if appConfig.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(appConfig.Timezone)
}

func provideAppSecrets() (*appSecrets, error) {
	var result appSecrets
	err := config.InterfaceJson(apiSecretName, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func provideAppConfig() (*appConfig, error) {
	var result appConfig
	err := config.InterfaceJson(appConfigName, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func provideDbSecrets() (*url.Userinfo, error) {
	ui, err := config.Userinfo(dbSecretName)
	if err != nil {
		return nil, err
	}
	return ui, nil
}

func provideCatalogSource(cfg *appConfig) quotes.CatalogSource {
	name := cfg.catalogName()
	return quotes.CatalogFunc(func(ctx context.Context) (model.Catalog, error) {
		var result model.Catalog
		err := config.InterfaceJson(name, &result)
		if err != nil {
			return nil, fmt.Errorf("failed to read catalog %q: %w", name, err)
		}
		return result, nil
	})
}

func provideCatalog(ctx context.Context, src quotes.CatalogSource) (model.Catalog, error) {
	return src.Catalog(ctx)
}

func provideHttpClient() *http.Client {
	return &http.Client{}
}

func provideGatewayConfig(cfg *appConfig, secrets *appSecrets) (gateway.Config, error) {
	if cfg.GatewayHost == "" {
		return gateway.Config{}, errors.New("gateway_host is not configured")
	}
	return cfg.gatewayConfig(secrets), nil
}

func provideCoordStore(ctx context.Context, lg gke.Logger, cfg *appConfig) (coord.Store, func(), error) {
	path := cfg.CoordinationPath
	if path == "" {
		path = defaultCoordinationPath
	}

	switch cfg.CoordinationBackend {
	case "", "file":
		s, err := coord.NewFileStore(path)
		if err != nil {
			return nil, func() {}, err
		}
		lg.Defaultf("coordinating through files in %s", path)
		return s, func() {}, nil
	case "sqlite":
		s, err := coord.OpenSQLiteStore(ctx, path)
		if err != nil {
			return nil, func() {}, err
		}
		lg.Defaultf("coordinating through sqlite database %s", path)
		return s, func() {
			if err := s.Close(); err != nil {
				lg.Warningf("failed to close coordination database: %v", err)
			}
		}, nil
	default:
		return nil, func() {}, fmt.Errorf("unknown coordination backend %q", cfg.CoordinationBackend)
	}
}

func provideSessionCoordinator(store coord.Store, client *gateway.Client) *session.Coordinator {
	return session.New(store, client, time.Now)
}

func provideQuotesConfig(cfg *appConfig, tz *time.Location) quotes.Config {
	return cfg.quotesConfig(tz)
}

func provideHistoryConfig(cfg *appConfig, tz *time.Location) history.Config {
	return cfg.historyConfig(tz)
}

func provideQuotesIngestor(cfg quotes.Config, sessions *session.Coordinator, client *gateway.Client, catalog quotes.CatalogSource, store *db.Store) *quotes.Ingestor {
	return quotes.New(cfg, sessions, client, catalog, store, time.Now)
}

func provideHistoryIngestor(cfg history.Config, sessions *session.Coordinator, client *gateway.Client, selections coord.Store, store *db.Store) *history.Ingestor {
	return history.New(cfg, sessions, client, selections, store, time.Now)
}

// The snapshot is rewritten every cycle, so a write that keeps failing is
// better dropped quickly than retried.
func provideSnapshotBackoff() backoff.BackOff {
	return backoff.WithMaxRetries(backoff.NewConstantBackOff(100*time.Millisecond), 2)
}

func provideHistoryBackoff() backoff.BackOff {
	return backoff.WithMaxRetries(backoff.NewConstantBackOff(200*time.Millisecond), 4)
}

func provideReadBackoff() backoff.BackOff {
	result := backoff.NewExponentialBackOff()
	result.InitialInterval = 50 * time.Millisecond
	result.MaxInterval = time.Second
	result.MaxElapsedTime = 10 * time.Second
	return backoff.WithMaxRetries(result, 4)
}

func provideBackoffNotifier(lg gke.Logger) backoff.Notify {
	return func(err error, duration time.Duration) {
		lg.Warning(gke.NewFmtMsgData("store operation failed, waiting %v before retrying: %v", duration, err))
	}
}

func provideDataSourceName(user *url.Userinfo, cfg *appConfig) (dsn *url.URL, err error) {
	dsn, err = url.Parse(cfg.DataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to parse data source name: %w", err)
	}
	dsn.User = user

	return dsn, nil
}

func provideDbConnPool(ctx context.Context, dsn *url.URL) (ret *pgxpool.Pool, cleanup func(), err error) {
	pool, err := pgxpool.Connect(ctx, dsn.String())
	if err != nil {
		return nil, func() {}, fmt.Errorf("failed to open database connection pool: %w", err)
	}

	return pool, pool.Close, nil
}

func provideMigrationSourceURL(cfg *appConfig) string {
	return cfg.MigrationSourceURL
}

func provideLogger() (lg gke.Logger, cleanup func()) {
	lg, cleanup, err := gke.NewLogger(context.Background())
	if err != nil {
		panic(err)
	}

	gke.LogEnv(lg)
	gke.LogMetadata(lg)

	return lg, cleanup
}

func provideMigrator(lg gke.Logger, databaseURL *url.URL, sourceURL string) (m *migrate.Migrate, err error) {
	m, err = migrate.New(sourceURL, databaseURL.String())
	if err != nil {
		return nil, err
	}
	m.Log = migrationLogger{lg}
	return m, err
}

type migrationLogger struct {
	gke.Logger
}

func (m migrationLogger) Printf(format string, v ...interface{}) {
	m.Defaultf(format, v...)
}

func (m migrationLogger) Verbose() bool {
	return false
}
