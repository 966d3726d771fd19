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
	"time"

	"github.com/ajjensen13/cmafeed/internal/gateway"
	"github.com/ajjensen13/cmafeed/internal/ingest/history"
	"github.com/ajjensen13/cmafeed/internal/ingest/quotes"
)

const (
	dbSecretName  = "cmafeed-db-secret.json"
	appConfigName = "cmafeed-config-cm.json"
	apiSecretName = "cmafeed-api-secret.json"

	defaultCatalogName      = "cmafeed-catalog-cm.json"
	defaultCoordinationPath = "cmafeed-coord"
)

type appConfig struct {
	DataSourceName     string `json:"data_source_name"`
	MigrationSourceURL string `json:"migration_source_url"`
	Timezone           string `json:"timezone"`

	GatewayHost         string `json:"gateway_host"`
	CoordinationBackend string `json:"coordination_backend"`
	CoordinationPath    string `json:"coordination_path"`
	CatalogName         string `json:"catalog_name"`

	LoginTimeoutSec      int `json:"login_timeout_sec"`
	QuotesTimeoutSec     int `json:"quotes_timeout_sec"`
	DailyGraphTimeoutSec int `json:"daily_graph_timeout_sec"`

	QuotesIntervalMs  int `json:"quotes_interval_ms"`
	QuotesBatchSize   int `json:"quotes_batch_size"`
	QuotesMaxErrors   int `json:"quotes_max_errors"`
	HistoryIntervalMs int `json:"history_interval_ms"`
	HistoryMaxErrors  int `json:"history_max_errors"`

	LookbackDays     int `json:"lookback_days"`
	BackgroundTTLSec int `json:"background_ttl_sec"`
	SelectedTTLSec   int `json:"selected_ttl_sec"`
}

type appSecrets struct {
	User     string `json:"user"`
	Password string `json:"password"`
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

func millis(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func (c *appConfig) gatewayConfig(s *appSecrets) gateway.Config {
	return gateway.Config{
		Host:              c.GatewayHost,
		User:              s.User,
		Password:          s.Password,
		LoginTimeout:      seconds(c.LoginTimeoutSec),
		QuotesTimeout:     seconds(c.QuotesTimeoutSec),
		DailyGraphTimeout: seconds(c.DailyGraphTimeoutSec),
	}
}

// Zero values are replaced by the ingestor defaults.
func (c *appConfig) quotesConfig(tz *time.Location) quotes.Config {
	return quotes.Config{
		Interval:  millis(c.QuotesIntervalMs),
		BatchSize: c.QuotesBatchSize,
		MaxErrors: c.QuotesMaxErrors,
		Location:  tz,
	}
}

func (c *appConfig) historyConfig(tz *time.Location) history.Config {
	return history.Config{
		Interval:      millis(c.HistoryIntervalMs),
		Lookback:      time.Duration(c.LookbackDays) * 24 * time.Hour,
		BackgroundTTL: seconds(c.BackgroundTTLSec),
		SelectedTTL:   seconds(c.SelectedTTLSec),
		MaxErrors:     c.HistoryMaxErrors,
		Location:      tz,
	}
}

func (c *appConfig) catalogName() string {
	if c.CatalogName == "" {
		return defaultCatalogName
	}
	return c.CatalogName
}
