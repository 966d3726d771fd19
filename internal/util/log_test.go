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

package util

import (
	"cloud.google.com/go/logging"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithLoggerValue(t *testing.T) {
	ctx := WithLoggerValue(context.Background(), "action", "load")
	child := WithLoggerValue(ctx, "symbol", "DOLG24")

	assert.Equal(t, map[string]interface{}{"action": "load"}, LoggerValues(ctx), "parent values are not modified")
	assert.Equal(t, map[string]interface{}{"action": "load", "symbol": "DOLG24"}, LoggerValues(child))
	assert.Nil(t, LoggerValues(context.Background()))
}

func TestLogfWithoutLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		Logf(context.Background(), logging.Warning, "nobody listens: %d", 1)
	})
}
