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

// Package cache tracks when keyed resources were last refreshed.
package cache

import (
	"sync"
	"time"
)

type TTL struct {
	now func() time.Time

	mu   sync.Mutex
	last map[string]time.Time
}

func NewTTL(now func() time.Time) *TTL {
	if now == nil {
		now = time.Now
	}
	return &TTL{now: now, last: map[string]time.Time{}}
}

// GetOrRefresh calls refresh when key was not refreshed within ttl. The key is
// stamped only when refresh returns nil, so failed refreshes are retried on
// the next call. It reports whether refresh ran.
func (c *TTL) GetOrRefresh(key string, ttl time.Duration, refresh func() error) (bool, error) {
	if c.Fresh(key, ttl) {
		return false, nil
	}

	if err := refresh(); err != nil {
		return true, err
	}

	c.Touch(key)
	return true, nil
}

func (c *TTL) Fresh(key string, ttl time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	last, ok := c.last[key]
	return ok && c.now().Sub(last) < ttl
}

func (c *TTL) Touch(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last[key] = c.now()
}

func (c *TTL) Forget(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.last, key)
}

// LastRefresh returns when key was last stamped.
func (c *TTL) LastRefresh(key string) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.last[key]
	return t, ok
}
