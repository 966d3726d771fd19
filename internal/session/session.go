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

// Package session shares one gateway session between independent ingestion
// processes through a coordination store.
package session

import (
	"cloud.google.com/go/logging"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ajjensen13/cmafeed/internal/coord"
	"github.com/ajjensen13/cmafeed/internal/model"
	"github.com/ajjensen13/cmafeed/internal/util"
)

type State int

const (
	NoSession State = iota
	Authenticating
	Active
)

func (s State) String() string {
	switch s {
	case NoSession:
		return "no_session"
	case Authenticating:
		return "authenticating"
	case Active:
		return "active"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var ErrNoSession = errors.New("no session")

type Authenticator interface {
	Login(ctx context.Context) (string, error)
}

// Coordinator owns this process's view of the shared session. The store is
// the source of truth: a token found there is adopted without logging in, and
// invalidating clears it for every process.
type Coordinator struct {
	store coord.Store
	auth  Authenticator
	now   func() time.Time

	mu      sync.Mutex
	state   State
	id      string
	revoked string

	group singleflight.Group
}

func New(store coord.Store, auth Authenticator, now func() time.Time) *Coordinator {
	if now == nil {
		now = time.Now
	}
	return &Coordinator{store: store, auth: auth, now: now}
}

func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Coordinator) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id
}

// Acquire returns the active session id, adopting the shared token or logging
// in when there is none. Concurrent callers share a single attempt.
func (c *Coordinator) Acquire(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.state == Active {
		id := c.id
		c.mu.Unlock()
		return id, nil
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do("acquire", func() (interface{}, error) {
		return c.acquire(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *Coordinator) acquire(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.state == Active {
		id := c.id
		c.mu.Unlock()
		return id, nil
	}
	current, revoked := c.id, c.revoked
	c.mu.Unlock()

	var tok model.SessionToken
	found, err := c.store.Get(ctx, coord.SessionKey, &tok)
	if err != nil {
		util.Logf(ctx, logging.Warning, "failed to read shared session, logging in: %v", err)
	}
	if found && tok.SessionID != "" && tok.SessionID != current && tok.SessionID != revoked {
		c.activate(tok.SessionID)
		util.Logf(ctx, logging.Info, "adopted shared session %s (updated %v)", abbrev(tok.SessionID), tok.UpdatedAt)
		return tok.SessionID, nil
	}

	c.setState(Authenticating)
	util.Logf(ctx, logging.Info, "authenticating with gateway")

	id, err := c.auth.Login(ctx)
	if err != nil {
		c.setState(NoSession)
		return "", fmt.Errorf("%w: %w", ErrNoSession, err)
	}

	c.activate(id)
	if err := c.store.Set(ctx, coord.SessionKey, model.SessionToken{SessionID: id, UpdatedAt: c.now()}); err != nil {
		util.Logf(ctx, logging.Warning, "failed to share session %s: %v", abbrev(id), err)
	}

	util.Logf(ctx, logging.Info, "new session %s", abbrev(id))
	return id, nil
}

// Invalidate drops the session locally and in the shared store. The dropped id
// is never adopted again.
func (c *Coordinator) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	if c.id != "" {
		c.revoked = c.id
	}
	c.id = ""
	c.state = NoSession
	c.mu.Unlock()

	util.Logf(ctx, logging.Warning, "session invalidated")
	if err := c.store.Clear(ctx, coord.SessionKey); err != nil {
		return fmt.Errorf("failed to clear shared session: %w", err)
	}
	return nil
}

func (c *Coordinator) activate(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.id = id
	c.state = Active
}

func (c *Coordinator) setState(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
}

func abbrev(id string) string {
	if len(id) > 10 {
		return id[:10] + "..."
	}
	return id
}
