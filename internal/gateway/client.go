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

// Package gateway speaks the JSON-over-HTTP protocol of the remote trading
// data gateway.
package gateway

import (
	"cloud.google.com/go/logging"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ajjensen13/cmafeed/internal/util"
)

// maxResponseSize caps how much of a gateway reply is read.
var maxResponseSize int64 = 32 << 20

type Config struct {
	Host     string
	User     string
	Password string

	LoginTimeout      time.Duration
	QuotesTimeout     time.Duration
	DailyGraphTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		LoginTimeout:      10 * time.Second,
		QuotesTimeout:     5 * time.Second,
		DailyGraphTimeout: 20 * time.Second,
	}
}

type Client struct {
	cfg        Config
	endpoint   string
	httpClient *http.Client
	msgID      uint64
}

func NewClient(cfg Config, httpClient *http.Client) *Client {
	def := DefaultConfig()
	if cfg.LoginTimeout <= 0 {
		cfg.LoginTimeout = def.LoginTimeout
	}
	if cfg.QuotesTimeout <= 0 {
		cfg.QuotesTimeout = def.QuotesTimeout
	}
	if cfg.DailyGraphTimeout <= 0 {
		cfg.DailyGraphTimeout = def.DailyGraphTimeout
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		cfg:        cfg,
		endpoint:   strings.TrimRight(cfg.Host, "/") + "/execute",
		httpClient: httpClient,
	}
}

// Send posts req with the given session and decodes the reply. A reply with
// success=false is returned as a *RejectedError together with the response.
func (c *Client) Send(ctx context.Context, sessionID string, req Request, timeout time.Duration) (*Response, error) {
	h := req.header()
	h.ID = atomic.AddUint64(&c.msgID, 1)
	h.SessionID = sessionID

	ctx = util.WithLoggerValue(ctx, "request", h.Name)
	ctx = util.WithLoggerValue(ctx, "request_id", h.ID)

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", h.Name, err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	form := url.Values{"JSONRequest": {string(body)}}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", h.Name, err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, transportErr(fmt.Sprintf("error while posting %s", h.Name), err)
	}
	defer httpResp.Body.Close()

	raw, err := ioutil.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize+1))
	if err != nil {
		return nil, transportErr(fmt.Sprintf("error while reading %s response", h.Name), err)
	}

	if int64(len(raw)) > maxResponseSize {
		return nil, transportErr(fmt.Sprintf("oversized %s response", h.Name), fmt.Errorf("more than %d bytes", maxResponseSize))
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, transportErr(fmt.Sprintf("unexpected http status for %s (%s)", h.Name, raw), errors.New(httpResp.Status))
	}

	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, transportErr(fmt.Sprintf("error while decoding %s response", h.Name), err)
	}

	if !resp.Success {
		rej := &RejectedError{Request: h.Name, Status: resp.Status.Int(), Code: resp.Code.Int(), Message: resp.reason()}
		util.Logf(ctx, logging.Debug, "%v", rej)
		return &resp, rej
	}

	return &resp, nil
}

// Login opens a new session and returns its identifier.
func (c *Client) Login(ctx context.Context) (string, error) {
	resp, err := c.Send(ctx, "", NewLoginRequest(c.cfg.User, c.cfg.Password), c.cfg.LoginTimeout)
	if err != nil {
		return "", fmt.Errorf("login failed: %w", err)
	}
	if resp.SessionID == "" {
		return "", fmt.Errorf("login succeeded without a session id: %w", ErrTransport)
	}
	return resp.SessionID, nil
}

// Quotes requests the current values of symbols. A business rejection is
// returned together with whatever quotes the gateway still sent.
func (c *Client) Quotes(ctx context.Context, sessionID string, symbols []SymbolID, fields []string) ([]Quote, error) {
	resp, err := c.Send(ctx, sessionID, NewQuotesRequest(symbols, fields), c.cfg.QuotesTimeout)
	var rej *RejectedError
	switch {
	case errors.As(err, &rej) && !rej.SessionInvalid():
		return resp.Quotes, err
	case err != nil:
		return nil, err
	}
	return resp.Quotes, nil
}

func (c *Client) DailyGraph(ctx context.Context, sessionID string, symbol SymbolID, from, to time.Time, period int) ([]Bar, error) {
	resp, err := c.Send(ctx, sessionID, NewDailyGraphRequest(symbol, from, to, period), c.cfg.DailyGraphTimeout)
	if err != nil {
		return nil, err
	}
	return resp.Candles(), nil
}
