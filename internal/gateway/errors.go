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

package gateway

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTransport marks requests that never produced a usable response:
	// timeouts, refused connections, non-200 replies and undecodable bodies.
	ErrTransport = errors.New("gateway transport failure")

	// ErrSessionInvalid matches rejections caused by an unusable session.
	ErrSessionInvalid = errors.New("gateway session invalid")
)

const statusSessionInvalid = 10004

var sessionInvalidCodes = map[int]bool{401: true, 403: true, -1: true}

// RejectedError is a response that reached the gateway and came back with
// success=false.
type RejectedError struct {
	Request string
	Status  int
	Code    int
	Message string
}

func (e *RejectedError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "no reason given"
	}
	return fmt.Sprintf("gateway rejected %s (status %d, code %d): %s", e.Request, e.Status, e.Code, msg)
}

// SessionInvalid reports whether the rejection means the session must be
// discarded.
func (e *RejectedError) SessionInvalid() bool {
	return e.Status == statusSessionInvalid ||
		sessionInvalidCodes[e.Code] ||
		strings.Contains(strings.ToLower(e.Message), "session")
}

func (e *RejectedError) Is(target error) bool {
	return target == ErrSessionInvalid && e.SessionInvalid()
}

func transportErr(msg string, err error) error {
	return fmt.Errorf("%s (%v): %w", msg, err, ErrTransport)
}
