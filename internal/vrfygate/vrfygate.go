/*
Maddy Mail Server - Composable all-in-one email server.
Copyright 2021, Steve Blinch <dev@blinch.ca>, Max Mazurov <fox.cpp@disroot.org>, Maddy Mail Server contributors

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// Package vrfygate double-checks a resolved account against a
// backend MTA's VRFY response before a front-end reports success,
// ported from original_source/python/trualias/smtplib.py's
// asyncio-flavored SMTP client (there written from scratch around
// VRFY; here the standard client already speaks it).
package vrfygate

import (
	"fmt"
	"net"
	"time"

	"github.com/emersion/go-smtp"
)

// Gate dials host once per Verify call and issues EHLO then VRFY,
// matching the connect/ehlo/vrfy/quit sequence smtplib.py's SMTP
// class performs for each lookup.
type Gate struct {
	Host         string
	Port         int
	LocalHost    string
	DialTimeout  time.Duration
}

// DefaultDialTimeout mirrors smtplib.py's TIMEOUT constant.
const DefaultDialTimeout = 10 * time.Second

// Verify dials the configured backend and issues VRFY for account,
// reporting true only when VRFY succeeds. A dial, greeting or EHLO
// error is reported as (false, err) so callers can distinguish "the
// backend rejected it" from "the backend was unreachable". Any error
// from the VRFY command itself, whatever its cause, is reported as
// (false, nil).
func (g *Gate) Verify(account string) (bool, error) {
	timeout := g.DialTimeout
	if timeout <= 0 {
		timeout = DefaultDialTimeout
	}
	addr := net.JoinHostPort(g.Host, fmt.Sprintf("%d", g.Port))

	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return false, err
	}
	client, err := smtp.NewClient(conn, g.Host)
	if err != nil {
		conn.Close()
		return false, err
	}
	defer client.Close()

	localHost := g.LocalHost
	if localHost == "" {
		localHost = "localhost"
	}
	if err := client.Hello(localHost); err != nil {
		return false, err
	}

	if err := client.Verify(account); err != nil {
		return false, nil
	}
	return true, client.Quit()
}
