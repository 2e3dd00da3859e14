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

// Package tcptable implements Postfix's tcp_table(5) lookup protocol
// on top of a configstore.Store: one "get <key>\n" request per line,
// answered with "200 <value>\n", "500 <reason>\n" for a key that does
// not verify, or "400 <reason>\n" for a malformed request. Ported from
// original_source/python/tcp_table_server.py, which is not part of
// the core spec but is the front-end every core operation exists to
// serve.
package tcptable

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	stdunicode "unicode"

	"trualias/internal/applog"
	"trualias/internal/configstore"
	"trualias/internal/hook"
	"trualias/internal/resolver"
	"trualias/internal/stats"
)

// Server accepts tcp_table(5) connections and answers them from a
// Store, invoking an optional pre/post hook the way spec.md's
// embedding layer wires a resolve function to a transport.
type Server struct {
	Store    *configstore.Store
	Mode     resolver.Mode
	Hook     hook.Hook
	Stats    *stats.Collector
	Listener net.Listener
}

// Serve accepts connections on ln until ctx is cancelled or Accept
// fails. Each connection is handled on its own goroutine, matching
// the one-Resolver-per-connection model of tcp_table_server.py.
func (s *Server) Serve(ctx context.Context) error {
	for {
		conn, err := s.Listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		go s.handle(ctx, conn)
	}
}

func (s *Server) handle(ctx context.Context, conn net.Conn) {
	id := uuid.NewString()
	defer conn.Close()
	if s.Stats != nil {
		s.Stats.ConnOpened()
		defer s.Stats.ConnClosed()
	}

	log := applog.L().With(zap.String("conn", id), zap.String("peer", conn.RemoteAddr().String()))
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := scanner.Text()
		if s.Stats != nil {
			s.Stats.ReadReceived()
		}
		reply, ok := s.answer(line)
		log.Debug("tcp-table request", zap.String("line", line), zap.String("reply", reply))
		if _, err := conn.Write([]byte(reply)); err != nil {
			return
		}
		if s.Stats != nil {
			s.Stats.WriteSent()
			switch {
			case ok:
				s.Stats.Success()
			case strings.HasPrefix(reply, "400 "):
				s.Stats.Bad()
			default:
				s.Stats.NotFound()
			}
		}
	}
}

// answer parses one request line and returns the response line
// (including its trailing "\n") plus whether it was a resolved lookup.
func (s *Server) answer(line string) (string, bool) {
	fields := strings.Fields(line)
	if len(fields) == 1 && s.Stats != nil {
		switch strings.ToLower(fields[0]) {
		case "stats":
			return "200 " + formatStats(s.Stats.Stats()) + "\n", true
		case "jstats":
			b, err := json.Marshal(s.Stats.Stats())
			if err != nil {
				return "400 " + err.Error() + "\n", false
			}
			return "200 " + string(b) + "\n", true
		}
	}
	if len(fields) != 2 || !strings.EqualFold(fields[0], "get") {
		return "400 improperly formed request\n", false
	}

	key, err := decodeKey(fields[1])
	if err != nil {
		return "400 " + err.Error() + "\n", false
	}

	local, domain := key, ""
	if s.Mode == resolver.Virtual {
		if at := strings.LastIndexByte(key, '@'); at >= 0 {
			local, domain = key[:at], key[at+1:]
		}
	}
	if s.Hook != nil {
		local, domain, err = s.Hook.Pre(key, domain)
		if err != nil {
			return "400 " + err.Error() + "\n", false
		}
	}

	input := local
	if s.Mode == resolver.Virtual && domain != "" {
		input = local + "@" + domain
	}

	res := resolver.Resolve(s.Store.Current(), s.Mode, input)
	if res.Outcome == resolver.OutcomeNotFound {
		return "500 not found\n", false
	}

	account, domain := res.Account, domain
	if s.Hook != nil {
		account, domain, err = s.Hook.Post(account, domain)
		if err != nil {
			return "400 " + err.Error() + "\n", false
		}
	}
	reply := account
	if s.Mode == resolver.Virtual && domain != "" {
		reply = account + "@" + domain
	}
	return "200 " + encodeValue(reply) + "\n", true
}

// decodeKey applies Postfix's %HH percent-decoding to a request key,
// then rejects anything outside 7-bit ASCII per spec.md's Non-goals.
func decodeKey(raw string) (string, error) {
	decoded, err := url.QueryUnescape(strings.ReplaceAll(raw, "+", "%2B"))
	if err != nil {
		return "", err
	}
	if !isASCII(decoded) {
		return "", errNonASCII
	}
	return decoded, nil
}

var errNonASCII = errASCII{}

type errASCII struct{}

func (errASCII) Error() string { return "non-ASCII characters in request" }

// asciiTable is the 7-bit ASCII range; runes outside it are stripped by
// the transform below so isASCII can tell whether any were present.
var asciiTable = &stdunicode.RangeTable{
	R16: []stdunicode.Range16{{Lo: 0x0000, Hi: 0x007f, Stride: 1}},
}

func isASCII(s string) bool {
	stripped, _, err := transform.String(runes.Remove(runes.NotIn(asciiTable)), s)
	if err != nil {
		return false
	}
	return stripped == s
}

// encodeValue percent-encodes a reply symmetrically with decodeKey.
func encodeValue(v string) string {
	return url.QueryEscape(v)
}

// formatStats renders a stats.Snapshot the way the plain-text "stats"
// verb reports it: one "name min=.. max=.. 1=.. 10=.. 60=.." line per
// counter, semicolon-separated.
func formatStats(s stats.Snapshot) string {
	line := func(name string, w stats.Window) string {
		return fmt.Sprintf("%s min=%g max=%g 1=%g 10=%g 60=%g", name, w.Min, w.Max, w.One, w.Ten, w.Sixty)
	}
	return strings.Join([]string{
		line("connections", s.Connections),
		line("reads", s.Reads),
		line("writes", s.Writes),
		line("success", s.Success),
		line("not_found", s.NotFound),
		line("bad", s.Bad),
	}, "; ")
}
