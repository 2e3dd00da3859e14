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

// Package milterfront is an alternative front-end to internal/tcptable:
// rather than Postfix driving a tcp_table(5) lookup, the MTA itself
// hands every RCPT TO command to this milter, which rewrites the
// envelope recipient to the resolved account before the message is
// ever queued. Ported from original_source/python/trualias/milter.py's
// MilterServer.service_requests, whose hand-rolled SMFIC_* framing and
// ADDRCPT/DELRCPT bookkeeping go-milter's Server already provides.
package milterfront

import (
	"net"
	"strings"

	"github.com/emersion/go-milter"
	"go.uber.org/zap"

	"trualias/internal/applog"
	"trualias/internal/configstore"
	"trualias/internal/hook"
	"trualias/internal/matchtable"
	"trualias/internal/resolver"
	"trualias/internal/vrfygate"
)

// Front implements go-milter's connection-factory contract. One Front
// is shared by every connection the server accepts; go-milter calls
// NewMilter per connection, so Front itself must be stateless and
// safe for concurrent use — all per-connection state lives in session.
type Front struct {
	Store        *configstore.Store
	LocalDomains *matchtable.Table
	Gate         *vrfygate.Gate // nil disables the secondary VRFY gate
	Hook         hook.Hook      // nil disables pre/post processing
}

// NewMilter satisfies the factory signature go-milter's
// milter.WithMilter option expects: one session per connection.
func (f *Front) NewMilter() milter.Milter {
	return &session{front: f}
}

type session struct {
	milter.NoOpMilter
	front    *Front
	rewrites []rewrite
}

// RcptTo implements the only callback milter.py actually uses: local
// delivery only, trualias expansion, and (if configured) a secondary
// VRFY check, after which the recipient is rewritten (DelRecipient +
// AddRecipient, mirroring milter.py's ACTIONS = SMFIF_ADDRCPT |
// SMFIF_DELRCPT) or the command is rejected outright.
func (s *session) RcptTo(rcptTo string, m *milter.Modifier) (milter.Response, error) {
	account, domain, ok := splitRecipient(rcptTo)
	if !ok {
		return milter.RespContinue, nil
	}

	if s.front.LocalDomains != nil {
		if _, matched := s.front.LocalDomains.Match(strings.ToLower(domain)); !matched {
			// Not ours to intermediate; pass the recipient through
			// unmodified, matching milter.py's "domain not in self.domains".
			return milter.RespContinue, nil
		}
	}

	if s.front.Hook != nil {
		var err error
		account, domain, err = s.front.Hook.Pre(account, domain)
		if err != nil {
			applog.Warn("milter rcpt rejected, pre-hook error", zap.Error(err))
			return milter.RespTempFail, nil
		}
	}

	cs := s.front.Store.Current()
	res := resolver.Resolve(cs, resolver.Account, account)
	if res.Outcome == resolver.OutcomeNotFound {
		applog.Debug("milter rcpt rejected, no verifying alias", zap.String("rcpt", rcptTo))
		return milter.RespReject, nil
	}

	if s.front.Gate != nil {
		ok, err := s.front.Gate.Verify(res.Account)
		if err != nil {
			applog.Warn("vrfy gate unreachable, rejecting recipient", zap.Error(err))
			return milter.RespTempFail, nil
		}
		if !ok {
			applog.Debug("milter rcpt rejected, vrfy gate declined", zap.String("account", res.Account))
			return milter.RespReject, nil
		}
	}

	resolvedAccount, resolvedDomain := res.Account, domain
	if s.front.Hook != nil {
		var err error
		resolvedAccount, resolvedDomain, err = s.front.Hook.Post(resolvedAccount, resolvedDomain)
		if err != nil {
			applog.Warn("milter rcpt rejected, post-hook error", zap.Error(err))
			return milter.RespTempFail, nil
		}
	}

	if resolvedAccount == account && resolvedDomain == domain {
		return milter.RespAccept, nil
	}
	s.rewrites = append(s.rewrites, rewrite{old: rcptTo, new: "<" + resolvedAccount + "@" + resolvedDomain + ">"})
	return milter.RespAccept, nil
}

type rewrite struct{ old, new string }

// EndOfMessage flushes the recipient rewrites accumulated across
// every RcptTo on this connection, matching milter.py's EOB handler
// which issues one DELRCPT/ADDRCPT pair per recipient that changed.
func (s *session) EndOfMessage(m *milter.Modifier) (milter.Response, error) {
	for _, r := range s.rewrites {
		if err := m.DeleteRecipient(r.old); err != nil {
			return milter.RespTempFail, err
		}
		if err := m.AddRecipient(r.new); err != nil {
			return milter.RespTempFail, err
		}
	}
	s.rewrites = nil
	return milter.RespAccept, nil
}

// splitRecipient extracts the account and domain from an RCPT TO
// envelope value of the form "<account@domain>", matching milter.py's
// Recipient.name()/domain().
func splitRecipient(rcpt string) (account, domain string, ok bool) {
	addr := strings.TrimSpace(rcpt)
	addr = strings.TrimPrefix(addr, "<")
	addr = strings.TrimSuffix(addr, ">")
	at := strings.LastIndexByte(addr, '@')
	if at <= 0 || at == len(addr)-1 {
		return "", "", false
	}
	return addr[:at], addr[at+1:], true
}

// ListenAndServe starts a milter server for f on addr ("tcp" or
// "unix"), blocking until the listener fails or is closed.
func ListenAndServe(network, addr string, f *Front) error {
	ln, err := net.Listen(network, addr)
	if err != nil {
		return err
	}
	server := &milter.Server{NewMilter: f.NewMilter}
	return server.Serve(ln)
}
