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

// Package resolver runs a ConfigurationSet's specifications against a
// query and applies the disambiguation policy described in the
// specification's resolver component.
package resolver

import (
	"sort"
	"strings"

	"trualias/internal/charclass"
	"trualias/internal/matcher"
	"trualias/internal/spec"
)

// Mode selects how the raw query string is interpreted.
type Mode int

const (
	Account Mode = iota
	Virtual
)

// Outcome tags which variant of Resolved was produced.
type Outcome int

const (
	OutcomeMatch Outcome = iota
	OutcomeNotFound
	OutcomeDebug
)

// Resolved is the result of one Resolve call.
type Resolved struct {
	Outcome Outcome
	Account string
	Reply   string
}

// Resolve implements spec.md 4.5's procedure: split the virtual-form
// address if configured, run every specification's matcher, union the
// verifying accounts, and apply the disambiguation policy.
func Resolve(cs *spec.ConfigurationSet, mode Mode, rawInput string) Resolved {
	local := rawInput
	domain := ""
	if mode == Virtual && cs.Options.VirtualForm() {
		at := strings.LastIndexByte(rawInput, '@')
		if at < 0 {
			return Resolved{Outcome: OutcomeNotFound}
		}
		local, domain = rawInput[:at], rawInput[at+1:]
		if !domainAllowed(cs.Options.AliasDomains, domain, cs.Options.CaseSensitive) {
			return Resolved{Outcome: OutcomeNotFound}
		}
	}

	input := local
	winningAccounts := map[string]bool{}
	for _, s := range cs.Specifications {
		foldedInput := charclass.Fold(input, cs.Options.CaseSensitive)
		for _, m := range matcher.Find(s, foldedInput, cs.Options.CaseSensitive) {
			winningAccounts[m.Account] = true
		}
	}

	switch len(winningAccounts) {
	case 0:
		return Resolved{Outcome: OutcomeNotFound}
	case 1:
		var account string
		for a := range winningAccounts {
			account = a
		}
		return Resolved{Outcome: OutcomeMatch, Account: account, Reply: reply(account, domain, mode)}
	default:
		if cs.Options.DebugAccount != "" {
			return Resolved{Outcome: OutcomeDebug, Account: cs.Options.DebugAccount, Reply: reply(cs.Options.DebugAccount, domain, mode)}
		}
		return Resolved{Outcome: OutcomeNotFound}
	}
}

func reply(account, domain string, mode Mode) string {
	if mode == Virtual && domain != "" {
		return account + "@" + domain
	}
	return account
}

func domainAllowed(domains []string, domain string, caseSensitive bool) bool {
	folded := charclass.Fold(domain, caseSensitive)
	for _, d := range domains {
		if charclass.Fold(d, caseSensitive) == folded {
			return true
		}
	}
	return false
}

// WinningAccountsDebug returns the sorted account list a query verified
// against, without applying the disambiguation policy. Used by
// diagnostic tooling (e.g. a "-t" config test mode) to explain why a
// query resolved the way it did.
func WinningAccountsDebug(cs *spec.ConfigurationSet, mode Mode, rawInput string) []string {
	local := rawInput
	if mode == Virtual && cs.Options.VirtualForm() {
		at := strings.LastIndexByte(rawInput, '@')
		if at < 0 {
			return nil
		}
		local = rawInput[:at]
	}
	set := map[string]bool{}
	folded := charclass.Fold(local, cs.Options.CaseSensitive)
	for _, s := range cs.Specifications {
		for _, m := range matcher.Find(s, folded, cs.Options.CaseSensitive) {
			set[m.Account] = true
		}
	}
	out := make([]string, 0, len(set))
	for a := range set {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}
