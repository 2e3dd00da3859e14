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

// Package hook lets a PROCESSOR configuration item install a pair of
// functions that run immediately before and after Resolve, ported
// from original_source/python/preprocessing_sample.py's
// preprocess/postprocess contract. A hook is a null op unless a
// processor is registered for the configured name.
package hook

import "trualias/internal/applog"

// Hook transforms the local part (and, in virtual form, the domain)
// of a query before it reaches Resolve, and the resolved account
// (and domain) afterward. Implementations must treat a null-op
// transform as returning their arguments unchanged.
type Hook interface {
	// Pre runs before lookup. local is the candidate alias; domain is
	// "" in account form.
	Pre(local, domain string) (string, string, error)
	// Post runs after a successful lookup. account is the resolved
	// delivery account; domain is unchanged from Pre's second return.
	Post(account, domain string) (string, string, error)
}

// Func adapts a pair of plain functions to the Hook interface.
type Func struct {
	PreFunc  func(local, domain string) (string, string, error)
	PostFunc func(account, domain string) (string, string, error)
}

func (f Func) Pre(local, domain string) (string, string, error) {
	if f.PreFunc == nil {
		return local, domain, nil
	}
	return f.PreFunc(local, domain)
}

func (f Func) Post(account, domain string) (string, string, error) {
	if f.PostFunc == nil {
		return account, domain, nil
	}
	return f.PostFunc(account, domain)
}

// registry maps a PROCESSOR name (spec.md 6's "processor" option) to
// the Hook it selects. Register is called from an init() in a
// processor's own file, the way preprocessing_sample.py is loaded by
// naming it in the configuration.
var registry = map[string]Hook{}

// Register adds name to the set of processors that Lookup can return.
// Calling Register twice with the same name overwrites the prior
// registration.
func Register(name string, h Hook) {
	registry[name] = h
}

// Lookup returns the Hook registered under name, or nil if name is
// empty or unregistered. A nil Hook is a valid, null-op hook.
func Lookup(name string) Hook {
	if name == "" {
		return nil
	}
	h, ok := registry[name]
	if !ok {
		applog.Warn("unknown processor requested")
		return nil
	}
	return h
}
