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

// Package configstore publishes a *spec.ConfigurationSet through a
// single atomic pointer so concurrent resolve workers always observe
// either the entire old set or the entire new one.
package configstore

import (
	"fmt"
	"sync/atomic"

	"trualias/internal/spec"
	"trualias/internal/specparser"
)

// Store holds the currently published ConfigurationSet. The zero Store
// is not usable; create one with New.
type Store struct {
	current atomic.Pointer[spec.ConfigurationSet]
}

// New compiles source and returns a Store seeded with the result. An
// error here means there is no prior configuration to fall back to, so
// the caller (typically cmd/trualiasd at startup) must treat it as fatal.
func New(source string) (*Store, error) {
	cs, diags := specparser.Compile(source)
	if diags.HasErrors() {
		return nil, fmt.Errorf("compiling initial configuration: %w", diags)
	}
	s := &Store{}
	s.current.Store(cs)
	return s, nil
}

// Current returns the presently published ConfigurationSet. Safe to call
// from any number of goroutines concurrently with Reload.
func (s *Store) Current() *spec.ConfigurationSet {
	return s.current.Load()
}

// Reload compiles source and, only if it compiles cleanly, atomically
// replaces the published ConfigurationSet. On failure the previous set
// remains published and the diagnostics are returned for logging.
func (s *Store) Reload(source string) spec.Diagnostics {
	cs, diags := specparser.Compile(source)
	if diags.HasErrors() {
		return diags
	}
	s.current.Store(cs)
	return nil
}
