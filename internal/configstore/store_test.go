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

package configstore

import (
	"sync"
	"testing"
)

const validSource = `ACCOUNT foo MATCHES "%account%-%ident%-%code%" WITH CHAR(1,-), CHARS();`

func Test_New_Success(t *testing.T) {
	s, err := New(validSource)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if len(s.Current().Specifications) != 1 {
		t.Errorf("got %d specifications, want 1", len(s.Current().Specifications))
	}
}

func Test_New_InvalidSourceIsFatal(t *testing.T) {
	_, err := New(`ACCOUNT foo MATCHES "%account%" WITH CHARS();`)
	if err == nil {
		t.Fatal("New() error = nil, want a compile error (missing code placeholder)")
	}
}

func Test_Reload_KeepsPreviousOnFailure(t *testing.T) {
	s, err := New(validSource)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	before := s.Current()

	diags := s.Reload(`ACCOUNT foo MATCHES "%account%" WITH CHARS();`)
	if !diags.HasErrors() {
		t.Fatal("Reload() expected diagnostics for an invalid source")
	}
	if s.Current() != before {
		t.Error("Reload() replaced the published set despite a compile failure")
	}
}

func Test_Reload_PublishesOnSuccess(t *testing.T) {
	s, err := New(validSource)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	diags := s.Reload(`ACCOUNT bar MATCHES "%account%-%code%" WITH CHARS();`)
	if diags.HasErrors() {
		t.Fatalf("Reload() diags = %v", diags)
	}
	if s.Current().Specifications[0].Accounts[0] != "bar" {
		t.Errorf("Current() = %+v, want the reloaded specification", s.Current())
	}
}

func Test_Store_ConcurrentReadsDuringReload(t *testing.T) {
	s, err := New(validSource)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Current()
		}()
	}
	s.Reload(`ACCOUNT bar MATCHES "%account%-%code%" WITH CHARS();`)
	wg.Wait()
}
