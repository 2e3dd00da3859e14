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

package resolver

import (
	"testing"

	"trualias/internal/specparser"
)

func Test_Resolve_UniqueMatch(t *testing.T) {
	cs, diags := specparser.Compile(`ACCOUNT foo MATCHES "%account%-%ident%-%code%" WITH CHAR(1,-), CHARS();`)
	if diags.HasErrors() {
		t.Fatalf("Compile() diags = %v", diags)
	}
	res := Resolve(cs, Account, "foo-macys-m5")
	if res.Outcome != OutcomeMatch || res.Account != "foo" {
		t.Errorf("Resolve() = %+v, want Account match foo", res)
	}
}

func Test_Resolve_NotFound(t *testing.T) {
	cs, diags := specparser.Compile(`ACCOUNT foo MATCHES "%account%-%ident%-%code%" WITH CHAR(1,-), CHARS();`)
	if diags.HasErrors() {
		t.Fatalf("Compile() diags = %v", diags)
	}
	res := Resolve(cs, Account, "foo-macys-zz")
	if res.Outcome != OutcomeNotFound {
		t.Errorf("Resolve() = %+v, want OutcomeNotFound", res)
	}
}

func Test_Resolve_ContextAmbiguousUsesDebugAccount(t *testing.T) {
	src := `
DEBUG ACCOUNT: postmaster
ACCOUNT foo, bar MATCHES "%ident%-%code%" WITH CHAR(1,-), CHARS();
`
	cs, diags := specparser.Compile(src)
	if diags.HasErrors() {
		t.Fatalf("Compile() diags = %v", diags)
	}
	if !cs.Specifications[0].ContextAmbiguous {
		t.Fatal("specification should be tagged ContextAmbiguous")
	}
	res := Resolve(cs, Account, "macys-m5")
	if res.Outcome != OutcomeDebug || res.Account != "postmaster" {
		t.Errorf("Resolve() = %+v, want debug-account fallback", res)
	}
}

func Test_Resolve_ContextAmbiguousNoDebugAccountIsNotFound(t *testing.T) {
	src := `ACCOUNT foo, bar MATCHES "%ident%-%code%" WITH CHAR(1,-), CHARS();`
	cs, diags := specparser.Compile(src)
	if diags.HasErrors() {
		t.Fatalf("Compile() diags = %v", diags)
	}
	res := Resolve(cs, Account, "macys-m5")
	if res.Outcome != OutcomeNotFound {
		t.Errorf("Resolve() = %+v, want OutcomeNotFound (no debug account configured)", res)
	}
}

func Test_Resolve_VirtualForm(t *testing.T) {
	src := `
ALIAS DOMAINS: example.com
ACCOUNT foo MATCHES "%account%-%ident%-%code%" WITH CHAR(1,-), CHARS();
`
	cs, diags := specparser.Compile(src)
	if diags.HasErrors() {
		t.Fatalf("Compile() diags = %v", diags)
	}
	res := Resolve(cs, Virtual, "foo-macys-m5@example.com")
	if res.Outcome != OutcomeMatch || res.Reply != "foo@example.com" {
		t.Errorf("Resolve() = %+v, want foo@example.com", res)
	}
}

func Test_Resolve_VirtualForm_WrongDomainNotFound(t *testing.T) {
	src := `
ALIAS DOMAINS: example.com
ACCOUNT foo MATCHES "%account%-%ident%-%code%" WITH CHAR(1,-), CHARS();
`
	cs, diags := specparser.Compile(src)
	if diags.HasErrors() {
		t.Fatalf("Compile() diags = %v", diags)
	}
	res := Resolve(cs, Virtual, "foo-macys-m5@other.example")
	if res.Outcome != OutcomeNotFound {
		t.Errorf("Resolve() = %+v, want OutcomeNotFound for an unlisted domain", res)
	}
}
