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

package hook

import "testing"

func Test_Lookup_SamplePlusTagHook(t *testing.T) {
	h := Lookup("strip_plus_tag")
	if h == nil {
		t.Fatal("Lookup(\"strip_plus_tag\") = nil, want the registered sample hook")
	}
	local, domain, err := h.Pre("jsmith+newsletter", "example.com")
	if err != nil {
		t.Fatalf("Pre() error = %v", err)
	}
	if local != "jsmith" || domain != "example.com" {
		t.Errorf("Pre() = (%q, %q), want (jsmith, example.com)", local, domain)
	}
	account, domain2, err := h.Post("jsmith", "example.com")
	if err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	if account != "jsmith" || domain2 != "example.com" {
		t.Errorf("Post() = (%q, %q), want unchanged input", account, domain2)
	}
}

func Test_Lookup_Unregistered(t *testing.T) {
	if h := Lookup("does-not-exist"); h != nil {
		t.Errorf("Lookup() = %v, want nil for an unregistered name", h)
	}
}

func Test_Lookup_Empty(t *testing.T) {
	if h := Lookup(""); h != nil {
		t.Errorf("Lookup(\"\") = %v, want nil", h)
	}
}

func Test_Func_NilFuncsPassThrough(t *testing.T) {
	f := Func{}
	local, domain, err := f.Pre("a", "b")
	if err != nil || local != "a" || domain != "b" {
		t.Errorf("Pre() = (%q, %q, %v), want (a, b, nil)", local, domain, err)
	}
	account, domain2, err := f.Post("c", "d")
	if err != nil || account != "c" || domain2 != "d" {
		t.Errorf("Post() = (%q, %q, %v), want (c, d, nil)", account, domain2, err)
	}
}
