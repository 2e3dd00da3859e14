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

package milterfront

import "testing"

func Test_SplitRecipient(t *testing.T) {
	tests := []struct {
		in      string
		account string
		domain  string
		ok      bool
	}{
		{"<jsmith@example.com>", "jsmith", "example.com", true},
		{"jsmith@example.com", "jsmith", "example.com", true},
		{"  <jsmith@example.com>  ", "jsmith", "example.com", true},
		{"<postmaster>", "", "", false},
		{"<@example.com>", "", "", false},
		{"<jsmith@>", "", "", false},
	}
	for _, tt := range tests {
		account, domain, ok := splitRecipient(tt.in)
		if ok != tt.ok {
			t.Errorf("splitRecipient(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			continue
		}
		if !ok {
			continue
		}
		if account != tt.account || domain != tt.domain {
			t.Errorf("splitRecipient(%q) = (%q, %q), want (%q, %q)", tt.in, account, domain, tt.account, tt.domain)
		}
	}
}
