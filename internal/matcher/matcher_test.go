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

package matcher

import (
	"testing"

	"trualias/internal/specparser"
)

// Seeded scenarios lifted straight from the specification's worked
// examples: one Specification, one query, the expected verifying
// account.
func Test_Find_SeededScenarios(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		query   string
		account string
	}{
		{
			name:    "ident field with CHAR/CHARS",
			src:     `ACCOUNT foo MATCHES "%account%-%ident%-%code%" WITH CHAR(1,-), CHARS();`,
			query:   "foo-macys-m5",
			account: "foo",
		},
		{
			name:    "explicit alias list",
			src:     `ACCOUNT foo ALIASED joe, paul MATCHES "%alias%-%ident%-%code%" WITH CHAR(1,-), CHARS();`,
			query:   "joe-google-g6",
			account: "foo",
		},
		{
			name:    "fqdn field with label selectors",
			src:     `ACCOUNT foo MATCHES "%account%-%fqdn%-%code%" WITH CHAR(1,1,-), CHAR(2,-1,-), CHARS();`,
			query:   "foo-register.co.uk-ro14",
			account: "foo",
		},
		{
			name:    "two alpha idents with per-field CHARS",
			src:     `ACCOUNT baz MATCHES "%alpha%is%alpha%.%code%" WITH CHARS(1), CHARS(2);`,
			query:   "samissexy.34",
			account: "baz",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cs, diags := specparser.Compile(tt.src)
			if diags.HasErrors() {
				t.Fatalf("Compile() diags = %v", diags)
			}
			matches := Find(cs.Specifications[0], tt.query, cs.Options.CaseSensitive)
			var accounts []string
			for _, m := range matches {
				accounts = append(accounts, m.Account)
			}
			found := false
			for _, a := range accounts {
				if a == tt.account {
					found = true
				}
			}
			if !found {
				t.Errorf("Find(%q) matched accounts %v, want %q among them", tt.query, accounts, tt.account)
			}
		})
	}
}

func Test_Find_NoMatch(t *testing.T) {
	cs, diags := specparser.Compile(`ACCOUNT foo MATCHES "%account%-%ident%-%code%" WITH CHAR(1,-), CHARS();`)
	if diags.HasErrors() {
		t.Fatalf("Compile() diags = %v", diags)
	}
	matches := Find(cs.Specifications[0], "foo-macys-zz", cs.Options.CaseSensitive)
	if len(matches) != 0 {
		t.Errorf("Find() = %v, want no matches for a wrong code", matches)
	}
}
