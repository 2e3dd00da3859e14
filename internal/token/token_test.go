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

package token

import "testing"

func scanAll(t *testing.T, src string) []Token {
	t.Helper()
	lx := New(src)
	var out []Token
	for {
		tok, err := lx.Next()
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		out = append(out, tok)
		if tok.Kind == EOF {
			return out
		}
	}
}

func Test_Lexer_Words(t *testing.T) {
	toks := scanAll(t, `ACCOUNT jsmith MATCHES "%account%-%number#1%"`)
	want := []struct {
		kind Kind
		text string
	}{
		{Word, "ACCOUNT"},
		{Word, "jsmith"},
		{Word, "MATCHES"},
		{Word, "%account%-%number#1%"},
		{EOF, ""},
	}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %+v", len(toks), len(want), toks)
	}
	for i, w := range want {
		if toks[i].Kind != w.kind || (w.kind == Word && toks[i].Text != w.text) {
			t.Errorf("token %d = %+v, want kind=%v text=%q", i, toks[i], w.kind, w.text)
		}
	}
}

func Test_Lexer_Punctuation(t *testing.T) {
	toks := scanAll(t, "a, b; c(d)")
	kinds := make([]Kind, len(toks))
	for i, tok := range toks {
		kinds[i] = tok.Kind
	}
	want := []Kind{Word, Comma, Word, Semicolon, Word, LParen, Word, RParen, EOF}
	if len(kinds) != len(want) {
		t.Fatalf("got %d kinds, want %d: %v", len(kinds), len(want), kinds)
	}
	for i, w := range want {
		if kinds[i] != w {
			t.Errorf("kind %d = %v, want %v", i, kinds[i], w)
		}
	}
}

func Test_Lexer_CommentsAndBlankLines(t *testing.T) {
	toks := scanAll(t, "# a comment\n\nHOST: localhost\n")
	var words []string
	for _, tok := range toks {
		if tok.Kind == Word {
			words = append(words, tok.Text)
		} else if tok.Kind == Colon {
			words = append(words, ":")
		}
	}
	want := []string{"HOST", ":", "localhost"}
	if len(words) != len(want) {
		t.Fatalf("got %v, want %v", words, want)
	}
	for i := range want {
		if words[i] != want[i] {
			t.Errorf("word %d = %q, want %q", i, words[i], want[i])
		}
	}
}

func Test_Lexer_QuotedStringUnterminated(t *testing.T) {
	lx := New(`"unterminated`)
	_, err := lx.Next()
	if err == nil {
		t.Fatal("Next() error = nil, want unterminated quoted string error")
	}
}

func Test_Lexer_LineTracking(t *testing.T) {
	lx := New("a\nb")
	tok1, _ := lx.Next()
	tok2, _ := lx.Next()
	if tok1.Line != 1 || tok2.Line != 2 {
		t.Errorf("lines = %d, %d, want 1, 2", tok1.Line, tok2.Line)
	}
}
