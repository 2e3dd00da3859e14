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

// Package matcher enumerates every way an input string can decompose
// against one specification's pattern, verifying each candidate's code
// field via internal/calc.
package matcher

import (
	"trualias/internal/calc"
	"trualias/internal/charclass"
	"trualias/internal/spec"
)

// Match is one verified decomposition: the account and alias it resolved
// to, and the code text that was found to verify.
type Match struct {
	Account string
	Alias   string
	Code    string
}

// resolvedElem is a pattern element with %account%/%alias% already
// expanded into a concrete literal for this matching pass.
type resolvedElem struct {
	literal  bool
	text     string
	class    charclass.Class
	ordinal  int
	isCode   bool
}

// Find returns every verifying decomposition of input against s.
// input must already be case-folded by the caller (per
// Options.CaseSensitive); Find folds s's pattern literals and
// account/alias names itself.
func Find(s *spec.Specification, input string, caseSensitive bool) []Match {
	pattern := s.Pattern
	if !caseSensitive {
		pattern = make([]spec.PatternElement, len(s.Pattern))
		for i, e := range s.Pattern {
			e.Literal = charclass.Fold(e.Literal, false)
			pattern[i] = e
		}
	}

	accountLiterals := []string{""}
	if s.HasAccountAnchor() {
		accountLiterals = foldAll(s.Accounts, caseSensitive)
	}
	aliasLiterals := []string{""}
	if s.HasAliasAnchor() {
		aliasLiterals = foldAll(s.AliasesFor(), caseSensitive)
	}

	codeClass := buildCodeClass(s.Calc, caseSensitive)

	hasAcctAnchor := s.HasAccountAnchor()
	hasAliasAnchor := s.HasAliasAnchor()

	var out []Match
	for ai, acctLit := range accountLiterals {
		for li, aliasLit := range aliasLiterals {
			elems := resolveElems(pattern, acctLit, aliasLit)
			m := &runner{input: input, elems: elems, codeClass: codeClass}
			m.run()

			// Candidate (declared account, folded value) pairs to try
			// when evaluating calc: the literal anchor if the pattern
			// has one, otherwise every declared account/alias in turn.
			acctCandidates := []namedValue{{s.Accounts[ai], acctLit}}
			if !hasAcctAnchor {
				acctCandidates = pairWithFold(s.Accounts, caseSensitive)
			}
			declaredAliases := s.AliasesFor()
			aliasCandidates := []namedValue{{declaredAliases[li], aliasLit}}
			if !hasAliasAnchor {
				aliasCandidates = pairWithFold(declaredAliases, caseSensitive)
			}

			for _, d := range m.decompositions {
				out = append(out, evaluateDecomposition(s, d, acctCandidates, aliasCandidates)...)
			}
		}
	}
	return out
}

type namedValue struct {
	declared string
	folded   string
}

func pairWithFold(ss []string, caseSensitive bool) []namedValue {
	out := make([]namedValue, len(ss))
	for i, s := range ss {
		out[i] = namedValue{declared: s, folded: charclass.Fold(s, caseSensitive)}
	}
	return out
}

func foldAll(ss []string, caseSensitive bool) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = charclass.Fold(s, caseSensitive)
	}
	return out
}

func resolveElems(pattern []spec.PatternElement, acctLit, aliasLit string) []resolvedElem {
	out := make([]resolvedElem, 0, len(pattern))
	for _, e := range pattern {
		switch e.Kind {
		case spec.ElemLiteral:
			out = append(out, resolvedElem{literal: true, text: e.Literal})
		case spec.ElemAccount:
			out = append(out, resolvedElem{literal: true, text: acctLit})
		case spec.ElemAlias:
			out = append(out, resolvedElem{literal: true, text: aliasLit})
		case spec.ElemCode:
			out = append(out, resolvedElem{isCode: true})
		case spec.ElemIdent:
			out = append(out, resolvedElem{class: e.Class, ordinal: e.Ordinal})
		}
	}
	return out
}

// buildCodeClass derives the byte set the code field may legally contain:
// alphanumerics, plus any literal default byte used by a CHAR calc op
// (spec.md 4.4's "conservatively, printable alnum + any literal bytes
// appearing as CharAt defaults").
func buildCodeClass(ops []calc.Op, caseSensitive bool) func(byte) bool {
	extra := map[byte]bool{}
	for _, op := range ops {
		if c, ok := op.(calc.CharAtOp); ok {
			d := c.Default
			if !caseSensitive && d >= 'A' && d <= 'Z' {
				d += 'a' - 'A'
			}
			extra[d] = true
		}
	}
	return func(b byte) bool {
		return charclass.IsAlnum(b) || extra[b]
	}
}

type capture struct {
	class   charclass.Class
	ordinal int
	text    string
	isCode  bool
}

type runner struct {
	input          string
	elems          []resolvedElem
	codeClass      func(byte) bool
	decompositions [][]capture
}

func (m *runner) run() {
	m.matchFrom(0, 0, nil)
}

func (m *runner) matchFrom(idx, pos int, caps []capture) {
	if idx == len(m.elems) {
		if pos == len(m.input) {
			cp := make([]capture, len(caps))
			copy(cp, caps)
			m.decompositions = append(m.decompositions, cp)
		}
		return
	}
	el := m.elems[idx]

	if el.literal {
		end := pos + len(el.text)
		if end > len(m.input) || m.input[pos:end] != el.text {
			return
		}
		m.matchFrom(idx+1, end, caps)
		return
	}

	if el.isCode {
		maxLen := 0
		for pos+maxLen < len(m.input) && m.codeClass(m.input[pos+maxLen]) {
			maxLen++
		}
		for k := maxLen; k >= 1; k-- {
			next := append(append([]capture{}, caps...), capture{text: m.input[pos : pos+k], isCode: true})
			m.matchFrom(idx+1, pos+k, next)
		}
		return
	}

	// identifier field
	pred := func(b byte) bool { return charclass.Contains(el.class, b) }
	maxLen := 0
	for pos+maxLen < len(m.input) && pred(m.input[pos+maxLen]) {
		maxLen++
	}
	if maxLen == 0 {
		return
	}

	if idx+1 < len(m.elems) && !m.elems[idx+1].literal && !m.elems[idx+1].isCode {
		// Friendly adjacency (alpha/number): the two disjoint classes
		// can only split where membership of the current class ends.
		next := append(append([]capture{}, caps...), capture{class: el.class, ordinal: el.ordinal, text: m.input[pos : pos+maxLen]})
		m.matchFrom(idx+1, pos+maxLen, next)
		return
	}

	for k := maxLen; k >= 1; k-- {
		next := append(append([]capture{}, caps...), capture{class: el.class, ordinal: el.ordinal, text: m.input[pos : pos+k]})
		m.matchFrom(idx+1, pos+k, next)
	}
}

// evaluateDecomposition evaluates the calc expression for every
// candidate (account, alias) pair against one raw decomposition,
// reporting one Match per declared account whose code verifies under
// some candidate alias. When the pattern anchors account/alias with a
// literal, each candidate list has exactly one entry; otherwise every
// declared name is tried, matching the context-ambiguous tagging in
// internal/specparser (the resolver, not this function, decides what to
// do when more than one account verifies).
func evaluateDecomposition(s *spec.Specification, caps []capture, acctCandidates, aliasCandidates []namedValue) []Match {
	captures := calc.NewCaptures()
	var codeText string
	for _, c := range caps {
		if c.isCode {
			codeText = c.text
			continue
		}
		captures.Set(c.class, c.ordinal, c.text)
	}

	seen := map[string]bool{}
	var out []Match
	for _, acct := range acctCandidates {
		if seen[acct.declared] {
			continue
		}
		for _, alias := range aliasCandidates {
			code, ok := calc.Evaluate(s.Calc, captures, acct.folded, alias.folded)
			if ok && code == codeText {
				seen[acct.declared] = true
				out = append(out, Match{Account: acct.declared, Alias: alias.declared, Code: codeText})
				break
			}
		}
	}
	return out
}
