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

// Package calc evaluates a compiled calculation expression against the
// identifier fields captured by a decomposition, producing the code
// string a verifying address must embed.
package calc

import (
	"fmt"
	"strconv"
	"strings"

	"trualias/internal/charclass"
)

// Target names which captured field a calc op reads: either a numbered
// identifier field of a given class, or the literal resolved account or
// alias string.
type Target struct {
	Name    string // "account" or "alias" when Named is true
	Named   bool
	Class   charclass.Class
	Ordinal int
}

func (t Target) String() string {
	if t.Named {
		return t.Name
	}
	return fmt.Sprintf("%s#%d", t.Class, t.Ordinal)
}

// Fn is the CountFn function family.
type Fn int

const (
	Digits Fn = iota
	Alphas
	Chars
	Vowels
	LabelsCount
)

func (f Fn) String() string {
	switch f {
	case Digits:
		return "DIGITS"
	case Alphas:
		return "ALPHAS"
	case Chars:
		return "CHARS"
	case Vowels:
		return "VOWELS"
	case LabelsCount:
		return "LABELS"
	}
	return "?"
}

// Polarity is ANY vs NONE.
type Polarity int

const (
	Any Polarity = iota
	None
)

// Op is implemented by every calc-op variant.
type Op interface {
	// eval returns this op's contribution to the code being built, or
	// ok=false if the op cannot be evaluated against caps.
	eval(caps Captures, account, alias string) (value string, ok bool)
	String() string
}

type LiteralOp struct {
	Text string
}

func (o LiteralOp) eval(Captures, string, string) (string, bool) { return o.Text, true }
func (o LiteralOp) String() string                               { return fmt.Sprintf("LITERAL(%q)", o.Text) }

type CountOp struct {
	Fn     Fn
	Target Target
}

func (o CountOp) eval(caps Captures, account, alias string) (string, bool) {
	value, class, ok := caps.resolve(o.Target, account, alias)
	if !ok {
		return "", false
	}
	switch o.Fn {
	case Digits:
		return strconv.Itoa(countBytes(value, charclass.IsNumber)), true
	case Alphas:
		return strconv.Itoa(countBytes(value, charclass.IsAlpha)), true
	case Vowels:
		return strconv.Itoa(countBytes(value, charclass.IsVowel)), true
	case Chars:
		return strconv.Itoa(len(value)), true
	case LabelsCount:
		if class != charclass.FQDN {
			return "", false
		}
		return strconv.Itoa(len(charclass.Labels(value))), true
	}
	return "", false
}

func (o CountOp) String() string { return fmt.Sprintf("%s(%s)", o.Fn, o.Target) }

func countBytes(s string, pred func(byte) bool) int {
	n := 0
	for i := 0; i < len(s); i++ {
		if pred(s[i]) {
			n++
		}
	}
	return n
}

type AnyNoneOp struct {
	Polarity Polarity
	Target   Target
}

func (o AnyNoneOp) eval(caps Captures, account, alias string) (string, bool) {
	value, _, ok := caps.resolve(o.Target, account, alias)
	if !ok {
		return "", false
	}
	// Deterministic: pick the lexicographically first byte belonging to
	// (Any) or excluded from (None) the universal alphanumeric class, so
	// the same captured text always yields the same character regardless
	// of what code is actually being verified.
	best := -1
	for i := 0; i < len(value); i++ {
		in := charclass.IsAlnum(value[i])
		if (o.Polarity == Any) != in {
			continue
		}
		if best == -1 || value[i] < value[best] {
			best = i
		}
	}
	if best == -1 {
		return "", false
	}
	return string(value[best]), true
}

func (o AnyNoneOp) String() string {
	if o.Polarity == Any {
		return fmt.Sprintf("ANY(%s)", o.Target)
	}
	return fmt.Sprintf("NONE(%s)", o.Target)
}

type CharAtOp struct {
	Target   Target
	HasLabel bool
	Label    int
	Index    int
	Default  byte
}

func (o CharAtOp) eval(caps Captures, account, alias string) (string, bool) {
	value, class, ok := caps.resolve(o.Target, account, alias)
	if !ok {
		return "", false
	}
	if o.HasLabel {
		if class != charclass.FQDN {
			return "", false
		}
		label, ok := charclass.Label(value, o.Label)
		if !ok {
			return string(o.Default), true
		}
		value = label
	}
	b, ok := charclass.CharAt(value, o.Index)
	if !ok {
		return string(o.Default), true
	}
	return string(b), true
}

func (o CharAtOp) String() string {
	return fmt.Sprintf("CHAR(%s,label=%v:%d,idx=%d,def=%q)", o.Target, o.HasLabel, o.Label, o.Index, o.Default)
}

// Captures holds the text matched by every identifier field in one
// candidate decomposition, keyed by (class, ordinal).
type Captures struct {
	byOrdinal map[key]entry
}

type key struct {
	class   charclass.Class
	ordinal int
}

type entry struct {
	value string
}

func NewCaptures() Captures {
	return Captures{byOrdinal: make(map[key]entry)}
}

func (c Captures) Set(class charclass.Class, ordinal int, value string) {
	c.byOrdinal[key{class, ordinal}] = entry{value}
}

func (c Captures) resolve(t Target, account, alias string) (string, charclass.Class, bool) {
	if t.Named {
		switch t.Name {
		case "account":
			return account, 0, true
		case "alias":
			return alias, 0, true
		}
		return "", 0, false
	}
	e, ok := c.byOrdinal[key{t.Class, t.Ordinal}]
	if !ok {
		return "", 0, false
	}
	return e.value, t.Class, true
}

// Evaluate runs every op in order, concatenating their outputs, and
// reports the full expected code string. It reports ok=false as soon as
// any op cannot be evaluated (an unresolvable target, LABELS or a label
// index on a non-fqdn field, ANY/NONE with no qualifying byte); the
// matcher then rejects that decomposition.
func Evaluate(ops []Op, caps Captures, account, alias string) (string, bool) {
	var b strings.Builder
	for _, op := range ops {
		v, ok := op.eval(caps, account, alias)
		if !ok {
			return "", false
		}
		b.WriteString(v)
	}
	return b.String(), true
}
