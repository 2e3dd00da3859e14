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

// Package matchtable matches a value (a connecting host, an IP, an
// alias domain) against a small list of glob/regexp/CIDR/exact rules.
// The pattern syntax and matching logic are adapted from
// internal/check/pattern's table-driven check plugin; this package
// drops maddy's module.MultiTable indirection since trualias's
// LOCAL DOMAINS list is a plain string slice that cmd/trualiasd
// compiles once at startup rather than a pluggable lookup table.
package matchtable

import (
	"errors"
	"fmt"
	"net"
	"regexp"
	"strings"
)

// ErrBadPattern is returned when a rule is syntactically invalid, e.g.
// an empty pattern or a malformed regular expression or CIDR block.
var ErrBadPattern = errors.New("invalid pattern")

// Table is a compiled, ordered set of glob/regexp/CIDR/exact rules.
// The zero Table matches nothing.
type Table struct {
	rules  []string
	reCache map[string]*regexp.Regexp
}

// Compile validates every rule in rules up front so a malformed
// pattern is reported at configuration-load time rather than on the
// first lookup that happens to reach it.
func Compile(rules []string) (*Table, error) {
	t := &Table{rules: rules, reCache: map[string]*regexp.Regexp{}}
	for _, r := range rules {
		if _, err := t.compileOne(r); err != nil {
			return nil, fmt.Errorf("rule %q: %w", r, err)
		}
	}
	return t, nil
}

// Match reports whether value matches any rule in t, trying rules in
// declaration order and returning the first one that matches.
func (t *Table) Match(value string) (rule string, ok bool) {
	if t == nil {
		return "", false
	}
	for _, r := range t.rules {
		matched, err := t.compileOne(r)
		if err != nil {
			continue
		}
		if matched(value) {
			return r, true
		}
	}
	return "", false
}

// MatchHost matches a dotted hostname or address against t, walking
// up the label hierarchy the way a DNS suffix check does: "a.b.c.com"
// is tried, then "b.c.com", then "c.com", then "com", stopping at the
// first rule that matches any of them. This lets a single rule like
// "*.example.com" or "example.com" cover an entire subdomain tree
// without every rule needing its own wildcard.
func (t *Table) MatchHost(address string) (rule string, ok bool) {
	if t == nil || address == "" {
		return "", false
	}
	remaining := address
	for {
		if r, ok := t.Match(remaining); ok {
			return r, true
		}
		sep := strings.IndexByte(remaining, '.')
		if sep == -1 {
			return "", false
		}
		remaining = remaining[sep+1:]
	}
}

func (t *Table) compileOne(pattern string) (func(string) bool, error) {
	if len(pattern) == 0 {
		return nil, fmt.Errorf("%w: pattern is empty", ErrBadPattern)
	}

	// /regexp/flags, e.g. /^[a-z0-9]+$/i
	if len(pattern) > 1 && pattern[0] == '/' {
		re := t.reCache[pattern]
		if re == nil {
			goRe, err := convertToGoRegexp(pattern)
			if err != nil {
				return nil, err
			}
			re, err = regexp.Compile(goRe)
			if err != nil {
				return nil, fmt.Errorf("regexp pattern %q: %w", pattern, err)
			}
			t.reCache[pattern] = re
		}
		return re.MatchString, nil
	}

	// *substring*
	if len(pattern) > 1 && pattern[0] == '*' && pattern[len(pattern)-1] == '*' {
		needle := pattern[1 : len(pattern)-1]
		return func(v string) bool { return strings.Contains(v, needle) }, nil
	}

	// *suffix
	if len(pattern) > 1 && pattern[0] == '*' {
		suffix := pattern[1:]
		return func(v string) bool { return strings.HasSuffix(v, suffix) }, nil
	}

	// prefix*
	if len(pattern) > 1 && pattern[len(pattern)-1] == '*' {
		prefix := pattern[:len(pattern)-1]
		return func(v string) bool { return strings.HasPrefix(v, prefix) }, nil
	}

	// cidr:10.10.0.0/16
	if strings.HasPrefix(pattern, "cidr:") {
		_, ipNet, err := net.ParseCIDR(strings.TrimPrefix(pattern, "cidr:"))
		if err != nil {
			return nil, fmt.Errorf("CIDR pattern %q: %w", pattern, err)
		}
		return func(v string) bool {
			ip := net.ParseIP(v)
			return ip != nil && ipNet.Contains(ip)
		}, nil
	}

	// exact match
	return func(v string) bool { return v == pattern }, nil
}

// convertToGoRegexp turns a /pattern/flags literal into Go's inline
// flag syntax, e.g. /foo/i becomes (?i)foo.
func convertToGoRegexp(pattern string) (string, error) {
	body := pattern[1:]
	end := len(body) - 1
	for end >= 0 && body[end] != '/' && body[end] >= 'a' && body[end] <= 'z' {
		end--
	}
	if end < 0 || body[end] != '/' {
		return "", fmt.Errorf("%w: unterminated regexp literal %q", ErrBadPattern, pattern)
	}
	flags := body[end+1:]
	var b strings.Builder
	for _, f := range flags {
		switch f {
		case 'i', 'm', 's', 'U':
			b.WriteString("(?")
			b.WriteRune(f)
			b.WriteByte(')')
		default:
			return "", fmt.Errorf("%w: unsupported regexp flag %q", ErrBadPattern, string(f))
		}
	}
	b.WriteString(body[:end])
	return b.String(), nil
}
