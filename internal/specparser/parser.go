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

// Package specparser compiles alias-configuration source text into a
// spec.ConfigurationSet, performing every static validation in the
// specification grammar and invariant list.
package specparser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"trualias/internal/calc"
	"trualias/internal/charclass"
	"trualias/internal/spec"
	"trualias/internal/token"
)

var validate = validator.New()

// Compile parses source and, if it is free of diagnostics, returns the
// frozen ConfigurationSet. On any diagnostic the returned set is nil; the
// caller must retain its previous ConfigurationSet.
func Compile(source string) (*spec.ConfigurationSet, spec.Diagnostics) {
	p := newParser(source)
	p.run()
	if p.diags.HasErrors() {
		return nil, p.diags
	}
	if err := validate.Struct(&p.opts); err != nil {
		p.errorf(0, 0, spec.KindSemantic, nil, "invalid configuration options: %s", err)
		return nil, p.diags
	}
	return &spec.ConfigurationSet{Options: p.opts, Specifications: p.specs}, nil
}

type parser struct {
	toks []token.Token
	pos  int

	diags spec.Diagnostics
	opts  spec.Options
	specs []*spec.Specification

	accountOwner map[string]bool
	aliasOwner   map[string]bool
	lexFailed    bool
}

func newParser(source string) *parser {
	lx := token.New(source)
	p := &parser{accountOwner: map[string]bool{}, aliasOwner: map[string]bool{}}
	for {
		t, err := lx.Next()
		if err != nil {
			// Stop collecting tokens; the stream can't continue past a
			// lex error, so the parser runs over whatever was scanned so
			// far (usually enough to report the failure and nothing else).
			le := err.(*token.LexError)
			p.errorf(le.Line, le.Col, spec.KindSyntax, nil, "%s", le.Reason)
			p.toks = append(p.toks, token.Token{Kind: token.EOF})
			p.lexFailed = true
			return p
		}
		p.toks = append(p.toks, t)
		if t.Kind == token.EOF {
			break
		}
	}
	return p
}

func (p *parser) run() {
	if p.lexFailed {
		return
	}
	for p.peek().Kind != token.EOF {
		if p.peekWordEquals("ACCOUNT") {
			p.parseAliasSpec()
			continue
		}
		p.parseConfigStatement()
	}
}

func (p *parser) peek() token.Token {
	if p.pos >= len(p.toks) {
		return token.Token{Kind: token.EOF}
	}
	return p.toks[p.pos]
}

func (p *parser) peekAt(offset int) token.Token {
	i := p.pos + offset
	if i >= len(p.toks) {
		return token.Token{Kind: token.EOF}
	}
	return p.toks[i]
}

func (p *parser) advance() token.Token {
	t := p.peek()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *parser) peekWordEquals(s string) bool {
	t := p.peek()
	return t.Kind == token.Word && strings.EqualFold(t.Text, s)
}

func (p *parser) errorf(line, col int, kind spec.ErrorKind, sentinel error, format string, args ...interface{}) {
	p.diags = append(p.diags, &spec.ConfigError{
		Line: line, Col: col, Kind: kind,
		Reason: fmt.Sprintf(format, args...),
		Err:    sentinel,
	})
}

// skipToSemicolon recovers from an alias-spec error so parsing can
// continue and surface further diagnostics in one pass.
func (p *parser) skipToSemicolon() {
	for p.peek().Kind != token.EOF && p.peek().Kind != token.Semicolon {
		p.advance()
	}
	if p.peek().Kind == token.Semicolon {
		p.advance()
	}
}

// skipToNextLine recovers from a config-statement error.
func (p *parser) skipToNextLine() {
	line := p.peek().Line
	for p.peek().Kind != token.EOF && p.peek().Line == line {
		p.advance()
	}
}

// --- config statements ---

var configFirstWords = map[string]bool{
	"CASE": true, "HOST": true, "PORT": true, "LOGGING": true, "DEBUG": true,
	"ALIAS": true, "STATISTICS": true, "PROCESSOR": true, "SMTP": true, "LOCAL": true,
}

var configSecondWords = map[string]string{
	"CASE": "SENSITIVE", "DEBUG": "ACCOUNT", "ALIAS": "DOMAINS",
	"SMTP": "HOST|PORT", "LOCAL": "HOST|DOMAINS",
}

func (p *parser) parseConfigStatement() {
	start := p.peek()
	if start.Kind != token.Word {
		p.errorf(start.Line, start.Col, spec.KindSyntax, nil, "expected a configuration item or ACCOUNT, found %s", start)
		p.advance()
		return
	}
	first := strings.ToUpper(start.Text)
	if !configFirstWords[first] {
		p.errorf(start.Line, start.Col, spec.KindSyntax, spec.ErrUnknownConfigItem, "unrecognized configuration item %q", start.Text)
		p.skipToNextLine()
		return
	}
	p.advance()

	item := first
	if alt, ok := configSecondWords[first]; ok {
		second := p.peek()
		if second.Kind != token.Word {
			p.errorf(second.Line, second.Col, spec.KindSyntax, nil, "expected a keyword after %q", first)
			p.skipToNextLine()
			return
		}
		su := strings.ToUpper(second.Text)
		matched := false
		for _, want := range strings.Split(alt, "|") {
			if su == want {
				matched = true
				break
			}
		}
		if !matched {
			p.errorf(second.Line, second.Col, spec.KindSyntax, nil, "unrecognized keyword %q after %q", second.Text, first)
			p.skipToNextLine()
			return
		}
		p.advance()
		item = first + " " + su
	}

	colon := p.peek()
	if colon.Kind != token.Colon {
		p.errorf(colon.Line, colon.Col, spec.KindSyntax, nil, "expected ':' after %q", item)
		p.skipToNextLine()
		return
	}
	p.advance()

	line := colon.Line
	var values []string
	for p.peek().Kind != token.EOF && p.peek().Line == line {
		t := p.advance()
		if t.Kind == token.Word {
			for _, part := range strings.Split(t.Text, ",") {
				part = strings.TrimSpace(part)
				if part != "" {
					values = append(values, part)
				}
			}
		}
	}
	if len(values) == 0 {
		p.errorf(line, colon.Col, spec.KindSyntax, nil, "%q requires a value", item)
		return
	}
	p.applyConfigValue(item, values, line, colon.Col)
}

func (p *parser) applyConfigValue(item string, values []string, line, col int) {
	one := values[0]
	switch item {
	case "CASE SENSITIVE":
		b, err := parseBool(one)
		if err != nil {
			p.errorf(line, col, spec.KindSemantic, nil, "CASE SENSITIVE: %s", err)
			return
		}
		p.opts.CaseSensitive = b
	case "HOST":
		p.opts.Host = one
	case "PORT":
		n, err := strconv.Atoi(one)
		if err != nil {
			p.errorf(line, col, spec.KindSemantic, nil, "PORT: not a number: %q", one)
			return
		}
		p.opts.Port = n
	case "LOGGING":
		lvl := strings.ToLower(one)
		if lvl == "warning" {
			lvl = "warn"
		}
		p.opts.LogLevel = lvl
	case "DEBUG ACCOUNT":
		p.opts.DebugAccount = one
	case "ALIAS DOMAINS":
		for _, v := range values {
			p.opts.AliasDomains = append(p.opts.AliasDomains, strings.ToLower(v))
		}
	case "STATISTICS":
		p.opts.Statistics = one
	case "PROCESSOR":
		p.opts.Processor = one
	case "SMTP HOST":
		p.opts.SMTPHost = one
	case "SMTP PORT":
		n, err := strconv.Atoi(one)
		if err != nil {
			p.errorf(line, col, spec.KindSemantic, nil, "SMTP PORT: not a number: %q", one)
			return
		}
		p.opts.SMTPPort = n
	case "LOCAL HOST":
		p.opts.LocalHost = one
	case "LOCAL DOMAINS":
		p.opts.LocalDomains = append(p.opts.LocalDomains, values...)
	}
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("not a recognized boolean value: %q", s)
}

// --- alias specifications ---

func (p *parser) parseAliasSpec() {
	startLine := p.peek().Line
	p.advance() // ACCOUNT

	accounts := p.parseIdentList()
	if len(accounts) == 0 {
		p.errorf(startLine, 1, spec.KindSyntax, nil, "ACCOUNT requires at least one identifier")
		p.skipToSemicolon()
		return
	}

	defaultClass := charclass.Ident
	if p.peekWordEquals("USING") {
		p.advance()
		ct := p.peek()
		if ct.Kind != token.Word {
			p.errorf(ct.Line, ct.Col, spec.KindSyntax, nil, "USING requires a character class")
			p.skipToSemicolon()
			return
		}
		c, ok := charclass.Parse(strings.ToLower(ct.Text))
		if !ok {
			p.errorf(ct.Line, ct.Col, spec.KindSyntax, nil, "unrecognized character class %q", ct.Text)
			p.skipToSemicolon()
			return
		}
		defaultClass = c
		p.advance()
	}

	aliasMode := spec.AliasSame
	var explicitAliases []string
	if p.peekWordEquals("ALIASED") {
		p.advance()
		if p.peekWordEquals("*") {
			p.advance()
		} else {
			explicitAliases = p.parseIdentList()
			aliasMode = spec.AliasExplicit
		}
	}

	if !p.peekWordEquals("MATCHES") {
		t := p.peek()
		p.errorf(t.Line, t.Col, spec.KindSyntax, nil, "expected MATCHES, found %s", t)
		p.skipToSemicolon()
		return
	}
	p.advance()

	matchTok := p.peek()
	if matchTok.Kind != token.Word {
		p.errorf(matchTok.Line, matchTok.Col, spec.KindSyntax, nil, "expected a match expression after MATCHES")
		p.skipToSemicolon()
		return
	}
	p.advance()

	if !p.peekWordEquals("WITH") {
		t := p.peek()
		p.errorf(t.Line, t.Col, spec.KindSyntax, nil, "expected WITH, found %s", t)
		p.skipToSemicolon()
		return
	}
	p.advance()

	pattern, idents, ok := p.parseMatchExpr(matchTok.Text, matchTok.Line)
	if !ok {
		p.skipToSemicolon()
		return
	}

	calcOps, ok := p.parseCalcExpr(idents, aliasMode == spec.AliasExplicit)
	if !ok {
		p.skipToSemicolon()
		return
	}

	if p.peek().Kind != token.Semicolon {
		t := p.peek()
		p.errorf(t.Line, t.Col, spec.KindSyntax, nil, "expected ';' to terminate specification, found %s", t)
		p.skipToSemicolon()
		return
	}
	p.advance()

	s := &spec.Specification{
		Accounts:     accounts,
		AliasMode:    aliasMode,
		Aliases:      explicitAliases,
		DefaultClass: defaultClass,
		Pattern:      pattern,
		Calc:         calcOps,
		Line:         startLine,
	}
	p.validateSpecification(s, startLine)
	p.specs = append(p.specs, s)
}

func (p *parser) parseIdentList() []string {
	var out []string
	for {
		t := p.peek()
		if t.Kind != token.Word {
			break
		}
		out = append(out, t.Text)
		p.advance()
		if p.peek().Kind == token.Comma {
			p.advance()
			continue
		}
		break
	}
	return out
}

func (p *parser) validateSpecification(s *spec.Specification, line int) {
	for _, a := range s.Accounts {
		key := charclass.Fold(a, p.opts.CaseSensitive)
		if p.accountOwner[key] {
			p.errorf(line, 1, spec.KindSemantic, spec.ErrDuplicateAccount, "account %q already declared", a)
			continue
		}
		p.accountOwner[key] = true
	}
	for _, a := range s.AliasesFor() {
		key := charclass.Fold(a, p.opts.CaseSensitive)
		if p.aliasOwner[key] {
			p.errorf(line, 1, spec.KindSemantic, spec.ErrDuplicateAlias, "alias %q already declared", a)
			continue
		}
		p.aliasOwner[key] = true
	}

	if s.AliasMode == spec.AliasExplicit && len(s.Accounts) != 1 {
		p.errorf(line, 1, spec.KindSemantic, spec.ErrExplicitAliasMultiAcct,
			"ALIASED with an explicit list requires exactly one ACCOUNT, found %d", len(s.Accounts))
	}

	codeCount := 0
	for _, e := range s.Pattern {
		if e.Kind == spec.ElemCode {
			codeCount++
		}
	}
	if codeCount != 1 {
		p.errorf(line, 1, spec.KindSemantic, spec.ErrMultipleCodeFields,
			"pattern must contain exactly one %%code%% field, found %d", codeCount)
	}

	for i := 1; i < len(s.Pattern); i++ {
		prev, cur := s.Pattern[i-1], s.Pattern[i]
		if prev.Kind == spec.ElemIdent && cur.Kind == spec.ElemIdent {
			if !charclass.Friendly(prev.Class, cur.Class) {
				p.errorf(line, 1, spec.KindSemantic, spec.ErrAdjacentFields,
					"adjacent %%%s%% and %%%s%% fields are ambiguous with no separating literal", prev.Class, cur.Class)
			}
		}
	}

	if len(s.Accounts) > 1 {
		if s.AliasMode == spec.AliasExplicit {
			p.errorf(line, 1, spec.KindSemantic, spec.ErrMultiAcctRequiresSame,
				"multiple accounts cannot be combined with an explicit ALIASED list")
		}
		s.ContextAmbiguous = !s.HasAccountAnchor()
	}

	s.Fingerprint = fingerprint(s)
}

func fingerprint(s *spec.Specification) string {
	var b strings.Builder
	fmt.Fprintf(&b, "using=%s;", s.DefaultClass)
	for _, e := range s.Pattern {
		switch e.Kind {
		case spec.ElemLiteral:
			b.WriteString(e.Literal)
		case spec.ElemIdent:
			fmt.Fprintf(&b, "%%%s%%", e.Class)
		case spec.ElemAccount:
			b.WriteString("%account%")
		case spec.ElemAlias:
			b.WriteString("%alias%")
		case spec.ElemCode:
			b.WriteString("%code%")
		}
	}
	return b.String()
}

// --- match expression ---

type identRef struct {
	class   charclass.Class
	ordinal int
}

// parseMatchExpr turns the raw quoted text of a match expression into a
// pattern, interleaving literals and %field% references. idents records
// every identifier field in appearance order for calc-op nth resolution.
func (p *parser) parseMatchExpr(text string, line int) ([]spec.PatternElement, []identRef, bool) {
	var pattern []spec.PatternElement
	var idents []identRef
	counts := map[charclass.Class]int{}

	var lit strings.Builder
	flushLit := func() {
		if lit.Len() > 0 {
			pattern = append(pattern, spec.PatternElement{Kind: spec.ElemLiteral, Literal: lit.String()})
			lit.Reset()
		}
	}

	i := 0
	for i < len(text) {
		if text[i] != '%' {
			lit.WriteByte(text[i])
			i++
			continue
		}
		end := strings.IndexByte(text[i+1:], '%')
		if end < 0 {
			p.errorf(line, 1, spec.KindSyntax, nil, "unterminated %%field%% in match expression %q", text)
			return nil, nil, false
		}
		name := strings.ToLower(text[i+1 : i+1+end])
		i = i + 1 + end + 1

		switch name {
		case "account":
			flushLit()
			pattern = append(pattern, spec.PatternElement{Kind: spec.ElemAccount})
		case "alias":
			flushLit()
			pattern = append(pattern, spec.PatternElement{Kind: spec.ElemAlias})
		case "code":
			flushLit()
			pattern = append(pattern, spec.PatternElement{Kind: spec.ElemCode})
		default:
			c, ok := charclass.Parse(name)
			if !ok {
				p.errorf(line, 1, spec.KindSyntax, spec.ErrUnknownField, "unrecognized match expression field %%%s%%", name)
				return nil, nil, false
			}
			flushLit()
			counts[c]++
			pattern = append(pattern, spec.PatternElement{Kind: spec.ElemIdent, Class: c, Ordinal: counts[c]})
			idents = append(idents, identRef{class: c, ordinal: counts[c]})
		}
	}
	flushLit()
	return pattern, idents, true
}

// --- calc expression ---

var calcFuncNames = map[string]bool{
	"DIGITS": true, "ALPHAS": true, "LABELS": true, "CHARS": true,
	"VOWELS": true, "ANY": true, "NONE": true, "CHAR": true, "LITERAL": true,
}

func (p *parser) parseCalcExpr(idents []identRef, hasAlias bool) ([]calc.Op, bool) {
	var ops []calc.Op
	for {
		nameTok := p.peek()
		if nameTok.Kind != token.Word {
			p.errorf(nameTok.Line, nameTok.Col, spec.KindSyntax, nil, "expected a calc function, found %s", nameTok)
			return nil, false
		}
		name := strings.ToUpper(nameTok.Text)
		if !calcFuncNames[name] {
			p.errorf(nameTok.Line, nameTok.Col, spec.KindSyntax, spec.ErrUnknownCalcFunc, "unrecognized calc function %q", nameTok.Text)
			return nil, false
		}
		p.advance()

		if p.peek().Kind != token.LParen {
			t := p.peek()
			p.errorf(t.Line, t.Col, spec.KindSyntax, nil, "expected '(' after %s", name)
			return nil, false
		}
		p.advance()

		var args []string
		for p.peek().Kind != token.RParen {
			t := p.peek()
			if t.Kind != token.Word {
				p.errorf(t.Line, t.Col, spec.KindSyntax, nil, "expected an argument or ')' in %s(...)", name)
				return nil, false
			}
			args = append(args, t.Text)
			p.advance()
			if p.peek().Kind == token.Comma {
				p.advance()
				continue
			}
			break
		}
		if p.peek().Kind != token.RParen {
			t := p.peek()
			p.errorf(t.Line, t.Col, spec.KindSyntax, nil, "expected ')' to close %s(...)", name)
			return nil, false
		}
		closeParen := p.peek()
		p.advance()

		op, ok := p.buildCalcOp(name, args, idents, hasAlias, closeParen.Line, closeParen.Col)
		if !ok {
			return nil, false
		}
		ops = append(ops, op)

		if p.peek().Kind == token.Comma {
			p.advance()
			continue
		}
		break
	}
	return ops, true
}

func (p *parser) buildCalcOp(name string, args []string, idents []identRef, hasAlias bool, line, col int) (calc.Op, bool) {
	switch name {
	case "LITERAL":
		if len(args) != 1 {
			p.errorf(line, col, spec.KindSemantic, spec.ErrInvalidCalcArgument, "LITERAL requires exactly one argument")
			return nil, false
		}
		return calc.LiteralOp{Text: args[0]}, true

	case "DIGITS", "ALPHAS", "CHARS", "VOWELS", "LABELS":
		var identArg string
		if len(args) > 1 {
			p.errorf(line, col, spec.KindSemantic, spec.ErrInvalidCalcArgument, "%s takes at most one argument", name)
			return nil, false
		}
		if len(args) == 1 {
			identArg = args[0]
		}
		target, class, ok := p.resolveCalcTarget(identArg, idents, hasAlias, line, col)
		if !ok {
			return nil, false
		}
		fn := map[string]calc.Fn{
			"DIGITS": calc.Digits, "ALPHAS": calc.Alphas, "CHARS": calc.Chars,
			"VOWELS": calc.Vowels, "LABELS": calc.LabelsCount,
		}[name]
		if name == "LABELS" && class != charclass.FQDN {
			p.errorf(line, col, spec.KindSemantic, spec.ErrCountLabelsNonFQDN, "LABELS referenced a non-fqdn field")
			return nil, false
		}
		return calc.CountOp{Fn: fn, Target: target}, true

	case "ANY", "NONE":
		var identArg string
		if len(args) > 1 {
			p.errorf(line, col, spec.KindSemantic, spec.ErrInvalidCalcArgument, "%s takes at most one argument", name)
			return nil, false
		}
		if len(args) == 1 {
			identArg = args[0]
		}
		target, _, ok := p.resolveCalcTarget(identArg, idents, hasAlias, line, col)
		if !ok {
			return nil, false
		}
		pol := calc.Any
		if name == "NONE" {
			pol = calc.None
		}
		return calc.AnyNoneOp{Polarity: pol, Target: target}, true

	case "CHAR":
		return p.buildCharOp(args, idents, hasAlias, line, col)
	}
	return nil, false
}

func (p *parser) buildCharOp(args []string, idents []identRef, hasAlias bool, line, col int) (calc.Op, bool) {
	if len(args) < 2 || len(args) > 4 {
		p.errorf(line, col, spec.KindSemantic, spec.ErrCharArgCount, "CHAR requires 2 to 4 arguments, found %d", len(args))
		return nil, false
	}

	singleFQDN := len(idents) == 1 && idents[0].class == charclass.FQDN
	explicitIdent := len(args) == 4 || (len(args) == 3 && !singleFQDN)

	var identArg string
	rest := args
	if explicitIdent {
		identArg = args[0]
		rest = args[1:]
	}

	target, class, ok := p.resolveCalcTarget(identArg, idents, hasAlias, line, col)
	if !ok {
		return nil, false
	}

	hasLabel := class == charclass.FQDN
	label := 0
	if hasLabel {
		if len(rest) != 3 {
			p.errorf(line, col, spec.KindSemantic, spec.ErrCharArgCount, "CHAR on an fqdn field requires a label, index, and default character")
			return nil, false
		}
		if rest[0] == "*" {
			p.errorf(line, col, spec.KindSemantic, spec.ErrUnsupportedLabelWildcard, "CHAR does not support a '*' label selector")
			return nil, false
		}
		n, err := strconv.Atoi(rest[0])
		if err != nil {
			p.errorf(line, col, spec.KindSemantic, spec.ErrInvalidCalcArgument, "CHAR label index must be an integer, found %q", rest[0])
			return nil, false
		}
		label = n
		rest = rest[1:]
	}

	if len(rest) != 2 {
		p.errorf(line, col, spec.KindSemantic, spec.ErrCharArgCount, "CHAR requires exactly an index and a default character")
		return nil, false
	}
	idx, err := strconv.Atoi(rest[0])
	if err != nil {
		p.errorf(line, col, spec.KindSemantic, spec.ErrInvalidCalcArgument, "CHAR index must be an integer, found %q", rest[0])
		return nil, false
	}
	if len(rest[1]) != 1 {
		p.errorf(line, col, spec.KindSemantic, spec.ErrInvalidCalcArgument, "CHAR default must be a single character, found %q", rest[1])
		return nil, false
	}

	return calc.CharAtOp{Target: target, HasLabel: hasLabel, Label: label, Index: idx, Default: rest[1][0]}, true
}

// resolveCalcTarget maps a calc-op's identifier argument (numeric index
// into idents, "account", "alias", or omitted) to a calc.Target. An
// omitted argument names the pattern's only identifier field, or the
// account when the pattern has no identifier fields.
func (p *parser) resolveCalcTarget(identArg string, idents []identRef, hasAlias bool, line, col int) (calc.Target, charclass.Class, bool) {
	if identArg == "" {
		if len(idents) == 0 {
			return calc.Target{Named: true, Name: "account"}, 0, true
		}
		if len(idents) != 1 {
			p.errorf(line, col, spec.KindSemantic, spec.ErrUnresolvableCalcTarget,
				"an identifier subscript is required when the pattern has more than one identifier field")
			return calc.Target{}, 0, false
		}
		return calc.Target{Class: idents[0].class, Ordinal: idents[0].ordinal}, idents[0].class, true
	}

	switch strings.ToLower(identArg) {
	case "account":
		return calc.Target{Named: true, Name: "account"}, 0, true
	case "alias":
		if !hasAlias {
			p.errorf(line, col, spec.KindSemantic, spec.ErrAliasReferencedNoAliases, "\"alias\" referenced but this specification has no explicit aliases")
			return calc.Target{}, 0, false
		}
		return calc.Target{Named: true, Name: "alias"}, 0, true
	}

	n, err := strconv.Atoi(identArg)
	if err != nil || n < 1 || n > len(idents) {
		p.errorf(line, col, spec.KindSemantic, spec.ErrUnresolvableCalcTarget, "identifier subscript %q is out of range", identArg)
		return calc.Target{}, 0, false
	}
	return calc.Target{Class: idents[n-1].class, Ordinal: idents[n-1].ordinal}, idents[n-1].class, true
}
