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

// Package spec holds the compiled representation of an alias
// configuration: pattern elements, specifications, global options, and
// the frozen configuration set produced by internal/specparser.
package spec

import (
	"errors"
	"fmt"

	"trualias/internal/calc"
	"trualias/internal/charclass"
)

// ElementKind tags the variant held by a PatternElement.
type ElementKind int

const (
	ElemLiteral ElementKind = iota
	ElemIdent
	ElemAccount
	ElemAlias
	ElemCode
)

// PatternElement is a tagged union: exactly one of its fields is
// meaningful, selected by Kind.
type PatternElement struct {
	Kind    ElementKind
	Literal string          // ElemLiteral
	Class   charclass.Class // ElemIdent
	Ordinal int             // ElemIdent: 1-based, per-class
}

func (e PatternElement) String() string {
	switch e.Kind {
	case ElemLiteral:
		return fmt.Sprintf("%q", e.Literal)
	case ElemIdent:
		return fmt.Sprintf("%%%s#%d%%", e.Class, e.Ordinal)
	case ElemAccount:
		return "%account%"
	case ElemAlias:
		return "%alias%"
	case ElemCode:
		return "%code%"
	}
	return "?"
}

// AliasMode distinguishes a specification whose aliases equal its
// accounts from one with an explicit alias list.
type AliasMode int

const (
	AliasSame AliasMode = iota
	AliasExplicit
)

// Specification is one compiled ACCOUNT ... MATCHES ... WITH ... rule.
type Specification struct {
	Accounts        []string
	AliasMode       AliasMode
	Aliases         []string // only meaningful when AliasMode == AliasExplicit
	DefaultClass    charclass.Class
	Pattern         []PatternElement
	Calc            []calc.Op
	ContextAmbiguous bool // invariant 7: multiple accounts, no %account% anchor
	Fingerprint     string
	Line            int
}

// AliasesFor returns the resolved alias list: either the explicit list,
// or the account names themselves when AliasMode is Same.
func (s *Specification) AliasesFor() []string {
	if s.AliasMode == AliasExplicit {
		return s.Aliases
	}
	return s.Accounts
}

// HasAccountAnchor reports whether the pattern contains a %account%
// element.
func (s *Specification) HasAccountAnchor() bool {
	for _, e := range s.Pattern {
		if e.Kind == ElemAccount {
			return true
		}
	}
	return false
}

// HasAliasAnchor reports whether the pattern contains an %alias%
// element.
func (s *Specification) HasAliasAnchor() bool {
	for _, e := range s.Pattern {
		if e.Kind == ElemAlias {
			return true
		}
	}
	return false
}

// Options carries the global configuration values that sit alongside
// the compiled specifications: some consumed by the core (CaseSensitive,
// DebugAccount, AliasDomains), the rest opaque transport/service
// settings the core never interprets.
type Options struct {
	CaseSensitive bool     `validate:"-"`
	DebugAccount  string   `validate:"omitempty,ascii"`
	AliasDomains  []string `validate:"dive,fqdn"`

	Host       string `validate:"omitempty,hostname_port|hostname|ip"`
	Port       int    `validate:"omitempty,gte=1,lte=65535"`
	LogLevel   string `validate:"omitempty,oneof=debug info warn error"`
	Statistics string `validate:"omitempty"`
	Processor  string `validate:"omitempty"`

	SMTPHost     string `validate:"omitempty"`
	SMTPPort     int    `validate:"omitempty,gte=1,lte=65535"`
	LocalHost    string `validate:"omitempty"`
	LocalDomains []string
}

// VirtualForm reports whether the configuration operates in virtual-form
// (local@domain) mode, i.e. AliasDomains is non-empty.
func (o Options) VirtualForm() bool {
	return len(o.AliasDomains) > 0
}

// ConfigurationSet is the immutable result of compiling one configuration
// source. Once built it is never mutated; internal/configstore publishes
// new instances via atomic pointer swap.
type ConfigurationSet struct {
	Options        Options
	Specifications []*Specification
}

// ErrorKind distinguishes a tokenizer/grammar failure from a semantic
// (static-validation) one.
type ErrorKind int

const (
	KindSyntax ErrorKind = iota
	KindSemantic
)

func (k ErrorKind) String() string {
	if k == KindSyntax {
		return "syntax"
	}
	return "semantic"
}

// Sentinels identifying the specific invariant or grammar rule a
// ConfigError wraps, so callers can errors.Is/errors.As instead of
// string-matching messages.
var (
	ErrMultipleCodeFields       = errors.New("pattern must contain exactly one %code% field")
	ErrMissingCodeField         = errors.New("pattern must contain exactly one %code% field")
	ErrAdjacentFields           = errors.New("adjacent identifier fields of overlapping class are ambiguous")
	ErrExplicitAliasMultiAcct   = errors.New("an explicit alias list requires exactly one account")
	ErrMultiAcctRequiresSame    = errors.New("multiple accounts require aliases to default to the account names")
	ErrDuplicateAccount         = errors.New("account name already declared in another specification")
	ErrDuplicateAlias           = errors.New("alias name already declared in another specification")
	ErrUnresolvableCalcTarget   = errors.New("calc op references a field the pattern does not contain")
	ErrLabelOnNonFQDN           = errors.New("label index is only valid on an fqdn field")
	ErrUnsupportedLabelWildcard = errors.New("CHAR with a '*' label selector is not supported")
	ErrUnknownConfigItem        = errors.New("unrecognized configuration item")
	ErrAliasReferencedNoAliases = errors.New("\"alias\" referenced but the specification has no aliases")
	ErrInvalidCalcArgument      = errors.New("invalid calc-op argument")
	ErrCountLabelsNonFQDN       = errors.New("LABELS is only valid on an fqdn field")
	ErrCharArgCount             = errors.New("CHAR has the wrong number of arguments")
	ErrUnknownCalcFunc          = errors.New("unrecognized calc function")
	ErrUnknownField             = errors.New("unrecognized match expression field")
)

// ConfigError is the single error type produced by internal/specparser,
// carrying source position and wrapping one of the sentinels above.
type ConfigError struct {
	Line, Col int
	Kind      ErrorKind
	Reason    string
	Err       error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s error at line %d, column %d: %s", e.Kind, e.Line, e.Col, e.Reason)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Diagnostics is an ordered list of ConfigErrors; a non-empty Diagnostics
// means compilation failed and the prior ConfigurationSet must be kept.
type Diagnostics []*ConfigError

func (d Diagnostics) Error() string {
	if len(d) == 0 {
		return "no errors"
	}
	if len(d) == 1 {
		return d[0].Error()
	}
	return fmt.Sprintf("%s (and %d more error(s))", d[0].Error(), len(d)-1)
}

func (d Diagnostics) HasErrors() bool { return len(d) > 0 }
