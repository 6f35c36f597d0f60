// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package record

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// The filter language is a conjunction of field comparisons:
//
//	status = 'active' && created >= '2025-01-01 00:00:00.000Z'
//
// Operators: = != >= <= > <. Values are single-quoted strings (compared
// lexicographically, which is why timestamps are string-encoded), bare
// numbers, or true/false. Remote stores receive the filter text unchanged;
// the local store parses it with ParseFilter and evaluates it in-process.

var errEmptyFilter = errors.New("empty filter expression")

// Filter is a parsed filter expression.
type Filter struct {
	conds []condition
}

type condition struct {
	field string
	op    string
	val   filterValue
}

type filterValue struct {
	str    string
	num    float64
	boolV  bool
	isStr  bool
	isBool bool
}

// ParseFilter parses a filter expression. An empty string is an error;
// callers wanting "everything" pass no filter at all.
func ParseFilter(input string) (*Filter, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return nil, errEmptyFilter
	}

	var f Filter
	lex := &lexer{src: s}
	for {
		cond, err := lex.condition()
		if err != nil {
			return nil, err
		}
		f.conds = append(f.conds, cond)

		if lex.done() {
			return &f, nil
		}
		if err := lex.expect("&&"); err != nil {
			return nil, err
		}
	}
}

// Match evaluates the filter against one record. Every condition must hold.
func (f *Filter) Match(r Record) bool {
	for _, c := range f.conds {
		if !c.match(r) {
			return false
		}
	}
	return true
}

func (c condition) match(r Record) bool {
	if c.val.isBool {
		if c.op != "=" && c.op != "!=" {
			return false
		}
		got := r.GetBool(c.field)
		return (got == c.val.boolV) == (c.op == "=")
	}

	if c.val.isStr {
		return compareOrdered(r.GetString(c.field), c.val.str, c.op)
	}
	return compareOrdered(r.GetFloat(c.field), c.val.num, c.op)
}

func compareOrdered[T string | float64](got, want T, op string) bool {
	switch op {
	case "=":
		return got == want
	case "!=":
		return got != want
	case ">":
		return got > want
	case ">=":
		return got >= want
	case "<":
		return got < want
	case "<=":
		return got <= want
	}
	return false
}

type lexer struct {
	src string
	pos int
}

func (l *lexer) done() bool {
	l.skipSpace()
	return l.pos >= len(l.src)
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.src) && unicode.IsSpace(rune(l.src[l.pos])) {
		l.pos++
	}
}

func (l *lexer) expect(tok string) error {
	l.skipSpace()
	if !strings.HasPrefix(l.src[l.pos:], tok) {
		return fmt.Errorf("filter: expected %q at position %d", tok, l.pos)
	}
	l.pos += len(tok)
	return nil
}

func (l *lexer) condition() (condition, error) {
	field, err := l.ident()
	if err != nil {
		return condition{}, err
	}
	op, err := l.operator()
	if err != nil {
		return condition{}, err
	}
	val, err := l.value()
	if err != nil {
		return condition{}, err
	}
	return condition{field: field, op: op, val: val}, nil
}

func (l *lexer) ident() (string, error) {
	l.skipSpace()
	start := l.pos
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == '_' || c == '.' ||
			(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') ||
			(l.pos > start && c >= '0' && c <= '9') {
			l.pos++
			continue
		}
		break
	}
	if l.pos == start {
		return "", fmt.Errorf("filter: expected field name at position %d", start)
	}
	return l.src[start:l.pos], nil
}

func (l *lexer) operator() (string, error) {
	l.skipSpace()
	for _, op := range []string{"!=", ">=", "<=", "=", ">", "<"} {
		if strings.HasPrefix(l.src[l.pos:], op) {
			l.pos += len(op)
			return op, nil
		}
	}
	return "", fmt.Errorf("filter: expected operator at position %d", l.pos)
}

func (l *lexer) value() (filterValue, error) {
	l.skipSpace()
	if l.pos >= len(l.src) {
		return filterValue{}, errors.New("filter: expected value at end of input")
	}

	if l.src[l.pos] == '\'' {
		return l.stringValue()
	}

	start := l.pos
	for l.pos < len(l.src) && !unicode.IsSpace(rune(l.src[l.pos])) && l.src[l.pos] != '&' {
		l.pos++
	}
	raw := l.src[start:l.pos]
	switch raw {
	case "true":
		return filterValue{isBool: true, boolV: true}, nil
	case "false":
		return filterValue{isBool: true}, nil
	}
	num, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return filterValue{}, fmt.Errorf("filter: invalid value %q at position %d", raw, start)
	}
	return filterValue{num: num}, nil
}

func (l *lexer) stringValue() (filterValue, error) {
	l.pos++ // opening quote
	var b strings.Builder
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == '\\' && l.pos+1 < len(l.src) && l.src[l.pos+1] == '\'' {
			b.WriteByte('\'')
			l.pos += 2
			continue
		}
		if c == '\'' {
			l.pos++
			return filterValue{isStr: true, str: b.String()}, nil
		}
		b.WriteByte(c)
		l.pos++
	}
	return filterValue{}, errors.New("filter: unterminated string value")
}

// Builder helpers keep callers from hand-concatenating filter text.

// Equal renders a field = 'value' condition with quote escaping.
func Equal(field, value string) string {
	return field + " = '" + strings.ReplaceAll(value, "'", `\'`) + "'"
}

// NotEqual renders a field != 'value' condition.
func NotEqual(field, value string) string {
	return field + " != '" + strings.ReplaceAll(value, "'", `\'`) + "'"
}

// EqualBool renders a field = true/false condition.
func EqualBool(field string, value bool) string {
	return field + " = " + strconv.FormatBool(value)
}

// And joins conditions with the && conjunction.
func And(conds ...string) string { return strings.Join(conds, " && ") }
