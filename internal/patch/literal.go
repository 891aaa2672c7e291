package patch

import (
	"fmt"
	"strconv"
	"strings"
)

// ExtractLiteral scans content from byte offset from, takes the first '{' or
// '[' it finds, and parses one balanced object or array literal starting
// there. Returns the raw span, the parsed value, and the 1-based line where
// the literal begins. The literal is parsed, never evaluated: callers use
// this to lift configuration objects out of JS/TS source without executing
// anything.
func ExtractLiteral(content string, from int) (string, any, int, error) {
	if from < 0 || from > len(content) {
		return "", nil, 0, fmt.Errorf("offset %d out of range", from)
	}
	rel := strings.IndexAny(content[from:], "{[")
	if rel < 0 {
		return "", nil, 0, fmt.Errorf("no object or array literal found after offset %d", from)
	}
	start := from + rel

	p := &litParser{s: content, pos: start}
	v, err := p.parseValue()
	if err != nil {
		return "", nil, 0, err
	}
	return content[start:p.pos], v, LineOf(content, start), nil
}

// ParseLiteral parses a complete restricted JS/JSON literal: objects with
// identifier or quoted keys, single- and double-quoted strings, decimal
// numbers, true/false/null, arrays, trailing commas, and // and /* */
// comments between tokens. Anything beyond trailing whitespace or comments
// after the value is an error. Line numbers in errors are relative to s.
func ParseLiteral(s string) (any, error) {
	p := &litParser{s: s}
	p.skipSpace()
	v, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.s) {
		return nil, p.errAt("unexpected content after literal")
	}
	return v, nil
}

// litParser is a recursive-descent parser over a byte-indexed string.
type litParser struct {
	s   string
	pos int
}

func (p *litParser) errAt(msg string) error {
	return fmt.Errorf("line %d: %s", LineOf(p.s, p.pos), msg)
}

// skipSpace consumes whitespace and // and /* */ comments.
func (p *litParser) skipSpace() {
	for p.pos < len(p.s) {
		c := p.s[p.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			p.pos++
		case c == '/' && p.pos+1 < len(p.s) && p.s[p.pos+1] == '/':
			if nl := strings.IndexByte(p.s[p.pos:], '\n'); nl >= 0 {
				p.pos += nl + 1
			} else {
				p.pos = len(p.s)
			}
		case c == '/' && p.pos+1 < len(p.s) && p.s[p.pos+1] == '*':
			if end := strings.Index(p.s[p.pos+2:], "*/"); end >= 0 {
				p.pos += end + 4
			} else {
				p.pos = len(p.s)
			}
		default:
			return
		}
	}
}

func (p *litParser) parseValue() (any, error) {
	p.skipSpace()
	if p.pos >= len(p.s) {
		return nil, p.errAt("unexpected end of literal")
	}
	switch c := p.s[p.pos]; {
	case c == '{':
		return p.parseObject()
	case c == '[':
		return p.parseArray()
	case c == '"' || c == '\'':
		return p.parseString()
	case c == '-' || (c >= '0' && c <= '9'):
		return p.parseNumber()
	case isIdentStart(c):
		return p.parseKeyword()
	default:
		return nil, p.errAt(fmt.Sprintf("unexpected character %q", c))
	}
}

func (p *litParser) parseObject() (map[string]any, error) {
	p.pos++ // consume '{'
	obj := map[string]any{}
	for {
		p.skipSpace()
		if p.pos >= len(p.s) {
			return nil, p.errAt("unterminated object")
		}
		if p.s[p.pos] == '}' {
			p.pos++
			return obj, nil
		}

		key, err := p.parseKey()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if p.pos >= len(p.s) || p.s[p.pos] != ':' {
			return nil, p.errAt(fmt.Sprintf("expected ':' after key %q", key))
		}
		p.pos++

		val, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		obj[key] = val

		p.skipSpace()
		if p.pos >= len(p.s) {
			return nil, p.errAt("unterminated object")
		}
		switch p.s[p.pos] {
		case ',':
			p.pos++ // trailing comma before '}' is fine
		case '}':
		default:
			return nil, p.errAt("expected ',' or '}' in object")
		}
	}
}

func (p *litParser) parseArray() ([]any, error) {
	p.pos++ // consume '['
	arr := []any{}
	for {
		p.skipSpace()
		if p.pos >= len(p.s) {
			return nil, p.errAt("unterminated array")
		}
		if p.s[p.pos] == ']' {
			p.pos++
			return arr, nil
		}

		val, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		arr = append(arr, val)

		p.skipSpace()
		if p.pos >= len(p.s) {
			return nil, p.errAt("unterminated array")
		}
		switch p.s[p.pos] {
		case ',':
			p.pos++
		case ']':
		default:
			return nil, p.errAt("expected ',' or ']' in array")
		}
	}
}

// parseKey accepts an identifier or a quoted string as an object key.
func (p *litParser) parseKey() (string, error) {
	p.skipSpace()
	if p.pos >= len(p.s) {
		return "", p.errAt("expected object key")
	}
	if c := p.s[p.pos]; c == '"' || c == '\'' {
		return p.parseString()
	}
	if !isIdentStart(p.s[p.pos]) {
		return "", p.errAt("expected object key")
	}
	start := p.pos
	for p.pos < len(p.s) && isIdentPart(p.s[p.pos]) {
		p.pos++
	}
	return p.s[start:p.pos], nil
}

func (p *litParser) parseString() (string, error) {
	quote := p.s[p.pos]
	p.pos++
	var b strings.Builder
	for p.pos < len(p.s) {
		c := p.s[p.pos]
		switch c {
		case quote:
			p.pos++
			return b.String(), nil
		case '\n':
			return "", p.errAt("newline in string literal")
		case '\\':
			p.pos++
			if p.pos >= len(p.s) {
				return "", p.errAt("unterminated string")
			}
			esc := p.s[p.pos]
			switch esc {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case 'b':
				b.WriteByte('\b')
			case 'f':
				b.WriteByte('\f')
			case '\\', '/', '\'', '"', '`':
				b.WriteByte(esc)
			case 'u':
				if p.pos+4 >= len(p.s) {
					return "", p.errAt("truncated \\u escape")
				}
				code, err := strconv.ParseUint(p.s[p.pos+1:p.pos+5], 16, 32)
				if err != nil {
					return "", p.errAt("invalid \\u escape")
				}
				b.WriteRune(rune(code))
				p.pos += 4
			default:
				return "", p.errAt(fmt.Sprintf("unknown escape \\%c", esc))
			}
			p.pos++
		default:
			b.WriteByte(c)
			p.pos++
		}
	}
	return "", p.errAt("unterminated string")
}

// parseNumber accepts decimal numbers with optional sign, fraction, and
// exponent. Values come back as float64, matching encoding/json.
func (p *litParser) parseNumber() (float64, error) {
	start := p.pos
	if p.s[p.pos] == '-' {
		p.pos++
	}
	for p.pos < len(p.s) && p.s[p.pos] >= '0' && p.s[p.pos] <= '9' {
		p.pos++
	}
	if p.pos < len(p.s) && p.s[p.pos] == '.' {
		p.pos++
		for p.pos < len(p.s) && p.s[p.pos] >= '0' && p.s[p.pos] <= '9' {
			p.pos++
		}
	}
	if p.pos < len(p.s) && (p.s[p.pos] == 'e' || p.s[p.pos] == 'E') {
		p.pos++
		if p.pos < len(p.s) && (p.s[p.pos] == '+' || p.s[p.pos] == '-') {
			p.pos++
		}
		for p.pos < len(p.s) && p.s[p.pos] >= '0' && p.s[p.pos] <= '9' {
			p.pos++
		}
	}
	span := p.s[start:p.pos]
	n, err := strconv.ParseFloat(span, 64)
	if err != nil {
		return 0, p.errAt(fmt.Sprintf("invalid number %q", span))
	}
	return n, nil
}

// parseKeyword accepts true, false, and null.
func (p *litParser) parseKeyword() (any, error) {
	start := p.pos
	for p.pos < len(p.s) && isIdentPart(p.s[p.pos]) {
		p.pos++
	}
	switch word := p.s[start:p.pos]; word {
	case "true":
		return true, nil
	case "false":
		return false, nil
	case "null":
		return nil, nil
	default:
		p.pos = start
		return nil, p.errAt(fmt.Sprintf("unexpected identifier %q (only true, false, null allowed)", word))
	}
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
