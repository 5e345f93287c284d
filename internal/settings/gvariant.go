package settings

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ErrSyntax is returned for GVariant text that cannot be parsed.
var ErrSyntax = errors.New("settings: invalid gvariant text")

// ParseValue parses the GVariant text format as printed by gsettings.
// Strings decode to string, arrays and tuples to []any, and every other
// scalar to its literal text.
func ParseValue(text string) (any, error) {
	p := &gvParser{s: text}
	v, err := p.value()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.s) {
		return nil, p.errorf("trailing input")
	}
	return v, nil
}

// ParseString parses a GVariant string value.
func ParseString(text string) (string, error) {
	v, err := ParseValue(text)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %q is not a string", ErrSyntax, text)
	}
	return s, nil
}

// ParseStringPairs parses a value of type a(ss).
func ParseStringPairs(text string) ([][2]string, error) {
	v, err := ParseValue(text)
	if err != nil {
		return nil, err
	}
	arr, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not an array", ErrSyntax, text)
	}
	out := make([][2]string, 0, len(arr))
	for _, item := range arr {
		tuple, ok := item.([]any)
		if !ok || len(tuple) != 2 {
			return nil, fmt.Errorf("%w: %q is not an a(ss)", ErrSyntax, text)
		}
		a, ok1 := tuple[0].(string)
		b, ok2 := tuple[1].(string)
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("%w: %q is not an a(ss)", ErrSyntax, text)
		}
		out = append(out, [2]string{a, b})
	}
	return out, nil
}

// QuoteString formats s as a GVariant string.
func QuoteString(s string) string {
	var b strings.Builder
	b.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\'', '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('\'')
	return b.String()
}

type gvParser struct {
	s   string
	pos int
}

func (p *gvParser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: offset %d: %s", ErrSyntax, p.pos, fmt.Sprintf(format, args...))
}

func (p *gvParser) skipSpace() {
	for p.pos < len(p.s) && strings.IndexByte(" \t\r\n", p.s[p.pos]) >= 0 {
		p.pos++
	}
}

func (p *gvParser) value() (any, error) {
	p.skipSpace()
	if p.pos >= len(p.s) {
		return nil, p.errorf("unexpected end")
	}
	switch c := p.s[p.pos]; c {
	case '\'', '"':
		return p.str(c)
	case '[':
		return p.list('[', ']')
	case '(':
		return p.list('(', ')')
	case '@':
		// Type annotation, e.g. "@a(ss) []".
		p.pos++
		for p.pos < len(p.s) && p.s[p.pos] != ' ' {
			p.pos++
		}
		return p.value()
	default:
		return p.scalar()
	}
}

func (p *gvParser) str(quote byte) (string, error) {
	p.pos++
	var b strings.Builder
	for p.pos < len(p.s) {
		c := p.s[p.pos]
		switch {
		case c == quote:
			p.pos++
			return b.String(), nil
		case c == '\\':
			p.pos++
			if p.pos >= len(p.s) {
				return "", p.errorf("unterminated escape")
			}
			if err := p.escape(&b); err != nil {
				return "", err
			}
		default:
			r, size := utf8.DecodeRuneInString(p.s[p.pos:])
			b.WriteRune(r)
			p.pos += size
		}
	}
	return "", p.errorf("unterminated string")
}

func (p *gvParser) escape(b *strings.Builder) error {
	c := p.s[p.pos]
	p.pos++
	switch c {
	case 'n':
		b.WriteByte('\n')
	case 't':
		b.WriteByte('\t')
	case 'r':
		b.WriteByte('\r')
	case 'u', 'U':
		n := 4
		if c == 'U' {
			n = 8
		}
		if p.pos+n > len(p.s) {
			return p.errorf("short unicode escape")
		}
		cp, err := strconv.ParseUint(p.s[p.pos:p.pos+n], 16, 32)
		if err != nil {
			return p.errorf("bad unicode escape")
		}
		b.WriteRune(rune(cp))
		p.pos += n
	default:
		b.WriteByte(c)
	}
	return nil
}

func (p *gvParser) list(open, closing byte) ([]any, error) {
	p.pos++
	out := []any{}
	for {
		p.skipSpace()
		if p.pos < len(p.s) && p.s[p.pos] == closing {
			p.pos++
			return out, nil
		}
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
		p.skipSpace()
		if p.pos >= len(p.s) {
			return nil, p.errorf("unterminated %c", open)
		}
		switch p.s[p.pos] {
		case ',':
			p.pos++
		case closing:
		default:
			return nil, p.errorf("expected , or %c", closing)
		}
	}
}

func (p *gvParser) scalar() (string, error) {
	start := p.pos
	for p.pos < len(p.s) && strings.IndexByte(" \t\r\n,)]", p.s[p.pos]) < 0 {
		p.pos++
	}
	if start == p.pos {
		return "", p.errorf("unexpected %q", p.s[p.pos])
	}
	lit := p.s[start:p.pos]
	// Typed scalars such as "uint32 5" keep only the literal.
	switch lit {
	case "byte", "int16", "uint16", "int32", "uint32", "int64", "uint64", "handle", "double":
		p.skipSpace()
		return p.scalar()
	}
	return lit, nil
}
