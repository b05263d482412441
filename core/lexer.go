package core

import (
	"errors"
	"fmt"
)

// ErrTruncated reports that a token or object runs past the end of a
// partial window. Callers read a larger window and try again.
var ErrTruncated = errors.New("input truncated")

type TokenType int

const (
	TokenEOF TokenType = iota
	TokenKeyword
	TokenInteger
	TokenReal
	TokenString
	TokenHexString
	TokenName
	TokenArrayStart
	TokenArrayEnd
	TokenDictStart
	TokenDictEnd
)

// Token is a lexical token. Value holds decoded bytes for strings and names
// and the source text otherwise.
type Token struct {
	Type  TokenType
	Value []byte
	Pos   int64
}

func (t Token) isKeyword(kw string) bool {
	return t.Type == TokenKeyword && string(t.Value) == kw
}

// Lexer tokenizes PDF syntax held in memory. The data may be a window of a
// larger file starting at base; when partial is set, running into the end
// of data yields ErrTruncated instead of TokenEOF.
type Lexer struct {
	data    []byte
	pos     int
	base    int64
	partial bool
}

// NewLexer returns a lexer over a complete buffer.
func NewLexer(data []byte) *Lexer {
	return &Lexer{data: data}
}

func newWindowLexer(data []byte, base int64, partial bool) *Lexer {
	return &Lexer{data: data, base: base, partial: partial}
}

// Pos returns the file offset of the next unread byte.
func (l *Lexer) Pos() int64 { return l.base + int64(l.pos) }

func (l *Lexer) end() (Token, error) {
	if l.partial {
		return Token{}, ErrTruncated
	}
	return Token{Type: TokenEOF, Pos: l.Pos()}, nil
}

// Next returns the next token, skipping whitespace and comments.
func (l *Lexer) Next() (Token, error) {
	if err := l.skipSpace(); err != nil {
		return Token{}, err
	}
	if l.pos >= len(l.data) {
		return l.end()
	}

	start := l.pos
	pos := l.Pos()
	c := l.data[l.pos]

	switch c {
	case '[':
		l.pos++
		return Token{Type: TokenArrayStart, Value: l.data[start:l.pos], Pos: pos}, nil
	case ']':
		l.pos++
		return Token{Type: TokenArrayEnd, Value: l.data[start:l.pos], Pos: pos}, nil
	case '{', '}':
		l.pos++
		return Token{Type: TokenKeyword, Value: l.data[start:l.pos], Pos: pos}, nil
	case '<':
		if l.pos+1 >= len(l.data) {
			if l.partial {
				return Token{}, ErrTruncated
			}
			return Token{}, fmt.Errorf("unterminated hex string at %d", pos)
		}
		if l.data[l.pos+1] == '<' {
			l.pos += 2
			return Token{Type: TokenDictStart, Value: l.data[start:l.pos], Pos: pos}, nil
		}
		return l.readHexString()
	case '>':
		if l.pos+1 < len(l.data) && l.data[l.pos+1] == '>' {
			l.pos += 2
			return Token{Type: TokenDictEnd, Value: l.data[start:l.pos], Pos: pos}, nil
		}
		if l.pos+1 >= len(l.data) && l.partial {
			return Token{}, ErrTruncated
		}
		return Token{}, fmt.Errorf("unexpected '>' at %d", pos)
	case '(':
		return l.readString()
	case ')':
		return Token{}, fmt.Errorf("unexpected ')' at %d", pos)
	case '/':
		return l.readName()
	}

	if isDigit(c) || c == '+' || c == '-' || c == '.' {
		return l.readNumber()
	}
	return l.readKeyword()
}

func (l *Lexer) skipSpace() error {
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		switch {
		case isWhitespace(c):
			l.pos++
		case c == '%':
			for l.pos < len(l.data) && l.data[l.pos] != '\n' && l.data[l.pos] != '\r' {
				l.pos++
			}
		default:
			return nil
		}
	}
	return nil
}

// regular consumes a run of regular characters. A run that touches the end
// of a partial window may continue past it.
func (l *Lexer) regular() ([]byte, error) {
	start := l.pos
	for l.pos < len(l.data) && !isWhitespace(l.data[l.pos]) && !isDelimiter(l.data[l.pos]) {
		l.pos++
	}
	if l.pos == len(l.data) && l.partial {
		return nil, ErrTruncated
	}
	return l.data[start:l.pos], nil
}

func (l *Lexer) readNumber() (Token, error) {
	pos := l.Pos()
	text, err := l.regular()
	if err != nil {
		return Token{}, err
	}

	typ := TokenInteger
	digits := 0
	for i, c := range text {
		switch {
		case isDigit(c):
			digits++
		case c == '.' && typ == TokenInteger:
			typ = TokenReal
		case (c == '+' || c == '-') && i == 0:
		default:
			// Not a number after all, e.g. a keyword starting with '-'.
			return Token{Type: TokenKeyword, Value: text, Pos: pos}, nil
		}
	}
	if digits == 0 {
		return Token{Type: TokenKeyword, Value: text, Pos: pos}, nil
	}
	return Token{Type: typ, Value: text, Pos: pos}, nil
}

func (l *Lexer) readKeyword() (Token, error) {
	pos := l.Pos()
	text, err := l.regular()
	if err != nil {
		return Token{}, err
	}
	if len(text) == 0 {
		return Token{}, fmt.Errorf("unexpected byte %q at %d", l.data[l.pos], pos)
	}
	return Token{Type: TokenKeyword, Value: text, Pos: pos}, nil
}

func (l *Lexer) readName() (Token, error) {
	pos := l.Pos()
	l.pos++ // '/'
	raw, err := l.regular()
	if err != nil {
		return Token{}, err
	}

	name := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		if raw[i] == '#' && i+2 < len(raw) && isHexDigit(raw[i+1]) && isHexDigit(raw[i+2]) {
			name = append(name, hexValue(raw[i+1])<<4|hexValue(raw[i+2]))
			i += 2
			continue
		}
		name = append(name, raw[i])
	}
	return Token{Type: TokenName, Value: name, Pos: pos}, nil
}

func (l *Lexer) readString() (Token, error) {
	pos := l.Pos()
	l.pos++ // '('

	var out []byte
	depth := 1
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		l.pos++

		switch c {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return Token{Type: TokenString, Value: out, Pos: pos}, nil
			}
		case '\r':
			// A bare CR or CRLF inside a string reads as LF.
			if l.pos < len(l.data) && l.data[l.pos] == '\n' {
				l.pos++
			}
			c = '\n'
		case '\\':
			if l.pos >= len(l.data) {
				continue
			}
			e := l.data[l.pos]
			l.pos++
			switch e {
			case 'n':
				c = '\n'
			case 'r':
				c = '\r'
			case 't':
				c = '\t'
			case 'b':
				c = '\b'
			case 'f':
				c = '\f'
			case '\r':
				if l.pos < len(l.data) && l.data[l.pos] == '\n' {
					l.pos++
				}
				continue
			case '\n':
				continue
			default:
				if isOctalDigit(e) {
					v := int(e - '0')
					for n := 1; n < 3 && l.pos < len(l.data) && isOctalDigit(l.data[l.pos]); n++ {
						v = v*8 + int(l.data[l.pos]-'0')
						l.pos++
					}
					c = byte(v)
				} else {
					c = e
				}
			}
		}
		out = append(out, c)
	}

	if l.partial {
		return Token{}, ErrTruncated
	}
	return Token{}, fmt.Errorf("unterminated string at %d", pos)
}

func (l *Lexer) readHexString() (Token, error) {
	pos := l.Pos()
	l.pos++ // '<'

	var out []byte
	var hi byte
	half := false
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		l.pos++

		switch {
		case c == '>':
			if half {
				out = append(out, hi<<4)
			}
			return Token{Type: TokenHexString, Value: out, Pos: pos}, nil
		case isWhitespace(c):
		case isHexDigit(c):
			if half {
				out = append(out, hi<<4|hexValue(c))
			} else {
				hi = hexValue(c)
			}
			half = !half
		default:
			return Token{}, fmt.Errorf("invalid hex digit %q at %d", c, l.Pos()-1)
		}
	}

	if l.partial {
		return Token{}, ErrTruncated
	}
	return Token{}, fmt.Errorf("unterminated hex string at %d", pos)
}

// streamStart skips the end-of-line marker after the stream keyword and
// returns the index of the first data byte.
func (l *Lexer) streamStart() int {
	if l.pos < len(l.data) && l.data[l.pos] == '\r' {
		l.pos++
	}
	if l.pos < len(l.data) && l.data[l.pos] == '\n' {
		l.pos++
	}
	return l.pos
}

func isWhitespace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == 0
}

func isDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isDigit(c byte) bool      { return c >= '0' && c <= '9' }
func isOctalDigit(c byte) bool { return c >= '0' && c <= '7' }
func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func hexValue(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	}
	return 0
}
