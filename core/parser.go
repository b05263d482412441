package core

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
)

// ReferenceResolver resolves indirect references met while parsing, such
// as a stream /Length stored in a separate object.
type ReferenceResolver interface {
	ResolveReference(ref IndirectRef) (Object, error)
}

// Parser builds objects from the token stream of a Lexer.
type Parser struct {
	lex      *Lexer
	ahead    []Token
	resolver ReferenceResolver
}

// NewParser returns a parser over a complete buffer.
func NewParser(data []byte) *Parser {
	return &Parser{lex: NewLexer(data)}
}

func newWindowParser(data []byte, base int64, partial bool) *Parser {
	return &Parser{lex: newWindowLexer(data, base, partial)}
}

func (p *Parser) SetReferenceResolver(r ReferenceResolver) {
	p.resolver = r
}

func (p *Parser) next() (Token, error) {
	if len(p.ahead) > 0 {
		tok := p.ahead[0]
		p.ahead = p.ahead[1:]
		return tok, nil
	}
	return p.lex.Next()
}

func (p *Parser) peek(i int) (Token, error) {
	for len(p.ahead) <= i {
		tok, err := p.lex.Next()
		if err != nil {
			return Token{}, err
		}
		p.ahead = append(p.ahead, tok)
	}
	return p.ahead[i], nil
}

// ParseObject parses the next direct object. "n g R" sequences become
// IndirectRef values.
func (p *Parser) ParseObject() (Object, error) {
	tok, err := p.next()
	if err != nil {
		return nil, err
	}

	switch tok.Type {
	case TokenEOF:
		return nil, io.ErrUnexpectedEOF
	case TokenInteger:
		return p.parseInteger(tok)
	case TokenReal:
		v, err := strconv.ParseFloat(string(tok.Value), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid real %q at %d", tok.Value, tok.Pos)
		}
		return Real(v), nil
	case TokenString, TokenHexString:
		return String(tok.Value), nil
	case TokenName:
		return Name(tok.Value), nil
	case TokenArrayStart:
		return p.parseArray()
	case TokenDictStart:
		return p.parseDict()
	case TokenKeyword:
		switch string(tok.Value) {
		case "true":
			return Bool(true), nil
		case "false":
			return Bool(false), nil
		case "null":
			return Null{}, nil
		}
	}
	return nil, fmt.Errorf("unexpected %q at %d", tok.Value, tok.Pos)
}

func (p *Parser) parseInteger(tok Token) (Object, error) {
	v, err := strconv.ParseInt(string(tok.Value), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid integer %q at %d", tok.Value, tok.Pos)
	}

	gen, err := p.peek(0)
	if err != nil || gen.Type != TokenInteger {
		return Int(v), err
	}
	r, err := p.peek(1)
	if err != nil {
		return nil, err
	}
	if !r.isKeyword("R") {
		return Int(v), nil
	}

	g, _ := strconv.Atoi(string(gen.Value))
	p.ahead = p.ahead[2:]
	return IndirectRef{Number: int(v), Generation: g}, nil
}

func (p *Parser) parseArray() (Object, error) {
	arr := Array{}
	for {
		tok, err := p.peek(0)
		if err != nil {
			return nil, err
		}
		switch tok.Type {
		case TokenArrayEnd:
			p.ahead = p.ahead[1:]
			return arr, nil
		case TokenEOF:
			return nil, io.ErrUnexpectedEOF
		}

		obj, err := p.ParseObject()
		if err != nil {
			return nil, err
		}
		arr = append(arr, obj)
	}
}

func (p *Parser) parseDict() (Object, error) {
	dict := Dict{}
	for {
		tok, err := p.next()
		if err != nil {
			return nil, err
		}
		switch tok.Type {
		case TokenDictEnd:
			return dict, nil
		case TokenEOF:
			return nil, io.ErrUnexpectedEOF
		case TokenName:
		default:
			return nil, fmt.Errorf("expected name key, got %q at %d", tok.Value, tok.Pos)
		}

		val, err := p.ParseObject()
		if err != nil {
			return nil, err
		}
		dict[string(tok.Value)] = val
	}
}

// ParseIndirectObject parses "n g obj <object> endobj", including stream
// data when the object is a stream. A missing endobj is tolerated.
func (p *Parser) ParseIndirectObject() (*IndirectObject, error) {
	num, err := p.next()
	if err != nil {
		return nil, err
	}
	gen, err := p.next()
	if err != nil {
		return nil, err
	}
	kw, err := p.next()
	if err != nil {
		return nil, err
	}
	if num.Type != TokenInteger || gen.Type != TokenInteger || !kw.isKeyword("obj") {
		return nil, fmt.Errorf("expected \"n g obj\" at %d", num.Pos)
	}

	n, _ := strconv.Atoi(string(num.Value))
	g, _ := strconv.Atoi(string(gen.Value))
	obj, err := p.ParseObject()
	if err != nil {
		return nil, fmt.Errorf("object %d %d: %w", n, g, err)
	}

	tok, err := p.peek(0)
	if err != nil {
		return nil, err
	}
	if dict, ok := obj.(Dict); ok && tok.isKeyword("stream") {
		if obj, err = p.parseStream(dict); err != nil {
			return nil, fmt.Errorf("object %d %d: %w", n, g, err)
		}
		if tok, err = p.peek(0); err != nil {
			return nil, err
		}
	}
	if tok.isKeyword("endobj") {
		p.ahead = p.ahead[1:]
	}

	return &IndirectObject{
		Ref:    IndirectRef{Number: n, Generation: g},
		Object: obj,
		Offset: num.Pos,
	}, nil
}

var endstream = []byte("endstream")

// parseStream reads the data following the stream keyword, which is the
// only token buffered in p.ahead.
func (p *Parser) parseStream(dict Dict) (*Stream, error) {
	p.ahead = p.ahead[:0]
	lex := p.lex
	start := lex.streamStart()

	length := p.streamLength(dict)
	if length >= 0 {
		end := start + length
		if end > len(lex.data) {
			if lex.partial {
				return nil, ErrTruncated
			}
		} else {
			lex.pos = end
			tok, err := p.peek(0)
			if err != nil {
				return nil, err
			}
			if tok.isKeyword("endstream") {
				p.ahead = p.ahead[1:]
				return &Stream{Dict: dict, Data: bytes.Clone(lex.data[start:end])}, nil
			}
			p.ahead = p.ahead[:0]
		}
	}

	// /Length is missing or wrong: scan for the keyword instead.
	i := bytes.Index(lex.data[start:], endstream)
	if i < 0 {
		if lex.partial {
			return nil, ErrTruncated
		}
		return nil, fmt.Errorf("stream at %d has no endstream", lex.base+int64(start))
	}
	data := lex.data[start : start+i]
	data = bytes.TrimSuffix(data, []byte("\n"))
	data = bytes.TrimSuffix(data, []byte("\r"))
	lex.pos = start + i + len(endstream)
	return &Stream{Dict: dict, Data: bytes.Clone(data)}, nil
}

// streamLength returns /Length, resolving an indirect value, or -1.
func (p *Parser) streamLength(dict Dict) int {
	obj := dict["Length"]
	if ref, ok := obj.(IndirectRef); ok {
		if p.resolver == nil {
			return -1
		}
		resolved, err := p.resolver.ResolveReference(ref)
		if err != nil {
			return -1
		}
		obj = resolved
	}
	if n, ok := obj.(Int); ok && n >= 0 {
		return int(n)
	}
	return -1
}
