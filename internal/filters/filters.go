package filters

import (
	"errors"
	"fmt"
)

// ErrUnsupported is returned for filters this package cannot decode.
var ErrUnsupported = errors.New("unsupported filter")

// Params holds the entries of a /DecodeParms dictionary, converted to Go
// values (int, float64, bool, string).
type Params map[string]any

// Int returns the integer value of key, or def when the key is missing or
// not numeric.
func (p Params) Int(key string, def int) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case int32:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

// Bool returns the boolean value of key, or def.
func (p Params) Bool(key string, def bool) bool {
	if v, ok := p[key].(bool); ok {
		return v
	}
	return def
}

// Func decodes data encoded with a single filter.
type Func func(data []byte, params Params) ([]byte, error)

var registry = map[string]Func{
	"FlateDecode":     FlateDecode,
	"LZWDecode":       LZWDecode,
	"ASCIIHexDecode":  noParams(ASCIIHexDecode),
	"ASCII85Decode":   noParams(ASCII85Decode),
	"RunLengthDecode": noParams(RunLengthDecode),
	"CCITTFaxDecode":  CCITTFaxDecode,
}

var abbreviations = map[string]string{
	"Fl":  "FlateDecode",
	"LZW": "LZWDecode",
	"AHx": "ASCIIHexDecode",
	"A85": "ASCII85Decode",
	"RL":  "RunLengthDecode",
	"CCF": "CCITTFaxDecode",
}

// noParams adapts a parameterless decoder to Func.
func noParams(fn func([]byte) ([]byte, error)) Func {
	return func(data []byte, _ Params) ([]byte, error) { return fn(data) }
}

// Lookup returns the decoder registered for name.
func Lookup(name string) (Func, bool) {
	if full, ok := abbreviations[name]; ok {
		name = full
	}
	fn, ok := registry[name]
	return fn, ok
}

// Decode applies the named filter to data.
func Decode(name string, data []byte, params Params) ([]byte, error) {
	fn, ok := Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, name)
	}
	out, err := fn(data, params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}
