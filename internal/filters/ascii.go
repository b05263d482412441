package filters

import (
	"bytes"
	"encoding/ascii85"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\f', 0:
		return true
	}
	return false
}

func stripSpace(data []byte) []byte {
	out := make([]byte, 0, len(data))
	for _, c := range data {
		if !isSpace(c) {
			out = append(out, c)
		}
	}
	return out
}

// ASCIIHexDecode decodes hex digits up to the '>' end marker. Whitespace is
// ignored and an odd final digit is padded with 0.
func ASCIIHexDecode(data []byte) ([]byte, error) {
	digits := stripSpace(data)
	if i := bytes.IndexByte(digits, '>'); i >= 0 {
		digits = digits[:i]
	}
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}

	out := make([]byte, hex.DecodedLen(len(digits)))
	if _, err := hex.Decode(out, digits); err != nil {
		return nil, fmt.Errorf("hex: %w", err)
	}
	return out, nil
}

// ASCII85Decode decodes base-85 data, accepting the optional <~ prefix and
// stopping at the ~> end marker.
func ASCII85Decode(data []byte) ([]byte, error) {
	text := stripSpace(data)
	text = bytes.TrimPrefix(text, []byte("<~"))
	if i := bytes.Index(text, []byte("~")); i >= 0 {
		text = text[:i]
	}

	out, err := io.ReadAll(ascii85.NewDecoder(bytes.NewReader(text)))
	if err != nil {
		return nil, fmt.Errorf("ascii85: %w", err)
	}
	return out, nil
}

var errRunLengthTruncated = errors.New("run length data truncated")

// RunLengthDecode expands PackBits style runs terminated by 128.
func RunLengthDecode(data []byte) ([]byte, error) {
	var out []byte
	for i := 0; i < len(data); {
		n := int(data[i])
		i++
		switch {
		case n == 128:
			return out, nil
		case n < 128:
			if i+n+1 > len(data) {
				return out, errRunLengthTruncated
			}
			out = append(out, data[i:i+n+1]...)
			i += n + 1
		default:
			if i >= len(data) {
				return out, errRunLengthTruncated
			}
			out = append(out, bytes.Repeat(data[i:i+1], 257-n)...)
			i++
		}
	}
	return out, nil
}
