package filters

import (
	"bytes"
	"compress/lzw"
	"compress/zlib"
	"fmt"
	"io"

	tifflzw "golang.org/x/image/tiff/lzw"
)

// FlateDecode inflates zlib data and reverses any predictor named in params.
// A truncated deflate stream yields the bytes inflated so far together with
// the error, since damaged streams are common in the wild.
func FlateDecode(data []byte, params Params) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("zlib header: %w", err)
	}
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil {
		return out, fmt.Errorf("inflate: %w", err)
	}
	return unpredict(out, params)
}

// LZWDecode expands LZW data. EarlyChange (default 1) selects the code width
// switch used by TIFF; EarlyChange 0 is the classic variant.
func LZWDecode(data []byte, params Params) ([]byte, error) {
	var rc io.ReadCloser
	if params.Int("EarlyChange", 1) == 0 {
		rc = lzw.NewReader(bytes.NewReader(data), lzw.MSB, 8)
	} else {
		rc = tifflzw.NewReader(bytes.NewReader(data), tifflzw.MSB, 8)
	}
	defer rc.Close()

	out, err := io.ReadAll(rc)
	if err != nil {
		return out, fmt.Errorf("lzw: %w", err)
	}
	return unpredict(out, params)
}
