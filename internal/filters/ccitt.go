package filters

import (
	"bytes"
	"io"

	"golang.org/x/image/ccitt"
)

type faxLayout struct {
	sub     ccitt.SubFormat
	columns int
	rows    int
	invert  bool
}

// faxLayoutOf maps /DecodeParms onto the ccitt reader: K < 0 is Group 4,
// anything else Group 3. A missing /Rows lets the decoder find the height.
func faxLayoutOf(params Params) faxLayout {
	lay := faxLayout{
		sub:     ccitt.Group3,
		columns: params.Int("Columns", 1728),
		rows:    params.Int("Rows", 0),
		invert:  params.Bool("BlackIs1", false),
	}
	if params.Int("K", 0) < 0 {
		lay.sub = ccitt.Group4
	}
	if lay.rows <= 0 {
		lay.rows = ccitt.AutoDetectHeight
	}
	return lay
}

// CCITTFaxDecode decodes Group 3 or Group 4 fax data to one bit per pixel.
func CCITTFaxDecode(data []byte, params Params) ([]byte, error) {
	lay := faxLayoutOf(params)
	r := ccitt.NewReader(bytes.NewReader(data), ccitt.MSB, lay.sub, lay.columns, lay.rows,
		&ccitt.Options{Invert: lay.invert})
	return io.ReadAll(r)
}
