package filters

import "fmt"

// unpredict reverses the /Predictor transform of Flate and LZW streams.
// 1 means no prediction, 2 is TIFF Predictor 2, 10 and above are PNG
// predictors where every row carries its own algorithm tag.
func unpredict(data []byte, params Params) ([]byte, error) {
	predictor := params.Int("Predictor", 1)
	switch {
	case predictor <= 1:
		return data, nil
	case predictor == 2:
		return tiffPredictor(data, params)
	case predictor >= 10 && predictor <= 15:
		return pngPredictor(data, params)
	}
	return nil, fmt.Errorf("unsupported predictor %d", predictor)
}

type rowLayout struct {
	pixel int // bytes per pixel, at least 1
	row   int // bytes per row, without a PNG tag byte
}

func layoutOf(params Params) (rowLayout, error) {
	columns := params.Int("Columns", 1)
	colors := params.Int("Colors", 1)
	bpc := params.Int("BitsPerComponent", 8)
	if columns < 1 || colors < 1 || bpc < 1 {
		return rowLayout{}, fmt.Errorf("invalid predictor layout %d columns, %d colors, %d bits", columns, colors, bpc)
	}
	return rowLayout{
		pixel: max((colors*bpc+7)/8, 1),
		row:   (columns*colors*bpc + 7) / 8,
	}, nil
}

func tiffPredictor(data []byte, params Params) ([]byte, error) {
	if bpc := params.Int("BitsPerComponent", 8); bpc != 8 {
		return nil, fmt.Errorf("TIFF predictor with %d bits per component", bpc)
	}
	lay, err := layoutOf(params)
	if err != nil {
		return nil, err
	}

	out := make([]byte, len(data))
	copy(out, data)
	for start := 0; start < len(out); start += lay.row {
		row := out[start:min(start+lay.row, len(out))]
		for i := lay.pixel; i < len(row); i++ {
			row[i] += row[i-lay.pixel]
		}
	}
	return out, nil
}

// pngPredictor decodes rows of 1+row bytes. A trailing partial row is
// dropped.
func pngPredictor(data []byte, params Params) ([]byte, error) {
	lay, err := layoutOf(params)
	if err != nil {
		return nil, err
	}

	stride := lay.row + 1
	rows := len(data) / stride
	out := make([]byte, rows*lay.row)
	prev := make([]byte, lay.row)

	for r := 0; r < rows; r++ {
		tag := data[r*stride]
		src := data[r*stride+1 : (r+1)*stride]
		cur := out[r*lay.row : (r+1)*lay.row]

		for i := range cur {
			var left, upLeft byte
			if i >= lay.pixel {
				left = cur[i-lay.pixel]
				upLeft = prev[i-lay.pixel]
			}
			up := prev[i]

			switch tag {
			case 0:
				cur[i] = src[i]
			case 1:
				cur[i] = src[i] + left
			case 2:
				cur[i] = src[i] + up
			case 3:
				cur[i] = src[i] + byte((int(left)+int(up))/2)
			case 4:
				cur[i] = src[i] + paeth(left, up, upLeft)
			default:
				return nil, fmt.Errorf("row %d: unknown PNG filter type %d", r, tag)
			}
		}
		prev = cur
	}
	return out, nil
}

func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := absInt(p-int(a)), absInt(p-int(b)), absInt(p-int(c))
	switch {
	case pa <= pb && pa <= pc:
		return a
	case pb <= pc:
		return b
	}
	return c
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
