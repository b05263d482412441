// Package filters decodes PDF stream filters.
//
// Streams name their filters by the full name (FlateDecode) or, inside
// inline images, by the abbreviation (Fl). Lookup accepts both:
//
//	fn, ok := filters.Lookup("FlateDecode")
//	if !ok {
//	    return filters.ErrUnsupported
//	}
//	decoded, err := fn(data, filters.Params{"Predictor": 12, "Columns": 5})
//
// # Supported Filters
//
//   - FlateDecode (zlib) and LZWDecode, both with TIFF and PNG predictors
//   - ASCIIHexDecode and ASCII85Decode
//   - RunLengthDecode
//   - CCITTFaxDecode (Group 3 and Group 4)
//
// DCTDecode, JPXDecode and JBIG2Decode carry image data that the loader
// never rasterizes, so they are reported as unsupported.
package filters
