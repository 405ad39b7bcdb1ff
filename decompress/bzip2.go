package decompress

import (
	"compress/bzip2"
	"io"
)

// Bzip2 has no decode-only third-party package anywhere in the example
// corpus worth displacing the standard library's, which already covers
// everything this engine needs (decoding only; the engine never writes
// archives). See DESIGN.md.
func newBzip2Decompressor() Decompressor {
	return newBufferedAdapter(func(r io.Reader) (io.Reader, error) {
		return bzip2.NewReader(r), nil
	})
}
