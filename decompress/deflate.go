package decompress

import (
	"io"

	"github.com/klauspost/compress/flate"
)

func newDeflateDecompressor() Decompressor {
	return newBufferedAdapter(func(r io.Reader) (io.Reader, error) {
		return flate.NewReader(r), nil
	})
}
