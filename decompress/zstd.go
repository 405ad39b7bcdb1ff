package decompress

import (
	"io"

	"github.com/klauspost/compress/zstd"
)

// newZstdDecompressor adapts klauspost/compress/zstd.Decoder, a pull-based
// reader, into the push-based Decompressor contract.
func newZstdDecompressor() Decompressor {
	return newBufferedAdapter(func(r io.Reader) (io.Reader, error) {
		return zstd.NewReader(r)
	})
}
