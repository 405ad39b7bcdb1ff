package decompress

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/ulikunitz/xz/lzma"
)

// newLzmaDecompressor adapts ulikunitz/xz/lzma, which expects the classic
// ".lzma" container (5-byte properties header + 8-byte little-endian
// uncompressed size + raw payload), not what a ZIP entry actually carries.
// A ZIP LZMA entry's data begins with its own 4-byte header (a 2-byte
// version, then a 2-byte little-endian property size, normally 5) followed
// by that many property bytes and then the raw compressed payload; none of
// that is stripped upstream, so this adapter does it before handing the
// bare LZMA stream to the decoder.
//
// The uncompressed size is fed in from the central directory entry because
// some ZIP encoders omit the LZMA end-of-stream marker that would
// otherwise let the decoder find the end on its own.
func newLzmaDecompressor(uncompressedSize uint64) Decompressor {
	return newBufferedAdapter(func(r io.Reader) (io.Reader, error) {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}
		if len(data) < 4 {
			return nil, io.ErrUnexpectedEOF
		}

		propSize := int(binary.LittleEndian.Uint16(data[2:4]))
		data = data[4:]
		if propSize != 5 || len(data) < propSize {
			return nil, io.ErrUnexpectedEOF
		}
		props := data[:propSize]
		payload := data[propSize:]

		var header bytes.Buffer
		header.Write(props)
		sizeField := make([]byte, 8)
		binary.LittleEndian.PutUint64(sizeField, uncompressedSize)
		header.Write(sizeField)
		header.Write(payload)

		return lzma.NewReader(&header)
	})
}
