// Package decompress implements a uniform, buffer-driven decompression
// contract and its six implementations: Store, Deflate, Bzip2, Lzma,
// Zstd, and Aex. Deflate64 is recognized but New reports it as not
// enabled.
package decompress

import (
	"fmt"

	"github.com/trifectatechfoundation/ziplinter/parse"
	"github.com/trifectatechfoundation/ziplinter/zerr"
)

// Outcome reports how many bytes a single Decompress call consumed from
// its input and produced into its output.
type Outcome struct {
	BytesRead    int
	BytesWritten int
}

// Decompressor is implemented by every codec this engine supports. A
// single call must never read past len(in) or write past len(out), and
// must make forward progress whenever in or out is non-empty, except when
// legitimately waiting for more input — then it may return a zero Outcome,
// but only when hasMoreInput is true.
type Decompressor interface {
	Decompress(in []byte, out []byte, hasMoreInput bool) (Outcome, error)
}

// New returns the decompressor for the given method. uncompressedSize is
// required by Lzma, which needs the size hint up front because some ZIP
// encoders omit the LZMA end-of-stream marker. aex carries the WinZip AES
// extra field when method is MethodAex.
func New(method parse.Method, uncompressedSize uint64, aex *parse.AexExtra) (Decompressor, error) {
	switch method {
	case parse.MethodStore:
		return &storeDecompressor{}, nil
	case parse.MethodDeflate:
		return newDeflateDecompressor(), nil
	case parse.MethodDeflate64:
		// No decode-only Deflate64 implementation exists anywhere in the
		// dependency set this engine draws from; recognized but not
		// enabled, same as the engine this one is modeled after treats a
		// codec compiled out of its feature set.
		return nil, &zerr.UnsupportedError{Reason: zerr.MethodNotEnabled, Method: uint16(method)}
	case parse.MethodBzip2:
		return newBzip2Decompressor(), nil
	case parse.MethodLzma:
		return newLzmaDecompressor(uncompressedSize), nil
	case parse.MethodZstd:
		return newZstdDecompressor(), nil
	case parse.MethodAex:
		if aex == nil {
			return nil, &zerr.FormatError{Kind: zerr.InvalidExtraField, Cause: fmt.Errorf("aex method without aex extra field")}
		}
		return newAexDecompressor(aex)
	default:
		return nil, &zerr.UnsupportedError{Reason: zerr.MethodNotSupported, Method: uint16(method)}
	}
}
