package decompress

import (
	"bytes"
	"io"
)

// bufferedAdapter bridges a pull-based io.Reader decoder (compress/flate,
// compress/bzip2, klauspost/compress/zstd, ulikunitz/xz/lzma all work this
// way: they read a complete compressed stream and decode on demand) to
// this package's push-based, resumable Decompress contract.
//
// The Decompressor contract lets an implementation stall on input
// (returning a zero Outcome while hasMoreInput is true), so this adapter
// accumulates every fed compressed byte across calls without reading
// bytes=0 written=0, and only constructs the real decoder once the caller
// signals hasMoreInput=false (the tail). From then on, each call drains
// the decoder progressively: the input slice is ignored, and the decoder
// is read directly into out. This trades true streaming backpressure for
// a straightforward, correct bridge to decoders that were not designed
// for partial-input resumption.
type bufferedAdapter struct {
	compressed bytes.Buffer
	open       func(io.Reader) (io.Reader, error)
	reader     io.Reader
	finished   bool
}

func newBufferedAdapter(open func(io.Reader) (io.Reader, error)) *bufferedAdapter {
	return &bufferedAdapter{open: open}
}

func (a *bufferedAdapter) Decompress(in []byte, out []byte, hasMoreInput bool) (Outcome, error) {
	if a.reader == nil {
		a.compressed.Write(in)
		if hasMoreInput {
			return Outcome{BytesRead: len(in)}, nil
		}

		r, err := a.open(bytes.NewReader(a.compressed.Bytes()))
		if err != nil {
			return Outcome{}, err
		}
		a.reader = r
	}

	if a.finished || len(out) == 0 {
		return Outcome{BytesRead: len(in)}, nil
	}

	n, err := io.ReadFull(a.reader, out)
	switch err {
	case nil:
		return Outcome{BytesRead: len(in), BytesWritten: n}, nil
	case io.EOF, io.ErrUnexpectedEOF:
		a.finished = true
		return Outcome{BytesRead: len(in), BytesWritten: n}, nil
	default:
		return Outcome{}, err
	}
}
