package decompress

// storeDecompressor implements the identity "no compression" method: an
// exact byte-for-byte copy.
type storeDecompressor struct{}

func (d *storeDecompressor) Decompress(in []byte, out []byte, _ bool) (Outcome, error) {
	n := min(len(in), len(out))
	copy(out[:n], in[:n])
	return Outcome{BytesRead: n, BytesWritten: n}, nil
}
