package decompress

import (
	"bytes"
	"testing"

	"github.com/klauspost/compress/flate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeflateDecompressor_ChunkedRoundTrip(t *testing.T) {
	plain := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog\n"), 100)

	var comp bytes.Buffer
	fw, err := flate.NewWriter(&comp, flate.DefaultCompression)
	require.NoError(t, err)
	_, err = fw.Write(plain)
	require.NoError(t, err)
	require.NoError(t, fw.Close())

	dec := newDeflateDecompressor()
	data := comp.Bytes()

	// Feed in small chunks: the adapter must stall (zero output) while
	// hasMoreInput, then drain everything once the tail arrives.
	var out bytes.Buffer
	buf := make([]byte, 512)
	for len(data) > 0 {
		chunk := min(len(data), 100)
		hasMore := chunk < len(data)

		outcome, err := dec.Decompress(data[:chunk], buf, hasMore)
		require.NoError(t, err)
		assert.Equal(t, chunk, outcome.BytesRead)
		out.Write(buf[:outcome.BytesWritten])
		data = data[chunk:]
	}
	for {
		outcome, err := dec.Decompress(nil, buf, false)
		require.NoError(t, err)
		if outcome.BytesWritten == 0 {
			break
		}
		out.Write(buf[:outcome.BytesWritten])
	}

	assert.Equal(t, plain, out.Bytes())
}
