package decompress

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStoreDecompressor_RoundTrip(t *testing.T) {
	d := &storeDecompressor{}
	out := make([]byte, 16)

	outcome, err := d.Decompress([]byte("hello\n"), out, false)
	assert.NoError(t, err)
	assert.Equal(t, 6, outcome.BytesRead)
	assert.Equal(t, 6, outcome.BytesWritten)
	assert.Equal(t, "hello\n", string(out[:outcome.BytesWritten]))
}

func TestStoreDecompressor_ClampsToShorterSide(t *testing.T) {
	d := &storeDecompressor{}
	out := make([]byte, 3)

	outcome, err := d.Decompress([]byte("hello"), out, true)
	assert.NoError(t, err)
	assert.Equal(t, 3, outcome.BytesRead)
	assert.Equal(t, 3, outcome.BytesWritten)
}
