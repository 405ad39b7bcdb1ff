package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuffer_FillConsumeShift(t *testing.T) {
	b := NewWithCapacity(8)
	defer b.Release()

	n := copy(b.Space(), []byte("abcd"))
	b.Fill(n)
	assert.Equal(t, []byte("abcd"), b.Data())
	assert.Equal(t, uint64(4), b.ReadBytes())

	b.Consume(2)
	assert.Equal(t, []byte("cd"), b.Data())
	assert.Equal(t, 4, b.AvailableSpace())

	b.Shift()
	assert.Equal(t, []byte("cd"), b.Data())
	assert.Equal(t, 6, b.AvailableSpace())
}

func TestBuffer_ReadOffset(t *testing.T) {
	b := NewWithCapacity(4)
	defer b.Release()

	b.Fill(4)
	b.Consume(4)
	b.Reset()
	b.Fill(10)

	assert.Equal(t, uint64(110), b.ReadOffset(100))
}

func TestBuffer_Grow(t *testing.T) {
	b := NewWithCapacity(4)
	defer b.Release()

	copy(b.Space(), []byte("ab"))
	b.Fill(2)
	b.Grow(16)

	assert.Equal(t, []byte("ab"), b.Data())
	assert.Equal(t, 16, b.Capacity())
}
