package parse

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildCDFH(name string) []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, CentralDirectorySignature)
	binary.Write(&buf, binary.LittleEndian, uint16(20))              // version made by
	binary.Write(&buf, binary.LittleEndian, uint16(20))              // version needed
	binary.Write(&buf, binary.LittleEndian, uint16(0))               // flags
	binary.Write(&buf, binary.LittleEndian, uint16(MethodStore))     // method
	binary.Write(&buf, binary.LittleEndian, uint16(0))               // mod time
	binary.Write(&buf, binary.LittleEndian, uint16(0x21))            // mod date
	binary.Write(&buf, binary.LittleEndian, uint32(0x363A3020))      // crc32
	binary.Write(&buf, binary.LittleEndian, uint32(6))               // compressed size
	binary.Write(&buf, binary.LittleEndian, uint32(6))               // uncompressed size
	binary.Write(&buf, binary.LittleEndian, uint16(len(name)))       // name length
	binary.Write(&buf, binary.LittleEndian, uint16(0))               // extra length
	binary.Write(&buf, binary.LittleEndian, uint16(0))               // comment length
	binary.Write(&buf, binary.LittleEndian, uint16(0))               // disk number
	binary.Write(&buf, binary.LittleEndian, uint16(0))               // internal attrs
	binary.Write(&buf, binary.LittleEndian, uint32(0))               // external attrs
	binary.Write(&buf, binary.LittleEndian, uint32(0))               // header offset
	buf.WriteString(name)
	return buf.Bytes()
}

func TestUnmarshalCentralDirectoryHeader(t *testing.T) {
	b := buildCDFH("a.txt")

	hdr, consumed, err := UnmarshalCentralDirectoryHeader(b)
	require.NoError(t, err)
	assert.Equal(t, len(b), consumed)
	assert.Equal(t, "a.txt", string(hdr.NameRaw))
	assert.Equal(t, MethodStore, hdr.Method)
	assert.Equal(t, uint32(6), hdr.UncompressedSize)
	assert.False(t, hdr.IsUtf8())
	assert.False(t, hdr.HasDataDescriptor())
}

func TestUnmarshalCentralDirectoryHeader_Truncated(t *testing.T) {
	b := buildCDFH("a.txt")

	_, _, err := UnmarshalCentralDirectoryHeader(b[:cdfhFixedSize-1])
	assert.Error(t, err)
}
