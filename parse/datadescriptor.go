package parse

import (
	"bytes"
	"encoding/binary"
	"io"
)

// DataDescriptor is the optional trailer following a payload whose local
// header had the sizes-unknown bit set. It may be 12 bytes (CRC + 32-bit
// sizes) or 20 bytes (CRC + 64-bit sizes), optionally preceded by a 4-byte
// signature.
type DataDescriptor struct {
	CRC32            uint32
	CompressedSize   uint64
	UncompressedSize uint64
}

// UnmarshalDataDescriptor parses a data descriptor out of b, selecting the
// 12- or 20-byte form per isZip64, and tolerating an optional leading
// signature. consumed is the number of bytes of b the record occupied.
//
// A failure other than "incomplete" is the caller's cue to report
// InvalidDataDescriptor.
func UnmarshalDataDescriptor(b []byte, isZip64 bool) (dd DataDescriptor, consumed int, err error) {
	rest := b
	signaturePresent := false
	if len(rest) >= 4 && binary.LittleEndian.Uint32(rest[:4]) == DataDescriptorSignature {
		signaturePresent = true
		rest = rest[4:]
	}

	size := 12
	if isZip64 {
		size = 20
	}
	if len(rest) < size {
		return dd, 0, io.ErrUnexpectedEOF
	}

	r := bytes.NewReader(rest[:size])
	if err = binary.Read(r, binary.LittleEndian, &dd.CRC32); err != nil {
		return dd, 0, err
	}
	if isZip64 {
		var cs, us uint64
		if err = binary.Read(r, binary.LittleEndian, &cs); err != nil {
			return dd, 0, err
		}
		if err = binary.Read(r, binary.LittleEndian, &us); err != nil {
			return dd, 0, err
		}
		dd.CompressedSize, dd.UncompressedSize = cs, us
	} else {
		var cs, us uint32
		if err = binary.Read(r, binary.LittleEndian, &cs); err != nil {
			return dd, 0, err
		}
		if err = binary.Read(r, binary.LittleEndian, &us); err != nil {
			return dd, 0, err
		}
		dd.CompressedSize, dd.UncompressedSize = uint64(cs), uint64(us)
	}

	consumed = size
	if signaturePresent {
		consumed += 4
	}
	return dd, consumed, nil
}
