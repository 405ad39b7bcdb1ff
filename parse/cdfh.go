package parse

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// CentralDirectoryHeader is a raw central directory file header record, as
// parsed from the archive before encoding detection/decoding of its name
// and comment.
type CentralDirectoryHeader struct {
	VersionMadeBy      uint16
	VersionNeeded      uint16
	Flags              uint16
	Method             Method
	ModifiedTime       uint16
	ModifiedDate       uint16
	CRC32              uint32
	CompressedSize     uint32
	UncompressedSize   uint32
	DiskNumber         uint16
	InternalAttrs      uint16
	ExternalAttrs      uint32
	HeaderOffset       uint32
	NameRaw            []byte
	ExtraRaw           []byte
	CommentRaw         []byte
}

const cdfhFixedSize = 46

// UnmarshalCentralDirectoryHeader decodes the 46-byte fixed portion at the
// start of b, then snapshot-copies the variable-length name/extra/comment
// region that follows it, so the returned record stays valid after the
// caller's buffer is consumed or refilled. When b holds less than the full
// record (fixed size plus the three declared variable lengths) it returns
// io.ErrUnexpectedEOF, so the caller can fill more and retry.
func UnmarshalCentralDirectoryHeader(b []byte) (hdr CentralDirectoryHeader, consumed int, err error) {
	if len(b) < cdfhFixedSize {
		return hdr, 0, io.ErrUnexpectedEOF
	}

	data := &struct {
		Signature         uint32
		VersionMadeBy     uint16
		VersionNeeded     uint16
		Flags             uint16
		Method            uint16
		ModifiedTime      uint16
		ModifiedDate      uint16
		CRC32             uint32
		CompressedSize    uint32
		UncompressedSize  uint32
		FileNameLength    uint16
		ExtraFieldLength  uint16
		FileCommentLength uint16
		DiskNumber        uint16
		InternalAttrs     uint16
		ExternalAttrs     uint32
		HeaderOffset      uint32
	}{}

	if err = binary.Read(bytes.NewReader(b[:cdfhFixedSize]), binary.LittleEndian, data); err != nil {
		return hdr, 0, fmt.Errorf("unmarshal error: %w", err)
	}
	if data.Signature != CentralDirectorySignature {
		return hdr, 0, fmt.Errorf("mismatched signature 0x%x", data.Signature)
	}

	n, m, k := int(data.FileNameLength), int(data.ExtraFieldLength), int(data.FileCommentLength)
	total := cdfhFixedSize + n + m + k
	if len(b) < total {
		return hdr, 0, io.ErrUnexpectedEOF
	}

	hdr = CentralDirectoryHeader{
		VersionMadeBy:    data.VersionMadeBy,
		VersionNeeded:    data.VersionNeeded,
		Flags:            data.Flags,
		Method:           Method(data.Method),
		ModifiedTime:     data.ModifiedTime,
		ModifiedDate:     data.ModifiedDate,
		CRC32:            data.CRC32,
		CompressedSize:   data.CompressedSize,
		UncompressedSize: data.UncompressedSize,
		DiskNumber:       data.DiskNumber,
		InternalAttrs:    data.InternalAttrs,
		ExternalAttrs:    data.ExternalAttrs,
		HeaderOffset:     data.HeaderOffset,
		NameRaw:          bytes.Clone(b[cdfhFixedSize : cdfhFixedSize+n]),
		ExtraRaw:         bytes.Clone(b[cdfhFixedSize+n : cdfhFixedSize+n+m]),
		CommentRaw:       bytes.Clone(b[cdfhFixedSize+n+m : total]),
	}
	return hdr, total, nil
}

// IsUtf8 reports whether the header's general-purpose bit 11 (the
// "language encoding flag") marks name/comment as UTF-8.
func (h CentralDirectoryHeader) IsUtf8() bool {
	return h.Flags&0x0800 != 0
}

// HasDataDescriptor reports whether general-purpose bit 3 is set, meaning
// sizes/CRC live in a trailing data descriptor rather than this header.
func (h CentralDirectoryHeader) HasDataDescriptor() bool {
	return h.Flags&0x0008 != 0
}
