package parse

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"time"
)

// LocalFileHeader is the raw per-entry header immediately preceding each
// payload.
type LocalFileHeader struct {
	VersionNeeded    uint16
	Flags            uint16
	Method           Method
	ModifiedTime     uint16
	ModifiedDate     uint16
	CRC32            uint32
	CompressedSize   uint32
	UncompressedSize uint32
	NameRaw          []byte
	ExtraRaw         []byte
}

const lfhFixedSize = 30

// UnmarshalLocalFileHeader decodes the fixed 30-byte header plus the
// variable-length name and extra field that follow it, snapshot-copying
// both so the record stays valid after the caller's buffer is consumed or
// refilled. When b holds less than the full record it returns
// io.ErrUnexpectedEOF.
func UnmarshalLocalFileHeader(b []byte) (hdr LocalFileHeader, consumed int, err error) {
	if len(b) < lfhFixedSize {
		return hdr, 0, io.ErrUnexpectedEOF
	}

	data := &struct {
		Signature        uint32
		VersionNeeded    uint16
		Flags            uint16
		Method           uint16
		ModifiedTime     uint16
		ModifiedDate     uint16
		CRC32            uint32
		CompressedSize   uint32
		UncompressedSize uint32
		FileNameLength   uint16
		ExtraFieldLength uint16
	}{}

	if err = binary.Read(bytes.NewReader(b[:lfhFixedSize]), binary.LittleEndian, data); err != nil {
		return hdr, 0, fmt.Errorf("unmarshal error: %w", err)
	}
	if data.Signature != LocalFileHeaderSignature {
		return hdr, 0, fmt.Errorf("mismatched signature 0x%x", data.Signature)
	}

	n, m := int(data.FileNameLength), int(data.ExtraFieldLength)
	total := lfhFixedSize + n + m
	if len(b) < total {
		return hdr, 0, io.ErrUnexpectedEOF
	}

	hdr = LocalFileHeader{
		VersionNeeded:    data.VersionNeeded,
		Flags:            data.Flags,
		Method:           Method(data.Method),
		ModifiedTime:     data.ModifiedTime,
		ModifiedDate:     data.ModifiedDate,
		CRC32:            data.CRC32,
		CompressedSize:   data.CompressedSize,
		UncompressedSize: data.UncompressedSize,
		NameRaw:          bytes.Clone(b[lfhFixedSize : lfhFixedSize+n]),
		ExtraRaw:         bytes.Clone(b[lfhFixedSize+n : total]),
	}
	return hdr, total, nil
}

// IsZip64 reports whether either declared size carries the ZIP64 sentinel,
// meaning the real size lives in the zip64 extra field.
func (h LocalFileHeader) IsZip64() bool {
	return h.CompressedSize == 0xFFFFFFFF || h.UncompressedSize == 0xFFFFFFFF
}

// HasDataDescriptor reports whether general-purpose bit 3 is set.
func (h LocalFileHeader) HasDataDescriptor() bool {
	return h.Flags&0x0008 != 0
}

// IsUtf8 reports the language-encoding flag, bit 11.
func (h LocalFileHeader) IsUtf8() bool {
	return h.Flags&0x0800 != 0
}

// MsDosTimeToTime converts an MS-DOS date/time pair into a UTC time.Time
// with 2-second resolution.
//
// https://learn.microsoft.com/en-us/windows/win32/api/winbase/nf-winbase-dosdatetimetofiletime
func MsDosTimeToTime(dosDate, dosTime uint16) time.Time {
	return time.Date(
		int(dosDate>>9)+1980,
		time.Month(dosDate>>5&0xf),
		int(dosDate&0x1f),
		int(dosTime>>11),
		int(dosTime>>5&0x3f),
		int(dosTime&0x1f)*2,
		0,
		time.UTC,
	)
}
