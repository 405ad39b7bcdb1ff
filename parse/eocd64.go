package parse

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Zip64Locator is the fixed 20-byte record immediately preceding an EOCD
// record, present only when a ZIP64 EOCD exists.
type Zip64Locator struct {
	DirectoryStartDisk uint32
	DirectoryOffset    uint64
	TotalDisks         uint32
}

const zip64LocatorSize = 20

// UnmarshalZip64Locator parses the fixed-size locator record. A signature
// mismatch means the locator is legitimately absent and is reported as a
// plain error the caller should treat as "no locator here", not a fatal
// format error.
func UnmarshalZip64Locator(b []byte) (Zip64Locator, error) {
	if len(b) < zip64LocatorSize {
		return Zip64Locator{}, io.ErrUnexpectedEOF
	}

	data := &struct {
		Signature          uint32
		DirectoryStartDisk uint32
		DirectoryOffset    uint64
		TotalDisks         uint32
	}{}

	if err := binary.Read(bytes.NewReader(b[:zip64LocatorSize]), binary.LittleEndian, data); err != nil {
		return Zip64Locator{}, fmt.Errorf("unmarshal error: %w", err)
	}
	if data.Signature != Zip64LocatorSignature {
		return Zip64Locator{}, fmt.Errorf("mismatched signature 0x%x", data.Signature)
	}

	return Zip64Locator{
		DirectoryStartDisk: data.DirectoryStartDisk,
		DirectoryOffset:    data.DirectoryOffset,
		TotalDisks:         data.TotalDisks,
	}, nil
}

// Zip64EndOfCentralDirectory is the 64-bit extended EOCD record. The
// trailing "zip64 extensible data sector" is preserved verbatim but not
// interpreted.
type Zip64EndOfCentralDirectory struct {
	VersionMadeBy      uint16
	VersionNeeded      uint16
	DiskNumber         uint32
	DirectoryDisk      uint32
	DiskRecords        uint64
	TotalRecords       uint64
	DirectorySize      uint64
	DirectoryOffset    uint64
	ExtensibleData     []byte
}

const zip64EocdFixedSize = 56

// UnmarshalZip64EndOfCentralDirectory parses the fixed portion of the
// record plus any trailing extensible data sector present in b.
// The record's own declared size field (excluding signature and the
// 8-byte size field itself, per APPNOTE) is used to size the trailing
// extensible data.
func UnmarshalZip64EndOfCentralDirectory(b []byte) (rec Zip64EndOfCentralDirectory, consumed int, err error) {
	if len(b) < zip64EocdFixedSize {
		return rec, 0, io.ErrUnexpectedEOF
	}

	data := &struct {
		Signature       uint32
		SizeOfRecord    uint64
		VersionMadeBy   uint16
		VersionNeeded   uint16
		DiskNumber      uint32
		DirectoryDisk   uint32
		DiskRecords     uint64
		TotalRecords    uint64
		DirectorySize   uint64
		DirectoryOffset uint64
	}{}

	if err = binary.Read(bytes.NewReader(b[:zip64EocdFixedSize]), binary.LittleEndian, data); err != nil {
		return rec, 0, fmt.Errorf("unmarshal error: %w", err)
	}
	if data.Signature != Zip64EndOfCentralDirectorySignature {
		return rec, 0, fmt.Errorf("mismatched signature 0x%x", data.Signature)
	}

	// SizeOfRecord counts everything after itself, i.e. from
	// VersionMadeBy onward; the fixed struct above already accounts for
	// signature(4)+size(8), so the extensible sector length is
	// SizeOfRecord minus the fixed fields following the size field.
	fixedAfterSize := uint64(zip64EocdFixedSize - 12)
	extraLen := int64(data.SizeOfRecord) - int64(fixedAfterSize)
	if extraLen < 0 {
		return rec, 0, fmt.Errorf("negative extensible data sector length")
	}
	total := zip64EocdFixedSize + int(extraLen)
	if len(b) < total {
		return rec, 0, io.ErrUnexpectedEOF
	}

	rec = Zip64EndOfCentralDirectory{
		VersionMadeBy:   data.VersionMadeBy,
		VersionNeeded:   data.VersionNeeded,
		DiskNumber:      data.DiskNumber,
		DirectoryDisk:   data.DirectoryDisk,
		DiskRecords:     data.DiskRecords,
		TotalRecords:    data.TotalRecords,
		DirectorySize:   data.DirectorySize,
		DirectoryOffset: data.DirectoryOffset,
		ExtensibleData:  bytes.Clone(b[zip64EocdFixedSize:total]),
	}
	return rec, total, nil
}
