package parse

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// EndOfCentralDirectory is the 32-bit EOCD record, fixed 22-byte header
// plus a variable-length comment.
type EndOfCentralDirectory struct {
	DiskNumber           uint16
	DirectoryDisk        uint16
	DiskRecords          uint16
	TotalRecords         uint16
	DirectorySize        uint32
	DirectoryOffset      uint32
	Comment              []byte
}

const eocdFixedSize = 22

// FindEndOfCentralDirectory scans haystack from the end toward the
// beginning for the last position at which a complete, self-consistent
// EOCD record fits (fixed header + comment reaching exactly to the end of
// haystack). This tolerates an archive comment that itself contains the
// EOCD signature bytes: the final valid match wins.
//
// offset is the byte offset within haystack where the record begins.
func FindEndOfCentralDirectory(haystack []byte) (eocd EndOfCentralDirectory, offset int, err error) {
	sig := make([]byte, 4)
	binary.LittleEndian.PutUint32(sig, EndOfCentralDirectorySignature)

	for search := haystack; ; {
		idx := bytes.LastIndex(search, sig)
		if idx < 0 {
			return eocd, 0, fmt.Errorf("end of central directory: %w", io.ErrUnexpectedEOF)
		}

		if idx+eocdFixedSize > len(haystack) {
			search = haystack[:idx]
			continue
		}

		rec, perr := unmarshalEOCD(haystack[idx : idx+eocdFixedSize])
		if perr != nil {
			search = haystack[:idx]
			continue
		}

		commentStart := idx + eocdFixedSize
		commentEnd := commentStart + int(rec.commentLength)
		if commentEnd != len(haystack) {
			search = haystack[:idx]
			continue
		}

		rec.eocd.Comment = bytes.Clone(haystack[commentStart:commentEnd])
		return rec.eocd, idx, nil
	}
}

type eocdFixed struct {
	eocd          EndOfCentralDirectory
	commentLength uint16
}

func unmarshalEOCD(b []byte) (eocdFixed, error) {
	if len(b) < eocdFixedSize {
		return eocdFixed{}, io.ErrUnexpectedEOF
	}

	data := &struct {
		Signature       uint32
		DiskNumber      uint16
		DirectoryDisk   uint16
		DiskRecords     uint16
		TotalRecords    uint16
		DirectorySize   uint32
		DirectoryOffset uint32
		CommentLength   uint16
	}{}

	if err := binary.Read(bytes.NewReader(b), binary.LittleEndian, data); err != nil {
		return eocdFixed{}, fmt.Errorf("unmarshal error: %w", err)
	}
	if data.Signature != EndOfCentralDirectorySignature {
		return eocdFixed{}, fmt.Errorf("mismatched signature 0x%x", data.Signature)
	}

	return eocdFixed{
		eocd: EndOfCentralDirectory{
			DiskNumber:      data.DiskNumber,
			DirectoryDisk:   data.DirectoryDisk,
			DiskRecords:     data.DiskRecords,
			TotalRecords:    data.TotalRecords,
			DirectorySize:   data.DirectorySize,
			DirectoryOffset: data.DirectoryOffset,
		},
		commentLength: data.CommentLength,
	}, nil
}
