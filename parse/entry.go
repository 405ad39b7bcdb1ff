package parse

import "time"

// Entry is the normalized per-file record, always carrying 64-bit sizes
// regardless of how they were encoded on the wire.
type Entry struct {
	Name             string
	Comment          string
	Modified         time.Time
	Created          *time.Time
	Accessed         *time.Time
	Uid              *uint32
	Gid              *uint32
	Method           Method
	CRC32            uint32
	CompressedSize   uint64
	UncompressedSize uint64
	HeaderOffset     uint64
	Mode             uint32
	Aex              *AexExtra
}

// EntryFromCentralDirectoryHeader builds the normalized Entry from a raw
// central directory record and its decoded name/comment, widening sizes
// and offset per the zip64 extra field when the 32-bit fields carry the
// sentinel value.
func EntryFromCentralDirectoryHeader(h CentralDirectoryHeader, name, comment string) Entry {
	needU := h.UncompressedSize == 0xFFFFFFFF
	needC := h.CompressedSize == 0xFFFFFFFF
	needO := h.HeaderOffset == 0xFFFFFFFF
	needD := h.DiskNumber == 0xFFFF

	extra := ParseExtraFields(h.ExtraRaw, needU, needC, needO, needD)

	e := Entry{
		Name:             name,
		Comment:          comment,
		Modified:         MsDosTimeToTime(h.ModifiedDate, h.ModifiedTime),
		Method:           h.Method,
		CRC32:            h.CRC32,
		CompressedSize:   uint64(h.CompressedSize),
		UncompressedSize: uint64(h.UncompressedSize),
		HeaderOffset:     uint64(h.HeaderOffset),
		Mode:             h.ExternalAttrs,
		Aex:              extra.Aex,
	}

	if extra.Zip64 != nil {
		if extra.Zip64.UncompressedSize != nil {
			e.UncompressedSize = *extra.Zip64.UncompressedSize
		}
		if extra.Zip64.CompressedSize != nil {
			e.CompressedSize = *extra.Zip64.CompressedSize
		}
		if extra.Zip64.HeaderOffset != nil {
			e.HeaderOffset = *extra.Zip64.HeaderOffset
		}
	}

	if extra.Timestamps.Modified != nil {
		e.Modified = *extra.Timestamps.Modified
	}
	e.Created = extra.Timestamps.Created
	e.Accessed = extra.Timestamps.Accessed

	if extra.Owner != nil {
		uid, gid := extra.Owner.Uid, extra.Owner.Gid
		e.Uid, e.Gid = &uid, &gid
	}

	return e
}
