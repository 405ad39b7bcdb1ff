package parse

import (
	"encoding/binary"
	"time"
)

// Zip64Extra widens the 32-bit sentinel fields of a local or central
// header using the zip64 extra field (id 0x0001). Fields are present only
// when the corresponding fixed-size field was 0xFFFFFFFF; APPNOTE orders
// them uncompressed-size, compressed-size, header-offset, disk-number.
type Zip64Extra struct {
	UncompressedSize *uint64
	CompressedSize   *uint64
	HeaderOffset     *uint64
	DiskNumber       *uint32
}

// AexExtra is the WinZip AES extension extra field (id 0x9901).
type AexExtra struct {
	VersionNeeded  uint16
	VendorID       [2]byte
	Mode           uint8
	OriginalMethod Method
}

// Timestamps aggregates the decoded modified/created/accessed times found
// across a header's extra fields, whichever of NTFS (id 0x000a) or
// Info-ZIP extended timestamp (id 0x5455) was present. A nil field means
// no extra field supplied that timestamp.
type Timestamps struct {
	Modified *time.Time
	Accessed *time.Time
	Created  *time.Time
}

// UnixOwner is the uid/gid pair from an Info-ZIP Unix extra field (id
// 0x7875 "ux", or the legacy 0x000d/0x5855 form carrying them at a fixed
// offset).
type UnixOwner struct {
	Uid uint32
	Gid uint32
}

// ExtraFields is every piece of structured data this engine extracts from
// a header's raw extra field block.
type ExtraFields struct {
	Zip64      *Zip64Extra
	Aex        *AexExtra
	Timestamps Timestamps
	Owner      *UnixOwner
}

// ParseExtraFields walks the id/size-prefixed sequence of extra field
// records in raw and extracts the ones this engine understands. Unknown
// ids are skipped. The four need* flags select which of the (optional)
// zip64 subfields are present, per APPNOTE's "only present if the corresponding
// fixed field is 0xFFFFFFFF/0xFFFF" rule.
func ParseExtraFields(raw []byte, needUncompressedSize, needCompressedSize, needHeaderOffset, needDiskNumber bool) ExtraFields {
	var out ExtraFields

	for len(raw) >= 4 {
		id := binary.LittleEndian.Uint16(raw[0:2])
		size := int(binary.LittleEndian.Uint16(raw[2:4]))
		if len(raw) < 4+size {
			break
		}
		payload := raw[4 : 4+size]

		switch id {
		case extraZip64:
			out.Zip64 = parseZip64Extra(payload, needUncompressedSize, needCompressedSize, needHeaderOffset, needDiskNumber)
		case extraAex:
			if a := parseAexExtra(payload); a != nil {
				out.Aex = a
			}
		case extraNtfs:
			parseNtfsExtra(payload, &out.Timestamps)
		case extraInfoZipUT:
			parseExtendedTimestamp(payload, &out.Timestamps)
		case extraInfoZipUX:
			out.Owner = parseInfoZipUX(payload)
		case extraUnix, extraUnixLegacy:
			if o := parseLegacyUnix(payload); o != nil {
				out.Owner = o
			}
		}

		raw = raw[4+size:]
	}

	return out
}

func parseZip64Extra(b []byte, needUncompressedSize, needCompressedSize, needHeaderOffset, needDiskNumber bool) *Zip64Extra {
	z := &Zip64Extra{}
	off := 0
	read64 := func() (uint64, bool) {
		if off+8 > len(b) {
			return 0, false
		}
		v := binary.LittleEndian.Uint64(b[off : off+8])
		off += 8
		return v, true
	}
	if needUncompressedSize {
		if v, ok := read64(); ok {
			z.UncompressedSize = &v
		}
	}
	if needCompressedSize {
		if v, ok := read64(); ok {
			z.CompressedSize = &v
		}
	}
	if needHeaderOffset {
		if v, ok := read64(); ok {
			z.HeaderOffset = &v
		}
	}
	if needDiskNumber {
		if off+4 <= len(b) {
			v := binary.LittleEndian.Uint32(b[off : off+4])
			z.DiskNumber = &v
		}
	}
	return z
}

func parseAexExtra(b []byte) *AexExtra {
	if len(b) < 7 {
		return nil
	}
	return &AexExtra{
		VersionNeeded:  binary.LittleEndian.Uint16(b[0:2]),
		VendorID:       [2]byte{b[2], b[3]},
		Mode:           b[4],
		OriginalMethod: Method(binary.LittleEndian.Uint16(b[5:7])),
	}
}

// windowsEpoch is 1601-01-01 UTC, the FILETIME epoch.
var windowsEpoch = time.Date(1601, 1, 1, 0, 0, 0, 0, time.UTC)

func parseNtfsExtra(b []byte, ts *Timestamps) {
	// reserved(4) then a sequence of tag(2) size(2) payload tagged
	// subfields; tag 1 carries modified/accessed/created FILETIMEs.
	if len(b) < 4 {
		return
	}
	b = b[4:]
	for len(b) >= 4 {
		tag := binary.LittleEndian.Uint16(b[0:2])
		size := int(binary.LittleEndian.Uint16(b[2:4]))
		if len(b) < 4+size {
			return
		}
		payload := b[4 : 4+size]
		if tag == 1 && len(payload) >= 24 {
			m := filetimeToTime(binary.LittleEndian.Uint64(payload[0:8]))
			a := filetimeToTime(binary.LittleEndian.Uint64(payload[8:16]))
			c := filetimeToTime(binary.LittleEndian.Uint64(payload[16:24]))
			ts.Modified = &m
			ts.Accessed = &a
			ts.Created = &c
		}
		b = b[4+size:]
	}
}

func filetimeToTime(ticks uint64) time.Time {
	// A time.Duration spans only ~292 years, less than the distance from the
	// FILETIME epoch to any modern date, so convert via whole seconds.
	const ticksPerSecond = 10_000_000
	sec := windowsEpoch.Unix() + int64(ticks/ticksPerSecond)
	nsec := int64(ticks%ticksPerSecond) * 100
	return time.Unix(sec, nsec).UTC()
}

func parseExtendedTimestamp(b []byte, ts *Timestamps) {
	if len(b) < 1 {
		return
	}
	flags := b[0]
	b = b[1:]
	read := func() (time.Time, bool) {
		if len(b) < 4 {
			return time.Time{}, false
		}
		sec := int64(int32(binary.LittleEndian.Uint32(b[0:4])))
		b = b[4:]
		return time.Unix(sec, 0).UTC(), true
	}
	if flags&0x1 != 0 {
		if t, ok := read(); ok {
			ts.Modified = &t
		}
	}
	if flags&0x2 != 0 {
		if t, ok := read(); ok {
			ts.Accessed = &t
		}
	}
	if flags&0x4 != 0 {
		if t, ok := read(); ok {
			ts.Created = &t
		}
	}
}

func parseInfoZipUX(b []byte) *UnixOwner {
	// version(1) uidsize(1) uid(uidsize) gidsize(1) gid(gidsize)
	if len(b) < 2 {
		return nil
	}
	off := 1
	uidSize := int(b[off])
	off++
	if len(b) < off+uidSize+1 {
		return nil
	}
	uid := readLEUint(b[off : off+uidSize])
	off += uidSize
	gidSize := int(b[off])
	off++
	if len(b) < off+gidSize {
		return nil
	}
	gid := readLEUint(b[off : off+gidSize])
	return &UnixOwner{Uid: uint32(uid), Gid: uint32(gid)}
}

func parseLegacyUnix(b []byte) *UnixOwner {
	// atime(4) mtime(4) uid(2) gid(2) [...]; uid/gid sit at offset 8.
	if len(b) < 12 {
		return nil
	}
	return &UnixOwner{
		Uid: uint32(binary.LittleEndian.Uint16(b[8:10])),
		Gid: uint32(binary.LittleEndian.Uint16(b[10:12])),
	}
}

func readLEUint(b []byte) uint64 {
	var v uint64
	for i, c := range b {
		v |= uint64(c) << (8 * i)
	}
	return v
}
