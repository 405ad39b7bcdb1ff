package fsm

import (
	"errors"
	"fmt"
	"io"

	"github.com/trifectatechfoundation/ziplinter/buffer"
	"github.com/trifectatechfoundation/ziplinter/parse"
	"github.com/trifectatechfoundation/ziplinter/ranges"
	"github.com/trifectatechfoundation/ziplinter/zerr"
)

// Archive is the fully parsed archive-level view: the end of central
// directory record, the optional zip64 locator and record, every central
// directory header, the normalized entries derived from them, and the
// byte ranges the machine recognized along the way.
type Archive struct {
	Size             uint64
	Eocd             parse.EndOfCentralDirectory
	Eocd64           *parse.Zip64EndOfCentralDirectory
	Locator          *parse.Zip64Locator
	GlobalOffset     uint64
	DirectoryHeaders []parse.CentralDirectoryHeader
	Entries          []parse.Entry
	Comment          string
	Encoding         parse.Encoding
	ParsedRanges     *ranges.Ranges
}

// maxEocdHaystack bounds the backward scan window: a 22-byte fixed record
// plus the maximum 65535-byte comment.
const maxEocdHaystack = 22 + 65535

type archiveState int

const (
	stateReadEocd archiveState = iota
	stateReadEocd64Locator
	stateReadEocd64
	stateReadCentralDirectory
	stateDone
)

// ArchiveFsm locates EOCD, optionally EOCD64, and walks the central
// directory to produce an Archive.
type ArchiveFsm struct {
	size  uint64
	state archiveState
	buf   *buffer.Buffer
	pr    *ranges.Ranges

	haystackSize uint64

	eocd       parse.EndOfCentralDirectory
	eocdOffset uint64
	eocd64     *parse.Zip64EndOfCentralDirectory
	eocd64Off  uint64
	locator    *parse.Zip64Locator

	// globalOffset is the length of any implicit file prefix (e.g. a
	// self-extracting stub) preceding the archive proper; every offset
	// declared inside the archive's records is relative to it.
	globalOffset uint64

	headers       []parse.CentralDirectoryHeader
	currentOffset uint64
}

// NewArchiveFsm returns a machine ready to locate and parse the central
// directory of a file of the given total size.
func NewArchiveFsm(size uint64) *ArchiveFsm {
	haystackSize := size
	if haystackSize > maxEocdHaystack {
		haystackSize = maxEocdHaystack
	}
	return &ArchiveFsm{
		size:         size,
		state:        stateReadEocd,
		buf:          buffer.NewWithCapacity(256 * 1024),
		pr:           ranges.New(),
		haystackSize: haystackSize,
	}
}

// WantsRead reports the file offset this machine needs data from next.
// Each state anchors its reads at a fixed base offset; ReadOffset accounts
// for the bytes already filled since the state was entered, so repeated
// partial reads never overlap.
func (a *ArchiveFsm) WantsRead() WantsRead {
	switch a.state {
	case stateReadEocd:
		return WantsRead{Offset: a.buf.ReadOffset(a.size - a.haystackSize), HasOffset: true}
	case stateReadEocd64Locator:
		return WantsRead{Offset: a.buf.ReadOffset(a.eocdOffset - 20), HasOffset: true}
	case stateReadEocd64:
		return WantsRead{Offset: a.buf.ReadOffset(a.eocd64Off), HasOffset: true}
	case stateReadCentralDirectory:
		return WantsRead{Offset: a.buf.ReadOffset(a.directoryOffset()), HasOffset: true}
	default:
		return WantsRead{}
	}
}

// Space returns the writable tail of the internal buffer for the caller to
// fill via I/O, first reclaiming consumed space (or growing the buffer when
// a single record is larger than the current capacity) so it is never
// empty for a non-terminal machine.
func (a *ArchiveFsm) Space() []byte {
	if a.buf.AvailableSpace() == 0 {
		a.buf.Shift()
		if a.buf.AvailableSpace() == 0 {
			a.buf.Grow(2 * a.buf.Capacity())
		}
	}
	return a.buf.Space()
}

// Fill records that n bytes were written into Space().
func (a *ArchiveFsm) Fill(n int) {
	a.buf.Fill(n)
}

func (a *ArchiveFsm) directoryOffset() uint64 {
	if a.eocd64 != nil {
		return a.globalOffset + a.eocd64.DirectoryOffset
	}
	return a.globalOffset + uint64(a.eocd.DirectoryOffset)
}

func (a *ArchiveFsm) directorySize() uint64 {
	if a.eocd64 != nil {
		return a.eocd64.DirectorySize
	}
	return uint64(a.eocd.DirectorySize)
}

// enterCentralDirectory computes the implicit file prefix length before the
// walk begins: when the central directory's declared end falls short of
// where the EOCD (or zip64 EOCD) record actually sits, everything declared
// inside the archive is shifted forward by the difference.
func (a *ArchiveFsm) enterCentralDirectory() {
	dirEnd := a.eocdOffset
	if a.eocd64 != nil {
		dirEnd = a.eocd64Off
	}
	declaredEnd := a.directoryOffset() + a.directorySize()
	if dirEnd > declaredEnd {
		a.globalOffset = dirEnd - declaredEnd
	}
	a.state = stateReadCentralDirectory
	a.buf.Reset()
}

func (a *ArchiveFsm) directoryRecords() uint64 {
	if a.eocd64 != nil {
		return a.eocd64.TotalRecords
	}
	return uint64(a.eocd.TotalRecords)
}

// Process drives the machine one step. It may be called repeatedly with no
// new data filled in between (e.g. to finish parsing data already
// buffered); callers should stop calling once it returns a Done result or
// an error.
func (a *ArchiveFsm) Process() (Result[*Archive], error) {
	switch a.state {
	case stateReadEocd:
		return a.processReadEocd()
	case stateReadEocd64Locator:
		return a.processReadEocd64Locator()
	case stateReadEocd64:
		return a.processReadEocd64()
	case stateReadCentralDirectory:
		return a.processReadCentralDirectory()
	default:
		return Result[*Archive]{}, fmt.Errorf("process called on terminal archive fsm")
	}
}

func (a *ArchiveFsm) processReadEocd() (Result[*Archive], error) {
	// The backward scan validates a candidate record by checking that its
	// declared comment reaches exactly to end-of-file, so it must see the
	// entire haystack: scanning a partial fill could match a red herring
	// whose comment length happens to land on the current fill boundary.
	if a.buf.ReadBytes() < a.haystackSize {
		return Result[*Archive]{}, nil
	}

	eocd, offset, err := parse.FindEndOfCentralDirectory(a.buf.Data())
	if err != nil {
		return Result[*Archive]{}, zerr.NewFormatError(zerr.DirectoryEndSignatureNotFound, err)
	}

	fileOffset := a.size - a.haystackSize + uint64(offset)
	a.eocd = eocd
	a.eocdOffset = fileOffset
	a.pr.InsertOffsetLength(fileOffset, uint64(22+len(eocd.Comment)), ranges.EndOfCentralDirectory, "")

	if fileOffset >= 20 {
		a.state = stateReadEocd64Locator
		a.buf.Reset()
		return Result[*Archive]{}, nil
	}

	a.enterCentralDirectory()
	return Result[*Archive]{}, nil
}

func (a *ArchiveFsm) processReadEocd64Locator() (Result[*Archive], error) {
	data := a.buf.Data()
	if len(data) < 20 {
		return Result[*Archive]{}, nil
	}

	loc, err := parse.UnmarshalZip64Locator(data[:20])
	if err != nil {
		// legitimately absent: fall back to the 32-bit interpretation.
		//
		// TODO: should an archive with a valid EOCD but a corrupt EOCD64
		// locator instead fall back here, vs. only treating a clean
		// signature mismatch as "absent"? Current behavior treats any
		// locator parse failure as absence. Keep this asymmetry unless
		// test fixtures disagree; left undecided.
		a.enterCentralDirectory()
		return Result[*Archive]{}, nil
	}

	a.locator = &loc
	a.pr.Insert(a.eocdOffset-20, a.eocdOffset, ranges.Zip64EndOfDirectoryLocator, "")
	a.eocd64Off = loc.DirectoryOffset
	a.state = stateReadEocd64
	a.buf.Reset()
	return Result[*Archive]{}, nil
}

func (a *ArchiveFsm) processReadEocd64() (Result[*Archive], error) {
	rec, consumed, err := parse.UnmarshalZip64EndOfCentralDirectory(a.buf.Data())
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Result[*Archive]{}, nil
		}
		return Result[*Archive]{}, zerr.NewFormatError(zerr.Directory64EndRecordInvalid, err)
	}

	a.eocd64 = &rec
	a.pr.Insert(a.eocd64Off, a.eocd64Off+uint64(consumed), ranges.Zip64EndOfCentralDirectory, "")
	a.enterCentralDirectory()
	return Result[*Archive]{}, nil
}

func (a *ArchiveFsm) processReadCentralDirectory() (Result[*Archive], error) {
	for {
		data := a.buf.Data()
		if len(data) < 4 {
			return Result[*Archive]{}, nil
		}
		sig := uint32(data[0]) | uint32(data[1])<<8 | uint32(data[2])<<16 | uint32(data[3])<<24
		if sig != parse.CentralDirectorySignature {
			break
		}

		hdr, consumed, err := parse.UnmarshalCentralDirectoryHeader(data)
		if err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) {
				return Result[*Archive]{}, nil
			}
			return Result[*Archive]{}, zerr.NewFormatError(zerr.InvalidCentralRecord, err)
		}

		headerOffset := a.directoryOffset() + a.currentOffset
		name := string(hdr.NameRaw)
		a.pr.Insert(headerOffset, headerOffset+uint64(consumed), ranges.CentralDirectoryHeader, name)

		a.headers = append(a.headers, hdr)
		a.buf.Consume(consumed)
		a.currentOffset += uint64(consumed)
	}

	return a.finish()
}

func (a *ArchiveFsm) finish() (Result[*Archive], error) {
	// 16-bit comparison tolerates entry-count wraparound on non-zip64
	// archives with >= 65536 entries.
	//
	// TODO: this could optionally be tightened to a full 64-bit
	// comparison when the archive is zip64, rather than tolerating
	// wraparound in that case too. Left undecided; the lenient check is
	// kept for both cases for now.
	if uint16(len(a.headers)) != uint16(a.directoryRecords()) {
		return Result[*Archive]{}, zerr.NewComparisonError(zerr.InvalidCentralRecord, a.directoryRecords(), uint64(len(a.headers)))
	}

	archive := &Archive{
		Size:             a.size,
		Eocd:             a.eocd,
		Eocd64:           a.eocd64,
		Locator:          a.locator,
		GlobalOffset:     a.globalOffset,
		DirectoryHeaders: a.headers,
		ParsedRanges:     a.pr,
	}

	archive.Encoding = a.detectEncoding()

	comment, err := parse.Decode(a.eocd.Comment, archive.Encoding)
	if err != nil {
		comment = string(a.eocd.Comment)
	}
	archive.Comment = comment

	archive.Entries = make([]parse.Entry, 0, len(a.headers))
	for _, h := range a.headers {
		name, err := parse.Decode(h.NameRaw, archive.Encoding)
		if err != nil {
			name = string(h.NameRaw)
		}
		comment, err := parse.Decode(h.CommentRaw, archive.Encoding)
		if err != nil {
			comment = string(h.CommentRaw)
		}
		entry := parse.EntryFromCentralDirectoryHeader(h, name, comment)
		entry.HeaderOffset += a.globalOffset
		archive.Entries = append(archive.Entries, entry)
	}

	a.state = stateDone
	return Result[*Archive]{Done: true, Payload: archive}, nil
}

func (a *ArchiveFsm) detectEncoding() parse.Encoding {
	allUtf8 := true
	for _, h := range a.headers {
		if !h.IsUtf8() {
			allUtf8 = false
			break
		}
	}
	if allUtf8 {
		return parse.Utf8
	}

	// Only the directory headers' name/comment bytes feed detection; the
	// archive-level comment is decoded with the chosen encoding afterward
	// but never influences the choice.
	var samples [][]byte
	for _, h := range a.headers {
		if h.IsUtf8() {
			continue
		}
		samples = append(samples, h.NameRaw, h.CommentRaw)
	}

	return parse.DetectEncoding(samples)
}
