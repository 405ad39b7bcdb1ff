package fsm

import (
	"errors"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/trifectatechfoundation/ziplinter/buffer"
	"github.com/trifectatechfoundation/ziplinter/decompress"
	"github.com/trifectatechfoundation/ziplinter/parse"
	"github.com/trifectatechfoundation/ziplinter/ranges"
	"github.com/trifectatechfoundation/ziplinter/zerr"
)

// EntryOutput is produced when an EntryFsm reaches its terminal state.
type EntryOutput struct {
	LocalHeader parse.LocalFileHeader
	Aex         *decompress.Data
}

// entryBufCapacity matches the archive fsm's internal buffer size; both
// machines share the same I/O loop shape.
const entryBufCapacity = 256 * 1024

type entryState int

const (
	entryStateReadLocalHeader entryState = iota
	entryStateReadData
	entryStateReadDataDescriptor
	entryStateValidate
	entryStateDone
)

// EntryFsm parses one entry's local header, streams its payload through a
// decompressor, parses any trailing data descriptor, and validates size
// and CRC.
type EntryFsm struct {
	entry parse.Entry
	buf   *buffer.Buffer
	pr    *ranges.Ranges
	out   io.Writer
	state entryState

	headerOffset uint64

	localHeader       parse.LocalFileHeader
	hasDataDescriptor bool
	isZip64           bool
	dec               decompress.Decompressor
	hasher            hash32
	compressedBytes   uint64
	uncompressedBytes uint64
	dataStart         uint64

	descriptorStart uint64
	descriptor      parse.DataDescriptor

	aex *decompress.Data
}

type hash32 interface {
	Write(p []byte) (int, error)
	Sum32() uint32
}

// NewEntryFsm returns a machine ready to parse the entry located at
// headerOffset. entry may be the zero value when the caller has not
// already parsed the central directory record for this entry, in which
// case the Entry is derived from the local header alone; otherwise
// supplying the central directory Entry lets Validate compare against its
// authoritative sizes/CRC.
func NewEntryFsm(headerOffset uint64, entry parse.Entry, out io.Writer) *EntryFsm {
	return &EntryFsm{
		entry:        entry,
		headerOffset: headerOffset,
		buf:          buffer.NewWithCapacity(entryBufCapacity),
		pr:           ranges.New(),
		out:          out,
		state:        entryStateReadLocalHeader,
	}
}

// ParsedRanges returns this machine's journal, ready to be merged into the
// archive-level journal.
func (e *EntryFsm) ParsedRanges() *ranges.Ranges {
	return e.pr
}

// WantsRead reports the file offset this machine needs data from next.
// HasOffset is false when no read is required before the next Process call
// — the buffer already holds every compressed byte still owed to the
// decompressor, or all of them have been fed and the machine is only
// draining output.
func (e *EntryFsm) WantsRead() WantsRead {
	switch e.state {
	case entryStateReadLocalHeader:
		return WantsRead{Offset: e.buf.ReadOffset(e.headerOffset), HasOffset: true}
	case entryStateReadData:
		if uint64(e.buf.AvailableData()) >= e.compressedBudget()-e.compressedBytes {
			return WantsRead{}
		}
		return WantsRead{Offset: e.buf.ReadOffset(e.dataStart), HasOffset: true}
	case entryStateReadDataDescriptor:
		return WantsRead{Offset: e.buf.ReadOffset(e.descriptorStart), HasOffset: true}
	default:
		return WantsRead{}
	}
}

// Space returns the writable tail of the internal buffer, first reclaiming
// consumed space (or growing the buffer when a single record is larger
// than the current capacity) so it is never empty for a non-terminal
// machine.
func (e *EntryFsm) Space() []byte {
	if e.buf.AvailableSpace() == 0 {
		e.buf.Shift()
		if e.buf.AvailableSpace() == 0 {
			e.buf.Grow(2 * e.buf.Capacity())
		}
	}
	return e.buf.Space()
}

// Fill records that n bytes were written into Space().
func (e *EntryFsm) Fill(n int) {
	e.buf.Fill(n)
}

// Process drives the machine one step.
func (e *EntryFsm) Process() (Result[*EntryOutput], error) {
	switch e.state {
	case entryStateReadLocalHeader:
		return e.processReadLocalHeader()
	case entryStateReadData:
		return e.processReadData()
	case entryStateReadDataDescriptor:
		return e.processReadDataDescriptor()
	case entryStateValidate:
		return e.processValidate()
	default:
		return Result[*EntryOutput]{}, fmt.Errorf("process called on terminal entry fsm")
	}
}

func (e *EntryFsm) processReadLocalHeader() (Result[*EntryOutput], error) {
	hdr, consumed, err := parse.UnmarshalLocalFileHeader(e.buf.Data())
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Result[*EntryOutput]{}, nil
		}
		return Result[*EntryOutput]{}, zerr.NewFormatError(zerr.InvalidLocalHeader, err)
	}

	name := string(hdr.NameRaw)
	e.pr.Insert(e.headerOffset, e.headerOffset+uint64(consumed), ranges.LocalFileHeader, name)
	e.localHeader = hdr
	e.buf.Consume(consumed)

	if e.entry.Method == 0 && e.entry.Name == "" {
		// no central directory entry was supplied upstream; derive one
		// from the local header alone.
		e.entry = parse.Entry{
			Name:             name,
			Method:           hdr.Method,
			CRC32:            hdr.CRC32,
			CompressedSize:   uint64(hdr.CompressedSize),
			UncompressedSize: uint64(hdr.UncompressedSize),
			HeaderOffset:     e.headerOffset,
			Modified:         parse.MsDosTimeToTime(hdr.ModifiedDate, hdr.ModifiedTime),
		}
	}

	dec, err := decompress.New(e.entry.Method, e.entry.UncompressedSize, e.entry.Aex)
	if err != nil {
		return Result[*EntryOutput]{}, err
	}
	e.dec = dec
	e.hasher = crc32.NewIEEE()

	e.hasDataDescriptor = hdr.HasDataDescriptor()
	e.isZip64 = hdr.IsZip64() || e.entry.UncompressedSize > 0xFFFFFFFE || e.entry.CompressedSize > 0xFFFFFFFE
	e.dataStart = e.headerOffset + uint64(consumed)
	e.state = entryStateReadData
	e.buf.Reset()
	return Result[*EntryOutput]{}, nil
}

// compressedBudget is the number of compressed bytes this entry is known
// to occupy. When a data descriptor is present the local header's own
// size fields are zero, so this comes from the Entry the caller supplied
// at construction (normally the central directory record, already walked
// by ArchiveFsm before any EntryFsm is driven). When the caller supplied
// the zero Entry, the Entry is derived from the local header and this
// budget is the local header's compressed size.
func (e *EntryFsm) compressedBudget() uint64 {
	return e.entry.CompressedSize
}

func (e *EntryFsm) processReadData() (Result[*EntryOutput], error) {
	remaining := e.compressedBudget() - e.compressedBytes
	available := e.buf.Data()

	if remaining > 0 && len(available) == 0 {
		return Result[*EntryOutput]{}, nil
	}

	feedLen := uint64(len(available))
	if feedLen > remaining {
		feedLen = remaining
	}
	hasMoreInput := e.compressedBytes+feedLen < e.compressedBudget()

	outBuf := make([]byte, 32*1024)
	outcome, err := e.dec.Decompress(available[:feedLen], outBuf, hasMoreInput)
	if err != nil {
		return Result[*EntryOutput]{}, err
	}

	e.buf.Consume(outcome.BytesRead)
	e.compressedBytes += uint64(outcome.BytesRead)

	if outcome.BytesWritten > 0 {
		e.hasher.Write(outBuf[:outcome.BytesWritten])
		e.uncompressedBytes += uint64(outcome.BytesWritten)
		if e.out != nil {
			if _, werr := e.out.Write(outBuf[:outcome.BytesWritten]); werr != nil {
				return Result[*EntryOutput]{}, werr
			}
		}
		return Result[*EntryOutput]{}, nil
	}

	// BytesWritten == 0: either every compressed byte has been fed and the
	// decompressor has nothing left to drain, or it legitimately needs
	// more input before it can produce anything.
	if e.compressedBytes == e.compressedBudget() {
		name := e.entry.Name
		e.pr.Insert(e.dataStart, e.dataStart+e.compressedBytes, ranges.FileData, name)

		if aexDec, ok := e.dec.(interface{ AexData() decompress.Data }); ok {
			d := aexDec.AexData()
			e.aex = &d
		}

		if e.hasDataDescriptor {
			e.descriptorStart = e.dataStart + e.compressedBytes
			e.state = entryStateReadDataDescriptor
		} else {
			e.state = entryStateValidate
		}
		e.buf.Reset()
		return Result[*EntryOutput]{}, nil
	}

	// The contract only allows a zero Outcome when hasMoreInput was true
	// (stalling for more compressed bytes). Fed data but got nothing back
	// while also claiming no more input was needed means the decompressor
	// is stuck, which this machine cannot recover from on its own.
	if outcome.BytesRead == 0 && feedLen > 0 && !hasMoreInput {
		return Result[*EntryOutput]{}, zerr.ErrUnexpectedEof
	}

	return Result[*EntryOutput]{}, nil
}

func (e *EntryFsm) processReadDataDescriptor() (Result[*EntryOutput], error) {
	dd, consumed, err := parse.UnmarshalDataDescriptor(e.buf.Data(), e.isZip64)
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Result[*EntryOutput]{}, nil
		}
		return Result[*EntryOutput]{}, zerr.NewFormatError(zerr.InvalidDataDescriptor, err)
	}

	e.pr.Insert(e.descriptorStart, e.descriptorStart+uint64(consumed), ranges.DataDescriptor, "")
	e.descriptor = dd
	e.state = entryStateValidate
	e.buf.Reset()
	return Result[*EntryOutput]{}, nil
}

func (e *EntryFsm) processValidate() (Result[*EntryOutput], error) {
	isAex := e.entry.Aex != nil

	var expectedCrc uint32
	switch {
	case e.entry.CRC32 != 0:
		expectedCrc = e.entry.CRC32
	case e.hasDataDescriptor:
		expectedCrc = e.descriptor.CRC32
	}

	if !isAex {
		if e.entry.UncompressedSize != e.uncompressedBytes {
			return Result[*EntryOutput]{}, zerr.NewComparisonError(zerr.WrongSize, e.entry.UncompressedSize, e.uncompressedBytes)
		}
		actualCrc := e.hasher.Sum32()
		if expectedCrc != 0 && expectedCrc != actualCrc {
			return Result[*EntryOutput]{}, zerr.NewComparisonError(zerr.WrongChecksum, uint64(expectedCrc), uint64(actualCrc))
		}
	}

	e.state = entryStateDone
	return Result[*EntryOutput]{Done: true, Payload: &EntryOutput{
		LocalHeader: e.localHeader,
		Aex:         e.aex,
	}}, nil
}
