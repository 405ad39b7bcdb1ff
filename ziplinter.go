// Package ziplinter provides a blocking, file-based convenience driver
// atop the sans-I/O fsm package: a thin wrapper that drives the
// read/fill loop to completion over an io.ReaderAt.
package ziplinter

import (
	"fmt"
	"io"

	"github.com/trifectatechfoundation/ziplinter/fsm"
	"github.com/trifectatechfoundation/ziplinter/parse"
	"github.com/trifectatechfoundation/ziplinter/ranges"
)

// Archive is the driver-facing result of parsing an archive, re-exported
// from fsm for callers that only need the root package.
type Archive = fsm.Archive

// Entry is the normalized per-file record re-exported from parse.
type Entry = parse.Entry

// ParseFile drives ArchiveFsm to completion over r, which must support
// io.ReaderAt and know its own total size.
func ParseFile(r io.ReaderAt, size int64) (*Archive, error) {
	a := fsm.NewArchiveFsm(uint64(size))

	for {
		result, err := a.Process()
		if err != nil {
			return nil, fmt.Errorf("parse archive error: %w", err)
		}
		if result.Done {
			return result.Payload, nil
		}

		want := a.WantsRead()
		if !want.HasOffset {
			continue
		}

		n, err := r.ReadAt(a.Space(), int64(want.Offset))
		if n == 0 {
			if err != nil {
				return nil, fmt.Errorf("parse archive error: %w", err)
			}
			return nil, fmt.Errorf("parse archive error: no data available at offset %d", want.Offset)
		}
		a.Fill(n)
	}
}

// ExtractedEntry pairs an Entry with the local header and optional AE-x
// side data observed while extracting it.
type ExtractedEntry struct {
	Entry       Entry
	Output      *fsm.EntryOutput
	ParsedRanges *ranges.Ranges
}

// ExtractEntry drives EntryFsm to completion for the given entry, writing
// decompressed bytes to dst.
func ExtractEntry(r io.ReaderAt, entry Entry, dst io.Writer) (*ExtractedEntry, error) {
	e := fsm.NewEntryFsm(entry.HeaderOffset, entry, dst)

	for {
		result, err := e.Process()
		if err != nil {
			return nil, fmt.Errorf("extract entry %q error: %w", entry.Name, err)
		}
		if result.Done {
			return &ExtractedEntry{Entry: entry, Output: result.Payload, ParsedRanges: e.ParsedRanges()}, nil
		}

		want := e.WantsRead()
		if !want.HasOffset {
			continue
		}

		n, rerr := r.ReadAt(e.Space(), int64(want.Offset))
		if n == 0 {
			if rerr != nil {
				return nil, fmt.Errorf("extract entry %q error: %w", entry.Name, rerr)
			}
			return nil, fmt.Errorf("extract entry %q error: no data available at offset %d", entry.Name, want.Offset)
		}
		e.Fill(n)
	}
}
