// Package ranges implements the append-only forensic journal of byte ranges
// recognized while parsing a ZIP archive.
package ranges

// Kind names the category of data a Range covers.
type Kind string

const (
	EndOfCentralDirectory      Kind = "end of central directory record"
	Zip64EndOfDirectoryLocator Kind = "zip64 end of central directory locator"
	Zip64EndOfCentralDirectory Kind = "zip64 end of central directory record"
	CentralDirectoryHeader     Kind = "central directory header"
	LocalFileHeader            Kind = "local file header"
	FileData                   Kind = "file data"
	DataDescriptor             Kind = "data descriptor"
)

// Range is a single half-open byte interval [Start, End) tagged with the
// kind of record that was parsed there.
type Range struct {
	Start       uint64 `json:"start"`
	End         uint64 `json:"end"`
	Contains    Kind   `json:"kind"`
	Description string `json:"description,omitempty"`
}

// Ranges is the ordered, append-only journal. Zero value is ready to use.
//
// Insertion order is parse order; there is no coalescing or de-duplication
// and no range-query support, matching the original journal's contract.
type Ranges struct {
	entries []Range
}

// New returns an empty journal.
func New() *Ranges {
	return &Ranges{}
}

// Insert records the half-open interval [start,end) as containing data of
// the given kind, with an optional description (typically an entry name).
func (r *Ranges) Insert(start, end uint64, contains Kind, description string) {
	r.entries = append(r.entries, Range{Start: start, End: end, Contains: contains, Description: description})
}

// InsertOffsetLength is a convenience wrapper around Insert for callers that
// track offset+length rather than [start,end).
func (r *Ranges) InsertOffsetLength(offset, length uint64, contains Kind, description string) {
	r.Insert(offset, offset+length, contains, description)
}

// Append moves every entry of other onto the end of r, in order, leaving
// other empty. Used to merge a per-entry FSM's journal back into the
// archive-level journal.
func (r *Ranges) Append(other *Ranges) {
	if other == nil {
		return
	}
	r.entries = append(r.entries, other.entries...)
	other.entries = nil
}

// All returns the journal contents in insertion order. The returned slice
// must not be mutated by the caller.
func (r *Ranges) All() []Range {
	return r.entries
}

// Len returns the number of recorded ranges.
func (r *Ranges) Len() int {
	return len(r.entries)
}
