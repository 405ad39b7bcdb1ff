// Package fsm implements the two cooperating pushdown state machines that
// form the sans-I/O parsing core: ArchiveFsm locates the end-of-central-
// directory records and walks the central directory; EntryFsm parses one
// entry's local header, streams its payload through a decompressor, and
// validates size and CRC. Neither machine performs I/O: callers drive them
// through a "wants read -> fill buffer -> process" loop.
package fsm

// WantsRead reports what region of the underlying file a machine needs
// filled before its next Process call can make progress. HasOffset is
// false when no read is needed before the next Process call (e.g. during
// EntryFsm's data phase once the buffer holds every compressed byte still
// owed) or when the machine has reached its terminal state.
type WantsRead struct {
	Offset    uint64
	HasOffset bool
}

// Result is returned by Process: either the machine made progress and
// should be driven again (Continue), or it reached its terminal state and
// produced Payload (Done).
type Result[T any] struct {
	Done    bool
	Payload T
}
