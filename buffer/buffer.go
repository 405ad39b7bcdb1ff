// Package buffer implements the ring-style byte reservoir shared by the
// archive and entry state machines: a contiguous container exposing a
// data view, write space, fill/consume/shift operations, and a persistent
// "bytes read since reset" counter used to translate buffer offsets back
// into file offsets.
package buffer

import "github.com/valyala/bytebufferpool"

// Buffer is a contiguous byte container whose capacity is set at
// construction and changes only through Grow. position is the offset of the first unread byte, end is
// one past the last written byte, and readBytes accumulates the total
// number of bytes ever filled since the last Reset.
//
// Invariant: position <= end <= capacity.
type Buffer struct {
	buf       *bytebufferpool.ByteBuffer
	capacity  int
	position  int
	end       int
	readBytes uint64
}

var pool bytebufferpool.Pool

// NewWithCapacity returns a new Buffer backed by a pooled byte slice of the
// given capacity.
func NewWithCapacity(capacity int) *Buffer {
	bb := pool.Get()
	if cap(bb.B) < capacity {
		bb.B = append(bb.B[:0], make([]byte, capacity)...)
	}
	bb.B = bb.B[:capacity]
	return &Buffer{buf: bb, capacity: capacity}
}

// Release returns the backing storage to the pool. The Buffer must not be
// used afterward.
func (b *Buffer) Release() {
	if b.buf != nil {
		pool.Put(b.buf)
		b.buf = nil
	}
}

// Data returns the unread bytes, [position, end).
func (b *Buffer) Data() []byte {
	return b.buf.B[b.position:b.end]
}

// Space returns the writable tail of the buffer, [end, capacity). Callers
// fill bytes here then call Fill to record how many were written.
func (b *Buffer) Space() []byte {
	return b.buf.B[b.end:b.capacity]
}

// AvailableData reports len(Data()).
func (b *Buffer) AvailableData() int {
	return b.end - b.position
}

// AvailableSpace reports len(Space()).
func (b *Buffer) AvailableSpace() int {
	return b.capacity - b.end
}

// Fill records that n bytes were written into Space(), advancing end and
// the cumulative read counter.
func (b *Buffer) Fill(n int) {
	b.end += n
	b.readBytes += uint64(n)
}

// Consume advances position by n, discarding n bytes from the front of
// Data().
func (b *Buffer) Consume(n int) {
	b.position += n
}

// Shift moves the unread region down to offset 0, reclaiming space at the
// tail. Call this when Space() is empty but position > 0.
func (b *Buffer) Shift() {
	if b.position == 0 {
		return
	}
	n := copy(b.buf.B[:b.capacity], b.buf.B[b.position:b.end])
	b.position = 0
	b.end = n
}

// Reset zeroes position, end, and the cumulative read counter, discarding
// any unread data.
func (b *Buffer) Reset() {
	b.position = 0
	b.end = 0
	b.readBytes = 0
}

// ReadBytes returns the total number of bytes filled since the last Reset.
func (b *Buffer) ReadBytes() uint64 {
	return b.readBytes
}

// ReadOffset translates a target file offset into a reservation-relative
// request offset, accounting for bytes already absorbed since the last
// Reset.
func (b *Buffer) ReadOffset(fileOffset uint64) uint64 {
	return fileOffset + b.readBytes
}

// Grow replaces the backing storage with a larger one of at least
// newCapacity bytes, preserving unread data and its offsets.
func (b *Buffer) Grow(newCapacity int) {
	if newCapacity <= b.capacity {
		return
	}
	grown := pool.Get()
	grown.B = append(grown.B[:0], make([]byte, newCapacity)...)
	n := copy(grown.B, b.buf.B[b.position:b.end])
	pool.Put(b.buf)
	b.buf = grown
	b.end = n
	b.position = 0
	b.capacity = newCapacity
}

// Capacity returns the fixed construction-time capacity (or the capacity
// after the last Grow).
func (b *Buffer) Capacity() int {
	return b.capacity
}
