/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package buffer implements the fixed-capacity mutable byte region the rest
// of the reactor is built on: a position/limit/capacity triple that flips
// between an appending phase and a reading phase, mirroring java.nio.ByteBuffer
// semantics so the net buffer and scatter builder above it can reuse the same
// storage across alternating write/read cycles without copying.
package buffer

import "errors"

var (
	// ErrOverflow is returned when a write would exceed the limit.
	ErrOverflow = errors.New("buffer: capacity exceeded")
)

// Kind hints the I/O backend about the buffer's backing storage. Both kinds
// behave identically in this package; Direct exists so the connection layer
// can prefer handing direct buffers straight to a syscall without staging
// them through a second copy, mirroring the NIO heap/direct distinction.
type Kind uint8

const (
	Heap Kind = iota
	Direct
)

// Buffer is a fixed-capacity byte region with NIO-style position/limit.
//
// While appending, position is the write cursor and limit equals capacity.
// After Flip, position becomes the read cursor and limit is the end of
// valid data written so far. Clear resets to the appending phase.
type Buffer struct {
	kind   Kind
	data   []byte
	pos    int
	limit  int
	cap    int
}

// New allocates a Buffer with the given capacity, ready for appending.
func New(capacity int, kind Kind) *Buffer {
	return &Buffer{
		kind:  kind,
		data:  make([]byte, capacity),
		pos:   0,
		limit: capacity,
		cap:   capacity,
	}
}

// Kind returns the buffer's backing-storage hint.
func (b *Buffer) Kind() Kind { return b.kind }

// Capacity returns the buffer's fixed total size.
func (b *Buffer) Capacity() int { return b.cap }

// Position returns the current cursor (write cursor while appending, read
// cursor after Flip).
func (b *Buffer) Position() int { return b.pos }

// SetPosition moves the cursor; it must stay within [0, limit].
func (b *Buffer) SetPosition(p int) {
	if p < 0 {
		p = 0
	}
	if p > b.limit {
		p = b.limit
	}
	b.pos = p
}

// Limit returns the current limit (capacity while appending, end of valid
// data after Flip).
func (b *Buffer) Limit() int { return b.limit }

// SetLimit moves the limit; it must stay within [0, capacity]. If position
// is now beyond the new limit, position is clamped down to it.
func (b *Buffer) SetLimit(l int) {
	if l < 0 {
		l = 0
	}
	if l > b.cap {
		l = b.cap
	}
	b.limit = l
	if b.pos > b.limit {
		b.pos = b.limit
	}
}

// Remaining returns limit - position: bytes left to append (before Flip)
// or bytes left to read (after Flip).
func (b *Buffer) Remaining() int { return b.limit - b.pos }

// HasRemaining reports whether Remaining() > 0.
func (b *Buffer) HasRemaining() bool { return b.pos < b.limit }

// Flip switches the buffer from appending to reading: limit becomes the
// current position (the end of valid data), and position resets to zero.
func (b *Buffer) Flip() {
	b.limit = b.pos
	b.pos = 0
}

// Clear resets the buffer to a fresh appending phase; previously written
// bytes are considered gone (not zeroed, just out of the valid window).
func (b *Buffer) Clear() {
	b.pos = 0
	b.limit = b.cap
}

// Reset returns the buffer to its defined zero state (the fresh appending
// phase), satisfying pool.Entry so a *Buffer can be drawn from and returned
// to a pool.Pool.
func (b *Buffer) Reset() {
	b.Clear()
}

// Compact moves any unread bytes (between position and limit) to the front
// and switches back to appending with position set just past them. Used
// after a partial read to preserve a trailing fragment.
func (b *Buffer) Compact() {
	n := copy(b.data[0:], b.data[b.pos:b.limit])
	b.pos = n
	b.limit = b.cap
}

// Bytes returns the valid window [position, limit) without copying. Callers
// must not retain the slice past the next mutating call.
func (b *Buffer) Bytes() []byte { return b.data[b.pos:b.limit] }

// Raw returns the whole backing array, for I/O backends that need to slice
// it themselves (e.g. reading into [position:capacity)).
func (b *Buffer) Raw() []byte { return b.data }

// Put appends p at the current position, advancing it. Returns
// ErrOverflow if p would not fit before limit; on overflow it copies as
// much as fits and returns the written count alongside the error.
func (b *Buffer) Put(p []byte) (int, error) {
	n := copy(b.data[b.pos:b.limit], p)
	b.pos += n
	if n < len(p) {
		return n, ErrOverflow
	}
	return n, nil
}

// Get reads up to len(p) bytes from the current read position into p,
// advancing position. Returns the number of bytes copied.
func (b *Buffer) Get(p []byte) int {
	n := copy(p, b.data[b.pos:b.limit])
	b.pos += n
	return n
}

// Resize grows or shrinks the backing array to newCap. If preserve is true
// the valid window [position,limit) is copied into the new array at
// position 0, position is reset to 0 and limit to the window's length, so
// the copied bytes stay in their reading phase (the "safe" resize
// of the net buffer above this layer); otherwise the buffer must be empty
// (position == 0 while appending) and the caller gets a fresh array (the
// "unsafe" resize).
func (b *Buffer) Resize(newCap int, preserve bool) {
	nd := make([]byte, newCap)
	if preserve {
		n := copy(nd, b.data[b.pos:b.limit])
		b.data = nd
		b.cap = newCap
		b.pos = 0
		b.limit = n
		return
	}
	b.data = nd
	b.cap = newCap
	b.pos = 0
	b.limit = newCap
}
