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

// Package netbuf wraps a buffer.Buffer with a persistent "start of unread
// data" cursor, so the same storage can alternate append and drain phases
// without losing a partial record mid-parse: exactly what the TLS record
// pump and the HTTP line parser both need when a read delivers less than a
// full unit of work.
package netbuf

import "github.com/nabbar/reactor-httpd/buffer"

// Buffer tracks an unread window [start, end) over an underlying
// buffer.Buffer across alternating append/read phases.
//
// Invariant: start <= read-cursor <= end-of-valid-data <= capacity.
type Buffer struct {
	b     *buffer.Buffer
	start int
}

// New wraps a fresh buffer.Buffer of the given capacity.
func New(capacity int, kind buffer.Kind) *Buffer {
	return &Buffer{b: buffer.New(capacity, kind)}
}

// Wrap adopts an existing buffer.Buffer (assumed to be in the appending
// phase, empty).
func Wrap(b *buffer.Buffer) *Buffer {
	return &Buffer{b: b}
}

// Raw exposes the underlying buffer, for callers that need the lower-level
// Put/Get/Resize primitives directly (the reactor's raw recv/send path).
func (n *Buffer) Raw() *buffer.Buffer { return n.b }

// Capacity returns the underlying buffer's fixed size.
func (n *Buffer) Capacity() int { return n.b.Capacity() }

// BeginAppend prepares the buffer for writing more bytes at its current
// write cursor (position), without disturbing any already-unread bytes
// marked by Start.
func (n *Buffer) BeginAppend() {
	n.b.SetLimit(n.b.Capacity())
}

// Unread returns the bytes between the persistent start cursor and the
// current write position, i.e. everything appended but not yet consumed by
// a full parse unit.
func (n *Buffer) Unread() []byte {
	return n.b.Raw()[n.start:n.b.Position()]
}

// MarkStart records pos as the new start of unread data — called once a parser has consumed a unit (e.g. a line) and wants
// to discard it from the unread window without touching bytes appended
// after it.
func (n *Buffer) MarkStart(pos int) { n.start = pos }

// Start returns the persistent start-of-unread-data cursor.
func (n *Buffer) Start() int { return n.start }

// WritePos returns the current append cursor (buffer.Buffer.Position()
// while in the appending phase).
func (n *Buffer) WritePos() int { return n.b.Position() }

// SetWritePos advances the append cursor after bytes have been written
// directly into Raw() past WritePos() (e.g. by a syscall read).
func (n *Buffer) SetWritePos(pos int) { n.b.SetPosition(pos) }

// CompactFromStart moves the unread window [start, writePos) to the front
// of the buffer and resets start to 0, freeing capacity for more appends.
// This is the "safe", data-preserving variant of resize/compaction.
func (n *Buffer) CompactFromStart() {
	data := n.b.Raw()
	wp := n.b.Position()
	shifted := copy(data[0:], data[n.start:wp])
	n.start = 0
	n.b.SetLimit(n.b.Capacity())
	n.b.SetPosition(shifted)
}

// Reset clears the unread window entirely and returns the buffer to a
// fresh appending phase at position 0. Used between pipelined requests.
func (n *Buffer) Reset() {
	n.start = 0
	n.b.Clear()
}

// ResizeSafe grows or shrinks the underlying capacity, preserving the
// unread window [start, writePos) by compacting it to the front first.
func (n *Buffer) ResizeSafe(newCap int) {
	data := n.b.Raw()
	wp := n.b.Position()
	unread := append([]byte(nil), data[n.start:wp]...)

	n.b.Resize(newCap, false)
	n.start = 0

	nd := n.b.Raw()
	copy(nd, unread)
	n.b.SetPosition(len(unread))
	n.b.SetLimit(n.b.Capacity())
}

// ResizeUnsafe replaces the backing storage outright; the caller must
// guarantee the buffer is empty (start == writePos == 0), or unread data is
// silently dropped.
func (n *Buffer) ResizeUnsafe(newCap int) {
	n.b.Resize(newCap, false)
	n.start = 0
}

// IsEmpty reports whether there is no unread data and nothing pending.
func (n *Buffer) IsEmpty() bool { return n.start == n.b.Position() }
