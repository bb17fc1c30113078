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

// Package scatter implements the scatter/gather buffer builder the response
// writer appends headers and body into: a sequence of pooled byte buffers
// plus a trailing partial "current" buffer, with an insertion cursor that
// lets the response writer reserve space at the front for the status line
// and headers while still writing the body with zero extra copies.
package scatter

import (
	"github.com/nabbar/reactor-httpd/buffer"
	"github.com/nabbar/reactor-httpd/pool"
)

const defaultSegmentSize = 4096

// defaultPoolMax bounds the builder's private free list. Segments beyond
// this are simply left for the GC on Put, same as pool.Pool does for any
// caller.
const defaultPoolMax = 16

type segEntry struct {
	buf   *buffer.Buffer
	owned bool
	tag   uint64
}

// bufPool is the shape Builder draws segments from. *pool.Pool[*buffer.Buffer]
// satisfies it directly; SetAllocator accepts anything else built to the
// same shape, e.g. a pool shared across a connection's pipelined writers.
type bufPool interface {
	Get() (*buffer.Buffer, uint64)
	Put(*buffer.Buffer, uint64)
}

// Builder is a scatter/gather sequence builder. Not safe for concurrent
// use; owned by a single connection/response writer.
type Builder struct {
	pool       bufPool
	segments   []segEntry
	cur        *buffer.Buffer
	curTag     uint64
	frontEpoch uint64
	backEpoch  uint64
	built      bool
}

// New returns a Builder drawing segSize-byte buffers from a private,
// capacity-bounded pool.Pool. Since Clear (not a fresh New) is what resets a
// Builder between pipelined responses on the same connection, this private
// pool is itself reused across that connection's whole lifetime. Pass a
// shared bufPool via SetAllocator to draw from a pool owned elsewhere
// instead.
func New(segSize int) *Builder {
	if segSize <= 0 {
		segSize = defaultSegmentSize
	}
	return &Builder{pool: pool.NewPool[*buffer.Buffer](defaultPoolMax, func() *buffer.Buffer {
		return buffer.New(segSize, buffer.Heap)
	})}
}

// SetAllocator rebinds the segment source to an external pool (typically a
// *pool.Pool[*buffer.Buffer] shared across several builders), replacing the
// builder's private one.
func (b *Builder) SetAllocator(p bufPool) {
	b.pool = p
}

func (b *Builder) ensureCurrent() {
	if b.cur == nil {
		b.cur, b.curTag = b.pool.Get()
	}
}

func (b *Builder) commitCurrent() {
	if b.cur == nil || b.cur.Position() == 0 {
		return
	}
	full := b.cur
	full.Flip()
	b.segments = append(b.segments, segEntry{buf: full, owned: true, tag: b.curTag})
	b.cur = nil
	b.curTag = 0
}

// AppendString appends a UTF-8 string to the builder, splitting across as
// many pooled segments as needed.
func (b *Builder) AppendString(s string) {
	b.AppendBytes([]byte(s))
}

// AppendBytes appends raw bytes to the builder, splitting across as many
// pooled segments as needed. Appending body content while a cursor is open
// (the response writer's normal flow: reserve the front, then stream the
// body) does not itself invalidate that cursor — only opening a second
// cursor at the same end does, since Close resolves its insertion point at
// close time rather than capturing a stale index up front.
func (b *Builder) AppendBytes(p []byte) {
	for len(p) > 0 {
		b.ensureCurrent()
		n, err := b.cur.Put(p)
		p = p[n:]
		if err != nil {
			b.commitCurrent()
		}
	}
}

// AppendBuffer appends an externally owned byte buffer by reference (not
// copied). The buffer must already be in its reading phase (Flip called).
// The builder never returns an externally owned buffer to its own pool.
func (b *Builder) AppendBuffer(buf *buffer.Buffer) {
	b.commitCurrent()
	b.segments = append(b.segments, segEntry{buf: buf, owned: false})
}

// Remaining returns the total unread byte count across committed segments
// plus the write cursor of the current partial buffer.
func (b *Builder) Remaining() int {
	total := 0
	for _, s := range b.segments {
		total += s.buf.Remaining()
	}
	if b.cur != nil {
		total += b.cur.Position()
	}
	return total
}

// CursorPos selects which end of the sequence an insertion cursor targets.
type CursorPos uint8

const (
	Front CursorPos = iota
	Back
)

// Cursor is an insertion point opened with Insert. Writes accumulate in an
// unbounded scratch area; Close commits them into the sequence at the
// recorded position (resolved at close time, not capture time, so plain
// body appends through the builder while the cursor is open are fine) and
// releases the cursor. Opening a second cursor at the same end while one
// is still open invalidates the first — only one writer may hold a given
// end at a time.
type Cursor struct {
	b       *Builder
	pos     CursorPos
	epoch   uint64
	scratch []byte
	closed  bool
}

// Insert opens an insertion cursor at the front or back of the current
// sequence.
func (b *Builder) Insert(pos CursorPos) *Cursor {
	if pos == Front {
		b.frontEpoch++
		return &Cursor{b: b, pos: pos, epoch: b.frontEpoch}
	}
	b.backEpoch++
	return &Cursor{b: b, pos: pos, epoch: b.backEpoch}
}

// Write appends bytes to the cursor's own scratch area.
func (c *Cursor) Write(p []byte) {
	c.scratch = append(c.scratch, p...)
}

// WriteString is the string form of Write.
func (c *Cursor) WriteString(s string) { c.Write([]byte(s)) }

// Valid reports whether a later cursor at the same end has not since been
// opened, and this cursor has not already been closed.
func (c *Cursor) Valid() bool {
	if c.closed {
		return false
	}
	if c.pos == Front {
		return c.epoch == c.b.frontEpoch
	}
	return c.epoch == c.b.backEpoch
}

// Close commits the cursor's scratch content into the builder's sequence
// at its position (front or back) and marks the cursor closed. It is a
// no-op (returns false) if a later cursor at the same end invalidated this
// one first.
func (c *Cursor) Close() bool {
	if c.closed {
		return false
	}
	var stillCurrent bool
	if c.pos == Front {
		stillCurrent = c.epoch == c.b.frontEpoch
	} else {
		stillCurrent = c.epoch == c.b.backEpoch
	}
	c.closed = true
	if !stillCurrent {
		return false
	}

	buf := buffer.New(len(c.scratch), buffer.Heap)
	buf.Put(c.scratch)
	buf.Flip()
	entry := segEntry{buf: buf, owned: false}

	switch c.pos {
	case Front:
		c.b.segments = append([]segEntry{entry}, c.b.segments...)
	default:
		c.b.commitCurrent()
		c.b.segments = append(c.b.segments, entry)
	}
	return true
}

// Build finalizes the sequence (flipping any trailing partial buffer into
// its reading phase) and returns the ordered byte slices ready for a
// scatter/gather send. No further appends are valid after Build until
// Clear is called.
func (b *Builder) Build() [][]byte {
	b.commitCurrent()
	b.built = true

	out := make([][]byte, 0, len(b.segments))
	for _, s := range b.segments {
		out = append(out, s.buf.Bytes())
	}
	return out
}

// Clear returns every pool-owned segment (and the pending current buffer)
// to the allocator and resets the builder to a fresh, empty state.
func (b *Builder) Clear() {
	for _, s := range b.segments {
		if s.owned {
			b.pool.Put(s.buf, s.tag)
		}
	}
	b.segments = b.segments[:0]
	if b.cur != nil {
		b.pool.Put(b.cur, b.curTag)
	}
	b.cur = nil
	b.curTag = 0
	b.frontEpoch++
	b.backEpoch++
	b.built = false
}
