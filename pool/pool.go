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

// Package pool implements the bounded, reactor-thread-local free list the
// scatter buffer builder draws buffers from. It is deliberately not built
// on sync.Pool: sync.Pool is tuned for cross-goroutine reuse under GC
// pressure, whereas every caller here is the single reactor thread and
// wants a hard cap with a deterministic tag per entry, not a pool the GC
// can silently empty.
package pool

// Entry is anything the pool can hand out and reclaim. Reset must return
// the value to its defined zero state before it is reused.
type Entry interface {
	Reset()
}

// New returns an object allocator, used the first time the pool needs an
// entry it has nothing free to hand back.
type New[T Entry] func() T

// Pool is a generic, capacity-bounded free list keyed by a monotonically
// increasing tag per live entry. It is not safe for concurrent use from
// more than one goroutine; each reactor owns its own pool instance.
type Pool[T Entry] struct {
	new    New[T]
	max    int
	tag    uint64
	free   []T
	tags   map[uint64]struct{}
}

// NewPool builds a Pool bounded to max free entries. A max <= 0 means
// entries are never retained: Put always drops them.
func NewPool[T Entry](max int, allocator New[T]) *Pool[T] {
	return &Pool[T]{
		new:  allocator,
		max:  max,
		tags: make(map[uint64]struct{}),
	}
}

// Get returns a free entry if one is available, otherwise allocates a new
// one. The returned tag uniquely identifies this checkout until it is put
// back.
func (p *Pool[T]) Get() (entry T, tag uint64) {
	p.tag++
	tag = p.tag
	p.tags[tag] = struct{}{}

	if n := len(p.free); n > 0 {
		entry = p.free[n-1]
		p.free = p.free[:n-1]
		return entry, tag
	}
	return p.new(), tag
}

// Put resets and returns an entry to the free list. If the pool is already
// at capacity, the entry is dropped (left for the GC) instead of retained.
func (p *Pool[T]) Put(entry T, tag uint64) {
	delete(p.tags, tag)
	entry.Reset()

	if p.max <= 0 || len(p.free) >= p.max {
		return
	}
	p.free = append(p.free, entry)
}

// Live returns the number of entries currently checked out.
func (p *Pool[T]) Live() int { return len(p.tags) }

// Free returns the number of entries currently retained in the free list.
func (p *Pool[T]) Free() int { return len(p.free) }
