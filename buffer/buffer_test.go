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

package buffer_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/reactor-httpd/buffer"
)

var _ = Describe("Buffer", func() {
	It("reports capacity and kind at construction", func() {
		b := buffer.New(16, buffer.Heap)
		Expect(b.Capacity()).To(Equal(16))
		Expect(b.Kind()).To(Equal(buffer.Heap))
		Expect(b.Position()).To(Equal(0))
		Expect(b.Limit()).To(Equal(16))
	})

	It("advances position on Put and reports Remaining against the limit", func() {
		b := buffer.New(8, buffer.Heap)
		n, err := b.Put([]byte("abcd"))
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(4))
		Expect(b.Position()).To(Equal(4))
		Expect(b.HasRemaining()).To(BeTrue())
	})

	It("returns a partial write and ErrOverflow when Put exceeds the limit", func() {
		b := buffer.New(4, buffer.Heap)
		n, err := b.Put([]byte("abcdefgh"))
		Expect(n).To(Equal(4))
		Expect(err).To(MatchError(buffer.ErrOverflow))
		Expect(b.HasRemaining()).To(BeFalse())
	})

	It("flips from write mode to read mode", func() {
		b := buffer.New(8, buffer.Heap)
		_, _ = b.Put([]byte("abcd"))
		b.Flip()
		Expect(b.Position()).To(Equal(0))
		Expect(b.Limit()).To(Equal(4))
		Expect(b.Bytes()).To(Equal([]byte("abcd")))
	})

	It("clears back to an empty write-mode buffer", func() {
		b := buffer.New(8, buffer.Heap)
		_, _ = b.Put([]byte("abcd"))
		b.Flip()
		b.Clear()
		Expect(b.Position()).To(Equal(0))
		Expect(b.Limit()).To(Equal(8))
	})

	It("compacts unread bytes to the front and reopens for writing", func() {
		b := buffer.New(8, buffer.Heap)
		_, _ = b.Put([]byte("abcdef"))
		b.Flip()
		got := make([]byte, 2)
		n := b.Get(got)
		Expect(n).To(Equal(2))
		Expect(string(got)).To(Equal("ab"))

		b.Compact()
		Expect(b.Position()).To(Equal(4))
		Expect(b.Limit()).To(Equal(8))
		Expect(b.Raw()[:4]).To(Equal([]byte("cdef")))
	})

	It("grows capacity in Resize while preserving the unread window", func() {
		b := buffer.New(4, buffer.Heap)
		_, _ = b.Put([]byte("abcd"))
		b.Flip()
		b.Resize(8, true)
		Expect(b.Capacity()).To(Equal(8))
		Expect(b.Position()).To(Equal(0))
		Expect(b.Limit()).To(Equal(4))
		Expect(b.Raw()[:4]).To(Equal([]byte("abcd")))
	})

	It("Get copies no more than Remaining bytes", func() {
		b := buffer.New(8, buffer.Heap)
		_, _ = b.Put([]byte("ab"))
		b.Flip()
		dst := make([]byte, 8)
		n := b.Get(dst)
		Expect(n).To(Equal(2))
		Expect(dst[:2]).To(Equal([]byte("ab")))
	})
})
