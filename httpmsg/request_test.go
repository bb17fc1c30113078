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

package httpmsg_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/reactor-httpd/httpmsg"
)

var _ = Describe("Request", func() {
	It("starts with an unparsed Content-Length and an empty Headers map", func() {
		r := httpmsg.NewRequest()
		Expect(r.ContentLength).To(Equal(int64(-1)))
		Expect(r.Disposition).To(Equal(httpmsg.Ignore))
		Expect(r.Headers.Names()).To(BeEmpty())
	})

	It("Reset restores the zero-ish state while keeping the Headers allocation", func() {
		r := httpmsg.NewRequest()
		r.Method = "GET"
		r.URI = "/x"
		r.Minor = 1
		r.Headers.Add("Host", "example.com")
		r.Disposition = httpmsg.Read
		r.ContentLength = 10

		headers := r.Headers
		r.Reset()

		Expect(r.Method).To(Equal(""))
		Expect(r.URI).To(Equal(""))
		Expect(r.Minor).To(Equal(0))
		Expect(r.Disposition).To(Equal(httpmsg.Ignore))
		Expect(r.OnBody).To(BeNil())
		Expect(r.ContentLength).To(Equal(int64(-1)))
		Expect(r.Headers).To(BeIdenticalTo(headers))
		Expect(r.Headers.Names()).To(BeEmpty())
	})
})
